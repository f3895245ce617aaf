package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/guttosm/campus-access/internal/apperror"
)

// ErrSessionExpired wraps the refresh failure that ended the session.
var ErrSessionExpired = errors.New("session expired")

// Error is a non-2xx answer of the API, decoded from its error envelope.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
	RequestID  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 answer.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// refreshable reports whether a 401 may be cured by a new access token. A token the
// server considers malformed or forged is not.
func (e *Error) refreshable() bool {
	return e.StatusCode == http.StatusUnauthorized && e.Code != apperror.CodeInvalidToken
}
