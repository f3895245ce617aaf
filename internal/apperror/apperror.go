// Package apperror defines the error taxonomy shared by the service and HTTP layers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthentication is returned for missing, invalid or expired credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTokenExpired is an authentication failure the client may recover from by refreshing.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrAuthentication)
	// ErrAuthorization is returned when a valid identity lacks the required permission.
	ErrAuthorization = errors.New("insufficient permissions")
	// ErrValidation is returned for malformed input or violated preconditions.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when the resource changed state concurrently.
	ErrConflict = errors.New("conflicting state change")
	// ErrConfiguration is returned for invalid static configuration. It is fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")
)

// Envelope error codes.
const (
	CodeTokenExpired     = "token_expired"
	CodeInvalidToken     = "invalid_token"
	CodeForbidden        = "forbidden"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeInternal         = "internal_error"
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level messages for the submitter.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field message.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field message was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// Details returns the field messages keyed by field name.
func (e *ValidationError) Details() map[string]string {
	details := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		details[f.Field] = f.Message
	}
	return details
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StatusCode maps an error to its HTTP status code.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code maps an error to the envelope error code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrAuthentication):
		return CodeInvalidToken
	case errors.Is(err, ErrAuthorization):
		return CodeForbidden
	case errors.Is(err, ErrValidation):
		return CodeValidationFailed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// IsClientError reports whether the error is correctable by the caller.
func IsClientError(err error) bool {
	status := StatusCode(err)
	return status >= 400 && status < 500
}
