package dto

import (
	"net/http"
	"time"

	"github.com/guttosm/campus-access/internal/apperror"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Error codes not covered by the domain error taxonomy.
const (
	// ErrCodeInvalidRequest indicates a malformed request body or parameter.
	ErrCodeInvalidRequest = "invalid_request"
	// ErrCodeRateLimit indicates rate limit exceeded.
	ErrCodeRateLimit = "rate_limit_exceeded"
	// ErrCodeTimeout indicates a request timeout.
	ErrCodeTimeout = "timeout"
	// ErrCodeUnauthorized indicates a missing credential.
	ErrCodeUnauthorized = "unauthorized"
)

// SuccessResponse wraps successful API responses with metadata.
// @Description Successful API response wrapper
type SuccessResponse struct {
	// Status is always "success".
	Status string `json:"status" example:"success"`
	// Data contains the response payload.
	Data any `json:"data" swaggertype:"object"`
	// Message is an optional human readable note.
	Message   string    `json:"message,omitempty" example:"Logged out"`
	RequestID string    `json:"request_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp time.Time `json:"timestamp" example:"2026-01-28T10:00:00Z"`
} // @name SuccessResponse

// ErrorResponse is the envelope for failed requests. Status is "fail" for client errors
// and "error" for server errors.
// @Description Standardized error response
type ErrorResponse struct {
	Status  string `json:"status" example:"fail"`
	Error   string `json:"error" example:"validation_failed"`
	Message string `json:"message,omitempty" example:"Validation failed"`
	// Details maps field names to messages for validation failures.
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp time.Time         `json:"timestamp" example:"2026-01-28T10:00:00Z"`
} // @name ErrorResponse

// NewError creates an ErrorResponse for the given status code.
func NewError(statusCode int, code, message string) ErrorResponse {
	return ErrorResponse{
		Status:    StatusFromCode(statusCode),
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithRequestID adds a request ID to the error response.
func (e ErrorResponse) WithRequestID(requestID string) ErrorResponse {
	e.RequestID = requestID
	return e
}

// StatusFromCode returns the envelope status for an HTTP status code.
func StatusFromCode(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return StatusError
	case statusCode >= http.StatusBadRequest:
		return StatusFail
	default:
		return StatusSuccess
	}
}

// ErrCodeFromStatus returns the default error code for an HTTP status.
func ErrCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return apperror.CodeForbidden
	case http.StatusNotFound:
		return apperror.CodeNotFound
	case http.StatusConflict:
		return apperror.CodeConflict
	case http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrCodeTimeout
	default:
		return apperror.CodeInternal
	}
}

// PageResponse is a page of items with the total count across pages.
type PageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total" example:"42"`
	Page  int   `json:"page" example:"1"`
	Limit int   `json:"limit" example:"20"`
}
