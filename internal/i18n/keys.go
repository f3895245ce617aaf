package i18n

// Error message translation keys. Keys of the form "error.<code>" match envelope error codes.
const (
	// ErrKeyInvalidRequest indicates an invalid request.
	ErrKeyInvalidRequest = "error.invalid_request"
	// ErrKeyInvalidRequestBody indicates a body that could not be decoded.
	ErrKeyInvalidRequestBody = "error.invalid_request_body"
	// ErrKeyInternalError indicates an internal server error.
	ErrKeyInternalError = "error.internal_error"
	// ErrKeyUnauthorized indicates missing authentication.
	ErrKeyUnauthorized = "error.unauthorized"
	// ErrKeyInvalidCredentials indicates a wrong email or password.
	ErrKeyInvalidCredentials = "error.invalid_credentials"
	// ErrKeyForbidden indicates insufficient permissions.
	ErrKeyForbidden = "error.forbidden"
	// ErrKeyNotFound indicates a resource was not found.
	ErrKeyNotFound = "error.not_found"
	// ErrKeyRateLimitExceeded indicates rate limit exceeded.
	ErrKeyRateLimitExceeded = "error.rate_limit_exceeded"
	// ErrKeyConflict indicates a conflict with current state.
	ErrKeyConflict = "error.conflict"
	// ErrKeyValidationFailed indicates field validation errors; details carry the fields.
	ErrKeyValidationFailed = "error.validation_failed"
	// ErrKeyInvalidToken indicates a token that cannot be used again.
	ErrKeyInvalidToken = "error.invalid_token"
	// ErrKeyTokenExpired indicates an expired access token the client may refresh.
	ErrKeyTokenExpired = "error.token_expired"
	// ErrKeyTokenRequired indicates that a bearer token is required.
	ErrKeyTokenRequired = "error.token_required"
	// ErrKeyRefreshTokenRequired indicates a refresh request without a refresh token.
	ErrKeyRefreshTokenRequired = "error.refresh_token_required"
	// ErrKeyTimeout indicates a request timeout.
	ErrKeyTimeout = "error.timeout"
	// ErrKeyUserExists indicates a taken email or username.
	ErrKeyUserExists = "error.user_exists"
	// ErrKeyApplicationNotPending indicates a review or withdrawal of a decided application.
	ErrKeyApplicationNotPending = "error.application_not_pending"
	// ErrKeyRoleChanged indicates the applicant's role changed before approval.
	ErrKeyRoleChanged = "error.role_changed"
)

// Success message translation keys.
const (
	SuccessKeyLoggedOut            = "success.logged_out"
	SuccessKeyApplicationSubmitted = "success.application_submitted"
	SuccessKeyApplicationReviewed  = "success.application_reviewed"
	SuccessKeyApplicationWithdrawn = "success.application_withdrawn"
)

// KeyForCode returns the message key of an envelope error code.
func KeyForCode(code string) string {
	return "error." + code
}
