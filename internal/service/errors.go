package service

import (
	"fmt"

	"github.com/guttosm/campus-access/internal/apperror"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperror.ErrAuthentication)
	// ErrUserExists is returned when trying to register an existing email or username.
	ErrUserExists = fmt.Errorf("%w: user already exists", apperror.ErrConflict)
	// ErrUserNotFound is returned when the user no longer exists.
	ErrUserNotFound = fmt.Errorf("%w: user", apperror.ErrNotFound)

	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = apperror.ErrTokenExpired
	// ErrInvalidToken is returned for malformed tokens, bad signatures and wrong token types.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", apperror.ErrAuthentication)
	// ErrTokenRevoked is returned for access tokens revoked by logout.
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", apperror.ErrAuthentication)

	// ErrApplicationNotFound is returned when the role application does not exist.
	ErrApplicationNotFound = fmt.Errorf("%w: role application", apperror.ErrNotFound)
	// ErrApplicationNotPending is returned when a transition targets an application that
	// is no longer pending.
	ErrApplicationNotPending = fmt.Errorf("%w: role application is no longer pending", apperror.ErrConflict)
	// ErrRoleChanged is returned when the applicant's role changed while the application
	// was under review.
	ErrRoleChanged = fmt.Errorf("%w: applicant role changed", apperror.ErrConflict)
	// ErrNotApplicant is returned when someone other than the applicant acts on an application.
	ErrNotApplicant = fmt.Errorf("%w: only the applicant may do this", apperror.ErrAuthorization)
	// ErrNotReviewer is returned when a caller without role:update reviews an application.
	ErrNotReviewer = fmt.Errorf("%w: role:update permission required", apperror.ErrAuthorization)
)
