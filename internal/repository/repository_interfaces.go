package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

// Finders return (nil, nil) when no document matches.

// UserRepositoryInterface defines the interface for user repository operations.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	// Save replaces the user if its version is unchanged, else ErrVersionConflict.
	Save(ctx context.Context, user *model.User) error
	// UpdateRole sets the role only while the user still holds from, else ErrStateConflict.
	UpdateRole(ctx context.Context, id primitive.ObjectID, from, to rbac.Role) error
	PruneExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// TokenRepositoryInterface is the access token deny list.
type TokenRepositoryInterface interface {
	Create(ctx context.Context, token *model.Token) error
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// TransitionUpdate holds the fields written together with a status change.
type TransitionUpdate struct {
	At         time.Time
	ReviewedBy *primitive.ObjectID
	AdminNotes string
}

// RoleApplicationRepositoryInterface defines the interface for role application storage.
type RoleApplicationRepositoryInterface interface {
	// Create inserts a pending application. A second pending application for the same
	// applicant and role fails with ErrDuplicate.
	Create(ctx context.Context, app *model.RoleApplication) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.RoleApplication, error)
	FindByApplicant(ctx context.Context, applicantID primitive.ObjectID) ([]*model.RoleApplication, error)
	FindByApplicantAndRole(ctx context.Context, applicantID primitive.ObjectID, role rbac.Role) ([]*model.RoleApplication, error)
	List(ctx context.Context, filter model.ApplicationFilter) ([]*model.RoleApplication, int64, error)
	// Transition moves the application from one status to another atomically. It returns
	// ErrStateConflict when the status is no longer from and (nil, nil) when it does not exist.
	Transition(ctx context.Context, id primitive.ObjectID, from, to model.ApplicationStatus, upd TransitionUpdate) (*model.RoleApplication, error)
	// RevertToPending undoes a review whose side effects failed.
	RevertToPending(ctx context.Context, id primitive.ObjectID, from model.ApplicationStatus) error
}

// LogsRepositoryInterface defines the interface for logs repository operations.
type LogsRepositoryInterface interface {
	Create(ctx context.Context, entry *model.LogEntry) error
	CreateMany(ctx context.Context, entries []*model.LogEntry) error
	Query(ctx context.Context, opts model.LogQueryOptions) ([]*model.LogEntry, error)
	Count(ctx context.Context, opts model.LogQueryOptions) (int64, error)
}

// Transactor runs fn atomically when the deployment supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
