package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/notify"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
)

// Actor is the authenticated caller of a workflow operation. Role is the role the user
// currently holds, not the one in their access token.
type Actor struct {
	ID   primitive.ObjectID
	Role rbac.Role
}

// RoleApplicationService runs the role application workflow.
type RoleApplicationService interface {
	Submit(ctx context.Context, actor Actor, req dto.SubmitApplicationRequest) (*model.RoleApplication, error)
	ListMine(ctx context.Context, actor Actor) ([]*model.RoleApplication, error)
	List(ctx context.Context, filter model.ApplicationFilter) ([]*model.RoleApplication, int64, error)
	Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.RoleApplication, error)
	Review(ctx context.Context, actor Actor, id primitive.ObjectID, req dto.ReviewApplicationRequest) (*model.RoleApplication, error)
	Withdraw(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.RoleApplication, error)
	Cooldown() time.Duration
}

// RoleApplicationServiceImpl implements RoleApplicationService.
type RoleApplicationServiceImpl struct {
	apps      repository.RoleApplicationRepositoryInterface
	users     repository.UserRepositoryInterface
	tx        repository.Transactor
	hierarchy *rbac.Hierarchy
	roles     RoleResolver
	events    *notify.Dispatcher
	cfg       config.WorkflowConfig
	now       func() time.Time
}

// NewRoleApplicationService creates the workflow service. tx, roles and events may be nil.
func NewRoleApplicationService(
	apps repository.RoleApplicationRepositoryInterface,
	users repository.UserRepositoryInterface,
	tx repository.Transactor,
	hierarchy *rbac.Hierarchy,
	roles RoleResolver,
	events *notify.Dispatcher,
	cfg config.WorkflowConfig,
) *RoleApplicationServiceImpl {
	if tx == nil {
		tx = repository.NoopTransactor{}
	}
	return &RoleApplicationServiceImpl{
		apps:      apps,
		users:     users,
		tx:        tx,
		hierarchy: hierarchy,
		roles:     roles,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetClock overrides the clock used for timestamps and the reapply cooldown.
func (s *RoleApplicationServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

// Cooldown returns how long a rejection blocks reapplying for the same role.
func (s *RoleApplicationServiceImpl) Cooldown() time.Duration {
	return s.cfg.ReapplyCooldown
}

// Submit validates and stores a new pending application.
func (s *RoleApplicationServiceImpl) Submit(ctx context.Context, actor Actor, req dto.SubmitApplicationRequest) (*model.RoleApplication, error) {
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		return nil, apperror.NewValidationError("role", "must be a known role")
	}

	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find applicant: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := s.now().UTC()
	verr := &apperror.ValidationError{}
	roleOK := true
	switch {
	case user.Role == role:
		verr.Add("role", "you already hold this role")
		roleOK = false
	case !s.hierarchy.CanTransitionToRole(user.Role, role):
		verr.Add("role", fmt.Sprintf("cannot apply for %s as %s", role, user.Role))
		roleOK = false
	}

	reason := strings.TrimSpace(req.Reason)
	switch n := utf8.RuneCountInString(reason); {
	case n < s.cfg.ReasonMinLength:
		verr.Add("reason", fmt.Sprintf("must have at least %d characters", s.cfg.ReasonMinLength))
	case n > s.cfg.ReasonMaxLength:
		verr.Add("reason", fmt.Sprintf("must have at most %d characters", s.cfg.ReasonMaxLength))
	}

	var data model.ApplicationData
	if roleOK {
		data, err = model.DecodeApplicationData(role, req.Fields)
		if err == nil {
			err = model.ValidateStruct("fields", data.Payload())
		}
		if err := mergeValidation(verr, err); err != nil {
			return nil, err
		}
	}
	for i, doc := range req.Documents {
		if err := mergeValidation(verr, model.ValidateStruct(fmt.Sprintf("documents[%d]", i), doc)); err != nil {
			return nil, err
		}
	}

	if roleOK {
		if err := s.checkExisting(ctx, verr, actor.ID, role, now); err != nil {
			return nil, err
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	app := &model.RoleApplication{
		ApplicantID:   actor.ID,
		CurrentRole:   user.Role,
		RequestedRole: role,
		Reason:        reason,
		Data:          data,
		Fields:        append(json.RawMessage(nil), bytes.TrimSpace(req.Fields)...),
		Documents:     req.Documents,
		Status:        model.StatusPending,
		AppliedAt:     now,
		UpdatedAt:     now,
	}
	if app.Documents == nil {
		app.Documents = []model.Document{}
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.NewValidationError("role", "you already have a pending application for this role")
		}
		return nil, fmt.Errorf("create role application: %w", err)
	}

	metrics.RecordTransition("none", string(model.StatusPending))
	s.events.Publish(ctx, notify.NewEvent(app, actor.ID, "", now))
	return app, nil
}

// checkExisting records a validation failure when a pending application or a recent
// rejection blocks a new application for role.
func (s *RoleApplicationServiceImpl) checkExisting(ctx context.Context, verr *apperror.ValidationError, applicantID primitive.ObjectID, role rbac.Role, now time.Time) error {
	existing, err := s.apps.FindByApplicantAndRole(ctx, applicantID, role)
	if err != nil {
		return fmt.Errorf("failed to load previous applications: %w", err)
	}
	for _, prev := range existing {
		if !prev.BlocksReapplication(now, s.cfg.ReapplyCooldown) {
			continue
		}
		if prev.Status == model.StatusPending {
			verr.Add("role", "you already have a pending application for this role")
			return nil
		}
		availableAt, _ := prev.ReapplyAvailableAt(s.cfg.ReapplyCooldown)
		verr.Add("role", "you can reapply for this role after "+availableAt.UTC().Format(time.RFC3339))
		return nil
	}
	return nil
}

// ListMine returns the caller's applications, newest first.
func (s *RoleApplicationServiceImpl) ListMine(ctx context.Context, actor Actor) ([]*model.RoleApplication, error) {
	apps, err := s.apps.FindByApplicant(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// List returns one page of applications matching filter and the total match count.
func (s *RoleApplicationServiceImpl) List(ctx context.Context, filter model.ApplicationFilter) ([]*model.RoleApplication, int64, error) {
	filter.Normalize()
	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, total, nil
}

// Get returns an application visible to the actor: their own, or any with role:read.
func (s *RoleApplicationServiceImpl) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.RoleApplication, error) {
	app, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != actor.ID && !s.hierarchy.RoleHasPermission(actor.Role, rbac.ResourceRole, rbac.ActionRead) {
		return nil, ErrNotApplicant
	}
	return app, nil
}

// Review approves or rejects a pending application. Approval grants the requested role
// to the applicant; if the grant fails the application goes back to pending.
func (s *RoleApplicationServiceImpl) Review(ctx context.Context, actor Actor, id primitive.ObjectID, req dto.ReviewApplicationRequest) (*model.RoleApplication, error) {
	if !s.hierarchy.RoleHasPermission(actor.Role, rbac.ResourceRole, rbac.ActionUpdate) {
		return nil, ErrNotReviewer
	}
	to, ok := model.ParseApplicationStatus(req.Status)
	if !ok || !to.IsReviewOutcome() {
		return nil, apperror.NewValidationError("status", "must be approved or rejected")
	}

	app, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(to) {
		return nil, ErrApplicationNotPending
	}

	now := s.now().UTC()
	reviewer := actor.ID
	upd := repository.TransitionUpdate{At: now, ReviewedBy: &reviewer, AdminNotes: strings.TrimSpace(req.AdminNotes)}

	var updated *model.RoleApplication
	if to == model.StatusRejected {
		updated, err = s.transition(ctx, id, model.StatusRejected, upd)
	} else {
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			var txErr error
			updated, txErr = s.transition(ctx, id, model.StatusApproved, upd)
			if txErr != nil {
				return txErr
			}
			return s.grant(ctx, updated)
		})
	}
	if err != nil {
		return nil, err
	}

	if to == model.StatusApproved && s.roles != nil {
		s.roles.Invalidate(updated.ApplicantID)
	}
	metrics.RecordTransition(string(model.StatusPending), string(to))
	s.events.Publish(ctx, notify.NewEvent(updated, actor.ID, model.StatusPending, now))
	return updated, nil
}

// grant sets the applicant's role, provided they still hold the role they applied from.
// On failure the approval is reverted.
func (s *RoleApplicationServiceImpl) grant(ctx context.Context, app *model.RoleApplication) error {
	err := s.users.UpdateRole(ctx, app.ApplicantID, app.CurrentRole, app.RequestedRole)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrStateConflict) {
		err = ErrRoleChanged
	} else {
		err = fmt.Errorf("grant role: %w", err)
	}

	if revertErr := s.apps.RevertToPending(ctx, app.ID, model.StatusApproved); revertErr != nil {
		log.Error().
			Err(revertErr).
			Str("application_id", app.ID.Hex()).
			Msg("failed to revert approval after role grant failure")
		return errors.Join(err, fmt.Errorf("revert approval: %w", revertErr))
	}
	return err
}

// Withdraw cancels a pending application. Only the applicant may withdraw.
func (s *RoleApplicationServiceImpl) Withdraw(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.RoleApplication, error) {
	app, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != actor.ID {
		return nil, ErrNotApplicant
	}

	now := s.now().UTC()
	updated, err := s.transition(ctx, id, model.StatusWithdrawn, repository.TransitionUpdate{At: now})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(model.StatusPending), string(model.StatusWithdrawn))
	s.events.Publish(ctx, notify.NewEvent(updated, actor.ID, model.StatusPending, now))
	return updated, nil
}

func (s *RoleApplicationServiceImpl) find(ctx context.Context, id primitive.ObjectID) (*model.RoleApplication, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

// transition moves a pending application to status to.
func (s *RoleApplicationServiceImpl) transition(ctx context.Context, id primitive.ObjectID, to model.ApplicationStatus, upd repository.TransitionUpdate) (*model.RoleApplication, error) {
	updated, err := s.apps.Transition(ctx, id, model.StatusPending, to, upd)
	switch {
	case errors.Is(err, repository.ErrStateConflict):
		return nil, ErrApplicationNotPending
	case err != nil:
		return nil, fmt.Errorf("transition application: %w", err)
	case updated == nil:
		return nil, ErrApplicationNotFound
	}
	return updated, nil
}

// mergeValidation moves field errors from err into verr. Other errors are returned.
func mergeValidation(verr *apperror.ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		verr.Fields = append(verr.Fields, ve.Fields...)
		return nil
	}
	return err
}
