//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

func newPendingApplication(applicant primitive.ObjectID, role rbac.Role, appliedAt time.Time) *model.RoleApplication {
	app := &model.RoleApplication{
		ApplicantID:   applicant,
		CurrentRole:   rbac.RoleUser,
		RequestedRole: role,
		Reason:        "A reason long enough to pass validation in the service layer checks.",
		Status:        model.StatusPending,
		AppliedAt:     appliedAt,
		UpdatedAt:     appliedAt,
	}
	switch role {
	case rbac.RoleWriter:
		app.Data = model.ApplicationData{Writer: &model.WriterData{PortfolioURL: "https://example.com", Topics: []string{"go"}}}
	default:
		app.Data = model.ApplicationData{Mentor: &model.MentorData{Expertise: []string{"go"}, YearsOfExperience: 5, Qualifications: "ten years teaching"}}
	}
	return app
}

func TestRoleApplicationRepository_OnePendingPerRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDBFromSharedContainer(t)
	repo := NewRoleApplicationRepository(db.Database)

	applicant := primitive.NewObjectID()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := newPendingApplication(applicant, rbac.RoleMentor, now)
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newPendingApplication(applicant, rbac.RoleMentor, now))
	assert.ErrorIs(t, err, ErrDuplicate)

	// a different role is fine
	require.NoError(t, repo.Create(ctx, newPendingApplication(applicant, rbac.RoleWriter, now)))

	// once the first is terminal a new pending one is allowed
	_, err = repo.Transition(ctx, first.ID, model.StatusPending, model.StatusWithdrawn, TransitionUpdate{At: now})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newPendingApplication(applicant, rbac.RoleMentor, now)))
}

func TestRoleApplicationRepository_Transition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDBFromSharedContainer(t)
	repo := NewRoleApplicationRepository(db.Database)

	now := time.Now().UTC().Truncate(time.Millisecond)
	app := newPendingApplication(primitive.NewObjectID(), rbac.RoleMentor, now)
	require.NoError(t, repo.Create(ctx, app))

	admin := primitive.NewObjectID()
	reviewedAt := now.Add(time.Minute)
	updated, err := repo.Transition(ctx, app.ID, model.StatusPending, model.StatusRejected, TransitionUpdate{
		At:         reviewedAt,
		ReviewedBy: &admin,
		AdminNotes: "needs more experience",
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, model.StatusRejected, updated.Status)
	require.NotNil(t, updated.ReviewedAt)
	assert.True(t, reviewedAt.Equal(*updated.ReviewedAt))
	assert.Equal(t, admin, *updated.ReviewedBy)
	assert.Equal(t, "needs more experience", updated.AdminNotes)

	// terminal: a second transition conflicts and leaves the record untouched
	_, err = repo.Transition(ctx, app.ID, model.StatusPending, model.StatusApproved, TransitionUpdate{At: now})
	assert.ErrorIs(t, err, ErrStateConflict)

	stored, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, stored.Status)

	missing, err := repo.Transition(ctx, primitive.NewObjectID(), model.StatusPending, model.StatusApproved, TransitionUpdate{At: now})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRoleApplicationRepository_ConcurrentReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDBFromSharedContainer(t)
	repo := NewRoleApplicationRepository(db.Database)

	now := time.Now().UTC()
	app := newPendingApplication(primitive.NewObjectID(), rbac.RoleMentor, now)
	require.NoError(t, repo.Create(ctx, app))

	targets := []model.ApplicationStatus{model.StatusApproved, model.StatusRejected, model.StatusWithdrawn, model.StatusApproved}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to model.ApplicationStatus) {
			defer wg.Done()
			_, errs[i] = repo.Transition(ctx, app.ID, model.StatusPending, to, TransitionUpdate{At: now})
		}(i, to)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrStateConflict)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestRoleApplicationRepository_RevertToPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDBFromSharedContainer(t)
	repo := NewRoleApplicationRepository(db.Database)

	now := time.Now().UTC()
	app := newPendingApplication(primitive.NewObjectID(), rbac.RoleMentor, now)
	require.NoError(t, repo.Create(ctx, app))

	admin := primitive.NewObjectID()
	_, err := repo.Transition(ctx, app.ID, model.StatusPending, model.StatusApproved, TransitionUpdate{At: now, ReviewedBy: &admin})
	require.NoError(t, err)

	require.NoError(t, repo.RevertToPending(ctx, app.ID, model.StatusApproved))

	stored, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedAt)
	assert.Nil(t, stored.ReviewedBy)

	assert.ErrorIs(t, repo.RevertToPending(ctx, app.ID, model.StatusApproved), ErrStateConflict)
}

func TestRoleApplicationRepository_ListAndFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDBFromSharedContainer(t)
	repo := NewRoleApplicationRepository(db.Database)

	base := time.Now().UTC().Truncate(time.Millisecond)
	applicant := primitive.NewObjectID()
	other := primitive.NewObjectID()

	older := newPendingApplication(applicant, rbac.RoleWriter, base)
	newer := newPendingApplication(applicant, rbac.RoleMentor, base.Add(time.Hour))
	foreign := newPendingApplication(other, rbac.RoleMentor, base.Add(2*time.Hour))
	for _, a := range []*model.RoleApplication{older, newer, foreign} {
		require.NoError(t, repo.Create(ctx, a))
	}

	mine, err := repo.FindByApplicant(ctx, applicant)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)

	byRole, err := repo.FindByApplicantAndRole(ctx, applicant, rbac.RoleWriter)
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, older.ID, byRole[0].ID)

	page, total, err := repo.List(ctx, model.ApplicationFilter{Role: rbac.RoleMentor, Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, foreign.ID, page[0].ID)

	page, total, err = repo.List(ctx, model.ApplicationFilter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestRoleApplicationRepository_PayloadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDBFromSharedContainer(t)
	repo := NewRoleApplicationRepository(db.Database)

	app := newPendingApplication(primitive.NewObjectID(), rbac.RoleMentor, time.Now().UTC())
	app.Data.Mentor.HourlyRate = 42.75
	app.Data.Mentor.LinkedInURL = "https://linkedin.com/in/someone"
	app.Fields = json.RawMessage(`{"expertise":["go"],"years_of_experience":3,"qualifications":"ten chars plus","hourly_rate":0}`)
	app.Documents = []model.Document{{Type: "resume", URL: "https://cdn.example.com/cv.pdf", Name: "cv.pdf", MimeType: "application/pdf", Size: 1024}}
	require.NoError(t, repo.Create(ctx, app))

	stored, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.Data, stored.Data)
	assert.Equal(t, app.Documents, stored.Documents)
	assert.Equal(t, string(app.Fields), string(stored.Fields))
}
