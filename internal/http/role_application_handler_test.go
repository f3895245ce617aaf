package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/mocks"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/service"
)

const testCooldown = 30 * 24 * time.Hour

func pendingApplication(applicant primitive.ObjectID) *model.RoleApplication {
	now := time.Now().UTC()
	return &model.RoleApplication{
		ID:            primitive.NewObjectID(),
		ApplicantID:   applicant,
		CurrentRole:   rbac.RoleUser,
		RequestedRole: rbac.RoleMentor,
		Reason:        "I have mentored for five years",
		Data: model.ApplicationData{Mentor: &model.MentorData{
			Expertise:         []string{"go"},
			YearsOfExperience: 5,
			Qualifications:    "Senior engineer",
		}},
		Status:    model.StatusPending,
		AppliedAt: now,
		UpdatedAt: now,
	}
}

func applicationRouter(apps *mocks.MockRoleApplicationService, claims *dto.Claims) *gin.Engine {
	handler := NewRoleApplicationHandler(apps)
	router := testRouter(claims)
	group := router.Group("/api/role-applications")
	group.POST("", handler.Submit)
	group.GET("", handler.List)
	group.GET("/my-applications", handler.ListMine)
	group.GET("/:id", handler.Get)
	group.PATCH("/:id/status", handler.Review)
	group.POST("/:id/withdraw", handler.Withdraw)
	return router
}

func actorOf(claims *dto.Claims) service.Actor {
	return service.Actor{ID: claims.UserID, Role: claims.Role}
}

func TestRoleApplicationHandler_Submit(t *testing.T) {
	claims := testClaims(rbac.RoleUser)
	validBody := map[string]any{
		"role":   "mentor",
		"reason": "I have mentored for five years",
		"fields": map[string]any{
			"expertise":           []string{"go"},
			"years_of_experience": 5,
			"qualifications":      "Senior engineer",
		},
	}
	isMentor := mock.MatchedBy(func(req dto.SubmitApplicationRequest) bool { return req.Role == "mentor" })

	tests := []struct {
		name         string
		claims       *dto.Claims
		body         any
		setup        func(*mocks.MockRoleApplicationService)
		wantStatus   int
		wantCode     string
		wantDetailOn string
	}{
		{
			name:   "creates a pending application",
			claims: claims,
			body:   validBody,
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Submit", mock.Anything, actorOf(claims), isMentor).Return(pendingApplication(claims.UserID), nil)
				m.On("Cooldown").Return(testCooldown)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:   "unknown role",
			claims: claims,
			body: map[string]any{
				"role": "wizard", "reason": "magic", "fields": map[string]any{"spells": 3},
			},
			setup:        func(*mocks.MockRoleApplicationService) {},
			wantStatus:   http.StatusBadRequest,
			wantCode:     apperror.CodeValidationFailed,
			wantDetailOn: "role",
		},
		{
			name:         "missing reason",
			claims:       claims,
			body:         map[string]any{"role": "mentor", "fields": map[string]any{"expertise": []string{"go"}}},
			setup:        func(*mocks.MockRoleApplicationService) {},
			wantStatus:   http.StatusBadRequest,
			wantCode:     apperror.CodeValidationFailed,
			wantDetailOn: "reason",
		},
		{
			name:   "pending application exists",
			claims: claims,
			body:   validBody,
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Submit", mock.Anything, actorOf(claims), isMentor).
					Return(nil, fmt.Errorf("%w: a pending application already exists", apperror.ErrConflict))
			},
			wantStatus: http.StatusConflict,
			wantCode:   apperror.CodeConflict,
		},
		{
			name:       "unauthenticated",
			body:       validBody,
			setup:      func(*mocks.MockRoleApplicationService) {},
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := new(mocks.MockRoleApplicationService)
			tt.setup(apps)

			w := perform(applicationRouter(apps, tt.claims), newJSONRequest(t, http.MethodPost, "/api/role-applications", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			apps.AssertExpectations(t)

			env := decodeEnvelope(t, w)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, env.Error)
				if tt.wantDetailOn != "" {
					assert.Contains(t, env.Details, tt.wantDetailOn)
				}
				return
			}
			assert.Equal(t, "success", env.Status)
			assert.NotEmpty(t, env.Message)
			resp := decodeData[dto.RoleApplicationResponse](t, w)
			assert.Equal(t, model.StatusPending, resp.Status)
			assert.Equal(t, rbac.RoleMentor, resp.RequestedRole)
			assert.Nil(t, resp.ReapplyAvailableAt)
		})
	}
}

func TestRoleApplicationHandler_ListMine(t *testing.T) {
	claims := testClaims(rbac.RoleUser)
	reviewedAt := time.Now().Add(-time.Hour).UTC()
	rejected := pendingApplication(claims.UserID)
	rejected.Status = model.StatusRejected
	rejected.ReviewedAt = &reviewedAt

	apps := new(mocks.MockRoleApplicationService)
	apps.On("ListMine", mock.Anything, actorOf(claims)).
		Return([]*model.RoleApplication{pendingApplication(claims.UserID), rejected}, nil)
	apps.On("Cooldown").Return(testCooldown)

	w := perform(applicationRouter(apps, claims), httptest.NewRequest(http.MethodGet, "/api/role-applications/my-applications", nil))

	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]dto.RoleApplicationResponse](t, w)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].ReapplyAvailableAt)
	require.NotNil(t, list[1].ReapplyAvailableAt)
	assert.WithinDuration(t, reviewedAt.Add(testCooldown), *list[1].ReapplyAvailableAt, time.Second)
}

func TestRoleApplicationHandler_List(t *testing.T) {
	claims := testClaims(rbac.RoleAdmin)

	tests := []struct {
		name        string
		query       string
		wantFilter  model.ApplicationFilter
		wantStatus  int
		wantDetails []string
		wantPage    int
		wantLimit   int
	}{
		{
			name:       "defaults",
			wantFilter: model.ApplicationFilter{},
			wantStatus: http.StatusOK,
			wantPage:   1,
			wantLimit:  20,
		},
		{
			name:       "filters and pagination",
			query:      "?status=pending&role=mentor&page=2&limit=5",
			wantFilter: model.ApplicationFilter{Status: model.StatusPending, Role: rbac.RoleMentor, Page: 2, Limit: 5},
			wantStatus: http.StatusOK,
			wantPage:   2,
			wantLimit:  5,
		},
		{
			name:       "limit is clamped",
			query:      "?limit=500",
			wantFilter: model.ApplicationFilter{Limit: 500},
			wantStatus: http.StatusOK,
			wantPage:   1,
			wantLimit:  100,
		},
		{
			name:        "invalid values",
			query:       "?status=maybe&role=wizard&page=0&limit=abc",
			wantStatus:  http.StatusBadRequest,
			wantDetails: []string{"status", "role", "page", "limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := new(mocks.MockRoleApplicationService)
			if tt.wantStatus == http.StatusOK {
				apps.On("List", mock.Anything, tt.wantFilter).
					Return([]*model.RoleApplication{pendingApplication(primitive.NewObjectID())}, int64(7), nil)
				apps.On("Cooldown").Return(testCooldown)
			}

			w := perform(applicationRouter(apps, claims), httptest.NewRequest(http.MethodGet, "/api/role-applications"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			apps.AssertExpectations(t)
			if tt.wantStatus != http.StatusOK {
				env := decodeEnvelope(t, w)
				assert.Equal(t, apperror.CodeValidationFailed, env.Error)
				for _, field := range tt.wantDetails {
					assert.Contains(t, env.Details, field)
				}
				return
			}
			page := decodeData[dto.PageResponse[dto.RoleApplicationResponse]](t, w)
			assert.Len(t, page.Items, 1)
			assert.Equal(t, int64(7), page.Total)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}

func TestRoleApplicationHandler_Get(t *testing.T) {
	claims := testClaims(rbac.RoleUser)
	app := pendingApplication(claims.UserID)

	tests := []struct {
		name       string
		id         string
		setup      func(*mocks.MockRoleApplicationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "own application",
			id:   app.ID.Hex(),
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Get", mock.Anything, actorOf(claims), app.ID).Return(app, nil)
				m.On("Cooldown").Return(testCooldown)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed id",
			id:         "not-an-id",
			setup:      func(*mocks.MockRoleApplicationService) {},
			wantStatus: http.StatusNotFound,
			wantCode:   apperror.CodeNotFound,
		},
		{
			name: "someone else's application",
			id:   app.ID.Hex(),
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Get", mock.Anything, actorOf(claims), app.ID).Return(nil, service.ErrApplicationNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   apperror.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := new(mocks.MockRoleApplicationService)
			tt.setup(apps)

			w := perform(applicationRouter(apps, claims), httptest.NewRequest(http.MethodGet, "/api/role-applications/"+tt.id, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			apps.AssertExpectations(t)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeEnvelope(t, w).Error)
				return
			}
			assert.Equal(t, app.ID.Hex(), decodeData[dto.RoleApplicationResponse](t, w).ID)
		})
	}
}

func TestRoleApplicationHandler_Review(t *testing.T) {
	admin := testClaims(rbac.RoleAdmin)
	app := pendingApplication(primitive.NewObjectID())
	approve := dto.ReviewApplicationRequest{Status: string(model.StatusApproved), AdminNotes: "welcome"}

	tests := []struct {
		name       string
		body       any
		setup      func(*mocks.MockRoleApplicationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "approves",
			body: approve,
			setup: func(m *mocks.MockRoleApplicationService) {
				approved := *app
				approved.Status = model.StatusApproved
				m.On("Review", mock.Anything, actorOf(admin), app.ID, approve).Return(&approved, nil)
				m.On("Cooldown").Return(testCooldown)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "withdrawn is not a review outcome",
			body:       map[string]string{"status": "withdrawn"},
			setup:      func(*mocks.MockRoleApplicationService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperror.CodeValidationFailed,
		},
		{
			name: "already reviewed",
			body: approve,
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Review", mock.Anything, actorOf(admin), app.ID, approve).Return(nil, service.ErrApplicationNotPending)
			},
			wantStatus: http.StatusConflict,
			wantCode:   apperror.CodeConflict,
		},
		{
			name: "grant failed",
			body: approve,
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Review", mock.Anything, actorOf(admin), app.ID, approve).Return(nil, errors.New("write conflict"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperror.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := new(mocks.MockRoleApplicationService)
			tt.setup(apps)

			path := "/api/role-applications/" + app.ID.Hex() + "/status"
			w := perform(applicationRouter(apps, admin), newJSONRequest(t, http.MethodPatch, path, tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			apps.AssertExpectations(t)

			env := decodeEnvelope(t, w)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, env.Error)
				return
			}
			assert.NotEmpty(t, env.Message)
			assert.Equal(t, model.StatusApproved, decodeData[dto.RoleApplicationResponse](t, w).Status)
		})
	}
}

func TestRoleApplicationHandler_Withdraw(t *testing.T) {
	claims := testClaims(rbac.RoleUser)
	app := pendingApplication(claims.UserID)

	tests := []struct {
		name       string
		setup      func(*mocks.MockRoleApplicationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "applicant withdraws",
			setup: func(m *mocks.MockRoleApplicationService) {
				withdrawn := *app
				withdrawn.Status = model.StatusWithdrawn
				m.On("Withdraw", mock.Anything, actorOf(claims), app.ID).Return(&withdrawn, nil)
				m.On("Cooldown").Return(testCooldown)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "not the applicant",
			setup: func(m *mocks.MockRoleApplicationService) {
				m.On("Withdraw", mock.Anything, actorOf(claims), app.ID).Return(nil, service.ErrNotApplicant)
			},
			wantStatus: http.StatusForbidden,
			wantCode:   apperror.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := new(mocks.MockRoleApplicationService)
			tt.setup(apps)

			path := "/api/role-applications/" + app.ID.Hex() + "/withdraw"
			w := perform(applicationRouter(apps, claims), httptest.NewRequest(http.MethodPost, path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			apps.AssertExpectations(t)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeEnvelope(t, w).Error)
				return
			}
			assert.Equal(t, model.StatusWithdrawn, decodeData[dto.RoleApplicationResponse](t, w).Status)
		})
	}
}
