package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/middleware"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/service"
)

// RoleApplicationHandler provides HTTP handlers for the role application workflow.
type RoleApplicationHandler struct {
	apps service.RoleApplicationService
}

// NewRoleApplicationHandler creates a new role application handler.
func NewRoleApplicationHandler(apps service.RoleApplicationService) *RoleApplicationHandler {
	return &RoleApplicationHandler{apps: apps}
}

// Submit handles POST /api/role-applications requests.
//
// @Summary      Apply for a role
// @Description  Submits an application for a role reachable from the caller's current role. The fields object must match the requested role.
// @Tags         Role Applications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "Replays the first response for repeated submissions"
// @Param        request body dto.SubmitApplicationRequest true "Application"
// @Success      201 {object} dto.SuccessResponse{data=dto.RoleApplicationResponse} "Application submitted"
// @Failure      400 {object} dto.ErrorResponse "Validation failed"
// @Failure      401 {object} dto.ErrorResponse "Unauthorized"
// @Failure      409 {object} dto.ErrorResponse "Concurrent submission"
// @Router       /api/role-applications [post]
func (h *RoleApplicationHandler) Submit(c *gin.Context) {
	builder := NewResponseBuilder(c)

	actor, ok := actorFrom(c)
	if !ok {
		builder.Error(http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
		return
	}
	req, err := BuildRequestAndValidate[dto.SubmitApplicationRequest](c)
	if err != nil {
		builder.Fail(err)
		return
	}

	app, err := h.apps.Submit(c.Request.Context(), actor, *req)
	if err != nil {
		builder.Fail(err)
		return
	}
	builder.Success(http.StatusCreated, dto.NewRoleApplicationResponse(app, h.apps.Cooldown()), i18n.SuccessKeyApplicationSubmitted)
}

// ListMine handles GET /api/role-applications/my-applications requests.
//
// @Summary      My applications
// @Description  Lists the caller's applications, newest first
// @Tags         Role Applications
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.SuccessResponse{data=[]dto.RoleApplicationResponse} "Applications"
// @Failure      401 {object} dto.ErrorResponse "Unauthorized"
// @Router       /api/role-applications/my-applications [get]
func (h *RoleApplicationHandler) ListMine(c *gin.Context) {
	builder := NewResponseBuilder(c)

	actor, ok := actorFrom(c)
	if !ok {
		builder.Error(http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
		return
	}

	apps, err := h.apps.ListMine(c.Request.Context(), actor)
	if err != nil {
		builder.Fail(err)
		return
	}
	builder.SuccessOK(dto.NewRoleApplicationResponses(apps, h.apps.Cooldown()))
}

// List handles GET /api/role-applications requests.
//
// @Summary      List applications
// @Description  Lists applications for review. Requires role:read.
// @Tags         Role Applications
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "pending, approved, rejected or withdrawn"
// @Param        role   query string false "Requested role"
// @Param        page   query int    false "Page number" default(1)
// @Param        limit  query int    false "Page size" default(20)
// @Success      200 {object} dto.SuccessResponse{data=dto.PageResponse[dto.RoleApplicationResponse]} "Page of applications"
// @Failure      400 {object} dto.ErrorResponse "Invalid filter"
// @Failure      403 {object} dto.ErrorResponse "Forbidden"
// @Router       /api/role-applications [get]
func (h *RoleApplicationHandler) List(c *gin.Context) {
	builder := NewResponseBuilder(c)

	filter, err := parseApplicationFilter(c)
	if err != nil {
		builder.Fail(err)
		return
	}

	apps, total, err := h.apps.List(c.Request.Context(), filter)
	if err != nil {
		builder.Fail(err)
		return
	}
	filter.Normalize()
	builder.SuccessOK(dto.PageResponse[dto.RoleApplicationResponse]{
		Items: dto.NewRoleApplicationResponses(apps, h.apps.Cooldown()),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

// Get handles GET /api/role-applications/:id requests.
//
// @Summary      Get application
// @Description  Returns an application to its applicant or to a reviewer
// @Tags         Role Applications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Application ID"
// @Success      200 {object} dto.SuccessResponse{data=dto.RoleApplicationResponse} "Application"
// @Failure      403 {object} dto.ErrorResponse "Forbidden"
// @Failure      404 {object} dto.ErrorResponse "Not found"
// @Router       /api/role-applications/{id} [get]
func (h *RoleApplicationHandler) Get(c *gin.Context) {
	builder := NewResponseBuilder(c)

	actor, id, err := actorAndID(c)
	if err != nil {
		builder.Fail(err)
		return
	}

	app, err := h.apps.Get(c.Request.Context(), actor, id)
	if err != nil {
		builder.Fail(err)
		return
	}
	builder.SuccessOK(dto.NewRoleApplicationResponse(app, h.apps.Cooldown()))
}

// Review handles PATCH /api/role-applications/:id/status requests.
//
// @Summary      Review application
// @Description  Approves or rejects a pending application. Approval grants the requested role. Requires role:update.
// @Tags         Role Applications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Application ID"
// @Param        request body dto.ReviewApplicationRequest true "Decision"
// @Success      200 {object} dto.SuccessResponse{data=dto.RoleApplicationResponse} "Application reviewed"
// @Failure      400 {object} dto.ErrorResponse "Validation failed"
// @Failure      403 {object} dto.ErrorResponse "Forbidden"
// @Failure      404 {object} dto.ErrorResponse "Not found"
// @Failure      409 {object} dto.ErrorResponse "No longer pending"
// @Router       /api/role-applications/{id}/status [patch]
func (h *RoleApplicationHandler) Review(c *gin.Context) {
	builder := NewResponseBuilder(c)

	actor, id, err := actorAndID(c)
	if err != nil {
		builder.Fail(err)
		return
	}
	req, err := BuildRequestAndValidate[dto.ReviewApplicationRequest](c)
	if err != nil {
		builder.Fail(err)
		return
	}

	app, err := h.apps.Review(c.Request.Context(), actor, id, *req)
	if err != nil {
		builder.Fail(err)
		return
	}
	builder.Success(http.StatusOK, dto.NewRoleApplicationResponse(app, h.apps.Cooldown()), i18n.SuccessKeyApplicationReviewed)
}

// Withdraw handles POST /api/role-applications/:id/withdraw requests.
//
// @Summary      Withdraw application
// @Description  Withdraws the caller's pending application
// @Tags         Role Applications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Application ID"
// @Success      200 {object} dto.SuccessResponse{data=dto.RoleApplicationResponse} "Application withdrawn"
// @Failure      403 {object} dto.ErrorResponse "Not the applicant"
// @Failure      404 {object} dto.ErrorResponse "Not found"
// @Failure      409 {object} dto.ErrorResponse "No longer pending"
// @Router       /api/role-applications/{id}/withdraw [post]
func (h *RoleApplicationHandler) Withdraw(c *gin.Context) {
	builder := NewResponseBuilder(c)

	actor, id, err := actorAndID(c)
	if err != nil {
		builder.Fail(err)
		return
	}

	app, err := h.apps.Withdraw(c.Request.Context(), actor, id)
	if err != nil {
		builder.Fail(err)
		return
	}
	builder.Success(http.StatusOK, dto.NewRoleApplicationResponse(app, h.apps.Cooldown()), i18n.SuccessKeyApplicationWithdrawn)
}

// actorFrom builds the acting user from the verified claims and the resolved role.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: middleware.GetRole(c)}, true
}

func actorAndID(c *gin.Context) (service.Actor, primitive.ObjectID, error) {
	actor, ok := actorFrom(c)
	if !ok {
		return service.Actor{}, primitive.NilObjectID, service.ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return service.Actor{}, primitive.NilObjectID, service.ErrApplicationNotFound
	}
	return actor, id, nil
}

func parseApplicationFilter(c *gin.Context) (model.ApplicationFilter, error) {
	var filter model.ApplicationFilter
	verr := &apperror.ValidationError{}

	if s := c.Query("status"); s != "" {
		status, ok := model.ParseApplicationStatus(s)
		if !ok {
			verr.Add("status", "must be pending, approved, rejected or withdrawn")
		}
		filter.Status = status
	}
	if s := c.Query("role"); s != "" {
		role, ok := rbac.ParseRole(s)
		if !ok {
			verr.Add("role", "must be a known role")
		}
		filter.Role = role
	}
	if s := c.Query("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			verr.Add("page", "must be a positive integer")
		}
		filter.Page = page
	}
	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			verr.Add("limit", "must be a positive integer")
		}
		filter.Limit = limit
	}

	if verr.HasErrors() {
		return filter, verr
	}
	return filter, nil
}
