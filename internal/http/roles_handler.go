package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/middleware"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/service"
)

// RolesHandler exposes the role hierarchy to clients.
type RolesHandler struct {
	permissions service.PermissionService
}

// NewRolesHandler creates a new roles handler.
func NewRolesHandler(permissions service.PermissionService) *RolesHandler {
	return &RolesHandler{permissions: permissions}
}

// Transitions handles GET /api/roles/transitions requests.
//
// @Summary      Possible transitions
// @Description  Lists the roles the caller may apply for from their current role
// @Tags         Roles
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.SuccessResponse{data=dto.TransitionsResponse} "Transitions"
// @Failure      401 {object} dto.ErrorResponse "Unauthorized"
// @Router       /api/roles/transitions [get]
func (h *RolesHandler) Transitions(c *gin.Context) {
	builder := NewResponseBuilder(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		builder.Error(http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
		return
	}

	role, transitions, err := h.permissions.Transitions(c.Request.Context(), userID)
	if err != nil {
		builder.Fail(err)
		return
	}
	if transitions == nil {
		transitions = []rbac.Role{}
	}
	builder.SuccessOK(dto.TransitionsResponse{CurrentRole: role, Transitions: transitions})
}
