package http

import (
	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/middleware"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/service"
)

// RoleApplicationRoutes handles role application route registration.
type RoleApplicationRoutes struct {
	handler     *RoleApplicationHandler
	permissions service.PermissionService
}

// NewRoleApplicationRoutes creates a new RoleApplicationRoutes instance.
func NewRoleApplicationRoutes(apps service.RoleApplicationService, permissions service.PermissionService) *RoleApplicationRoutes {
	return &RoleApplicationRoutes{
		handler:     NewRoleApplicationHandler(apps),
		permissions: permissions,
	}
}

// RegisterProtectedRoutes registers the workflow endpoints. Listing and reviewing require
// role permissions; ownership checks for the other endpoints live in the service.
func (r *RoleApplicationRoutes) RegisterProtectedRoutes(rg *gin.RouterGroup, cfg *RouterConfig) {
	apps := rg.Group("/role-applications")
	if cfg.IdempotencyCache != nil {
		apps.Use(middleware.Idempotency(cfg.IdempotencyCache))
	}

	apps.POST("", r.handler.Submit)
	apps.GET("/my-applications", r.handler.ListMine)
	apps.GET("", middleware.RequirePermission(r.permissions, rbac.ResourceRole, rbac.ActionRead), r.handler.List)
	apps.GET("/:id", r.handler.Get)
	apps.PATCH("/:id/status", middleware.RequirePermission(r.permissions, rbac.ResourceRole, rbac.ActionUpdate), r.handler.Review)
	apps.POST("/:id/withdraw", r.handler.Withdraw)
}

// RoleRoutes handles role hierarchy route registration.
type RoleRoutes struct {
	handler *RolesHandler
}

// NewRoleRoutes creates a new RoleRoutes instance.
func NewRoleRoutes(permissions service.PermissionService) *RoleRoutes {
	return &RoleRoutes{handler: NewRolesHandler(permissions)}
}

// RegisterProtectedRoutes registers the role endpoints.
func (r *RoleRoutes) RegisterProtectedRoutes(rg *gin.RouterGroup, _ *RouterConfig) {
	rg.GET("/roles/transitions", r.handler.Transitions)
}
