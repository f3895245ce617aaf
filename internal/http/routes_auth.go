package http

import (
	"github.com/gin-gonic/gin"

	"github.com/guttosm/campus-access/internal/service"
)

// AuthRoutes handles authentication route registration.
type AuthRoutes struct {
	handler *AuthHandler
}

// NewAuthRoutes creates a new AuthRoutes instance.
func NewAuthRoutes(
	authService service.AuthService,
	permissions service.PermissionService,
	loggingService service.LoggingService,
	secureCookies bool,
) *AuthRoutes {
	return &AuthRoutes{handler: NewAuthHandler(authService, permissions, loggingService, secureCookies)}
}

// RegisterPublicRoutes registers register, login and refresh. Refresh is public because
// it runs when the access token has already expired.
func (r *AuthRoutes) RegisterPublicRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", r.handler.Register)
	auth.POST("/login", r.handler.Login)
	auth.POST("/refresh-token", r.handler.RefreshToken)
}

// RegisterProtectedRoutes registers logout and the current user endpoint.
func (r *AuthRoutes) RegisterProtectedRoutes(rg *gin.RouterGroup, _ *RouterConfig) {
	rg.POST("/auth/logout", r.handler.Logout)
	rg.GET("/auth/me", r.handler.Me)
}
