package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/rbac"
)

// Authorizer checks a permission against a user's current role.
// service.PermissionService satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, userID primitive.ObjectID, resource rbac.Resource, action rbac.Action) (rbac.Role, error)
}

// RoleResolver returns a user's current role. service.RoleResolver satisfies it.
type RoleResolver interface {
	Resolve(ctx context.Context, userID primitive.ObjectID) (rbac.Role, error)
}

// RequirePermission returns a middleware that lets the request through only when the
// caller's current role grants action on resource. The role comes from storage, not from
// the token, so a role granted after login applies immediately.
// It must be used after JWTAuth.
func RequirePermission(authz Authorizer, resource rbac.Resource, action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			AbortWithCode(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
			return
		}

		role, err := authz.Authorize(c.Request.Context(), userID, resource, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(string(RoleKey), role)
		c.Next()
	}
}

// ResolveRole returns a middleware that stores the caller's current role for handlers.
// It must be used after JWTAuth.
func ResolveRole(roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			AbortWithCode(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyUnauthorized)
			return
		}

		role, err := roles.Resolve(c.Request.Context(), userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(string(RoleKey), role)
		c.Next()
	}
}
