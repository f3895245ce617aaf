package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/i18n"
	"github.com/guttosm/campus-access/internal/rbac"
)

const bearerPrefix = "Bearer "

// TokenValidator verifies access tokens. service.AuthService satisfies it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*dto.Claims, error)
}

// JWTAuth returns a middleware that requires a valid access token. A missing token is
// answered with the unauthorized code, an expired one with token_expired and any other
// rejected token with invalid_token.
func JWTAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			AbortWithCode(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, i18n.ErrKeyTokenRequired)
			return
		}

		claims, err := tokens.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			// A deny list outage is not an authentication failure and maps to 500.
			AbortWithError(c, err)
			return
		}

		c.Set(string(ClaimsKey), claims)
		c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// GetClaims returns the claims stored by JWTAuth.
func GetClaims(c *gin.Context) (*dto.Claims, bool) {
	v, ok := c.Get(string(ClaimsKey))
	if !ok {
		return nil, false
	}
	claims, ok := v.(*dto.Claims)
	return claims, ok && claims != nil
}

// GetUserID returns the authenticated user's id.
func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	claims, ok := GetClaims(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	return claims.UserID, true
}

// GetRole returns the caller's current role, falling back to the role in the token when
// no middleware resolved it.
func GetRole(c *gin.Context) rbac.Role {
	if v, ok := c.Get(string(RoleKey)); ok {
		if role, ok := v.(rbac.Role); ok {
			return role
		}
	}
	if claims, ok := GetClaims(c); ok {
		return claims.Role
	}
	return ""
}
