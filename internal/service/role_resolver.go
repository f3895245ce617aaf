package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
)

// RoleResolver returns the role a user currently holds. Access tokens carry the role at
// issue time; authorization goes through the resolver so approvals apply immediately.
type RoleResolver interface {
	Resolve(ctx context.Context, userID primitive.ObjectID) (rbac.Role, error)
	Invalidate(userID primitive.ObjectID)
}

// CachedRoleResolver reads roles from the user repository through an expiring LRU cache.
type CachedRoleResolver struct {
	users repository.UserRepositoryInterface
	cache *expirable.LRU[primitive.ObjectID, rbac.Role]
}

// NewCachedRoleResolver creates a resolver holding up to size entries for ttl.
func NewCachedRoleResolver(users repository.UserRepositoryInterface, size int, ttl time.Duration) *CachedRoleResolver {
	if size <= 0 {
		size = 1000
	}
	return &CachedRoleResolver{
		users: users,
		cache: expirable.NewLRU[primitive.ObjectID, rbac.Role](size, nil, ttl),
	}
}

// Resolve returns the stored role of an active user. Unknown or inactive users fail
// authentication.
func (r *CachedRoleResolver) Resolve(ctx context.Context, userID primitive.ObjectID) (rbac.Role, error) {
	if role, ok := r.cache.Get(userID); ok {
		metrics.RecordRoleCache(true)
		return role, nil
	}
	metrics.RecordRoleCache(false)

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve role: %w", err)
	}
	if user == nil || !user.Active {
		return "", ErrInvalidToken
	}
	r.cache.Add(userID, user.Role)
	return user.Role, nil
}

// Invalidate drops the cached role of a user.
func (r *CachedRoleResolver) Invalidate(userID primitive.ObjectID) {
	r.cache.Remove(userID)
}

// Len returns the number of cached entries.
func (r *CachedRoleResolver) Len() int {
	return r.cache.Len()
}
