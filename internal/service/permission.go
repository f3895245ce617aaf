package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/rbac"
)

// PermissionService answers authorization questions for authenticated users.
type PermissionService interface {
	// Authorize returns the user's current role if it grants action on resource, else an
	// error wrapping apperror.ErrAuthorization.
	Authorize(ctx context.Context, userID primitive.ObjectID, resource rbac.Resource, action rbac.Action) (rbac.Role, error)
	// Permissions returns the user's current role and its resolved permissions.
	Permissions(ctx context.Context, userID primitive.ObjectID) (rbac.Role, []rbac.Permission, error)
	// Transitions returns the user's current role and the roles they may apply for.
	Transitions(ctx context.Context, userID primitive.ObjectID) (rbac.Role, []rbac.Role, error)
}

// PermissionServiceImpl implements PermissionService over the role hierarchy.
type PermissionServiceImpl struct {
	hierarchy *rbac.Hierarchy
	roles     RoleResolver
}

// NewPermissionService creates a new permission service.
func NewPermissionService(hierarchy *rbac.Hierarchy, roles RoleResolver) *PermissionServiceImpl {
	return &PermissionServiceImpl{
		hierarchy: hierarchy,
		roles:     roles,
	}
}

// Authorize checks a permission against the user's current role.
func (s *PermissionServiceImpl) Authorize(ctx context.Context, userID primitive.ObjectID, resource rbac.Resource, action rbac.Action) (rbac.Role, error) {
	role, err := s.roles.Resolve(ctx, userID)
	if err != nil {
		return "", err
	}

	allowed := s.hierarchy.RoleHasPermission(role, resource, action)
	metrics.RecordAuthorization(string(resource), string(action), allowed)
	if !allowed {
		return role, fmt.Errorf("%w: %s:%s", apperror.ErrAuthorization, resource, action)
	}
	return role, nil
}

// Permissions returns the resolved permission set of the user's current role.
func (s *PermissionServiceImpl) Permissions(ctx context.Context, userID primitive.ObjectID) (rbac.Role, []rbac.Permission, error) {
	role, err := s.roles.Resolve(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	return role, s.hierarchy.AllRolePermissions(role), nil
}

// Transitions returns the roles reachable from the user's current role.
func (s *PermissionServiceImpl) Transitions(ctx context.Context, userID primitive.ObjectID) (rbac.Role, []rbac.Role, error) {
	role, err := s.roles.Resolve(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	return role, s.hierarchy.PossibleTransitions(role), nil
}
