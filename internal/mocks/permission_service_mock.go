// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/rbac"
)

type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) Authorize(ctx context.Context, userID primitive.ObjectID, resource rbac.Resource, action rbac.Action) (rbac.Role, error) {
	args := m.Called(ctx, userID, resource, action)
	return args.Get(0).(rbac.Role), args.Error(1)
}

func (m *MockPermissionService) Permissions(ctx context.Context, userID primitive.ObjectID) (rbac.Role, []rbac.Permission, error) {
	args := m.Called(ctx, userID)
	var perms []rbac.Permission
	if v := args.Get(1); v != nil {
		perms = v.([]rbac.Permission)
	}
	return args.Get(0).(rbac.Role), perms, args.Error(2)
}

func (m *MockPermissionService) Transitions(ctx context.Context, userID primitive.ObjectID) (rbac.Role, []rbac.Role, error) {
	args := m.Called(ctx, userID)
	var roles []rbac.Role
	if v := args.Get(1); v != nil {
		roles = v.([]rbac.Role)
	}
	return args.Get(0).(rbac.Role), roles, args.Error(2)
}

type MockRoleResolver struct {
	mock.Mock
}

func (m *MockRoleResolver) Resolve(ctx context.Context, userID primitive.ObjectID) (rbac.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(rbac.Role), args.Error(1)
}

func (m *MockRoleResolver) Invalidate(userID primitive.ObjectID) {
	m.Called(userID)
}
