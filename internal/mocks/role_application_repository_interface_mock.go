// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
)

type MockRoleApplicationRepositoryInterface struct {
	mock.Mock
}

func (m *MockRoleApplicationRepositoryInterface) Create(ctx context.Context, app *model.RoleApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockRoleApplicationRepositoryInterface) FindByID(ctx context.Context, id primitive.ObjectID) (*model.RoleApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RoleApplication), args.Error(1)
}

func (m *MockRoleApplicationRepositoryInterface) FindByApplicant(ctx context.Context, applicantID primitive.ObjectID) ([]*model.RoleApplication, error) {
	args := m.Called(ctx, applicantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RoleApplication), args.Error(1)
}

func (m *MockRoleApplicationRepositoryInterface) FindByApplicantAndRole(ctx context.Context, applicantID primitive.ObjectID, role rbac.Role) ([]*model.RoleApplication, error) {
	args := m.Called(ctx, applicantID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RoleApplication), args.Error(1)
}

func (m *MockRoleApplicationRepositoryInterface) List(ctx context.Context, filter model.ApplicationFilter) ([]*model.RoleApplication, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.RoleApplication), args.Get(1).(int64), args.Error(2)
}

func (m *MockRoleApplicationRepositoryInterface) Transition(ctx context.Context, id primitive.ObjectID, from, to model.ApplicationStatus, upd repository.TransitionUpdate) (*model.RoleApplication, error) {
	args := m.Called(ctx, id, from, to, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RoleApplication), args.Error(1)
}

func (m *MockRoleApplicationRepositoryInterface) RevertToPending(ctx context.Context, id primitive.ObjectID, from model.ApplicationStatus) error {
	args := m.Called(ctx, id, from)
	return args.Error(0)
}
