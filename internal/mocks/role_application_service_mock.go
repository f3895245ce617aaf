// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/service"
)

type MockRoleApplicationService struct {
	mock.Mock
}

func (m *MockRoleApplicationService) Submit(ctx context.Context, actor service.Actor, req dto.SubmitApplicationRequest) (*model.RoleApplication, error) {
	args := m.Called(ctx, actor, req)
	return application(args)
}

func (m *MockRoleApplicationService) ListMine(ctx context.Context, actor service.Actor) ([]*model.RoleApplication, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RoleApplication), args.Error(1)
}

func (m *MockRoleApplicationService) List(ctx context.Context, filter model.ApplicationFilter) ([]*model.RoleApplication, int64, error) {
	args := m.Called(ctx, filter)
	var apps []*model.RoleApplication
	if v := args.Get(0); v != nil {
		apps = v.([]*model.RoleApplication)
	}
	return apps, args.Get(1).(int64), args.Error(2)
}

func (m *MockRoleApplicationService) Get(ctx context.Context, actor service.Actor, id primitive.ObjectID) (*model.RoleApplication, error) {
	args := m.Called(ctx, actor, id)
	return application(args)
}

func (m *MockRoleApplicationService) Review(ctx context.Context, actor service.Actor, id primitive.ObjectID, req dto.ReviewApplicationRequest) (*model.RoleApplication, error) {
	args := m.Called(ctx, actor, id, req)
	return application(args)
}

func (m *MockRoleApplicationService) Withdraw(ctx context.Context, actor service.Actor, id primitive.ObjectID) (*model.RoleApplication, error) {
	args := m.Called(ctx, actor, id)
	return application(args)
}

func (m *MockRoleApplicationService) Cooldown() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func application(args mock.Arguments) (*model.RoleApplication, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RoleApplication), args.Error(1)
}
