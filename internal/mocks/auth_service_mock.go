// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req dto.RegisterRequest, userAgent string) (*dto.TokenPair, *model.User, error) {
	args := m.Called(ctx, req, userAgent)
	return tokenPairAndUser(args)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, userAgent string) (*dto.TokenPair, *model.User, error) {
	args := m.Called(ctx, email, password, userAgent)
	return tokenPairAndUser(args)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken, userAgent string) (*dto.TokenPair, *model.User, error) {
	args := m.Called(ctx, refreshToken, userAgent)
	return tokenPairAndUser(args)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, tokenString string) (*dto.Claims, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.Claims), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *dto.Claims, refreshToken string) error {
	args := m.Called(ctx, claims, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func tokenPairAndUser(args mock.Arguments) (*dto.TokenPair, *model.User, error) {
	var pair *dto.TokenPair
	if v := args.Get(0); v != nil {
		pair = v.(*dto.TokenPair)
	}
	var user *model.User
	if v := args.Get(1); v != nil {
		user = v.(*model.User)
	}
	return pair, user, args.Error(2)
}
