package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/mocks"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
	"github.com/guttosm/campus-access/internal/service"
)

type authFixture struct {
	svc    *service.AuthServiceImpl
	tokens *service.TokenServiceImpl
	users  *mocks.MockUserRepositoryInterface
	denied *mocks.MockTokenRepositoryInterface
	clock  *testClock
}

func newAuthFixture() *authFixture {
	clock := newTestClock()
	users := new(mocks.MockUserRepositoryInterface)
	denied := new(mocks.MockTokenRepositoryInterface)
	tokens := newTestTokenService(denied, clock)
	svc := service.NewAuthServiceWithTokenService(users, tokens, testAuthConfig())
	svc.SetClock(clock.Now)
	return &authFixture{svc: svc, tokens: tokens, users: users, denied: denied, clock: clock}
}

func userWithPassword(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := testUser()
	u.Role = rbac.RoleUser
	u.Password = string(hash)
	return u
}

func refreshRecord(hash string, createdAt time.Time, ttl time.Duration) model.RefreshToken {
	return model.RefreshToken{TokenHash: hash, CreatedAt: createdAt, LastUsed: createdAt, ExpiresAt: createdAt.Add(ttl)}
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		setupMocks    func(*testing.T, *mocks.MockUserRepositoryInterface)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "ada@example.com",
			password: "password123",
			setupMocks: func(t *testing.T, m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "ada@example.com").Return(userWithPassword(t, "password123"), nil)
				m.On("Save", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:     "user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMocks: func(_ *testing.T, m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, nil)
			},
			expectedError: service.ErrInvalidCredentials,
		},
		{
			name:     "user inactive",
			email:    "ada@example.com",
			password: "password123",
			setupMocks: func(t *testing.T, m *mocks.MockUserRepositoryInterface) {
				u := userWithPassword(t, "password123")
				u.Active = false
				m.On("FindByEmail", mock.Anything, "ada@example.com").Return(u, nil)
			},
			expectedError: service.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "ada@example.com",
			password: "wrongpassword",
			setupMocks: func(t *testing.T, m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "ada@example.com").Return(userWithPassword(t, "password123"), nil)
			},
			expectedError: service.ErrInvalidCredentials,
		},
		{
			name:     "repository failure",
			email:    "ada@example.com",
			password: "password123",
			setupMocks: func(_ *testing.T, m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, "ada@example.com").Return(nil, errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			tt.setupMocks(t, f.users)

			pair, user, err := f.svc.Login(context.Background(), tt.email, tt.password, "test-agent")

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.ErrorIs(t, err, apperror.ErrAuthentication)
				assert.Nil(t, pair)
			case tt.name == "repository failure":
				assert.Error(t, err)
				assert.NotErrorIs(t, err, apperror.ErrAuthentication)
			default:
				require.NoError(t, err)
				require.NotNil(t, pair)
				require.Len(t, user.RefreshTokens, 1)
				rec := user.RefreshTokens[0]
				assert.Equal(t, service.HashToken(pair.RefreshToken), rec.TokenHash)
				assert.NotEqual(t, pair.RefreshToken, rec.TokenHash)
				assert.Equal(t, "test-agent", rec.UserAgent)
				assert.True(t, rec.ExpiresAt.Equal(f.clock.Now().Add(7*24*time.Hour)))
			}
			f.users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_EvictsOldestAtCapacity(t *testing.T) {
	f := newAuthFixture()
	user := userWithPassword(t, "password123")
	start := f.clock.Now().Add(-time.Hour)
	for i := range model.MaxRefreshTokens {
		user.RefreshTokens = append(user.RefreshTokens,
			refreshRecord(fmt.Sprintf("hash-%d", i), start.Add(time.Duration(i)*time.Minute), 24*time.Hour))
	}
	f.users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(nil)

	pair, got, err := f.svc.Login(context.Background(), user.Email, "password123", "")
	require.NoError(t, err)

	require.Len(t, got.RefreshTokens, model.MaxRefreshTokens)
	assert.Equal(t, "hash-1", got.RefreshTokens[0].TokenHash)
	assert.Equal(t, service.HashToken(pair.RefreshToken), got.RefreshTokens[model.MaxRefreshTokens-1].TokenHash)
}

func TestAuthService_Login_RetriesOnVersionConflict(t *testing.T) {
	f := newAuthFixture()
	stale := userWithPassword(t, "password123")
	fresh := *stale
	fresh.Version = stale.Version + 1
	fresh.RefreshTokens = []model.RefreshToken{refreshRecord("from-other-device", f.clock.Now(), time.Hour)}

	f.users.On("FindByEmail", mock.Anything, stale.Email).Return(stale, nil)
	f.users.On("Save", mock.Anything, stale).Return(repository.ErrVersionConflict).Once()
	f.users.On("FindByID", mock.Anything, stale.ID).Return(&fresh, nil).Once()
	f.users.On("Save", mock.Anything, &fresh).Return(nil).Once()

	pair, got, err := f.svc.Login(context.Background(), stale.Email, "password123", "")
	require.NoError(t, err)
	require.Same(t, &fresh, got)
	require.Len(t, got.RefreshTokens, 2)
	assert.Equal(t, "from-other-device", got.RefreshTokens[0].TokenHash)
	assert.Equal(t, service.HashToken(pair.RefreshToken), got.RefreshTokens[1].TokenHash)
	f.users.AssertExpectations(t)
}

func TestAuthService_Login_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newAuthFixture()
	user := userWithPassword(t, "password123")
	f.users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(repository.ErrVersionConflict)

	_, _, err := f.svc.Login(context.Background(), user.Email, "password123", "")
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	f.users.AssertNumberOfCalls(t, "Save", 3)
}

// issue signs a pair for user and stores its refresh record, as a prior login would.
func (f *authFixture) issue(t *testing.T, user *model.User) *dto.TokenPair {
	t.Helper()
	pair, err := f.tokens.GenerateTokenPair(user)
	require.NoError(t, err)
	user.AddRefreshToken(model.RefreshToken{
		TokenHash: service.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: f.clock.Now(),
	}, model.MaxRefreshTokens)
	return pair
}

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	f := newAuthFixture()
	user := testUser()
	old := f.issue(t, user)

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(nil)

	f.clock.Advance(time.Minute)
	pair, got, err := f.svc.RefreshToken(context.Background(), old.RefreshToken, "agent")
	require.NoError(t, err)
	assert.NotEqual(t, old.RefreshToken, pair.RefreshToken)

	require.Len(t, got.RefreshTokens, 1)
	assert.Equal(t, service.HashToken(pair.RefreshToken), got.RefreshTokens[0].TokenHash)
	assert.True(t, got.RefreshTokens[0].LastUsed.Equal(f.clock.Now()))

	// the rotated token is gone
	_, _, err = f.svc.RefreshToken(context.Background(), old.RefreshToken, "agent")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_RefreshToken_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *authFixture) string
	}{
		{
			name: "access token",
			setup: func(t *testing.T, f *authFixture) string {
				return f.issue(t, testUser()).AccessToken
			},
		},
		{
			name: "unknown record",
			setup: func(t *testing.T, f *authFixture) string {
				user := testUser()
				pair, err := f.tokens.GenerateTokenPair(user)
				require.NoError(t, err)
				f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
				return pair.RefreshToken
			},
		},
		{
			name: "expired record",
			setup: func(t *testing.T, f *authFixture) string {
				user := testUser()
				pair, err := f.tokens.GenerateTokenPair(user)
				require.NoError(t, err)
				user.RefreshTokens = []model.RefreshToken{
					refreshRecord(service.HashToken(pair.RefreshToken), f.clock.Now().Add(-2*time.Hour), time.Hour),
				}
				f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
				return pair.RefreshToken
			},
		},
		{
			name: "expired token",
			setup: func(t *testing.T, f *authFixture) string {
				pair := f.issue(t, testUser())
				f.clock.Advance(8 * 24 * time.Hour)
				return pair.RefreshToken
			},
		},
		{
			name: "deleted user",
			setup: func(t *testing.T, f *authFixture) string {
				user := testUser()
				pair := f.issue(t, user)
				f.users.On("FindByID", mock.Anything, user.ID).Return(nil, nil)
				return pair.RefreshToken
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			token := tt.setup(t, f)

			pair, _, err := f.svc.RefreshToken(context.Background(), token, "")
			assert.Nil(t, pair)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
			assert.Equal(t, apperror.CodeInvalidToken, apperror.Code(err))
			f.users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	tests := []struct {
		name         string
		presentIndex int // -1 presents no refresh token
		wantLeft     int
	}{
		{name: "removes the presented refresh token", presentIndex: 1, wantLeft: 2},
		{name: "removes every refresh token", presentIndex: -1, wantLeft: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			user := testUser()
			pairs := []*dto.TokenPair{f.issue(t, user), f.issue(t, user), f.issue(t, user)}

			f.denied.On("IsBlacklisted", mock.Anything, mock.Anything).Return(false, nil)
			claims, err := f.tokens.ValidateAccessToken(context.Background(), pairs[0].AccessToken)
			require.NoError(t, err)

			f.denied.On("Create", mock.Anything, mock.MatchedBy(func(tok *model.Token) bool {
				return tok.Token == claims.TokenID
			})).Return(nil)
			f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
			f.users.On("Save", mock.Anything, user).Return(nil)

			presented := ""
			if tt.presentIndex >= 0 {
				presented = pairs[tt.presentIndex].RefreshToken
			}
			require.NoError(t, f.svc.Logout(context.Background(), claims, presented))

			assert.Len(t, user.RefreshTokens, tt.wantLeft)
			if presented != "" {
				_, found := user.FindRefreshToken(service.HashToken(presented), f.clock.Now())
				assert.False(t, found)
			}
			f.denied.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout_JoinsErrors(t *testing.T) {
	f := newAuthFixture()
	user := testUser()
	f.issue(t, user)
	claims := &dto.Claims{UserID: user.ID, TokenID: "jti-1", ExpiresAt: f.clock.Now().Add(time.Minute)}

	f.denied.On("Create", mock.Anything, mock.Anything).Return(errors.New("deny list down"))
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("Save", mock.Anything, user).Return(nil)

	err := f.svc.Logout(context.Background(), claims, "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "deny list down")
	assert.Empty(t, user.RefreshTokens, "refresh tokens are removed even when revocation fails")

	assert.ErrorIs(t, f.svc.Logout(context.Background(), nil, ""), service.ErrInvalidToken)
}

func TestAuthService_Register(t *testing.T) {
	req := dto.RegisterRequest{Email: "new@example.com", Username: "newbie", Password: "password123", Name: "New"}

	tests := []struct {
		name          string
		setupMocks    func(*mocks.MockUserRepositoryInterface)
		expectedError error
	}{
		{
			name: "successful registration",
			setupMocks: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, req.Email).Return(nil, nil)
				m.On("FindByUsername", mock.Anything, req.Username).Return(nil, nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Role == rbac.RoleUser && u.Active && len(u.RefreshTokens) == 1 && u.Password != req.Password
				})).Return(nil)
			},
		},
		{
			name: "email taken",
			setupMocks: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, req.Email).Return(&model.User{ID: primitive.NewObjectID()}, nil)
			},
			expectedError: service.ErrUserExists,
		},
		{
			name: "username taken",
			setupMocks: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, req.Email).Return(nil, nil)
				m.On("FindByUsername", mock.Anything, req.Username).Return(&model.User{ID: primitive.NewObjectID()}, nil)
			},
			expectedError: service.ErrUserExists,
		},
		{
			name: "concurrent registration",
			setupMocks: func(m *mocks.MockUserRepositoryInterface) {
				m.On("FindByEmail", mock.Anything, req.Email).Return(nil, nil)
				m.On("FindByUsername", mock.Anything, req.Username).Return(nil, nil)
				m.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
			},
			expectedError: service.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			tt.setupMocks(f.users)

			pair, user, err := f.svc.Register(context.Background(), req, "agent")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Equal(t, 409, apperror.StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, pair.AccessToken)
			assert.Equal(t, service.HashToken(pair.RefreshToken), user.RefreshTokens[0].TokenHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)))
			f.users.AssertExpectations(t)
		})
	}
}

func TestAuthService_GetUser(t *testing.T) {
	f := newAuthFixture()
	user := testUser()
	missing := primitive.NewObjectID()
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("FindByID", mock.Anything, missing).Return(nil, nil)

	got, err := f.svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = f.svc.GetUser(context.Background(), missing)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
