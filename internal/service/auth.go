// Package service contains the business logic of the access service.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
)

// maxSaveAttempts bounds reload-and-reapply loops on optimistic save conflicts.
const maxSaveAttempts = 3

// AuthService provides authentication operations.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest, userAgent string) (*dto.TokenPair, *model.User, error)
	Login(ctx context.Context, email, password, userAgent string) (*dto.TokenPair, *model.User, error)
	// RefreshToken rotates a refresh token: the presented one stops working and a new
	// pair is issued.
	RefreshToken(ctx context.Context, refreshToken, userAgent string) (*dto.TokenPair, *model.User, error)
	ValidateToken(ctx context.Context, tokenString string) (*dto.Claims, error)
	// Logout revokes the access token and removes the presented refresh token, or every
	// refresh token of the user when none is presented.
	Logout(ctx context.Context, claims *dto.Claims, refreshToken string) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error)
}

// AuthServiceImpl implements AuthService.
// It handles user authentication and delegates token operations to TokenService.
type AuthServiceImpl struct {
	userRepo         repository.UserRepositoryInterface
	tokenService     TokenService
	maxRefreshTokens int
	bcryptCost       int
	now              func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepositoryInterface,
	tokenRepo repository.TokenRepositoryInterface,
	authConfig config.AuthConfig,
) *AuthServiceImpl {
	return NewAuthServiceWithTokenService(userRepo, NewTokenService(tokenRepo, NewTokenConfigFromAuthConfig(authConfig)), authConfig)
}

// NewAuthServiceWithTokenService creates a new authentication service with an existing TokenService.
func NewAuthServiceWithTokenService(
	userRepo repository.UserRepositoryInterface,
	tokenService TokenService,
	authConfig config.AuthConfig,
) *AuthServiceImpl {
	cost := authConfig.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{
		userRepo:         userRepo,
		tokenService:     tokenService,
		maxRefreshTokens: authConfig.MaxRefreshTokens,
		bcryptCost:       cost,
		now:              time.Now,
	}
}

// SetClock overrides the clock used for refresh token bookkeeping.
func (s *AuthServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

// Register creates a user with the default role and signs them in.
func (s *AuthServiceImpl) Register(ctx context.Context, req dto.RegisterRequest, userAgent string) (*dto.TokenPair, *model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrUserExists
	}
	existing, err = s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:       primitive.NewObjectID(),
		Email:    req.Email,
		Username: req.Username,
		Password: string(hashedPassword),
		Name:     req.Name,
		Role:     rbac.DefaultRole,
		Active:   true,
	}

	pair, err := s.tokenService.GenerateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	user.AddRefreshToken(s.newRecord(pair, userAgent), s.maxRefreshTokens)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrUserExists
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	return pair, user, nil
}

// Login authenticates a user and returns JWT tokens. The new refresh token is added to
// the user's list, evicting the oldest one at capacity.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, userAgent string) (*dto.TokenPair, *model.User, error) {
	pair, user, err := s.login(ctx, email, password, userAgent)
	metrics.RecordLogin(err == nil)
	return pair, user, err
}

func (s *AuthServiceImpl) login(ctx context.Context, email, password, userAgent string) (*dto.TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || !user.Active {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	var pair *dto.TokenPair
	user, err = s.saveWithRetry(ctx, user, func(u *model.User) error {
		// Role may have changed on reload; claims follow the stored user.
		p, err := s.tokenService.GenerateTokenPair(u)
		if err != nil {
			return err
		}
		pair = p
		u.AddRefreshToken(s.newRecord(p, userAgent), s.maxRefreshTokens)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// RefreshToken rotates a refresh token.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken, userAgent string) (*dto.TokenPair, *model.User, error) {
	pair, user, err := s.refresh(ctx, refreshToken, userAgent)
	metrics.RecordTokenRefresh(err == nil)
	return pair, user, err
}

func (s *AuthServiceImpl) refresh(ctx context.Context, refreshToken, userAgent string) (*dto.TokenPair, *model.User, error) {
	claims, err := s.tokenService.ValidateRefreshToken(refreshToken)
	if err != nil {
		// An expired refresh token is not recoverable by refreshing again.
		return nil, nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.Active {
		return nil, nil, ErrInvalidToken
	}

	hash := HashToken(refreshToken)
	var pair *dto.TokenPair
	user, err = s.saveWithRetry(ctx, user, func(u *model.User) error {
		if _, ok := u.FindRefreshToken(hash, s.now()); !ok {
			return ErrInvalidToken
		}
		p, err := s.tokenService.GenerateTokenPair(u)
		if err != nil {
			return err
		}
		pair = p
		u.RemoveRefreshToken(hash)
		u.AddRefreshToken(s.newRecord(p, userAgent), s.maxRefreshTokens)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// ValidateToken verifies an access token.
func (s *AuthServiceImpl) ValidateToken(ctx context.Context, tokenString string) (*dto.Claims, error) {
	return s.tokenService.ValidateAccessToken(ctx, tokenString)
}

// Logout revokes the access token and drops refresh tokens.
func (s *AuthServiceImpl) Logout(ctx context.Context, claims *dto.Claims, refreshToken string) error {
	if claims == nil {
		return ErrInvalidToken
	}

	var errs []error
	if err := s.tokenService.RevokeAccessToken(ctx, claims); err != nil {
		log.Warn().Err(err).Msg("failed to revoke access token during logout")
		errs = append(errs, fmt.Errorf("revoke access token: %w", err))
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("load user: %w", err))
	case user != nil:
		_, err = s.saveWithRetry(ctx, user, func(u *model.User) error {
			if refreshToken == "" {
				u.ClearRefreshTokens()
			} else {
				u.RemoveRefreshToken(HashToken(refreshToken))
			}
			return nil
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to remove refresh tokens during logout")
			errs = append(errs, fmt.Errorf("remove refresh tokens: %w", err))
		}
	}

	return errors.Join(errs...)
}

// GetUser returns the user or ErrUserNotFound.
func (s *AuthServiceImpl) GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// saveWithRetry applies mutate and saves. On a version conflict it reloads the user and
// applies mutate again to the fresh copy.
func (s *AuthServiceImpl) saveWithRetry(ctx context.Context, user *model.User, mutate func(*model.User) error) (*model.User, error) {
	var err error
	for attempt := 1; ; attempt++ {
		if err = mutate(user); err != nil {
			return nil, err
		}
		err = s.userRepo.Save(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) || attempt == maxSaveAttempts {
			break
		}

		log.Debug().Str("user_id", user.ID.Hex()).Int("attempt", attempt).Msg("user save conflict, reloading")
		user, err = s.userRepo.FindByID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("reload user: %w", err)
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}
	return nil, fmt.Errorf("save user: %w", err)
}

func (s *AuthServiceImpl) newRecord(pair *dto.TokenPair, userAgent string) model.RefreshToken {
	now := s.now().UTC()
	return model.RefreshToken{
		TokenHash: HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt.UTC(),
		UserAgent: userAgent,
		LastUsed:  now,
		CreatedAt: now,
	}
}
