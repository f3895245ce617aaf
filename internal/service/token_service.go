package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

// Token types carried in the typ claim.
const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenService provides token-related operations.
type TokenService interface {
	// GenerateTokenPair signs a new access and refresh token for a user.
	GenerateTokenPair(user *model.User) (*dto.TokenPair, error)
	// ValidateAccessToken verifies an access token and checks the deny list.
	ValidateAccessToken(ctx context.Context, tokenString string) (*dto.Claims, error)
	// ValidateRefreshToken verifies a refresh token signature, type and expiry.
	ValidateRefreshToken(tokenString string) (*dto.Claims, error)
	// RevokeAccessToken deny-lists an access token until it expires.
	RevokeAccessToken(ctx context.Context, claims *dto.Claims) error
}

// TokenServiceImpl implements TokenService.
type TokenServiceImpl struct {
	secretKey        []byte
	refreshSecretKey []byte
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
	tokenRepo        repository.TokenRepositoryInterface
	now              func() time.Time
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	SecretKey        string
	RefreshSecretKey string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// NewTokenConfigFromAuthConfig creates TokenConfig from config.AuthConfig.
func NewTokenConfigFromAuthConfig(authConfig config.AuthConfig) TokenConfig {
	return TokenConfig{
		SecretKey:        authConfig.JWTSecretKey,
		RefreshSecretKey: authConfig.JWTRefreshSecret,
		AccessTokenTTL:   authConfig.AccessTokenTTL,
		RefreshTokenTTL:  authConfig.RefreshTokenTTL,
	}
}

// NewTokenService creates a new token service.
func NewTokenService(tokenRepo repository.TokenRepositoryInterface, cfg TokenConfig) *TokenServiceImpl {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenServiceImpl{
		secretKey:        []byte(cfg.SecretKey),
		refreshSecretKey: []byte(cfg.RefreshSecretKey),
		accessTokenTTL:   cfg.AccessTokenTTL,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
		tokenRepo:        tokenRepo,
		now:              now,
	}
}

// jwtClaims is the signed token body. Subject is the user id and ID the jti.
type jwtClaims struct {
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
	Role  rbac.Role `json:"role"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// HashToken returns the hex sha-256 of a refresh token. Only hashes are persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateTokenPair signs a new access and refresh token for a user.
func (s *TokenServiceImpl) GenerateTokenPair(user *model.User) (*dto.TokenPair, error) {
	if user.ID.IsZero() {
		return nil, errors.New("user ID is zero, cannot create token")
	}

	issuedAt := s.now()
	accessToken, err := s.sign(user, TokenTypeAccess, issuedAt, issuedAt.Add(s.accessTokenTTL), s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshExpiresAt := issuedAt.Add(s.refreshTokenTTL)
	refreshToken, err := s.sign(user, TokenTypeRefresh, issuedAt, refreshExpiresAt, s.refreshSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &dto.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(s.accessTokenTTL.Seconds()),
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// ValidateAccessToken verifies an access token and checks the deny list.
func (s *TokenServiceImpl) ValidateAccessToken(ctx context.Context, tokenString string) (*dto.Claims, error) {
	claims, err := s.parse(tokenString, TokenTypeAccess, s.secretKey)
	if err != nil {
		return nil, err
	}

	denied, err := s.tokenRepo.IsBlacklisted(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check deny list: %w", err)
	}
	if denied {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// ValidateRefreshToken verifies a refresh token signature, type and expiry.
func (s *TokenServiceImpl) ValidateRefreshToken(tokenString string) (*dto.Claims, error) {
	return s.parse(tokenString, TokenTypeRefresh, s.refreshSecretKey)
}

// RevokeAccessToken deny-lists an access token until it expires.
func (s *TokenServiceImpl) RevokeAccessToken(ctx context.Context, claims *dto.Claims) error {
	if claims == nil || claims.TokenID == "" {
		return ErrInvalidToken
	}
	expiresAt := claims.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(s.accessTokenTTL)
	}
	return s.tokenRepo.Create(ctx, &model.Token{
		UserID:    claims.UserID,
		Token:     claims.TokenID,
		Type:      model.TokenTypeDenied,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	})
}

func (s *TokenServiceImpl) sign(user *model.User, typ TokenType, issuedAt, expiresAt time.Time, key []byte) (string, error) {
	claims := &jwtClaims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func (s *TokenServiceImpl) parse(tokenString string, typ TokenType, key []byte) (*dto.Claims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrInvalidToken
	case claims.Type != typ:
		return nil, ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &dto.Claims{
		UserID:    userID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
