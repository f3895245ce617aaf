// Package dto defines Data Transfer Objects for HTTP request and response handling.
package dto

import (
	"net/mail"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

// LoginRequest represents the JSON request body for the login endpoint.
//
// @Description Request to authenticate a user
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
} // @name LoginRequest

// RegisterRequest represents the JSON request body for the register endpoint.
//
// @Description Request to register a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Username string `json:"username" binding:"required" example:"johndoe"`
	// Password must have at least 8 characters.
	Password string `json:"password" binding:"required" example:"password123"`
	Name     string `json:"name,omitempty" example:"John Doe"`
} // @name RegisterRequest

// LoginResponse is returned by login and refresh. The refresh token itself travels in
// an HTTP-only cookie.
//
// @Description Successful authentication response
type LoginResponse struct {
	AccessToken string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresIn   int64        `json:"expires_in" example:"900"`
	User        UserResponse `json:"user"`
} // @name LoginResponse

// RefreshTokenRequest carries the refresh token for clients that cannot use cookies.
//
// @Description Optional body for the refresh and logout endpoints
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
} // @name RefreshTokenRequest

// TokenPair is an issued access and refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresIn        int64     `json:"expires_in"` // seconds
	RefreshExpiresAt time.Time `json:"-"`
}

// Claims are the identity fields carried by an access token.
type Claims struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Role      rbac.Role          `json:"role"`
	TokenID   string             `json:"-"`
	ExpiresAt time.Time          `json:"-"`
}

// UserResponse represents user information in API responses.
type UserResponse struct {
	ID       string    `json:"id" example:"65b9f1e2c3a4b5d6e7f80912"`
	Email    string    `json:"email" example:"user@example.com"`
	Username string    `json:"username" example:"johndoe"`
	Name     string    `json:"name,omitempty" example:"John Doe"`
	Role     rbac.Role `json:"role" example:"user"`
} // @name UserResponse

// MeResponse is the current user with the permissions of their role.
type MeResponse struct {
	User        UserResponse      `json:"user"`
	Permissions []rbac.Permission `json:"permissions"`
	Transitions []rbac.Role       `json:"possible_transitions"`
} // @name MeResponse

// TransitionsResponse lists the roles the caller may apply for.
type TransitionsResponse struct {
	CurrentRole rbac.Role   `json:"current_role" example:"user"`
	Transitions []rbac.Role `json:"possible_transitions"`
} // @name TransitionsResponse

// NewUserResponse converts a user into its public representation.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:       u.ID.Hex(),
		Email:    u.Email,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
	}
}

// Validate performs custom validation on the login request.
func (r *LoginRequest) Validate() error {
	verr := &apperror.ValidationError{}
	if r.Email == "" {
		verr.Add("email", "email is required")
	}
	if r.Password == "" {
		verr.Add("password", "password is required")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Validate performs custom validation on the register request.
func (r *RegisterRequest) Validate() error {
	verr := &apperror.ValidationError{}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		verr.Add("email", "must be a valid email address")
	}
	switch n := len(r.Username); {
	case n < 3:
		verr.Add("username", "username must be at least 3 characters")
	case n > 30:
		verr.Add("username", "username must be at most 30 characters")
	}
	if len(r.Password) < 8 {
		verr.Add("password", "password must be at least 8 characters")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
