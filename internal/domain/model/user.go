// Package model defines user-related domain entities.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/rbac"
)

// MaxRefreshTokens bounds the number of outstanding refresh tokens per user.
const MaxRefreshTokens = 5

// User represents an account in the system.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	Username      string             `bson:"username" json:"username"`
	Password      string             `bson:"password" json:"-"` // Never serialize password
	Name          string             `bson:"name" json:"name"`
	Role          rbac.Role          `bson:"role" json:"role"`
	RefreshTokens []RefreshToken     `bson:"refresh_tokens" json:"-"`
	Active        bool               `bson:"active" json:"active"`
	Version       int64              `bson:"version" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// RefreshToken is an outstanding refresh token record. Only the token hash is stored.
type RefreshToken struct {
	TokenHash string    `bson:"token" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	UserAgent string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	LastUsed  time.Time `bson:"last_used" json:"last_used"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Expired reports whether the record is no longer usable at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// AddRefreshToken appends a record, evicting the oldest inserted records when the list
// is at capacity.
func (u *User) AddRefreshToken(rt RefreshToken, limit int) {
	if limit <= 0 {
		limit = MaxRefreshTokens
	}
	u.RefreshTokens = append(u.RefreshTokens, rt)
	if over := len(u.RefreshTokens) - limit; over > 0 {
		u.RefreshTokens = append([]RefreshToken(nil), u.RefreshTokens[over:]...)
	}
}

// FindRefreshToken returns the record for hash if it is present and not expired.
func (u *User) FindRefreshToken(hash string, now time.Time) (*RefreshToken, bool) {
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].TokenHash == hash {
			if u.RefreshTokens[i].Expired(now) {
				return nil, false
			}
			return &u.RefreshTokens[i], true
		}
	}
	return nil, false
}

// RemoveRefreshToken deletes the record for hash and reports whether it existed.
func (u *User) RemoveRefreshToken(hash string) bool {
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].TokenHash == hash {
			u.RefreshTokens = append(u.RefreshTokens[:i], u.RefreshTokens[i+1:]...)
			return true
		}
	}
	return false
}

// ClearRefreshTokens removes every record.
func (u *User) ClearRefreshTokens() {
	u.RefreshTokens = []RefreshToken{}
}

// PruneExpiredRefreshTokens drops expired records and returns how many were removed.
func (u *User) PruneExpiredRefreshTokens(now time.Time) int {
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if !rt.Expired(now) {
			kept = append(kept, rt)
		}
	}
	removed := len(u.RefreshTokens) - len(kept)
	u.RefreshTokens = kept
	return removed
}

// BeforeSave sweeps expired refresh tokens and stamps the update time.
// Repositories call it on every save.
func (u *User) BeforeSave(now time.Time) {
	if u.RefreshTokens == nil {
		u.RefreshTokens = []RefreshToken{}
	}
	u.PruneExpiredRefreshTokens(now)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Token represents a deny-listed access token. Entries expire with the token itself.
type Token struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Token     string             `bson:"token" json:"token"`
	Type      string             `bson:"type" json:"type"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// TokenTypeDenied marks an access token revoked by logout.
const TokenTypeDenied = "blacklist"
