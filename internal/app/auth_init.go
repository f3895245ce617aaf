// Package app provides authentication initialization.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
	"github.com/guttosm/campus-access/internal/repository"
)

// ensureAdmin creates the bootstrap administrator when ADMIN_EMAIL and ADMIN_PASSWORD
// are set. An existing account with that email is left untouched.
func ensureAdmin(ctx context.Context, users repository.UserRepositoryInterface, cfg config.AuthConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	existing, err := users.FindByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return fmt.Errorf("find admin: %w", err)
	}
	if existing != nil {
		if existing.Role != rbac.RoleAdmin {
			log.Warn().Str("email", cfg.AdminEmail).Str("role", string(existing.Role)).
				Msg("Bootstrap admin email belongs to a non-admin account")
		}
		return nil
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &model.User{
		ID:       primitive.NewObjectID(),
		Email:    cfg.AdminEmail,
		Username: "admin",
		Password: string(hash),
		Name:     "Administrator",
		Role:     rbac.RoleAdmin,
		Active:   true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info().Str("email", cfg.AdminEmail).Msg("Created bootstrap admin")
	return nil
}
