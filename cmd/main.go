// Package main is the entry point for the campus-access service.
//
// @title           Campus Access API
// @version         1.0.0
// @description     Authentication, role based access control and role applications for the campus platform.
//
//	Access tokens are short lived; the refresh token travels in an HttpOnly cookie.
//
// @contact.name   API Support
// @contact.email  support@example.com
// @contact.url    https://github.com/guttosm/campus-access
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Access token as "Bearer <token>".
//
// @tag.name        Auth
// @tag.description Sign up, sign in and token refresh
//
// @tag.name        Role Applications
// @tag.description Applying for and reviewing role upgrades
//
// @tag.name        Roles
// @tag.description Role transitions
//
// @tag.name        Health
// @tag.description Health check endpoints
package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/campus-access/config"
	_ "github.com/guttosm/campus-access/docs" // swagger docs
	"github.com/guttosm/campus-access/internal/app"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	if err := application.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
