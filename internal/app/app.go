// Package app provides application initialization and dependency injection.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/http"
	"github.com/guttosm/campus-access/internal/jobs"
	"github.com/guttosm/campus-access/internal/middleware"
)

// App is the wired access service.
type App struct {
	cfg       config.Config
	db        *DatabaseComponents
	redis     redis.UniversalClient
	services  *ServiceComponents
	router    *http.Router
	scheduler *jobs.Scheduler
}

// New creates and wires all application dependencies. On error every resource opened so
// far is released.
func New(ctx context.Context, cfg config.Config) (a *App, err error) {
	InitializeLogger(cfg.Log)

	a = &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	if a.db, err = InitializeDatabase(ctx, cfg.Database); err != nil {
		return a, err
	}
	a.redis = InitializeRedis(ctx, cfg.Redis)

	if a.services, err = InitializeServices(cfg, a.db, a.redis); err != nil {
		return a, err
	}
	if err = ensureAdmin(ctx, a.db.UserRepo, cfg.Auth); err != nil {
		return a, fmt.Errorf("bootstrap admin: %w", err)
	}

	middleware.InitAsyncLogger(a.db.LoggingService, middleware.DefaultAsyncLoggerConfig())
	a.router = InitializeRouter(cfg, a.db, a.services, a.redis)

	if a.scheduler, err = InitializeJobs(cfg.Jobs, a.db, a.redis); err != nil {
		return a, err
	}
	return a, nil
}

// Router returns the HTTP router.
func (a *App) Router() *http.Router {
	return a.router
}

// Run starts the background jobs and serves HTTP until ctx is done or a shutdown signal
// arrives. Every resource is released before it returns.
func (a *App) Run(ctx context.Context) error {
	server := NewServer(a.router, a.cfg.Server.Port)
	server.OnShutdown(a.Close)

	if a.scheduler != nil {
		a.scheduler.Start()
	}
	return server.Run(ctx)
}

// Close stops the jobs and the middleware workers, then disconnects from the stores.
func (a *App) Close(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.router != nil {
		a.router.Stop()
	}
	middleware.StopAsyncLogger()

	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.db.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close mongodb: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to release resources")
	}
	return err
}
