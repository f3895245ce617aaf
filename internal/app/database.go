// Package app provides database initialization and setup.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/circuitbreaker"
	"github.com/guttosm/campus-access/internal/metrics"
	"github.com/guttosm/campus-access/internal/repository"
	"github.com/guttosm/campus-access/internal/service"
)

// DatabaseComponents holds database-related components.
type DatabaseComponents struct {
	DB                   *repository.MongoDB
	UserRepo             repository.UserRepositoryInterface
	TokenRepo            repository.TokenRepositoryInterface
	ApplicationRepo      repository.RoleApplicationRepositoryInterface
	Transactor           repository.Transactor
	LoggingService       service.LoggingService
	TokensCircuitBreaker *circuitbreaker.CircuitBreaker
	LogsCircuitBreaker   *circuitbreaker.CircuitBreaker
}

// InitializeDatabase connects to MongoDB and creates the repositories. Users and role
// applications live only in MongoDB, so a failed connection is fatal.
func InitializeDatabase(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseComponents, error) {
	db, err := repository.NewMongoDB(cfg.URI, cfg.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	log.Info().Str("database", cfg.DatabaseName).Msg("Connected to MongoDB")

	if err := db.SetLogsTTL(ctx, cfg.LogsTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to set logs TTL index (may already exist)")
	}

	tokensCB := newCircuitBreaker(cfg, "mongodb-tokens")
	logsCB := newCircuitBreaker(cfg, "mongodb-logs")

	logsRepo := repository.NewLogsRepositoryWithCircuitBreaker(repository.NewLogsRepository(db), logsCB)
	tokenRepo := repository.NewTokenRepositoryWithCircuitBreaker(repository.NewTokenRepository(db.Database), tokensCB)

	return &DatabaseComponents{
		DB:                   db,
		UserRepo:             repository.NewUserRepository(db.Database),
		TokenRepo:            tokenRepo,
		ApplicationRepo:      repository.NewRoleApplicationRepository(db.Database),
		Transactor:           repository.NewMongoTransactor(ctx, db),
		LoggingService:       service.NewLoggingService(logsRepo),
		TokensCircuitBreaker: tokensCB,
		LogsCircuitBreaker:   logsCB,
	}, nil
}

// Close disconnects from MongoDB.
func (d *DatabaseComponents) Close(ctx context.Context) error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close(ctx)
}

func newCircuitBreaker(cfg config.DatabaseConfig, name string) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Name:             name,
		OnStateChange:    onBreakerStateChange,
	})
}

func onBreakerStateChange(name string, from, to circuitbreaker.State) {
	metrics.SetCircuitBreakerState(name, int(to))
	log.Warn().
		Str("breaker", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state changed")
}
