package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/campus-access/internal/circuitbreaker"
	"github.com/guttosm/campus-access/internal/domain/model"
)

// TokenRepositoryWithCircuitBreaker wraps the deny list with circuit breaker protection.
// While the circuit is open IsBlacklisted fails closed.
type TokenRepositoryWithCircuitBreaker struct {
	repo           TokenRepositoryInterface
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewTokenRepositoryWithCircuitBreaker creates a new repository wrapper with circuit breaker.
func NewTokenRepositoryWithCircuitBreaker(repo TokenRepositoryInterface, cb *circuitbreaker.CircuitBreaker) *TokenRepositoryWithCircuitBreaker {
	return &TokenRepositoryWithCircuitBreaker{
		repo:           repo,
		circuitBreaker: cb,
	}
}

// Create deny-lists a token with circuit breaker protection.
func (r *TokenRepositoryWithCircuitBreaker) Create(ctx context.Context, token *model.Token) error {
	return r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.Create(ctx, token)
	})
}

// IsBlacklisted checks the deny list with circuit breaker protection.
func (r *TokenRepositoryWithCircuitBreaker) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	var denied bool
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		denied, cbErr = r.repo.IsBlacklisted(ctx, tokenID)
		return cbErr
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false, fmt.Errorf("deny list unavailable: %w", err)
	}
	return denied, err
}

// CleanupExpired removes expired entries with circuit breaker protection.
func (r *TokenRepositoryWithCircuitBreaker) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		n, cbErr = r.repo.CleanupExpired(ctx, now)
		return cbErr
	})
	return n, err
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (r *TokenRepositoryWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return r.circuitBreaker
}

// LogsRepositoryWithCircuitBreaker wraps LogsRepository with circuit breaker protection.
type LogsRepositoryWithCircuitBreaker struct {
	repo           LogsRepositoryInterface
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewLogsRepositoryWithCircuitBreaker creates a new repository wrapper with circuit breaker.
func NewLogsRepositoryWithCircuitBreaker(repo LogsRepositoryInterface, cb *circuitbreaker.CircuitBreaker) *LogsRepositoryWithCircuitBreaker {
	return &LogsRepositoryWithCircuitBreaker{
		repo:           repo,
		circuitBreaker: cb,
	}
}

// Create stores a single log entry with circuit breaker protection.
// If circuit is open, silently fails (logging is non-critical).
func (r *LogsRepositoryWithCircuitBreaker) Create(ctx context.Context, entry *model.LogEntry) error {
	err := r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.Create(ctx, entry)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil
	}
	return err
}

// CreateMany stores multiple log entries with circuit breaker protection.
// If circuit is open, silently fails (logging is non-critical).
func (r *LogsRepositoryWithCircuitBreaker) CreateMany(ctx context.Context, entries []*model.LogEntry) error {
	err := r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.CreateMany(ctx, entries)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil
	}
	return err
}

// Query retrieves log entries with circuit breaker protection.
func (r *LogsRepositoryWithCircuitBreaker) Query(ctx context.Context, opts model.LogQueryOptions) ([]*model.LogEntry, error) {
	var result []*model.LogEntry
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.Query(ctx, opts)
		return cbErr
	})
	return result, err
}

// Count returns the count of log entries with circuit breaker protection.
func (r *LogsRepositoryWithCircuitBreaker) Count(ctx context.Context, opts model.LogQueryOptions) (int64, error) {
	var result int64
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.Count(ctx, opts)
		return cbErr
	})
	return result, err
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (r *LogsRepositoryWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return r.circuitBreaker
}
