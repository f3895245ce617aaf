// Package jobs runs the periodic maintenance of the access service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guttosm/campus-access/internal/lock"
	"github.com/guttosm/campus-access/internal/logger"
	"github.com/guttosm/campus-access/internal/metrics"
)

// Job names used in logs, lock keys and metrics.
const (
	JobRefreshTokenSweep = "refresh_token_sweep"
	JobDenyListSweep     = "deny_list_sweep"
)

const (
	defaultJobTimeout = 5 * time.Minute
	// lockWait is how long a replica waits for another one holding the job lock.
	lockWait = time.Second
)

// RefreshTokenPruner removes expired refresh token records from user documents.
type RefreshTokenPruner interface {
	PruneExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// DenyListCleaner removes revoked access tokens past their expiry.
type DenyListCleaner interface {
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config configures the scheduler.
type Config struct {
	// TokenSweepSchedule is a cron spec or descriptor such as "@every 1h".
	TokenSweepSchedule string
	// Timeout bounds a single run.
	Timeout time.Duration
	// Locker, when set, keeps replicas from sweeping at the same time.
	Locker lock.Locker
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler owns the cron runner and the sweep jobs.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	users  RefreshTokenPruner
	tokens DenyListCleaner
}

// NewScheduler registers the token sweeps. It fails on an invalid schedule.
func NewScheduler(cfg Config, users RefreshTokenPruner, tokens DenyListCleaner) (*Scheduler, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultJobTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cronLog := cronLogger{logger.Component("jobs")}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		cfg:    cfg,
		users:  users,
		tokens: tokens,
	}

	if users != nil {
		if _, err := s.cron.AddFunc(cfg.TokenSweepSchedule, func() { s.Run(context.Background(), JobRefreshTokenSweep) }); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", JobRefreshTokenSweep, err)
		}
	}
	if tokens != nil {
		if _, err := s.cron.AddFunc(cfg.TokenSweepSchedule, func() { s.Run(context.Background(), JobDenyListSweep) }); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", JobDenyListSweep, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Str("schedule", s.cfg.TokenSweepSchedule).Int("jobs", len(s.cron.Entries())).Msg("Jobs scheduler started")
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("Jobs still running at shutdown")
	}
}

// Run executes one job immediately and returns the number of removed records.
func (s *Scheduler) Run(ctx context.Context, job string) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if s.cfg.Locker != nil {
		acquireCtx, cancelAcquire := context.WithTimeout(ctx, lockWait)
		release, err := s.cfg.Locker.Acquire(acquireCtx, "jobs:"+job, s.cfg.Timeout)
		cancelAcquire()
		if errors.Is(err, lock.ErrNotAcquired) {
			log.Debug().Str("job", job).Msg("Job running elsewhere, skipping")
			return 0
		}
		if err != nil {
			log.Warn().Err(err).Str("job", job).Msg("Job lock unavailable, skipping")
			return 0
		}
		defer release(context.WithoutCancel(ctx))
	}

	start := time.Now()
	removed, err := s.sweep(ctx, job)
	metrics.RecordSweep(job, removed, err)

	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Str("job", job).Int64("removed", removed).Dur("took", time.Since(start)).Msg("Sweep finished")
	return removed
}

func (s *Scheduler) sweep(ctx context.Context, job string) (int64, error) {
	now := s.cfg.Now()
	switch job {
	case JobRefreshTokenSweep:
		if s.users == nil {
			return 0, nil
		}
		return s.users.PruneExpiredRefreshTokens(ctx, now)
	case JobDenyListSweep:
		if s.tokens == nil {
			return 0, nil
		}
		return s.tokens.CleanupExpired(ctx, now)
	default:
		return 0, fmt.Errorf("unknown job %q", job)
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	zl zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.zl.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
