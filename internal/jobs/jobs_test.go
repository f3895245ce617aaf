package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/campus-access/internal/lock"
	"github.com/guttosm/campus-access/internal/metrics"
)

type sweeperFunc func(ctx context.Context, now time.Time) (int64, error)

func (f sweeperFunc) PruneExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

func (f sweeperFunc) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewScheduler(t *testing.T) {
	noop := sweeperFunc(func(context.Context, time.Time) (int64, error) { return 0, nil })

	tests := []struct {
		name        string
		schedule    string
		users       RefreshTokenPruner
		tokens      DenyListCleaner
		wantEntries int
		wantErr     bool
	}{
		{name: "both sweeps", schedule: "@every 1h", users: noop, tokens: noop, wantEntries: 2},
		{name: "cron expression", schedule: "0 * * * *", users: noop, tokens: noop, wantEntries: 2},
		{name: "only deny list", schedule: "@every 1h", tokens: noop, wantEntries: 1},
		{name: "invalid schedule", schedule: "every hour", users: noop, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(Config{TokenSweepSchedule: tt.schedule}, tt.users, tt.tokens)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.cron.Entries(), tt.wantEntries)
		})
	}
}

func TestScheduler_Run(t *testing.T) {
	var gotNow time.Time
	users := sweeperFunc(func(_ context.Context, now time.Time) (int64, error) {
		gotNow = now
		return 3, nil
	})
	tokens := sweeperFunc(func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("mongo down")
	})
	s, err := NewScheduler(Config{TokenSweepSchedule: "@every 1h", Now: func() time.Time { return fixedNow }}, users, tokens)
	require.NoError(t, err)

	okBefore := testutil.ToFloat64(metrics.SweepRunsTotal.WithLabelValues(JobRefreshTokenSweep, metrics.ResultSuccess))
	failBefore := testutil.ToFloat64(metrics.SweepRunsTotal.WithLabelValues(JobDenyListSweep, metrics.ResultFailure))

	assert.Equal(t, int64(3), s.Run(context.Background(), JobRefreshTokenSweep))
	assert.Equal(t, fixedNow, gotNow)
	assert.Zero(t, s.Run(context.Background(), JobDenyListSweep))
	assert.Zero(t, s.Run(context.Background(), "unknown"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.SweepRunsTotal.WithLabelValues(JobRefreshTokenSweep, metrics.ResultSuccess)))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(metrics.SweepRunsTotal.WithLabelValues(JobDenyListSweep, metrics.ResultFailure)))
}

func TestScheduler_RunSkipsWhenLocked(t *testing.T) {
	var calls atomic.Int32
	users := sweeperFunc(func(context.Context, time.Time) (int64, error) {
		calls.Add(1)
		return 1, nil
	})
	locker := lock.NewMemoryLocker()
	s, err := NewScheduler(Config{TokenSweepSchedule: "@every 1h", Locker: locker}, users, nil)
	require.NoError(t, err)

	release, err := locker.Acquire(context.Background(), "jobs:"+JobRefreshTokenSweep, time.Minute)
	require.NoError(t, err)

	assert.Zero(t, s.Run(context.Background(), JobRefreshTokenSweep))
	assert.Zero(t, calls.Load())

	require.NoError(t, release(context.Background()))
	assert.Equal(t, int64(1), s.Run(context.Background(), JobRefreshTokenSweep))
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	ran := make(chan struct{}, 10)
	users := sweeperFunc(func(context.Context, time.Time) (int64, error) {
		ran <- struct{}{}
		return 0, nil
	})
	s, err := NewScheduler(Config{TokenSweepSchedule: "@every 1s"}, users, nil)
	require.NoError(t, err)

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
