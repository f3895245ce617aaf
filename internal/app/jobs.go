package app

import (
	"github.com/redis/go-redis/v9"

	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/jobs"
	"github.com/guttosm/campus-access/internal/lock"
)

// InitializeJobs registers the token sweeps. It returns nil when jobs are disabled. With
// Redis available the sweeps take a distributed lock so only one replica runs each.
func InitializeJobs(cfg config.JobsConfig, db *DatabaseComponents, rdb redis.UniversalClient) (*jobs.Scheduler, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	jobsCfg := jobs.Config{TokenSweepSchedule: cfg.TokenSweepCron}
	if rdb != nil {
		jobsCfg.Locker = lock.NewRedisLocker(rdb, lock.WithPrefix("campus-access:jobs:"))
	}
	return jobs.NewScheduler(jobsCfg, db.UserRepo, db.TokenRepo)
}
