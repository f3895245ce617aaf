// Package lock provides mutual exclusion across goroutines or processes.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// ReleaseFunc releases a held lock. Calling it more than once is a no-op.
type ReleaseFunc func(ctx context.Context) error

// Locker acquires named locks. Acquire blocks until the lock is held or ctx is done.
// ttl bounds how long a crashed holder can keep the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}
