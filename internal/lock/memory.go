package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLocker is a process-local Locker. ttl is ignored since holders cannot crash
// without taking the process down.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewMemoryLocker creates a new in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]chan struct{})}
}

// Acquire blocks until key is free or ctx is done.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (ReleaseFunc, error) {
	for {
		l.mu.Lock()
		waitCh, busy := l.held[key]
		if !busy {
			ch := make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			return l.releaser(key, ch), nil
		}
		l.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		}
	}
}

func (l *MemoryLocker) releaser(key string, ch chan struct{}) ReleaseFunc {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			if l.held[key] == ch {
				delete(l.held, key)
			}
			l.mu.Unlock()
			close(ch)
		})
		return nil
	}
}
