package locks

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is the single-process locker used when no Redis is configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	wait time.Duration
}

func NewMemoryLocker(ttl, wait time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if wait < 0 {
		wait = defaultWait
	}
	return &MemoryLocker{held: map[string]time.Time{}, ttl: ttl, wait: wait}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Release, error) {
	var expires time.Time
	err := retry(ctx, l.wait, func() (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		now := time.Now()
		if until, ok := l.held[key]; ok && now.Before(until) {
			return false, nil
		}
		expires = now.Add(l.ttl)
		l.held[key] = expires
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(expires) {
			delete(l.held, key)
		}
		return nil
	}, nil
}

var _ Locker = (*MemoryLocker)(nil)
