package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps windows in a process-local map. Each process
// enforces its own limit; state is lost on restart.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*entry), now: time.Now}
}

func (l *MemoryLimiter) Check(_ context.Context, key string, max int, window time.Duration) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(window)}
		l.entries[key] = e
		return Result{Allowed: max >= 1, Remaining: remaining(max, 1), ResetAt: e.resetAt}, nil
	}

	e.count++
	return Result{Allowed: e.count <= max, Remaining: remaining(max, e.count), ResetAt: e.resetAt}, nil
}

// Purge drops entries whose window has elapsed and returns how many.
func (l *MemoryLimiter) Purge() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run purges every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Purge()
		}
	}
}
