// Package ratelimit throttles abusive clients of the authentication
// endpoints. Counters live in process memory or, when several API replicas
// run, in Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits into limit requests
// per window. When it does not, retryAfter tells the client how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

type window struct {
	count int
	start time.Time
}

// LocalLimiter is a fixed-window Limiter kept in memory.
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	sweepAt time.Time
	now     func() time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (bool, time.Duration, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, w := range l.windows {
			if now.Sub(w.start) >= period {
				delete(l.windows, k)
			}
		}
		l.sweepAt = now.Add(period)
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= period {
		l.windows[key] = &window{count: 1, start: now}
		return true, 0, nil
	}
	if w.count >= limit {
		return false, max(period-now.Sub(w.start), 0), nil
	}
	w.count++
	return true, 0, nil
}
