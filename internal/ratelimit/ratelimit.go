// Package ratelimit throttles expensive per-user operations such as AI calls.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config sets the per-user budget.
type Config struct {
	PerMinute       int
	Burst           int
	CleanupInterval time.Duration
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter keeps one token bucket per user. A zero PerMinute disables limiting.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	limiters map[int64]*userLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter and starts its cleanup loop.
func New(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = max(cfg.PerMinute/2, 1)
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	l := &Limiter{
		cfg:      cfg,
		now:      time.Now,
		limiters: make(map[int64]*userLimiter),
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether userID may make one more call now.
func (l *Limiter) Allow(userID int64) bool {
	if l.cfg.PerMinute <= 0 {
		return true
	}

	now := l.now()

	l.mu.Lock()
	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.cfg.PerMinute)), l.cfg.Burst),
		}
		l.limiters[userID] = ul
	}
	ul.lastAccess = now
	l.mu.Unlock()

	return ul.limiter.AllowN(now, 1)
}

// Len returns how many users are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Stop ends the cleanup loop. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup drops users idle for two cleanup intervals.
func (l *Limiter) cleanup() {
	ttl := l.cfg.CleanupInterval * 2
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, ul := range l.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(l.limiters, userID)
		}
	}
}
