package web

import (
	"context"
	"sync"
	"time"

	"kami-system/internal/config"
)

// RateLimiter is a process-local sliding-window request counter keyed by
// client IP, with a temporary block on overflow. Constructed once at
// startup and injected into the middleware chain; Run sweeps idle entries
// so the map stays bounded over the process lifetime.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	window      time.Duration
	maxRequests int
	blockFor    time.Duration
	sweepEvery  time.Duration

	now func() time.Time
}

type visitor struct {
	requests     []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		window:      cfg.Window,
		maxRequests: cfg.MaxRequests,
		blockFor:    cfg.BlockFor,
		sweepEvery:  cfg.Sweep,
		now:         time.Now,
	}
}

// Allow records one request for the client and reports whether it may
// proceed. While a client is blocked the window is not recomputed.
func (l *RateLimiter) Allow(clientKey string) bool {
	if clientKey == "" {
		clientKey = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[clientKey]
	if !ok {
		v = &visitor{}
		l.visitors[clientKey] = v
	}
	v.lastSeen = now

	if now.Before(v.blockedUntil) {
		return false
	}

	// Drop timestamps that fell out of the window.
	cutoff := now.Add(-l.window)
	kept := v.requests[:0]
	for _, t := range v.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	v.requests = kept

	if len(v.requests) >= l.maxRequests {
		v.blockedUntil = now.Add(l.blockFor)
		v.requests = nil
		return false
	}

	v.requests = append(v.requests, now)
	return true
}

// Run sweeps idle entries until the context is cancelled.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *RateLimiter) sweep() {
	now := l.now()
	idle := l.window + l.blockFor

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(l.visitors, key)
		}
	}
}
