// Package ratelimit enforces a fixed minimum spacing between outbound requests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/rsr-sign-scraper/internal/metrics"
)

// Config holds limiter configuration.
type Config struct {
	// Interval is the minimum delay before each request. Zero disables throttling.
	Interval time.Duration
}

// Limiter is a token bucket of burst one. Its first token is consumed at
// construction, so even the first request waits a full Interval.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	if cfg.Interval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	l := rate.NewLimiter(rate.Every(cfg.Interval), 1)
	l.Allow()
	return &Limiter{
		limiter:  l,
		interval: cfg.Interval,
	}
}

// Interval returns the configured spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next request may be issued, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}
	return nil
}
