// Package ratelimit provides a token bucket for capping request volume
// against quota-limited generation backends.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket: it holds up to maxRequests tokens which refill
// at maxRequests/window per second. One token is consumed per acquisition.
// Safe for concurrent callers.
type Limiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxRequests int
	window      time.Duration
}

// New creates a limiter allowing maxRequests per window. The bucket starts
// full. A limiter with maxRequests == 0 rejects every acquisition; negative
// values and a non-positive window are configuration errors and fail here
// rather than at first use.
func New(maxRequests int, window time.Duration, logger *slog.Logger) (*Limiter, error) {
	if maxRequests < 0 {
		return nil, fmt.Errorf("ratelimit: maxRequests must be non-negative, got %d", maxRequests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %v", window)
	}
	if logger == nil {
		logger = slog.Default()
	}

	refill := rate.Limit(float64(maxRequests) / window.Seconds())
	l := &Limiter{
		limiter:     rate.NewLimiter(refill, maxRequests),
		logger:      logger,
		maxRequests: maxRequests,
		window:      window,
	}

	logger.Info("Rate limiter initialized",
		"max_requests", maxRequests,
		"window", window.String(),
		"refill_per_sec", float64(refill))

	return l, nil
}

// Acquire consumes one token, blocking until one is available, the timeout
// elapses, or ctx is canceled. A zero timeout behaves as a non-blocking
// try-acquire. Returns false when no token was obtained.
func (l *Limiter) Acquire(ctx context.Context, timeout time.Duration) bool {
	if timeout == 0 {
		return l.TryAcquire()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l.mu.Lock()
	limiter := l.limiter
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		l.logger.Warn("Rate limit acquisition failed", "timeout", timeout.String(), "error", err)
		return false
	}
	return true
}

// TryAcquire consumes a token if one is immediately available.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.Allow()
}

// WaitTime estimates how long until the next token becomes available.
// Returns zero when a token is free now. Does not consume tokens.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	tokens := l.limiter.Tokens()
	if tokens >= 1.0 {
		return 0
	}
	refill := float64(l.limiter.Limit())
	if refill <= 0 {
		// A zero-capacity bucket never refills.
		return l.window
	}
	return time.Duration((1.0 - tokens) / refill * float64(time.Second))
}

// Reset refills the bucket to full capacity.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	refill := rate.Limit(float64(l.maxRequests) / l.window.Seconds())
	l.limiter = rate.NewLimiter(refill, l.maxRequests)
	l.logger.Debug("Rate limiter reset", "tokens", l.maxRequests)
}
