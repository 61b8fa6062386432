// Package throttle gates outbound generation calls behind a process-wide
// concurrency cap and a minimum inter-call spacing. A single Gate is shared
// by every backend client in the process so that one physical quota is
// respected no matter how many clients exist.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Gate limits how many wrapped calls run at once and how close together
// consecutive calls may start. The spacing applies to call starts, not call
// durations: the last-start timestamp is taken before the call runs.
type Gate struct {
	sem       *semaphore.Weighted
	logger    *slog.Logger
	minDelay  time.Duration
	mu        sync.Mutex
	lastStart time.Time
}

// New creates a gate allowing maxConcurrent calls in flight with at least
// minDelay between consecutive call starts. Use a shorter delay for local
// backends than for remote quota-limited ones.
func New(maxConcurrent int, minDelay time.Duration, logger *slog.Logger) (*Gate, error) {
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("throttle: maxConcurrent must be positive, got %d", maxConcurrent)
	}
	if minDelay < 0 {
		return nil, fmt.Errorf("throttle: minDelay must be non-negative, got %v", minDelay)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		logger:   logger,
		minDelay: minDelay,
	}, nil
}

// Do runs fn once a concurrency slot is free and the minimum spacing since
// the previous call start has elapsed. Blocking respects ctx: cancellation
// while waiting returns ctx's error without running fn.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("throttle: acquire slot: %w", err)
	}
	defer g.sem.Release(1)

	if err := g.waitTurn(ctx); err != nil {
		return err
	}

	return fn()
}

// waitTurn holds the spacing mutex while sleeping so concurrent callers
// queue up and stamp strictly increasing start times.
func (g *Gate) waitTurn(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastStart.IsZero() {
		wait := g.minDelay - time.Since(g.lastStart)
		if wait > 0 {
			g.logger.Debug("Throttle spacing wait", "wait", wait.String())
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return fmt.Errorf("throttle: spacing wait: %w", ctx.Err())
			}
		}
	}

	g.lastStart = time.Now()
	return nil
}
