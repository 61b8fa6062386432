// Package backend wraps pluggable text-generation providers with the shared
// throttle, rate limiter, and retry policy. The rest of the pipeline talks
// to a Client and never sees provider-specific errors or SDK types.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"tube-herald/ratelimit"
	"tube-herald/throttle"
)

// ErrNoText is returned when generation produced nothing usable after all
// retries. Callers treat it as a normal outcome and fall back to a template.
var ErrNoText = errors.New("backend: no text produced")

// ErrRateLimited indicates the local token bucket refused an acquisition
// within its timeout. Treated as transient.
var ErrRateLimited = errors.New("backend: rate limit acquisition timed out")

// Provider is the narrow contract a generation backend implements:
// prompt in, text out, or failure.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config tunes the call wrapper around a provider.
type Config struct {
	// MaxRetries is the number of attempts beyond the first. Zero means a
	// single attempt.
	MaxRetries int
	// RetryDelay is the base backoff delay, doubled per attempt.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff.
	MaxRetryDelay time.Duration
	// AcquireTimeout bounds how long one attempt waits on the token bucket.
	AcquireTimeout time.Duration
}

// DefaultConfig returns the wrapper defaults: three retries with a 2s base
// backoff, and a 30s bound on token-bucket waits.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		MaxRetryDelay:  time.Minute,
		AcquireTimeout: 30 * time.Second,
	}
}

// Client runs generation calls through the process-wide throttle and the
// shared token bucket, retrying transient failures with exponential backoff.
type Client struct {
	provider Provider
	gate     *throttle.Gate
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	cfg      Config
}

// NewClient creates a call wrapper. gate and limiter are shared handles; the
// same instances must be passed to every client so one physical quota is
// respected across all of them.
func NewClient(provider Provider, gate *throttle.Gate, limiter *ratelimit.Limiter, cfg Config, logger *slog.Logger) (*Client, error) {
	if provider == nil {
		return nil, errors.New("backend: provider is required")
	}
	if gate == nil || limiter == nil {
		return nil, errors.New("backend: shared gate and limiter are required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("backend: MaxRetries must be non-negative, got %d", cfg.MaxRetries)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: provider,
		gate:     gate,
		limiter:  limiter,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Generate produces text for prompt. Permanent provider errors abort
// immediately; transient ones are retried with exponential backoff. The
// returned text has wrapper artifacts (quoting, literal escape sequences)
// already cleaned. Never panics past this boundary: any failure comes back
// as an error the caller can treat as "no text produced".
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var text string

	err := retry.Do(
		func() error {
			return c.gate.Do(ctx, func() error {
				if !c.limiter.Acquire(ctx, c.cfg.AcquireTimeout) {
					c.logger.Warn("Token bucket exhausted",
						"provider", c.provider.Name(),
						"estimated_wait", c.limiter.WaitTime().String())
					return ErrRateLimited
				}

				start := time.Now()
				raw, err := c.provider.Generate(ctx, prompt)
				duration := time.Since(start)

				if err != nil {
					c.logger.Warn("Generation call failed",
						"provider", c.provider.Name(),
						"duration_ms", duration.Milliseconds(),
						"permanent", Classify(err) == ClassPermanent,
						"error", err)
					return err
				}

				text = cleanResponse(raw)
				if text == "" {
					c.logger.Warn("Generation returned empty text",
						"provider", c.provider.Name(),
						"duration_ms", duration.Milliseconds())
					return ErrNoText
				}

				c.logger.Debug("Generation call completed",
					"provider", c.provider.Name(),
					"duration_ms", duration.Milliseconds(),
					"chars", len(text))
				return nil
			})
		},
		retry.Attempts(uint(c.cfg.MaxRetries)+1),
		retry.Delay(c.cfg.RetryDelay),
		retry.MaxDelay(c.cfg.MaxRetryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying generation after error",
				"provider", c.provider.Name(),
				"attempt", n,
				"error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return Classify(err) == ClassTransient
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generate after retries: %w", err)
	}

	return text, nil
}
