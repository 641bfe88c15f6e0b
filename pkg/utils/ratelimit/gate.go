// Package ratelimit protects fixed external quotas shared across all
// concurrently running jobs. One Gate guards one provider.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Gate wraps outbound calls to one provider with quota awareness and a small
// fixed retry budget for transient failures.
type Gate struct {
	provider string

	mu        sync.Mutex
	remaining int
	resetAt   time.Time

	maxAttempts int
	maxWait     time.Duration
	baseDelay   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Gate
type Option func(*Gate)

// WithMaxAttempts sets the retry budget for transient failures
func WithMaxAttempts(n int) Option {
	return func(g *Gate) { g.maxAttempts = n }
}

// WithMaxWait sets the ceiling for blocking on quota recovery. A wait longer
// than this escalates to a rate-limited error instead of blocking.
func WithMaxWait(d time.Duration) Option {
	return func(g *Gate) { g.maxWait = d }
}

// WithBaseDelay sets the first backoff delay (doubled per attempt)
func WithBaseDelay(d time.Duration) Option {
	return func(g *Gate) { g.baseDelay = d }
}

// WithClock replaces the time source and sleeper, for tests
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) {
		g.now = now
		g.sleep = sleep
	}
}

// New creates a Gate for one provider
func New(provider string, opts ...Option) *Gate {
	g := &Gate{
		provider:    provider,
		remaining:   -1, // unknown until first observation
		maxAttempts: 3,
		maxWait:     2 * time.Minute,
		baseDelay:   time.Second,
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Observe records the provider's reported quota state, typically taken from
// response headers after each call
func (g *Gate) Observe(remaining int, resetAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining = remaining
	g.resetAt = resetAt
}

// Do executes call under the gate. Transient failures are retried with
// exponential backoff up to the attempt budget; rate-limit signals trigger a
// bounded wait for quota recovery; everything else passes through untouched.
func (g *Gate) Do(ctx context.Context, call func(ctx context.Context) error) error {
	if err := g.waitForQuota(ctx); err != nil {
		return err
	}

	var lastErr error
	delay := g.baseDelay
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := g.sleep(ctx, delay); err != nil {
				return goerr.Wrap(err, "interrupted while backing off", goerr.V("provider", g.provider))
			}
			delay *= 2
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if types.IsRateLimited(err) {
			// Quota ran out mid-flight. Wait for the observed reset if it is
			// within the ceiling, otherwise surface the rate-limit.
			if waitErr := g.waitForQuota(ctx); waitErr != nil {
				return waitErr
			}
			continue
		}
		if !types.IsRetryable(err) {
			return err
		}
	}

	return goerr.Wrap(lastErr, "retry budget exhausted",
		goerr.V("provider", g.provider),
		goerr.V("attempts", g.maxAttempts),
	)
}

// waitForQuota blocks until the provider quota recovers, bounded by maxWait
func (g *Gate) waitForQuota(ctx context.Context) error {
	g.mu.Lock()
	remaining := g.remaining
	resetAt := g.resetAt
	g.mu.Unlock()

	if remaining != 0 {
		return nil
	}

	wait := resetAt.Sub(g.now())
	if wait <= 0 {
		return nil
	}
	if wait > g.maxWait {
		return goerr.New("provider quota exhausted beyond wait ceiling",
			goerr.T(types.ErrTagRateLimited),
			goerr.V("provider", g.provider),
			goerr.V("reset_at", resetAt),
			goerr.V("wait", wait),
		)
	}

	if err := g.sleep(ctx, wait); err != nil {
		return goerr.Wrap(err, "interrupted while waiting for quota", goerr.V("provider", g.provider))
	}

	g.mu.Lock()
	g.remaining = -1 // quota should have reset; next observation corrects this
	g.mu.Unlock()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
