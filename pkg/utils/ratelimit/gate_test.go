package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/prospector/pkg/domain/types"
	"github.com/m-mizutani/prospector/pkg/utils/ratelimit"
)

func noSleep() (func() time.Time, func(ctx context.Context, d time.Duration) error, *[]time.Duration) {
	var slept []time.Duration
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
		&slept
}

func TestGateRetriesTransient(t *testing.T) {
	now, sleep, slept := noSleep()
	gate := ratelimit.New("github", ratelimit.WithClock(now, sleep))

	calls := 0
	err := gate.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return goerr.New("upstream 503", goerr.T(types.ErrTagTransient))
		}
		return nil
	})

	gt.NoError(t, err)
	gt.Number(t, calls).Equal(3)
	gt.Number(t, len(*slept)).Equal(2)
	// Exponential backoff: second delay doubles the first
	gt.Value(t, (*slept)[1]).Equal((*slept)[0] * 2)
}

func TestGateDoesNotRetryPermanent(t *testing.T) {
	now, sleep, _ := noSleep()
	gate := ratelimit.New("github", ratelimit.WithClock(now, sleep))

	calls := 0
	err := gate.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return goerr.New("404 not found", goerr.T(types.ErrTagPermanent))
	})

	gt.Error(t, err)
	gt.Number(t, calls).Equal(1)
}

func TestGateExhaustsRetryBudget(t *testing.T) {
	now, sleep, _ := noSleep()
	gate := ratelimit.New("github", ratelimit.WithClock(now, sleep), ratelimit.WithMaxAttempts(3))

	calls := 0
	err := gate.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return goerr.New("timeout", goerr.T(types.ErrTagTransient))
	})

	gt.Error(t, err)
	gt.Number(t, calls).Equal(3)
	gt.String(t, err.Error()).Contains("retry budget exhausted")
}

func TestGateWaitsForQuotaWithinCeiling(t *testing.T) {
	now, sleep, slept := noSleep()
	gate := ratelimit.New("github",
		ratelimit.WithClock(now, sleep),
		ratelimit.WithMaxWait(time.Minute),
	)
	gate.Observe(0, now().Add(30*time.Second))

	err := gate.Do(context.Background(), func(ctx context.Context) error { return nil })
	gt.NoError(t, err)
	gt.Number(t, len(*slept)).Equal(1)
	gt.Value(t, (*slept)[0]).Equal(30 * time.Second)
}

func TestGateEscalatesBeyondWaitCeiling(t *testing.T) {
	now, sleep, _ := noSleep()
	gate := ratelimit.New("github",
		ratelimit.WithClock(now, sleep),
		ratelimit.WithMaxWait(time.Minute),
	)
	gate.Observe(0, now().Add(time.Hour))

	called := false
	err := gate.Do(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	gt.Error(t, err)
	gt.B(t, called).False()
	gt.B(t, types.IsRateLimited(err)).True()
}

func TestGateProceedsWhenQuotaAvailable(t *testing.T) {
	now, sleep, slept := noSleep()
	gate := ratelimit.New("serper", ratelimit.WithClock(now, sleep))
	gate.Observe(100, now().Add(time.Hour))

	err := gate.Do(context.Background(), func(ctx context.Context) error { return nil })
	gt.NoError(t, err)
	gt.Number(t, len(*slept)).Equal(0)
}
