package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoValSucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(3), func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDoValRetriesTransientErrors(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(eris.New("http 503"), 503)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoValStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := eris.New("http 404")
	_, err := DoVal(context.Background(), fastConfig(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValExhaustsBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return NewTransientError(eris.New("still down"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
}

func TestDoValHonorsRetryAfterHint(t *testing.T) {
	cfg := fastConfig(2)
	calls := 0
	var gap time.Duration
	var last time.Time

	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		now := time.Now()
		if calls > 0 {
			gap = now.Sub(last)
		}
		last = now
		calls++
		if calls == 1 {
			return 0, NewRateLimitedError(eris.New("http 429"), 100*time.Millisecond)
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	// The server hint overrides the 1ms schedule.
	assert.GreaterOrEqual(t, gap, 90*time.Millisecond)
}

func TestDoValStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	cfg := fastConfig(10)
	cfg.InitialBackoff = 50 * time.Millisecond

	_, err := DoVal(ctx, cfg, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(eris.New("http 500"), 500)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValCallsOnRetry(t *testing.T) {
	cfg := fastConfig(3)
	var attempts []int
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(eris.New("boom"), 500)
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestComputeBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		Multiplier:     2.0,
	}

	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(1, cfg))
	assert.Equal(t, 4*time.Second, computeBackoff(2, cfg))
	// Capped beyond the max.
	assert.Equal(t, 4*time.Second, computeBackoff(5, cfg))
}

func TestComputeBackoffJitterStaysInRange(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}

	for i := 0; i < 100; i++ {
		d := computeBackoff(0, cfg)
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}
