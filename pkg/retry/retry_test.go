package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps test runtime low; jitter stays off so timing assertions
// hold.
func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("broker unavailable")

	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.ErrorIs(t, err, sentinel, "exhaustion error should wrap the last failure")
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")

	attempts := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		attempts++
		return NonRetryable(sentinel)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsNonRetryable(err))
}

func TestNonRetryable_NilStaysNil(t *testing.T) {
	assert.NoError(t, NonRetryable(nil))
	assert.False(t, IsNonRetryable(nil))
}

func TestIsNonRetryable_SeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("request failed: %w", NonRetryable(errors.New("schema mismatch")))
	assert.True(t, IsNonRetryable(err))
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	attempts := 0
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("still down")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, attempts, 5)
}

func TestDo_ZeroConfigRunsOnce(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{}, func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative initial delay", Config{InitialDelay: -time.Second}},
		{"negative max delay", Config{MaxDelay: -time.Second}},
		{"negative multiplier", Config{Multiplier: -1}},
		{"ceiling below initial delay", Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := Do(context.Background(), tt.cfg, func() error {
				called = true
				return nil
			})
			require.Error(t, err)
			assert.False(t, called, "invalid config must be rejected before the first attempt")
		})
	}
}

func TestDo_BackoffGrowsAndCaps(t *testing.T) {
	cfg := Config{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     25 * time.Millisecond,
		Multiplier:   10.0,
	}

	start := time.Now()
	_ = Do(context.Background(), cfg, func() error {
		return errors.New("down")
	})
	elapsed := time.Since(start)

	// Delays are 10ms, then 25ms twice once the cap applies.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("not ready")
		}
		return "ready", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 2, attempts)
}

func TestDoWithResult_ZeroValueOnFailure(t *testing.T) {
	got, err := DoWithResult(context.Background(), fastConfig(2), func() (int, error) {
		return 42, errors.New("partial result must not leak")
	})

	require.Error(t, err)
	assert.Zero(t, got)
}
