package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 0,
		BaseDelay:    time.Microsecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDelayForAttemptSequence(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 1 * time.Second,
		BaseDelay:    2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0,
	}

	assert.Equal(t, 1*time.Second, cfg.DelayForAttempt(0))
	assert.Equal(t, 4*time.Second, cfg.DelayForAttempt(1))
	assert.Equal(t, 8*time.Second, cfg.DelayForAttempt(2))
	// Capped at MaxDelay.
	assert.Equal(t, 10*time.Second, cfg.DelayForAttempt(3))
}

func TestDelayForAttemptJitterStaysUnderCap(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay:  time.Second,
		MaxDelay:   2 * time.Second,
		Multiplier: 10.0,
		Jitter:     time.Second,
	}
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, cfg.DelayForAttempt(3), 2*time.Second)
	}
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("HTTP 429 from upstream")))
	assert.True(t, IsRateLimitError(errors.New("Quota exceeded for project")))
	assert.True(t, IsRateLimitError(errors.New("Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("rate limit hit")))
	assert.False(t, IsRateLimitError(errors.New("invalid api key")))
	assert.False(t, IsRateLimitError(nil))
}

func TestExecuteWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := ExecuteWithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "ok", nil
	}, nil, "test")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetryRecoversFromRateLimit(t *testing.T) {
	calls := 0
	result, err := ExecuteWithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 too many requests")
		}
		return "ok", nil
	}, nil, "test")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetryExhaustsRateLimit(t *testing.T) {
	calls := 0
	_, err := ExecuteWithRetry(context.Background(), fastRetryConfig(2), func() (string, error) {
		calls++
		return "", errors.New("quota exceeded")
	}, nil, "test")

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, RetryRateLimited, retryErr.Kind)
	assert.Equal(t, 2, retryErr.Attempts)
}

func TestExecuteWithRetryNonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	_, err := ExecuteWithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "", errors.New("invalid request payload")
	}, nil, "test")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, RetryNonRetryable, retryErr.Kind)
	assert.Equal(t, 1, retryErr.Attempts)
}

func TestExecuteWithRetryErrorHandlerOnExhaustion(t *testing.T) {
	handlerAttempts := 0
	result, err := ExecuteWithRetry(context.Background(), fastRetryConfig(3), func() (map[string]any, error) {
		return nil, errors.New("429")
	}, func(errMsg string, attempts int) map[string]any {
		handlerAttempts = attempts
		return RateLimitErrorPayload(attempts)
	}, "test")

	require.NoError(t, err)
	assert.Equal(t, 3, handlerAttempts)
	assert.Contains(t, result["error"], "Rate limit exceeded after 3 attempts")
	assert.Contains(t, result["suggestion"], "smaller batches")
}

func TestExecuteWithRetryErrorHandlerOnNonRetryable(t *testing.T) {
	handlerAttempts := 0
	result, err := ExecuteWithRetry(context.Background(), fastRetryConfig(3), func() (string, error) {
		return "", errors.New("bad image")
	}, func(errMsg string, attempts int) string {
		handlerAttempts = attempts
		return fmt.Sprintf("handled: %s", errMsg)
	}, "test")

	require.NoError(t, err)
	assert.Equal(t, 1, handlerAttempts)
	assert.Equal(t, "handled: bad image", result)
}

func TestExecuteWithRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetryConfig(3)
	cfg.InitialDelay = time.Second
	_, err := ExecuteWithRetry(ctx, cfg, func() (string, error) {
		t.Fatal("operation should not run after cancellation")
		return "", nil
	}, nil, "test")

	assert.ErrorIs(t, err, context.Canceled)
}
