package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls ExecuteWithRetry. The zero value is not usable; use
// DefaultRetryConfig or build one from Settings.
type RetryConfig struct {
	MaxAttempts int
	// InitialDelay is the pause taken before the very first attempt.
	InitialDelay time.Duration
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter adds up to this much randomness to each backoff delay.
	Jitter time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		BaseDelay:    2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       time.Second,
	}
}

func RetryConfigFromSettings(settings Settings) RetryConfig {
	cfg := DefaultRetryConfig()
	if settings.RetryMaxAttempts > 0 {
		cfg.MaxAttempts = settings.RetryMaxAttempts
	}
	cfg.InitialDelay = settings.RetryInitialDelay
	if settings.RetryBaseDelay > 0 {
		cfg.BaseDelay = settings.RetryBaseDelay
	}
	if settings.RetryMaxDelay > 0 {
		cfg.MaxDelay = settings.RetryMaxDelay
	}
	if settings.RetryMultiplier > 0 {
		cfg.Multiplier = settings.RetryMultiplier
	}
	return cfg
}

type RetryErrorKind string

const (
	RetryRateLimited  RetryErrorKind = "rate_limited"
	RetryNonRetryable RetryErrorKind = "non_retryable"
)

// RetryError is returned when no error handler is installed and the operation
// either exhausted its rate-limit retries or failed with a non-retryable error.
type RetryError struct {
	Kind     RetryErrorKind
	Attempts int
	LastErr  error
}

func (e *RetryError) Error() string {
	if e.Kind == RetryRateLimited {
		return fmt.Sprintf("rate limit exceeded after %d attempts: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("non-retryable error on attempt %d: %v", e.Attempts, e.LastErr)
}

func (e *RetryError) Unwrap() error { return e.LastErr }

// IsRateLimitError reports whether err looks like a provider rate-limit or
// quota failure, by case-insensitive substring match.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}

// DelayForAttempt returns the pause taken before attempt (0-based): the
// initial delay for attempt 0, otherwise base * multiplier^attempt plus
// jitter, capped at MaxDelay.
func (cfg RetryConfig) DelayForAttempt(attempt int) time.Duration {
	if attempt == 0 {
		return cfg.InitialDelay
	}
	delay := float64(cfg.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= cfg.Multiplier
	}
	d := time.Duration(delay)
	if cfg.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(cfg.Jitter)))
	}
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExecuteWithRetry runs operation up to cfg.MaxAttempts times, sleeping
// DelayForAttempt before each attempt, so rate-limited attempts back off
// exponentially. Errors that do not look like rate limits stop the loop
// immediately.
//
// When errorHandler is non-nil it is invoked instead of returning an error:
// with (message, attemptNumber) on a non-retryable failure and
// (message, MaxAttempts) on exhaustion, and its return value becomes the
// result. opContext tags log lines.
func ExecuteWithRetry[T any](
	ctx context.Context,
	cfg RetryConfig,
	operation func() (T, error),
	errorHandler func(errMsg string, attempts int) T,
	opContext string,
) (T, error) {
	var zero T

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		delay := cfg.DelayForAttempt(attempt)
		if attempt > 0 {
			log.Printf("[%v] rate limit hit, waiting %v before retry %d/%d",
				opContext, delay, attempt+1, cfg.MaxAttempts)
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return zero, err
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRateLimitError(err) {
			log.Printf("[%v] non-retryable error on attempt %d: %v", opContext, attempt+1, err)
			if errorHandler != nil {
				return errorHandler(err.Error(), attempt+1), nil
			}
			return zero, &RetryError{Kind: RetryNonRetryable, Attempts: attempt + 1, LastErr: err}
		}
	}

	log.Printf("[%v] rate limit exceeded after %d attempts: %v", opContext, cfg.MaxAttempts, lastErr)
	if errorHandler != nil {
		return errorHandler(lastErr.Error(), cfg.MaxAttempts), nil
	}
	return zero, &RetryError{Kind: RetryRateLimited, Attempts: cfg.MaxAttempts, LastErr: lastErr}
}

// RateLimitErrorPayload is the structured result surfaced to clients when a
// provider call exhausts its rate-limit budget.
func RateLimitErrorPayload(maxAttempts int) map[string]any {
	return map[string]any{
		"error": fmt.Sprintf(
			"Rate limit exceeded after %d attempts. Please wait a few minutes before trying again.",
			maxAttempts),
		"suggestion": "Consider processing requests in smaller batches or with longer intervals between requests.",
	}
}
