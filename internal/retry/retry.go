// Package retry runs network calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/source-ingest/internal/domain"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config holds retry configuration
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout bounds each attempt; zero means only the parent deadline applies.
	AttemptTimeout time.Duration
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// ShouldRetryStatus determines if an HTTP status is worth another attempt
func ShouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusBadGateway: // 502
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	default:
		return false
	}
}

// Backoff calculates exponential backoff duration
func Backoff(attempt int, cfg Config) time.Duration {
	// Exponential backoff: initialBackoff * 2^attempt
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))

	// Cap at maxBackoff
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	return time.Duration(backoff)
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempts
// run out. Retryability is decided by domain.IsRetryable. A per-attempt
// deadline breach is reported as retryable; cancellation of ctx is returned as is.
func Do(ctx context.Context, cfg Config, logger zerolog.Logger, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = runAttempt(ctx, cfg.AttemptTimeout, op)
		if lastErr == nil {
			return nil
		}

		// Parent context ended: do not mask it as a provider failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Invalid model output is left to the caller.
		if !domain.IsRetryable(lastErr) || errors.Is(lastErr, domain.ErrInvalidModelResponse) {
			return lastErr
		}

		// Don't wait after last attempt
		if attempt == cfg.MaxRetries {
			break
		}

		backoff := Backoff(attempt, cfg)
		logger.Warn().
			Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_retries", cfg.MaxRetries).
			Dur("backoff", backoff).
			Msg("request failed, retrying")

		// Wait with context cancellation support
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if cfg.MaxRetries == 0 {
		return lastErr
	}
	return domain.RetryableAPIError(fmt.Sprintf("request failed after %d retries", cfg.MaxRetries), lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.RetryableAPIError(fmt.Sprintf("attempt exceeded %s deadline", timeout), err)
	}
	return err
}

// StatusError converts a non-2xx HTTP status into a domain error, retryable
// when ShouldRetryStatus says so.
func StatusError(statusCode int, body string) error {
	msg := fmt.Sprintf("HTTP %d: %s", statusCode, body)
	if ShouldRetryStatus(statusCode) {
		return domain.RetryableAPIError(msg, nil)
	}
	return domain.APIError(msg, nil)
}

// TransportError wraps a failure to reach the server as retryable.
func TransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.RetryableAPIError("request failed", err)
}
