package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config holds the reusable retry policy applied to browser navigation and
// other flaky remote operations.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
	Retryable     func(error) bool
	Logger        *zap.Logger
}

// DefaultConfig returns the policy used when a caller has no special needs.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  2 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		Logger:        zap.NewNop(),
	}
}

// Navigation returns the policy for page loads: every failure class the
// session controller reports (bad status, timeout, block cooldown) is
// retryable, and the backoff base matches the dashboard's observed rate
// limiting behavior.
func Navigation(maxAttempts int, base time.Duration, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Config{
		MaxAttempts:   maxAttempts,
		InitialDelay:  base,
		MaxDelay:      2 * time.Minute,
		BackoffFactor: 2.0,
		Jitter:        false,
		Logger:        logger,
	}
}

// RetryableStatus reports whether an HTTP status code should trigger a
// backoff-and-retry cycle. 429 and 403 are the dashboard's rate-limit and
// soft-block responses; any other >=400 is treated the same way.
func RetryableStatus(code int) bool {
	return code == 429 || code == 403 || code >= 400
}

// Do executes fn under the policy. The returned error is the last attempt's
// error wrapped with the attempt count; callers downgrade it to a skipped
// step rather than aborting the run.
func Do(ctx context.Context, config Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				config.Logger.Info("operation succeeded after retry",
					zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		if config.Retryable != nil && !config.Retryable(err) {
			config.Logger.Warn("non-retryable error",
				zap.Error(err), zap.Int("attempt", attempt))
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := Delay(attempt, config)
		config.Logger.Warn("operation failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", config.MaxAttempts),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// Delay computes the exponential backoff for the given attempt (1-based):
// initial * factor^(attempt-1), capped at MaxDelay, with optional ±10% jitter.
func Delay(attempt int, config Config) time.Duration {
	d := float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt-1))
	if d > float64(config.MaxDelay) {
		d = float64(config.MaxDelay)
	}
	if config.Jitter {
		d += d * 0.1 * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}
