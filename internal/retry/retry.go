package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // linear growth: attempt * Delay
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. WithRetry returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithRetry calls fn until it succeeds, returns a Permanent error, the
// attempts run out or ctx is done.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt == config.MaxAttempts {
			if config.MaxAttempts == 1 {
				return err
			}
			return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
		}

		delay := config.Delay
		if config.Backoff {
			delay = time.Duration(attempt) * config.Delay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// Backoff computes exponential delays with ±JitterPct jitter, clamped to
// [Min, Max].
type Backoff struct {
	Min       time.Duration
	Max       time.Duration
	JitterPct int
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		attempt = 30
	}

	exponential := b.Min * time.Duration(1<<uint(attempt-1))
	if exponential > b.Max || exponential <= 0 {
		exponential = b.Max
	}

	jitterRange := float64(exponential) * float64(b.JitterPct) / 100
	jitter := (rand.Float64() - 0.5) * 2 * jitterRange
	final := time.Duration(float64(exponential) + jitter)

	if final < b.Min {
		final = b.Min
	}
	if final > b.Max {
		final = b.Max
	}
	return final
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
