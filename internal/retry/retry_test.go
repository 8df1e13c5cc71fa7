package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("run still in progress")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Backoff: true}, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want wrapped sentinel", err)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("error %q should mention attempts", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetryPermanent(t *testing.T) {
	sentinel := errors.New("budget exhausted")
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 5, Delay: time.Millisecond}, func() error {
		calls++
		return Permanent(sentinel)
	})
	if err != sentinel {
		t.Errorf("error = %v, want sentinel unwrapped", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, RetryConfig{MaxAttempts: 3, Delay: time.Hour}, func() error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Min: 250 * time.Millisecond, Max: 2 * time.Second, JitterPct: 20}

	for attempt := 1; attempt <= 8; attempt++ {
		d := b.Delay(attempt)
		if d < b.Min || d > b.Max {
			t.Errorf("Delay(%d) = %v, out of [%v, %v]", attempt, d, b.Min, b.Max)
		}
	}

	noJitter := Backoff{Min: 100 * time.Millisecond, Max: time.Second}
	if got := noJitter.Delay(3); got != 400*time.Millisecond {
		t.Errorf("Delay(3) = %v, want 400ms", got)
	}
}
