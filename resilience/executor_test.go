package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	var called bool
	err := NewExecutor().Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Execute() = %v, called = %v; want nil, true", err, called)
	}
}

func TestExecutor_RetryWrapsEachAttemptTimeout(t *testing.T) {
	var calls int
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, Sleep: noSleep})),
		WithTimeout(5*time.Millisecond),
	)

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecutor_RateLimiterPacesRetries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})
	var calls int
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts: 5,
			Sleep:       noSleep,
			RetryIf:     func(err error) bool { return errors.Is(err, errTransient) },
		})),
		WithRateLimiter(rl),
	)

	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Execute() error = %v, want ErrRateLimitExceeded", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestExecutor_Bulkhead(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	e := NewExecutor(WithBulkhead(b))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		if b.Active() != 1 {
			t.Errorf("Active() = %d inside op, want 1", b.Active())
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if e.Retry() != nil {
		t.Error("Retry() = non-nil, want nil")
	}
}
