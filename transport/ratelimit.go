package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/peddler/observe"
	"github.com/jonwraymond/peddler/resilience"
)

// DefaultFallbackDelay is the wait before retrying a rate-limited call that
// carried no usable Retry-After hint.
const DefaultFallbackDelay = 2 * time.Second

// RateLimitError reports that the server refused a call because of rate
// limiting. RetryPolicy retries calls failing with it.
type RateLimitError struct {
	// RetryAfter is the server's hint, valid only when HasHint is set.
	RetryAfter time.Duration
	HasHint    bool
	// Status is the HTTP status that carried the refusal.
	Status int
}

func (e *RateLimitError) Error() string {
	if e.HasHint {
		return fmt.Sprintf("transport: rate limited (status %d, retry after %s)", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("transport: rate limited (status %d)", e.Status)
}

// IsRateLimited reports whether err is, or wraps, a *RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// RateLimitFromResponse returns a *RateLimitError for a 429 response, or nil.
func RateLimitFromResponse(resp *http.Response) *RateLimitError {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	d, ok := ParseRetryAfter(resp.Header.Get("Retry-After"))
	return &RateLimitError{RetryAfter: d, HasHint: ok, Status: resp.StatusCode}
}

// ParseRetryAfter parses a Retry-After value given as a number of seconds,
// fractions allowed. Any other form, HTTP dates included, yields no hint.
func ParseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, false
	}
	if secs > math.MaxInt64/float64(time.Second) {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// RetryPolicy retries one logical API call while it fails with a
// *RateLimitError. Any other failure is returned immediately.
//
// The zero value is usable: unlimited attempts, no overall timeout and
// DefaultFallbackDelay. Waits always end early when the call's context ends.
type RetryPolicy struct {
	// FallbackDelay is used when the error carries no hint.
	// Default: DefaultFallbackDelay
	FallbackDelay time.Duration

	// MaxAttempts bounds the number of attempts. Zero or negative means
	// unlimited.
	MaxAttempts int

	// Timeout bounds the whole call, waits included. Zero means none.
	Timeout time.Duration

	// AttemptTimeout bounds each attempt. Zero means none.
	AttemptTimeout time.Duration

	// Pacer, when set, paces every attempt.
	Pacer *resilience.RateLimiter

	// Bulkhead, when set, limits concurrent attempts.
	Bulkhead *resilience.Bulkhead

	Logger  observe.Logger
	Metrics observe.Metrics

	// Sleep replaces the wait between attempts. Tests use it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{FallbackDelay: DefaultFallbackDelay}
}

// Delay returns how long to wait after err.
func (p RetryPolicy) Delay(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.HasHint {
		return rl.RetryAfter
	}
	if p.FallbackDelay > 0 {
		return p.FallbackDelay
	}
	return DefaultFallbackDelay
}

// Do runs fn under the policy.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	logger := p.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = observe.NopMetrics()
	}

	attempts := resilience.UnlimitedAttempts
	if p.MaxAttempts > 0 {
		attempts = p.MaxAttempts
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: attempts,
		Timeout:     p.Timeout,
		RetryIf:     IsRateLimited,
		DelayFor: func(_ int, err error) (time.Duration, bool) {
			return p.Delay(err), true
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			metrics.RecordRateLimited(ctx, delay)
			logger.Warn(ctx, "rate limited, retrying",
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.F("error", err),
			)
		},
		Sleep: p.Sleep,
	})

	opts := []resilience.ExecutorOption{resilience.WithRetry(retry)}
	if p.Pacer != nil {
		opts = append(opts, resilience.WithRateLimiter(p.Pacer))
	}
	if p.Bulkhead != nil {
		opts = append(opts, resilience.WithBulkhead(p.Bulkhead))
	}
	if p.AttemptTimeout > 0 {
		opts = append(opts, resilience.WithTimeout(p.AttemptTimeout))
	}
	return resilience.NewExecutor(opts...).Execute(ctx, fn)
}

// Retry runs fn under p and returns its value.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
