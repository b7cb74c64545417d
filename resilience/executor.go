package resilience

import (
	"context"
	"time"
)

// Executor composes the resilience patterns around one logical call.
type Executor struct {
	retry       *Retry
	rateLimiter *RateLimiter
	bulkhead    *Bulkhead
	timeout     *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter paces attempts through rl.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead limits concurrent attempts.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each attempt.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout}) }
}

// Execute runs op through the configured patterns.
//
// Retry is outermost so that every attempt is paced and limited again:
//  1. Retry (if configured)
//  2. Rate Limiter (if configured)
//  3. Bulkhead (if configured)
//  4. Timeout (if configured), per attempt
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := op

	if e.timeout != nil {
		inner := attempt
		attempt = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.bulkhead != nil {
		inner := attempt
		attempt = func(ctx context.Context) error { return e.bulkhead.Execute(ctx, inner) }
	}
	if e.rateLimiter != nil {
		inner := attempt
		attempt = func(ctx context.Context) error { return e.rateLimiter.Execute(ctx, inner) }
	}

	if e.retry != nil {
		return e.retry.Execute(ctx, attempt)
	}
	return attempt(ctx)
}

// Retry returns the executor's retry policy, if any.
func (e *Executor) Retry() *Retry { return e.retry }
