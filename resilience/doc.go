// Package resilience provides the retry, pacing and concurrency limits applied
// around each logical API call.
//
// # Patterns
//
//   - Retry: re-runs an operation with configurable backoff. The delay can be
//     taken from the error itself (a server Retry-After hint), and the attempt
//     count can be unlimited for services that always eventually accept.
//
//   - Rate Limiter: a token bucket that paces outbound attempts so the client
//     stays under the service's published request rate.
//
//   - Bulkhead: limits the number of attempts in flight at once.
//
//   - Timeout: bounds a single attempt.
//
// # Usage
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: resilience.UnlimitedAttempts,
//	    Strategy:    resilience.BackoffConstant,
//	    InitialDelay: 2 * time.Second,
//	    RetryIf:     isRateLimited,
//	    DelayFor:    retryAfterHint,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(retry),
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate: 2, Burst: 10, WaitOnLimit: true,
//	    })),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callAPI(ctx)
//	})
package resilience
