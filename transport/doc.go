// Package transport provides the outbound HTTP layer shared by every cache
// of a client.
//
// Two pieces live here:
//
//   - Deduplicator is an http.RoundTripper that coalesces concurrent
//     identical requests into one network call and hands every caller an
//     independent copy of the response.
//   - RetryPolicy wraps one logical API call and retries it whenever it
//     fails with a *RateLimitError, sleeping for the server's Retry-After
//     hint or a fixed fallback.
//
// The retry policy deliberately sits above the round tripper: a coalesced
// round trip is never retried on behalf of a single waiter.
//
// # Usage
//
//	rt := transport.NewDeduplicator(http.DefaultTransport,
//		transport.WithLogger(logger),
//		transport.WithMetrics(metrics),
//	)
//	hc := &http.Client{Transport: rt}
//
//	policy := transport.DefaultRetryPolicy()
//	ship, err := transport.Retry(ctx, policy, func(ctx context.Context) (Ship, error) {
//		return fetchShip(ctx, hc, "SHIP-1")
//	})
package transport
