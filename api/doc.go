// Package api performs logical calls against the game's JSON HTTP API.
//
// Every call goes through three layers:
//
//   - observe.Middleware opens a span, records the call metric and logs
//     failures.
//   - transport.RetryPolicy retries the call while the server answers 429,
//     waiting for the Retry-After hint or the fallback delay.
//   - the http.Client's transport (normally auth.BearerTransport in front of
//     a transport.Deduplicator) performs each attempt.
//
// Responses are unwrapped from the {"data": ..., "meta": ...} envelope.
// Non-2xx responses other than 429 become *StatusError and are not retried.
//
// Pages turns a paginated listing into an iter.Seq2 that requests pages on
// demand, which is the shape cache.Keyed consumes.
package api
