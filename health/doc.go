// Package health reports whether a client can currently do useful work.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. The client
// registers two checkers on an Aggregator: one probing the API's status
// endpoint (EndpointChecker) and one inspecting the agent token's claims.
//
// # Aggregating Health Checks
//
//	agg := health.NewAggregator()
//	agg.Register("api", health.NewEndpointChecker("api", httpClient, baseURL))
//	agg.Register("token", tokenChecker)
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// A rate-limited probe reports Degraded: the API is up, calls will be
// slowed down by retries.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health
package health
