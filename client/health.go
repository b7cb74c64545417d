package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/peddler/api"
	"github.com/jonwraymond/peddler/auth"
	"github.com/jonwraymond/peddler/health"
)

// Health returns the aggregator holding the client's checks: "api" probes
// the API status endpoint, "token" checks the agent token.
func (c *Client) Health() *health.Aggregator { return c.checks }

func (c *Client) newHealth() *health.Aggregator {
	agg := health.NewAggregator()
	agg.Register("api", health.NewEndpointChecker("api", c.public.HTTPClient(), c.public.BaseURL()))
	agg.Register("token", health.NewCheckerFunc("token", c.checkToken))
	return agg
}

func (c *Client) checkToken(ctx context.Context) health.Result {
	if c.token == "" {
		return health.Degraded("no agent token, public endpoints only")
	}

	claims, err := auth.ParseAgentToken(c.token)
	if err != nil {
		return health.Unhealthy("agent token unreadable", err)
	}
	details := map[string]any{"agent": claims.Identifier}
	if claims.ResetDate != "" {
		details["reset_date"] = claims.ResetDate
	}
	if claims.Expired(time.Now()) {
		return health.Unhealthy("agent token expired", auth.ErrTokenExpired).WithDetails(details)
	}

	if _, err := c.fetchAgent(ctx); err != nil {
		if isUnauthorized(err) {
			return health.Unhealthy("agent token rejected", err).WithDetails(details)
		}
		return health.Degraded("agent token not confirmed").WithDetails(details)
	}
	return health.Healthy("agent token accepted").WithDetails(details)
}

func isUnauthorized(err error) bool {
	var se *api.StatusError
	return errors.As(err, &se) &&
		(se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}
