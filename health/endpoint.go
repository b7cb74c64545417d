package health

import (
	"context"
	"fmt"
	"net/http"
)

// EndpointChecker probes an HTTP endpoint with GET.
//
// 2xx is Healthy, 429 is Degraded, anything else (or a transport error) is
// Unhealthy.
type EndpointChecker struct {
	name   string
	client *http.Client
	url    string
}

// NewEndpointChecker creates a checker for url. A nil client uses
// http.DefaultClient.
func NewEndpointChecker(name string, client *http.Client, url string) *EndpointChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &EndpointChecker{name: name, client: client, url: url}
}

// Name returns the name of this checker.
func (c *EndpointChecker) Name() string { return c.name }

// Check performs the probe.
func (c *EndpointChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Unhealthy("invalid endpoint", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Unhealthy("endpoint unreachable", err)
	}
	defer resp.Body.Close()

	details := map[string]any{"status_code": resp.StatusCode}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Healthy("endpoint reachable").WithDetails(details)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Degraded("endpoint rate limited").WithDetails(details)
	default:
		return Unhealthy("endpoint returned an error",
			fmt.Errorf("%w: status %d", ErrCheckFailed, resp.StatusCode)).WithDetails(details)
	}
}

var _ Checker = (*EndpointChecker)(nil)
