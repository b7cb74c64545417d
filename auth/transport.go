package auth

import "net/http"

// BearerTransport is an http.RoundTripper that authorizes each request with
// a bearer token.
//
// An empty Token forwards requests untouched, which is what unauthenticated
// endpoints (registration, faction listings) need.
type BearerTransport struct {
	Token string

	// Base is the transport requests are forwarded to.
	// Default: http.DefaultTransport
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token == "" {
		return t.base().RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+t.Token)
	return t.base().RoundTrip(out)
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

var _ http.RoundTripper = (*BearerTransport)(nil)
