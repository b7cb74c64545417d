// Package auth attaches agent credentials to outgoing requests and reads
// what an agent token says about itself.
//
// BearerTransport sets "Authorization: Bearer <token>" on every request it
// forwards. ParseAgentToken decodes the claims of an agent token without
// verifying its signature; the API is the only party that can verify it,
// so the claims are informational (agent symbol, reset date, issue time).
//
//	rt := &auth.BearerTransport{Token: token, Base: http.DefaultTransport}
//	claims, err := auth.ParseAgentToken(token)
package auth
