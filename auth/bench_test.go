package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func BenchmarkParseAgentToken(b *testing.B) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AgentClaims{Identifier: "PEDDLER"}).
		SignedString([]byte("key"))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseAgentToken(token)
	}
}

func BenchmarkBearerTransport_RoundTrip(b *testing.B) {
	base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
	rt := &BearerTransport{Token: "tok", Base: base}
	req := httptest.NewRequest(http.MethodGet, "https://api.example.test/my/agent", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = rt.RoundTrip(req)
	}
}
