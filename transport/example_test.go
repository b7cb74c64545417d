package transport_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/peddler/transport"
)

func ExampleParseRetryAfter() {
	d, ok := transport.ParseRetryAfter("1.5")
	fmt.Println(d, ok)

	_, ok = transport.ParseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT")
	fmt.Println(ok)
	// Output:
	// 1.5s true
	// false
}

func ExampleRetry() {
	policy := transport.DefaultRetryPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }

	attempts := 0
	v, err := transport.Retry(context.Background(), policy, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &transport.RateLimitError{Status: http.StatusTooManyRequests}
		}
		return "accepted", nil
	})
	fmt.Println(v, err, attempts)
	// Output: accepted <nil> 3
}
