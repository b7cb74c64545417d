package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/peddler/health"
)

func ExampleNewCheckerFunc() {
	token := health.NewCheckerFunc("token", func(ctx context.Context) health.Result {
		return health.Healthy("token valid")
	})

	result := token.Check(context.Background())

	fmt.Println("Checker name:", token.Name())
	fmt.Println("Status:", result.Status)
	fmt.Println("Message:", result.Message)
	// Output:
	// Checker name: token
	// Status: healthy
	// Message: token valid
}

func ExampleNewEndpointChecker() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	checker := health.NewEndpointChecker("api", srv.Client(), srv.URL)
	result := checker.Check(context.Background())

	fmt.Println("Status:", result.Status)
	fmt.Println("Message:", result.Message)
	// Output:
	// Status: degraded
	// Message: endpoint rate limited
}

func ExampleAggregator_CheckAll() {
	agg := health.NewAggregator()
	agg.Register("api", health.NewCheckerFunc("api", func(ctx context.Context) health.Result {
		return health.Healthy("endpoint reachable")
	}))
	agg.Register("token", health.NewCheckerFunc("token", func(ctx context.Context) health.Result {
		return health.Degraded("token expires soon")
	}))

	results := agg.CheckAll(context.Background())
	for _, name := range agg.CheckerNames() {
		fmt.Printf("%s: %s\n", name, results[name].Status)
	}
	fmt.Println("Overall:", agg.OverallStatus(results))
	// Output:
	// api: healthy
	// token: degraded
	// Overall: degraded
}

func ExampleRegisterHandlers() {
	agg := health.NewAggregator()
	agg.Register("api", health.NewCheckerFunc("api", func(ctx context.Context) health.Result {
		return health.Unhealthy("endpoint unreachable", nil)
	}))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)

	for _, path := range []string{"/healthz", "/readyz", "/health/api"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		fmt.Println(path, rec.Code)
	}
	// Output:
	// /healthz 200
	// /readyz 503
	// /health/api 503
}
