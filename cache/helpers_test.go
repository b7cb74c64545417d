package cache

import (
	"sync"
	"testing"
	"time"
)

// recorder collects observed values from any goroutine.
type recorder[T any] struct {
	mu     sync.Mutex
	got    []T
	signal chan struct{}
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{signal: make(chan struct{}, 1024)}
}

func (r *recorder[T]) observe(v T) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.got))
	copy(out, r.got)
	return out
}

// waitN blocks until at least n values have been observed.
func (r *recorder[T]) waitN(t *testing.T, n int) []T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got := r.values(); len(got) >= n {
			return got
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("observed %d values, want %d", len(r.values()), n)
		}
	}
}

type ship struct {
	Symbol string
	Fuel   int
}

func shipSymbol(s ship) string { return s.Symbol }
