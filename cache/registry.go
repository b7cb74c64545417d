package cache

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Observer receives the values a cache publishes. Observers are called
// synchronously, in the order events were applied to the cache, and must not
// call Push, Set or Subscribe on the same cache instance.
type Observer[T any] func(T)

// Entry is one keyed value published by Keyed and PerKey caches.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe stops delivery to the observer. It is idempotent and removes
// only this subscription's registration. Values already delivered are not
// retracted.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// subscriber is one registration in a registry.
type subscriber[T any] struct {
	fn     Observer[T]
	active atomic.Bool
}

// registry holds the observers of one cache instance. The slice is replaced,
// never mutated, so notify can iterate a snapshot without holding mu.
type registry[T any] struct {
	mu   sync.Mutex
	subs []*subscriber[T]
}

func (r *registry[T]) add(fn Observer[T]) *subscriber[T] {
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)

	r.mu.Lock()
	r.subs = append(slices.Clip(r.subs), s)
	r.mu.Unlock()
	return s
}

func (r *registry[T]) remove(s *subscriber[T]) {
	s.active.Store(false)

	r.mu.Lock()
	r.subs = slices.DeleteFunc(slices.Clone(r.subs), func(o *subscriber[T]) bool { return o == s })
	r.mu.Unlock()
}

func (r *registry[T]) notify(v T) {
	r.mu.Lock()
	subs := r.subs
	r.mu.Unlock()

	for _, s := range subs {
		if s.active.Load() {
			s.fn(v)
		}
	}
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
