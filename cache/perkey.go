package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// KeyProducer fetches the value for one key.
type KeyProducer[K comparable, V any] func(ctx context.Context, key K) (V, error)

// PerKey owns one Value per key, created on first reference.
//
// The first Lookup of a key starts exactly one fetch for it; later lookups
// share that Value. Set writes a key without ever fetching it. Global
// observers receive every (key, value) published by any key's Value,
// including keys created after they subscribed.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: events for one key arrive in order; no order holds across keys.
type PerKey[K comparable, V any] struct {
	fetch KeyProducer[K, V]
	opts  options

	mu      sync.Mutex
	values  map[K]*Value[V]
	globals []*forwarder[K, V]
}

// NewPerKey creates a PerKey cache. fetch may be nil for caches filled only
// through Set.
func NewPerKey[K comparable, V any](fetch KeyProducer[K, V], opts ...Option) *PerKey[K, V] {
	return &PerKey[K, V]{
		fetch:  fetch,
		opts:   newOptions(opts),
		values: make(map[K]*Value[V]),
	}
}

// Lookup returns the Value for key, creating it and starting its fetch if
// needed.
func (c *PerKey[K, V]) Lookup(ctx context.Context, key K) *Value[V] {
	v := c.getOrCreate(key)
	v.ensure(ctx)
	return v
}

// Get is Lookup(ctx, key).Get(ctx).
func (c *PerKey[K, V]) Get(ctx context.Context, key K) (V, error) {
	return c.Lookup(ctx, key).Get(ctx)
}

// Set pushes v as the value for key, creating the key's Value if absent.
// It never fetches.
func (c *PerKey[K, V]) Set(key K, v V) {
	c.getOrCreate(key).Push(v)
}

// Peek returns the held value for key without fetching.
func (c *PerKey[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	v, ok := c.values[key]
	c.mu.Unlock()
	if !ok {
		var zero V
		return zero, false
	}
	return v.Peek()
}

// Keys returns every key that has a Value, in no particular order.
func (c *PerKey[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Keys(c.values)
}

// Subscribe registers fn for every key, present and future. Keys holding a
// value are replayed to fn. Subscribing never starts a fetch. Releasing the
// subscription detaches fn from every key at once.
func (c *PerKey[K, V]) Subscribe(fn Observer[Entry[K, V]]) *Subscription {
	f := &forwarder[K, V]{fn: fn, handles: make(map[K]*Subscription)}

	c.mu.Lock()
	c.globals = append(slices.Clip(c.globals), f)
	existing := make(map[K]*Value[V], len(c.values))
	for k, v := range c.values {
		existing[k] = v
	}
	c.mu.Unlock()

	for k, v := range existing {
		f.wire(k, v, true)
	}

	return newSubscription(func() {
		c.mu.Lock()
		c.globals = slices.DeleteFunc(slices.Clone(c.globals), func(o *forwarder[K, V]) bool { return o == f })
		c.mu.Unlock()
		f.close()
	})
}

func (c *PerKey[K, V]) getOrCreate(key K) *Value[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.values[key]; ok {
		return v
	}

	var produce Producer[V]
	if c.fetch != nil {
		produce = func(ctx context.Context) (V, error) { return c.fetch(ctx, key) }
	}
	v := &Value[V]{produce: produce, opts: c.opts}
	c.values[key] = v

	// The Value is not yet visible to anyone else, so wiring under c.mu
	// cannot contend on its emitMu.
	for _, f := range c.globals {
		f.wire(key, v, false)
	}
	return v
}

// forwarder is one global observer's set of per-key subscriptions.
type forwarder[K comparable, V any] struct {
	fn Observer[Entry[K, V]]

	mu      sync.Mutex
	closed  bool
	handles map[K]*Subscription
}

// wire subscribes f to v once. It is a no-op after close or when key is
// already wired.
func (f *forwarder[K, V]) wire(key K, v *Value[V], replay bool) {
	f.mu.Lock()
	if _, ok := f.handles[key]; ok || f.closed {
		f.mu.Unlock()
		return
	}
	f.handles[key] = nil
	f.mu.Unlock()

	h := v.watch(context.Background(), func(val V) {
		f.fn(Entry[K, V]{Key: key, Value: val})
	}, replay, false)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		h.Unsubscribe()
		return
	}
	f.handles[key] = h
	f.mu.Unlock()
}

func (f *forwarder[K, V]) close() {
	f.mu.Lock()
	f.closed = true
	handles := f.handles
	f.handles = nil
	f.mu.Unlock()

	for _, h := range handles {
		h.Unsubscribe()
	}
}
