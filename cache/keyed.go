package cache

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/jonwraymond/peddler/observe"
)

// LoadState is the bulk-load state of a Keyed cache.
type LoadState int

const (
	// LoadNotStarted means no bulk load has completed and none is running.
	LoadNotStarted LoadState = iota
	// LoadInProgress means the bulk load is running.
	LoadInProgress
	// LoadDone means the bulk load completed.
	LoadDone
)

func (s LoadState) String() string {
	switch s {
	case LoadInProgress:
		return "in_progress"
	case LoadDone:
		return "done"
	default:
		return "not_started"
	}
}

// SeqProducer yields a finite sequence of values. A non-nil error ends the
// sequence.
type SeqProducer[V any] func(ctx context.Context) iter.Seq2[V, error]

// Keyed holds a keyed collection that is filled once from a producer
// sequence and kept live by pushes.
//
// The bulk load runs at most once per instance; concurrent triggers join it.
// Each produced value goes through the same insert-and-broadcast step as
// Push, so later values overwrite earlier ones with the same key. A failed
// load keeps what it already inserted and returns the cache to
// LoadNotStarted.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: each observer sees entries in the order they were applied.
type Keyed[K comparable, V any] struct {
	produce SeqProducer[V]
	keyOf   func(V) K
	opts    options
	store   *Store[K, V]

	emitMu sync.Mutex

	mu      sync.Mutex
	state   LoadState
	current *episode[struct{}]

	subs registry[Entry[K, V]]
}

// NewKeyed creates a Keyed cache. keyOf derives each value's key.
func NewKeyed[K comparable, V any](keyOf func(V) K, produce SeqProducer[V], opts ...Option) *Keyed[K, V] {
	return &Keyed[K, V]{
		produce: produce,
		keyOf:   keyOf,
		opts:    newOptions(opts),
		store:   NewStore[K, V](),
	}
}

// All returns a sequence over every value once the bulk load has completed.
// Iterating triggers the load, or joins it if running. A failed load yields
// its error once. Iterating again never starts a second successful load.
func (c *Keyed[K, V]) All(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		if err := c.wait(ctx); err != nil {
			var zero V
			yield(zero, err)
			return
		}
		c.store.Range(func(_ K, v V) bool {
			return yield(v, nil)
		})
	}
}

// TryGetLocal returns the value for key from what is already held. It never
// loads or blocks on a load.
func (c *Keyed[K, V]) TryGetLocal(key K) (V, bool) {
	return c.store.Load(key)
}

// TryGetOrLoad waits for the bulk load, then looks key up. A miss after a
// completed load is reported as false with a nil error.
func (c *Keyed[K, V]) TryGetOrLoad(ctx context.Context, key K) (V, bool, error) {
	if err := c.wait(ctx); err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := c.store.Load(key)
	return v, ok, nil
}

// Push inserts or overwrites v and broadcasts it, whatever the load state.
func (c *Keyed[K, V]) Push(v V) {
	c.apply(c.keyOf(v), v)
}

// Update applies fn to the held value for key and pushes the result. It
// reports false, without calling fn, when key is not held.
func (c *Keyed[K, V]) Update(key K, fn func(V) V) (V, bool) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	cur, ok := c.store.Load(key)
	if !ok {
		return cur, false
	}
	next := fn(cur)
	c.store.Store(key, next)
	c.subs.notify(Entry[K, V]{Key: key, Value: next})
	return next, true
}

// Subscribe registers fn, replays every held entry to it and starts the
// bulk load if it has not started. fn then receives every later insertion.
func (c *Keyed[K, V]) Subscribe(ctx context.Context, fn Observer[Entry[K, V]]) *Subscription {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	s := c.subs.add(fn)
	c.store.Range(func(k K, v V) bool {
		fn(Entry[K, V]{Key: k, Value: v})
		return true
	})

	c.mu.Lock()
	if c.state == LoadNotStarted {
		c.startLocked(ctx)
	}
	c.mu.Unlock()

	return newSubscription(func() { c.subs.remove(s) })
}

// Len returns the number of held entries.
func (c *Keyed[K, V]) Len() int { return c.store.Len() }

// LoadState returns the bulk-load state.
func (c *Keyed[K, V]) LoadState() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loaded reports whether the bulk load has completed.
func (c *Keyed[K, V]) Loaded() bool { return c.LoadState() == LoadDone }

func (c *Keyed[K, V]) apply(key K, v V) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.store.Store(key, v)
	c.subs.notify(Entry[K, V]{Key: key, Value: v})
}

// wait triggers or joins the bulk load and blocks until it ends.
func (c *Keyed[K, V]) wait(ctx context.Context) error {
	c.mu.Lock()
	if c.state == LoadDone {
		c.mu.Unlock()
		return nil
	}
	ep := c.startLocked(ctx)
	c.mu.Unlock()

	select {
	case <-ep.done:
		return ep.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Keyed[K, V]) startLocked(ctx context.Context) *episode[struct{}] {
	if c.current != nil {
		return c.current
	}
	ep := &episode[struct{}]{done: make(chan struct{})}
	c.current = ep
	c.state = LoadInProgress
	go c.load(context.WithoutCancel(ctx), ep)
	return ep
}

func (c *Keyed[K, V]) load(ctx context.Context, ep *episode[struct{}]) {
	start := time.Now()
	err := c.consume(ctx)
	c.opts.metrics.RecordLoad(ctx, c.opts.name, time.Since(start), err)

	c.mu.Lock()
	c.current = nil
	if err != nil {
		c.state = LoadNotStarted
	} else {
		c.state = LoadDone
	}
	c.mu.Unlock()

	if err != nil {
		c.opts.logger.Warn(ctx, "bulk load failed",
			observe.F("error", err),
			observe.F("entries", c.store.Len()),
		)
	} else {
		c.opts.logger.Debug(ctx, "bulk load complete",
			observe.F("entries", c.store.Len()),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
		)
	}

	ep.err = err
	close(ep.done)
}

func (c *Keyed[K, V]) consume(ctx context.Context) error {
	if c.produce == nil {
		return ErrNoProducer
	}
	for v, err := range c.produce(ctx) {
		if err != nil {
			return err
		}
		c.apply(c.keyOf(v), v)
	}
	return nil
}
