package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/peddler/observe"
)

// State is the lifecycle state of a Value.
type State int

const (
	// StateEmpty means no value is held and no load is running.
	StateEmpty State = iota
	// StateLoading means a load episode is running.
	StateLoading
	// StateReady means a value is held.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// Producer fetches one value.
type Producer[V any] func(ctx context.Context) (V, error)

// episode is one run of a producer. Fields are written once before done is
// closed and only read after.
type episode[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Value memoizes a single remotely produced value and multicasts updates.
//
// The producer runs at most once per episode no matter how many callers ask
// concurrently. A failed episode is reported to everyone who joined it and
// leaves the Value Empty, so the next Get starts over. Push overwrites the
// value at any time; a Push landing while an episode is loading wins, and
// that episode's waiters receive the pushed value.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: each observer sees events in the order they were applied.
type Value[V any] struct {
	produce Producer[V]
	opts    options

	// emitMu serializes applying an event with notifying observers.
	emitMu sync.Mutex

	mu      sync.Mutex
	state   State
	value   V
	current *episode[V]

	subs registry[V]
}

// NewValue creates an Empty Value backed by produce.
func NewValue[V any](produce Producer[V], opts ...Option) *Value[V] {
	return &Value[V]{produce: produce, opts: newOptions(opts)}
}

// Get returns the value, loading it first if the Value is Empty.
//
// If ctx ends while waiting, Get returns ctx.Err(); the load keeps running
// for the other waiters.
func (c *Value[V]) Get(ctx context.Context) (V, error) {
	c.mu.Lock()
	if c.state == StateReady {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	ep := c.startLocked(ctx)
	c.mu.Unlock()

	select {
	case <-ep.done:
		return ep.val, ep.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Peek returns the value without loading.
func (c *Value[V]) Peek() (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.state == StateReady
}

// State returns the current state.
func (c *Value[V]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Push sets the value and notifies every observer, whatever the prior state.
func (c *Value[V]) Push(v V) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.value = v
	c.state = StateReady
	c.mu.Unlock()

	c.subs.notify(v)
}

// Subscribe registers fn. If a value is held fn receives it immediately;
// if the Value is Empty a load is started. fn then receives every later
// Push and load result until the subscription is released.
func (c *Value[V]) Subscribe(ctx context.Context, fn Observer[V]) *Subscription {
	return c.watch(ctx, fn, true, true)
}

// watch registers fn, optionally replaying the held value and starting a load
// when Empty.
func (c *Value[V]) watch(ctx context.Context, fn Observer[V], replay, load bool) *Subscription {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	s := c.subs.add(fn)

	c.mu.Lock()
	state, v := c.state, c.value
	if state == StateEmpty && load {
		c.startLocked(ctx)
	}
	c.mu.Unlock()

	if replay && state == StateReady {
		fn(v)
	}
	return newSubscription(func() { c.subs.remove(s) })
}

// ensure starts a load if the Value is Empty.
func (c *Value[V]) ensure(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateReady {
		c.startLocked(ctx)
	}
	c.mu.Unlock()
}

// startLocked returns the running episode, starting one if needed.
// c.mu must be held and the state must not be Ready.
func (c *Value[V]) startLocked(ctx context.Context) *episode[V] {
	if c.current != nil {
		return c.current
	}
	ep := &episode[V]{done: make(chan struct{})}
	c.current = ep
	c.state = StateLoading
	go c.load(context.WithoutCancel(ctx), ep)
	return ep
}

func (c *Value[V]) load(ctx context.Context, ep *episode[V]) {
	start := time.Now()
	var (
		v   V
		err error
	)
	if c.produce == nil {
		err = ErrNoProducer
	} else {
		v, err = c.produce(ctx)
	}
	c.opts.metrics.RecordLoad(ctx, c.opts.name, time.Since(start), err)

	if err != nil {
		c.mu.Lock()
		c.current = nil
		pushed := c.state == StateReady
		if pushed {
			v = c.value
		} else {
			c.state = StateEmpty
		}
		c.mu.Unlock()

		c.opts.logger.Warn(ctx, "load failed", observe.F("error", err))
		// A value pushed during the episode answers its waiters.
		if pushed {
			ep.val = v
		} else {
			ep.err = err
		}
		close(ep.done)
		return
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.current = nil
	pushed := c.state == StateReady
	if pushed {
		v = c.value
	} else {
		c.value = v
		c.state = StateReady
	}
	c.mu.Unlock()

	if !pushed {
		c.opts.logger.Debug(ctx, "loaded", observe.F("duration_ms", time.Since(start).Milliseconds()))
		c.subs.notify(v)
	}

	// Waiters are released after observers so a caller of Get never sees
	// the value before the observers do.
	ep.val = v
	close(ep.done)
}
