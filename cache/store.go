package cache

import (
	"sync"
	"sync/atomic"
)

// Store is a concurrent in-memory map of cached entities.
//
// Reads never block writers. Entries are overwritten but never removed; the
// store lives as long as the cache that owns it.
type Store[K comparable, V any] struct {
	m   sync.Map
	len atomic.Int64
}

// NewStore creates an empty store.
func NewStore[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{}
}

// Load returns the value stored for key.
func (s *Store[K, V]) Load(key K) (V, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Store inserts or overwrites the value for key.
func (s *Store[K, V]) Store(key K, value V) {
	if _, loaded := s.m.Swap(key, value); !loaded {
		s.len.Add(1)
	}
}

// Range calls fn for every entry until fn returns false. Entries stored
// concurrently may or may not be visited.
func (s *Store[K, V]) Range(fn func(K, V) bool) {
	s.m.Range(func(k, v any) bool {
		return fn(k.(K), v.(V))
	})
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	return int(s.len.Load())
}
