// Package cache provides live, lazily loaded caches of remote state.
//
// Three caches share one model: values arrive either from a producer that
// runs on first demand or from an explicit push, and every arrival is
// broadcast to the cache's observers.
//
//   - Value holds a single value. Concurrent Get calls on an Empty Value run
//     the producer once and share its result. A failed load is reported to
//     every caller that joined it and leaves the Value Empty for a retry.
//   - Keyed holds a keyed collection filled once from a finite producer
//     sequence. TryGetLocal answers from memory; TryGetOrLoad and All wait
//     for the bulk load.
//   - PerKey holds one Value per key, created on first Lookup. Global
//     observers follow every key, including keys created after they
//     subscribed.
//
// Entries are overwritten, never evicted.
//
// # Observers
//
// Observers are plain functions called synchronously while the cache
// applies an event, so each observer sees one instance's events in order.
// An observer must not call Push, Set or Subscribe on the cache that is
// calling it, and must not wait on that cache's loads.
//
// # Usage
//
//	ships := cache.NewKeyed(
//		func(s Ship) string { return s.Symbol },
//		func(ctx context.Context) iter.Seq2[Ship, error] { return listShips(ctx) },
//		cache.WithName("ships"),
//	)
//
//	ship, ok, err := ships.TryGetOrLoad(ctx, "SHIP-1")
package cache
