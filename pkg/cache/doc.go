// Package cache implements the primary in-memory cache tier of the
// tiercache engine: a concurrency-safe store with pluggable eviction,
// TTL lifecycle, tag-based invalidation, strategy-driven write policy,
// and best-effort secondary tiers.
//
// # Tiers
//
// A Store always owns the memory tier. Two optional secondaries can be
// attached:
//
//   - a distributed tier (remote.Adapter, typically Redis), consulted on
//     local misses and written through best-effort; last-write-wins
//     across processes
//   - a persistent tier (persist.Store, SQLite), used to rehydrate the
//     memory tier after a restart and as the last-resort read source
//
// Secondary tier failures never propagate out of Get or Set: reads
// degrade to a miss, writes skip the failing tier. Writes that fail due
// to connectivity loss are captured in the offline queue and replayed
// once the distributed tier is reachable again. Explicit administrative
// operations (Delete, DeleteByTag, Clear) do report tier failures, since
// their callers expect a definite outcome.
//
// # Basic Usage
//
//	store := cache.New(cache.Config{
//		MaxItems:   10_000,
//		DefaultTTL: 5 * time.Minute,
//		Policy:     policy.LRU,
//	})
//	defer store.Close()
//
//	_ = store.Set(ctx, "user:42", profile)
//
//	var p Profile
//	if store.Get(ctx, "user:42", &p) {
//		// cache hit
//	}
//
// # Strategies
//
//	_ = store.RegisterStrategy("session:*", strategy.Strategy{
//		TTL:  30 * time.Minute,
//		Tags: []string{"session"},
//	})
//
// A set whose key matches a registered pattern picks up the strategy's
// TTL, tags, compression flag, and cacheability condition; explicit set
// options always win over the strategy.
//
// # Metrics
//
// The package exports Prometheus metrics via promauto:
//
//   - tiercache_hits_total{tier} / tiercache_misses_total
//   - tiercache_sets_total / tiercache_deletes_total
//   - tiercache_evictions_total{policy} / tiercache_expired_total
//   - tiercache_size_bytes / tiercache_items
//   - tiercache_tier_errors_total{tier,operation}
package cache
