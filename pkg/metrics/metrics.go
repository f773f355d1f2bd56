// Package metrics provides the centralized Prometheus metrics registry for
// the tiercache engine. All metrics are defined in their respective packages
// (cache, offline) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - tiercache_hits_total{tier} (Counter): Hits by tier (memory, remote, persistent)
//   - tiercache_misses_total (Counter): Memory tier misses
//   - tiercache_sets_total (Counter): Completed writes
//   - tiercache_deletes_total (Counter): Removed entries (explicit and tag invalidation)
//   - tiercache_evictions_total{policy} (Counter): Policy evictions by policy name
//   - tiercache_expired_total (Counter): Entries removed by TTL expiry
//   - tiercache_size_bytes (Gauge): Serialized size of the memory tier
//   - tiercache_items (Gauge): Entries in the memory tier
//   - tiercache_tier_errors_total{tier, operation} (Counter): Absorbed secondary tier failures
//
// Offline Queue Metrics (pkg/offline):
//   - tiercache_offline_queue_depth (Gauge): Writes pending replay
//   - tiercache_offline_drops_total{reason} (Counter): Queued writes dropped (overflow, retries_exhausted)
//   - tiercache_offline_replays_total{outcome} (Counter): Replay attempts by outcome (success, failure)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(tiercache_hits_total[5m])) /
//   (sum(rate(tiercache_hits_total[5m])) + sum(rate(tiercache_misses_total[5m])))
//
//   # Memory Tier Utilization
//   tiercache_size_bytes
//
//   # Eviction Pressure
//   rate(tiercache_evictions_total[5m])
//
//   # Offline Backlog
//   tiercache_offline_queue_depth > 0
//
//   # Secondary Tier Health
//   rate(tiercache_tier_errors_total[5m])
