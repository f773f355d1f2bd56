package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks hits by tier (memory, remote, persistent).
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_hits_total",
			Help: "Total number of cache hits by tier",
		},
		[]string{"tier"},
	)

	// cacheMisses tracks full misses (no tier resolved the key).
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	cacheSets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_sets_total",
			Help: "Total number of cache writes",
		},
	)

	cacheDeletes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_deletes_total",
			Help: "Total number of explicit cache deletions",
		},
	)

	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_evictions_total",
			Help: "Total number of entries evicted by the active policy",
		},
		[]string{"policy"},
	)

	cacheExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiercache_expired_total",
			Help: "Total number of entries removed after TTL expiry",
		},
	)

	cacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tiercache_size_bytes",
			Help: "Current size of the memory tier in bytes",
		},
	)

	cacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tiercache_items",
			Help: "Current number of entries in the memory tier",
		},
	)

	// tierErrors tracks degraded secondary-tier operations.
	tierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiercache_tier_errors_total",
			Help: "Total number of secondary tier operation failures",
		},
		[]string{"tier", "operation"},
	)
)
