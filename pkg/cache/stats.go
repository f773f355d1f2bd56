package cache

import (
	"sort"
	"sync/atomic"
)

// Statistics is a snapshot of the store's monotonic counters. HitRate is
// derived lazily when the snapshot is taken.
type Statistics struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Sets         int64   `json:"sets"`
	Deletes      int64   `json:"deletes"`
	Evictions    int64   `json:"evictions"`
	Expired      int64   `json:"expired"`
	OfflineDrops int64   `json:"offline_drops"`
	HitRate      float64 `json:"hit_rate"`

	// Items and Bytes reflect the memory tier at snapshot time.
	Items int64 `json:"items"`
	Bytes int64 `json:"bytes"`
}

// counters accumulates statistics with atomics so the read path never
// needs the store's write lock.
type counters struct {
	hits         atomic.Int64
	misses       atomic.Int64
	sets         atomic.Int64
	deletes      atomic.Int64
	evictions    atomic.Int64
	expired      atomic.Int64
	offlineDrops atomic.Int64
}

func (c *counters) snapshot(items, bytes int64) Statistics {
	s := Statistics{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Sets:         c.sets.Load(),
		Deletes:      c.deletes.Load(),
		Evictions:    c.evictions.Load(),
		Expired:      c.expired.Load(),
		OfflineDrops: c.offlineDrops.Load(),
		Items:        items,
		Bytes:        bytes,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// KeyAccess pairs a key with its access count, for introspection.
type KeyAccess struct {
	Key         string `json:"key"`
	AccessCount int64  `json:"access_count"`
}

// topKeys returns the n most accessed of the given accesses, most
// accessed first, ties broken by key for determinism.
func topKeys(accesses []KeyAccess, n int) []KeyAccess {
	sort.Slice(accesses, func(i, j int) bool {
		if accesses[i].AccessCount == accesses[j].AccessCount {
			return accesses[i].Key < accesses[j].Key
		}
		return accesses[i].AccessCount > accesses[j].AccessCount
	})
	if n > 0 && len(accesses) > n {
		accesses = accesses[:n]
	}
	return accesses
}
