package cache

import (
	"context"
	"sync"
	"time"
)

// janitor periodically removes expired entries and re-enforces the
// memory limits. It never holds the write lock for a whole sweep: it
// snapshots candidates under the read lock and removes them in small
// batches.
type janitor struct {
	store    *Store
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newJanitor(store *Store, interval time.Duration) *janitor {
	return &janitor{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *janitor) start() {
	go j.run()
}

func (j *janitor) stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	<-j.done
}

func (j *janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.store.Sweep()
		}
	}
}

// Sweep removes expired entries in batches and, if the memory tier still
// exceeds its limits, evicts down to the configured target utilization.
// Returns the number of expired entries removed. Exposed so operators
// (and tests) can force a sweep outside the timer.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for key, e := range s.entries {
		if e.IsExpired(now) {
			expired = append(expired, key)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for start := 0; start < len(expired); start += s.config.SweepBatchSize {
		end := start + s.config.SweepBatchSize
		if end > len(expired) {
			end = len(expired)
		}
		removed += s.removeKeys(expired[start:end], causeExpire)
	}

	if removed > 0 {
		s.logger.Debug().Int("expired", removed).Msg("Sweep removed expired entries")
	}

	if s.persistent != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.TierTimeout)
		if _, err := s.persistent.Sweep(ctx, now); err != nil {
			tierErrors.WithLabelValues("persistent", "sweep").Inc()
			s.logger.Debug().Err(err).Msg("Persistent tier sweep failed")
		}
		cancel()
	}

	s.enforceTarget()
	return removed
}

// enforceTarget evicts down to TargetUtilization of the configured
// limits when either limit is still exceeded after a sweep.
func (s *Store) enforceTarget() {
	var victims []string

	s.mu.Lock()
	needBytes := int64(0)
	if s.config.MaxBytes > 0 && s.curBytes > s.config.MaxBytes {
		target := int64(float64(s.config.MaxBytes) * s.config.TargetUtilization)
		needBytes = s.curBytes - target
	}
	needItems := 0
	if s.config.MaxItems > 0 && len(s.entries) > s.config.MaxItems {
		target := int(float64(s.config.MaxItems) * s.config.TargetUtilization)
		needItems = len(s.entries) - target
	}
	if needBytes > 0 || needItems > 0 {
		victims = s.evictLocked(needBytes, needItems)
		s.updateGaugesLocked()
	}
	s.mu.Unlock()

	for _, key := range victims {
		s.observers.emit(Event{Type: EventEvict, Key: key})
	}
}
