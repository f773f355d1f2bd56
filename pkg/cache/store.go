package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/voss-io/tiercache/pkg/offline"
	"github.com/voss-io/tiercache/pkg/persist"
	"github.com/voss-io/tiercache/pkg/policy"
	"github.com/voss-io/tiercache/pkg/remote"
	"github.com/voss-io/tiercache/pkg/strategy"
)

// ErrEmptyKey is returned when an operation is invoked with an empty key.
var ErrEmptyKey = errors.New("cache: empty key")

// FactoryFunc produces the value for GetOrSet on a miss.
type FactoryFunc func(ctx context.Context) (any, error)

// BulkEntry is one write in an MSet batch.
type BulkEntry struct {
	Key     string
	Value   any
	Options []SetOption
}

// removal causes, used to route bookkeeping for removed entries.
type removeCause int

const (
	causeDelete removeCause = iota
	causeExpire
	causeEvict
	causeInvalidate
)

// Store is the primary in-memory cache tier. It owns the entries,
// enforces limits via the configured eviction policy, and treats the
// distributed and persistent tiers as best-effort secondaries: a local
// hit returns immediately, secondary tiers are consulted only on a miss,
// and no secondary failure ever propagates out of the read/write path.
//
// Construct one Store per process with New and pass it to consumers;
// Close stops the background sweep and replay loops.
type Store struct {
	config     Config
	logger     zerolog.Logger
	pol        policy.Policy
	strategies *strategy.Registry

	remote     remote.Adapter
	persistent *persist.Store
	queue      *offline.Queue
	replayCfg  offline.ReplayConfig
	replayer   *offline.Replayer

	now func() time.Time

	mu       sync.RWMutex
	entries  map[string]*Entry
	seq      uint64
	curBytes int64

	// incrMu serializes read-modify-write counters so concurrent Incr
	// calls cannot lose updates.
	incrMu sync.Mutex

	stats     counters
	observers observerList

	janitor   *janitor
	closeOnce sync.Once
}

// Option configures optional store collaborators.
type Option func(*Store)

// WithRemote attaches a distributed tier. The store reads through it on
// local misses and writes through to it best-effort.
func WithRemote(adapter remote.Adapter) Option {
	return func(s *Store) { s.remote = adapter }
}

// WithPersistence attaches a durable local tier used for rehydration and
// as the last-resort read source. The caller retains ownership and is
// responsible for closing it.
func WithPersistence(p *persist.Store) Option {
	return func(s *Store) { s.persistent = p }
}

// WithOfflineQueue buffers writes that fail due to connectivity loss and
// replays them against the distributed tier. Only effective together
// with WithRemote.
func WithOfflineQueue(maxSize int, replay offline.ReplayConfig) Option {
	return func(s *Store) {
		s.queue = offline.NewQueue(maxSize)
		s.replayCfg = replay
	}
}

// WithClock overrides the store's time source. Used in tests to simulate
// TTL expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store and starts its background loops (sweep, offline
// replay) according to the configuration.
func New(cfg Config, opts ...Option) *Store {
	cfg.applyDefaults()

	s := &Store{
		config:     cfg,
		logger:     cfg.Logger,
		pol:        policy.New(cfg.Policy),
		strategies: strategy.NewRegistry(),
		now:        time.Now,
		entries:    make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.queue != nil && s.remote != nil {
		s.replayer = offline.NewReplayer(s.queue, s.remote, s.replayCfg, s.logger, s.onOfflineDrop)
		s.replayer.Start()
	}
	if cfg.SweepInterval > 0 {
		s.janitor = newJanitor(s, cfg.SweepInterval)
		s.janitor.start()
	}
	return s
}

// Close stops the sweep and replay loops. It does not close the
// persistent tier, which the caller owns.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.janitor != nil {
			s.janitor.stop()
		}
		if s.replayer != nil {
			s.replayer.Stop()
		}
	})
	return nil
}

// RegisterStrategy associates a key pattern (glob syntax) with a caching
// strategy. Strategies are matched in registration order on Set.
func (s *Store) RegisterStrategy(pattern string, strat strategy.Strategy) error {
	return s.strategies.Register(pattern, strat)
}

// Subscribe registers an observer for cache lifecycle events. The
// returned function cancels the subscription.
func (s *Store) Subscribe(o Observer) (cancel func()) {
	return s.observers.subscribe(o)
}

// tier labels for hit attribution and metrics.
const (
	tierMemory     = "memory"
	tierRemote     = "remote"
	tierPersistent = "persistent"
)

// Get retrieves the value for key into dest. It returns false on a miss;
// internal failures (tier errors, corrupt payloads) degrade to a miss
// and never surface to the caller. A local hit returns without touching
// the secondary tiers.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	payload, tier, ok := s.fetch(ctx, key)
	if !ok {
		return false
	}
	if dest != nil {
		if err := json.Unmarshal(payload, dest); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cached payload does not match destination type")
			// The caller got nothing back; count it as a miss unless the
			// fall-through path already did.
			if tier == tierMemory {
				s.stats.misses.Add(1)
				cacheMisses.Inc()
			}
			return false
		}
	}
	s.recordHit(tier)
	return true
}

// GetRaw retrieves the serialized (decompressed) payload for key.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	payload, tier, ok := s.fetch(ctx, key)
	if ok {
		s.recordHit(tier)
	}
	return payload, ok
}

// recordHit attributes a served read to its tier. Only memory-tier hits
// count toward the hit rate; secondary-tier resolutions were already
// counted as local misses.
func (s *Store) recordHit(tier string) {
	cacheHits.WithLabelValues(tier).Inc()
	if tier == tierMemory {
		s.stats.hits.Add(1)
	}
}

// fetch resolves a key through the tiers: memory, then distributed, then
// persistent. Hits on a secondary tier repopulate the memory tier. The
// returned payload is always validated (decompressed); hit/miss counters
// for the success path are the caller's responsibility.
func (s *Store) fetch(ctx context.Context, key string) ([]byte, string, bool) {
	if entry, ok := s.getLocal(key); ok {
		payload, err := decodePayload(entry.Value, entry.Compressed)
		if err == nil {
			return payload, tierMemory, true
		}
		// A corrupt local entry would mask the secondary tiers forever.
		// Drop it and fall through.
		s.logger.Warn().Err(err).Str("key", key).Msg("Removing corrupt cached payload")
		s.removeKeys([]string{key}, causeDelete)
	}

	s.stats.misses.Add(1)
	cacheMisses.Inc()

	if payload, ok := s.fetchRemote(ctx, key); ok {
		return payload, tierRemote, true
	}

	if payload, ok := s.fetchPersistent(ctx, key); ok {
		return payload, tierPersistent, true
	}

	return nil, "", false
}

// getLocal returns the live local entry, lazily removing it when expired.
func (s *Store) getLocal(key string) (*Entry, bool) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if entry.IsExpired(now) {
		s.removeKeys([]string{key}, causeExpire)
		return nil, false
	}

	entry.touch(now)
	return entry, true
}

// fetchRemote consults the distributed tier and populates the memory
// tier on a hit. The payload is validated before the entry is inserted
// locally so a corrupt remote entry cannot poison the memory tier.
// Failures degrade to a miss.
func (s *Store) fetchRemote(ctx context.Context, key string) ([]byte, bool) {
	if s.remote == nil {
		return nil, false
	}

	tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
	defer cancel()

	data, err := s.remote.Get(tctx, key)
	if err != nil {
		if !errors.Is(err, remote.ErrNotFound) {
			tierErrors.WithLabelValues("remote", "get").Inc()
			s.logger.Debug().Err(err).Str("key", key).Msg("Distributed tier read failed")
		}
		return nil, false
	}

	we, err := decodeWire(data)
	if err != nil {
		tierErrors.WithLabelValues("remote", "get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt entry in distributed tier")
		return nil, false
	}

	payload, err := decodePayload(we.Value, we.Compressed)
	if err != nil {
		tierErrors.WithLabelValues("remote", "get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt payload in distributed tier")
		return nil, false
	}

	now := s.now()
	entry := &Entry{
		Key:        key,
		Value:      we.Value,
		Compressed: we.Compressed,
		CreatedAt:  we.CreatedAt,
		ExpiresAt:  we.ExpiresAt,
		Tags:       we.Tags,
		Size:       int64(len(we.Value)),
		Metadata:   we.Metadata,
	}
	if entry.IsExpired(now) {
		return nil, false
	}
	entry.touch(now)
	s.insert(entry)
	return payload, true
}

// fetchPersistent consults the durable tier and populates the memory
// tier on a hit. As with the distributed tier, the payload is validated
// before insertion. Failures degrade to a miss.
func (s *Store) fetchPersistent(ctx context.Context, key string) ([]byte, bool) {
	if s.persistent == nil {
		return nil, false
	}

	tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
	defer cancel()

	rec, err := s.persistent.Get(tctx, key)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			tierErrors.WithLabelValues("persistent", "get").Inc()
			s.logger.Debug().Err(err).Str("key", key).Msg("Persistent tier read failed")
		}
		return nil, false
	}

	entry := recordToEntry(rec)
	payload, err := decodePayload(entry.Value, entry.Compressed)
	if err != nil {
		tierErrors.WithLabelValues("persistent", "get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt payload in persistent tier")
		return nil, false
	}
	entry.touch(s.now())
	s.insert(entry)
	return payload, true
}

// Set stores a value under key. The applicable strategy (if any) supplies
// TTL, tags, compression, and cacheability; explicit options win over the
// strategy, which wins over the engine defaults. Secondary tier failures
// are absorbed: connectivity failures are queued for offline replay,
// everything else is logged and counted. Set only returns an error for
// invalid usage (empty key).
func (s *Store) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	if key == "" {
		return ErrEmptyKey
	}

	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}

	strat, hasStrat := s.strategies.Lookup(key)
	if hasStrat && !strat.Cacheable(key, value) {
		s.logger.Debug().Str("key", key).Msg("Strategy condition rejected write")
		return nil
	}

	compress := hasStrat && strat.Compress
	if o.Compress != nil {
		compress = *o.Compress
	}

	data, compressed, err := encodeValue(value, compress)
	if err != nil {
		// Caching is an optimization: a value that cannot be serialized
		// is skipped, not surfaced.
		tierErrors.WithLabelValues("memory", "set").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Skipping uncacheable value")
		return nil
	}

	ttl := o.TTL
	if ttl <= 0 && hasStrat {
		ttl = strat.EffectiveTTL(key, value)
	}
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	tags := o.Tags
	if hasStrat {
		tags = unionTags(tags, strat.Tags)
	}

	now := s.now()
	entry := &Entry{
		Key:        key,
		Value:      data,
		Compressed: compressed,
		CreatedAt:  now,
		Tags:       tags,
		Size:       int64(len(data)),
		Metadata:   o.Metadata,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	s.invalidateDependents(key)
	s.insert(entry)

	s.stats.sets.Add(1)
	cacheSets.Inc()
	s.observers.emit(Event{Type: EventSet, Key: key})

	s.writeThrough(ctx, entry)
	return nil
}

// insert places the entry in the memory tier, evicting via the policy
// when the insert would exceed the configured limits.
func (s *Store) insert(entry *Entry) {
	var victims []string

	s.mu.Lock()
	if old, ok := s.entries[entry.Key]; ok {
		s.curBytes -= old.Size
		delete(s.entries, entry.Key)
	}

	needBytes := int64(0)
	if s.config.MaxBytes > 0 {
		needBytes = s.curBytes + entry.Size - s.config.MaxBytes
	}
	needItems := 0
	if s.config.MaxItems > 0 {
		needItems = len(s.entries) + 1 - s.config.MaxItems
	}
	victims = s.evictLocked(needBytes, needItems)

	s.seq++
	entry.seq = s.seq
	s.entries[entry.Key] = entry
	s.curBytes += entry.Size
	s.updateGaugesLocked()
	s.mu.Unlock()

	for _, key := range victims {
		s.observers.emit(Event{Type: EventEvict, Key: key})
	}
}

// evictLocked selects and removes victims until the byte/item
// requirements are satisfied. Caller holds the write lock.
func (s *Store) evictLocked(needBytes int64, needItems int) []string {
	if needBytes <= 0 && needItems <= 0 {
		return nil
	}

	candidates := make([]policy.Candidate, 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, policy.Candidate{
			Key:            e.Key,
			Size:           e.Size,
			CreatedAt:      e.CreatedAt,
			LastAccessedAt: e.LastAccessedAt(),
			AccessCount:    e.AccessCount(),
			Seq:            e.seq,
		})
	}

	victims := policy.SelectVictims(s.pol, candidates, needBytes, needItems)
	keys := make([]string, 0, len(victims))
	for _, v := range victims {
		if e, ok := s.entries[v.Key]; ok {
			s.curBytes -= e.Size
			delete(s.entries, v.Key)
			keys = append(keys, v.Key)
		}
	}
	if len(keys) > 0 {
		s.stats.evictions.Add(int64(len(keys)))
		cacheEvictions.WithLabelValues(string(s.pol.Name())).Add(float64(len(keys)))
		s.logger.Debug().
			Int("evicted", len(keys)).
			Str("policy", string(s.pol.Name())).
			Msg("Evicted entries to satisfy limits")
	}
	return keys
}

// writeThrough pushes the entry to the distributed and persistent tiers
// best-effort. Connectivity failures on the distributed tier enqueue the
// write for offline replay.
func (s *Store) writeThrough(ctx context.Context, entry *Entry) {
	now := s.now()
	ttl := entry.TTL(now)
	if ttl < 0 {
		ttl = 0 // no expiry
	}

	if s.remote != nil {
		payload, err := encodeWire(entry)
		if err != nil {
			tierErrors.WithLabelValues("remote", "set").Inc()
			s.logger.Warn().Err(err).Str("key", entry.Key).Msg("Failed to encode entry for distributed tier")
		} else {
			tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
			err = s.remote.Set(tctx, entry.Key, payload, ttl)
			cancel()
			if err != nil {
				tierErrors.WithLabelValues("remote", "set").Inc()
				s.enqueueOffline(&offline.Item{
					Op:    offline.OpSet,
					Key:   entry.Key,
					Value: payload,
					TTL:   ttl,
				}, err)
			}
		}
	}

	if s.persistent != nil {
		tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
		err := s.persistent.Put(tctx, entryToRecord(entry))
		cancel()
		if err != nil {
			tierErrors.WithLabelValues("persistent", "set").Inc()
			s.logger.Warn().Err(err).Str("key", entry.Key).Msg("Persistent tier write failed")
		}
	}
}

// enqueueOffline queues a mutation that failed with a connectivity error.
// Non-connectivity failures are not queued: replaying them would fail the
// same way.
func (s *Store) enqueueOffline(item *offline.Item, cause error) {
	if s.queue == nil || !remote.IsConnectivity(cause) {
		s.logger.Warn().Err(cause).Str("key", item.Key).Msg("Distributed tier write failed")
		return
	}

	s.logger.Info().
		Err(cause).
		Str("op", string(item.Op)).
		Str("key", item.Key).
		Msg("Connectivity loss, queueing write for offline replay")

	if dropped := s.queue.Enqueue(item); dropped != nil {
		s.stats.offlineDrops.Add(1)
		s.logger.Warn().
			Str("key", dropped.Key).
			Msg("Offline queue full, dropped oldest pending write")
		s.observers.emit(Event{Type: EventOfflineDrop, Key: dropped.Key})
	}
}

// onOfflineDrop is invoked by the replayer when an item exhausts its
// retries.
func (s *Store) onOfflineDrop(item *offline.Item, _ offline.DropReason) {
	s.stats.offlineDrops.Add(1)
	s.observers.emit(Event{Type: EventOfflineDrop, Key: item.Key})
}

// invalidateDependents removes local entries cached under strategies that
// declare key as a dependency.
func (s *Store) invalidateDependents(key string) {
	patterns := s.strategies.Dependents(key)
	if len(patterns) == 0 {
		return
	}

	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		// Patterns were validated at registration time.
		if m, err := glob.Compile(p); err == nil {
			matchers = append(matchers, m)
		}
	}

	s.mu.RLock()
	var keys []string
	for k := range s.entries {
		for _, m := range matchers {
			if m.Match(k) {
				keys = append(keys, k)
				break
			}
		}
	}
	s.mu.RUnlock()

	if len(keys) > 0 {
		s.removeKeys(keys, causeInvalidate)
		s.logger.Debug().
			Str("dependency", key).
			Int("invalidated", len(keys)).
			Msg("Invalidated dependent entries")
	}
}

// Delete removes the key from every tier. Unlike the read path, explicit
// deletion is an administrative operation: tier failures are returned,
// except connectivity failures on the distributed tier, which are queued
// for replay and considered handled.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	removed := s.removeKeys([]string{key}, causeDelete)
	if removed > 0 {
		s.observers.emit(Event{Type: EventDelete, Key: key})
	}

	var errs []error
	if s.remote != nil {
		tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
		err := s.remote.Delete(tctx, key)
		cancel()
		if err != nil {
			tierErrors.WithLabelValues("remote", "delete").Inc()
			if remote.IsConnectivity(err) && s.queue != nil {
				s.enqueueOffline(&offline.Item{Op: offline.OpDelete, Key: key}, err)
			} else {
				errs = append(errs, fmt.Errorf("distributed tier: %w", err))
			}
		}
	}
	if s.persistent != nil {
		tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
		err := s.persistent.Delete(tctx, key)
		cancel()
		if err != nil {
			tierErrors.WithLabelValues("persistent", "delete").Inc()
			errs = append(errs, fmt.Errorf("persistent tier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// DeleteByTag removes all entries whose tag set contains tag. This scans
// every entry: O(n) over the current entries, the one consciously linear
// operation in the store.
func (s *Store) DeleteByTag(ctx context.Context, tag string) error {
	s.mu.RLock()
	var keys []string
	for k, e := range s.entries {
		if e.HasTag(tag) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	removed := s.removeKeys(keys, causeInvalidate)
	s.observers.emit(Event{Type: EventTagInvalidate, Tag: tag, Removed: removed})

	var errs []error
	if s.remote != nil {
		for _, key := range keys {
			tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
			err := s.remote.Delete(tctx, key)
			cancel()
			if err != nil {
				tierErrors.WithLabelValues("remote", "delete").Inc()
				if remote.IsConnectivity(err) && s.queue != nil {
					s.enqueueOffline(&offline.Item{Op: offline.OpDelete, Key: key}, err)
					continue
				}
				errs = append(errs, fmt.Errorf("distributed tier delete %q: %w", key, err))
			}
		}
	}
	if s.persistent != nil {
		tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
		_, err := s.persistent.DeleteByTag(tctx, tag)
		cancel()
		if err != nil {
			tierErrors.WithLabelValues("persistent", "delete").Inc()
			errs = append(errs, fmt.Errorf("persistent tier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Exists reports whether the key has a live entry in the memory tier.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	return ok && !entry.IsExpired(s.now())
}

// Clear removes every entry from every tier. Administrative: tier
// failures are returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.curBytes = 0
	s.updateGaugesLocked()
	s.mu.Unlock()

	s.observers.emit(Event{Type: EventClear})

	var errs []error
	if s.remote != nil {
		tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
		err := s.remote.Clear(tctx)
		cancel()
		if err != nil {
			tierErrors.WithLabelValues("remote", "clear").Inc()
			errs = append(errs, fmt.Errorf("distributed tier: %w", err))
		}
	}
	if s.persistent != nil {
		tctx, cancel := context.WithTimeout(ctx, s.config.TierTimeout)
		err := s.persistent.Clear(tctx)
		cancel()
		if err != nil {
			tierErrors.WithLabelValues("persistent", "clear").Inc()
			errs = append(errs, fmt.Errorf("persistent tier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// GetOrSet returns the cached value for key, or invokes factory, caches
// its result, and returns it. Factory errors propagate to the caller.
func (s *Store) GetOrSet(ctx context.Context, key string, dest any, factory FactoryFunc, opts ...SetOption) error {
	if s.Get(ctx, key, dest) {
		return nil
	}

	value, err := factory(ctx)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, key, value, opts...); err != nil {
		return err
	}
	if dest == nil {
		return nil
	}

	// Round-trip through JSON so dest sees exactly what a later Get would.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal factory value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal factory value: %w", err)
	}
	return nil
}

// MGet resolves multiple keys. The result is positional; misses are nil.
func (s *Store) MGet(ctx context.Context, keys []string) []json.RawMessage {
	results := make([]json.RawMessage, len(keys))
	for i, key := range keys {
		if payload, tier, ok := s.fetch(ctx, key); ok {
			s.recordHit(tier)
			results[i] = payload
		}
	}
	return results
}

// MSet writes multiple entries. The first invalid entry aborts the batch.
func (s *Store) MSet(ctx context.Context, entries []BulkEntry) error {
	for _, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value, e.Options...); err != nil {
			return fmt.Errorf("mset %q: %w", e.Key, err)
		}
	}
	return nil
}

// Incr atomically adds delta to the numeric value under key, initializing
// a missing key to delta, and returns the new value.
func (s *Store) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}

	s.incrMu.Lock()
	defer s.incrMu.Unlock()

	var current int64
	s.Get(ctx, key, &current) // missing or non-numeric keys start at 0
	current += delta
	if err := s.Set(ctx, key, current); err != nil {
		return 0, err
	}
	return current, nil
}

// Decr atomically subtracts delta from the numeric value under key.
func (s *Store) Decr(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Incr(ctx, key, -delta)
}

// Rehydrate loads all live records from the persistent tier into the
// memory tier. Intended to be called once after process start.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.persistent == nil {
		return nil
	}

	loaded := 0
	err := s.persistent.Each(ctx, func(rec *persist.Record) error {
		s.insert(recordToEntry(rec))
		loaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("rehydrate from persistent tier: %w", err)
	}
	s.logger.Info().Int("entries", loaded).Msg("Rehydrated memory tier")
	return nil
}

// Statistics returns a snapshot of the store's counters.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	items := int64(len(s.entries))
	bytes := s.curBytes
	s.mu.RUnlock()
	return s.stats.snapshot(items, bytes)
}

// TopKeys returns the n most accessed keys, most accessed first.
func (s *Store) TopKeys(n int) []KeyAccess {
	s.mu.RLock()
	accesses := make([]KeyAccess, 0, len(s.entries))
	for k, e := range s.entries {
		accesses = append(accesses, KeyAccess{Key: k, AccessCount: e.AccessCount()})
	}
	s.mu.RUnlock()
	return topKeys(accesses, n)
}

// Len returns the number of entries in the memory tier, including
// logically expired entries not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// QueueDepth returns the number of writes pending offline replay.
func (s *Store) QueueDepth() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Len()
}

// removeKeys removes the given keys from the memory tier, attributing the
// removal to cause for statistics and events. Returns how many entries
// were actually removed.
func (s *Store) removeKeys(keys []string, cause removeCause) int {
	if len(keys) == 0 {
		return 0
	}

	now := s.now()
	removedKeys := make([]string, 0, len(keys))
	s.mu.Lock()
	for _, key := range keys {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		// A write may have replaced the entry after the expiry snapshot
		// was taken; only remove entries that are still expired.
		if cause == causeExpire && !e.IsExpired(now) {
			continue
		}
		s.curBytes -= e.Size
		delete(s.entries, key)
		removedKeys = append(removedKeys, key)
	}
	s.updateGaugesLocked()
	s.mu.Unlock()

	removed := len(removedKeys)
	if removed == 0 {
		return 0
	}

	switch cause {
	case causeExpire:
		s.stats.expired.Add(int64(removed))
		cacheExpired.Add(float64(removed))
		for _, key := range removedKeys {
			s.observers.emit(Event{Type: EventExpire, Key: key})
		}
	case causeDelete, causeInvalidate:
		s.stats.deletes.Add(int64(removed))
		cacheDeletes.Add(float64(removed))
	}
	return removed
}

func (s *Store) updateGaugesLocked() {
	cacheItems.Set(float64(len(s.entries)))
	cacheSizeBytes.Set(float64(s.curBytes))
}

func entryToRecord(e *Entry) *persist.Record {
	return &persist.Record{
		Key:        e.Key,
		Value:      e.Value,
		Compressed: e.Compressed,
		CreatedAt:  e.CreatedAt,
		ExpiresAt:  e.ExpiresAt,
		Tags:       e.Tags,
		Size:       e.Size,
		Metadata:   e.Metadata,
	}
}

func recordToEntry(rec *persist.Record) *Entry {
	return &Entry{
		Key:        rec.Key,
		Value:      rec.Value,
		Compressed: rec.Compressed,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
		Tags:       rec.Tags,
		Size:       rec.Size,
		Metadata:   rec.Metadata,
	}
}

func unionTags(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range a {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range b {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
