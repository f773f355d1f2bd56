// Package warmup provides parallel cache warm-up from a backing data source.
//
// A Warmer takes a list of keys and a LoadFunc, fans the loads out across a
// worker pool, and writes the results into the cache store. Keys that are
// already cached are skipped, and individual load failures do not abort the
// run: warm-up is an optimization, a partially warmed cache is still a win.
//
// Example usage:
//
//	warmer := warmup.NewWarmer(store, loadUser, warmup.DefaultConfig())
//	result, err := warmer.Warm(ctx, keys)
package warmup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voss-io/tiercache/pkg/cache"
)

// LoadFunc produces the value for a single key from the backing source.
type LoadFunc func(ctx context.Context, key string) (any, error)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the number of parallel loads.
	MaxConcurrency int

	// Timeout bounds each individual load.
	Timeout time.Duration

	// Force reloads keys that are already cached.
	Force bool

	// Logger receives progress and failure logs.
	Logger zerolog.Logger
}

// DefaultConfig returns a safe default warmer configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// Result summarizes a warm-up run.
type Result struct {
	// Loaded is the number of keys fetched and cached.
	Loaded int

	// Skipped is the number of keys already cached.
	Skipped int

	// Failed is the number of keys whose load returned an error.
	Failed int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Warmer fans key loads out across a worker pool and caches the results.
type Warmer struct {
	store  *cache.Store
	load   LoadFunc
	config Config
}

// NewWarmer creates a warmer writing into store.
func NewWarmer(store *cache.Store, load LoadFunc, config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Warmer{
		store:  store,
		load:   load,
		config: config,
	}
}

type outcome int

const (
	outcomeLoaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Warm loads the given keys in parallel and caches the results with opts.
// It returns a partial Result together with ctx.Err() when the context is
// cancelled mid-run; load failures are counted, not returned.
func (w *Warmer) Warm(ctx context.Context, keys []string, opts ...cache.SetOption) (Result, error) {
	start := time.Now()
	logger := w.config.Logger

	logger.Info().
		Int("keys", len(keys)).
		Int("workers", w.config.MaxConcurrency).
		Msg("Starting cache warm-up")

	keyQueue := make(chan string, len(keys))
	outcomes := make(chan outcome, len(keys))

	for _, key := range keys {
		keyQueue <- key
	}
	close(keyQueue)

	var wg sync.WaitGroup
	for i := 0; i < w.config.MaxConcurrency; i++ {
		wg.Add(1)
		go w.worker(ctx, keyQueue, outcomes, &wg, opts)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var result Result
	processed := 0
	for out := range outcomes {
		switch out {
		case outcomeLoaded:
			result.Loaded++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
		processed++
		if processed%50 == 0 {
			logger.Info().
				Int("processed", processed).
				Int("total", len(keys)).
				Msg("Warm-up progress")
		}
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("loaded", result.Loaded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Warm-up complete")

	return result, ctx.Err()
}

func (w *Warmer) worker(ctx context.Context, keyQueue <-chan string, outcomes chan<- outcome, wg *sync.WaitGroup, opts []cache.SetOption) {
	defer wg.Done()
	logger := w.config.Logger

	for key := range keyQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !w.config.Force && w.store.Exists(key) {
			outcomes <- outcomeSkipped
			continue
		}

		loadCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		value, err := w.load(loadCtx, key)
		cancel()

		if err != nil {
			logger.Warn().
				Err(err).
				Str("key", key).
				Msg("Warm-up load failed")
			outcomes <- outcomeFailed
			continue
		}

		if err := w.store.Set(ctx, key, value, opts...); err != nil {
			logger.Warn().
				Err(err).
				Str("key", key).
				Msg("Warm-up cache write failed")
			outcomes <- outcomeFailed
			continue
		}
		outcomes <- outcomeLoaded
	}
}
