package offline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voss-io/tiercache/pkg/remote"
)

// ReplayConfig holds the configuration for the replay loop.
type ReplayConfig struct {
	// Interval is how often the replayer wakes up to drain the queue.
	Interval time.Duration

	// MaxRetries is how many failed replay attempts an item survives
	// before it is dropped.
	MaxRetries int

	// OpTimeout bounds each individual replay operation.
	OpTimeout time.Duration
}

// DefaultReplayConfig returns the default replay configuration.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Interval:   15 * time.Second,
		MaxRetries: 3,
		OpTimeout:  5 * time.Second,
	}
}

// DropFunc is notified when an item is dropped after exhausting retries.
type DropFunc func(item *Item, reason DropReason)

// Replayer drains the offline queue against the distributed tier. Items
// replay strictly in submission order; a failed item stays at the head
// until its retries are exhausted, so later mutations never overtake
// earlier ones (at-least-once semantics).
type Replayer struct {
	queue   *Queue
	adapter remote.Adapter
	config  ReplayConfig
	logger  zerolog.Logger
	conn    *connTracker
	onDrop  DropFunc

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReplayer creates a replayer for the queue. onDrop may be nil.
func NewReplayer(queue *Queue, adapter remote.Adapter, config ReplayConfig, logger zerolog.Logger, onDrop DropFunc) *Replayer {
	if config.Interval <= 0 {
		config.Interval = DefaultReplayConfig().Interval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultReplayConfig().MaxRetries
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultReplayConfig().OpTimeout
	}
	return &Replayer{
		queue:   queue,
		adapter: adapter,
		config:  config,
		logger:  logger,
		conn:    newConnTracker(),
		onDrop:  onDrop,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the replay loop in a goroutine.
func (r *Replayer) Start() {
	go r.run()
}

// Stop terminates the replay loop and waits for it to finish. No item is
// processed after Stop returns.
func (r *Replayer) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// ConnState returns the last observed connectivity state.
func (r *Replayer) ConnState() ConnState {
	return r.conn.snapshot()
}

// Drain attempts a single synchronous drain pass. Exposed for callers
// that want to force replay outside the timer (tests, admin flows).
func (r *Replayer) Drain(ctx context.Context) {
	r.drain(ctx)
}

func (r *Replayer) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.drain(context.Background())
		}
	}
}

func (r *Replayer) drain(ctx context.Context) {
	if r.queue.Len() == 0 {
		return
	}

	now := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, r.config.OpTimeout)
	err := r.adapter.Ping(probeCtx)
	cancel()
	if err != nil {
		if r.conn.markOffline(now) {
			r.logger.Warn().
				Err(err).
				Int("pending", r.queue.Len()).
				Msg("Distributed tier offline, replay deferred")
		}
		return
	}
	if r.conn.markOnline(now) {
		r.logger.Info().
			Int("pending", r.queue.Len()).
			Msg("Distributed tier back online, draining offline queue")
	}

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		item, ok := r.queue.Peek()
		if !ok {
			return
		}

		opCtx, cancel := context.WithTimeout(ctx, r.config.OpTimeout)
		err := r.apply(opCtx, item)
		cancel()

		if err == nil {
			r.queue.Pop()
			replaysTotal.WithLabelValues("success").Inc()
			r.logger.Debug().
				Str("op", string(item.Op)).
				Str("key", item.Key).
				Msg("Replayed offline write")
			continue
		}

		replaysTotal.WithLabelValues("failure").Inc()
		item.Retries++
		if item.Retries >= r.config.MaxRetries {
			r.queue.Pop()
			queueDropsTotal.WithLabelValues(string(DropRetriesExhausted)).Inc()
			r.logger.Error().
				Err(err).
				Str("op", string(item.Op)).
				Str("key", item.Key).
				Int("retries", item.Retries).
				Msg("Dropping offline write after exhausting retries")
			if r.onDrop != nil {
				r.onDrop(item, DropRetriesExhausted)
			}
			// The next item may still succeed; keep draining.
			continue
		}

		// Leave the item at the head for the next pass so replay order
		// is preserved.
		r.logger.Warn().
			Err(err).
			Str("op", string(item.Op)).
			Str("key", item.Key).
			Int("retries", item.Retries).
			Msg("Offline replay failed, will retry")
		return
	}
}

func (r *Replayer) apply(ctx context.Context, item *Item) error {
	switch item.Op {
	case OpDelete:
		return r.adapter.Delete(ctx, item.Key)
	default:
		return r.adapter.Set(ctx, item.Key, item.Value, item.TTL)
	}
}
