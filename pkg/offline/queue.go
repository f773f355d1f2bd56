// Package offline implements the bounded write queue that captures
// mutations which could not reach the distributed tier, and the replay
// loop that drains them once connectivity returns.
package offline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the offline queue.
var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tiercache_offline_queue_depth",
		Help: "Current number of writes pending replay in the offline queue",
	})

	queueDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiercache_offline_drops_total",
		Help: "Total offline queue items dropped by reason",
	}, []string{"reason"}) // "overflow", "retries_exhausted"

	replaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiercache_offline_replays_total",
		Help: "Total replay attempts by outcome",
	}, []string{"outcome"}) // "success", "failure"
)

// Op identifies the kind of queued mutation.
type Op string

const (
	// OpSet replays a write of key/value with the recorded TTL.
	OpSet Op = "set"

	// OpDelete replays a deletion of key.
	OpDelete Op = "delete"
)

// Item is a queued write descriptor. Value and TTL are only meaningful
// for OpSet.
type Item struct {
	Op         Op
	Key        string
	Value      []byte
	TTL        time.Duration
	EnqueuedAt time.Time
	Retries    int
}

// DropReason explains why an item left the queue without being replayed.
type DropReason string

const (
	// DropOverflow means the item was the oldest entry when the queue
	// exceeded its maximum size.
	DropOverflow DropReason = "overflow"

	// DropRetriesExhausted means the item failed replay more times than
	// the configured maximum.
	DropRetriesExhausted DropReason = "retries_exhausted"
)

// Queue is a bounded FIFO of pending writes. On overflow the oldest item
// is dropped so the queue never exceeds its maximum size. Safe for
// concurrent use.
type Queue struct {
	mu      sync.Mutex
	items   []*Item
	maxSize int
}

// DefaultMaxSize bounds the queue when no explicit size is configured.
const DefaultMaxSize = 1000

// NewQueue creates a queue bounded to maxSize items (DefaultMaxSize when
// maxSize <= 0).
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{maxSize: maxSize}
}

// Enqueue appends the item. When the queue is full the oldest pending
// item is dropped and returned so the caller can log and count it.
func (q *Queue) Enqueue(item *Item) (dropped *Item) {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		dropped = q.items[0]
		q.items = q.items[1:]
		queueDropsTotal.WithLabelValues(string(DropOverflow)).Inc()
	}
	q.items = append(q.items, item)
	queueDepth.Set(float64(len(q.items)))
	return dropped
}

// Peek returns the oldest pending item without removing it.
func (q *Queue) Peek() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Pop removes and returns the oldest pending item.
func (q *Queue) Pop() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	queueDepth.Set(float64(len(q.items)))
	return item, true
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
