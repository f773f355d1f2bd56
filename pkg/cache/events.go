package cache

import "sync"

// EventType identifies a cache lifecycle event.
type EventType string

const (
	// EventSet fires after an entry is written to the memory tier.
	EventSet EventType = "set"

	// EventDelete fires after an explicit delete.
	EventDelete EventType = "delete"

	// EventEvict fires when the eviction policy removes an entry.
	EventEvict EventType = "evict"

	// EventExpire fires when an expired entry is physically removed,
	// either lazily on read or by the sweep.
	EventExpire EventType = "expire"

	// EventTagInvalidate fires once per DeleteByTag call.
	EventTagInvalidate EventType = "tag_invalidate"

	// EventClear fires once per Clear call.
	EventClear EventType = "clear"

	// EventOfflineDrop fires when a queued offline write is discarded
	// after exhausting its retries.
	EventOfflineDrop EventType = "offline_drop"
)

// Event describes a cache lifecycle occurrence.
type Event struct {
	Type EventType

	// Key is the affected key. Empty for store-wide events (clear).
	Key string

	// Tag is set for tag invalidation events.
	Tag string

	// Removed is the number of entries removed by a bulk event.
	Removed int
}

// Observer receives cache events. Callbacks run synchronously on the
// goroutine performing the operation and must not call back into the
// store.
type Observer interface {
	OnCacheEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnCacheEvent implements Observer.
func (f ObserverFunc) OnCacheEvent(ev Event) { f(ev) }

// observerList invokes observers in registration order, deterministically.
type observerList struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

type subscription struct {
	id  int
	obs Observer
}

func (l *observerList) subscribe(o Observer) (cancel func()) {
	l.mu.Lock()
	id := l.next
	l.next++
	l.subs = append(l.subs, subscription{id: id, obs: o})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

func (l *observerList) emit(ev Event) {
	l.mu.RLock()
	subs := make([]subscription, len(l.subs))
	copy(subs, l.subs)
	l.mu.RUnlock()

	for _, s := range subs {
		s.obs.OnCacheEvent(ev)
	}
}
