package cache

import (
	"sync/atomic"
	"time"
)

// Entry is a cached item in the memory tier. Value holds the serialized
// payload, gzip-compressed when Compressed is true. Access bookkeeping
// uses atomics so concurrent gets only need the store's read lock.
type Entry struct {
	// Key is the cache key, unique within the store.
	Key string

	// Value is the serialized payload.
	Value []byte

	// Compressed indicates Value is gzip-compressed.
	Compressed bool

	// CreatedAt is when the entry was inserted.
	CreatedAt time.Time

	// ExpiresAt is CreatedAt + TTL. Zero means the entry never expires.
	ExpiresAt time.Time

	// Tags label the entry for bulk invalidation.
	Tags []string

	// Size is the serialized payload length in bytes.
	Size int64

	// Metadata is free-form caller data carried with the entry.
	Metadata map[string]string

	// seq is the insertion sequence, used to break eviction ties.
	seq uint64

	accessCount atomic.Int64
	lastAccess  atomic.Int64 // unix nanoseconds
}

// IsExpired reports whether the entry is logically expired at the given
// time, independent of whether it has been physically removed.
func (e *Entry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// TTL returns the time until expiration at the given time. Returns 0 if
// already expired and a negative value for entries without expiry.
func (e *Entry) TTL(now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return -1
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// AccessCount returns how many times the entry has been read.
func (e *Entry) AccessCount() int64 {
	return e.accessCount.Load()
}

// LastAccessedAt returns the time of the last read, or CreatedAt when the
// entry has never been read.
func (e *Entry) LastAccessedAt() time.Time {
	ns := e.lastAccess.Load()
	if ns == 0 {
		return e.CreatedAt
	}
	return time.Unix(0, ns)
}

// HasTag reports whether the entry carries the tag.
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// touch records a read at the given time.
func (e *Entry) touch(now time.Time) {
	e.accessCount.Add(1)
	e.lastAccess.Store(now.UnixNano())
}
