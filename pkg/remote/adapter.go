// Package remote defines the distributed cache tier consumed by the store
// and provides the Redis implementation. The tier is shared between
// processes with last-write-wins semantics; no conflict resolution is
// attempted.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested key does not exist in the remote tier.
var ErrNotFound = errors.New("remote: key not found")

// Adapter is the distributed tier contract. Every method is network-bound
// and fallible; the store must treat any returned error as a degradation
// of the remote tier, never as a failure of the overall cache operation.
type Adapter interface {
	// Get returns the stored payload or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload with the given TTL. A zero TTL stores
	// without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes all keys in the adapter's namespace.
	Clear(ctx context.Context) error

	// Keys returns the keys matching the given glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// GetTTL returns the remaining TTL for the key, 0 when the key has
	// no expiry, or ErrNotFound.
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	// SetTTL updates the TTL of an existing key.
	SetTTL(ctx context.Context, key string, ttl time.Duration) error

	// Ping probes connectivity. Used by the offline replayer to decide
	// whether to attempt a drain.
	Ping(ctx context.Context) error
}
