// Package strategy maps key patterns to caching strategies so callers do
// not have to repeat TTLs, tags, and cacheability rules on every set.
package strategy

import (
	"time"
)

// Condition decides whether a key/value pair is cacheable under a strategy.
type Condition func(key string, value any) bool

// TTLFunc derives a TTL from the key/value being cached. It takes
// precedence over the strategy's fixed TTL when set.
type TTLFunc func(key string, value any) time.Duration

// Strategy describes how matching keys should be cached.
type Strategy struct {
	// TTL is the fixed time-to-live applied to matching entries.
	// Zero means the engine default applies.
	TTL time.Duration

	// TTLFunc, when non-nil, computes the TTL per entry and overrides TTL.
	TTLFunc TTLFunc

	// Tags are added to every matching entry, in addition to any tags
	// passed explicitly on set.
	Tags []string

	// Condition, when non-nil, gates caching. A set whose key/value is
	// rejected by the condition is a no-op.
	Condition Condition

	// Compress enables transparent gzip compression of the serialized value.
	Compress bool

	// Dependencies lists keys whose writes invalidate entries cached
	// under this strategy.
	Dependencies []string
}

// EffectiveTTL returns the TTL for an entry, preferring TTLFunc over the
// fixed TTL. Returns 0 when the strategy does not specify one.
func (s Strategy) EffectiveTTL(key string, value any) time.Duration {
	if s.TTLFunc != nil {
		return s.TTLFunc(key, value)
	}
	return s.TTL
}

// Cacheable reports whether the key/value passes the strategy's condition.
func (s Strategy) Cacheable(key string, value any) bool {
	if s.Condition == nil {
		return true
	}
	return s.Condition(key, value)
}
