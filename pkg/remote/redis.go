package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter implements Adapter on top of a Redis backend. All keys are
// namespaced with a configurable prefix so several engines can share one
// Redis database.
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

// NewRedisAdapter creates a Redis-backed adapter. The prefix is prepended
// to every key ("tiercache:" by default when empty).
func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "tiercache:"
	}
	return &RedisAdapter{
		client: client,
		prefix: prefix,
	}
}

func (a *RedisAdapter) key(key string) string {
	return a.prefix + key
}

// Get returns the stored payload or ErrNotFound.
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.client.Get(ctx, a.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores the payload with the given TTL.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.client.Set(ctx, a.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the key. Missing keys are not an error.
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, a.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Exists reports whether the key is present.
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Exists(ctx, a.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Clear removes every key under the adapter's prefix. Uses SCAN to avoid
// blocking Redis on large keyspaces.
func (a *RedisAdapter) Clear(ctx context.Context) error {
	iter := a.client.Scan(ctx, 0, a.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := a.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis clear scan: %w", err)
	}
	return nil
}

// Keys returns keys matching the glob pattern, with the prefix stripped.
func (a *RedisAdapter) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := a.client.Scan(ctx, 0, a.prefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(a.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis keys scan: %w", err)
	}
	return keys, nil
}

// GetTTL returns the remaining TTL, 0 for keys without expiry, or
// ErrNotFound for missing keys.
func (a *RedisAdapter) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := a.client.TTL(ctx, a.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	switch {
	case ttl == -2*time.Nanosecond:
		// go-redis maps the TTL command's -2 (missing key) to -2ns.
		return 0, ErrNotFound
	case ttl < 0:
		// -1: key exists without expiry.
		return 0, nil
	default:
		return ttl, nil
	}
}

// SetTTL updates the TTL of an existing key.
func (a *RedisAdapter) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := a.client.Expire(ctx, a.key(key), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Ping probes connectivity to the backend.
func (a *RedisAdapter) Ping(ctx context.Context) error {
	if err := a.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

var _ Adapter = (*RedisAdapter)(nil)
