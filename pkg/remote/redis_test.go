package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisAdapter(client, "test:"), mr
}

func TestRedisAdapter_SetGet(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := adapter.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestRedisAdapter_GetMissing(t *testing.T) {
	adapter, _ := setupAdapter(t)

	_, err := adapter.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisAdapter_Expiry(t *testing.T) {
	adapter, mr := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisAdapter_DeleteAndExists(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 0))

	ok, err := adapter.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, adapter.Delete(ctx, "k"))

	ok, err = adapter.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, adapter.Delete(ctx, "k"))
}

func TestRedisAdapter_ClearRespectsPrefix(t *testing.T) {
	adapter, mr := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, adapter.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, mr.Set("other:key", "untouched"))

	require.NoError(t, adapter.Clear(ctx))

	ok, err := adapter.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Keys outside the adapter prefix survive.
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisAdapter_Keys(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "session:1", []byte("a"), 0))
	require.NoError(t, adapter.Set(ctx, "session:2", []byte("b"), 0))
	require.NoError(t, adapter.Set(ctx, "user:1", []byte("c"), 0))

	keys, err := adapter.Keys(ctx, "session:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"session:1", "session:2"}, keys)
}

func TestRedisAdapter_TTL(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Hour))

	ttl, err := adapter.GetTTL(ctx, "k")
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 2)

	require.NoError(t, adapter.SetTTL(ctx, "k", time.Minute))
	ttl, err = adapter.GetTTL(ctx, "k")
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	_, err = adapter.GetTTL(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, adapter.SetTTL(ctx, "missing", time.Minute), ErrNotFound)
}

func TestRedisAdapter_NoExpiry(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 0))

	ttl, err := adapter.GetTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestRedisAdapter_PingDownBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	adapter := NewRedisAdapter(client, "")

	require.NoError(t, adapter.Ping(context.Background()))

	mr.Close()
	err := adapter.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
}

func TestNewRedisAdapter_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewRedisAdapter(nil, "") })
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"not found", ErrNotFound, ErrorClassMiss},
		{"wrapped not found", errors.Join(errors.New("ctx"), ErrNotFound), ErrorClassMiss},
		{"refused", syscall.ECONNREFUSED, ErrorClassConnectivity},
		{"reset", syscall.ECONNRESET, ErrorClassConnectivity},
		{"deadline", context.DeadlineExceeded, ErrorClassConnectivity},
		{"eof", io.EOF, ErrorClassConnectivity},
		{"dns", &net.DNSError{Err: "no such host"}, ErrorClassConnectivity},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("down")}, ErrorClassConnectivity},
		{"pool timeout text", errors.New("redis: connection pool timeout"), ErrorClassConnectivity},
		{"backend", errors.New("WRONGTYPE operation"), ErrorClassBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsConnectivity_Nil(t *testing.T) {
	assert.False(t, IsConnectivity(nil))
}
