package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValue(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	data, compressed, err := encodeValue(payload{Name: "x", Count: 3}, false)
	require.NoError(t, err)
	assert.False(t, compressed)

	var out payload
	require.NoError(t, decodeValue(data, compressed, &out))
	assert.Equal(t, payload{Name: "x", Count: 3}, out)
}

func TestEncodeValue_Compression(t *testing.T) {
	// Highly repetitive payload compresses well.
	value := strings.Repeat("cacheable ", 500)

	data, compressed, err := encodeValue(value, true)
	require.NoError(t, err)
	assert.True(t, compressed)
	assert.Less(t, len(data), len(value))

	var out string
	require.NoError(t, decodeValue(data, compressed, &out))
	assert.Equal(t, value, out)
}

func TestEncodeValue_CompressionSkippedWhenLarger(t *testing.T) {
	// A tiny payload gains nothing from gzip; the codec keeps it raw.
	data, compressed, err := encodeValue(1, true)
	require.NoError(t, err)
	assert.False(t, compressed)

	var out int
	require.NoError(t, decodeValue(data, compressed, &out))
	assert.Equal(t, 1, out)
}

func TestEncodeValue_Unserializable(t *testing.T) {
	_, _, err := encodeValue(make(chan int), false)
	assert.Error(t, err)
}

func TestDecodePayload_CorruptGzip(t *testing.T) {
	_, err := decodePayload([]byte("not gzip"), true)
	assert.Error(t, err)
}

func TestWireRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := &Entry{
		Key:        "k",
		Value:      []byte(`{"a":1}`),
		Compressed: false,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		Tags:       []string{"session"},
		Size:       7,
		Metadata:   map[string]string{"origin": "test"},
	}

	data, err := encodeWire(entry)
	require.NoError(t, err)

	we, err := decodeWire(data)
	require.NoError(t, err)
	assert.Equal(t, entry.Value, we.Value)
	assert.Equal(t, entry.Tags, we.Tags)
	assert.Equal(t, entry.Metadata, we.Metadata)
	assert.True(t, we.ExpiresAt.Equal(entry.ExpiresAt))
}

func TestDecodeWire_Corrupt(t *testing.T) {
	_, err := decodeWire([]byte("{"))
	assert.Error(t, err)
}
