package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// encodeValue serializes a value to JSON, optionally gzip-compressing the
// result. Compression is skipped when it would not shrink the payload.
func encodeValue(value any, compress bool) (data []byte, compressed bool, err error) {
	data, err = json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("marshal cache value: %w", err)
	}
	if !compress {
		return data, false, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, false, fmt.Errorf("compress cache value: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, false, fmt.Errorf("compress cache value: %w", err)
	}
	if buf.Len() >= len(data) {
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// decodePayload returns the raw serialized payload, decompressing it when
// needed.
func decodePayload(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress cache value: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress cache value: %w", err)
	}
	return out, nil
}

// decodeValue unmarshals a stored payload into dest.
func decodeValue(data []byte, compressed bool, dest any) error {
	payload, err := decodePayload(data, compressed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value: %w", err)
	}
	return nil
}

// wireEntry is the envelope stored in the distributed and persistent
// tiers. It carries enough metadata to rebuild a local entry in another
// process or after a restart.
type wireEntry struct {
	Value      []byte            `json:"value"`
	Compressed bool              `json:"compressed,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func encodeWire(e *Entry) ([]byte, error) {
	data, err := json.Marshal(wireEntry{
		Value:      e.Value,
		Compressed: e.Compressed,
		CreatedAt:  e.CreatedAt,
		ExpiresAt:  e.ExpiresAt,
		Tags:       e.Tags,
		Metadata:   e.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal wire entry: %w", err)
	}
	return data, nil
}

func decodeWire(data []byte) (*wireEntry, error) {
	var we wireEntry
	if err := json.Unmarshal(data, &we); err != nil {
		return nil, fmt.Errorf("unmarshal wire entry: %w", err)
	}
	return &we, nil
}
