// Package persist implements the durable local cache tier on SQLite.
// It survives process restarts and is used to rehydrate the memory tier
// and to serve reads when both the memory and distributed tiers miss.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested key is absent or expired.
var ErrNotFound = errors.New("persist: key not found")

// Record is a durable cache entry. The schema preserves everything the
// store needs for correct rehydration and tag invalidation after restart.
type Record struct {
	Key        string
	Value      []byte
	Compressed bool
	CreatedAt  time.Time
	ExpiresAt  time.Time // zero means no expiry
	Tags       []string
	Size       int64
	Metadata   map[string]string
}

// IsExpired reports whether the record is past its expiry at the given time.
func (r *Record) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Store is a SQLite-backed persistent tier. Safe for concurrent use; the
// database handle serializes writers internally.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key         TEXT PRIMARY KEY,
	value       BLOB NOT NULL,
	compressed  INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL DEFAULT 0,
	tags        TEXT NOT NULL DEFAULT '[]',
	size        INTEGER NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries (expires_at);
`

// Open opens (or creates) the persistent tier at the given path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for the key, or ErrNotFound when absent.
// Expired records are treated as missing but left in place; Sweep
// removes them physically.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, compressed, created_at, expires_at, tags, size, metadata
		 FROM cache_entries WHERE key = ?`, key)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	if rec.IsExpired(time.Now()) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Put inserts or replaces the record for rec.Key.
func (s *Store) Put(ctx context.Context, rec *Record) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	var meta []byte
	if len(rec.Metadata) > 0 {
		if meta, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	var expires int64
	if !rec.ExpiresAt.IsZero() {
		expires = rec.ExpiresAt.UnixMilli()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries
		 (key, value, compressed, created_at, expires_at, tags, size, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Key, rec.Value, boolToInt(rec.Compressed), rec.CreatedAt.UnixMilli(),
		expires, string(tags), rec.Size, nullableString(meta))
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// Delete removes the record. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// DeleteByTag removes every record whose tag set contains tag and returns
// the number of removed records.
func (s *Store) DeleteByTag(ctx context.Context, tag string) (int64, error) {
	// Tags are stored as a JSON array; the LIKE match on the quoted tag is
	// exact because tag strings are JSON-escaped on write.
	pattern, err := json.Marshal(tag)
	if err != nil {
		return 0, fmt.Errorf("marshal tag: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE tags LIKE ?`, "%"+string(pattern)+"%")
	if err != nil {
		return 0, fmt.Errorf("sqlite delete by tag: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}

// Sweep physically removes records that expired before now and returns
// the number removed.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Each iterates over all non-expired records in key order and invokes fn
// for each. Iteration stops at the first error from fn. Used by the store
// to rehydrate the memory tier after a restart.
func (s *Store) Each(ctx context.Context, fn func(*Record) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, compressed, created_at, expires_at, tags, size, metadata
		 FROM cache_entries ORDER BY key`)
	if err != nil {
		return fmt.Errorf("sqlite scan: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("sqlite scan row: %w", err)
		}
		if rec.IsExpired(now) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Len returns the number of records, including expired ones not yet swept.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		compressed int
		createdAt  int64
		expiresAt  int64
		tags       string
		meta       sql.NullString
	)
	if err := row.Scan(&rec.Key, &rec.Value, &compressed, &createdAt, &expiresAt,
		&tags, &rec.Size, &meta); err != nil {
		return nil, err
	}

	rec.Compressed = compressed != 0
	rec.CreatedAt = time.UnixMilli(createdAt)
	if expiresAt > 0 {
		rec.ExpiresAt = time.UnixMilli(expiresAt)
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
