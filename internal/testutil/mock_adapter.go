// Package testutil provides testing utilities for the tiercache engine.
package testutil

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/voss-io/tiercache/pkg/remote"
)

// ErrDown simulates a connectivity failure. It satisfies net.Error so the
// engine classifies it as a connectivity loss.
var ErrDown = &net.OpError{Op: "dial", Net: "tcp", Err: &timeoutError{}}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "simulated connection failure" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

type mockEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MockAdapter is an in-memory remote.Adapter with configurable failure
// injection, used to exercise degradation paths without a network.
type MockAdapter struct {
	mu      sync.Mutex
	entries map[string]mockEntry

	// Down makes every call, including Ping, fail with ErrDown while true.
	down bool

	// FailNext makes the next n data operations fail with ErrDown, then
	// recover. Ping is unaffected, which lets tests exercise the case
	// where the probe succeeds but an individual operation fails.
	failNext int

	// Tracking
	GetCalls    int
	SetCalls    int
	DeleteCalls int
	PingCalls   int
}

// NewMockAdapter creates a healthy mock adapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{entries: make(map[string]mockEntry)}
}

// SetDown toggles permanent failure mode.
func (m *MockAdapter) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// FailNext makes the next n data operations fail, then the adapter recovers.
func (m *MockAdapter) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Len returns the number of stored entries.
func (m *MockAdapter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// checkUp consumes failure injection. Callers must hold mu.
func (m *MockAdapter) checkUp() error {
	if m.down {
		return ErrDown
	}
	if m.failNext > 0 {
		m.failNext--
		return ErrDown
	}
	return nil
}

func (m *MockAdapter) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if err := m.checkUp(); err != nil {
		return nil, err
	}
	e, ok := m.entries[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return nil, remote.ErrNotFound
	}
	return e.value, nil
}

func (m *MockAdapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if err := m.checkUp(); err != nil {
		return err
	}
	e := mockEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MockAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if err := m.checkUp(); err != nil {
		return err
	}
	delete(m.entries, key)
	return nil
}

func (m *MockAdapter) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return false, err
	}
	e, ok := m.entries[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return false, nil
	}
	return true, nil
}

func (m *MockAdapter) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return err
	}
	m.entries = make(map[string]mockEntry)
	return nil
}

func (m *MockAdapter) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return nil, err
	}
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var keys []string
	for k := range m.entries {
		if matcher.Match(k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MockAdapter) GetTTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return 0, err
	}
	e, ok := m.entries[key]
	if !ok {
		return 0, remote.ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	ttl := time.Until(e.expiresAt)
	if ttl < 0 {
		return 0, remote.ErrNotFound
	}
	return ttl, nil
}

func (m *MockAdapter) SetTTL(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUp(); err != nil {
		return err
	}
	e, ok := m.entries[key]
	if !ok {
		return remote.ErrNotFound
	}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	m.entries[key] = e
	return nil
}

func (m *MockAdapter) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingCalls++
	if m.down {
		return ErrDown
	}
	return nil
}

var _ remote.Adapter = (*MockAdapter)(nil)
