package offline

import (
	"sync"
	"time"
)

// ConnState is a snapshot of distributed tier connectivity as observed by
// the replayer's probes.
type ConnState struct {
	// Online reports whether the last probe succeeded.
	Online bool

	// LastProbe is when connectivity was last checked.
	LastProbe time.Time

	// LastChange is when Online last flipped.
	LastChange time.Time

	// ConsecutiveFailures counts probe failures since the last success.
	ConsecutiveFailures int
}

// IsStale returns true if the state is older than maxAge and should be
// re-probed before being trusted.
func (s ConnState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastProbe) > maxAge
}

// connTracker records probe outcomes. Safe for concurrent use.
type connTracker struct {
	mu    sync.Mutex
	state ConnState
}

func newConnTracker() *connTracker {
	// Assume online until a probe says otherwise, so the first drain
	// attempt is not skipped.
	return &connTracker{state: ConnState{Online: true}}
}

// markOnline records a successful probe and reports whether the state
// flipped from offline to online.
func (t *connTracker) markOnline(now time.Time) (flipped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	flipped = !t.state.Online
	if flipped {
		t.state.LastChange = now
	}
	t.state.Online = true
	t.state.LastProbe = now
	t.state.ConsecutiveFailures = 0
	return flipped
}

// markOffline records a failed probe and reports whether the state
// flipped from online to offline.
func (t *connTracker) markOffline(now time.Time) (flipped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	flipped = t.state.Online
	if flipped {
		t.state.LastChange = now
	}
	t.state.Online = false
	t.state.LastProbe = now
	t.state.ConsecutiveFailures++
	return flipped
}

func (t *connTracker) snapshot() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
