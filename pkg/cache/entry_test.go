package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: now.Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: now.Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: now.Add(-1 * time.Second),
			want:    true,
		},
		{
			name:    "no expiry",
			expires: time.Time{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{ExpiresAt: tt.expires}
			if got := entry.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{
			name:    "one hour remaining",
			expires: now.Add(1 * time.Hour),
			want:    1 * time.Hour,
		},
		{
			name:    "already expired",
			expires: now.Add(-1 * time.Hour),
			want:    0,
		},
		{
			name:    "no expiry",
			expires: time.Time{},
			want:    -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{ExpiresAt: tt.expires}
			if got := entry.TTL(now); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Touch(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	entry := &Entry{CreatedAt: created}

	if got := entry.AccessCount(); got != 0 {
		t.Fatalf("AccessCount() = %d, want 0", got)
	}
	if got := entry.LastAccessedAt(); !got.Equal(created) {
		t.Fatalf("LastAccessedAt() before touch = %v, want CreatedAt %v", got, created)
	}

	now := time.Now()
	entry.touch(now)
	entry.touch(now.Add(time.Second))

	if got := entry.AccessCount(); got != 2 {
		t.Errorf("AccessCount() = %d, want 2", got)
	}
	if got := entry.LastAccessedAt(); !got.Equal(now.Add(time.Second)) {
		t.Errorf("LastAccessedAt() = %v, want %v", got, now.Add(time.Second))
	}
}

func TestEntry_HasTag(t *testing.T) {
	entry := &Entry{Tags: []string{"session", "user"}}

	if !entry.HasTag("session") {
		t.Error("HasTag(session) = false, want true")
	}
	if entry.HasTag("other") {
		t.Error("HasTag(other) = true, want false")
	}
}
