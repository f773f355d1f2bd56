package cache

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "namespace only",
			key:  Key{Namespace: "session"},
			want: "session",
		},
		{
			name: "namespace and parts",
			key:  Key{Namespace: "market", Parts: []string{"orders", "10000002"}},
			want: "market:orders:10000002",
		},
		{
			name: "params sorted for determinism",
			key: Key{
				Namespace: "market",
				Parts:     []string{"orders"},
				Params:    map[string]string{"type": "all", "page": "2"},
			},
			want: "market:orders:page=2:type=all",
		},
		{
			name: "empty parts skipped",
			key:  Key{Namespace: "ns", Parts: []string{"", "a", ""}},
			want: "ns:a",
		},
		{
			name: "no namespace",
			key:  Key{Parts: []string{"a", "b"}},
			want: "a:b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_StringDeterministic(t *testing.T) {
	key := Key{
		Namespace: "ns",
		Params:    map[string]string{"a": "1", "b": "2", "c": "3"},
	}

	first := key.String()
	for i := 0; i < 20; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q != %q", got, first)
		}
	}
}
