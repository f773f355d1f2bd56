package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key builds deterministic, namespaced cache keys. Callers that already
// have flat string keys can ignore it; it exists so composite lookups
// (entity + parameters) always serialize to the same key string.
type Key struct {
	// Namespace scopes the key (e.g. "session", "market").
	Namespace string

	// Parts are path-like segments appended in order.
	Parts []string

	// Params are name/value qualifiers, serialized in sorted order for
	// determinism.
	Params map[string]string
}

// String renders the key as namespace:part1:part2:k=v with params sorted
// by name.
//
// Example:
//
//	Key{Namespace: "market", Parts: []string{"orders", "10000002"},
//	    Params: map[string]string{"type": "all"}}.String()
//	// "market:orders:10000002:type=all"
func (k Key) String() string {
	parts := make([]string, 0, 1+len(k.Parts)+len(k.Params))
	if k.Namespace != "" {
		parts = append(parts, k.Namespace)
	}
	for _, p := range k.Parts {
		if p != "" {
			parts = append(parts, p)
		}
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}
