package strategy

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// Registry holds pattern -> Strategy mappings. Lookup returns the first
// registered strategy whose pattern matches the key, so more specific
// patterns should be registered before broad ones.
type Registry struct {
	mu      sync.RWMutex
	entries []registration
}

type registration struct {
	pattern string
	matcher glob.Glob
	strat   Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register associates a key pattern with a strategy. Patterns use glob
// syntax ("session:*", "user:*:profile"); a pattern without wildcards is
// a literal match. Registering an invalid pattern returns an error.
func (r *Registry) Register(pattern string, strat Strategy) error {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compile strategy pattern %q: %w", pattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, registration{
		pattern: pattern,
		matcher: matcher,
		strat:   strat,
	})
	return nil
}

// Lookup returns the first strategy whose pattern matches the key.
// The second return is false when no pattern matches.
func (r *Registry) Lookup(key string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.entries {
		if reg.matcher.Match(key) {
			return reg.strat, true
		}
	}
	return Strategy{}, false
}

// Dependents returns the keys of strategies that declare dep as a
// dependency, paired with their patterns. The store uses this to
// invalidate dependent entries when a dependency key is written.
func (r *Registry) Dependents(dep string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var patterns []string
	for _, reg := range r.entries {
		for _, d := range reg.strat.Dependencies {
			if d == dep {
				patterns = append(patterns, reg.pattern)
				break
			}
		}
	}
	return patterns
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
