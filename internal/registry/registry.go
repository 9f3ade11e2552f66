package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry maps module keys to their loaded values for one bootstrap
// session. It is created fresh per session and grows monotonically: entries
// are never removed or replaced.
type Registry struct {
	id      string
	mu      sync.RWMutex
	entries map[string]any
}

// New creates an empty session registry.
func New() *Registry {
	return &Registry{
		id:      uuid.NewString(),
		entries: map[string]any{},
	}
}

// ID returns the session identifier.
func (r *Registry) ID() string {
	return r.id
}

// Set stores a loaded module. The first value registered for a key wins;
// later writes for the same key are ignored to keep the registry
// append-only.
func (r *Registry) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return
	}
	r.entries[key] = value
}

// Get returns the loaded value for a key.
func (r *Registry) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has reports whether a key is loaded.
func (r *Registry) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Len returns the number of loaded modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns the loaded module keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
