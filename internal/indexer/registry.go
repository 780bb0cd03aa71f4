package indexer

import (
	"sort"
	"sync"
)

// MemoryRegistry is an in-memory Registry. Entries that failed to load are kept
// so that lookups report them as malformed instead of silently dropping them.
type MemoryRegistry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	broken   map[string]error
}

// NewMemoryRegistry creates a registry holding the given adapters.
func NewMemoryRegistry(adapters ...Adapter) *MemoryRegistry {
	r := &MemoryRegistry{
		adapters: make(map[string]Adapter),
		broken:   make(map[string]error),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter.
func (r *MemoryRegistry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.broken, a.ID())
	r.adapters[a.ID()] = a
}

// RegisterBroken records an entry that could not be constructed.
func (r *MemoryRegistry) RegisterBroken(id string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, id)
	r.broken[id] = cause
}

// IDs returns every registered identifier, broken ones included, in sorted order.
func (r *MemoryRegistry) IDs() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters)+len(r.broken))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	for id := range r.broken {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Lookup returns the adapter for id.
func (r *MemoryRegistry) Lookup(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cause, ok := r.broken[id]; ok {
		return nil, NewMalformedError(id, "entry failed to load", cause)
	}
	a, ok := r.adapters[id]
	if !ok {
		return nil, NewNotFoundError("adapter " + id + " not registered")
	}
	return a, nil
}

// Len returns the number of entries.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters) + len(r.broken)
}

// MultiRegistry chains registries. The first registry holding an ID wins.
type MultiRegistry []Registry

// IDs returns the union of identifiers in sorted order.
func (m MultiRegistry) IDs() ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range m {
		rids, err := r.IDs()
		if err != nil {
			return nil, err
		}
		for _, id := range rids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Lookup returns the adapter from the first registry that knows id.
func (m MultiRegistry) Lookup(id string) (Adapter, error) {
	for _, r := range m {
		rids, err := r.IDs()
		if err != nil {
			return nil, err
		}
		for _, rid := range rids {
			if rid == id {
				return r.Lookup(id)
			}
		}
	}
	return nil, NewNotFoundError("adapter " + id + " not registered")
}
