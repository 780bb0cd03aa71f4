package suite

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slipstream/providercheck/internal/cassette"
	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/overrides"
)

// Options configures suite generation.
type Options struct {
	CassetteDir string
	Overrides   *overrides.Set
	TLS         TLSPolicy
	// Enabled restricts generation to these adapter IDs when non-empty.
	Enabled []string
	Logger  zerolog.Logger
}

// Exclusion records an adapter left out of the catalog.
type Exclusion struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Catalog holds the generated suites keyed by adapter ID.
type Catalog struct {
	mu       sync.RWMutex
	suites   map[string]*Suite
	excluded map[string]Exclusion
	stale    []overrides.StaleEntry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		suites:   make(map[string]*Suite),
		excluded: make(map[string]Exclusion),
	}
}

// Generate builds a catalog from the registry. The only error is a registry
// that cannot be enumerated; unusable entries are excluded instead.
func Generate(reg indexer.Registry, opts Options) (*Catalog, error) {
	c := NewCatalog()
	if err := c.Populate(reg, opts); err != nil {
		return nil, err
	}
	return c, nil
}

// Populate adds a suite for every eligible adapter not already present.
// Calling it repeatedly with the same registry leaves the catalog unchanged.
func (c *Catalog) Populate(reg indexer.Registry, opts Options) error {
	logger := opts.Logger.With().Str("component", "generator").Logger()

	ids, err := reg.IDs()
	if err != nil {
		if errors.Is(err, indexer.ErrRegistryUnavailable) {
			return err
		}
		return indexer.NewRegistryError(err)
	}

	set := opts.Overrides
	if set == nil {
		set = overrides.Empty()
	}
	enabled := make(map[string]bool, len(opts.Enabled))
	for _, id := range opts.Enabled {
		enabled[id] = true
	}

	var known []string
	for _, id := range ids {
		adapter, err := reg.Lookup(id)
		if len(enabled) > 0 && !enabled[id] {
			if err == nil && adapter != nil {
				known = append(known, adapter.ID(), adapter.Name())
			}
			continue
		}
		if err != nil {
			c.exclude(id, err.Error())
			logger.Warn().Err(err).Str("adapter", id).Msg("Excluding malformed registry entry")
			continue
		}
		if adapter == nil {
			c.exclude(id, "registry returned no adapter")
			logger.Warn().Str("adapter", id).Msg("Excluding empty registry entry")
			continue
		}
		known = append(known, adapter.ID(), adapter.Name())

		caps, err := adapter.Capabilities()
		if err == nil {
			err = caps.Validate()
		}
		if err != nil {
			c.exclude(id, err.Error())
			logger.Warn().Err(err).Str("adapter", id).Msg("Excluding adapter with malformed capabilities")
			continue
		}
		if !caps.Eligible() {
			c.exclude(id, "not a public torrent adapter with backlog search")
			logger.Debug().Str("adapter", id).Msg("Adapter not eligible")
			continue
		}

		name := SuiteName(id)
		if owner, taken := c.nameOwner(name, id); taken {
			c.exclude(id, fmt.Sprintf("suite name %s already used by adapter %s", name, owner))
			logger.Warn().Str("adapter", id).Str("suite", name).Str("owner", owner).Msg("Excluding adapter with colliding suite name")
			continue
		}

		added := c.Add(&Suite{
			Name:         name,
			Adapter:      adapter,
			Capabilities: caps,
			CassettePath: cassette.Path(opts.CassetteDir, id),
			VerifyTLS:    opts.TLS.VerifyFor(adapter.Name()),
			Cases:        CasesFor(caps),
			overrides:    set,
		})
		if added {
			logger.Debug().Str("adapter", id).Str("suite", name).Msg("Generated suite")
		}
	}

	stale := set.Unknown(known)
	for _, entry := range stale {
		logger.Warn().Str("entry", entry.String()).Msg("Override refers to an unregistered adapter")
	}
	c.mu.Lock()
	c.stale = stale
	c.mu.Unlock()

	return nil
}

// Add registers a suite unless one is already present for its adapter ID
// or another adapter's suite has the same name.
func (c *Catalog) Add(s *Suite) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := s.ID()
	if _, exists := c.suites[id]; exists {
		return false
	}
	for otherID, other := range c.suites {
		if other.Name == s.Name && otherID != id {
			return false
		}
	}
	if s.overrides == nil {
		s.overrides = overrides.Empty()
	}
	c.suites[id] = s
	delete(c.excluded, id)
	return true
}

// nameOwner returns the adapter ID whose suite already uses name, other than id.
func (c *Catalog) nameOwner(name, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for otherID, s := range c.suites {
		if s.Name == name && otherID != id {
			return otherID, true
		}
	}
	return "", false
}

func (c *Catalog) exclude(id, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.suites[id]; exists {
		return
	}
	c.excluded[id] = Exclusion{ID: id, Reason: reason}
}

// Suites returns the suites sorted by adapter ID.
func (c *Catalog) Suites() []*Suite {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Suite, 0, len(c.suites))
	for _, s := range c.suites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Lookup returns the suite registered under a suite name.
func (c *Catalog) Lookup(name string) (*Suite, bool) {
	for _, s := range c.Suites() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of suites.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.suites)
}

// Excluded returns the excluded adapters sorted by ID.
func (c *Catalog) Excluded() []Exclusion {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Exclusion, 0, len(c.excluded))
	for _, e := range c.excluded {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stale returns the override entries that matched no registered adapter.
func (c *Catalog) Stale() []overrides.StaleEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]overrides.StaleEntry(nil), c.stale...)
}
