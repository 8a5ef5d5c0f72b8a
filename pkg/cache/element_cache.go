// Package cache holds the per-kind element caches graph core consults before
// touching the store adapter: one instance per element kind, each mapping
// element ID to element object, bounded by a max size, with a kind-level
// TTL on every entry. Eviction is ristretto's sampled-LFU policy, not LRU.
//
// Grounded on pkg/cache/query_cache.go's QueryCache (container/list LRU +
// TTL + hit/miss stats), re-platformed onto ristretto since ristretto
// natively supports cost-bounded eviction and per-entry TTL, and is already
// a transitive dependency of Badger.
package cache

import (
	"fmt"
	"time"

	ristretto "github.com/dgraph-io/ristretto/v2"
)

// CacheableElement is the minimal capability an ElementCache requires of the
// element type it stores. graph.Vertex and graph.Edge both satisfy it.
type CacheableElement interface {
	ElementID() string
}

// Config controls one ElementCache instance.
type Config struct {
	// MaxEntries bounds the cache's cost budget; since every element costs
	// 1, this is also the approximate entry count ristretto admits.
	MaxEntries int64
	// TTL is the kind-level time-to-live applied to every Put. Zero means
	// entries never expire on their own (only LRU eviction applies).
	TTL time.Duration
}

// ElementCache is a bounded, TTL'd cache from element ID to element object,
// one instance per kind (vertex, edge). Eviction and admission follow
// ristretto's sampled-LFU/TinyLFU policy: it is not strict LRU, and once
// the cache is full a Put may be declined by admission. A zero-value
// MaxEntries builds a disabled cache: every Get misses and Put/Evict/Clear
// are no-ops, per spec's "0 disables caches."
type ElementCache[T CacheableElement] struct {
	rc       *ristretto.Cache[string, T]
	ttl      time.Duration
	disabled bool

	hits, misses uint64
}

// NewElementCache builds an ElementCache sized per cfg.MaxEntries. A
// MaxEntries of 0 disables caching entirely rather than falling back to a
// default size.
func NewElementCache[T CacheableElement](cfg Config) (*ElementCache[T], error) {
	if cfg.MaxEntries == 0 {
		return &ElementCache[T]{disabled: true}, nil
	}

	maxEntries := cfg.MaxEntries
	rc, err := ristretto.NewCache(&ristretto.Config[string, T]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		Metrics:     false,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: building ristretto cache: %w", err)
	}
	return &ElementCache[T]{rc: rc, ttl: cfg.TTL}, nil
}

// Get returns the cached element for id, if present and unexpired. A miss
// (including an expired entry, which ristretto never surfaces past its TTL)
// reports ok=false. Always misses on a disabled cache.
func (c *ElementCache[T]) Get(id string) (element T, ok bool) {
	if c.disabled {
		c.misses++
		return element, false
	}
	element, ok = c.rc.Get(id)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return element, ok
}

// Put inserts or replaces the cached element for id, per add_vertex/
// add_edge's "cache the new element" and set_property's "re-cache the
// property on the element object if the element is held." Put blocks on
// Wait() so the insert is visible to the very next Get — the synchronous
// coherence §4.3/§8-P8 require despite ristretto's async apply path. A
// disabled cache discards the element.
func (c *ElementCache[T]) Put(id string, element T) {
	if c.disabled {
		return
	}
	if c.ttl > 0 {
		c.rc.SetWithTTL(id, element, 1, c.ttl)
	} else {
		c.rc.Set(id, element, 1)
	}
	c.rc.Wait()
}

// Evict drops id from the cache, per remove_vertex/remove_edge's "evicts the
// element by ID." Evict also waits so a subsequent Get cannot observe a
// stale hit.
func (c *ElementCache[T]) Evict(id string) {
	if c.disabled {
		return
	}
	c.rc.Del(id)
	c.rc.Wait()
}

// Clear wipes every cached element, per "clear and shutdown wipe both
// caches."
func (c *ElementCache[T]) Clear() {
	if c.disabled {
		return
	}
	c.rc.Clear()
}

// Close releases the cache's background goroutines. Call once during graph
// shutdown.
func (c *ElementCache[T]) Close() {
	if c.disabled {
		return
	}
	c.rc.Close()
}

// Stats reports cumulative hit/miss counts for diagnostics.
func (c *ElementCache[T]) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}

// PropertyTTLPolicy resolves the per-property TTL override consulted when
// deciding whether a pre-decoded property binding on a cached element is
// stale, per §4.3: "each with its own per-property TTL (from configuration
// keyed by property name)."
type PropertyTTLPolicy struct {
	defaultTTL time.Duration
	overrides  map[string]time.Duration
}

// NewPropertyTTLPolicy builds a policy with defaultTTL applied to any
// property key not present in overrides.
func NewPropertyTTLPolicy(defaultTTL time.Duration, overrides map[string]time.Duration) *PropertyTTLPolicy {
	return &PropertyTTLPolicy{defaultTTL: defaultTTL, overrides: overrides}
}

// TTLFor returns the TTL to apply to a pre-decoded binding of the given
// property key.
func (p *PropertyTTLPolicy) TTLFor(key string) time.Duration {
	if p == nil {
		return 0
	}
	if ttl, ok := p.overrides[key]; ok {
		return ttl
	}
	return p.defaultTTL
}
