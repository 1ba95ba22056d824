// Package cache wraps github.com/VictoriaMetrics/fastcache as a clean
// read-through cache layered in front of the entity store's positional
// reads, grounded on triedb/pathdb/disklayer.go's "clean" fastcache layer
// ahead of a backing trie database. See SPEC_FULL.md "Domain stack".
package cache

import "github.com/VictoriaMetrics/fastcache"

// Clean is a process-memory cache keyed by an arbitrary byte key (entity
// stores use the 8-byte little-endian slot id). It never changes what is
// authoritative: the backing file always wins on a miss or after an
// invalidation, this is purely a read accelerator.
type Clean struct {
	c *fastcache.Cache
}

// New creates a Clean cache sized maxBytes. A maxBytes of 0 or less does
// not disable caching: it is raised to 1 and fastcache then allocates its
// smallest cache, which still stores and returns entries.
func New(maxBytes int) *Clean {
	if maxBytes <= 0 {
		maxBytes = 1 // fastcache requires a positive size.
	}
	return &Clean{c: fastcache.New(maxBytes)}
}

// Get appends the cached value for key to dst and returns the extended
// slice plus whether it was found.
func (c *Clean) Get(dst, key []byte) ([]byte, bool) {
	return c.c.HasGet(dst, key)
}

// Set stores value under key, overwriting any previous entry.
func (c *Clean) Set(key, value []byte) { c.c.Set(key, value) }

// Del invalidates key using fastcache's own Del.
func (c *Clean) Del(key []byte) { c.c.Del(key) }

// Reset clears every entry.
func (c *Clean) Reset() { c.c.Reset() }
