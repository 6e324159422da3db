package cache

import (
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
)

// LayeredCache is the engine's two-tier query cache: a memory layer
// checked first, and an optional persistent layer that mirrors it
// across process restarts. Persistent is nil when no cache_path is
// configured.
type LayeredCache struct {
	memory     *MemoryCache
	persistent Store
}

// NewLayeredCache builds a layered cache. persistent may be nil.
func NewLayeredCache(positiveTTL, negativeTTL time.Duration, persistent Store) *LayeredCache {
	return &LayeredCache{
		memory:     NewMemoryCache(positiveTTL, negativeTTL, 10*time.Minute),
		persistent: persistent,
	}
}

// Lookup checks memory first, then the persistent layer, promoting a
// persistent hit back into memory.
func (c *LayeredCache) Lookup(backend, normalizedTitle string) (domain.CacheEntry, bool) {
	if entry, found := c.memory.Lookup(backend, normalizedTitle); found {
		return entry, true
	}
	if c.persistent == nil {
		return domain.CacheEntry{}, false
	}
	if entry, found := c.persistent.Lookup(backend, normalizedTitle); found {
		_ = c.memory.Insert(backend, normalizedTitle, entry)
		return entry, true
	}
	return domain.CacheEntry{}, false
}

// Insert writes to memory and, if configured, to the persistent layer.
func (c *LayeredCache) Insert(backend, normalizedTitle string, entry domain.CacheEntry) error {
	if err := c.memory.Insert(backend, normalizedTitle, entry); err != nil {
		return err
	}
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Insert(backend, normalizedTitle, entry)
}

func (c *LayeredCache) ClearAll() error {
	if err := c.memory.ClearAll(); err != nil {
		return err
	}
	if c.persistent == nil {
		return nil
	}
	return c.persistent.ClearAll()
}

func (c *LayeredCache) ClearNegatives() error {
	if err := c.memory.ClearNegatives(); err != nil {
		return err
	}
	if c.persistent == nil {
		return nil
	}
	return c.persistent.ClearNegatives()
}
