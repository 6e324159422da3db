package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/refcheck/internal/domain"
)

// MemoryCache is the layer-1 cache, backed by patrickmn/go-cache.
type MemoryCache struct {
	c           *gocache.Cache
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// NewMemoryCache constructs a layer-1 cache with the given positive
// and negative TTLs. A background goroutine sweeps expired entries
// every cleanupInterval.
func NewMemoryCache(positiveTTL, negativeTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		c:           gocache.New(positiveTTL, cleanupInterval),
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

func (m *MemoryCache) Lookup(backend, normalizedTitle string) (domain.CacheEntry, bool) {
	v, found := m.c.Get(Key(backend, normalizedTitle))
	if !found {
		return domain.CacheEntry{}, false
	}
	entry, ok := v.(domain.CacheEntry)
	return entry, ok
}

func (m *MemoryCache) Insert(backend, normalizedTitle string, entry domain.CacheEntry) error {
	ttl := m.positiveTTL
	if entry.Class == domain.OutcomeClassNegative {
		ttl = m.negativeTTL
	}
	m.c.Set(Key(backend, normalizedTitle), entry, ttl)
	return nil
}

func (m *MemoryCache) ClearAll() error {
	m.c.Flush()
	return nil
}

func (m *MemoryCache) ClearNegatives() error {
	for k, item := range m.c.Items() {
		if entry, ok := item.Object.(domain.CacheEntry); ok && entry.Class == domain.OutcomeClassNegative {
			m.c.Delete(k)
		}
	}
	return nil
}
