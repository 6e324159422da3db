// Package cache implements the engine's two-tier query cache: a
// lock-free in-memory layer and an optional persistent layer, keyed by
// (backend name, normalised title), with separate TTLs for positive
// and negative outcomes.
package cache

import (
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
)

// DefaultPositiveTTL and DefaultNegativeTTL are the TTLs mandated by
// the engine's specification (this overrides the longer TTLs used by
// the system this engine's protocol was distilled from).
const (
	DefaultPositiveTTL = 7 * 24 * time.Hour
	DefaultNegativeTTL = 24 * time.Hour
)

// keySeparator matches the persisted-schema separator: a unit
// separator control character that cannot appear in a backend name or
// a normalised title.
const keySeparator = "\x1f"

// Key builds the cache key for a (backend, normalised title) pair.
func Key(backend, normalizedTitle string) string {
	return backend + keySeparator + normalizedTitle
}

// Store is the two-tier query cache's public contract.
type Store interface {
	// Lookup returns the cached outcome for (backend, normalizedTitle),
	// or ok=false on a miss or expired entry.
	Lookup(backend, normalizedTitle string) (domain.CacheEntry, bool)

	// Insert records the outcome of a completed query. Callers must
	// never insert timeout/rate-limited/error outcomes (spec §4.4).
	Insert(backend, normalizedTitle string, entry domain.CacheEntry) error

	// ClearAll removes every cached entry.
	ClearAll() error

	// ClearNegatives removes only negative (not-found) entries, for
	// use after a known backend outage.
	ClearNegatives() error
}
