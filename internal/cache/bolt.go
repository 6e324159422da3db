package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ppiankov/refcheck/internal/domain"
)

var entriesBucket = []byte("entries")

// BoltCache is the layer-2 persistent store backed by a single
// write-ahead-logged bbolt database file, used when Config.CachePath
// has a file extension (e.g. "refcheck.db"). Keys are backend || 0x1F ||
// normalised title.
type BoltCache struct {
	db          *bolt.DB
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// OpenBoltCache opens (creating if absent) a bbolt database at path.
func OpenBoltCache(path string, positiveTTL, negativeTTL time.Duration) (*BoltCache, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create entries bucket: %w", err)
	}
	return &BoltCache{db: db, positiveTTL: positiveTTL, negativeTTL: negativeTTL}, nil
}

func (b *BoltCache) Close() error {
	return b.db.Close()
}

type boltEntry struct {
	Entry     domain.CacheEntry `json:"entry"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (b *BoltCache) Lookup(backend, normalizedTitle string) (domain.CacheEntry, bool) {
	key := []byte(Key(backend, normalizedTitle))
	var result domain.CacheEntry
	var hit bool
	var expired bool

	_ = b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(entriesBucket).Get(key)
		if raw == nil {
			return nil
		}
		var be boltEntry
		if err := json.Unmarshal(raw, &be); err != nil {
			return nil
		}
		if time.Now().After(be.ExpiresAt) {
			expired = true
			return nil
		}
		result = be.Entry
		hit = true
		return nil
	})

	if expired {
		_ = b.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(entriesBucket).Delete(key)
		})
	}
	return result, hit
}

func (b *BoltCache) Insert(backend, normalizedTitle string, entry domain.CacheEntry) error {
	ttl := b.positiveTTL
	if entry.Class == domain.OutcomeClassNegative {
		ttl = b.negativeTTL
	}
	be := boltEntry{Entry: entry, ExpiresAt: time.Now().Add(ttl)}
	raw, err := json.Marshal(be)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	key := []byte(Key(backend, normalizedTitle))
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put(key, raw)
	})
}

func (b *BoltCache) ClearAll() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(entriesBucket)
		return err
	})
}

func (b *BoltCache) ClearNegatives() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		var toDelete [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var be boltEntry
			if err := json.Unmarshal(v, &be); err != nil {
				return nil
			}
			if be.Entry.Class == domain.OutcomeClassNegative {
				toDelete = append(toDelete, append([]byte{}, k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
