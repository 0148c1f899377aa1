package bootstrap

import (
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// cacheBucket is the single bbolt bucket all registry cache entries live
// in, keyed by kind: one bucket per cache, not per kind, since bbolt's
// atomic commit already gives a "replace the whole entry or don't" write.
var cacheBucket = []byte("iana-registries")

// cacheEntry is what Cache persists per kind: the raw registry bytes, the
// ETag from the last successful fetch (for conditional GET), and the time
// it was written (for TTL freshness).
type cacheEntry struct {
	Body     []byte
	ETag     string
	CachedAt time.Time
}

// Cache is the bbolt-backed persistence layer for bootstrap registries.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens (creating if necessary) a bbolt cache file at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0664, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.WithMessage(err, "open bootstrap cache")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.WithMessage(err, "init bootstrap cache bucket")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached entry for kind, or ok=false if absent.
func (c *Cache) Get(kind Kind) (entry cacheEntry, ok bool, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(cacheBucket)
		raw := bkt.Get(metaKey(kind))
		if raw == nil {
			return nil
		}
		ok = true
		entry, err = decodeCacheEntry(raw)
		return err
	})
	return entry, ok, err
}

// Put atomically replaces the cached entry for kind (temp-file semantics
// are implicit in bbolt's write transaction: it either commits whole or
// not at all).
func (c *Cache) Put(kind Kind, body []byte, etag string, at time.Time) error {
	entry := cacheEntry{Body: body, ETag: etag, CachedAt: at}
	raw, err := encodeCacheEntry(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cacheBucket).Put(metaKey(kind), raw)
	})
}

func metaKey(kind Kind) []byte { return []byte("registry:" + string(kind)) }

// Fresh reports whether a cache entry is still within ttl.
func (e cacheEntry) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.CachedAt) < ttl
}
