package bootstrap

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// cacheEntryWire is cacheEntry's JSON-serializable shadow; CachedAt is
// stored as RFC 3339 rather than relying on time.Time's own (de)serializer
// so the bbolt value stays a plain, inspectable JSON blob.
type cacheEntryWire struct {
	Body     []byte `json:"body"`
	ETag     string `json:"etag"`
	CachedAt string `json:"cached_at"`
}

func encodeCacheEntry(e cacheEntry) ([]byte, error) {
	w := cacheEntryWire{Body: e.Body, ETag: e.ETag, CachedAt: e.CachedAt.Format(time.RFC3339)}
	bs, err := json.Marshal(w)
	if err != nil {
		return nil, errors.WithMessage(err, "encode cache entry")
	}
	return bs, nil
}

func decodeCacheEntry(raw []byte) (cacheEntry, error) {
	var w cacheEntryWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return cacheEntry{}, errors.WithMessage(err, "decode cache entry")
	}
	e := cacheEntry{Body: w.Body, ETag: w.ETag}
	if t, err := time.Parse(time.RFC3339, w.CachedAt); err == nil {
		e.CachedAt = t
	}
	return e, nil
}
