package httpclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var httpCacheBucket = []byte("http-responses")

// cachedEntry is the on-disk shape of a cached Result, plus the advisory
// max-age bound from Cache-Control, per §4.5 "Caching".
type cachedEntry struct {
	StatusCode int                 `json:"status"`
	Header     map[string][]string `json:"header"`
	Body       []byte              `json:"body"`
	StoredAt   string              `json:"stored_at"`
	MaxAge     int                 `json:"max_age"`
}

// Cache is a response cache keyed by final URL, with concurrent misses
// for the same key coalescing into a single populate. It is backed by
// bbolt, with an LRU-style size bound enforced by eviction of the
// least-recently-put entries once MaxEntries is exceeded.
type Cache struct {
	db         *bbolt.DB
	hardMaxAge time.Duration
	maxEntries int

	mu      sync.Mutex
	inflight map[string]*sync.WaitGroup
	order    []string // insertion order, for simple FIFO/LRU eviction
}

// OpenCache opens a bbolt-backed HTTP response cache.
func OpenCache(path string, hardMaxAge time.Duration, maxEntries int) (*Cache, error) {
	db, err := bbolt.Open(path, 0664, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.WithMessage(err, "open http response cache")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(httpCacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	if hardMaxAge <= 0 {
		hardMaxAge = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Cache{db: db, hardMaxAge: hardMaxAge, maxEntries: maxEntries, inflight: map[string]*sync.WaitGroup{}}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func cacheKey(url string) []byte {
	sum := sha256.Sum256([]byte(url))
	return []byte(hex.EncodeToString(sum[:]))
}

// Get returns a cached Result if present and still within its advisory
// max-age (bounded by the cache's hard maximum).
func (c *Cache) Get(url string) (Result, bool) {
	var entry cachedEntry
	found := false
	_ = c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(httpCacheBucket).Get(cacheKey(url))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if !found {
		return Result{}, false
	}

	storedAt, err := time.Parse(time.RFC3339, entry.StoredAt)
	if err != nil {
		return Result{}, false
	}
	maxAge := time.Duration(entry.MaxAge) * time.Second
	if maxAge <= 0 || maxAge > c.hardMaxAge {
		maxAge = c.hardMaxAge
	}
	if time.Since(storedAt) > maxAge {
		return Result{}, false
	}

	header := http.Header{}
	for k, v := range entry.Header {
		header[k] = v
	}
	return Result{StatusCode: entry.StatusCode, Header: header, Body: entry.Body}, true
}

// Put stores res for url, evicting the oldest entry if the cache is full.
func (c *Cache) Put(url string, res Result) {
	maxAge := parseMaxAge(res.Header.Get("Cache-Control"))
	entry := cachedEntry{
		StatusCode: res.StatusCode,
		Header:     map[string][]string(res.Header),
		Body:       res.Body,
		StoredAt:   time.Now().Format(time.RFC3339),
		MaxAge:     maxAge,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.order = append(c.order, url)
	var evict string
	if len(c.order) > c.maxEntries {
		evict = c.order[0]
		c.order = c.order[1:]
	}
	c.mu.Unlock()

	_ = c.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(httpCacheBucket)
		if evict != "" {
			_ = bkt.Delete(cacheKey(evict))
		}
		return bkt.Put(cacheKey(url), raw)
	})
}

// GetOrPopulate implements the reader-writer coalescing of §5: concurrent
// misses for the same URL share one call to fetch, and every waiter
// observes the Result it cached. If that fetch failed, so nothing was
// cached, each waiter then calls fetch itself.
func (c *Cache) GetOrPopulate(url string, fetch func() (Result, error)) (Result, error) {
	if res, ok := c.Get(url); ok {
		return res, nil
	}

	c.mu.Lock()
	if wg, ok := c.inflight[url]; ok {
		c.mu.Unlock()
		wg.Wait()
		if res, ok := c.Get(url); ok {
			return res, nil
		}
		return fetch()
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.inflight[url] = wg
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, url)
		c.mu.Unlock()
		wg.Done()
	}()

	res, err := fetch()
	if err == nil {
		c.Put(url, res)
	}
	return res, err
}

func parseMaxAge(cacheControl string) int {
	if cacheControl == "" {
		return 0
	}
	const prefix = "max-age="
	idx := 0
	for idx+len(prefix) <= len(cacheControl) {
		if cacheControl[idx:idx+len(prefix)] == prefix {
			rest := cacheControl[idx+len(prefix):]
			n := 0
			for _, r := range rest {
				if r < '0' || r > '9' {
					break
				}
				n = n*10 + int(r-'0')
			}
			return n
		}
		idx++
	}
	return 0
}
