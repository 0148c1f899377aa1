package httpclient

import (
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "http-cache.db")
	c, err := OpenCache(path, time.Hour, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_PutThenGet(t *testing.T) {
	c := newTestCache(t)
	res := Result{StatusCode: 200, Header: http.Header{"Content-Type": {"application/rdap+json"}}, Body: []byte("hello")}
	c.Put("https://example/domain/a.com", res)

	got, ok := c.Get("https://example/domain/a.com")
	require.True(t, ok)
	assert.Equal(t, res.StatusCode, got.StatusCode)
	assert.Equal(t, res.Body, got.Body)
}

func TestCache_MissForUnknownURL(t *testing.T) {
	c := newTestCache(t)
	_, ok := c.Get("https://example/domain/nope.com")
	assert.False(t, ok)
}

func TestCache_ExpiresPastMaxAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http-cache.db")
	c, err := OpenCache(path, 10*time.Millisecond, 10)
	require.NoError(t, err)
	defer c.Close()

	c.Put("https://example/domain/a.com", Result{StatusCode: 200, Header: http.Header{}, Body: []byte("x")})
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("https://example/domain/a.com")
	assert.False(t, ok, "entry should have expired past the hard max age")
}

func TestCache_ZeroCacheControlMaxAgeFallsBackToHardMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http-cache.db")
	c, err := OpenCache(path, time.Hour, 10)
	require.NoError(t, err)
	defer c.Close()

	h := http.Header{}
	h.Set("Cache-Control", "max-age=0")
	c.Put("https://example/domain/a.com", Result{StatusCode: 200, Header: h, Body: []byte("x")})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("https://example/domain/a.com")
	assert.True(t, ok, "a zero max-age falls back to the cache's hard max rather than expiring immediately")
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http-cache.db")
	c, err := OpenCache(path, time.Hour, 2)
	require.NoError(t, err)
	defer c.Close()

	c.Put("https://example/1", Result{StatusCode: 200, Header: http.Header{}, Body: []byte("1")})
	c.Put("https://example/2", Result{StatusCode: 200, Header: http.Header{}, Body: []byte("2")})
	c.Put("https://example/3", Result{StatusCode: 200, Header: http.Header{}, Body: []byte("3")})

	_, ok := c.Get("https://example/1")
	assert.False(t, ok, "oldest entry evicted once maxEntries exceeded")
	_, ok = c.Get("https://example/3")
	assert.True(t, ok)
}

func TestCache_GetOrPopulateCoalescesConcurrentMisses(t *testing.T) {
	c := newTestCache(t)
	var fetchCalls int32
	started := make(chan struct{})

	fetch := func() (Result, error) {
		atomic.AddInt32(&fetchCalls, 1)
		close(started)
		time.Sleep(20 * time.Millisecond)
		return Result{StatusCode: 200, Header: http.Header{}, Body: []byte("populated")}, nil
	}

	const n = 5
	results := make(chan Result, n)

	// the first caller registers itself in the inflight map synchronously
	// before fetch() runs, so starting it alone first and waiting for
	// fetch to begin guarantees every later caller observes the inflight
	// entry rather than racing to populate it themselves.
	go func() {
		res, err := c.GetOrPopulate("https://example/coalesced", fetch)
		require.NoError(t, err)
		results <- res
	}()
	<-started

	var lateFetches int32
	for i := 0; i < n-1; i++ {
		go func() {
			res, err := c.GetOrPopulate("https://example/coalesced", func() (Result, error) {
				atomic.AddInt32(&lateFetches, 1)
				return Result{StatusCode: 200, Header: http.Header{}, Body: []byte("populated")}, nil
			})
			require.NoError(t, err)
			results <- res
		}()
	}
	for i := 0; i < n; i++ {
		res := <-results
		assert.Equal(t, "populated", string(res.Body))
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetchCalls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&lateFetches), "late callers must observe the inflight entry rather than fetching themselves")
}

func TestCache_GetOrPopulateReturnsCachedWithoutFetch(t *testing.T) {
	c := newTestCache(t)
	c.Put("https://example/cached", Result{StatusCode: 200, Header: http.Header{}, Body: []byte("already-there")})

	called := false
	res, err := c.GetOrPopulate("https://example/cached", func() (Result, error) {
		called = true
		return Result{}, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "already-there", string(res.Body))
}

func TestParseMaxAge(t *testing.T) {
	assert.Equal(t, 0, parseMaxAge(""))
	assert.Equal(t, 3600, parseMaxAge("max-age=3600"))
	assert.Equal(t, 60, parseMaxAge("public, max-age=60"))
}
