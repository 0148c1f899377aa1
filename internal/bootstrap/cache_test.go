package bootstrap

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.db")
	c, err := OpenCache(path)
	require.NoError(t, err)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Put(KindDNS, []byte(dnsRegistryJSON), `"etag-1"`, now))

	entry, ok, err := c.Get(KindDNS)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(dnsRegistryJSON), entry.Body)
	assert.Equal(t, `"etag-1"`, entry.ETag)
	assert.True(t, entry.CachedAt.Equal(now))
}

func TestCache_GetMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.db")
	c, err := OpenCache(path)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(KindASN)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheEntry_Fresh(t *testing.T) {
	now := time.Now()
	entry := cacheEntry{CachedAt: now.Add(-time.Minute)}
	assert.True(t, entry.Fresh(time.Hour, now))
	assert.False(t, entry.Fresh(time.Second, now))
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.db")
	c, err := OpenCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(KindIPv4, []byte(ipv4RegistryJSON), "", time.Now()))
	require.NoError(t, c.Close())

	c2, err := OpenCache(path)
	require.NoError(t, err)
	defer c2.Close()

	entry, ok, err := c2.Get(KindIPv4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(ipv4RegistryJSON), entry.Body)
}
