package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *Store) overrideIANAURLForTest(kind Kind, url string) {
	if s.urlOverride == nil {
		s.urlOverride = map[Kind]string{}
	}
	s.urlOverride[kind] = url
}

func TestStore_LoadOverridesShadowsNetwork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dns.json"), []byte(dnsRegistryJSON), 0o644))

	s := NewStore(nil, nil, time.Hour)
	require.NoError(t, s.LoadOverrides(dir))

	reg, err := s.Fetch(context.Background(), KindDNS)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rdap.verisign.com/"}, reg.LookupDomain("foo.com"))
}

func TestStore_LoadOverridesSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(nil, nil, time.Hour)
	require.NoError(t, s.LoadOverrides(dir))
}

func TestStore_FetchFallsThroughToNetworkWhenNoOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(asnRegistryJSON))
	}))
	defer srv.Close()

	s := NewStore(nil, srv.Client(), time.Hour)
	s.overrideIANAURLForTest(KindASN, srv.URL)

	reg, err := s.Fetch(context.Background(), KindASN)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rdap.asn.example/"}, reg.LookupASN(150))
}

func TestStore_FetchCachesSecondCallWithoutRefetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(asnRegistryJSON))
	}))
	defer srv.Close()

	s := NewStore(nil, srv.Client(), time.Hour)
	s.overrideIANAURLForTest(KindASN, srv.URL)

	_, err := s.Fetch(context.Background(), KindASN)
	require.NoError(t, err)
	_, err = s.Fetch(context.Background(), KindASN)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "a published registry is served from s.current without refetching")
}

func TestStore_RefreshServesStaleCacheOnDownloadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.db")
	cache, err := OpenCache(path)
	require.NoError(t, err)
	defer cache.Close()
	require.NoError(t, cache.Put(KindASN, []byte(asnRegistryJSON), "", time.Now().Add(-2*time.Hour)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewStore(cache, srv.Client(), time.Hour)
	s.overrideIANAURLForTest(KindASN, srv.URL)

	reg, err := s.Fetch(context.Background(), KindASN)
	require.NoError(t, err, "a stale cache entry should be served rather than failing outright")
	assert.Equal(t, []string{"https://rdap.asn.example/"}, reg.LookupASN(150))
}

func TestStore_RefreshRejectsIncompatibleVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version": "2.0", "services": []}`))
	}))
	defer srv.Close()

	s := NewStore(nil, srv.Client(), time.Hour)
	s.overrideIANAURLForTest(KindASN, srv.URL)

	_, err := s.Fetch(context.Background(), KindASN)
	require.Error(t, err)
}
