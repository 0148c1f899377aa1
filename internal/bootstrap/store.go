package bootstrap

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is the cache freshness window NewStore uses when given a
// ttl <= 0. No environment variable overrides it; the CLI passes it
// unchanged.
const DefaultTTL = 24 * time.Hour

// ErrBootstrapUnavailable is returned when a registry cannot be obtained
// from the override, the cache, or the network.
var ErrBootstrapUnavailable = errors.New("bootstrap: registry unavailable")

// Store holds one *Registry per kind in an RWMutex-guarded map, a
// single-flight gate per kind so concurrent misses coalesce into one
// upstream fetch, an override layer that unconditionally shadows the
// cache, and an on-disk Cache for persistence. See §5 "Bootstrap cache".
type Store struct {
	mu        sync.RWMutex
	current   map[Kind]*Registry
	overrides map[Kind]*Registry

	flight map[Kind]*sync.WaitGroup
	fmu    sync.Mutex

	cache      *Cache
	httpClient *http.Client
	ttl        time.Duration
	log        *logrus.Entry

	// urlOverride lets a caller redirect a kind's download URL away from
	// IANAURL(kind); nil in production use.
	urlOverride map[Kind]string
}

// NewStore builds a Store over an already-open Cache.
func NewStore(cache *Cache, httpClient *http.Client, ttl time.Duration) *Store {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		current:    map[Kind]*Registry{},
		overrides:  map[Kind]*Registry{},
		flight:     map[Kind]*sync.WaitGroup{},
		cache:      cache,
		httpClient: httpClient,
		ttl:        ttl,
		log:        logrus.WithField("component", "bootstrap"),
	}
}

// LoadOverrides reads dns.json/ipv4.json/ipv6.json/asn.json/object-tags.json
// from dir, if present, and installs them as the override layer that
// unconditionally shadows the cache, per §3 "override layer".
func (s *Store) LoadOverrides(dir string) error {
	for _, kind := range AllKinds {
		path := filepath.Join(dir, string(kind)+".json")
		if kind == KindObjectTag {
			path = filepath.Join(dir, "object-tags.json")
		}
		body, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return errors.WithMessagef(err, "read override %s", path)
		}
		reg, err := ParseRegistry(kind, body)
		if err != nil {
			return errors.WithMessagef(err, "parse override %s", path)
		}
		s.mu.Lock()
		s.overrides[kind] = reg
		s.mu.Unlock()
	}
	return nil
}

// Fetch returns the registry for kind: the override if present, else the
// cache if fresh, else a download from the IANA URL, written back to cache
// atomically. Concurrent misses for the same kind coalesce into one
// upstream fetch via a per-kind single-flight gate.
func (s *Store) Fetch(ctx context.Context, kind Kind) (*Registry, error) {
	s.mu.RLock()
	if ov, ok := s.overrides[kind]; ok {
		s.mu.RUnlock()
		return ov, nil
	}
	if cur, ok := s.current[kind]; ok {
		s.mu.RUnlock()
		return cur, nil
	}
	s.mu.RUnlock()

	return s.fetchSingleFlight(ctx, kind)
}

func (s *Store) fetchSingleFlight(ctx context.Context, kind Kind) (*Registry, error) {
	s.fmu.Lock()
	if wg, ok := s.flight[kind]; ok {
		s.fmu.Unlock()
		wg.Wait()
		s.mu.RLock()
		defer s.mu.RUnlock()
		if cur, ok := s.current[kind]; ok {
			return cur, nil
		}
		return nil, ErrBootstrapUnavailable
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.flight[kind] = wg
	s.fmu.Unlock()

	defer func() {
		s.fmu.Lock()
		delete(s.flight, kind)
		s.fmu.Unlock()
		wg.Done()
	}()

	reg, err := s.refresh(ctx, kind)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Refresh forces a cache-or-network reload for kind, publishing the result
// by replacing the kind's map entry under the write lock. Used both by Fetch-on-miss and by the 60-second
// background refresh loop.
func (s *Store) Refresh(ctx context.Context, kind Kind) error {
	_, err := s.refresh(ctx, kind)
	return err
}

func (s *Store) refresh(ctx context.Context, kind Kind) (*Registry, error) {
	now := time.Now()

	if s.cache != nil {
		if entry, ok, err := s.cache.Get(kind); err == nil && ok && entry.Fresh(s.ttl, now) {
			reg, err := ParseRegistry(kind, entry.Body)
			if err == nil {
				s.publish(kind, reg)
				return reg, nil
			}
		}
	}

	body, etag, err := s.download(ctx, kind)
	if err != nil {
		// serve stale cache rather than failing outright, if any exists.
		if s.cache != nil {
			if entry, ok, _ := s.cache.Get(kind); ok {
				if reg, perr := ParseRegistry(kind, entry.Body); perr == nil {
					s.log.WithError(err).WithField("kind", kind).Warn("serving stale bootstrap registry")
					s.publish(kind, reg)
					return reg, nil
				}
			}
		}
		return nil, errors.WithMessagef(ErrBootstrapUnavailable, "%s: %s", kind, err)
	}

	reg, err := ParseRegistry(kind, body)
	if err != nil {
		return nil, err
	}
	if !CompatibleVersion(reg.Version) {
		return nil, errors.Errorf("bootstrap: %s registry version %q is unsupported", kind, reg.Version)
	}
	if s.cache != nil {
		if err := s.cache.Put(kind, body, etag, now); err != nil {
			s.log.WithError(err).WithField("kind", kind).Warn("failed to persist bootstrap cache")
		}
	}
	s.publish(kind, reg)
	return reg, nil
}

func (s *Store) publish(kind Kind, reg *Registry) {
	s.mu.Lock()
	s.current[kind] = reg
	s.mu.Unlock()
}

func (s *Store) download(ctx context.Context, kind Kind) (body []byte, etag string, err error) {
	url := IANAURL(kind)
	if u, ok := s.urlOverride[kind]; ok {
		url = u
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	if s.cache != nil {
		if entry, ok, _ := s.cache.Get(kind); ok && entry.ETag != "" {
			req.Header.Set("If-None-Match", entry.ETag)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.WithMessage(err, "fetch bootstrap registry")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if entry, ok, _ := s.cache.Get(kind); ok {
			return entry.Body, entry.ETag, nil
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.WithMessage(err, "read bootstrap body")
	}
	return body, resp.Header.Get("ETag"), nil
}

// RunRefreshLoop runs a single background task that refreshes every kind on
// a tick, per §5 "Bootstrap refresh loop". It refreshes every kind once
// immediately, then again on each tick, and returns only when ctx is done.
func (s *Store) RunRefreshLoop(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 60 * time.Second
	}
	s.refreshAll(ctx)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *Store) refreshAll(ctx context.Context) {
	for _, kind := range AllKinds {
		if err := s.Refresh(ctx, kind); err != nil {
			s.log.WithError(err).WithField("kind", kind).Warn("bootstrap refresh failed")
		}
	}
}
