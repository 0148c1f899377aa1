// Package store implements §4.7 "In-memory Store": a directory loader with
// template fanout, hot-reload via sentinel files, and typed lookups
// answered from atomically-swapped immutable snapshots, per §5's "In-memory
// store (C7)" concurrency model.
package store

import (
	"encoding/json"
	"net/netip"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/zmap/go-iptree/iptree"
)

// LoadError wraps a directory-scan failure, per §7 StoreError.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "store: load " + e.Path + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// ErrDuplicateKey is returned when two files register the same primary key
// for the same object class, per §7 StoreError.DuplicateKey.
var ErrDuplicateKey = errors.New("store: duplicate primary key")

// autnumRange is one entry of the autnum index: a [start,end] range mapped
// to its stored body, kept sorted by start for binary-search containment.
type autnumRange struct {
	start, end uint32
	body       json.RawMessage
}

// snapshot is one immutable generation of the store's indices. Readers
// hold a snapshot pointer obtained from Store.current and are never
// blocked by a concurrent reload, per §5 "Store snapshot isolation".
type snapshot struct {
	domains     map[string]json.RawMessage // ldhName, lowercased
	nameservers map[string]json.RawMessage // ldhName, lowercased
	entities    map[string]json.RawMessage // handle, case-sensitive
	autnums     []autnumRange
	v4tree      *iptree.IPTree
	v6tree      *iptree.IPTree
	ipBodies    []json.RawMessage // indexed by the int value iptree stores
	v4entries   []ipRangeEntry    // raw entries kept alongside v4tree, for merging on "update"
	v6entries   []ipRangeEntry
	help        json.RawMessage

	// name-search indices: lowercased name -> body, scanned with glob match.
	domainNames     map[string]json.RawMessage
	nameserverNames map[string]json.RawMessage
	entityNames     map[string]json.RawMessage // FN -> body

	// nameserver IP-literal search index.
	nameserverByIP map[string][]json.RawMessage

	redirects map[string]string // primary key -> redirect Location, per class
}

func emptySnapshot() *snapshot {
	return &snapshot{
		domains:         map[string]json.RawMessage{},
		nameservers:     map[string]json.RawMessage{},
		entities:        map[string]json.RawMessage{},
		v4tree:          iptree.New(),
		v6tree:          iptree.New(),
		domainNames:     map[string]json.RawMessage{},
		nameserverNames: map[string]json.RawMessage{},
		entityNames:     map[string]json.RawMessage{},
		nameserverByIP:  map[string][]json.RawMessage{},
		redirects:       map[string]string{},
	}
}

// Store holds the current snapshot behind an atomic pointer, swapped
// wholesale on reload, per §9 "Hot reload is best expressed as a message-
// passing boundary ... the store task swaps an immutable snapshot".
type Store struct {
	dir     string
	current atomic.Pointer[snapshot]
}

// Load scans dir for *.json and *.template files and builds the initial
// snapshot, per §4.7 "load(dir) -> Store | LoadError".
func Load(dir string) (*Store, error) {
	snap, err := buildSnapshot(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir}
	s.current.Store(snap)
	return s, nil
}

// Dir returns the data directory this Store was loaded from.
func (s *Store) Dir() string { return s.dir }

// snap returns the currently published snapshot.
func (s *Store) snap() *snapshot { return s.current.Load() }

// LookupDomain returns the stored body for an exact ldhName match.
func (s *Store) LookupDomain(ldhName string) (json.RawMessage, bool) {
	body, ok := s.snap().domains[strings.ToLower(ldhName)]
	return body, ok
}

// LookupNameserver returns the stored body for an exact ldhName match.
func (s *Store) LookupNameserver(ldhName string) (json.RawMessage, bool) {
	body, ok := s.snap().nameservers[strings.ToLower(ldhName)]
	return body, ok
}

// LookupEntity returns the stored body for an exact, case-sensitive handle
// match, per §3 "Store entry ... handle (case-preserving but matched
// case-sensitively)".
func (s *Store) LookupEntity(handle string) (json.RawMessage, bool) {
	body, ok := s.snap().entities[handle]
	return body, ok
}

// LookupAutnum returns the stored body for the unique range containing n.
func (s *Store) LookupAutnum(n uint32) (json.RawMessage, bool) {
	ranges := s.snap().autnums
	ix := sort.Search(len(ranges), func(i int) bool { return ranges[i].end >= n })
	if ix < len(ranges) && ranges[ix].start <= n && n <= ranges[ix].end {
		return ranges[ix].body, true
	}
	return nil, false
}

// LookupIP returns the most-specific stored network containing addr (or
// the prefix itself, if a CIDR query), ties broken by narrowest prefix
// (go-iptree's GetByString already returns the longest/most-specific
// match), per §4.7 "the network index is queried for the most-specific
// containing range".
func (s *Store) LookupIP(prefixOrAddr netip.Prefix) (json.RawMessage, bool) {
	snap := s.snap()
	tree := snap.v4tree
	if prefixOrAddr.Addr().Is6() && !prefixOrAddr.Addr().Is4In6() {
		tree = snap.v6tree
	}
	v, ok, err := tree.GetByString(prefixOrAddr.Addr().String())
	if err != nil || !ok {
		return nil, false
	}
	ix, _ := v.(int)
	if ix < 0 || ix >= len(snap.ipBodies) {
		return nil, false
	}
	return snap.ipBodies[ix], true
}

// Help returns the stored help response body, if one was loaded.
func (s *Store) Help() (json.RawMessage, bool) {
	h := s.snap().help
	return h, h != nil
}

// SearchDomainsByName returns every domain whose ldhName matches the
// case-insensitive glob pattern, per §4.7 "Searches by name use glob
// patterns".
func (s *Store) SearchDomainsByName(pattern string) []json.RawMessage {
	return globMatch(s.snap().domainNames, pattern)
}

// SearchNameserversByName mirrors SearchDomainsByName for nameservers.
func (s *Store) SearchNameserversByName(pattern string) []json.RawMessage {
	return globMatch(s.snap().nameserverNames, pattern)
}

// SearchEntitiesByName matches against contact FN, per §4.7.
func (s *Store) SearchEntitiesByName(pattern string) []json.RawMessage {
	return globMatch(s.snap().entityNames, pattern)
}

// SearchNameserversByIP returns every nameserver whose ipAddresses contain
// the literal ip, per §4.7 "Searches by IP match any nameserver whose
// ipAddresses contain the literal".
func (s *Store) SearchNameserversByIP(ip netip.Addr) []json.RawMessage {
	return s.snap().nameserverByIP[ip.String()]
}

// RedirectFor returns the stored Location for a primary key, used by the
// dispatcher's "redirect templates in the store cause 307" rule (§4.8).
func (s *Store) RedirectFor(key string) (string, bool) {
	loc, ok := s.snap().redirects[key]
	return loc, ok
}

func globMatch(index map[string]json.RawMessage, pattern string) []json.RawMessage {
	pattern = strings.ToLower(pattern)
	re := globToRegexp(pattern)
	var out []json.RawMessage
	for name, body := range index {
		if re.MatchString(name) {
			out = append(out, body)
		}
	}
	return out
}
