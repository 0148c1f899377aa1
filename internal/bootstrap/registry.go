// Package bootstrap implements the IANA RDAP bootstrap registries (RFC
// 9224): parsing, longest-match/containment lookup, and an on-disk cache
// with an override layer, per §4.3 "Bootstrap Registry & Cache".
package bootstrap

import (
	"encoding/json"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"github.com/zmap/go-iptree/iptree"
)

// supportedVersions is the RFC 9224 bootstrap registry version range this
// package knows how to parse; IANA has published only "1.0" to date, but
// a future incompatible bump should fail loudly rather than silently
// mis-parse the services array.
var supportedVersions = mustConstraint("~> 1.0")

func mustConstraint(c string) version.Constraints {
	cs, err := version.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// CompatibleVersion reports whether a registry's advertised "version"
// field falls within the range this package supports. An empty or
// unparseable version is treated as compatible, matching most IANA
// bootstrap documents observed in the wild, which predate the version
// field being consistently populated.
func CompatibleVersion(v string) bool {
	if v == "" {
		return true
	}
	parsed, err := version.NewVersion(v)
	if err != nil {
		return true
	}
	return supportedVersions.Check(parsed)
}

// Kind is one of the four IANA bootstrap registry kinds, plus object-tag.
type Kind string

const (
	KindDNS        Kind = "dns"
	KindIPv4       Kind = "ipv4"
	KindIPv6       Kind = "ipv6"
	KindASN        Kind = "asn"
	KindObjectTag  Kind = "object-tags"
)

// AllKinds enumerates every registry kind the refresh loop maintains.
var AllKinds = []Kind{KindDNS, KindIPv4, KindIPv6, KindASN, KindObjectTag}

// IANAURL returns the default IANA-published URL for a registry kind.
func IANAURL(k Kind) string {
	switch k {
	case KindDNS:
		return "https://data.iana.org/rdap/dns.json"
	case KindIPv4:
		return "https://data.iana.org/rdap/ipv4.json"
	case KindIPv6:
		return "https://data.iana.org/rdap/ipv6.json"
	case KindASN:
		return "https://data.iana.org/rdap/asn.json"
	case KindObjectTag:
		return "https://data.iana.org/rdap/object-tags.json"
	default:
		return ""
	}
}

// Service is one (keys, urls) pair of a registry, per RFC 9224 shape.
type Service struct {
	Keys []string
	URLs []string
}

// Registry is the parsed form of one IANA bootstrap JSON document.
type Registry struct {
	Kind        Kind
	Version     string
	Publication time.Time
	Description string
	Services    []Service

	// derived indices, built once by build().
	dnsIndex   map[string]int // lowercased suffix label-set key -> service index
	asnRanges  []asnRange
	v4tree     *iptree.IPTree
	v6tree     *iptree.IPTree
	tagIndex   map[string]int // uppercased object tag -> service index
}

type asnRange struct {
	start, end uint32
	serviceIx  int
}

// wireRegistry is the RFC 9224 on-the-wire JSON shape:
// {version, publication, description, services: [[keys[], urls[]], ...]}.
type wireRegistry struct {
	Version     string          `json:"version"`
	Publication string          `json:"publication"`
	Description string          `json:"description"`
	Services    [][]interface{} `json:"services"`
}

// ParseRegistry decodes an IANA bootstrap JSON document for the given kind
// and builds the lookup indices used by Lookup.
func ParseRegistry(kind Kind, body []byte) (*Registry, error) {
	var wire wireRegistry
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, errors.WithMessage(err, "parse bootstrap registry")
	}

	reg := &Registry{
		Kind:        kind,
		Version:     wire.Version,
		Description: wire.Description,
	}
	if wire.Publication != "" {
		t, err := time.Parse(time.RFC3339, wire.Publication)
		if err == nil {
			reg.Publication = t
		}
	}

	for _, pair := range wire.Services {
		if len(pair) != 2 {
			continue
		}
		keys := toStringSlice(pair[0])
		urls := toStringSlice(pair[1])
		reg.Services = append(reg.Services, Service{Keys: keys, URLs: urls})
	}

	if err := reg.build(); err != nil {
		return nil, err
	}
	return reg, nil
}

func toStringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// build constructs the kind-specific index used for Lookup. Invariant per
// §3: keys within a single registry are disjoint; this is not re-validated
// here (a malformed upstream registry just yields a first-match lookup).
func (r *Registry) build() error {
	switch r.Kind {
	case KindDNS:
		r.dnsIndex = map[string]int{}
		for ix, svc := range r.Services {
			for _, k := range svc.Keys {
				key := strings.ToLower(strings.TrimSuffix(k, "."))
				if _, dup := r.dnsIndex[key]; !dup {
					r.dnsIndex[key] = ix
				}
			}
		}
	case KindIPv4, KindIPv6:
		tree := iptree.New()
		for ix, svc := range r.Services {
			for _, k := range svc.Keys {
				prefix, err := netip.ParsePrefix(k)
				if err != nil {
					continue
				}
				_ = tree.AddByString(prefix.String(), ix)
			}
		}
		if r.Kind == KindIPv4 {
			r.v4tree = tree
		} else {
			r.v6tree = tree
		}
	case KindASN:
		for ix, svc := range r.Services {
			for _, k := range svc.Keys {
				start, end, ok := parseASNRange(k)
				if !ok {
					continue
				}
				r.asnRanges = append(r.asnRanges, asnRange{start: start, end: end, serviceIx: ix})
			}
		}
		sort.SliceStable(r.asnRanges, func(i, j int) bool { return r.asnRanges[i].start < r.asnRanges[j].start })
	case KindObjectTag:
		r.tagIndex = map[string]int{}
		for ix, svc := range r.Services {
			for _, k := range svc.Keys {
				tag := strings.ToUpper(k)
				if _, dup := r.tagIndex[tag]; !dup {
					r.tagIndex[tag] = ix
				}
			}
		}
	}
	return nil
}

func parseASNRange(key string) (start, end uint32, ok bool) {
	parts := strings.SplitN(key, "-", 2)
	a, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return uint32(a), uint32(a), true
	}
	b, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(a), uint32(b), true
}

// LookupDomain returns the URLs for the service whose key is the longest
// proper suffix of d (walking labels right-to-left), per §4.3 and the §8
// "Bootstrap longest-match" invariant. Ties are broken by first-listed
// service, matching registry declaration order.
func (r *Registry) LookupDomain(d string) []string {
	d = strings.ToLower(strings.TrimSuffix(d, "."))
	labels := strings.Split(d, ".")
	for i := 0; i < len(labels); i++ {
		suffix := strings.Join(labels[i:], ".")
		if ix, ok := r.dnsIndex[suffix]; ok {
			return r.Services[ix].URLs
		}
	}
	if ix, ok := r.dnsIndex[""]; ok {
		return r.Services[ix].URLs
	}
	return nil
}

// LookupIP returns the URLs for the most-specific (longest-prefix) CIDR
// containing addr.
func (r *Registry) LookupIP(addr netip.Addr) []string {
	tree := r.v4tree
	if addr.Is6() && !addr.Is4In6() {
		tree = r.v6tree
	}
	if tree == nil {
		return nil
	}
	v, ok, err := tree.GetByString(addr.String())
	if err != nil || !ok {
		return nil
	}
	ix, _ := v.(int)
	if ix < 0 || ix >= len(r.Services) {
		return nil
	}
	return r.Services[ix].URLs
}

// LookupASN returns the URLs for the unique range containing n.
func (r *Registry) LookupASN(n uint32) []string {
	for _, rng := range r.asnRanges {
		if n >= rng.start && n <= rng.end {
			return r.Services[rng.serviceIx].URLs
		}
	}
	return nil
}

// LookupObjectTag returns the URLs registered for an exact object tag.
func (r *Registry) LookupObjectTag(tag string) []string {
	ix, ok := r.tagIndex[strings.ToUpper(tag)]
	if !ok {
		return nil
	}
	return r.Services[ix].URLs
}
