package bootstrap

import (
	"context"

	"github.com/rdaptools/rdap/internal/query"
)

// RegistryKindFor maps a typed query to the bootstrap registry kind that
// resolves it, per §4.4 "classify Q's kind (DNS/INR-v4/INR-v6/ASN)".
func RegistryKindFor(q query.Query) (Kind, bool) {
	switch q.Kind {
	case query.KindDomain, query.KindNameserver,
		query.KindDomainNameSearch, query.KindDomainNsNameSearch, query.KindNsNameSearch:
		return KindDNS, true
	case query.KindIPv4Addr, query.KindIPv4Cidr:
		return KindIPv4, true
	case query.KindIPv6Addr, query.KindIPv6Cidr:
		return KindIPv6, true
	case query.KindReverseDNS:
		if q.CIDR.Addr().Is4() {
			return KindIPv4, true
		}
		return KindIPv6, true
	case query.KindAutNum:
		return KindASN, true
	default:
		return "", false
	}
}

// Lookup resolves a typed query against a fetched registry, per §4.3
// "lookup(B, Q) -> [url]". Ties are broken by listing order in the
// registry: the DNS, ASN and object-tag indices built by ParseRegistry
// keep the first-listed service for a repeated key.
func Lookup(reg *Registry, q query.Query) []string {
	switch q.Kind {
	case query.KindDomain, query.KindDomainNameSearch, query.KindDomainNsNameSearch, query.KindNsNameSearch:
		return reg.LookupDomain(q.ALabel)
	case query.KindNameserver:
		return reg.LookupDomain(q.ALabel)
	case query.KindIPv4Addr, query.KindIPv6Addr:
		return reg.LookupIP(q.IP)
	case query.KindIPv4Cidr, query.KindIPv6Cidr, query.KindReverseDNS:
		return reg.LookupIP(q.CIDR.Addr())
	case query.KindAutNum:
		return reg.LookupASN(q.ASN)
	case query.KindEntity:
		// object-tag lookup is keyed on the tag suffix of an entity handle
		// ("HANDLE-TAG"), per §4.3.
		tag := objectTagOf(q.Handle)
		if tag == "" {
			return nil
		}
		return reg.LookupObjectTag(tag)
	default:
		return nil
	}
}

func objectTagOf(handle string) string {
	for i := len(handle) - 1; i >= 0; i-- {
		if handle[i] == '-' {
			return handle[i+1:]
		}
	}
	return ""
}

// FetchAndLookup is the common Fetch-then-Lookup sequence used by the
// resolver.
func FetchAndLookup(ctx context.Context, store *Store, q query.Query) ([]string, error) {
	kind, ok := RegistryKindFor(q)
	if !ok {
		return nil, nil
	}
	reg, err := store.Fetch(ctx, kind)
	if err != nil {
		return nil, err
	}
	return Lookup(reg, q), nil
}
