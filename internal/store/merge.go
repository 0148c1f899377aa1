package store

import "encoding/json"

// mergeSnapshots combines old and fresh into one snapshot using
// insert-or-replace semantics: every key present in fresh overwrites the
// same key in old; keys present only in old (e.g. whose backing file was
// deleted since the last scan) survive, per §4.7 "update ... performs
// insert-or-replace only" and §9's open-question resolution that reload,
// not update, is the one that clears.
func mergeSnapshots(old, fresh *snapshot) *snapshot {
	merged := emptySnapshot()

	mergeStrMap(merged.domains, old.domains, fresh.domains)
	mergeStrMap(merged.nameservers, old.nameservers, fresh.nameservers)
	mergeStrMap(merged.entities, old.entities, fresh.entities)
	mergeStrMap(merged.domainNames, old.domainNames, fresh.domainNames)
	mergeStrMap(merged.nameserverNames, old.nameserverNames, fresh.nameserverNames)
	mergeStrMap(merged.entityNames, old.entityNames, fresh.entityNames)
	mergeRedirectMap(merged.redirects, old.redirects, fresh.redirects)

	for ip, bodies := range old.nameserverByIP {
		merged.nameserverByIP[ip] = append(merged.nameserverByIP[ip], bodies...)
	}
	for ip, bodies := range fresh.nameserverByIP {
		merged.nameserverByIP[ip] = bodies // fresh wins wholesale per IP key
	}

	merged.help = old.help
	if fresh.help != nil {
		merged.help = fresh.help
	}

	merged.autnums = mergeAutnums(old.autnums, fresh.autnums)

	v4 := mergeIPEntries(old.v4entries, fresh.v4entries)
	v6 := mergeIPEntries(old.v6entries, fresh.v6entries)
	_ = buildIPTrees(merged, v4, v6) // entries are already-valid prefixes; cannot fail here

	return merged
}

func mergeStrMap(dst, old, fresh map[string]json.RawMessage) {
	for k, v := range old {
		dst[k] = v
	}
	for k, v := range fresh {
		dst[k] = v
	}
}

func mergeRedirectMap(dst, old, fresh map[string]string) {
	for k, v := range old {
		dst[k] = v
	}
	for k, v := range fresh {
		dst[k] = v
	}
}

type autnumKey struct{ start, end uint32 }

func mergeAutnums(old, fresh []autnumRange) []autnumRange {
	byKey := map[autnumKey]autnumRange{}
	for _, r := range old {
		byKey[autnumKey{r.start, r.end}] = r
	}
	for _, r := range fresh {
		byKey[autnumKey{r.start, r.end}] = r
	}
	out := make([]autnumRange, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	sortAutnums(out)
	return out
}

func sortAutnums(ranges []autnumRange) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j].start < ranges[j-1].start; j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
}

func mergeIPEntries(old, fresh []ipRangeEntry) []ipRangeEntry {
	byPrefix := map[string]ipRangeEntry{}
	for _, e := range old {
		byPrefix[e.prefix.String()] = e
	}
	for _, e := range fresh {
		byPrefix[e.prefix.String()] = e
	}
	out := make([]ipRangeEntry, 0, len(byPrefix))
	for _, e := range byPrefix {
		out = append(out, e)
	}
	return out
}
