package store

import (
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/BourgeoisBear/range2cidr"
	"github.com/pkg/errors"
	"github.com/zmap/go-iptree/iptree"

	"github.com/rdaptools/rdap/internal/response"
)

// idSpec is one element of a template's "ids" array; which fields are
// populated depends on the template's class, per §6's id-spec schema table.
type idSpec struct {
	LdhName     string          `json:"ldhName"`
	UnicodeName string          `json:"unicodeName"`
	Handle      string          `json:"handle"`
	StartAutnum *uint32         `json:"start_autnum"`
	EndAutnum   *uint32         `json:"end_autnum"`
	NetworkID   json.RawMessage `json:"networkId"`

	// RedirectTo extends the §6 id-spec schema: when
	// present, this id registers a 307 redirect for its primary key
	// instead of a stored object body, per §4.8 "Redirect templates in the
	// store cause 307 with the stored Location".
	RedirectTo string `json:"redirectTo"`
}

type templateFile struct {
	Domain     json.RawMessage `json:"domain"`
	Nameserver json.RawMessage `json:"nameserver"`
	Entity     json.RawMessage `json:"entity"`
	Autnum     json.RawMessage `json:"autnum"`
	IPNetwork  json.RawMessage `json:"ip network"`
	IDs        []idSpec        `json:"ids"`
}

func buildSnapshot(dir string) (*snapshot, error) {
	snap := emptySnapshot()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}

	var v4ranges, v6ranges []ipRangeEntry

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		switch {
		case strings.HasSuffix(name, ".json"):
			if err := loadSingleObjectFile(snap, path, &v4ranges, &v6ranges); err != nil {
				return nil, err
			}
		case strings.HasSuffix(name, ".template"):
			if err := loadTemplateFile(snap, path, &v4ranges, &v6ranges); err != nil {
				return nil, err
			}
		}
	}

	if err := buildIPTrees(snap, v4ranges, v6ranges); err != nil {
		return nil, err
	}
	sortAutnums(snap.autnums)

	return snap, nil
}

// ipRangeEntry is one pending entry for the IP containment index, collected
// during the scan and committed into iptree only once all files are read
// (iptree has no remove-by-value, so we build it fresh each generation).
type ipRangeEntry struct {
	prefix netip.Prefix
	body   json.RawMessage
}

func loadSingleObjectFile(snap *snapshot, path string, v4, v6 *[]ipRangeEntry) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	obj, err := response.Parse(body)
	if err != nil {
		return &LoadError{Path: path, Err: errors.WithMessage(err, "invalid rdap object")}
	}
	return indexObject(snap, obj, body, v4, v6)
}

func indexObject(snap *snapshot, obj response.Object, body json.RawMessage, v4, v6 *[]ipRangeEntry) error {
	switch v := obj.(type) {
	case response.Domain:
		key := strings.ToLower(v.LdhName)
		if _, dup := snap.domains[key]; dup {
			return errors.WithMessagef(ErrDuplicateKey, "domain %s", key)
		}
		snap.domains[key] = body
		snap.domainNames[key] = body
	case response.Nameserver:
		key := strings.ToLower(v.LdhName)
		if _, dup := snap.nameservers[key]; dup {
			return errors.WithMessagef(ErrDuplicateKey, "nameserver %s", key)
		}
		snap.nameservers[key] = body
		snap.nameserverNames[key] = body
		indexNameserverIPs(snap, v, body)
	case response.Entity:
		if v.Handle == "" {
			break
		}
		if _, dup := snap.entities[v.Handle]; dup {
			return errors.WithMessagef(ErrDuplicateKey, "entity %s", v.Handle)
		}
		snap.entities[v.Handle] = body
		if fn := entityFullName(v); fn != "" {
			snap.entityNames[strings.ToLower(fn)] = body
		}
	case response.Autnum:
		if v.StartAutnum == nil || v.EndAutnum == nil {
			break
		}
		snap.autnums = append(snap.autnums, autnumRange{start: *v.StartAutnum, end: *v.EndAutnum, body: body})
	case response.IPNetwork:
		prefix, err := ipNetworkPrefix(v)
		if err != nil {
			return &LoadError{Path: "", Err: err}
		}
		if prefix.Addr().Is4() {
			*v4 = append(*v4, ipRangeEntry{prefix: prefix, body: body})
		} else {
			*v6 = append(*v6, ipRangeEntry{prefix: prefix, body: body})
		}
	case response.Help:
		snap.help = body
	}
	return nil
}

func entityFullName(e response.Entity) string {
	c := response.FromVCard(e.VCard)
	return c.FullName
}

func indexNameserverIPs(snap *snapshot, ns response.Nameserver, body json.RawMessage) {
	for _, ip := range append(append([]string{}, ns.IPAddresses.V4...), ns.IPAddresses.V6...) {
		snap.nameserverByIP[ip] = append(snap.nameserverByIP[ip], body)
	}
}

// ipNetworkPrefix reduces an IPNetwork's startAddress/endAddress to a
// single CIDR using range2cidr.Deaggregate. A range that isn't
// already a power-of-two-aligned block deaggregates to more than one
// prefix; only the first block returned is indexed, and addresses in the
// range's other blocks are not found by LookupIP, so callers that need
// exact coverage of a non-aligned range should store one IPNetwork object
// per block.
func ipNetworkPrefix(v response.IPNetwork) (netip.Prefix, error) {
	start, err := netip.ParseAddr(v.StartAddress)
	if err != nil {
		return netip.Prefix{}, errors.WithMessage(err, "ip network startAddress")
	}
	end, err := netip.ParseAddr(v.EndAddress)
	if err != nil {
		return netip.Prefix{}, errors.WithMessage(err, "ip network endAddress")
	}
	blocks, err := range2cidr.Deaggregate(start, end)
	if err != nil {
		return netip.Prefix{}, errors.WithMessage(err, "ip network range deaggregation")
	}
	if len(blocks) == 0 {
		return netip.Prefix{}, errors.New("ip network: empty range")
	}
	return blocks[0], nil
}

func buildIPTrees(snap *snapshot, v4, v6 []ipRangeEntry) error {
	v4tree := iptree.New()
	for ix, e := range v4 {
		if err := v4tree.AddByString(e.prefix.String(), ix); err != nil {
			return errors.WithMessage(err, "build ipv4 index")
		}
	}
	v6tree := iptree.New()
	v4count := len(v4)
	for ix, e := range v6 {
		if err := v6tree.AddByString(e.prefix.String(), v4count+ix); err != nil {
			return errors.WithMessage(err, "build ipv6 index")
		}
	}
	snap.v4tree = v4tree
	snap.v6tree = v6tree
	snap.v4entries = v4
	snap.v6entries = v6
	snap.ipBodies = make([]json.RawMessage, len(v4)+len(v6))
	for ix, e := range v4 {
		snap.ipBodies[ix] = e.body
	}
	for ix, e := range v6 {
		snap.ipBodies[v4count+ix] = e.body
	}
	return nil
}

func loadTemplateFile(snap *snapshot, path string, v4, v6 *[]ipRangeEntry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	var tpl templateFile
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return &LoadError{Path: path, Err: errors.WithMessage(err, "invalid template")}
	}

	base := tpl.classBody()
	if base == nil {
		return &LoadError{Path: path, Err: errors.New("template has no recognized class body")}
	}

	for _, id := range tpl.IDs {
		if id.RedirectTo != "" {
			key := redirectKeyOf(id)
			if key != "" {
				snap.redirects[key] = id.RedirectTo
			}
			continue
		}
		merged, err := mergeIDSpec(base, id)
		if err != nil {
			return &LoadError{Path: path, Err: err}
		}
		obj, err := response.Parse(merged)
		if err != nil {
			return &LoadError{Path: path, Err: errors.WithMessage(err, "merged template object")}
		}
		if err := indexObject(snap, obj, merged, v4, v6); err != nil {
			return &LoadError{Path: path, Err: err}
		}
	}
	return nil
}

// redirectKeyOf derives the primary key a redirect id-spec refers to, so
// the dispatcher can look it up the same way it looks up a stored object.
func redirectKeyOf(id idSpec) string {
	switch {
	case id.LdhName != "":
		return strings.ToLower(id.LdhName)
	case id.Handle != "":
		return id.Handle
	default:
		return ""
	}
}

func (t templateFile) classBody() json.RawMessage {
	switch {
	case t.Domain != nil:
		return t.Domain
	case t.Nameserver != nil:
		return t.Nameserver
	case t.Entity != nil:
		return t.Entity
	case t.Autnum != nil:
		return t.Autnum
	case t.IPNetwork != nil:
		return t.IPNetwork
	default:
		return nil
	}
}

// mergeIDSpec overlays an id-spec's fields onto the template body, per the
// §6 id-spec schema: {"ldhName":..., "unicodeName":...?} for domain/
// nameserver, {"handle":...} for entity, {"start_autnum","end_autnum"} for
// autnum, {"networkId": "a.b.c.d/len" | {startAddress,endAddress}} for ip.
func mergeIDSpec(base json.RawMessage, id idSpec) (json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, errors.WithMessage(err, "template body")
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}

	setStr := func(key, val string) {
		if val == "" {
			return
		}
		b, _ := json.Marshal(val)
		out[key] = b
	}
	setStr("ldhName", id.LdhName)
	setStr("unicodeName", id.UnicodeName)
	setStr("handle", id.Handle)

	if id.StartAutnum != nil {
		b, _ := json.Marshal(*id.StartAutnum)
		out["startAutnum"] = b
	}
	if id.EndAutnum != nil {
		b, _ := json.Marshal(*id.EndAutnum)
		out["endAutnum"] = b
	}

	if id.NetworkID != nil {
		start, end, err := decodeNetworkID(id.NetworkID)
		if err != nil {
			return nil, err
		}
		sb, _ := json.Marshal(start)
		eb, _ := json.Marshal(end)
		out["startAddress"] = sb
		out["endAddress"] = eb
	}

	return json.Marshal(out)
}

// decodeNetworkID accepts either a "a.b.c.d/len" string or a
// {"startAddress":"...","endAddress":"..."} object, per §6's networkId
// schema, and returns the start/end address strings.
func decodeNetworkID(raw json.RawMessage) (start, end string, err error) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		prefix, perr := netip.ParsePrefix(s)
		if perr != nil {
			return "", "", errors.WithMessage(perr, "networkId")
		}
		lastAddr := lastAddrOf(prefix)
		return prefix.Addr().String(), lastAddr.String(), nil
	}
	var obj struct {
		StartAddress string `json:"startAddress"`
		EndAddress   string `json:"endAddress"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", "", errors.WithMessage(err, "networkId")
	}
	return obj.StartAddress, obj.EndAddress, nil
}

func lastAddrOf(p netip.Prefix) netip.Addr {
	addr := p.Masked().Addr()
	bytes := addr.AsSlice()
	bits := p.Bits()
	for i := range bytes {
		bitOffset := i * 8
		if bitOffset+8 <= bits {
			continue
		}
		if bitOffset >= bits {
			bytes[i] = 0xff
			continue
		}
		keep := bits - bitOffset
		mask := byte(0xff) >> keep
		bytes[i] |= mask
	}
	last, _ := netip.AddrFromSlice(bytes)
	if addr.Is4In6() {
		last = last.Unmap()
	}
	return last
}

