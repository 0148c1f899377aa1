// Package query turns a free-form lookup token into one of the typed RDAP
// queries described in §3 "Typed query (Q)", applying the precedence rules
// of §4.2.
package query

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// Kind discriminates the shape of a typed query.
type Kind int

const (
	KindUnknown Kind = iota
	KindIPv4Addr
	KindIPv6Addr
	KindIPv4Cidr
	KindIPv6Cidr
	KindAutNum
	KindDomain
	KindNameserver
	KindEntity
	KindReverseDNS
	KindEntityNameSearch
	KindEntityHandleSearch
	KindDomainNameSearch
	KindDomainNsNameSearch
	KindDomainNsIPSearch
	KindNsNameSearch
	KindNsIPSearch
	KindServerHelp
	KindURL
)

// Hint forces a query's kind, per §4.2 "hint".
type Hint int

const (
	HintNone Hint = iota
	HintAutNum
	HintDomain
	HintEntity
	HintNameserver
	HintIP
)

// Query is the normalized, canonical typed query value. Exactly one payload
// field is meaningful for a given Kind.
type Query struct {
	Kind Kind

	IP   netip.Addr   // IPv4Addr | IPv6Addr
	CIDR netip.Prefix // IPv4Cidr | IPv6Cidr | ReverseDNS (decoded)

	ASN uint32 // AutNum

	// ALabel is always present for Domain/Nameserver; ULabel is present
	// only when the original token contained non-ASCII labels.
	ALabel string
	ULabel string

	Handle string // Entity
	Raw    string // Url, and the original input token for all kinds

	SearchPattern string // *Search kinds: the glob/regex payload
}

// ClassifyError enumerates the ways classification can fail, per §7.
type ClassifyError struct {
	Kind ClassifyErrorKind
	msg  string
}

type ClassifyErrorKind int

const (
	ErrInvalidForm ClassifyErrorKind = iota
	ErrTypeMismatch
	ErrAmbiguous
)

func (e *ClassifyError) Error() string { return e.msg }

func newClassifyErr(kind ClassifyErrorKind, msg string) error {
	return &ClassifyError{Kind: kind, msg: msg}
}

var (
	reAutNum     = regexp.MustCompile(`(?i)^AS(\d+)$`)
	reReverse4   = regexp.MustCompile(`(?i)\.in-addr\.arpa\.?$`)
	reReverse6   = regexp.MustCompile(`(?i)\.ip6\.arpa\.?$`)
	idnaProfile  = idna.New(idna.MapForLookup(), idna.Transitional(false), idna.BidiRule())
)

// Classify infers a token's query type, applying the §4.2 precedence list
// in order and normalizing the result. A non-nil hint forces the outcome to
// match a particular kind family, failing with ErrTypeMismatch if it can't.
func Classify(token string, hint Hint) (Query, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Query{}, newClassifyErr(ErrInvalidForm, "empty query token")
	}

	// 1. URL
	if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
		if hint != HintNone {
			return Query{}, newClassifyErr(ErrTypeMismatch, "url token cannot satisfy a type hint")
		}
		return Query{Kind: KindURL, Raw: token}, nil
	}

	// 2. CIDR (left side parses as IP)
	if strings.Contains(token, "/") {
		if q, err, ok := classifyCIDR(token); ok {
			if hint != HintNone && hint != HintIP {
				return Query{}, newClassifyErr(ErrTypeMismatch, "cidr token cannot satisfy requested type")
			}
			return q, err
		}
	}

	// 3. AutNum: "as123" always; bare decimal only with an explicit hint,
	// otherwise it is ambiguous against Entity per §4.2 step 3/8.
	if m := reAutNum.FindStringSubmatch(token); m != nil {
		n, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return Query{}, newClassifyErr(ErrInvalidForm, "autnum out of range")
		}
		if hint != HintNone && hint != HintAutNum {
			return Query{}, newClassifyErr(ErrTypeMismatch, "token is an AS number")
		}
		return Query{Kind: KindAutNum, ASN: uint32(n), Raw: token}, nil
	}
	if isDecimal(token) {
		n, err := strconv.ParseUint(token, 10, 32)
		if err == nil {
			switch hint {
			case HintAutNum:
				return Query{Kind: KindAutNum, ASN: uint32(n), Raw: token}, nil
			case HintEntity:
				return Query{Kind: KindEntity, Handle: token, Raw: token}, nil
			case HintNone:
				return Query{}, newClassifyErr(ErrAmbiguous, "token is both a valid ASN and a valid entity handle")
			default:
				return Query{}, newClassifyErr(ErrTypeMismatch, "numeric token cannot satisfy requested type")
			}
		}
	}

	// 4. IPv4/IPv6 literal
	if ip, err := netip.ParseAddr(token); err == nil {
		if hint != HintNone && hint != HintIP {
			return Query{}, newClassifyErr(ErrTypeMismatch, "token is an IP address")
		}
		kind := KindIPv6Addr
		if ip.Is4() || ip.Is4In6() {
			kind = KindIPv4Addr
			ip = ip.Unmap()
		}
		return Query{Kind: kind, IP: ip, Raw: token}, nil
	}

	// 5. reverse DNS
	if reReverse4.MatchString(token) || reReverse6.MatchString(token) {
		cidr, err := decodeReverseDNS(token)
		if err != nil {
			return Query{}, err
		}
		if hint != HintNone && hint != HintIP {
			return Query{}, newClassifyErr(ErrTypeMismatch, "token is a reverse-DNS name")
		}
		return Query{Kind: KindReverseDNS, CIDR: cidr, Raw: token}, nil
	}

	// 6/7. domain (dotted, or a single leading-dot TLD label)
	if strings.Contains(token, ".") || strings.HasPrefix(token, ".") {
		q, err := classifyDomain(token, hint)
		if err == nil {
			return q, nil
		}
		// fall through only if the hint forces a non-domain kind mismatch
		// path to Entity; a malformed domain-shaped token is otherwise
		// InvalidForm, not silently reinterpreted as an entity handle.
		if hint == HintNone || hint == HintDomain || hint == HintNameserver {
			return Query{}, err
		}
	}

	// 8. entity
	if hint != HintNone && hint != HintEntity {
		return Query{}, newClassifyErr(ErrTypeMismatch, "token does not satisfy requested type")
	}
	return Query{Kind: KindEntity, Handle: token, Raw: token}, nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func classifyCIDR(token string) (Query, error, bool) {
	left, _, _ := strings.Cut(token, "/")
	if _, err := netip.ParseAddr(left); err != nil {
		// not a full IP on the left; still a CIDR if it is the partial-octet
		// IPv4 shorthand normalizeCIDRShorthand accepts ("10/8"), otherwise
		// not a CIDR per §4.2 step 2.
		octets := strings.Split(left, ".")
		if len(octets) > 4 {
			return Query{}, nil, false
		}
		for _, o := range octets {
			if !isDecimal(o) {
				return Query{}, nil, false
			}
		}
	}

	prefix, err := normalizeCIDRShorthand(token)
	if err != nil {
		return Query{}, newClassifyErr(ErrInvalidForm, err.Error()), true
	}

	kind := KindIPv6Cidr
	if prefix.Addr().Is4() {
		kind = KindIPv4Cidr
	}
	return Query{Kind: kind, CIDR: prefix, Raw: token}, nil, true
}

// normalizeCIDRShorthand parses "addr/len" allowing the IPv4 partial-octet
// shorthand used by RIR delegation data ("10/8" -> 10.0.0.0/8), per §4.2
// step 2 and §8 scenario 1.
func normalizeCIDRShorthand(token string) (netip.Prefix, error) {
	left, right, _ := strings.Cut(token, "/")
	bits, err := strconv.Atoi(right)
	if err != nil {
		return netip.Prefix{}, errors.New("invalid prefix length")
	}

	addr, err := netip.ParseAddr(left)
	if err == nil {
		p := netip.PrefixFrom(addr, bits)
		return p.Masked(), nil
	}

	// shorthand: fewer than 4 octets given for IPv4 ("10" -> "10.0.0.0").
	octets := strings.Split(left, ".")
	if len(octets) == 0 || len(octets) > 4 {
		return netip.Prefix{}, errors.New("malformed ipv4 address")
	}
	for len(octets) < 4 {
		octets = append(octets, "0")
	}
	full := strings.Join(octets, ".")
	addr, err = netip.ParseAddr(full)
	if err != nil {
		return netip.Prefix{}, errors.WithMessage(err, "malformed ipv4 address")
	}
	return netip.PrefixFrom(addr, bits).Masked(), nil
}

// decodeReverseDNS decodes a .in-addr.arpa/.ip6.arpa name to the CIDR it
// names, per §4.2 step 5 and §8 scenario 3.
func decodeReverseDNS(token string) (netip.Prefix, error) {
	token = strings.TrimSuffix(token, ".")
	lower := strings.ToLower(token)

	if strings.HasSuffix(lower, ".in-addr.arpa") {
		base := strings.TrimSuffix(lower, ".in-addr.arpa")
		labels := strings.Split(base, ".")
		for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
			labels[i], labels[j] = labels[j], labels[i]
		}
		for len(labels) < 4 {
			labels = append(labels, "0")
		}
		if len(labels) > 4 {
			return netip.Prefix{}, newClassifyErr(ErrInvalidForm, "too many labels for in-addr.arpa")
		}
		addr, err := netip.ParseAddr(strings.Join(labels, "."))
		if err != nil {
			return netip.Prefix{}, newClassifyErr(ErrInvalidForm, "malformed in-addr.arpa name")
		}
		bits := len(strings.Split(base, ".")) * 8
		return netip.PrefixFrom(addr, bits).Masked(), nil
	}

	if strings.HasSuffix(lower, ".ip6.arpa") {
		base := strings.TrimSuffix(lower, ".ip6.arpa")
		nibbles := strings.Split(base, ".")
		for i, j := 0, len(nibbles)-1; i < j; i, j = i+1, j-1 {
			nibbles[i], nibbles[j] = nibbles[j], nibbles[i]
		}
		for len(nibbles) < 32 {
			nibbles = append(nibbles, "0")
		}
		if len(nibbles) > 32 {
			return netip.Prefix{}, newClassifyErr(ErrInvalidForm, "too many nibbles for ip6.arpa")
		}
		var sb strings.Builder
		for i, n := range nibbles {
			if i > 0 && i%4 == 0 {
				sb.WriteByte(':')
			}
			sb.WriteString(n)
		}
		addr, err := netip.ParseAddr(sb.String())
		if err != nil {
			return netip.Prefix{}, newClassifyErr(ErrInvalidForm, "malformed ip6.arpa name")
		}
		bits := len(strings.Split(base, ".")) * 4
		return netip.PrefixFrom(addr, bits).Masked(), nil
	}

	return netip.Prefix{}, newClassifyErr(ErrInvalidForm, "not a reverse-dns name")
}

// classifyDomain validates and normalizes a dotted or leading-dot token as
// a Domain query. Domain case-folding is NFC-then-lowercase; IDN A-label
// conversion uses IDNA 2008 with the Transitional flag off, per §4.2.
func classifyDomain(token string, hint Hint) (Query, error) {
	if hint != HintNone && hint != HintDomain && hint != HintNameserver {
		return Query{}, newClassifyErr(ErrTypeMismatch, "token is domain-shaped")
	}

	isASCII := isASCIILabel(token)
	alabel, err := idnaProfile.ToASCII(token)
	if err != nil {
		return Query{}, newClassifyErr(ErrInvalidForm, "invalid domain label: "+err.Error())
	}
	alabel = strings.ToLower(alabel)

	kind := KindDomain
	if hint == HintNameserver {
		kind = KindNameserver
	}

	q := Query{Kind: kind, ALabel: alabel, Raw: token}
	if !isASCII {
		ulabel, err := idnaProfile.ToUnicode(alabel)
		if err == nil {
			// NFC-normalize so a unicodeName compared against this query's
			// ULabel later (e.g. in internal/check's ldhName/unicodeName
			// consistency rule) isn't defeated by combining-character
			// variance the registry and the query happened to encode
			// differently, per RFC 5891's normalization expectation.
			q.ULabel = norm.NFC.String(ulabel)
		}
	}
	return q, nil
}

func isASCIILabel(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
