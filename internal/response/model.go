// Package response models parsed RDAP objects (RFC 9083) and the jCard /
// JSContact contact representations embedded in them.
package response

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ObjectClass discriminates the five RDAP topmost response object classes
// plus the non-object responses (help, search results, error).
type ObjectClass string

const (
	ClassDomain        ObjectClass = "domain"
	ClassNameserver    ObjectClass = "nameserver"
	ClassEntity        ObjectClass = "entity"
	ClassAutnum        ObjectClass = "autnum"
	ClassIPNetwork     ObjectClass = "ip network"
	ClassHelp          ObjectClass = "help"
	ClassSearchResults ObjectClass = "search-results"
	ClassError         ObjectClass = "error"
	ClassUnknown       ObjectClass = "unknown"
)

// Common holds the fields shared by every RDAP topmost object.
// https://tools.ietf.org/html/rfc9083#section-4
type Common struct {
	ObjectClassName string   `json:"objectClassName,omitempty"`
	Handle          string   `json:"handle,omitempty"`
	Conformance     []string `json:"rdapConformance,omitempty"`
	Notices         []Notice `json:"notices,omitempty"`
	Remarks         []Remark `json:"remarks,omitempty"`
	Links           []Link   `json:"links,omitempty"`
	Events          []Event  `json:"events,omitempty"`
	Status          []string `json:"status,omitempty"`
	Port43          string   `json:"port43,omitempty"`
	Entities        []Entity `json:"entities,omitempty"`
	Lang            string   `json:"lang,omitempty"`

	// Extensions holds members present in a decoded response body that
	// aren't modeled by any field above: vendor or profile extensions
	// (e.g. an RIR's own "arin_originas0"-style members) living alongside
	// the RFC 9083 members this struct knows about. Populated by
	// decodeInto, re-emitted by Serialize; never set by hand.
	Extensions map[string]json.RawMessage `json:"-"`
}

// Link signifies a link to another resource on the Internet.
// https://tools.ietf.org/html/rfc9083#section-4.2
type Link struct {
	Value    string   `json:"value,omitempty"`
	Rel      string   `json:"rel,omitempty"`
	Href     string   `json:"href,omitempty"`
	HrefLang []string `json:"hreflang,omitempty"`
	Title    string   `json:"title,omitempty"`
	Media    string   `json:"media,omitempty"`
	Type     string   `json:"type,omitempty"`
}

// Notice contains information about the entire RDAP response.
// https://tools.ietf.org/html/rfc9083#section-4.3
type Notice struct {
	Title       string   `json:"title,omitempty"`
	Type        string   `json:"type,omitempty"`
	Description []string `json:"description,omitempty"`
	Links       []Link   `json:"links,omitempty"`
}

// Remark contains information about the containing RDAP object. Same shape
// as Notice; RFC 9083 only distinguishes the two by the member name they
// appear under.
type Remark = Notice

// Event represents something that has happened, or may happen, to an object.
// https://tools.ietf.org/html/rfc9083#section-4.5
type Event struct {
	Action string `json:"eventAction,omitempty"`
	Actor  string `json:"eventActor,omitempty"`
	Date   string `json:"eventDate,omitempty"`
	Links  []Link `json:"links,omitempty"`
}

// PublicID maps a public identifier to an object class.
// https://tools.ietf.org/html/rfc9083#section-4.8
type PublicID struct {
	Type       string `json:"type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// SecureDNS carries the DNSSEC-related fields of a domain object.
type SecureDNS struct {
	ZoneSigned       bool       `json:"zoneSigned,omitempty"`
	DelegationSigned bool       `json:"delegationSigned,omitempty"`
	MaxSigLife       int        `json:"maxSigLife,omitempty"`
	DSData           []DSDatum  `json:"dsData,omitempty"`
	KeyData          []KeyDatum `json:"keyData,omitempty"`
}

type DSDatum struct {
	KeyTag     int    `json:"keyTag"`
	Algorithm  int    `json:"algorithm"`
	Digest     string `json:"digest"`
	DigestType int    `json:"digestType"`
}

type KeyDatum struct {
	Flags     int    `json:"flags"`
	Protocol  int    `json:"protocol"`
	Algorithm int    `json:"algorithm"`
	PublicKey string `json:"publicKey"`
}

// RedactedDirective is an RFC 9537 redaction marker.
type RedactedDirective struct {
	Name            map[string]string `json:"name,omitempty"`
	Reason          map[string]string `json:"reason,omitempty"`
	PrePath         string            `json:"prePath,omitempty"`
	PostPath        string            `json:"postPath,omitempty"`
	PathLang        string            `json:"pathLang,omitempty"`
	Method          string            `json:"method,omitempty"`
	SimpleRedaction *SimpleRedaction  `json:"-"`
}

// SimpleRedaction is the annotation §4.6 attaches to a leaf when an
// RFC 9537 directive is simplifiable: a jsonpath pointing at a single leaf,
// and do-not-simplify-rfc9537 was not requested.
type SimpleRedaction struct {
	Path   string
	Method string
}

// Domain is a topmost RDAP response object for a DNS name.
// https://tools.ietf.org/html/rfc9083#section-5.3
type Domain struct {
	Common
	LdhName     string              `json:"ldhName,omitempty"`
	UnicodeName string              `json:"unicodeName,omitempty"`
	Variants    []json.RawMessage   `json:"variants,omitempty"`
	Nameservers []Nameserver        `json:"nameservers,omitempty"`
	SecureDNS   *SecureDNS          `json:"secureDNS,omitempty"`
	PublicIDs   []PublicID          `json:"publicIds,omitempty"`
	Redacted    []RedactedDirective `json:"redacted,omitempty"`
}

// Nameserver is a topmost RDAP response object for a DNS nameserver.
// https://tools.ietf.org/html/rfc9083#section-5.2
type Nameserver struct {
	Common
	LdhName     string      `json:"ldhName,omitempty"`
	UnicodeName string      `json:"unicodeName,omitempty"`
	IPAddresses IPAddresses `json:"ipAddresses,omitempty"`
}

type IPAddresses struct {
	V4 []string `json:"v4,omitempty"`
	V6 []string `json:"v6,omitempty"`
}

// IPNetwork represents an IP address block.
// https://tools.ietf.org/html/rfc9083#section-5.4
type IPNetwork struct {
	Common
	StartAddress string            `json:"startAddress,omitempty"`
	EndAddress   string            `json:"endAddress,omitempty"`
	IPVersion    string            `json:"ipVersion,omitempty"`
	Name         string            `json:"name,omitempty"`
	Type         string            `json:"type,omitempty"`
	Country      string            `json:"country,omitempty"`
	ParentHandle string            `json:"parentHandle,omitempty"`
	Cidr0Cidrs   []json.RawMessage `json:"cidr0_cidrs,omitempty"`
}

// Autnum represents an Autonomous System Number registration.
// https://tools.ietf.org/html/rfc9083#section-5.5
type Autnum struct {
	Common
	StartAutnum *uint32 `json:"startAutnum,omitempty"`
	EndAutnum   *uint32 `json:"endAutnum,omitempty"`
	IPVersion   string  `json:"ipVersion,omitempty"`
	Name        string  `json:"name,omitempty"`
	Type        string  `json:"type,omitempty"`
	Country     string  `json:"country,omitempty"`
}

// Entity is a topmost RDAP response object for a person/organization/role.
// https://tools.ietf.org/html/rfc9083#section-5.1
type Entity struct {
	Common
	VCard        VCard       `json:"vcardArray,omitempty"`
	Roles        []string    `json:"roles,omitempty"`
	PublicIDs    []PublicID  `json:"publicIds,omitempty"`
	AsEventActor []Event     `json:"asEventActor,omitempty"`
	Networks     []IPNetwork `json:"networks,omitempty"`
	Autnums      []Autnum    `json:"autnums,omitempty"`
}

// Help is the response to the RDAP help query.
type Help struct {
	Common
}

// SearchResults is the response to a search query (domains/nameservers/entities).
type SearchResults struct {
	Common
	DomainSearchResults     []Domain     `json:"domainSearchResults,omitempty"`
	NameserverSearchResults []Nameserver `json:"nameserverSearchResults,omitempty"`
	EntitySearchResults     []Entity     `json:"entitySearchResults,omitempty"`
}

// ErrorResponse represents an RDAP error response body.
// https://tools.ietf.org/html/rfc9083#section-6
type ErrorResponse struct {
	Common
	ErrorCode   int      `json:"errorCode,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description []string `json:"description,omitempty"`
}

// Object is implemented by every parsed RDAP response body.
type Object interface {
	Class() ObjectClass
}

func (Domain) Class() ObjectClass        { return ClassDomain }
func (Nameserver) Class() ObjectClass    { return ClassNameserver }
func (Entity) Class() ObjectClass        { return ClassEntity }
func (Autnum) Class() ObjectClass        { return ClassAutnum }
func (IPNetwork) Class() ObjectClass     { return ClassIPNetwork }
func (Help) Class() ObjectClass          { return ClassHelp }
func (SearchResults) Class() ObjectClass { return ClassSearchResults }
func (ErrorResponse) Class() ObjectClass { return ClassError }

// commonPtrOf returns a pointer to the Common embedded in the concrete
// value behind v, for decode-time mutation of Extensions. v is always one
// of the *T pointers decodeInto/captureExtensions already hold, never a
// bare Object, so this works with a type switch instead of reflection.
func commonPtrOf(v any) *Common {
	switch t := v.(type) {
	case *Domain:
		return &t.Common
	case *Nameserver:
		return &t.Common
	case *Entity:
		return &t.Common
	case *Autnum:
		return &t.Common
	case *IPNetwork:
		return &t.Common
	case *Help:
		return &t.Common
	case *SearchResults:
		return &t.Common
	case *ErrorResponse:
		return &t.Common
	default:
		return nil
	}
}

// commonOf returns the Common embedded in obj by value, for the read-only
// access Serialize needs. obj is always a value type (Parse/decodeInto
// never hand out pointers), so this too is a type switch rather than an
// interface method.
func commonOf(obj Object) (Common, bool) {
	switch t := obj.(type) {
	case Domain:
		return t.Common, true
	case Nameserver:
		return t.Common, true
	case Entity:
		return t.Common, true
	case Autnum:
		return t.Common, true
	case IPNetwork:
		return t.Common, true
	case Help:
		return t.Common, true
	case SearchResults:
		return t.Common, true
	case ErrorResponse:
		return t.Common, true
	default:
		return Common{}, false
	}
}

// classProbe is used only to sniff discriminating fields before full
// unmarshal, the way a streaming parser would peek at a header.
type classProbe struct {
	ObjectClassName string `json:"objectClassName"`
	ErrorCode       int    `json:"errorCode"`
}

// ErrNotJSON is returned when the input is not valid JSON at all.
var ErrNotJSON = errors.New("rdap: response body is not valid JSON")

// ErrUnknownObjectClass is returned when objectClassName is present but not
// one of the five RDAP object classes, and the body is also not a help,
// search-results, or error response.
var ErrUnknownObjectClass = errors.New("rdap: unknown or missing objectClassName")

// Parse decodes an RDAP JSON response body into its typed Object.
//
// Parsing is permissive per §4.1: members not modeled by a struct field are
// captured on that node's Common.Extensions rather than dropped, so vendor
// and profile extensions round-trip through Serialize. A body that declares
// no recognizable objectClassName surfaces as ErrUnknownObjectClass instead
// of a hard parse failure, so a checker can still report on what did parse.
func Parse(body []byte) (Object, error) {
	var sniff map[string]json.RawMessage
	if err := json.Unmarshal(body, &sniff); err != nil {
		return nil, errors.WithMessage(ErrNotJSON, err.Error())
	}

	var probe classProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errors.WithMessage(ErrNotJSON, err.Error())
	}

	// search results are detected structurally: any of the three
	// *SearchResults members present, regardless of objectClassName.
	if _, ok := sniff["domainSearchResults"]; ok {
		return decodeInto(body, &SearchResults{})
	}
	if _, ok := sniff["nameserverSearchResults"]; ok {
		return decodeInto(body, &SearchResults{})
	}
	if _, ok := sniff["entitySearchResults"]; ok {
		return decodeInto(body, &SearchResults{})
	}

	if probe.ErrorCode != 0 {
		return decodeInto(body, &ErrorResponse{})
	}

	switch ObjectClass(probe.ObjectClassName) {
	case ClassDomain:
		return decodeInto(body, &Domain{})
	case ClassNameserver:
		return decodeInto(body, &Nameserver{})
	case ClassEntity:
		return decodeInto(body, &Entity{})
	case ClassAutnum:
		return decodeInto(body, &Autnum{})
	case ClassIPNetwork:
		return decodeInto(body, &IPNetwork{})
	case ClassHelp:
		return decodeInto(body, &Help{})
	default:
		if _, ok := sniff["notices"]; ok && probe.ObjectClassName == "" {
			// help responses sometimes omit objectClassName entirely.
			return decodeInto(body, &Help{})
		}
		return nil, ErrUnknownObjectClass
	}
}

func decodeInto[T any](body []byte, v *T) (Object, error) {
	if err := json.Unmarshal(body, v); err != nil {
		return nil, errors.WithMessage(err, "decode rdap object")
	}
	if _, ok := any(*v).(Object); !ok {
		return nil, ErrUnknownObjectClass
	}
	if err := captureExtensions(v, body); err != nil {
		return nil, errors.WithMessage(err, "capture extension members")
	}
	// obj is taken only now, after captureExtensions has mutated *v, since
	// an Object value is a copy and would otherwise miss Extensions.
	obj, _ := any(*v).(Object)
	return obj, nil
}

// captureExtensions diffs body against v's already-decoded known fields to
// find members no field models, storing them on v's Common.Extensions. It
// recurses into nested entities, which are RDAP object nodes in their own
// right and can carry extensions independently of their parent.
func captureExtensions(v any, body []byte) error {
	common := commonPtrOf(v)
	if common == nil {
		return nil
	}

	known, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var all, knownFields map[string]json.RawMessage
	if err := json.Unmarshal(body, &all); err != nil {
		return err
	}
	if err := json.Unmarshal(known, &knownFields); err != nil {
		return err
	}

	extra := map[string]json.RawMessage{}
	for k, raw := range all {
		if _, ok := knownFields[k]; !ok {
			extra[k] = raw
		}
	}
	if len(extra) > 0 {
		common.Extensions = extra
	}

	rawEntities, ok := all["entities"]
	if !ok || len(common.Entities) == 0 {
		return nil
	}
	var entArr []json.RawMessage
	if err := json.Unmarshal(rawEntities, &entArr); err != nil {
		return nil // malformed entities array is reported by the Entity decode itself
	}
	for i := range common.Entities {
		if i >= len(entArr) {
			break
		}
		if err := captureExtensions(&common.Entities[i], entArr[i]); err != nil {
			return err
		}
	}
	return nil
}

// Serialize re-encodes an Object to its canonical wire form: common fields
// first (the order they're declared in Common), then object-class-specific
// fields, in the declaration order of the corresponding struct. Go's
// encoding/json already serializes struct fields in declaration order, so
// this falls out of the type definitions above rather than needing a
// separate key-ordering pass.
//
// That guarantee holds only while no node in obj's tree carries
// Extensions: a node that does round-trips through a generic map merge
// instead, so its known members keep their values but lose their
// declaration-order position (extension keys have no position in the
// struct to be merged back into).
func Serialize(obj Object) ([]byte, error) {
	bs, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.WithMessage(err, "serialize rdap object")
	}
	if !hasExtensions(obj) {
		return bs, nil
	}
	bs, err = mergeExtensions(obj, bs)
	if err != nil {
		return nil, errors.WithMessage(err, "merge extension members")
	}
	return bs, nil
}

func hasExtensions(obj Object) bool {
	common, ok := commonOf(obj)
	if !ok {
		return false
	}
	if len(common.Extensions) > 0 {
		return true
	}
	for _, e := range common.Entities {
		if hasExtensions(e) {
			return true
		}
	}
	return false
}

// mergeExtensions merges obj's captured Extensions (and those of any
// nested entity that has its own) back into bs, obj's already-serialized
// JSON. Untouched nested entities are left byte-identical.
func mergeExtensions(obj Object, bs []byte) ([]byte, error) {
	common, ok := commonOf(obj)
	if !ok {
		return bs, nil
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(bs, &node); err != nil {
		return nil, err
	}
	for k, v := range common.Extensions {
		node[k] = v
	}

	rawEntities, ok := node["entities"]
	if ok && len(common.Entities) > 0 {
		var entArr []json.RawMessage
		if err := json.Unmarshal(rawEntities, &entArr); err == nil {
			for i := range common.Entities {
				if i >= len(entArr) || !hasExtensions(common.Entities[i]) {
					continue
				}
				merged, err := mergeExtensions(common.Entities[i], entArr[i])
				if err != nil {
					return nil, err
				}
				entArr[i] = merged
			}
			mergedArr, err := json.Marshal(entArr)
			if err != nil {
				return nil, err
			}
			node["entities"] = mergedArr
		}
	}

	return json.Marshal(node)
}
