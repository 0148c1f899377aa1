// Package rdapsrv implements the server dispatcher: mapping an HTTP path
// to a typed lookup against the in-memory Store, producing RDAP error
// bodies and JSContact-converted entities. HTTP routing/muxing itself is
// out of scope here; this package exposes plain functions a thin net/http
// handler composes, keeping dispatch logic separate from the
// printing/formatting it calls into.
package rdapsrv

import (
	"encoding/json"
	"net/netip"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rdaptools/rdap/internal/response"
	"github.com/rdaptools/rdap/internal/store"
)

// Result is what Dispatch returns: an HTTP status, the body to serialize,
// and (for 307s) a redirect Location.
type Result struct {
	Status   int
	Body     json.RawMessage
	Location string
}

// Dispatcher composes a Store with the JSContact conversion policy of
// §4.8 "RDAP_SRV_JSCONTACT_CONVERSION".
type Dispatcher struct {
	Store             *store.Store
	JSContactMode     response.ConversionMode
	PathPrefix        string // default "/rdap", per §4.8
	DomainSearch      bool   // RDAP_SRV_DOMAIN_SEARCH_BY_NAME
	NameserverSearch  bool   // RDAP_SRV_NAMESERVER_SEARCH_BY_NAME
	NameserverIPSearch bool  // RDAP_SRV_NAMESERVER_SEARCH_BY_IP
	log               *logrus.Entry
}

// New builds a Dispatcher over an already-loaded Store.
func New(st *store.Store) *Dispatcher {
	return &Dispatcher{
		Store:      st,
		PathPrefix: "/rdap",
		log:        logrus.WithField("component", "server"),
	}
}

// errorBody builds an RDAP error response per RFC 9083 §6, matching the
// shape response.ErrorResponse serializes.
func errorBody(code int, title string, description ...string) json.RawMessage {
	e := response.ErrorResponse{
		Common:      response.Common{ObjectClassName: "error"},
		ErrorCode:   code,
		Title:       title,
		Description: description,
	}
	bs, _ := response.Serialize(e)
	return bs
}

// NotFound builds the §4.8 "Not-found -> RDAP error body" response, and
// §8 scenario 6's "errorCode=404" shape.
func NotFound() Result {
	return Result{Status: 404, Body: errorBody(404, "Not Found")}
}

// BadRequest builds the §4.8 "Malformed input -> 400" response.
func BadRequest(reason string) Result {
	return Result{Status: 400, Body: errorBody(400, "Bad Request", reason)}
}

// LookupDomain answers GET /domain/<ldh>.
func (d *Dispatcher) LookupDomain(ldh string) Result {
	if loc, ok := d.Store.RedirectFor(strings.ToLower(ldh)); ok {
		return Result{Status: 307, Location: loc}
	}
	body, ok := d.Store.LookupDomain(ldh)
	if !ok {
		return NotFound()
	}
	return Result{Status: 200, Body: d.convertEntities(body)}
}

// LookupNameserver answers GET /nameserver/<ldh>.
func (d *Dispatcher) LookupNameserver(ldh string) Result {
	if loc, ok := d.Store.RedirectFor(strings.ToLower(ldh)); ok {
		return Result{Status: 307, Location: loc}
	}
	body, ok := d.Store.LookupNameserver(ldh)
	if !ok {
		return NotFound()
	}
	return Result{Status: 200, Body: d.convertEntities(body)}
}

// LookupEntity answers GET /entity/<handle>.
func (d *Dispatcher) LookupEntity(handle string) Result {
	if loc, ok := d.Store.RedirectFor(handle); ok {
		return Result{Status: 307, Location: loc}
	}
	body, ok := d.Store.LookupEntity(handle)
	if !ok {
		return NotFound()
	}
	return Result{Status: 200, Body: d.convertEntities(body)}
}

// LookupAutnum answers GET /autnum/<n>.
func (d *Dispatcher) LookupAutnum(token string) Result {
	n, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		return BadRequest("autnum must be a decimal number")
	}
	body, ok := d.Store.LookupAutnum(uint32(n))
	if !ok {
		return NotFound()
	}
	return Result{Status: 200, Body: d.convertEntities(body)}
}

// LookupIP answers GET /ip/<addr-or-cidr>.
func (d *Dispatcher) LookupIP(token string) Result {
	prefix, err := parseAddrOrCIDR(token)
	if err != nil {
		return BadRequest("malformed ip address or cidr")
	}
	body, ok := d.Store.LookupIP(prefix)
	if !ok {
		return NotFound()
	}
	return Result{Status: 200, Body: d.convertEntities(body)}
}

// Help answers GET /help.
func (d *Dispatcher) Help() Result {
	body, ok := d.Store.Help()
	if !ok {
		return NotFound()
	}
	return Result{Status: 200, Body: body}
}

// SearchDomainsByName answers GET /domains?name=<glob>.
func (d *Dispatcher) SearchDomainsByName(pattern string) Result {
	if !d.DomainSearch {
		return NotFound()
	}
	return d.searchResult("domainSearchResults", d.Store.SearchDomainsByName(pattern))
}

// SearchNameserversByName answers GET /nameservers?name=<glob>.
func (d *Dispatcher) SearchNameserversByName(pattern string) Result {
	if !d.NameserverSearch {
		return NotFound()
	}
	return d.searchResult("nameserverSearchResults", d.Store.SearchNameserversByName(pattern))
}

// SearchNameserversByIP answers GET /nameservers?ip=<addr>.
func (d *Dispatcher) SearchNameserversByIP(token string) Result {
	if !d.NameserverIPSearch {
		return NotFound()
	}
	addr, err := netip.ParseAddr(token)
	if err != nil {
		return BadRequest("malformed ip address")
	}
	return d.searchResult("nameserverSearchResults", d.Store.SearchNameserversByIP(addr))
}

func (d *Dispatcher) searchResult(member string, bodies []json.RawMessage) Result {
	if len(bodies) == 0 {
		return NotFound()
	}
	parts := make([]string, len(bodies))
	for i, b := range bodies {
		parts[i] = string(d.convertEntities(b))
	}
	raw := `{"rdapConformance":["rdap_level_0"],"` + member + `":[` + strings.Join(parts, ",") + `]}`
	return Result{Status: 200, Body: json.RawMessage(raw)}
}

func parseAddrOrCIDR(token string) (netip.Prefix, error) {
	if strings.Contains(token, "/") {
		return netip.ParsePrefix(token)
	}
	addr, err := netip.ParseAddr(token)
	if err != nil {
		return netip.Prefix{}, err
	}
	bits := 32
	if addr.Is6() {
		bits = 128
	}
	return netip.PrefixFrom(addr, bits), nil
}
