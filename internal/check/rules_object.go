package check

import (
	"strconv"
	"strings"

	"github.com/rdaptools/rdap/internal/response"
)

// domainRules, per §4.6's rule catalog "StandardsError: ldhName non-ASCII"
// and the §8 boundary behavior around unicodeName.
var domainRules = []Rule{
	ruleLdhNameASCII,
	ruleCidr0Consistency, // no-op for Domain; shared dispatch convenience
}

var nameserverRules = []Rule{
	ruleLdhNameASCII,
}

var entityRules = []Rule{
	ruleEntityRolesInformational,
	ruleVCardFnVersion,
}

var autnumRules = []Rule{
	ruleAutnumRange,
}

var ipNetworkRules = []Rule{
	ruleIPNetworkRange,
	ruleCidr0Consistency,
}

var errorRules = []Rule{
	ruleErrorCodeMatchesHTTPStatus,
}

// ruleLdhNameASCII: §4.6 StandardsError "ldhName non-ASCII"; §8 boundary
// behavior: "ldhName containing non-ASCII -> one StandardsError and
// unicodeName absent becomes a StandardsWarning".
func ruleLdhNameASCII(n Node, _ Context) []Finding {
	var ldh, unicode string
	switch v := n.Obj.(type) {
	case response.Domain:
		ldh, unicode = v.LdhName, v.UnicodeName
	case response.Nameserver:
		ldh, unicode = v.LdhName, v.UnicodeName
	default:
		return nil
	}
	if ldh == "" {
		return nil
	}
	var out []Finding
	if !isASCII(ldh) {
		out = append(out, Finding{
			Code: 3001, Class: StandardsError, Path: n.Path + ".ldhName",
			Message: "ldhName contains non-ASCII characters: " + ldh,
		})
		if unicode == "" {
			out = append(out, Finding{
				Code: 3002, Class: StandardsWarning, Path: n.Path + ".unicodeName",
				Message: "unicodeName absent for a non-ASCII ldhName",
			})
		}
	}
	return out
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// ruleEntityRolesInformational: §4.6 Informational "entities[].roles".
func ruleEntityRolesInformational(n Node, _ Context) []Finding {
	e, ok := n.Obj.(response.Entity)
	if !ok || len(e.Roles) == 0 {
		return nil
	}
	return []Finding{{
		Code: 3, Class: Informational, Path: n.Path + ".roles",
		Message: "roles: " + strings.Join(e.Roles, ", "),
	}}
}

// ruleVCardFnVersion: §4.6 StandardsError "jCard lacks version/fn", §8
// scenario 5 ("vcardArray lacking fn yields exactly one StandardsError with
// code JCARD_FN_MISSING at path $.vcardArray").
func ruleVCardFnVersion(n Node, _ Context) []Finding {
	e, ok := n.Obj.(response.Entity)
	if !ok || len(e.VCard) == 0 {
		return nil
	}
	var out []Finding
	hasFn, hasVersion := false, false
	for _, p := range e.VCard {
		switch p.Name {
		case "fn":
			hasFn = true
		case "version":
			hasVersion = true
		}
	}
	vcardPath := n.Path + ".vcardArray"
	if n.Path == "$" {
		vcardPath = "$.vcardArray"
	}
	if !hasFn {
		out = append(out, Finding{
			Code: 3003, Class: StandardsError, Path: vcardPath,
			Message: "JCARD_FN_MISSING",
		})
	}
	if !hasVersion {
		out = append(out, Finding{
			Code: 3004, Class: StandardsError, Path: vcardPath,
			Message: "JCARD_VERSION_MISSING",
		})
	}
	for _, p := range e.VCard {
		if p.Name != strings.ToLower(p.Name) {
			out = append(out, Finding{
				Code: 3005, Class: StandardsWarning, Path: vcardPath,
				Message: "jCard property name not lowercased: " + p.Name,
			})
		}
	}
	return out
}

// ruleAutnumRange: §4.6 StandardsError family, mirrored from the IP network
// start/end check; an autnum with end < start is equally malformed.
func ruleAutnumRange(n Node, _ Context) []Finding {
	a, ok := n.Obj.(response.Autnum)
	if !ok || a.StartAutnum == nil || a.EndAutnum == nil {
		return nil
	}
	if *a.EndAutnum < *a.StartAutnum {
		return []Finding{{
			Code: 3006, Class: StandardsError, Path: n.Path,
			Message: "endAutnum is less than startAutnum",
		}}
	}
	return nil
}

// ruleIPNetworkRange: §8 boundary behavior "endAddress < startAddress -> one
// StandardsError".
func ruleIPNetworkRange(n Node, _ Context) []Finding {
	ip, ok := n.Obj.(response.IPNetwork)
	if !ok || ip.StartAddress == "" || ip.EndAddress == "" {
		return nil
	}
	less, comparable := addrLess(ip.EndAddress, ip.StartAddress)
	if comparable && less {
		return []Finding{{
			Code: 3007, Class: StandardsError, Path: n.Path,
			Message: "endAddress is less than startAddress",
		}}
	}
	return nil
}

// ruleCidr0Consistency: §4.6 Cidr0Error "the cidr0_cidrs array does not
// match [startAddress,endAddress]". Full CIDR-set equivalence checking is
// out of scope for this rule (it would duplicate the store's range2cidr
// logic); this rule only flags the one easy-to-detect case: cidr0_cidrs
// absent on an object that has startAddress/endAddress.
func ruleCidr0Consistency(n Node, _ Context) []Finding {
	ip, ok := n.Obj.(response.IPNetwork)
	if !ok {
		return nil
	}
	if ip.StartAddress != "" && ip.EndAddress != "" && ip.Cidr0Cidrs == nil {
		return []Finding{{
			Code: 4001, Class: Cidr0Error, Path: n.Path + ".cidr0_cidrs",
			Message: "cidr0_cidrs absent though cidr0 extension is expected for ip network responses",
		}}
	}
	return nil
}

// ruleErrorCodeMatchesHTTPStatus: §4.6 StandardsError "errorCode not in
// {HTTP status}"; §8 boundary "errorCode absent on error response -> one
// StandardsError". The rule only validates presence and plausible HTTP
// status range (100-599); matching against the actual transport status
// code is the caller's responsibility (the checker has no HTTP context).
func ruleErrorCodeMatchesHTTPStatus(n Node, _ Context) []Finding {
	e, ok := n.Obj.(response.ErrorResponse)
	if !ok {
		return nil
	}
	if e.ErrorCode == 0 {
		return []Finding{{
			Code: 5001, Class: StandardsError, Path: n.Path + ".errorCode",
			Message: "errorCode is absent on an error response",
		}}
	}
	if e.ErrorCode < 100 || e.ErrorCode > 599 {
		return []Finding{{
			Code: 5002, Class: StandardsError, Path: n.Path + ".errorCode",
			Message: "errorCode " + strconv.Itoa(e.ErrorCode) + " is not a plausible HTTP status",
		}}
	}
	return nil
}

// addrLess compares two dotted/colon address strings numerically by
// reusing net/netip; returns comparable=false if either fails to parse.
func addrLess(a, b string) (less bool, comparable bool) {
	pa, erra := parseAddr(a)
	pb, errb := parseAddr(b)
	if erra != nil || errb != nil {
		return false, false
	}
	return pa.Less(pb), true
}
