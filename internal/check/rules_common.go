package check

import (
	"strings"

	"github.com/rdaptools/rdap/internal/response"
)

// commonRules run against every node regardless of object class, per §4.6
// "whole-response" scope.
var commonRules = []Rule{
	ruleObjectClassNamePresent,
	ruleConformancePresent,
	ruleUnregisteredExtensions,
	rulePort43Informational,
	ruleLangInformational,
	ruleSelfLinkPresent,
}

func commonOf(obj response.Object) (response.Common, bool) {
	switch v := obj.(type) {
	case response.Domain:
		return v.Common, true
	case response.Nameserver:
		return v.Common, true
	case response.Entity:
		return v.Common, true
	case response.Autnum:
		return v.Common, true
	case response.IPNetwork:
		return v.Common, true
	case response.Help:
		return v.Common, true
	case response.ErrorResponse:
		return v.Common, true
	default:
		return response.Common{}, false
	}
}

// ruleObjectClassNamePresent: §4.6 StandardsError "missing objectClassName".
// SearchResults/ErrorResponse are exempt: errors carry errorCode instead
// (RFC 9083 §6), and search results have no objectClassName of their own.
func ruleObjectClassNamePresent(n Node, _ Context) []Finding {
	switch n.Obj.(type) {
	case response.SearchResults, response.ErrorResponse:
		return nil
	}
	common, ok := commonOf(n.Obj)
	if !ok {
		return nil
	}
	if common.ObjectClassName == "" {
		return []Finding{{
			Code: 1001, Class: StandardsError, Path: n.Path,
			Message: "objectClassName is required but missing",
		}}
	}
	return nil
}

// ruleConformancePresent: §8 boundary behavior "empty rdapConformance -> one
// StandardsError". Only meaningful at the top-level response, where
// rdapConformance is supposed to be advertised (RFC 9083 §4.1); nested
// objects (entities, nameservers embedded in a domain) don't carry their
// own.
func ruleConformancePresent(n Node, _ Context) []Finding {
	if n.Path != "$" {
		return nil
	}
	common, ok := commonOf(n.Obj)
	if !ok {
		return nil
	}
	if len(common.Conformance) == 0 {
		return []Finding{{
			Code: 1002, Class: StandardsError, Path: n.Path,
			Message: "rdapConformance is empty or absent at the response root",
		}}
	}
	return nil
}

// ruleUnregisteredExtensions flags rdapConformance ids not in the IANA
// extension-id set, unless ctx.AllowUnregistered, per §4.6 context
// "allowance of unregistered extensions" and "the full set of IANA
// extension identifiers".
func ruleUnregisteredExtensions(n Node, ctx Context) []Finding {
	if n.Path != "$" || ctx.AllowUnregistered || ctx.RegisteredExtensions == nil {
		return nil
	}
	common, ok := commonOf(n.Obj)
	if !ok {
		return nil
	}
	var out []Finding
	for _, ext := range common.Conformance {
		if _, known := ctx.RegisteredExtensions[ext]; !known {
			out = append(out, Finding{
				Code: 1003, Class: StandardsWarning, Path: n.Path,
				Message: "unregistered rdapConformance extension id: " + ext,
			})
		}
	}
	if len(ctx.RequiredExtensions) > 0 {
		have := map[string]struct{}{}
		for _, e := range common.Conformance {
			have[e] = struct{}{}
		}
		for _, req := range ctx.RequiredExtensions {
			if _, ok := have[req]; !ok {
				out = append(out, Finding{
					Code: 1004, Class: StandardsWarning, Path: n.Path,
					Message: "required rdapConformance extension id absent: " + req,
				})
			}
		}
	}
	return out
}

// rulePort43Informational: §4.6 Informational "presence of useful optional
// fields (port43, ...)".
func rulePort43Informational(n Node, _ Context) []Finding {
	common, ok := commonOf(n.Obj)
	if !ok || common.Port43 == "" {
		return nil
	}
	return []Finding{{
		Code: 1, Class: Informational, Path: n.Path,
		Message: "port43 present: " + common.Port43,
	}}
}

func ruleLangInformational(n Node, _ Context) []Finding {
	common, ok := commonOf(n.Obj)
	if !ok || common.Lang == "" {
		return nil
	}
	return []Finding{{
		Code: 2, Class: Informational, Path: n.Path,
		Message: "lang present: " + common.Lang,
	}}
}

// ruleSelfLinkPresent: §4.6 SpecificationNote "self link missing at object
// root".
func ruleSelfLinkPresent(n Node, _ Context) []Finding {
	if n.Path != "$" {
		return nil
	}
	common, ok := commonOf(n.Obj)
	if !ok {
		return nil
	}
	for _, l := range common.Links {
		if strings.EqualFold(l.Rel, "self") {
			return nil
		}
	}
	return []Finding{{
		Code: 2001, Class: SpecificationNote, Path: n.Path,
		Message: "no self link at object root",
	}}
}
