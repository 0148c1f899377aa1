package check

import (
	"strings"

	"github.com/rdaptools/rdap/internal/response"
)

// linkRules are attached at the link scope, per §4.6's node-scope list.
var linkRules = []Rule{ruleLinkValueHref}

// noticeRules are attached at the notice/remark scope.
var noticeRules = []Rule{ruleNoticeDescription}

// eventRules are attached at the event scope, per §4.6 StandardsWarning
// "unknown eventAction value".
var eventRules = []Rule{ruleEventActionKnown, ruleEventDateOrdering}

// statusRules are attached at the status scope, per §4.6 StandardsWarning
// "duplicate status".
var statusRules = []Rule{ruleDuplicateStatus}

// redactionRules are attached at the redaction-directive scope, per §4.6
// "Redaction processing".
var redactionRules = []Rule{ruleRedactionSimplification}

func linksOf(obj response.Object) []response.Link {
	common, ok := commonOf(obj)
	if !ok {
		return nil
	}
	return common.Links
}

// ruleLinkValueHref flags a link missing its href, which RFC 9083 §4.2
// requires (the "value" member is the context URL; "href" is the target).
func ruleLinkValueHref(n Node, _ Context) []Finding {
	var out []Finding
	for i, l := range linksOf(n.Obj) {
		if l.Href == "" {
			out = append(out, Finding{
				Code: 6001, Class: StandardsWarning,
				Path:    n.Path + ".links[" + itoa(i) + "]",
				Message: "link missing href",
			})
		}
	}
	return out
}

func noticesOf(obj response.Object) []response.Notice {
	switch v := obj.(type) {
	case response.Domain:
		return v.Notices
	case response.Nameserver:
		return v.Notices
	case response.Entity:
		return v.Notices
	case response.Autnum:
		return v.Notices
	case response.IPNetwork:
		return v.Notices
	case response.Help:
		return v.Notices
	case response.ErrorResponse:
		return v.Notices
	default:
		return nil
	}
}

// ruleNoticeDescription: §4.6 Specification note "recommended-but-not-
// required absent" — a notice with no description line carries no useful
// information.
func ruleNoticeDescription(n Node, _ Context) []Finding {
	var out []Finding
	for i, notice := range noticesOf(n.Obj) {
		if len(notice.Description) == 0 {
			out = append(out, Finding{
				Code: 6002, Class: SpecificationNote,
				Path:    n.Path + ".notices[" + itoa(i) + "]",
				Message: "notice has no description",
			})
		}
	}
	return out
}

// knownEventActions per RFC 9083 §10.2.2's IANA "RDAP Event Action" registry
// (the core, non-extension set).
var knownEventActions = map[string]bool{
	"registration": true, "reregistration": true, "last changed": true,
	"expiration": true, "deletion": true, "reinstantiation": true,
	"transfer": true, "locked": true, "unlocked": true,
	"last update of rdap database": true, "registrar expiration": true,
	"enum validation expiration": true,
}

func eventsOf(obj response.Object) []response.Event {
	common, ok := commonOf(obj)
	if !ok {
		return nil
	}
	return common.Events
}

func ruleEventActionKnown(n Node, _ Context) []Finding {
	var out []Finding
	for i, ev := range eventsOf(n.Obj) {
		if ev.Action == "" {
			continue
		}
		if !knownEventActions[strings.ToLower(ev.Action)] {
			out = append(out, Finding{
				Code: 6003, Class: StandardsWarning,
				Path:    n.Path + ".events[" + itoa(i) + "]",
				Message: "unknown eventAction value: " + ev.Action,
			})
		}
	}
	return out
}

// ruleEventDateOrdering flags an event with no eventDate, which RFC 9083
// §4.5 requires.
func ruleEventDateOrdering(n Node, _ Context) []Finding {
	var out []Finding
	for i, ev := range eventsOf(n.Obj) {
		if ev.Date == "" {
			out = append(out, Finding{
				Code: 6004, Class: StandardsError,
				Path:    n.Path + ".events[" + itoa(i) + "]",
				Message: "event missing eventDate",
			})
		}
	}
	return out
}

func statusOf(obj response.Object) []string {
	common, ok := commonOf(obj)
	if !ok {
		return nil
	}
	return common.Status
}

func ruleDuplicateStatus(n Node, _ Context) []Finding {
	seen := map[string]bool{}
	var out []Finding
	for _, s := range statusOf(n.Obj) {
		lower := strings.ToLower(s)
		if seen[lower] {
			out = append(out, Finding{
				Code: 6005, Class: StandardsWarning, Path: n.Path + ".status",
				Message: "duplicate status value: " + s,
			})
		}
		seen[lower] = true
	}
	return out
}

func redactedOf(obj response.Object) []response.RedactedDirective {
	d, ok := obj.(response.Domain)
	if !ok {
		return nil
	}
	return d.Redacted
}

// ruleRedactionSimplification implements §4.6 "Simplification rewrites RFC
// 9537 redacted[] directives whose pathLang is jsonpath and whose path
// refers to a single leaf into a SimpleRedaction annotation attached to
// that leaf, if and only if do-not-simplify-rfc9537 is absent". This rule
// does not attach the annotation to the parsed tree (response.Parse has
// already run); it reports the finding that drives rendering, and the
// render layer performs the actual attachment using the same predicate.
func ruleRedactionSimplification(n Node, ctx Context) []Finding {
	directives := redactedOf(n.Obj)
	if len(directives) == 0 {
		return nil
	}
	var out []Finding
	for i, d := range directives {
		if ctx.Redaction.ShowRFC9537 {
			out = append(out, Finding{
				Code: 7001, Class: Informational,
				Path:    n.Path + ".redacted[" + itoa(i) + "]",
				Message: "redaction: " + redactionDescription(d),
			})
		}
		if !ctx.Redaction.DoNotSimplifyRFC9537 && IsSimplifiable(d) {
			out = append(out, Finding{
				Code: 7002, Class: Informational,
				Path:    n.Path + ".redacted[" + itoa(i) + "]",
				Message: "simplifiable to a SimpleRedaction leaf annotation",
			})
		}
	}
	return out
}

func redactionDescription(d response.RedactedDirective) string {
	if name, ok := d.Name["description"]; ok {
		return name
	}
	for _, v := range d.Name {
		return v
	}
	return d.Method
}

// IsSimplifiable reports whether a RedactedDirective qualifies for
// SimpleRedaction simplification: pathLang is jsonpath and the path
// (prePath preferred, postPath otherwise) names a single leaf rather than a
// wildcard or array slice.
func IsSimplifiable(d response.RedactedDirective) bool {
	if d.PathLang != "" && d.PathLang != "jsonpath" {
		return false
	}
	path := d.PrePath
	if path == "" {
		path = d.PostPath
	}
	if path == "" {
		return false
	}
	// a wildcard ("*"), an array slice (":"), a filter ("?") or recursive
	// descent ("..") can select more than one node; a plain index such as
	// "[0]" still names a single leaf.
	return !strings.ContainsAny(path, "*:?") && !strings.Contains(path, "..")
}

// Simplify attaches a SimpleRedaction annotation to directives that qualify
// per IsSimplifiable, mutating a copy of the slice (never the original),
// per §4.6's simplification rule.
func Simplify(directives []response.RedactedDirective, flags RedactionFlags) []response.RedactedDirective {
	if flags.DoNotSimplifyRFC9537 {
		return directives
	}
	out := make([]response.RedactedDirective, len(directives))
	copy(out, directives)
	for i, d := range out {
		if IsSimplifiable(d) {
			path := d.PrePath
			if path == "" {
				path = d.PostPath
			}
			out[i].SimpleRedaction = &response.SimpleRedaction{Path: path, Method: d.Method}
		}
	}
	return out
}
