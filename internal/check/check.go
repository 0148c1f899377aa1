// Package check implements §4.6 "Check Engine": a composition of pure
// rules, each scoped to a node kind, walked over a parsed response.Object to
// produce a ChecksTree of classified Finding values. Grounded in the
// teacher's (nicsearch) "plain function over typed struct, no framework"
// style — see rdap.go's processEntities walker, generalized here into a
// rule-catalog-driven tree walk instead of a single hand-written function.
package check

import (
	"github.com/rdaptools/rdap/internal/response"
)

// Class discriminates a Finding's severity, per §3 "Check finding (F)".
type Class int

const (
	Informational Class = iota
	SpecificationNote
	StandardsWarning
	StandardsError
	Cidr0Error
	IcannExtensionError
)

func (c Class) String() string {
	switch c {
	case Informational:
		return "informational"
	case SpecificationNote:
		return "specification-note"
	case StandardsWarning:
		return "standards-warning"
	case StandardsError:
		return "standards-error"
	case Cidr0Error:
		return "cidr0-error"
	case IcannExtensionError:
		return "icann-extension-error"
	default:
		return "unknown"
	}
}

// Finding is one classified observation about a node, per §3.
type Finding struct {
	Code        uint16
	Class       Class
	Path        string // JSONPath of the offending node
	Message     string
	ObjectClass response.ObjectClass // empty if not object-class-scoped
}

// Tree mirrors the shape of the checked response: one node per JSONPath
// visited, each holding the findings discovered locally at that node, per
// §3 "checks side-channel".
type Tree struct {
	Path     string
	Findings []Finding
	Children []*Tree
}

// All flattens a Tree into its full finding list, depth-first.
func (t *Tree) All() []Finding {
	if t == nil {
		return nil
	}
	out := append([]Finding(nil), t.Findings...)
	for _, c := range t.Children {
		out = append(out, c.All()...)
	}
	return out
}

// FilterByClass returns only the findings whose Class is in classes.
func FilterByClass(findings []Finding, classes ...Class) []Finding {
	want := map[Class]bool{}
	for _, c := range classes {
		want[c] = true
	}
	var out []Finding
	for _, f := range findings {
		if want[f.Class] {
			out = append(out, f)
		}
	}
	return out
}

// ProfileGroup selects which ICANN/NRO profile rule set applies, per §4.6
// "context also provides ... expected profile group".
type ProfileGroup string

const (
	ProfileGTLD   ProfileGroup = "gtld"
	ProfileNRO    ProfileGroup = "nro"
	ProfileNROASN ProfileGroup = "nro-asn"
)

// RedactionFlags are the four orthogonal redaction-processing flags of
// §4.6 "Redaction processing".
type RedactionFlags struct {
	HighlightSimple      bool
	ShowRFC9537          bool
	DoNotSimplifyRFC9537 bool
	DoRFC9537Redactions  bool
}

// Context carries the inputs a rule may need beyond the node itself, per
// §4.6 "context carries ...".
type Context struct {
	RequiredExtensions  []string
	ProfileGroup        ProfileGroup
	AllowUnregistered   bool
	RegisteredExtensions map[string]struct{} // full IANA extension-id set
	Redaction           RedactionFlags
}

// Rule is a pure function over a node, returning zero or more findings.
// Rules are attached at node scopes (whole-response, object-class, link,
// notice/remark, event, status, vcard, jCard property, redaction
// directive), per §4.6 "Rule composition".
type Rule func(n Node, ctx Context) []Finding

// Node is what a Rule inspects: the object at this point in the tree, the
// JSONPath leading to it, and (for the whole-response scope) the root
// object so rules can cross-reference sibling fields.
type Node struct {
	Path string
	Obj  response.Object
	Root response.Object
}

// Check walks obj and produces its full ChecksTree, applying every rule
// registered for the node kinds encountered. The tree itself is always
// full; class-based filtering (the "Output selection by class is
// filter-only" design note of §4.6) happens at render time via
// FilterByClass, not during the walk.
func Check(obj response.Object, ctx Context) *Tree {
	root := &Tree{Path: "$"}
	walk(obj, obj, "$", ctx, root)
	return root
}

func walk(obj, rootObj response.Object, path string, ctx Context, out *Tree) {
	n := Node{Path: path, Obj: obj, Root: rootObj}

	for _, rule := range commonRules {
		out.Findings = append(out.Findings, rule(n, ctx)...)
	}

	switch v := obj.(type) {
	case response.Domain:
		for _, rule := range domainRules {
			out.Findings = append(out.Findings, rule(n, ctx)...)
		}
		walkEntities(v.Entities, rootObj, path, ctx, out)
		for i, ns := range v.Nameservers {
			child := &Tree{Path: path + ".nameservers[" + itoa(i) + "]"}
			walk(ns, rootObj, child.Path, ctx, child)
			out.Children = append(out.Children, child)
		}
	case response.Nameserver:
		for _, rule := range nameserverRules {
			out.Findings = append(out.Findings, rule(n, ctx)...)
		}
		walkEntities(v.Entities, rootObj, path, ctx, out)
	case response.Entity:
		for _, rule := range entityRules {
			out.Findings = append(out.Findings, rule(n, ctx)...)
		}
		walkEntities(v.Entities, rootObj, path, ctx, out)
	case response.Autnum:
		for _, rule := range autnumRules {
			out.Findings = append(out.Findings, rule(n, ctx)...)
		}
		walkEntities(v.Entities, rootObj, path, ctx, out)
	case response.IPNetwork:
		for _, rule := range ipNetworkRules {
			out.Findings = append(out.Findings, rule(n, ctx)...)
		}
		walkEntities(v.Entities, rootObj, path, ctx, out)
	case response.ErrorResponse:
		for _, rule := range errorRules {
			out.Findings = append(out.Findings, rule(n, ctx)...)
		}
	case response.Help:
		// help carries only Common fields; commonRules already cover it.
	case response.SearchResults:
		for i, d := range v.DomainSearchResults {
			child := &Tree{Path: path + ".domainSearchResults[" + itoa(i) + "]"}
			walk(d, rootObj, child.Path, ctx, child)
			out.Children = append(out.Children, child)
		}
		for i, ns := range v.NameserverSearchResults {
			child := &Tree{Path: path + ".nameserverSearchResults[" + itoa(i) + "]"}
			walk(ns, rootObj, child.Path, ctx, child)
			out.Children = append(out.Children, child)
		}
		for i, e := range v.EntitySearchResults {
			child := &Tree{Path: path + ".entitySearchResults[" + itoa(i) + "]"}
			walk(e, rootObj, child.Path, ctx, child)
			out.Children = append(out.Children, child)
		}
	}

	for _, rule := range linkRules {
		out.Findings = append(out.Findings, rule(n, ctx)...)
	}
	for _, rule := range noticeRules {
		out.Findings = append(out.Findings, rule(n, ctx)...)
	}
	for _, rule := range eventRules {
		out.Findings = append(out.Findings, rule(n, ctx)...)
	}
	for _, rule := range statusRules {
		out.Findings = append(out.Findings, rule(n, ctx)...)
	}
	for _, rule := range redactionRules {
		out.Findings = append(out.Findings, rule(n, ctx)...)
	}
}

func walkEntities(entities []response.Entity, rootObj response.Object, parentPath string, ctx Context, out *Tree) {
	for i, e := range entities {
		child := &Tree{Path: parentPath + ".entities[" + itoa(i) + "]"}
		walk(e, rootObj, child.Path, ctx, child)
		out.Children = append(out.Children, child)
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// ErrorOnChecks computes §4.6's "--error-on-checks" boolean: the
// disjunction of finding classes present in findings intersected with
// filter.
func ErrorOnChecks(findings []Finding, filter ...Class) bool {
	return len(FilterByClass(findings, filter...)) > 0
}
