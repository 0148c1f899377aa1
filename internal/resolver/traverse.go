package resolver

import (
	"context"

	"github.com/rdaptools/rdap/internal/response"
)

// commonLinks extracts the Links slice shared by every response.Object,
// since Object itself only guarantees Class().
func commonLinks(obj response.Object) []response.Link {
	switch v := obj.(type) {
	case response.Domain:
		return v.Links
	case response.Nameserver:
		return v.Links
	case response.Entity:
		return v.Links
	case response.Autnum:
		return v.Links
	case response.IPNetwork:
		return v.Links
	case response.Help:
		return v.Links
	default:
		return nil
	}
}

// TraverseLinks walks links[*] whose rel is in policy.Targets, issuing a
// recursive resolve for each, breadth-first, until max_depth or no matching
// links remain, per §4.4 "Link-target traversal" and §5's breadth-first
// ordering guarantee.
//
// The resolver maintains one visited-URL set for the whole traversal and
// refuses to re-request an exact URL; a detected cycle is recorded as a
// finding on the node that would have re-requested it rather than treated
// as an error, per §4.4's cycle-detection rule and the §8 "Resolver
// termination" bound of at most Σ fanout^i requests.
func (r *Resolver) TraverseLinks(ctx context.Context, root response.Object, rootURL string, policy LinkTargetPolicy) *Node {
	visited := map[string]struct{}{rootURL: {}}
	rootNode := &Node{URL: rootURL, Depth: 0, Object: root}

	type queued struct {
		node *Node
		obj  response.Object
	}
	queue := []queued{{node: rootNode, obj: root}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if policy.MaxDepth > 0 && cur.node.Depth >= policy.MaxDepth {
			continue
		}

		for _, link := range commonLinks(cur.obj) {
			if !relMatches(link.Rel, policy.Targets) || link.Href == "" {
				continue
			}
			if _, seen := visited[link.Href]; seen {
				cur.node.Findings = append(cur.node.Findings,
					"standards-warning: link traversal cycle detected at "+link.Href)
				continue
			}
			visited[link.Href] = struct{}{}

			obj, finalURL, err := r.resolveOne(ctx, link.Href)
			child := &Node{URL: link.Href, Depth: cur.node.Depth + 1}
			if err != nil {
				child.Findings = append(child.Findings, "resolver-error: "+err.Error())
				cur.node.Children = append(cur.node.Children, child)
				continue
			}
			child.Object = obj
			child.URL = finalURL
			cur.node.Children = append(cur.node.Children, child)
			queue = append(queue, queued{node: child, obj: obj})
		}
	}

	return rootNode
}

func relMatches(rel string, targets []string) bool {
	for _, t := range targets {
		if t == rel {
			return true
		}
	}
	return false
}

// Flatten returns every node at or beyond policy.MinDepth, per §4.4
// "min_depth constrains reporting".
func Flatten(root *Node, minDepth int) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Depth >= minDepth {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Preset resolves a named preset to its LinkTargetPolicy, per §4.4:
// "registry, registrar, up, down, top, bottom".
func Preset(name string) (LinkTargetPolicy, bool) {
	switch name {
	case "registry":
		return PresetRegistry, true
	case "registrar":
		return PresetRegistrar, true
	case "up":
		return PresetUp, true
	case "down":
		return PresetDown, true
	case "top":
		return PresetTop, true
	case "bottom":
		return PresetBottom, true
	default:
		return LinkTargetPolicy{}, false
	}
}
