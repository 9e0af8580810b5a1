// Package routetree compiles a forest of named route definitions into an
// immutable tree with precomputed matching indices, and matches runtime
// paths against it.
//
// A tree is built once by a Builder and never mutated afterwards; dynamic
// route changes are expressed as "rebuild from definitions, then swap the
// tree reference" (see Matcher.RegisterTree), so concurrent readers always
// observe a consistent tree.
package routetree

import (
	"strings"

	"github.com/signpost-dev/signpost/pkg/pathmatch"
)

// absoluteMarker prefixes a path pattern that matches from the document
// root regardless of its nesting in the tree.
const absoluteMarker = "~"

// ParamKind records whether a parameter is captured from the URL portion or
// the query string of a path.
type ParamKind string

const (
	ParamKindURL   ParamKind = "url"
	ParamKindQuery ParamKind = "query"
)

// Definition is the input shape accepted by the Builder. Custom fields are
// carried verbatim in Extra and surface unchanged on the compiled node.
type Definition struct {
	// Name is a single dot-free route segment name.
	Name string

	// Path is the segment's path pattern. A leading "~" marks the route
	// absolute.
	Path string

	// ForwardTo aliases this route to another dotted route name.
	ForwardTo string

	// Children are nested route definitions.
	Children []Definition

	// Extra is opaque pass-through data preserved on the compiled node.
	Extra map[string]any
}

func (d Definition) clone() Definition {
	out := d
	out.Children = make([]Definition, len(d.Children))
	for i, c := range d.Children {
		out.Children[i] = c.clone()
	}
	if d.Extra != nil {
		out.Extra = make(map[string]any, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Node is one compiled segment of the route tree. Nodes are immutable after
// Build; every accessor returning a slice or map returns the precomputed
// value and must not be modified by the caller.
type Node struct {
	name     string
	path     string
	absolute bool
	forward  string
	extra    map[string]any

	// parser is nil only for the synthetic root.
	parser *pathmatch.Path

	parent   *Node
	children []*Node

	fullName       string
	parentSegments []*Node

	childrenByName      map[string]*Node
	nonAbsoluteChildren []*Node
	absoluteDescendants []*Node

	// staticFullPath is the precomputed literal path for this node when no
	// segment in its chain declares a parameter; see HasStaticPath.
	staticFullPath string
	hasStaticPath  bool

	paramKinds map[string]ParamKind

	// staticChildrenByFirstSegment indexes non-absolute children whose
	// pattern opens with a literal segment, keyed by that segment folded to
	// lower case.
	staticChildrenByFirstSegment map[string][]*Node

	// staticFirst is the pattern's opening literal segment, "" when the
	// pattern opens with a parameter or delimiter-less token.
	staticFirst string
}

// Name returns the node's own (undotted) segment name.
func (n *Node) Name() string { return n.name }

// Path returns the node's pattern string, absolute marker excluded.
func (n *Node) Path() string { return n.path }

// FullName returns the dotted name from the tree root to this node.
func (n *Node) FullName() string { return n.fullName }

// Absolute reports whether the node matches from the document root.
func (n *Node) Absolute() bool { return n.absolute }

// ForwardTo returns the dotted name this route forwards to, or "".
func (n *Node) ForwardTo() string { return n.forward }

// Extra returns the definition's opaque pass-through data.
func (n *Node) Extra() map[string]any { return n.extra }

// Parser returns the compiled pattern, nil for the synthetic root.
func (n *Node) Parser() *pathmatch.Path { return n.parser }

// Parent returns the parent node, nil for the synthetic root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in match order.
func (n *Node) Children() []*Node { return n.children }

// ChildByName returns the direct child with the given segment name.
func (n *Node) ChildByName(name string) *Node { return n.childrenByName[name] }

// ParentSegments returns the chain of ancestors from the first non-root
// segment down to the parent, excluding this node.
func (n *Node) ParentSegments() []*Node { return n.parentSegments }

// Chain returns ParentSegments plus the node itself.
func (n *Node) Chain() []*Node {
	chain := make([]*Node, 0, len(n.parentSegments)+1)
	chain = append(chain, n.parentSegments...)
	return append(chain, n)
}

// HasStaticPath reports whether the node's whole chain is parameter-free;
// StaticPath then returns the precomputed literal path.
func (n *Node) HasStaticPath() bool { return n.hasStaticPath }

// StaticPath returns the precomputed literal path, valid only when
// HasStaticPath reports true.
func (n *Node) StaticPath() string { return n.staticFullPath }

// ParamKinds maps each parameter declared by this segment to its position
// (url or query).
func (n *Node) ParamKinds() map[string]ParamKind { return n.paramKinds }

// firstStaticSegment returns the opening literal segment of a pattern, or
// "" when the pattern opens with anything else. "/users/:id" yields "users".
func firstStaticSegment(pattern string) string {
	rest, ok := strings.CutPrefix(pattern, "/")
	if !ok {
		return ""
	}
	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' || rest[i] == ';' || rest[i] == '?' {
			end = i
			break
		}
	}
	seg := rest[:end]
	if seg == "" || strings.ContainsAny(seg, ":*") {
		return ""
	}
	return seg
}

// nextPathSegment extracts the next literal segment of a runtime path, used
// to narrow candidate children via the static index.
func nextPathSegment(remaining string) string {
	rest, ok := strings.CutPrefix(remaining, "/")
	if !ok {
		return ""
	}
	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' || rest[i] == ';' || rest[i] == '?' {
			end = i
			break
		}
	}
	return rest[:end]
}
