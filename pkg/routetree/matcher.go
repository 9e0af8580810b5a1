package routetree

import (
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/signpost-dev/signpost/pkg/pathmatch"
	"github.com/signpost-dev/signpost/pkg/qs"
)

// MatchResult is a successful resolution of a runtime path to a route.
type MatchResult struct {
	// Name is the dotted name of the matched route.
	Name string

	// Params are the accumulated parameter values of the whole chain.
	Params map[string]any

	// Segments is the matched node chain, outermost first. For an absolute
	// route the chain starts at the absolute node, not the tree root.
	Segments []*Node
}

// Matcher resolves paths against a compiled tree and builds paths from
// route names. The bound tree is swapped atomically, so a Matcher can be
// shared by concurrent readers while routes are re-registered.
type Matcher struct {
	tree atomic.Pointer[Tree]
}

// NewMatcher returns a matcher bound to the given tree, which may be nil.
func NewMatcher(tree *Tree) *Matcher {
	m := &Matcher{}
	if tree != nil {
		m.tree.Store(tree)
	}
	return m
}

// RegisterTree binds a compiled tree as the matching source, replacing any
// previously bound tree. In-flight Match calls keep the tree they started
// with.
func (m *Matcher) RegisterTree(tree *Tree) {
	m.tree.Store(tree)
}

// Tree returns the currently bound tree, or nil.
func (m *Matcher) Tree() *Tree {
	return m.tree.Load()
}

// Match resolves a path to the deepest route chain consuming it entirely.
// Returns nil when no route matches; a failed match is a data condition,
// not an error.
func (m *Matcher) Match(path string, opts pathmatch.TestOptions) *MatchResult {
	tree := m.tree.Load()
	if tree == nil || path == "" {
		return nil
	}

	pathname, search := splitPathQuery(path)
	chain, params, ok := matchNode(tree.root, pathname, map[string]any{}, opts, true)
	if !ok {
		return nil
	}

	leaf := chain[len(chain)-1]
	params, ok = resolveQueryParams(chain, params, search, opts)
	if !ok {
		return nil
	}
	return &MatchResult{Name: leaf.fullName, Params: params, Segments: chain}
}

// matchNode tries to consume all of remaining with a chain of descendants
// of node. Candidate order: absolute descendants first, then non-absolute
// children narrowed by the static first-segment index, in specificity
// order. Absolute routes match from the path root only, so they are
// candidates solely at the root invocation; recursing past any segment
// drops them. Optional-parameter patterns contribute one extra "segment
// absent" branch each, so backtracking is bounded by the pattern's own
// variant count times the chain depth.
func matchNode(node *Node, remaining string, params map[string]any, opts pathmatch.TestOptions, fromRoot bool) ([]*Node, map[string]any, bool) {
	if remaining == "" && node.parser != nil {
		return nil, params, true
	}

	for _, child := range candidateChildren(node, remaining, fromRoot) {
		for _, pm := range child.parser.PartialMatches(remaining, opts) {
			merged := mergeParams(params, pm.Params)
			subchain, subparams, ok := matchNode(child, remaining[pm.Consumed:], merged, opts, false)
			if ok {
				return append([]*Node{child}, subchain...), subparams, true
			}
		}
	}

	// A dangling slash is tolerated outside strict mode.
	if node.parser != nil && remaining == "/" && !opts.StrictTrailingSlash {
		return nil, params, true
	}
	return nil, nil, false
}

// candidateChildren returns the children worth testing against remaining.
// Absolute descendants are offered only for the root invocation, where
// remaining is the full path. When the next path segment is a known
// literal, the static index narrows the scan to children opening with
// that literal plus the parametrized ones.
func candidateChildren(node *Node, remaining string, fromRoot bool) []*Node {
	out := make([]*Node, 0, len(node.absoluteDescendants)+len(node.nonAbsoluteChildren))
	if fromRoot {
		out = append(out, node.absoluteDescendants...)
	}

	seg := nextPathSegment(remaining)
	if seg == "" {
		return append(out, node.nonAbsoluteChildren...)
	}

	key := strings.ToLower(seg)
	for _, child := range node.nonAbsoluteChildren {
		if child.staticFirst == "" || strings.ToLower(child.staticFirst) == key {
			out = append(out, child)
		}
	}
	return out
}

// mergeParams merges newly captured values over accumulated ones. A name
// captured by two segments with differing values accumulates into an array
// rather than silently overwriting.
func mergeParams(base, add map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(add))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range add {
		old, exists := out[k]
		if !exists || reflect.DeepEqual(old, v) {
			out[k] = v
			continue
		}
		out[k] = append(asArray(old), v)
	}
	return out
}

func asArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// resolveQueryParams claims each chain segment's declared query parameters
// from the search part and applies the query-params mode to any leftovers.
func resolveQueryParams(chain []*Node, params map[string]any, search string, opts pathmatch.TestOptions) (map[string]any, bool) {
	qp := qs.Parse(search, opts.QueryParams)
	for _, node := range chain {
		for _, name := range node.parser.QueryParams() {
			if val, ok := qp[name]; ok {
				params = mergeParams(params, map[string]any{name: val})
				delete(qp, name)
			}
		}
	}
	if len(qp) == 0 {
		return params, true
	}

	mode := opts.QueryParamsMode
	if mode == "" {
		mode = pathmatch.QueryModeDefault
	}
	switch mode {
	case pathmatch.QueryModeStrict:
		return nil, false
	case pathmatch.QueryModeLoose:
		params = mergeParams(params, qp)
	}
	return params, true
}

// BuildPath resolves a dotted route name to its segment chain and
// concatenates each segment's built fragment. An unknown name or a missing
// required parameter is a caller mistake and raises an error.
func (m *Matcher) BuildPath(fullName string, params map[string]any, opts pathmatch.BuildOptions) (string, error) {
	tree := m.tree.Load()
	if tree == nil {
		return "", &UnknownRouteError{Name: fullName}
	}
	node := tree.Get(fullName)
	if node == nil {
		return "", &UnknownRouteError{Name: fullName}
	}

	// Parameter-free chains short-circuit to the precomputed literal,
	// skipping all per-segment encoding.
	if node.hasStaticPath {
		return node.staticFullPath, nil
	}

	chain := node.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].absolute {
			chain = chain[i:]
			break
		}
	}

	segmentOpts := opts
	segmentOpts.IgnoreSearch = true

	path := ""
	var queryNames []string
	for _, seg := range chain {
		fragment, err := seg.parser.Build(params, segmentOpts)
		if err != nil {
			return "", err
		}
		path = joinPaths(path, fragment)
		queryNames = append(queryNames, seg.parser.QueryParams()...)
	}

	if !opts.IgnoreSearch && len(queryNames) > 0 {
		queryParams := make(map[string]any)
		for _, name := range queryNames {
			if val, ok := params[name]; ok {
				queryParams[name] = val
			}
		}
		if built := qs.Build(queryParams, opts.QueryParams); built != "" {
			path += "?" + built
		}
	}
	return path, nil
}

func splitPathQuery(path string) (pathname, search string) {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return path, ""
}
