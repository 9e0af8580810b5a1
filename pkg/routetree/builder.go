package routetree

import (
	"sort"
	"strings"

	"github.com/signpost-dev/signpost/pkg/pathmatch"
)

// BuildOptions configures tree compilation.
type BuildOptions struct {
	// SkipValidation disables the name/path duplicate checks. The caller
	// vouches for the definitions.
	SkipValidation bool

	// SkipSort keeps children in definition order instead of sorting them
	// by match specificity.
	SkipSort bool
}

// Builder accumulates route definitions and compiles them into a Tree.
// Add and AddMany are chainable; Build performs validation and compilation
// in one step and returns no partial tree on failure.
type Builder struct {
	defs []Definition
}

// NewBuilder returns an empty route tree builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends one route definition.
func (b *Builder) Add(def Definition) *Builder {
	b.defs = append(b.defs, def)
	return b
}

// AddMany appends a list of route definitions.
func (b *Builder) AddMany(defs []Definition) *Builder {
	b.defs = append(b.defs, defs...)
	return b
}

// Build validates the accumulated forest and compiles it into an immutable
// Tree. Any validation or compilation failure aborts the whole build.
func (b *Builder) Build(opts BuildOptions) (*Tree, error) {
	if !opts.SkipValidation {
		if err := validate(b.defs); err != nil {
			return nil, err
		}
	}

	root := &Node{childrenByName: map[string]*Node{}}
	tree := &Tree{root: root, index: map[string]*Node{}}
	for _, def := range b.defs {
		tree.defs = append(tree.defs, def.clone())
	}

	if err := compileLevel(tree, root, b.defs); err != nil {
		return nil, err
	}
	if !opts.SkipSort {
		sortTree(root)
	}
	finalizeIndices(root)
	return tree, nil
}

// validationFrame is one level of the definition forest awaiting checks.
type validationFrame struct {
	defs   []Definition
	parent string
}

// validate traverses the whole forest with an explicit work stack, so deep
// route trees cannot exhaust the call stack.
func validate(defs []Definition) error {
	stack := []validationFrame{{defs: defs}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		names := make(map[string]bool, len(frame.defs))
		paths := make(map[string]bool, len(frame.defs))

		for _, def := range frame.defs {
			if def.Name == "" {
				return &InvalidRouteError{Name: def.Name, Path: def.Path,
					Reason: "route name must be a non-empty string"}
			}
			if strings.Contains(def.Name, ".") {
				return &InvalidRouteError{Name: def.Name, Path: def.Path,
					Reason: "route name must be a single dot-free segment"}
			}
			if def.Path == "" {
				return &InvalidRouteError{Name: def.Name, Path: def.Path,
					Reason: "route path must be a non-empty string"}
			}
			if names[def.Name] {
				return &DuplicateRouteError{Name: def.Name, Parent: frame.parent}
			}
			if paths[def.Path] {
				return &DuplicateRouteError{Path: def.Path, Parent: frame.parent}
			}
			names[def.Name] = true
			paths[def.Path] = true

			if len(def.Children) > 0 {
				childParent := def.Name
				if frame.parent != "" {
					childParent = frame.parent + "." + def.Name
				}
				stack = append(stack, validationFrame{defs: def.Children, parent: childParent})
			}
		}
	}
	return nil
}

// compileLevel compiles one definition level into children of parent.
func compileLevel(tree *Tree, parent *Node, defs []Definition) error {
	for _, def := range defs {
		pattern := def.Path
		absolute := strings.HasPrefix(pattern, absoluteMarker)
		if absolute {
			pattern = pattern[len(absoluteMarker):]
		}

		parser, err := pathmatch.Compile(pattern)
		if err != nil {
			return &InvalidRouteError{Name: def.Name, Path: def.Path,
				Reason: "path pattern does not compile", Cause: err}
		}

		fullName := def.Name
		if parent.fullName != "" {
			fullName = parent.fullName + "." + def.Name
		}

		node := &Node{
			name:           def.Name,
			path:           pattern,
			absolute:       absolute,
			forward:        def.ForwardTo,
			extra:          def.Extra,
			parser:         parser,
			parent:         parent,
			fullName:       fullName,
			childrenByName: map[string]*Node{},
		}

		if parent.parser != nil {
			node.parentSegments = parent.Chain()
		}
		node.computeStaticPath()
		node.computeParamKinds()

		parent.children = append(parent.children, node)
		parent.childrenByName[def.Name] = node
		tree.index[fullName] = node

		if err := compileLevel(tree, node, def.Children); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) computeStaticPath() {
	if n.parser.HasParams() {
		return
	}
	if n.absolute {
		n.staticFullPath = n.path
		n.hasStaticPath = true
		return
	}
	parentPath := ""
	if n.parent != nil && n.parent.parser != nil {
		if !n.parent.hasStaticPath {
			return
		}
		parentPath = n.parent.staticFullPath
	}
	n.staticFullPath = joinPaths(parentPath, n.path)
	n.hasStaticPath = true
}

func (n *Node) computeParamKinds() {
	kinds := make(map[string]ParamKind)
	for _, name := range n.parser.URLParams() {
		kinds[name] = ParamKindURL
	}
	for _, name := range n.parser.QueryParams() {
		kinds[name] = ParamKindQuery
	}
	n.paramKinds = kinds
}

// joinPaths concatenates two pattern fragments, collapsing the duplicate
// slash a "/" parent would otherwise produce.
func joinPaths(parent, child string) string {
	if parent == "" {
		return child
	}
	if strings.HasSuffix(parent, "/") && strings.HasPrefix(child, "/") {
		return parent + child[1:]
	}
	return parent + child
}

// sortTree orders every node's children so more specific patterns are tried
// first: static segments before constrained parameters before plain
// parameters, splat catch-alls last.
func sortTree(root *Node) {
	var walk func(n *Node)
	walk = func(n *Node) {
		sort.SliceStable(n.children, func(i, j int) bool {
			return specificity(n.children[i]) > specificity(n.children[j])
		})
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(root)
}

func specificity(n *Node) int {
	score := 0
	for _, tok := range n.parser.Tokens() {
		switch tok.Kind {
		case pathmatch.KindDelimiter:
			if tok.Match == "/" {
				score += 100
			}
		case pathmatch.KindStaticFragment:
			score += 50
		case pathmatch.KindURLParameter, pathmatch.KindMatrixParameter:
			if tok.Constraint != nil {
				score += 20
			} else {
				score += 10
			}
			if tok.Optional {
				score -= 5
			}
		case pathmatch.KindSplatParameter:
			// Splat is greedy and must be tried after every sibling.
			return 0
		}
	}
	return score
}

// finalizeIndices fills the per-node candidate indices. Runs after sorting
// so index slices preserve match order.
func finalizeIndices(root *Node) {
	var walk func(n *Node) []*Node
	walk = func(n *Node) []*Node {
		var absolutes []*Node
		n.staticChildrenByFirstSegment = map[string][]*Node{}

		for _, child := range n.children {
			if child.absolute {
				absolutes = append(absolutes, child)
			} else {
				n.nonAbsoluteChildren = append(n.nonAbsoluteChildren, child)
				child.staticFirst = firstStaticSegment(child.path)
				if child.staticFirst != "" {
					key := strings.ToLower(child.staticFirst)
					n.staticChildrenByFirstSegment[key] = append(n.staticChildrenByFirstSegment[key], child)
				}
			}
			absolutes = append(absolutes, walk(child)...)
		}
		n.absoluteDescendants = absolutes
		return absolutes
	}
	walk(root)
}

// Tree is a compiled, immutable route tree.
type Tree struct {
	root  *Node
	index map[string]*Node
	defs  []Definition
}

// Root returns the synthetic root node.
func (t *Tree) Root() *Node { return t.root }

// Get returns the node with the given dotted name, or nil.
func (t *Tree) Get(fullName string) *Node { return t.index[fullName] }

// Definitions returns a deep copy of the definitions the tree was built
// from, suitable for rebuilding a modified tree.
func (t *Tree) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	for i, def := range t.defs {
		out[i] = def.clone()
	}
	return out
}

// WithRoutes returns a new tree with the given definitions appended at the
// top level. The receiver is left untouched.
func (t *Tree) WithRoutes(opts BuildOptions, defs ...Definition) (*Tree, error) {
	return NewBuilder().AddMany(t.Definitions()).AddMany(defs).Build(opts)
}

// WithoutRoute returns a new tree with the named route (and its subtree)
// removed. Removing an unknown name is not an error; the rebuilt tree is
// simply identical.
func (t *Tree) WithoutRoute(opts BuildOptions, fullName string) (*Tree, error) {
	defs := removeDefinition(t.Definitions(), strings.Split(fullName, "."))
	return NewBuilder().AddMany(defs).Build(opts)
}

func removeDefinition(defs []Definition, nameParts []string) []Definition {
	if len(nameParts) == 0 {
		return defs
	}
	out := defs[:0]
	for _, def := range defs {
		if def.Name == nameParts[0] {
			if len(nameParts) == 1 {
				continue
			}
			def.Children = removeDefinition(def.Children, nameParts[1:])
		}
		out = append(out, def)
	}
	return out
}
