package routetree

import (
	"errors"
	"reflect"
	"testing"

	"github.com/signpost-dev/signpost/pkg/pathmatch"
)

func demoRoutes() []Definition {
	return []Definition{
		{Name: "home", Path: "/"},
		{Name: "users", Path: "/users", Children: []Definition{
			{Name: "list", Path: "/list"},
			{Name: "view", Path: "/:id"},
		}},
		{Name: "files", Path: "/files", Children: []Definition{
			{Name: "tree", Path: "/*path"},
		}},
		{Name: "search", Path: "/search?q&page"},
	}
}

func buildTree(t *testing.T, defs []Definition) *Tree {
	t.Helper()
	tree, err := NewBuilder().AddMany(defs).Build(BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tree
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantDup bool
	}{
		{
			name: "duplicate sibling name",
			defs: []Definition{
				{Name: "a", Path: "/a"},
				{Name: "a", Path: "/other"},
			},
			wantDup: true,
		},
		{
			name: "duplicate sibling path",
			defs: []Definition{
				{Name: "a", Path: "/same"},
				{Name: "b", Path: "/same"},
			},
			wantDup: true,
		},
		{
			name: "duplicate nested sibling name",
			defs: []Definition{
				{Name: "p", Path: "/p", Children: []Definition{
					{Name: "c", Path: "/c"},
					{Name: "c", Path: "/d"},
				}},
			},
			wantDup: true,
		},
		{
			name: "empty name",
			defs: []Definition{{Name: "", Path: "/a"}},
		},
		{
			name: "dotted name",
			defs: []Definition{{Name: "a.b", Path: "/a"}},
		},
		{
			name: "empty path",
			defs: []Definition{{Name: "a", Path: ""}},
		},
		{
			name: "uncompilable pattern",
			defs: []Definition{{Name: "a", Path: "/##"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := NewBuilder().AddMany(tt.defs).Build(BuildOptions{})
			if err == nil {
				t.Fatal("Build succeeded, want error")
			}
			if tree != nil {
				t.Error("failed build returned a partial tree")
			}
			var dup *DuplicateRouteError
			if got := errors.As(err, &dup); got != tt.wantDup {
				var inv *InvalidRouteError
				if !tt.wantDup && !errors.As(err, &inv) {
					t.Errorf("unexpected error type: %v", err)
				}
				if tt.wantDup {
					t.Errorf("expected DuplicateRouteError, got %v", err)
				}
			}
		})
	}
}

func TestDuplicateRouteErrorReferencesName(t *testing.T) {
	_, err := NewBuilder().
		Add(Definition{Name: "a", Path: "/a"}).
		Add(Definition{Name: "a", Path: "/b"}).
		Build(BuildOptions{})

	var dup *DuplicateRouteError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateRouteError, got %v", err)
	}
	if dup.Name != "a" {
		t.Errorf("Name = %q, want a", dup.Name)
	}
}

func TestTreeShape(t *testing.T) {
	tree := buildTree(t, demoRoutes())

	view := tree.Get("users.view")
	if view == nil {
		t.Fatal("users.view not indexed")
	}
	if view.FullName() != "users.view" {
		t.Errorf("FullName = %q", view.FullName())
	}
	if view.Parent().Name() != "users" {
		t.Errorf("parent = %q", view.Parent().Name())
	}

	chain := view.Chain()
	if len(chain) != 2 || chain[0].Name() != "users" || chain[1].Name() != "view" {
		t.Errorf("chain = %v", chainNames(chain))
	}

	if got := tree.Get("users").ChildByName("view"); got != view {
		t.Error("ChildByName lookup failed")
	}

	kinds := tree.Get("search").ParamKinds()
	if kinds["q"] != ParamKindQuery || kinds["page"] != ParamKindQuery {
		t.Errorf("search param kinds = %v", kinds)
	}
	if tree.Get("users.view").ParamKinds()["id"] != ParamKindURL {
		t.Error("id should be a url param")
	}
}

func TestChildSortOrder(t *testing.T) {
	// Definition order deliberately puts the general rules first.
	tree := buildTree(t, []Definition{
		{Name: "users", Path: "/users", Children: []Definition{
			{Name: "view", Path: "/:id"},
			{Name: "new", Path: "/new"},
		}},
	})

	children := tree.Get("users").Children()
	if children[0].Name() != "new" || children[1].Name() != "view" {
		t.Errorf("children order = %v, want [new view]", chainNames(children))
	}

	// The static route wins over the parametrized one.
	m := NewMatcher(tree)
	if res := m.Match("/users/new", pathmatch.TestOptions{}); res == nil || res.Name != "users.new" {
		t.Errorf("Match(/users/new) = %+v, want users.new", m.Match("/users/new", pathmatch.TestOptions{}))
	}
	if res := m.Match("/users/42", pathmatch.TestOptions{}); res == nil || res.Name != "users.view" {
		t.Errorf("Match(/users/42) = %+v, want users.view", m.Match("/users/42", pathmatch.TestOptions{}))
	}
}

func TestTreeDeterminism(t *testing.T) {
	a := buildTree(t, demoRoutes())
	b := buildTree(t, demoRoutes())

	ma, mb := NewMatcher(a), NewMatcher(b)
	paths := []string{"/", "/users", "/users/list", "/users/42", "/files/a/b", "/search?q=x", "/nope"}
	for _, p := range paths {
		ra := ma.Match(p, pathmatch.TestOptions{})
		rb := mb.Match(p, pathmatch.TestOptions{})
		if (ra == nil) != (rb == nil) {
			t.Fatalf("determinism: %q matched %v vs %v", p, ra, rb)
		}
		if ra != nil && (ra.Name != rb.Name || !reflect.DeepEqual(ra.Params, rb.Params)) {
			t.Errorf("determinism: %q gave %+v vs %+v", p, ra, rb)
		}
	}
}

func TestMatch(t *testing.T) {
	m := NewMatcher(buildTree(t, demoRoutes()))

	tests := []struct {
		path       string
		wantName   string
		wantParams map[string]any
	}{
		{"/", "home", map[string]any{}},
		{"/users", "users", map[string]any{}},
		{"/users/", "users", map[string]any{}},
		{"/users/list", "users.list", map[string]any{}},
		{"/users/42", "users.view", map[string]any{"id": "42"}},
		{"/files/a/b/c", "files.tree", map[string]any{"path": "a/b/c"}},
		{"/search?q=go", "search", map[string]any{"q": "go"}},
		{"/search", "search", map[string]any{}},
		{"/users/42/extra", "", nil},
		{"/missing", "", nil},
	}

	for _, tt := range tests {
		got := m.Match(tt.path, pathmatch.TestOptions{})
		if tt.wantName == "" {
			if got != nil {
				t.Errorf("Match(%q) = %+v, want nil", tt.path, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("Match(%q) = nil, want %q", tt.path, tt.wantName)
			continue
		}
		if got.Name != tt.wantName || !reflect.DeepEqual(got.Params, tt.wantParams) {
			t.Errorf("Match(%q) = {%q %v}, want {%q %v}",
				tt.path, got.Name, got.Params, tt.wantName, tt.wantParams)
		}
	}
}

func TestMatchAbsoluteRoute(t *testing.T) {
	tree := buildTree(t, []Definition{
		{Name: "admin", Path: "/admin", Children: []Definition{
			{Name: "login", Path: "~/login", Children: []Definition{
				{Name: "reset", Path: "/reset"},
			}},
			{Name: "settings", Path: "/settings"},
		}},
	})
	m := NewMatcher(tree)

	// Children of an absolute node keep matching as continuations of it.
	if got := m.Match("/login/reset", pathmatch.TestOptions{}); got == nil || got.Name != "admin.login.reset" {
		t.Errorf("Match(/login/reset) = %+v, want admin.login.reset", got)
	}

	got := m.Match("/login", pathmatch.TestOptions{})
	if got == nil || got.Name != "admin.login" {
		t.Fatalf("Match(/login) = %+v, want admin.login", got)
	}

	// The pattern is anchored to the path root; it must not also match
	// relative to its parent.
	if got := m.Match("/admin/login", pathmatch.TestOptions{}); got != nil {
		t.Errorf("Match(/admin/login) = %+v, want no match", got)
	}

	if got := m.Match("/admin/settings", pathmatch.TestOptions{}); got == nil || got.Name != "admin.settings" {
		t.Errorf("Match(/admin/settings) = %+v", got)
	}

	built, err := NewMatcher(tree).BuildPath("admin.login", nil, pathmatch.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if built != "/login" {
		t.Errorf("BuildPath(admin.login) = %q, want /login", built)
	}
}

func TestMatchOptionalBacktracking(t *testing.T) {
	// The greedy branch of /docs/:section? swallows "guide", which dead-ends
	// unless the matcher retries with the optional parameter absent.
	tree := buildTree(t, []Definition{
		{Name: "docs", Path: "/docs/:section?", Children: []Definition{
			{Name: "guide", Path: "/guide"},
		}},
	})
	m := NewMatcher(tree)

	got := m.Match("/docs/guide", pathmatch.TestOptions{})
	if got == nil {
		t.Fatal("no match")
	}
	if got.Name != "docs" || got.Params["section"] != "guide" {
		// Greedy interpretation wins for the single-segment path.
		t.Errorf("Match(/docs/guide) = %+v", got)
	}

	got = m.Match("/docs/guide/guide", pathmatch.TestOptions{})
	if got == nil || got.Name != "docs.guide" {
		t.Fatalf("Match(/docs/guide/guide) = %+v, want docs.guide", got)
	}
	if got.Params["section"] != "guide" {
		t.Errorf("section = %v, want guide", got.Params["section"])
	}
}

func TestMatchParamAccumulation(t *testing.T) {
	tree := buildTree(t, []Definition{
		{Name: "org", Path: "/orgs/:id", Children: []Definition{
			{Name: "repo", Path: "/repos/:id"},
		}},
	})
	m := NewMatcher(tree)

	got := m.Match("/orgs/1/repos/2", pathmatch.TestOptions{})
	if got == nil {
		t.Fatal("no match")
	}
	want := []any{"1", "2"}
	if !reflect.DeepEqual(got.Params["id"], want) {
		t.Errorf("id = %#v, want %#v", got.Params["id"], want)
	}
}

func TestMatchQueryModes(t *testing.T) {
	m := NewMatcher(buildTree(t, demoRoutes()))
	path := "/search?q=x&utm=1"

	if got := m.Match(path, pathmatch.TestOptions{}); got == nil || got.Params["utm"] != nil {
		t.Errorf("default mode = %+v, want utm dropped", got)
	}
	if got := m.Match(path, pathmatch.TestOptions{QueryParamsMode: pathmatch.QueryModeStrict}); got != nil {
		t.Errorf("strict mode matched: %+v", got)
	}
	got := m.Match(path, pathmatch.TestOptions{QueryParamsMode: pathmatch.QueryModeLoose})
	if got == nil || got.Params["utm"] != "1" {
		t.Errorf("loose mode = %+v, want utm kept", got)
	}
}

func TestBuildPath(t *testing.T) {
	m := NewMatcher(buildTree(t, demoRoutes()))

	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"home", nil, "/"},
		{"users", nil, "/users"},
		{"users.list", nil, "/users/list"},
		{"users.view", map[string]any{"id": "42"}, "/users/42"},
		{"files.tree", map[string]any{"path": []string{"a", "b", "c"}}, "/files/a/b/c"},
		{"search", map[string]any{"q": "x"}, "/search?q=x"},
		{"search", nil, "/search"},
	}

	for _, tt := range tests {
		got, err := m.BuildPath(tt.name, tt.params, pathmatch.BuildOptions{})
		if err != nil {
			t.Errorf("BuildPath(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BuildPath(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBuildPathErrors(t *testing.T) {
	m := NewMatcher(buildTree(t, demoRoutes()))

	_, err := m.BuildPath("nope", nil, pathmatch.BuildOptions{})
	var unknown *UnknownRouteError
	if !errors.As(err, &unknown) || unknown.Name != "nope" {
		t.Errorf("expected UnknownRouteError for nope, got %v", err)
	}

	_, err = m.BuildPath("users.view", nil, pathmatch.BuildOptions{})
	var missing *pathmatch.MissingParamError
	if !errors.As(err, &missing) || missing.Param != "id" {
		t.Errorf("expected MissingParamError for id, got %v", err)
	}
}

func TestBuildThenMatchIdentity(t *testing.T) {
	m := NewMatcher(buildTree(t, demoRoutes()))

	tests := []struct {
		name   string
		params map[string]any
	}{
		{"users.list", map[string]any{}},
		{"users.view", map[string]any{"id": "42"}},
		{"files.tree", map[string]any{"path": "a/b/c"}},
		{"search", map[string]any{"q": "golang"}},
	}

	for _, tt := range tests {
		built, err := m.BuildPath(tt.name, tt.params, pathmatch.BuildOptions{})
		if err != nil {
			t.Errorf("BuildPath(%q): %v", tt.name, err)
			continue
		}
		got := m.Match(built, pathmatch.TestOptions{})
		if got == nil {
			t.Errorf("Match(BuildPath(%q)) = nil, path was %q", tt.name, built)
			continue
		}
		if got.Name != tt.name || !reflect.DeepEqual(got.Params, tt.params) {
			t.Errorf("identity broken for %q: built %q, matched {%q %v}",
				tt.name, built, got.Name, got.Params)
		}
	}
}

func TestRegisterTreeSwap(t *testing.T) {
	m := NewMatcher(buildTree(t, demoRoutes()))

	if got := m.Match("/reports", pathmatch.TestOptions{}); got != nil {
		t.Fatalf("unexpected match before swap: %+v", got)
	}

	next, err := m.Tree().WithRoutes(BuildOptions{}, Definition{Name: "reports", Path: "/reports"})
	if err != nil {
		t.Fatal(err)
	}
	m.RegisterTree(next)

	if got := m.Match("/reports", pathmatch.TestOptions{}); got == nil || got.Name != "reports" {
		t.Errorf("Match(/reports) after swap = %+v", got)
	}
	// Previously registered routes survive the rebuild.
	if got := m.Match("/users/42", pathmatch.TestOptions{}); got == nil || got.Name != "users.view" {
		t.Errorf("Match(/users/42) after swap = %+v", got)
	}
}

func TestWithoutRoute(t *testing.T) {
	tree := buildTree(t, demoRoutes())
	next, err := tree.WithoutRoute(BuildOptions{}, "users.view")
	if err != nil {
		t.Fatal(err)
	}

	if next.Get("users.view") != nil {
		t.Error("users.view still present after removal")
	}
	if next.Get("users.list") == nil {
		t.Error("users.list removed unexpectedly")
	}
	// Original tree untouched.
	if tree.Get("users.view") == nil {
		t.Error("removal mutated the original tree")
	}
}

func TestStaticPathPrecomputed(t *testing.T) {
	tree := buildTree(t, demoRoutes())

	list := tree.Get("users.list")
	if !list.HasStaticPath() || list.StaticPath() != "/users/list" {
		t.Errorf("static path = %q (%v)", list.StaticPath(), list.HasStaticPath())
	}
	if tree.Get("users.view").HasStaticPath() {
		t.Error("parametrized route reported a static path")
	}
	if tree.Get("search").HasStaticPath() {
		t.Error("query-parametrized route reported a static path")
	}
}

func chainNames(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
