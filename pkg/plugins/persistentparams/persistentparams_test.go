package persistentparams

import (
	"testing"

	"github.com/signpost-dev/signpost/pkg/router"
	"github.com/signpost-dev/signpost/pkg/routetree"
)

func newRouter(t *testing.T) *router.Router {
	t.Helper()
	r := router.MustNew([]routetree.Definition{
		{Name: "home", Path: "/"},
		{Name: "docs", Path: "/:lang/docs", Children: []routetree.Definition{
			{Name: "page", Path: "/:slug"},
		}},
	}, router.Options{})
	if _, err := r.Start("/").Wait(); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCapturesAndReplays(t *testing.T) {
	r := newRouter(t)
	p := New("lang")
	r.UsePlugin(p.Factory())

	if _, err := r.Navigate("docs", map[string]any{"lang": "en"}).Wait(); err != nil {
		t.Fatal(err)
	}
	if got := p.Params()["lang"]; got != "en" {
		t.Fatalf("captured lang = %v", got)
	}

	// The follow-up navigation omits lang; the captured value fills it.
	st, err := p.Navigate(r, "docs.page", map[string]any{"slug": "intro"}).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Path != "/en/docs/intro" {
		t.Errorf("path = %q, want /en/docs/intro", st.Path)
	}
}

func TestExplicitValueWins(t *testing.T) {
	r := newRouter(t)
	p := New("lang")
	r.UsePlugin(p.Factory())

	if _, err := r.Navigate("docs", map[string]any{"lang": "en"}).Wait(); err != nil {
		t.Fatal(err)
	}

	st, err := p.Navigate(r, "docs", map[string]any{"lang": "de"}).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Params["lang"] != "de" {
		t.Errorf("lang = %v, want de", st.Params["lang"])
	}
	// The override becomes the new captured value.
	if got := p.Params()["lang"]; got != "de" {
		t.Errorf("captured lang = %v, want de", got)
	}
}

func TestBuildPathAppliesValues(t *testing.T) {
	r := newRouter(t)
	p := New("lang")
	r.UsePlugin(p.Factory())

	if _, err := r.Navigate("docs", map[string]any{"lang": "fr"}).Wait(); err != nil {
		t.Fatal(err)
	}

	path, err := p.BuildPath(r, "docs.page", map[string]any{"slug": "api"})
	if err != nil {
		t.Fatal(err)
	}
	if path != "/fr/docs/api" {
		t.Errorf("path = %q", path)
	}

	// Untracked params never leak in.
	if _, err := r.BuildPath("docs.page", map[string]any{"slug": "api"}); err == nil {
		t.Error("BuildPath without lang succeeded, missing-param check lost")
	}
}
