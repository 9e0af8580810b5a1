package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signpost-dev/signpost/pkg/routetree"
)

func testRoutes() []routetree.Definition {
	return []routetree.Definition{
		{Name: "home", Path: "/"},
		{Name: "users", Path: "/users", Children: []routetree.Definition{
			{Name: "view", Path: "/:id"},
		}},
		{Name: "admin", Path: "/admin"},
		{Name: "login", Path: "/login"},
		{Name: "secure", Path: "/secure"},
	}
}

func startedRouter(t *testing.T, path string) *Router {
	t.Helper()
	r := MustNew(testRoutes(), Options{})
	nav := r.Start(path)
	if _, err := nav.Wait(); err != nil {
		t.Fatalf("Start(%q): %v", path, err)
	}
	return r
}

func waitErr(t *testing.T, nav *Navigation) *RouterError {
	t.Helper()
	_, err := nav.Wait()
	if err == nil {
		t.Fatal("navigation succeeded, want error")
	}
	var rerr *RouterError
	if !errors.As(err, &rerr) {
		t.Fatalf("error is %T, want *RouterError", err)
	}
	return rerr
}

func TestStartCommitsMatchedState(t *testing.T) {
	r := startedRouter(t, "/users/42")

	st := r.GetState()
	if st == nil || st.Name != "users.view" {
		t.Fatalf("state = %+v, want users.view", st)
	}
	if st.Params["id"] != "42" {
		t.Errorf("id = %v", st.Params["id"])
	}
	if st.Meta == nil || st.Meta.Params["id"] != ParamSourceURL {
		t.Errorf("meta = %+v, want id marked as url param", st.Meta)
	}
	if r.Status() != StatusReady {
		t.Errorf("status = %v, want ready", r.Status())
	}
}

func TestStartUnmatchedPath(t *testing.T) {
	r := MustNew(testRoutes(), Options{})
	rerr := waitErr(t, r.Start("/nope"))
	if rerr.Code != CodeRouteNotFound {
		t.Errorf("code = %v, want ROUTE_NOT_FOUND", rerr.Code)
	}
	if r.IsStarted() {
		t.Error("router started despite failed start")
	}
}

func TestStartDefaultRouteFallback(t *testing.T) {
	r := MustNew(testRoutes(), Options{DefaultRoute: "home"})
	st, err := r.Start("/nope").Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "home" {
		t.Errorf("state = %q, want home", st.Name)
	}
}

func TestNavigateBeforeStart(t *testing.T) {
	r := MustNew(testRoutes(), Options{})
	rerr := waitErr(t, r.Navigate("home", nil))
	if rerr.Code != CodeRouterNotStarted {
		t.Errorf("code = %v, want ROUTER_NOT_STARTED", rerr.Code)
	}
}

func TestNavigateCommits(t *testing.T) {
	r := startedRouter(t, "/")

	st, err := r.Navigate("users.view", map[string]any{"id": "7"}).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "users.view" || st.Path != "/users/7" {
		t.Errorf("state = {%q %q}", st.Name, st.Path)
	}
	if got := r.GetState(); !got.SameAs(st) {
		t.Errorf("GetState() = %+v", got)
	}
}

func TestNavigateUnknownRoute(t *testing.T) {
	r := startedRouter(t, "/")
	rerr := waitErr(t, r.Navigate("nope", nil))
	if rerr.Code != CodeRouteNotFound {
		t.Errorf("code = %v, want ROUTE_NOT_FOUND", rerr.Code)
	}
	if got := r.GetState(); got.Name != "home" {
		t.Errorf("state mutated to %q", got.Name)
	}
}

func TestSameStateNavigationIsNoOp(t *testing.T) {
	r := startedRouter(t, "/")

	var guardRuns int
	r.CanActivate("home", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			guardRuns++
			return Allow()
		}
	})

	if _, err := r.Navigate("home", nil).Wait(); err != nil {
		t.Fatal(err)
	}
	if guardRuns != 0 {
		t.Errorf("guard ran %d times on same-state navigation", guardRuns)
	}

	if _, err := r.Navigate("home", nil, WithReload()).Wait(); err != nil {
		t.Fatal(err)
	}
	if guardRuns != 1 {
		t.Errorf("guard ran %d times with reload, want 1", guardRuns)
	}
}

func TestDeactivateGuardShortCircuit(t *testing.T) {
	r := startedRouter(t, "/users/42")

	activationRan := false
	r.CanDeactivate("users", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return Block()
		}
	})
	r.CanActivate("home", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			activationRan = true
			return Allow()
		}
	})

	rerr := waitErr(t, r.Navigate("home", nil))
	if rerr.Code != CodeCannotDeactivate {
		t.Errorf("code = %v, want CANNOT_DEACTIVATE", rerr.Code)
	}
	if rerr.Segment != "users" {
		t.Errorf("segment = %q, want users", rerr.Segment)
	}
	if activationRan {
		t.Error("activation guard ran after deactivation rejection")
	}
	if got := r.GetState(); got.Name != "users.view" {
		t.Errorf("state mutated to %q", got.Name)
	}
}

func TestForceDeactivateBypassesGuard(t *testing.T) {
	r := startedRouter(t, "/admin")

	r.CanDeactivate("admin", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return Block()
		}
	})

	rerr := waitErr(t, r.Navigate("home", nil))
	if rerr.Code != CodeCannotDeactivate {
		t.Fatalf("code = %v, want CANNOT_DEACTIVATE", rerr.Code)
	}

	st, err := r.Navigate("home", nil, WithForceDeactivate()).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "home" || r.GetState().Name != "home" {
		t.Errorf("state = %q, want home", r.GetState().Name)
	}
}

func TestActivationGuardRejection(t *testing.T) {
	r := startedRouter(t, "/")

	cause := errors.New("not allowed")
	r.CanActivate("admin", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return BlockWithError(cause)
		}
	})

	rerr := waitErr(t, r.Navigate("admin", nil))
	if rerr.Code != CodeCannotActivate || rerr.Segment != "admin" {
		t.Errorf("error = %+v", rerr)
	}
	if !errors.Is(rerr, cause) {
		t.Error("cause not wrapped")
	}
}

func TestGuardRedirect(t *testing.T) {
	r := startedRouter(t, "/")

	r.CanActivate("secure", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return RedirectTo("login", nil)
		}
	})

	st, err := r.Navigate("secure", nil).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "login" {
		t.Fatalf("state = %q, want login", st.Name)
	}
	if st.Meta == nil || !st.Meta.Redirect {
		t.Error("redirect not recorded in meta")
	}
	if r.GetState().Name != "login" {
		t.Errorf("committed state = %q", r.GetState().Name)
	}
}

func TestGuardRedirectLoopCapped(t *testing.T) {
	r := startedRouter(t, "/")

	r.CanActivate("secure", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return RedirectTo("secure", nil)
		}
	})

	rerr := waitErr(t, r.Navigate("secure", nil))
	if rerr.Code != CodeTransitionErr {
		t.Errorf("code = %v, want TRANSITION_ERR", rerr.Code)
	}
	if r.GetState().Name != "home" {
		t.Errorf("state mutated to %q", r.GetState().Name)
	}
}

func TestDeferredGuard(t *testing.T) {
	r := startedRouter(t, "/")

	r.CanActivate("admin", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return Defer(func(ctx context.Context) Decision {
				select {
				case <-time.After(10 * time.Millisecond):
					return Allow()
				case <-ctx.Done():
					return BlockWithError(ctx.Err())
				}
			})
		}
	})

	st, err := r.Navigate("admin", nil).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "admin" {
		t.Errorf("state = %q", st.Name)
	}
}

func TestNavigationSupersedes(t *testing.T) {
	r := startedRouter(t, "/")

	// The guard parks until its navigation is cancelled.
	r.CanActivate("admin", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return Defer(func(ctx context.Context) Decision {
				<-ctx.Done()
				return BlockWithError(ctx.Err())
			})
		}
	})

	first := r.Navigate("admin", nil)
	second := r.Navigate("users.view", map[string]any{"id": "1"})

	rerr := waitErr(t, first)
	if rerr.Code != CodeTransitionCancelled {
		t.Errorf("first code = %v, want TRANSITION_CANCELLED", rerr.Code)
	}

	st, err := second.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "users.view" {
		t.Errorf("second state = %q", st.Name)
	}
	if r.GetState().Name != "users.view" {
		t.Errorf("committed state = %q, want the later navigation's target", r.GetState().Name)
	}
}

func TestExplicitCancel(t *testing.T) {
	r := startedRouter(t, "/")

	r.CanActivate("admin", func(*Router) Guard {
		return func(context.Context, *State, *State) Decision {
			return Defer(func(ctx context.Context) Decision {
				<-ctx.Done()
				return BlockWithError(ctx.Err())
			})
		}
	})

	nav := r.Navigate("admin", nil)
	nav.Cancel()

	rerr := waitErr(t, nav)
	if rerr.Code != CodeTransitionCancelled {
		t.Errorf("code = %v, want TRANSITION_CANCELLED", rerr.Code)
	}
	if r.GetState().Name != "home" {
		t.Errorf("state mutated to %q", r.GetState().Name)
	}
}

func TestCancelAfterCommitIsNoOp(t *testing.T) {
	r := startedRouter(t, "/")

	var mu sync.Mutex
	events := 0
	r.Subscribe("", func(Event) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	nav := r.Navigate("admin", nil)
	if _, err := nav.Wait(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	before := events
	mu.Unlock()

	nav.Cancel()
	nav.Cancel()

	mu.Lock()
	after := events
	mu.Unlock()
	if after != before {
		t.Errorf("cancel after commit emitted %d extra events", after-before)
	}
	if r.GetState().Name != "admin" {
		t.Errorf("state = %q", r.GetState().Name)
	}
}

func TestMiddlewareFailure(t *testing.T) {
	r := startedRouter(t, "/")

	r.UseMiddleware(func(*Router) Middleware {
		return MiddlewareFunc(func(ctx context.Context, to, from *State, next func() error) error {
			if to.Name == "admin" {
				return errors.New("middleware says no")
			}
			return next()
		})
	})

	rerr := waitErr(t, r.Navigate("admin", nil))
	if rerr.Code != CodeTransitionErr {
		t.Errorf("code = %v, want TRANSITION_ERR", rerr.Code)
	}
	if r.GetState().Name != "home" {
		t.Errorf("state mutated to %q", r.GetState().Name)
	}

	// Other targets pass through the same chain.
	if _, err := r.Navigate("login", nil).Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	r := startedRouter(t, "/")

	var order []string
	mw := func(name string) MiddlewareFactory {
		return func(*Router) Middleware {
			return MiddlewareFunc(func(ctx context.Context, to, from *State, next func() error) error {
				order = append(order, name)
				return next()
			})
		}
	}
	r.UseMiddleware(mw("first"), mw("second"))

	if _, err := r.Navigate("admin", nil).Wait(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}
}

func TestTransitionEvents(t *testing.T) {
	r := startedRouter(t, "/")

	var mu sync.Mutex
	var names []EventName
	unsub := r.Subscribe("", func(ev Event) {
		mu.Lock()
		names = append(names, ev.Name)
		mu.Unlock()
	})

	if _, err := r.Navigate("admin", nil).Wait(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	got := append([]EventName(nil), names...)
	mu.Unlock()
	if len(got) != 2 || got[0] != EventTransitionStart || got[1] != EventTransitionSuccess {
		t.Errorf("events = %v", got)
	}

	unsub()
	if _, err := r.Navigate("login", nil).Wait(); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	after := len(names)
	mu.Unlock()
	if after != 2 {
		t.Errorf("listener fired after unsubscribe, %d events", after)
	}
}

func TestStopAndDispose(t *testing.T) {
	r := startedRouter(t, "/")

	r.Stop()
	if r.IsStarted() || r.GetState() != nil {
		t.Error("stop left the router running")
	}

	rerr := waitErr(t, r.Navigate("admin", nil))
	if rerr.Code != CodeRouterNotStarted {
		t.Errorf("code after stop = %v", rerr.Code)
	}

	r.Dispose()
	if r.Status() != StatusDisposed {
		t.Errorf("status = %v, want disposed", r.Status())
	}
	rerr = waitErr(t, r.Navigate("admin", nil))
	if rerr.Code != CodeRouterDisposed {
		t.Errorf("code after dispose = %v", rerr.Code)
	}
	if err := r.AddRoutes(routetree.Definition{Name: "x", Path: "/x"}); err == nil {
		t.Error("AddRoutes succeeded on disposed router")
	}
}

func TestDynamicRoutes(t *testing.T) {
	r := startedRouter(t, "/")

	if err := r.AddRoutes(routetree.Definition{Name: "reports", Path: "/reports"}); err != nil {
		t.Fatal(err)
	}
	st, err := r.Navigate("reports", nil).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "reports" {
		t.Errorf("state = %q", st.Name)
	}

	if err := r.RemoveRoute("reports"); err != nil {
		t.Fatal(err)
	}
	rerr := waitErr(t, r.Navigate("reports", nil))
	if rerr.Code != CodeRouteNotFound {
		t.Errorf("code = %v after removal", rerr.Code)
	}
}

func TestAllowNotFound(t *testing.T) {
	r := MustNew(testRoutes(), Options{AllowNotFound: true})
	if _, err := r.Start("/").Wait(); err != nil {
		t.Fatal(err)
	}

	st, err := r.NavigateToPath("/no/such/page").Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != UnknownRouteName || st.Path != "/no/such/page" {
		t.Errorf("state = {%q %q}", st.Name, st.Path)
	}
}

func TestPluginLifecycle(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(name string) {
		mu.Lock()
		calls = append(calls, name)
		mu.Unlock()
	}

	r := MustNew(testRoutes(), Options{})
	r.UsePlugin(func(*Router) Plugin {
		return &recordingPlugin{record: record}
	})

	if _, err := r.Start("/").Wait(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Navigate("admin", nil).Wait(); err != nil {
		t.Fatal(err)
	}
	r.Dispose()

	mu.Lock()
	got := append([]string(nil), calls...)
	mu.Unlock()

	want := []string{"start", "transition-start", "transition-success", "transition-start", "transition-success", "stop", "teardown"}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

type recordingPlugin struct {
	BasePlugin
	record func(string)
}

func (p *recordingPlugin) OnStart(*Router)                    { p.record("start") }
func (p *recordingPlugin) OnStop(*Router)                     { p.record("stop") }
func (p *recordingPlugin) OnTransitionStart(*State, *State)   { p.record("transition-start") }
func (p *recordingPlugin) OnTransitionSuccess(*State, *State) { p.record("transition-success") }
func (p *recordingPlugin) Teardown(*Router)                   { p.record("teardown") }

func TestNavigationThen(t *testing.T) {
	r := startedRouter(t, "/")
	defer r.Dispose()

	done := make(chan string, 1)
	r.Navigate("admin", nil).Then(func(st *State, err error) {
		if err != nil {
			done <- err.Error()
			return
		}
		done <- st.Name
	})

	select {
	case got := <-done:
		if got != "admin" {
			t.Errorf("callback saw %q, want admin", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}

	// Registering after settlement runs immediately.
	nav := r.Navigate("admin", nil)
	if _, err := nav.Wait(); err != nil {
		t.Fatal(err)
	}
	ran := false
	nav.Then(func(st *State, err error) {
		if err != nil {
			t.Errorf("callback err = %v", err)
		}
		ran = true
	})
	if !ran {
		t.Error("late callback did not run synchronously")
	}
}

func TestForwardedRoute(t *testing.T) {
	defs := []routetree.Definition{
		{Name: "home", Path: "/"},
		{Name: "about", Path: "/about"},
		{Name: "old", Path: "/old", ForwardTo: "home"},
	}
	r := MustNew(defs, Options{})
	defer r.Dispose()
	if _, err := r.Start("/about").Wait(); err != nil {
		t.Fatal(err)
	}

	// Navigating to the forwarding route commits its target.
	st, err := r.Navigate("old", nil).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "home" {
		t.Errorf("Navigate(old) committed %q, want home", st.Name)
	}
	if st.Path != "/" {
		t.Errorf("Path = %q, want /", st.Path)
	}

	// A path match on the forwarding route reports the target name while
	// keeping the matched path.
	if _, err := r.Navigate("about", nil).Wait(); err != nil {
		t.Fatal(err)
	}
	st, err = r.NavigateToPath("/old").Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "home" || st.Path != "/old" {
		t.Errorf("NavigateToPath(/old) = {%q %q}, want {home /old}", st.Name, st.Path)
	}
}

func TestForwardingLoop(t *testing.T) {
	defs := []routetree.Definition{
		{Name: "home", Path: "/"},
		{Name: "a", Path: "/a", ForwardTo: "b"},
		{Name: "b", Path: "/b", ForwardTo: "a"},
	}
	r := MustNew(defs, Options{})
	defer r.Dispose()
	if _, err := r.Start("/").Wait(); err != nil {
		t.Fatal(err)
	}

	rerr := waitErr(t, r.Navigate("a", nil))
	if rerr.Code != CodeTransitionErr {
		t.Errorf("code = %v, want TRANSITION_ERR", rerr.Code)
	}
}

func TestDeactivationGuardRedirect(t *testing.T) {
	r := startedRouter(t, "/admin")
	defer r.Dispose()

	r.CanDeactivate("admin", func(*Router) Guard {
		return func(ctx context.Context, to, from *State) Decision {
			if to.Name != "home" {
				return RedirectTo("home", nil)
			}
			return Allow()
		}
	})

	st, err := r.Navigate("login", nil).Wait()
	if err != nil {
		t.Fatal(err)
	}
	if st.Name != "home" {
		t.Errorf("committed %q, want home", st.Name)
	}
	if st.Meta == nil || !st.Meta.Redirect {
		t.Error("committed state not marked as redirected")
	}
}

func TestStatusTracksInflightNavigation(t *testing.T) {
	r := startedRouter(t, "/")
	defer r.Dispose()

	if _, err := r.Navigate("admin", nil).Wait(); err != nil {
		t.Fatal(err)
	}
	if r.Status() != StatusReady {
		t.Fatalf("status = %v after commit, want ready", r.Status())
	}

	// While a guard holds the next navigation open, the router must
	// report transitioning even though the previous run already settled.
	release := make(chan struct{})
	running := make(chan struct{})
	r.CanActivate("login", func(*Router) Guard {
		return func(ctx context.Context, to, from *State) Decision {
			return Defer(func(ctx context.Context) Decision {
				close(running)
				select {
				case <-release:
					return Allow()
				case <-ctx.Done():
					return Block()
				}
			})
		}
	})

	nav := r.Navigate("login", nil)
	<-running
	if r.Status() != StatusTransitioning {
		t.Errorf("status = %v with guard pending, want transitioning", r.Status())
	}
	close(release)
	if _, err := nav.Wait(); err != nil {
		t.Fatal(err)
	}
	if r.Status() != StatusReady {
		t.Errorf("status = %v after settle, want ready", r.Status())
	}
}
