package router

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/signpost-dev/signpost/pkg/routetree"
)

// Status is the router lifecycle state.
type Status int32

const (
	StatusIdle Status = iota
	StatusStarting
	StatusReady
	StatusTransitioning
	// StatusDisposed is terminal: a disposed router rejects everything.
	StatusDisposed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusReady:
		return "ready"
	case StatusTransitioning:
		return "transitioning"
	case StatusDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Router drives navigations over a compiled route tree: it matches and
// builds paths, runs guard and middleware pipelines, and publishes the
// committed state through an atomic reference.
type Router struct {
	opts    Options
	matcher *routetree.Matcher
	bus     *eventBus

	status  atomic.Int32
	current atomic.Pointer[State]
	navSeq  atomic.Uint64

	mu            sync.Mutex
	canActivate   map[string]Guard
	canDeactivate map[string]Guard
	middlewares   []Middleware
	plugins       []pluginEntry
	inflight      *inflightNav
}

type inflightNav struct {
	nav    *Navigation
	cancel context.CancelFunc
}

// New builds a router over the given route definitions.
func New(defs []routetree.Definition, opts Options) (*Router, error) {
	tree, err := routetree.NewBuilder().AddMany(defs).Build(routetree.BuildOptions{})
	if err != nil {
		return nil, err
	}
	r := &Router{
		opts:          opts,
		matcher:       routetree.NewMatcher(tree),
		bus:           newEventBus(),
		canActivate:   make(map[string]Guard),
		canDeactivate: make(map[string]Guard),
	}
	return r, nil
}

// MustNew is New, panicking on an invalid route forest.
func MustNew(defs []routetree.Definition, opts Options) *Router {
	r, err := New(defs, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// Status returns the current lifecycle state.
func (r *Router) Status() Status {
	return Status(r.status.Load())
}

// IsStarted reports whether the router accepts navigations.
func (r *Router) IsStarted() bool {
	s := r.Status()
	return s == StatusReady || s == StatusTransitioning
}

// GetState returns the committed state, nil before the first successful
// navigation.
func (r *Router) GetState() *State {
	return r.current.Load()
}

// Options returns the router's configuration.
func (r *Router) Options() Options {
	return r.opts
}

// Match resolves a path against the route tree without navigating.
func (r *Router) Match(path string) *State {
	res := r.matcher.Match(path, r.opts.testOptions())
	if res == nil {
		return nil
	}
	return r.stateFromMatch(res, path)
}

// BuildPath builds the URL for a named route.
func (r *Router) BuildPath(name string, params map[string]any) (string, error) {
	return r.matcher.BuildPath(name, params, r.opts.buildOptions())
}

// AddRoutes registers additional routes by rebuilding the tree and
// swapping it in atomically. In-flight matches keep the old tree.
func (r *Router) AddRoutes(defs ...routetree.Definition) error {
	if r.Status() == StatusDisposed {
		return newError(CodeRouterDisposed, "router is disposed")
	}
	tree := r.matcher.Tree()
	next, err := tree.WithRoutes(routetree.BuildOptions{}, defs...)
	if err != nil {
		return err
	}
	r.matcher.RegisterTree(next)
	return nil
}

// RemoveRoute unregisters a route and its subtree by full dotted name.
func (r *Router) RemoveRoute(fullName string) error {
	if r.Status() == StatusDisposed {
		return newError(CodeRouterDisposed, "router is disposed")
	}
	tree := r.matcher.Tree()
	next, err := tree.WithoutRoute(routetree.BuildOptions{}, fullName)
	if err != nil {
		return err
	}
	r.matcher.RegisterTree(next)
	return nil
}

// CanActivate installs an activation guard for the named segment,
// replacing any prior one. The factory is invoked immediately.
func (r *Router) CanActivate(name string, factory GuardFactory) *Router {
	guard := factory(r)
	r.mu.Lock()
	r.canActivate[name] = guard
	r.mu.Unlock()
	return r
}

// CanDeactivate installs a deactivation guard for the named segment.
func (r *Router) CanDeactivate(name string, factory GuardFactory) *Router {
	guard := factory(r)
	r.mu.Lock()
	r.canDeactivate[name] = guard
	r.mu.Unlock()
	return r
}

// ClearCanActivate removes the named segment's activation guard.
func (r *Router) ClearCanActivate(name string) {
	r.mu.Lock()
	delete(r.canActivate, name)
	r.mu.Unlock()
}

// ClearCanDeactivate removes the named segment's deactivation guard.
func (r *Router) ClearCanDeactivate(name string) {
	r.mu.Lock()
	delete(r.canDeactivate, name)
	r.mu.Unlock()
}

// UseMiddleware appends transition middleware. Factories run
// immediately; the middleware order is the registration order.
func (r *Router) UseMiddleware(factories ...MiddlewareFactory) *Router {
	r.mu.Lock()
	for _, f := range factories {
		r.middlewares = append(r.middlewares, f(r))
	}
	r.mu.Unlock()
	return r
}

// Subscribe registers a listener for one event name, or all events when
// name is empty. The returned function unsubscribes.
func (r *Router) Subscribe(name EventName, fn Listener) func() {
	return r.bus.subscribe(name, fn)
}

// Start transitions the router to ready and navigates to the given
// path. An unmatched path falls back to the configured default route;
// with neither the start fails with ROUTE_NOT_FOUND.
func (r *Router) Start(path string) *Navigation {
	if !r.status.CompareAndSwap(int32(StatusIdle), int32(StatusStarting)) {
		nav := newNavigation(func() {})
		switch r.Status() {
		case StatusDisposed:
			nav.settle(nil, newError(CodeRouterDisposed, "router is disposed"))
		default:
			nav.settle(nil, newError(CodeTransitionErr, "router already started"))
		}
		return nav
	}

	target := r.Match(path)
	if target == nil && r.opts.DefaultRoute != "" {
		if st, rerr := r.makeState(r.opts.DefaultRoute, r.opts.DefaultParams, NavigateOptions{}, false); rerr == nil {
			target = st
		}
	}
	if target == nil && r.opts.AllowNotFound {
		target = r.notFoundState(path)
	}
	if target == nil {
		r.status.Store(int32(StatusIdle))
		nav := newNavigation(func() {})
		nav.settle(nil, newError(CodeRouteNotFound, "no route matches %q", path).WithPath(path))
		return nav
	}

	r.status.Store(int32(StatusReady))
	r.bus.emit(Event{Name: EventRouterStart})
	r.eachPlugin(func(p Plugin) { p.OnStart(r) })
	return r.navigateToState(target, NavigateOptions{})
}

// Stop halts the router. The committed state is cleared and further
// navigations fail until Start is called again.
func (r *Router) Stop() {
	if !r.IsStarted() {
		return
	}
	r.cancelInflight()
	r.status.Store(int32(StatusIdle))
	r.current.Store(nil)
	r.bus.emit(Event{Name: EventRouterStop})
	r.eachPlugin(func(p Plugin) { p.OnStop(r) })
}

// Dispose stops the router and makes it permanently unusable.
func (r *Router) Dispose() {
	if r.Status() == StatusDisposed {
		return
	}
	r.Stop()
	r.status.Store(int32(StatusDisposed))
	r.eachPlugin(func(p Plugin) { p.Teardown(r) })
	r.mu.Lock()
	r.plugins = nil
	r.canActivate = make(map[string]Guard)
	r.canDeactivate = make(map[string]Guard)
	r.middlewares = nil
	r.mu.Unlock()
}

// Navigate starts a navigation to a named route. It returns immediately
// with a handle; the pipeline runs on its own goroutine. A navigation
// issued while another is in flight cancels the earlier one.
func (r *Router) Navigate(name string, params map[string]any, opts ...NavigateOption) *Navigation {
	options := NavigateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if nav, rerr := r.checkNavigable(); rerr != nil {
		nav.settle(nil, rerr)
		return nav
	}

	target, rerr := r.makeState(name, params, options, false)
	if rerr != nil {
		nav := newNavigation(func() {})
		nav.settle(nil, rerr)
		return nav
	}
	return r.navigateToState(target, options)
}

// NavigateToPath matches a path and navigates to the result.
func (r *Router) NavigateToPath(path string, opts ...NavigateOption) *Navigation {
	options := NavigateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if nav, rerr := r.checkNavigable(); rerr != nil {
		nav.settle(nil, rerr)
		return nav
	}

	target := r.Match(path)
	if target == nil {
		if r.opts.AllowNotFound {
			target = r.notFoundState(path)
		} else {
			nav := newNavigation(func() {})
			nav.settle(nil, newError(CodeRouteNotFound, "no route matches %q", path).WithPath(path))
			return nav
		}
	}
	return r.navigateToState(target, options)
}

func (r *Router) checkNavigable() (*Navigation, *RouterError) {
	switch r.Status() {
	case StatusDisposed:
		return newNavigation(func() {}), newError(CodeRouterDisposed, "router is disposed")
	case StatusIdle, StatusStarting:
		return newNavigation(func() {}), newError(CodeRouterNotStarted, "router is not started")
	}
	return nil, nil
}

// navigateToState runs the pipeline for an already-resolved target.
func (r *Router) navigateToState(target *State, options NavigateOptions) *Navigation {
	from := r.GetState()

	// Same-state navigations are a committed no-op unless forced.
	if !options.Force && !options.Reload && target.SameAs(from) {
		nav := newNavigation(func() {})
		nav.settle(from, nil)
		return nav
	}

	ctx, cancel := context.WithCancel(context.Background())
	nav := newNavigation(cancel)
	run := &inflightNav{nav: nav, cancel: cancel}

	// Status moves under the same lock that publishes the in-flight run,
	// so a stale run finishing late cannot flip a newer run's status back.
	r.mu.Lock()
	if r.inflight != nil {
		r.inflight.cancel()
	}
	r.inflight = run
	r.status.Store(int32(StatusTransitioning))
	r.mu.Unlock()

	r.bus.emit(Event{Name: EventTransitionStart, To: target, From: from})
	r.eachPlugin(func(p Plugin) { p.OnTransitionStart(target, from) })

	go r.finishNavigation(ctx, run, target, from, options)
	return nav
}

func (r *Router) finishNavigation(ctx context.Context, run *inflightNav, target, from *State, options NavigateOptions) {
	committed, rerr := r.runTransition(ctx, target, from, options)

	if rerr == nil {
		// Commit only while this run is still the live one; a superseded
		// result is discarded, never committed.
		r.mu.Lock()
		live := r.inflight == run && ctx.Err() == nil
		if live {
			r.current.Store(committed)
			r.inflight = nil
			r.status.CompareAndSwap(int32(StatusTransitioning), int32(StatusReady))
		}
		r.mu.Unlock()

		if !live {
			rerr = newError(CodeTransitionCancelled, "navigation superseded")
		} else {
			if r.opts.AutoCleanUp {
				r.cleanUpGuards(committed, from)
			}
			// Events fire before the handle settles so a caller blocked
			// on Wait observes them in order.
			r.bus.emit(Event{Name: EventTransitionSuccess, To: committed, From: from})
			r.eachPlugin(func(p Plugin) { p.OnTransitionSuccess(committed, from) })
			run.nav.settle(committed, nil)
			return
		}
	}

	r.mu.Lock()
	if r.inflight == run {
		r.inflight = nil
		r.status.CompareAndSwap(int32(StatusTransitioning), int32(StatusReady))
	}
	r.mu.Unlock()

	if rerr.Code == CodeTransitionCancelled {
		r.bus.emit(Event{Name: EventTransitionCancelled, To: target, From: from, Err: rerr})
		r.eachPlugin(func(p Plugin) { p.OnTransitionCancelled(target, from) })
	} else {
		r.bus.emit(Event{Name: EventTransitionError, To: target, From: from, Err: rerr})
		r.eachPlugin(func(p Plugin) { p.OnTransitionError(target, from, rerr) })
	}
	run.nav.settle(nil, rerr)
}

// cleanUpGuards drops activation guards for segments that were left by
// the committed transition.
func (r *Router) cleanUpGuards(committed, from *State) {
	if from == nil {
		return
	}
	tree := r.matcher.Tree()
	if tree == nil {
		return
	}
	tp, err := getTransitionPath(tree, committed, from, NavigateOptions{})
	if err != nil {
		return
	}
	r.mu.Lock()
	for _, node := range tp.ToDeactivate {
		delete(r.canActivate, node.FullName())
	}
	r.mu.Unlock()
}

func (r *Router) cancelInflight() {
	r.mu.Lock()
	run := r.inflight
	r.inflight = nil
	r.mu.Unlock()
	if run != nil {
		run.cancel()
	}
}

// resolveForward follows ForwardTo aliases to the effective route name.
// A cycle among forwarding routes is a configuration mistake and fails
// the navigation rather than spinning.
func (r *Router) resolveForward(name string) (string, *RouterError) {
	tree := r.matcher.Tree()
	if tree == nil {
		return name, nil
	}
	seen := map[string]bool{}
	for {
		node := tree.Get(name)
		if node == nil || node.ForwardTo() == "" {
			return name, nil
		}
		if seen[name] {
			return "", newError(CodeTransitionErr, "route forwarding loop at %q", name)
		}
		seen[name] = true
		name = node.ForwardTo()
	}
}

// makeState resolves a named route and its parameters to a State.
// Forwarding routes resolve to their target before the path is built.
func (r *Router) makeState(name string, params map[string]any, options NavigateOptions, redirected bool) (*State, *RouterError) {
	name, rerr := r.resolveForward(name)
	if rerr != nil {
		return nil, rerr
	}
	path, err := r.BuildPath(name, params)
	if err != nil {
		return nil, asRouterError(err, CodeRouteNotFound).WithSegment(name)
	}
	st := &State{
		Name:   name,
		Params: deepCopyParams(params),
		Path:   path,
		Meta: &Meta{
			ID:       r.navSeq.Add(1),
			Params:   r.paramSources(name),
			Options:  options,
			Redirect: redirected,
		},
	}
	if st.Params == nil {
		st.Params = map[string]any{}
	}
	return st, nil
}

func (r *Router) notFoundState(path string) *State {
	return &State{
		Name:   UnknownRouteName,
		Params: map[string]any{"path": path},
		Path:   path,
		Meta:   &Meta{ID: r.navSeq.Add(1)},
	}
}

func (r *Router) stateFromMatch(res *routetree.MatchResult, path string) *State {
	// A matched forwarding route commits under its target's name while
	// keeping the matched path. A forwarding cycle surfaces when the
	// navigation builds its state, not here.
	name := res.Name
	if forwarded, rerr := r.resolveForward(name); rerr == nil {
		name = forwarded
	}

	sources := make(map[string]ParamSource)
	for _, seg := range res.Segments {
		for name, kind := range seg.ParamKinds() {
			if kind == routetree.ParamKindQuery {
				sources[name] = ParamSourceQuery
			} else {
				sources[name] = ParamSourceURL
			}
		}
	}
	return &State{
		Name:   name,
		Params: res.Params,
		Path:   path,
		Meta:   &Meta{ID: r.navSeq.Add(1), Params: sources},
	}
}

func (r *Router) paramSources(name string) map[string]ParamSource {
	tree := r.matcher.Tree()
	if tree == nil {
		return nil
	}
	node := tree.Get(name)
	if node == nil {
		return nil
	}
	sources := make(map[string]ParamSource)
	for _, seg := range node.Chain() {
		for pname, kind := range seg.ParamKinds() {
			if kind == routetree.ParamKindQuery {
				sources[pname] = ParamSourceQuery
			} else {
				sources[pname] = ParamSourceURL
			}
		}
	}
	return sources
}

func (r *Router) activateGuard(name string) Guard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canActivate[name]
}

func (r *Router) deactivateGuard(name string) Guard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canDeactivate[name]
}

func (r *Router) middlewareChain() []Middleware {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Middleware, len(r.middlewares))
	copy(out, r.middlewares)
	return out
}
