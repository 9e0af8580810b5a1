// Package signpost provides the public API for the Signpost routing
// engine.
//
// This is the recommended import for most applications:
//
//	import "github.com/signpost-dev/signpost"
//
// Usage:
//
//	r := signpost.MustNew([]signpost.Route{
//	    {Name: "home", Path: "/"},
//	    {Name: "users", Path: "/users", Children: []signpost.Route{
//	        {Name: "view", Path: "/:id"},
//	    }},
//	}, signpost.Options{DefaultRoute: "home"})
//
//	r.CanActivate("users", func(r *signpost.Router) signpost.Guard {
//	    return func(ctx context.Context, to, from *signpost.State) signpost.Decision {
//	        return signpost.Allow()
//	    }
//	})
//
//	if _, err := r.Start("/users/42").Wait(); err != nil {
//	    log.Fatal(err)
//	}
package signpost

import (
	"github.com/signpost-dev/signpost/pkg/router"
	"github.com/signpost-dev/signpost/pkg/routetree"
)

// Route declares one segment of the route tree.
type Route = routetree.Definition

// Router drives guarded transitions over a compiled route tree.
type Router = router.Router

// State is an immutable snapshot of a resolved route.
type State = router.State

// Navigation is the handle for one in-flight transition.
type Navigation = router.Navigation

// Options configures a Router.
type Options = router.Options

// RouterError is the error type produced by routing operations.
type RouterError = router.RouterError

// Code classifies a RouterError.
type Code = router.Code

// Error codes.
const (
	CodeCannotActivate      = router.CodeCannotActivate
	CodeCannotDeactivate    = router.CodeCannotDeactivate
	CodeTransitionErr       = router.CodeTransitionErr
	CodeTransitionCancelled = router.CodeTransitionCancelled
	CodeRouteNotFound       = router.CodeRouteNotFound
	CodeRouterDisposed      = router.CodeRouterDisposed
	CodeRouterNotStarted    = router.CodeRouterNotStarted
)

// Guards and transition hooks.
type (
	Decision          = router.Decision
	Guard             = router.Guard
	GuardFactory      = router.GuardFactory
	Middleware        = router.Middleware
	MiddlewareFunc    = router.MiddlewareFunc
	MiddlewareFactory = router.MiddlewareFactory
	Plugin            = router.Plugin
	PluginFactory     = router.PluginFactory
	BasePlugin        = router.BasePlugin
)

// Guard decision constructors.
var (
	Allow          = router.Allow
	Block          = router.Block
	BlockWithError = router.BlockWithError
	RedirectTo     = router.RedirectTo
	Defer          = router.Defer
)

// Events.
type (
	Event     = router.Event
	EventName = router.EventName
	Listener  = router.Listener
)

// Event names.
const (
	EventTransitionStart     = router.EventTransitionStart
	EventTransitionSuccess   = router.EventTransitionSuccess
	EventTransitionError     = router.EventTransitionError
	EventTransitionCancelled = router.EventTransitionCancelled
	EventRouterStart         = router.EventRouterStart
	EventRouterStop          = router.EventRouterStop
)

// NavigateOption configures a single navigation.
type NavigateOption = router.NavigateOption

// Navigation options.
var (
	WithReplace         = router.WithReplace
	WithReload          = router.WithReload
	WithForce           = router.WithForce
	WithForceDeactivate = router.WithForceDeactivate
)

// New creates a Router from route definitions.
func New(routes []Route, opts Options) (*Router, error) {
	return router.New(routes, opts)
}

// MustNew is like New but panics when the route tree does not compile.
func MustNew(routes []Route, opts Options) *Router {
	return router.MustNew(routes, opts)
}
