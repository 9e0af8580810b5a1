package router

import "context"

// Middleware observes or wraps an in-flight transition. Returning an
// error fails the transition with TRANSITION_ERR; a middleware that does
// not call next short-circuits the chain.
type Middleware interface {
	Handle(ctx context.Context, to, from *State, next func() error) error
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx context.Context, to, from *State, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, to, from *State, next func() error) error {
	return f(ctx, to, from, next)
}

// MiddlewareFactory builds a Middleware bound to a router.
type MiddlewareFactory func(r *Router) Middleware

// ComposeMiddleware builds a handler chain from middleware and a final handler.
// Middleware is executed in order (first to last), with the handler at the end.
func ComposeMiddleware(ctx context.Context, to, from *State, mw []Middleware, handler func() error) error {
	if len(mw) == 0 {
		return handler()
	}

	// Build chain from end to start
	var chain func() error
	chain = handler

	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func() error {
			return m.Handle(ctx, to, from, next)
		}
	}

	return chain()
}

// Chain creates a middleware that combines multiple middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, to, from *State, next func() error) error {
		return ComposeMiddleware(ctx, to, from, middleware, next)
	})
}

// Skip is a middleware that skips to the next middleware based on a condition.
func Skip(condition func(to, from *State) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, to, from *State, next func() error) error {
		if condition(to, from) {
			return next()
		}
		return mw.Handle(ctx, to, from, next)
	})
}

// Only is a middleware that runs only if a condition is true.
func Only(condition func(to, from *State) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, to, from *State, next func() error) error {
		if !condition(to, from) {
			return next()
		}
		return mw.Handle(ctx, to, from, next)
	})
}
