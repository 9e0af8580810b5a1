package router

import (
	"context"
)

// runTransition executes the guard and middleware pipeline for one
// navigation attempt. It returns the state to commit, which differs from
// the requested one when a guard redirected. Cancellation is cooperative:
// the context is consulted before every guard and before the middleware
// chain, and again by the caller before commit.
func (r *Router) runTransition(ctx context.Context, to, from *State, opts NavigateOptions) (*State, *RouterError) {
	redirects := 0
	for {
		if err := cancelled(ctx); err != nil {
			return nil, err
		}

		tp, rerr := r.transitionPath(to, from, opts)
		if rerr != nil {
			return nil, rerr.WithPath(to.Path)
		}

		var redirect *redirectTarget

		if !opts.ForceDeactivate {
			// Child to parent, so the deepest segment gets to veto first.
			// A deactivation guard may redirect just like an activation
			// guard; the code-less redirect error never escapes this loop.
			for _, node := range tp.ToDeactivate {
				rerr := r.runGuard(ctx, r.deactivateGuard(node.FullName()), node.FullName(), CodeCannotDeactivate, to, from)
				if rerr == nil {
					continue
				}
				if rerr.Code == "" && rerr.Redirect != nil {
					redirect = &redirectTarget{name: rerr.Redirect.Name, params: rerr.Redirect.Params}
					break
				}
				return nil, rerr
			}
		}

		if redirect == nil {
			for _, node := range tp.ToActivate {
				rerr := r.runGuard(ctx, r.activateGuard(node.FullName()), node.FullName(), CodeCannotActivate, to, from)
				if rerr == nil {
					continue
				}
				if rerr.Code == "" && rerr.Redirect != nil {
					redirect = &redirectTarget{name: rerr.Redirect.Name, params: rerr.Redirect.Params}
					break
				}
				return nil, rerr
			}
		}

		if redirect == nil {
			break
		}
		redirects++
		if redirects > r.opts.maxRedirects() {
			err := newError(CodeTransitionErr, "redirect chain exceeded %d hops", r.opts.maxRedirects())
			err.Redirect, _ = r.makeState(redirect.name, redirect.params, opts, true)
			return nil, err
		}
		next, rerr := r.makeState(redirect.name, redirect.params, opts, true)
		if rerr != nil {
			return nil, rerr
		}
		to = next
	}

	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	mw := r.middlewareChain()
	if err := ComposeMiddleware(ctx, to, from, mw, func() error { return nil }); err != nil {
		return nil, asRouterError(err, CodeTransitionErr)
	}

	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	return to, nil
}

// runGuard resolves one guard decision and maps a rejection onto the
// given failure code. A redirect decision is smuggled out through the
// Redirect field of a code-less error for the caller to act on.
func (r *Router) runGuard(ctx context.Context, guard Guard, segment string, code Code, to, from *State) *RouterError {
	if guard == nil {
		return nil
	}
	decision := guard(ctx, to, from).resolve(ctx)
	switch decision.kind {
	case decisionAllow:
		return nil
	case decisionRedirect:
		redirect := &State{Name: decision.redirect.name, Params: decision.redirect.params}
		return &RouterError{Redirect: redirect, Segment: segment}
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return newError(CodeTransitionCancelled, "navigation cancelled").WithSegment(segment).Wrap(ctxErr)
		}
		err := newError(code, "guard rejected transition").WithSegment(segment)
		if decision.err != nil {
			err.Message = decision.err.Error()
			err.Cause = decision.err
		}
		return err
	}
}

func (r *Router) transitionPath(to, from *State, opts NavigateOptions) (*TransitionPath, *RouterError) {
	tree := r.matcher.Tree()
	if tree == nil {
		return nil, newError(CodeRouteNotFound, "no routes registered")
	}
	tp, err := getTransitionPath(tree, to, from, opts)
	if err != nil {
		return nil, asRouterError(err, CodeRouteNotFound)
	}
	return tp, nil
}

func cancelled(ctx context.Context) *RouterError {
	if err := ctx.Err(); err != nil {
		return newError(CodeTransitionCancelled, "navigation cancelled").Wrap(err)
	}
	return nil
}
