package router

import "context"

// decisionKind discriminates the Decision variant.
type decisionKind int

const (
	decisionAllow decisionKind = iota
	decisionBlock
	decisionRedirect
	decisionDefer
)

// Decision is the tagged result of a guard. Guards return exactly one of
// Allow, Block, BlockWithError, RedirectTo or Defer; the pipeline
// branches on the tag, never on the shape of an untyped value.
type Decision struct {
	kind     decisionKind
	err      error
	redirect *redirectTarget
	deferred func(ctx context.Context) Decision
}

type redirectTarget struct {
	name   string
	params map[string]any
}

// Allow lets the transition proceed.
func Allow() Decision {
	return Decision{kind: decisionAllow}
}

// Block rejects the transition. The pipeline attributes the rejection to
// the guard's segment with the appropriate cannot-activate or
// cannot-deactivate code.
func Block() Decision {
	return Decision{kind: decisionBlock}
}

// BlockWithError rejects the transition with an underlying cause
// attached to the resulting RouterError.
func BlockWithError(err error) Decision {
	return Decision{kind: decisionBlock, err: err}
}

// RedirectTo aborts the current target and restarts the transition
// toward the named route. Redirect chains are capped per navigation.
func RedirectTo(name string, params map[string]any) Decision {
	return Decision{kind: decisionRedirect, redirect: &redirectTarget{name: name, params: params}}
}

// Defer returns a decision computed later, typically after asynchronous
// work. The pipeline invokes fn with the navigation's context; fn should
// honor cancellation via ctx.Done.
func Defer(fn func(ctx context.Context) Decision) Decision {
	return Decision{kind: decisionDefer, deferred: fn}
}

// Guard decides whether a segment may be activated or deactivated for a
// transition from one state to another.
type Guard func(ctx context.Context, to, from *State) Decision

// GuardFactory builds a Guard bound to a router, letting guards reach
// router-level collaborators at registration time.
type GuardFactory func(r *Router) Guard

// resolve reduces a Decision to its settled form, running deferred
// decisions until a terminal tag is reached. Cancellation between steps
// surfaces as a block carrying the context error.
func (d Decision) resolve(ctx context.Context) Decision {
	for d.kind == decisionDefer {
		if err := ctx.Err(); err != nil {
			return BlockWithError(err)
		}
		d = d.deferred(ctx)
	}
	return d
}
