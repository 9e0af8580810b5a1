// Package router drives guarded navigations over a compiled route tree.
//
// A Router wraps a routetree.Matcher with a transition pipeline: each
// navigation computes the segment diff between the current and requested
// states, runs deactivation guards child to parent and activation guards
// parent to child, then a middleware chain, and finally commits the new
// state by atomic swap. Failed or cancelled navigations never touch the
// committed state.
//
// Navigations are last-writer-wins: starting a new one cancels the one
// in flight. Cancellation is cooperative through the navigation context.
package router
