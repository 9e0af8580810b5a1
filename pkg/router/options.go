package router

import (
	"github.com/signpost-dev/signpost/pkg/pathmatch"
	"github.com/signpost-dev/signpost/pkg/qs"
)

// Options configures a Router. The zero value is usable: tolerant
// trailing slash, case-insensitive matching and the default query mode.
type Options struct {
	// DefaultRoute is the dotted name navigated to when Start is given a
	// path that matches nothing. Empty disables the fallback.
	DefaultRoute string

	// DefaultParams are the parameters used with DefaultRoute.
	DefaultParams map[string]any

	// CaseSensitive enables case-sensitive path matching.
	CaseSensitive bool

	// StrictTrailingSlash rejects a trailing slash not present in the
	// pattern.
	StrictTrailingSlash bool

	// QueryParamsMode controls how undeclared query parameters are
	// treated during matching.
	QueryParamsMode pathmatch.QueryParamsMode

	// QueryParams configures query-string parsing and building.
	QueryParams qs.Options

	// URLParamsEncoding selects the escaping table for url parameter
	// values.
	URLParamsEncoding pathmatch.Encoding

	// AllowNotFound commits an unmatched path as a synthetic
	// UnknownRouteName state instead of failing the navigation.
	AllowNotFound bool

	// AutoCleanUp drops a segment's activation guard when the segment is
	// deactivated.
	AutoCleanUp bool

	// MaxRedirects caps guard-issued redirect chains per navigation.
	// Zero means the default of 10.
	MaxRedirects int
}

func (o Options) maxRedirects() int {
	if o.MaxRedirects <= 0 {
		return 10
	}
	return o.MaxRedirects
}

func (o Options) testOptions() pathmatch.TestOptions {
	return pathmatch.TestOptions{
		CaseSensitive:       o.CaseSensitive,
		StrictTrailingSlash: o.StrictTrailingSlash,
		QueryParamsMode:     o.QueryParamsMode,
		QueryParams:         o.QueryParams,
		URLParamsEncoding:   o.URLParamsEncoding,
	}
}

func (o Options) buildOptions() pathmatch.BuildOptions {
	return pathmatch.BuildOptions{
		QueryParams:       o.QueryParams,
		URLParamsEncoding: o.URLParamsEncoding,
	}
}

// UnknownRouteName is the synthetic state name committed for unmatched
// paths when AllowNotFound is set.
const UnknownRouteName = "@@unknown"

// NavigateOptions configures a single navigation.
type NavigateOptions struct {
	// Replace marks the transition as replacing the current history
	// entry instead of pushing. The core passes it through to listeners.
	Replace bool

	// Reload re-runs guards and middleware even when the target state
	// equals the current one.
	Reload bool

	// Force skips the same-state short-circuit without re-running
	// guards for unchanged segments.
	Force bool

	// ForceDeactivate bypasses deactivation guard rejections entirely.
	ForceDeactivate bool
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithReload re-runs guards even for a navigation to the current state.
func WithReload() NavigateOption {
	return func(o *NavigateOptions) {
		o.Reload = true
	}
}

// WithForce skips the same-state short-circuit.
func WithForce() NavigateOption {
	return func(o *NavigateOptions) {
		o.Force = true
	}
}

// WithForceDeactivate bypasses deactivation guards for this navigation.
func WithForceDeactivate() NavigateOption {
	return func(o *NavigateOptions) {
		o.ForceDeactivate = true
	}
}
