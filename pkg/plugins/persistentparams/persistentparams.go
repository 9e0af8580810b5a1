// Package persistentparams carries selected parameter values across
// navigations. Parameters named at construction are captured from every
// committed state and merged into later navigations that do not supply
// them, e.g. a locale or tenant id that should survive route changes.
package persistentparams

import (
	"sync"

	"github.com/signpost-dev/signpost/pkg/router"
)

// Plugin captures and replays persistent parameter values.
type Plugin struct {
	router.BasePlugin

	mu     sync.Mutex
	names  map[string]bool
	values map[string]any
}

// New creates the plugin for the given parameter names. Install it with
// r.UsePlugin(p.Factory()) and route navigations through p.Navigate or
// merge manually with p.Apply.
func New(names ...string) *Plugin {
	p := &Plugin{
		names:  make(map[string]bool, len(names)),
		values: make(map[string]any),
	}
	for _, name := range names {
		p.names[name] = true
	}
	return p
}

// Factory adapts the plugin for Router.UsePlugin.
func (p *Plugin) Factory() router.PluginFactory {
	return func(*router.Router) router.Plugin { return p }
}

// OnTransitionSuccess implements router.Plugin, capturing the tracked
// parameter values from the committed state.
func (p *Plugin) OnTransitionSuccess(to, from *router.State) {
	p.mu.Lock()
	for name := range p.names {
		if val, ok := to.Params[name]; ok {
			p.values[name] = val
		}
	}
	p.mu.Unlock()
}

// Apply merges the captured values into params, without overwriting
// explicitly supplied ones. The input map is not mutated.
func (p *Plugin) Apply(params map[string]any) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]any, len(params)+len(p.values))
	for name, val := range p.values {
		out[name] = val
	}
	for name, val := range params {
		out[name] = val
	}
	return out
}

// Params returns the currently captured values.
func (p *Plugin) Params() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]any, len(p.values))
	for name, val := range p.values {
		out[name] = val
	}
	return out
}

// Navigate forwards to r.Navigate with the captured values applied.
func (p *Plugin) Navigate(r *router.Router, name string, params map[string]any, opts ...router.NavigateOption) *router.Navigation {
	return r.Navigate(name, p.Apply(params), opts...)
}

// BuildPath forwards to r.BuildPath with the captured values applied.
func (p *Plugin) BuildPath(r *router.Router, name string, params map[string]any) (string, error) {
	return r.BuildPath(name, p.Apply(params))
}
