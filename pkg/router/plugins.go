package router

// Plugin observes the router lifecycle. All methods are optional in
// spirit; embed BasePlugin to implement only the hooks you care about.
type Plugin interface {
	OnStart(r *Router)
	OnStop(r *Router)
	OnTransitionStart(to, from *State)
	OnTransitionSuccess(to, from *State)
	OnTransitionError(to, from *State, err *RouterError)
	OnTransitionCancelled(to, from *State)
	Teardown(r *Router)
}

// PluginFactory builds a plugin bound to a router.
type PluginFactory func(r *Router) Plugin

// BasePlugin is a no-op Plugin for embedding.
type BasePlugin struct{}

func (BasePlugin) OnStart(*Router)                              {}
func (BasePlugin) OnStop(*Router)                               {}
func (BasePlugin) OnTransitionStart(*State, *State)             {}
func (BasePlugin) OnTransitionSuccess(*State, *State)           {}
func (BasePlugin) OnTransitionError(*State, *State, *RouterError) {}
func (BasePlugin) OnTransitionCancelled(*State, *State)         {}
func (BasePlugin) Teardown(*Router)                             {}

type pluginEntry struct {
	plugin Plugin
}

// UsePlugin installs plugins. Factories run immediately; plugins are
// notified in installation order.
func (r *Router) UsePlugin(factories ...PluginFactory) *Router {
	for _, f := range factories {
		p := f(r)
		r.mu.Lock()
		r.plugins = append(r.plugins, pluginEntry{plugin: p})
		r.mu.Unlock()
	}
	return r
}

func (r *Router) eachPlugin(fn func(Plugin)) {
	r.mu.Lock()
	plugins := make([]pluginEntry, len(r.plugins))
	copy(plugins, r.plugins)
	r.mu.Unlock()
	for _, entry := range plugins {
		fn(entry.plugin)
	}
}
