// Package loggerplugin logs router lifecycle and transition events.
//
// The plugin writes structured records via charmbracelet/log: one debug
// record per transition start, info on success, warn on cancellation and
// error on failure.
package loggerplugin

import (
	"github.com/charmbracelet/log"

	"github.com/signpost-dev/signpost/pkg/router"
)

// Options configures the logger plugin.
type Options struct {
	// Logger is the destination logger. Defaults to log.Default().
	Logger *log.Logger
}

// New returns a plugin factory that logs router activity.
func New(opts Options) router.PluginFactory {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return func(*router.Router) router.Plugin {
		return &plugin{logger: logger}
	}
}

type plugin struct {
	router.BasePlugin
	logger *log.Logger
}

func (p *plugin) OnStart(*router.Router) {
	p.logger.Info("router started")
}

func (p *plugin) OnStop(*router.Router) {
	p.logger.Info("router stopped")
}

func (p *plugin) OnTransitionStart(to, from *router.State) {
	p.logger.Debug("transition started", "to", to.Name, "from", stateName(from))
}

func (p *plugin) OnTransitionSuccess(to, from *router.State) {
	p.logger.Info("transition committed", "to", to.Name, "path", to.Path, "from", stateName(from))
}

func (p *plugin) OnTransitionError(to, from *router.State, err *router.RouterError) {
	p.logger.Error("transition failed", "to", to.Name, "from", stateName(from), "code", string(err.Code), "err", err.Message)
}

func (p *plugin) OnTransitionCancelled(to, from *router.State) {
	p.logger.Warn("transition cancelled", "to", to.Name, "from", stateName(from))
}

func stateName(s *router.State) string {
	if s == nil {
		return ""
	}
	return s.Name
}
