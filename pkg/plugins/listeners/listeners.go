// Package listeners dispatches committed transitions to targeted
// listeners: all transitions, a specific route, or the tree node whose
// subtree changed.
package listeners

import (
	"strings"
	"sync"

	"github.com/signpost-dev/signpost/pkg/router"
)

// Listener receives the committed and previous states of a transition.
type Listener func(to, from *router.State)

// Plugin routes transition notifications to registered listeners. Zero
// value is not usable; create with New and install via UsePlugin.
type Plugin struct {
	router.BasePlugin

	mu     sync.Mutex
	nextID int
	subs   []entry
}

type entry struct {
	id   int
	kind subKind
	name string
	fn   Listener
}

type subKind int

const (
	subAll subKind = iota
	subRoute
	subNode
)

// New creates the listeners plugin. Register it with
// r.UsePlugin(p.Factory()).
func New() *Plugin {
	return &Plugin{}
}

// Factory adapts the plugin for Router.UsePlugin.
func (p *Plugin) Factory() router.PluginFactory {
	return func(*router.Router) router.Plugin { return p }
}

// AddListener registers fn for every committed transition. The returned
// function unsubscribes.
func (p *Plugin) AddListener(fn Listener) func() {
	return p.add(subAll, "", fn)
}

// AddRouteListener registers fn for transitions that commit the named
// route exactly.
func (p *Plugin) AddRouteListener(name string, fn Listener) func() {
	return p.add(subRoute, name, fn)
}

// AddNodeListener registers fn for transitions whose change pivots at
// the named segment: the segment is the deepest one shared by the two
// states, so everything below it was re-entered. The root node is the
// empty name.
func (p *Plugin) AddNodeListener(name string, fn Listener) func() {
	return p.add(subNode, name, fn)
}

func (p *Plugin) add(kind subKind, name string, fn Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs = append(p.subs, entry{id: id, kind: kind, name: name, fn: fn})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		for i, e := range p.subs {
			if e.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	}
}

// OnTransitionSuccess implements router.Plugin.
func (p *Plugin) OnTransitionSuccess(to, from *router.State) {
	pivot := commonAncestor(to, from)

	p.mu.Lock()
	matched := make([]Listener, 0, len(p.subs))
	for _, e := range p.subs {
		switch e.kind {
		case subAll:
			matched = append(matched, e.fn)
		case subRoute:
			if to.Name == e.name {
				matched = append(matched, e.fn)
			}
		case subNode:
			if pivot == e.name {
				matched = append(matched, e.fn)
			}
		}
	}
	p.mu.Unlock()

	for _, fn := range matched {
		fn(to, from)
	}
}

// commonAncestor returns the longest shared dotted prefix of the two
// state names, empty for none.
func commonAncestor(to, from *router.State) string {
	if from == nil {
		return ""
	}
	a := strings.Split(to.Name, ".")
	b := strings.Split(from.Name, ".")
	shared := 0
	for shared < len(a) && shared < len(b) && a[shared] == b[shared] {
		shared++
	}
	return strings.Join(a[:shared], ".")
}
