package router

import "reflect"

// ParamSource records where a state parameter was captured from.
type ParamSource string

const (
	ParamSourceURL   ParamSource = "url"
	ParamSourceQuery ParamSource = "query"
)

// Meta carries per-navigation bookkeeping attached to a State.
type Meta struct {
	// ID is the navigation sequence number that produced this state.
	ID uint64

	// Params maps each parameter name to where it was captured from.
	Params map[string]ParamSource

	// Options are the navigation options that produced this state.
	Options NavigateOptions

	// Redirect reports that this state was reached through a
	// guard-issued redirect rather than the original target.
	Redirect bool
}

// State is the result of a match or a committed navigation. States are
// immutable once handed out; the router never mutates a published state,
// it swaps in a new one.
type State struct {
	// Name is the dotted route name, e.g. "users.view".
	Name string

	// Params holds url and query parameter values.
	Params map[string]any

	// Path is the literal URL this state was matched from or built to.
	Path string

	// Meta is nil for states constructed outside a navigation.
	Meta *Meta
}

// Copy returns a deep copy of the state. Params and Meta graphs that
// contain cycles are copied without looping.
func (s *State) Copy() *State {
	if s == nil {
		return nil
	}
	out := &State{
		Name:   s.Name,
		Path:   s.Path,
		Params: deepCopyParams(s.Params),
	}
	if s.Meta != nil {
		meta := *s.Meta
		if s.Meta.Params != nil {
			meta.Params = make(map[string]ParamSource, len(s.Meta.Params))
			for k, v := range s.Meta.Params {
				meta.Params[k] = v
			}
		}
		out.Meta = &meta
	}
	return out
}

// SameAs reports whether two states target the same route with the same
// parameters. Meta is ignored, a redirected arrival at the same place is
// still the same place.
func (s *State) SameAs(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Name == other.Name && reflect.DeepEqual(s.Params, other.Params)
}
