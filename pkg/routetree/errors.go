package routetree

import "fmt"

// InvalidRouteError reports a route definition that cannot be part of a
// tree: an empty or dotted name, a missing path, or a pattern that does not
// compile.
type InvalidRouteError struct {
	// Name is the offending route name, as written in the definition.
	Name string

	// Path is the offending route path pattern.
	Path string

	// Reason describes what is wrong with the definition.
	Reason string

	// Cause is the underlying pattern compilation error, if any.
	Cause error
}

func (e *InvalidRouteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid route %q (path %q): %s: %v", e.Name, e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid route %q (path %q): %s", e.Name, e.Path, e.Reason)
}

func (e *InvalidRouteError) Unwrap() error {
	return e.Cause
}

// DuplicateRouteError reports two sibling definitions sharing a name or a
// literal path under the same parent.
type DuplicateRouteError struct {
	// Name is the duplicated route name, empty for a path collision.
	Name string

	// Path is the duplicated path pattern, empty for a name collision.
	Path string

	// Parent is the dotted name of the parent level, empty at the top level.
	Parent string
}

func (e *DuplicateRouteError) Error() string {
	level := "top level"
	if e.Parent != "" {
		level = fmt.Sprintf("route %q", e.Parent)
	}
	if e.Name != "" {
		return fmt.Sprintf("duplicate route name %q under %s", e.Name, level)
	}
	return fmt.Sprintf("duplicate route path %q under %s", e.Path, level)
}

// UnknownRouteError reports a dotted route name absent from the tree.
type UnknownRouteError struct {
	Name string
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("unknown route %q", e.Name)
}
