package router

import "fmt"

// Code identifies the failure kind of a RouterError. The set is closed:
// guard and middleware failures are always funneled into one of these.
type Code string

const (
	// CodeCannotActivate reports an activation guard rejection.
	CodeCannotActivate Code = "CANNOT_ACTIVATE"

	// CodeCannotDeactivate reports a deactivation guard rejection.
	CodeCannotDeactivate Code = "CANNOT_DEACTIVATE"

	// CodeTransitionErr reports a middleware or guard failure that is not
	// a plain rejection, e.g. a returned error.
	CodeTransitionErr Code = "TRANSITION_ERR"

	// CodeTransitionCancelled reports a navigation superseded or
	// explicitly cancelled before commit.
	CodeTransitionCancelled Code = "TRANSITION_CANCELLED"

	// CodeRouteNotFound reports a name or path with no match in the tree.
	CodeRouteNotFound Code = "ROUTE_NOT_FOUND"

	// CodeRouterDisposed reports a call received after Dispose.
	CodeRouterDisposed Code = "ROUTER_DISPOSED"

	// CodeRouterNotStarted reports a navigation attempted before Start.
	CodeRouterNotStarted Code = "ROUTER_NOT_STARTED"
)

// reservedDataKeys are the RouterError fields that caller-supplied data
// must not shadow. Rejecting them keeps an error's identity trustworthy:
// extra data can annotate a failure but never impersonate another kind.
var reservedDataKeys = map[string]bool{
	"code":     true,
	"segment":  true,
	"path":     true,
	"redirect": true,
	"message":  true,
	"stack":    true,
	"cause":    true,
}

// RouterError is the structured error delivered on a failed navigation.
// The identity-bearing fields are fixed struct members; arbitrary
// annotations live in the separate Data mapping.
type RouterError struct {
	// Code is the failure kind.
	Code Code

	// Segment is the dotted name of the guard segment that rejected,
	// when the failure is attributable to one.
	Segment string

	// Path is the requested path, when known.
	Path string

	// Redirect is the state a guard redirected to, for redirect-related
	// failures such as an exceeded redirect chain.
	Redirect *State

	// Message is a short human-readable description.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Data holds caller-supplied annotations. Reserved field names are
	// rejected by WithData.
	Data map[string]any
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "navigation failed"
	}
	if e.Segment != "" {
		return fmt.Sprintf("%s: %s (segment %q)", e.Code, msg, e.Segment)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Cause
}

// WithData attaches an annotation to the error. Attempting to set a key
// that collides with a fixed field name is a programming error and is
// rejected.
func (e *RouterError) WithData(key string, value any) error {
	if reservedDataKeys[key] {
		return fmt.Errorf("router: %q is a reserved error field", key)
	}
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return nil
}

// WithSegment records the segment the failure is attributed to.
func (e *RouterError) WithSegment(segment string) *RouterError {
	e.Segment = segment
	return e
}

// WithPath records the requested path.
func (e *RouterError) WithPath(path string) *RouterError {
	e.Path = path
	return e
}

// Wrap records the underlying cause.
func (e *RouterError) Wrap(err error) *RouterError {
	e.Cause = err
	return e
}

// newError creates a RouterError for the given code with a default
// message.
func newError(code Code, format string, args ...any) *RouterError {
	return &RouterError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// asRouterError normalizes an arbitrary error into a RouterError with
// the given fallback code, preserving an existing RouterError untouched.
func asRouterError(err error, fallback Code) *RouterError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RouterError); ok {
		return re
	}
	return &RouterError{
		Code:    fallback,
		Message: err.Error(),
		Cause:   err,
	}
}
