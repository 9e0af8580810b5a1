package router

import (
	"errors"
	"strings"
	"testing"
)

func TestRouterErrorMessage(t *testing.T) {
	err := newError(CodeCannotDeactivate, "guard rejected transition").WithSegment("users")
	if !strings.Contains(err.Error(), "CANNOT_DEACTIVATE") || !strings.Contains(err.Error(), `"users"`) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRouterErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError(CodeTransitionErr, "failed").Wrap(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestWithDataRejectsReservedKeys(t *testing.T) {
	err := newError(CodeTransitionErr, "failed")

	for _, key := range []string{"code", "segment", "path", "redirect", "message", "stack", "cause"} {
		if got := err.WithData(key, "spoofed"); got == nil {
			t.Errorf("WithData(%q) accepted a reserved key", key)
		}
	}
	if err.Data != nil {
		t.Errorf("rejected keys leaked into Data: %v", err.Data)
	}

	if got := err.WithData("requestID", 7); got != nil {
		t.Fatalf("WithData(requestID): %v", got)
	}
	if err.Data["requestID"] != 7 {
		t.Errorf("Data = %v", err.Data)
	}
	// The identity fields are untouched by annotations.
	if err.Code != CodeTransitionErr || err.Segment != "" {
		t.Errorf("identity fields mutated: %+v", err)
	}
}

func TestAsRouterError(t *testing.T) {
	orig := newError(CodeRouteNotFound, "nope")
	if got := asRouterError(orig, CodeTransitionErr); got != orig {
		t.Error("existing RouterError was rewrapped")
	}

	plain := errors.New("plain")
	got := asRouterError(plain, CodeTransitionErr)
	if got.Code != CodeTransitionErr || !errors.Is(got, plain) {
		t.Errorf("wrapped = %+v", got)
	}

	if asRouterError(nil, CodeTransitionErr) != nil {
		t.Error("nil error wrapped")
	}
}
