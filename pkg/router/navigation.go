package router

import (
	"context"
	"sync"
)

// Navigation is the handle returned by Navigate. It settles exactly
// once: with the committed state, or with a RouterError.
type Navigation struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	state     *State
	err       *RouterError
	callbacks []func(*State, error)
}

func newNavigation(cancel context.CancelFunc) *Navigation {
	return &Navigation{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done returns a channel closed when the navigation settles.
func (n *Navigation) Done() <-chan struct{} {
	return n.done
}

// Wait blocks until the navigation settles and returns its outcome.
func (n *Navigation) Wait() (*State, error) {
	<-n.done
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	return n.state, nil
}

// State returns the committed state, or nil while pending or on failure.
func (n *Navigation) State() *State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Err returns the navigation's error, or nil while pending or on
// success.
func (n *Navigation) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err == nil {
		return nil
	}
	return n.err
}

// Then registers a callback invoked once the navigation settles. A
// callback registered after settlement runs immediately on the caller's
// goroutine; otherwise it runs on the navigation's goroutine.
func (n *Navigation) Then(cb func(state *State, err error)) *Navigation {
	n.mu.Lock()
	if !n.settled {
		n.callbacks = append(n.callbacks, cb)
		n.mu.Unlock()
		return n
	}
	state, err := n.state, n.err
	n.mu.Unlock()
	cb(state, errOrNil(err))
	return n
}

// Cancel requests cancellation. Cancelling after the navigation settled
// is a no-op; calling it twice delivers nothing twice.
func (n *Navigation) Cancel() {
	n.cancel()
}

// settle records the outcome. Only the first call wins; later calls,
// including a cancellation racing a commit, are discarded.
func (n *Navigation) settle(state *State, err *RouterError) bool {
	n.mu.Lock()
	if n.settled {
		n.mu.Unlock()
		return false
	}
	n.settled = true
	n.state = state
	n.err = err
	callbacks := n.callbacks
	n.callbacks = nil
	close(n.done)
	n.mu.Unlock()

	for _, cb := range callbacks {
		cb(state, errOrNil(err))
	}
	return true
}

// errOrNil avoids handing callbacks a non-nil error interface holding a
// nil *RouterError.
func errOrNil(err *RouterError) error {
	if err == nil {
		return nil
	}
	return err
}
