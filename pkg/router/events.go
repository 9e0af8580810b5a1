package router

import "sync"

// EventName identifies a router event.
type EventName string

const (
	EventTransitionStart     EventName = "TRANSITION_START"
	EventTransitionSuccess   EventName = "TRANSITION_SUCCESS"
	EventTransitionError     EventName = "TRANSITION_ERROR"
	EventTransitionCancelled EventName = "TRANSITION_CANCELLED"
	EventRouterStart         EventName = "ROUTER_START"
	EventRouterStop          EventName = "ROUTER_STOP"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Name EventName
	To   *State
	From *State
	Err  *RouterError
}

// Listener receives router events.
type Listener func(Event)

type subscription struct {
	id   int
	name EventName // empty subscribes to every event
	fn   Listener
}

// eventBus is a minimal subscription registry. Listeners are invoked
// synchronously in subscription order on the emitting goroutine.
type eventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

func newEventBus() *eventBus {
	return &eventBus{}
}

// subscribe registers fn for one event name, or for every event when
// name is empty. The returned function removes the subscription and is
// idempotent.
func (b *eventBus) subscribe(name EventName, fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, name: name, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}

func (b *eventBus) emit(ev Event) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.name == "" || sub.name == ev.Name {
			listeners = append(listeners, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
