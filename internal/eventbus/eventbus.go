package eventbus

import "github.com/kilianp07/roadside/core/events"

// EventBus is the request event stream shared by the engine and its consumers.
type EventBus interface {
	Publish(events.Event)
	Subscribe() <-chan events.Event
	SubscribeFiltered(func(events.Event) bool) <-chan events.Event
	Unsubscribe(<-chan events.Event)
	Close()
}

// DefaultBuffer is the per-subscriber channel capacity used by New.
const DefaultBuffer = 64

// New creates a bus for request events.
func New() *TypedBus[events.Event] { return NewTyped[events.Event](DefaultBuffer) }

// ForRequest matches events whose subject is id.
func ForRequest(id string) func(events.Event) bool {
	return func(e events.Event) bool { return e.Subject() == id }
}
