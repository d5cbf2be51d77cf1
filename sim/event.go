package sim

// VTimeInSec is a point in simulated time, in seconds.
type VTimeInSec float64

// An Event is a state change scheduled to happen at a future time.
type Event interface {
	// Time returns when the event fires.
	Time() VTimeInSec

	// Handler returns who handles the event.
	Handler() Handler

	// IsSecondary marks events that fire only after every primary event
	// with the same timestamp has fired.
	IsSecondary() bool
}

// EventBase carries the fields common to all events. Concrete events embed
// it and add their payload.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates an EventBase with a fresh ID.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// Time returns when the event fires.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns who handles the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary reports whether the event runs in the secondary phase.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler consumes events. An event is scheduled by, and mutates, only
// its own handler.
type Handler interface {
	Handle(e Event) error
}
