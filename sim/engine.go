package sim

// A TimeTeller reports the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// An EventScheduler accepts events to fire in the future.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler runs once, after the last event has fired.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine owns the event queues and drives the simulation forward.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run fires events in time order until none remain.
	Run() error

	// Pause blocks event processing until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// RegisterSimulationEndHandler adds a handler invoked by Finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished runs all registered SimulationEndHandlers.
	Finished()
}
