package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine runs events one at a time in virtual-time order.
//
// Primary events carry the simulated work. Secondary events run at the same
// timestamp only after all primary events for that timestamp have fired,
// which is how per-cycle bookkeeping stays ordered after the work it
// observes.
type SerialEngine struct {
	HookableBase

	timeMu sync.RWMutex
	now    VTimeInSec

	primary   EventQueue
	secondary EventQueue

	pauseMu  sync.Mutex
	stepMu   sync.Mutex
	paused   bool
	runMu    sync.Mutex
	endHooks []SimulationEndHandler
}

// NewSerialEngine creates an engine with empty event queues.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		primary:   NewEventQueue(),
		secondary: NewEventQueue(),
	}
}

// Schedule queues an event. Scheduling into the past panics.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.CurrentTime() {
		log.Panic("scheduling an event earlier than current time")
	}

	if evt.IsSecondary() {
		e.secondary.Push(evt)
	} else {
		e.primary.Push(evt)
	}
}

// Run fires events until both queues drain. It returns after the last
// handler completes.
func (e *SerialEngine) Run() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	for e.primary.Len() > 0 || e.secondary.Len() > 0 {
		e.stepMu.Lock()
		e.fireNext()
		e.stepMu.Unlock()
	}

	return nil
}

func (e *SerialEngine) fireNext() {
	evt := e.dequeueEarliest()

	if evt.Time() < e.CurrentTime() {
		log.Panicf("cannot run event in the past, evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), e.CurrentTime())
	}
	e.advanceTo(evt.Time())

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	_ = evt.Handler().Handle(evt)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)
}

// dequeueEarliest prefers the primary queue on timestamp ties.
func (e *SerialEngine) dequeueEarliest() Event {
	switch {
	case e.primary.Len() == 0:
		return e.secondary.Pop()
	case e.secondary.Len() == 0:
		return e.primary.Pop()
	case e.primary.Peek().Time() <= e.secondary.Peek().Time():
		return e.primary.Pop()
	default:
		return e.secondary.Pop()
	}
}

func (e *SerialEngine) advanceTo(t VTimeInSec) {
	e.timeMu.Lock()
	e.now = t
	e.timeMu.Unlock()
}

// Pause stops the engine after the event in flight, if any, completes.
func (e *SerialEngine) Pause() {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	if e.paused {
		return
	}

	e.stepMu.Lock()
	e.paused = true
}

// Continue resumes a paused engine.
func (e *SerialEngine) Continue() {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()

	if !e.paused {
		return
	}

	e.paused = false
	e.stepMu.Unlock()
}

// CurrentTime returns the timestamp of the event being fired, or the last
// one fired.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.timeMu.RLock()
	defer e.timeMu.RUnlock()

	return e.now
}

// RegisterSimulationEndHandler adds a handler that Finished will call.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.endHooks = append(e.endHooks, handler)
}

// Finished runs the registered end-of-simulation handlers. Call it once,
// after Run returns for the last time.
func (e *SerialEngine) Finished() {
	for _, h := range e.endHooks {
		h.Handle(e.CurrentTime())
	}
}
