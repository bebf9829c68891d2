// Package timing provides the discrete event engine that drives the clock of
// the DMA simulation. Time is counted in integer cycles of a single global
// clock.
package timing

import "github.com/sarchlab/axidma/instrumentation/hooking"

// VTimeInCycle is a point in simulated time, counted in cycles.
type VTimeInCycle uint64

// VTimeInSec is a simulated duration in seconds. It is only used for
// reporting.
type VTimeInSec float64

// Handler processes events of various types. Events are plain data, so
// handlers use a type switch:
//
//	func (h *MyHandler) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(event any) error
}

// TimeTeller exposes the current simulation cycle.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// EventScheduler schedules events in the simulation timeline.
type EventScheduler interface {
	TimeTeller
	Schedule(event ScheduledEvent)
}

// ScheduledEvent is the engine-facing wrapper for user-defined events.
type ScheduledEvent struct {
	// Event is the payload delivered to the handler.
	Event any

	// Time is the cycle when the event should be processed.
	Time VTimeInCycle

	// Handler is the component that will process this event.
	Handler Handler

	// IsSecondary events run after all primary events of the same cycle.
	IsSecondary bool

	seq uint64
}

// HookPosBeforeEvent is a hook position that triggers before handling an
// event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run processes events until there is no event left, or until a handler
	// reports an error.
	Run() error

	// Pause blocks event processing until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()
}
