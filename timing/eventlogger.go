package timing

import (
	"log"
	"reflect"

	"github.com/sarchlab/axidma/instrumentation/hooking"
)

// EventLogger is a hook that prints the event information.
type EventLogger struct {
	logger *log.Logger
}

// NewEventLogger returns a new EventLogger which will write into the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.logger = logger

	return h
}

type named interface {
	Name() string
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*ScheduledEvent)
	if !ok {
		return
	}

	handlerName := "-"
	if n, ok := evt.Handler.(named); ok {
		handlerName = n.Name()
	}

	h.logger.Printf("%d, %s -> %s",
		evt.Time, reflect.TypeOf(evt.Event), handlerName)
}
