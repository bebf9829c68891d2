package dma

import (
	"log"

	"github.com/sarchlab/axidma/instrumentation/hooking"
)

// StateLogger is a hook that prints the transitions of the control state
// machine and the transfer boundaries.
type StateLogger struct {
	*log.Logger
}

// NewStateLogger returns a new StateLogger which will write into the logger.
func NewStateLogger(logger *log.Logger) *StateLogger {
	return &StateLogger{Logger: logger}
}

// Func writes the hook information into the logger.
func (h *StateLogger) Func(ctx hooking.HookCtx) {
	name := "-"
	if c, ok := ctx.Domain.(*Comp); ok {
		name = c.Name()
	}

	switch item := ctx.Item.(type) {
	case Transition:
		h.Printf("%d, %s, %s -> %s", item.Cycle, name, item.From, item.To)
	case Descriptor:
		h.Printf("%s, start %s", name, item)
	case TransferResult:
		if item.Failed {
			h.Printf("%d, %s, transfer failed", item.Cycle, name)
		} else {
			h.Printf("%d, %s, transfer done", item.Cycle, name)
		}
	case BurstInfo:
		if ctx.Pos == HookPosBurstStart {
			h.Printf("%d, %s, %s burst 0x%08x x%d",
				item.Cycle, name, item.Dir, item.Addr, item.Beats)
		}
	}
}
