package sim

import (
	"fmt"

	"github.com/sarchlab/axidma/timing"
)

// TickEvent triggers one tick of the global clock.
type TickEvent struct {
	Cycle timing.VTimeInCycle
}

// clock turns the engine timeline into a sequence of ticks.
type clock struct {
	sim  *Simulation
	cond func() bool
	left uint64
	met  bool
}

func (c *clock) Name() string {
	return "Clock"
}

func (c *clock) schedule(at timing.VTimeInCycle) {
	c.sim.engine.Schedule(timing.ScheduledEvent{
		Event:   &TickEvent{Cycle: c.sim.Cycle()},
		Time:    at,
		Handler: c,
	})
}

// Handle runs one tick and schedules the next one if needed.
func (c *clock) Handle(event any) error {
	if _, ok := event.(*TickEvent); !ok {
		return fmt.Errorf("unknown event type: %T", event)
	}

	if err := c.sim.Step(); err != nil {
		return err
	}

	c.left--

	if c.cond != nil && c.cond() {
		c.met = true
		return nil
	}

	if c.left == 0 || c.sim.takeStop() {
		return nil
	}

	c.schedule(c.sim.engine.CurrentTime() + 1)

	return nil
}
