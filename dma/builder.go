package dma

import (
	"log"

	"github.com/sarchlab/axidma/sim"
	"github.com/sarchlab/axidma/sim/state"
)

// Builder constructs a Comp.
type Builder struct {
	spec   Spec
	states *state.Manager
}

// MakeBuilder returns a new Builder with default Spec.
func MakeBuilder() Builder {
	return Builder{spec: Defaults()}
}

// WithSpec replaces the whole Spec.
func (b Builder) WithSpec(spec Spec) Builder {
	b.spec = spec
	return b
}

// WithFifoDepth sets the number of words the elastic buffer holds.
func (b Builder) WithFifoDepth(n int) Builder {
	b.spec.FifoDepth = n
	return b
}

// WithMaxBurstLen sets the largest AxLEN issued.
func (b Builder) WithMaxBurstLen(n int) Builder {
	b.spec.MaxBurstLen = n
	return b
}

// WithMinBurstLen sets the middle tier threshold of the burst policy.
func (b Builder) WithMinBurstLen(n int) Builder {
	b.spec.MinBurstLen = n
	return b
}

// WithStates sets the state manager that holds the engine state.
func (b Builder) WithStates(states *state.Manager) Builder {
	b.states = states
	return b
}

// WithSimulation takes the state manager from the simulation.
func (b Builder) WithSimulation(s *sim.Simulation) Builder {
	b.states = s.States()
	return b
}

// Build constructs the component. The bus target must be connected before the
// first tick.
func (b Builder) Build(name string) *Comp {
	if err := b.spec.Validate(); err != nil {
		log.Panicf("dma %s: %v", name, err)
	}

	if b.states == nil {
		log.Panicf("dma %s: state manager is not set", name)
	}

	c := &Comp{
		ComponentBase: sim.NewComponentBase(name),
		Spec:          b.spec,
		states:        b.states,
		tasks:         newTaskEmitter(),
	}

	c.AddMiddleware(&regsMiddleware{Comp: c})
	c.AddMiddleware(&ctrlMiddleware{Comp: c})
	c.AddMiddleware(&busMiddleware{Comp: c})
	c.AddMiddleware(&irqMiddleware{Comp: c})

	if err := b.states.Register(name, initialState(b.spec)); err != nil {
		log.Panic(err)
	}

	return c
}
