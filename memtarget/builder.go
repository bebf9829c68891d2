package memtarget

import (
	"log"

	"github.com/sarchlab/axidma/memory"
	"github.com/sarchlab/axidma/sim"
	"github.com/sarchlab/axidma/sim/state"
)

// Builder constructs a Comp.
type Builder struct {
	spec    Spec
	states  *state.Manager
	storage *memory.Storage
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

// WithNewStorage creates a fresh storage of the given capacity.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.storage = nil
	b.spec.CapacityBytes = capacity

	return b
}

// WithStorage uses an existing storage.
func (b Builder) WithStorage(storage *memory.Storage) Builder {
	b.storage = storage
	return b
}

// WithUnitSize sets the allocation unit of a new storage.
func (b Builder) WithUnitSize(unit uint64) Builder {
	b.spec.UnitSize = unit
	return b
}

// WithReadLatency sets the cycles before the first read beat.
func (b Builder) WithReadLatency(cycles int) Builder {
	b.spec.ReadLatency = cycles
	return b
}

// WithWriteLatency sets the cycles before the target accepts write beats.
func (b Builder) WithWriteLatency(cycles int) Builder {
	b.spec.WriteLatency = cycles
	return b
}

// WithFault injects an error response window.
func (b Builder) WithFault(f Fault) Builder {
	b.spec.Faults = append(append([]Fault(nil), b.spec.Faults...), f)
	return b
}

// WithStates sets the state manager that holds the target state.
func (b Builder) WithStates(states *state.Manager) Builder {
	b.states = states
	return b
}

// WithSimulation takes the state manager from the simulation.
func (b Builder) WithSimulation(s *sim.Simulation) Builder {
	b.states = s.States()
	return b
}

// Build constructs the component. The bus master must be connected before the
// first tick.
func (b Builder) Build(name string) *Comp {
	if b.storage != nil {
		b.spec.CapacityBytes = b.storage.Capacity()
	}

	if err := b.spec.Validate(); err != nil {
		log.Panicf("target %s: %v", name, err)
	}

	if b.states == nil {
		log.Panicf("target %s: state manager is not set", name)
	}

	c := &Comp{
		ComponentBase: sim.NewComponentBase(name),
		Spec:          b.spec,
		states:        b.states,
		storage:       b.storage,
		faults:        append([]Fault(nil), b.spec.Faults...),
	}

	if c.storage == nil {
		if b.spec.UnitSize == 0 {
			c.storage = memory.NewStorage(b.spec.CapacityBytes)
		} else {
			c.storage = memory.NewStorageWithUnitSize(
				b.spec.CapacityBytes, b.spec.UnitSize)
		}
	}

	if err := b.states.Register(name, &State{}); err != nil {
		log.Panic(err)
	}

	return c
}
