// Package sim advances a set of components with a single global clock.
//
// Every tick runs in two phases. First each component computes its next state
// from the frozen current state of the whole system. Then all next states are
// committed together, and each component gets a chance to run the effects
// that depend on the committed state.
package sim

import (
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/timing"
)

// A Component is a piece of hardware that is advanced by the clock.
type Component interface {
	Named
	hooking.Hookable

	// Compute reads current states and stages the next state. It must not
	// change anything that another component can observe in the same tick.
	Compute(now timing.VTimeInCycle) error

	// Commit runs after all staged states become current.
	Commit(now timing.VTimeInCycle)

	// Reset stages the power-on state.
	Reset()
}

// ComponentBase provides the name and the hook support of a component.
type ComponentBase struct {
	*hooking.HookableBase

	name string
}

// NewComponentBase creates a ComponentBase. It panics if the name is not
// valid.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	return &ComponentBase{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
	}
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
