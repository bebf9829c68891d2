package sim

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/sim/state"
	"github.com/sarchlab/axidma/timing"
)

// HookPosTickBegin is triggered before the compute phase of a tick. The item
// is the cycle being computed.
var HookPosTickBegin = &hooking.HookPos{Name: "Tick Begin"}

// HookPosTickEnd is triggered after the commit phase of a tick. The item is
// the cycle that has just completed.
var HookPosTickEnd = &hooking.HookPos{Name: "Tick End"}

// ErrCycleLimit is returned by RunUntil when the condition is not met within
// the allowed number of cycles.
var ErrCycleLimit = errors.New("sim: cycle limit reached")

// A Simulation owns the clock, the component registry, and the state of all
// components.
type Simulation struct {
	*hooking.HookableBase

	id     string
	engine *timing.SerialEngine
	states *state.Manager

	components    []Component
	compNameIndex map[string]int

	stepLock sync.Mutex
	cycle    timing.VTimeInCycle

	stopLock sync.Mutex
	stopReq  bool
}

// NewSimulation creates a new simulation.
func NewSimulation() *Simulation {
	return &Simulation{
		HookableBase:  hooking.NewHookableBase(),
		id:            xid.New().String(),
		engine:        timing.NewSerialEngine(),
		states:        state.NewManager(),
		compNameIndex: make(map[string]int),
	}
}

// ID returns the unique ID of the simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the event engine that drives the clock.
func (s *Simulation) Engine() *timing.SerialEngine {
	return s.engine
}

// States returns the state manager shared by all components.
func (s *Simulation) States() *state.Manager {
	return s.states
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		log.Panicf("component %s already registered", compName)
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1
}

// Components returns all the registered components in registration order.
func (s *Simulation) Components() []Component {
	return s.components
}

// GetComponentByName returns the component with the given name, or nil if no
// such component is registered.
func (s *Simulation) GetComponentByName(name string) Component {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// Cycle returns the number of ticks completed since the last reset.
func (s *Simulation) Cycle() timing.VTimeInCycle {
	s.stepLock.Lock()
	defer s.stepLock.Unlock()

	return s.cycle
}

// Step advances the whole system by one tick.
func (s *Simulation) Step() error {
	s.stepLock.Lock()
	defer s.stepLock.Unlock()

	now := s.cycle

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: HookPosTickBegin, Item: now})

	for _, c := range s.components {
		if err := c.Compute(now); err != nil {
			s.states.DiscardAll()
			return fmt.Errorf("sim: %s at cycle %d: %w", c.Name(), now, err)
		}
	}

	s.states.CommitAll()

	for _, c := range s.components {
		c.Commit(now)
	}

	s.cycle++

	s.InvokeHook(hooking.HookCtx{Domain: s, Pos: HookPosTickEnd, Item: now})

	return nil
}

// Reset forces every component back to its power-on state and rewinds the
// cycle counter.
func (s *Simulation) Reset() {
	s.stepLock.Lock()
	defer s.stepLock.Unlock()

	s.states.DiscardAll()

	for _, c := range s.components {
		c.Reset()
	}

	s.states.CommitAll()
	s.cycle = 0
}

// Stop asks a running Run or RunUntil to return after the current tick.
func (s *Simulation) Stop() {
	s.stopLock.Lock()
	s.stopReq = true
	s.stopLock.Unlock()
}

func (s *Simulation) takeStop() bool {
	s.stopLock.Lock()
	defer s.stopLock.Unlock()

	stop := s.stopReq
	s.stopReq = false

	return stop
}

// Run advances the system by n ticks through the event engine.
func (s *Simulation) Run(n uint64) error {
	_, err := s.run(nil, n)
	return err
}

// RunUntil advances the system until cond returns true, checking cond after
// every tick. It returns ErrCycleLimit if cond is still false after
// maxCycles ticks.
func (s *Simulation) RunUntil(cond func() bool, maxCycles uint64) error {
	if cond() {
		return nil
	}

	met, err := s.run(cond, maxCycles)
	if err != nil {
		return err
	}

	if !met {
		return fmt.Errorf("%w after %d cycles", ErrCycleLimit, maxCycles)
	}

	return nil
}

func (s *Simulation) run(cond func() bool, maxCycles uint64) (bool, error) {
	if maxCycles == 0 {
		return false, nil
	}

	s.takeStop()

	c := &clock{sim: s, cond: cond, left: maxCycles}
	c.schedule(s.engine.CurrentTime())

	if err := s.engine.Run(); err != nil {
		return false, err
	}

	return c.met, nil
}
