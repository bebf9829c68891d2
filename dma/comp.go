// Package dma implements a single-channel DMA engine that copies memory
// regions over a five-channel burst bus.
//
// The engine is made of a transfer control state machine, a bus master
// protocol adapter, and an elastic buffer between the read and the write
// halves of a burst. It is advanced by the global clock of package sim.
package dma

import (
	"fmt"
	"sync"

	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/sim"
	"github.com/sarchlab/axidma/sim/state"
	"github.com/sarchlab/axidma/timing"
)

// Comp is the DMA engine.
type Comp struct {
	*sim.ComponentBase
	sim.MiddlewareHolder

	Spec Spec

	states *state.Manager
	target axi.Slave

	hostLock   sync.Mutex
	hostWrites []hostWrite

	// Scratch data valid during one compute phase.
	now     timing.VTimeInCycle
	cur     *State
	next    *State
	slave   axi.SlaveSignals
	hs      axi.Handshakes
	pending []pendingHook

	tasks *taskEmitter
}

// ConnectTarget attaches the bus target the engine masters.
func (c *Comp) ConnectTarget(t axi.Slave) {
	c.target = t
}

func (c *Comp) current() *State {
	return state.PeekAs[State](c.states, c.Name())
}

// MasterSignals returns the bus wires driven by the engine. They are a pure
// function of the current state.
func (c *Comp) MasterSignals() axi.MasterSignals {
	return masterSignals(c.current())
}

func masterSignals(s *State) axi.MasterSignals {
	return axi.MasterSignals{
		AR:     s.Bus.AR.Req,
		RReady: s.Bus.AR.Active && s.Fifo.Free() >= 2,
		AW:     s.Bus.AW.Req,
		W: axi.WChannel{
			Valid: s.Bus.W.Valid,
			Data:  s.Bus.W.Data,
			Strb:  s.Bus.W.Strb,
			Last:  s.Bus.W.Last,
		},
		BReady: s.Bus.B.WaitResp,
	}
}

// Compute stages the next state of the engine.
func (c *Comp) Compute(now timing.VTimeInCycle) error {
	if c.target == nil {
		return fmt.Errorf("dma %s: bus target is not connected", c.Name())
	}

	cur, err := c.states.Peek(c.Name())
	if err != nil {
		return err
	}

	next, err := c.states.Stage(c.Name())
	if err != nil {
		return err
	}

	c.now = now
	c.cur = cur.(*State)
	c.next = next.(*State)
	c.slave = c.target.SlaveSignals()
	c.hs = axi.Handshake(masterSignals(c.cur), c.slave)
	c.pending = c.pending[:0]

	c.MiddlewareHolder.Tick()

	c.cur = nil
	c.next = nil

	return nil
}

// Commit fires the hooks collected in the compute phase.
func (c *Comp) Commit(now timing.VTimeInCycle) {
	if c.NumHooks() == 0 {
		c.pending = c.pending[:0]
		return
	}

	for _, p := range c.pending {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    p.pos,
			Item:   p.item,
			Detail: p.detail,
		})

		c.tasks.trace(c, now, p)
	}

	c.pending = c.pending[:0]
}

// Reset stages the power-on state and drops queued register writes.
func (c *Comp) Reset() {
	c.hostLock.Lock()
	c.hostWrites = nil
	c.hostLock.Unlock()

	c.pending = c.pending[:0]
	c.tasks.reset()

	*state.StageAs[State](c.states, c.Name()) = *initialState(c.Spec)
}

func (c *Comp) emit(pos *hooking.HookPos, item, detail any) {
	c.pending = append(c.pending, pendingHook{pos: pos, item: item, detail: detail})
}

// Snapshot returns a copy of the current state.
func (c *Comp) Snapshot() State {
	return *c.current().Clone().(*State)
}

// TransferState returns the current state of the control state machine.
func (c *Comp) TransferState() TransferState {
	return c.current().Ctrl
}

// Busy tells if a transfer is in progress.
func (c *Comp) Busy() bool {
	return c.current().Ctrl.Busy()
}

// IRQ returns the level of the interrupt line.
func (c *Comp) IRQ() bool {
	return c.current().IRQ
}

// Stats returns the counters of the engine.
func (c *Comp) Stats() Stats {
	return c.current().Stats
}

// FIFO exposes the occupancy of the elastic buffer.
func (c *Comp) FIFO() FifoProbe {
	return FifoProbe{comp: c}
}

// FifoProbe reports the occupancy of the elastic buffer of a Comp.
type FifoProbe struct {
	comp *Comp
}

// Name returns the name of the buffer.
func (p FifoProbe) Name() string {
	return p.comp.Name() + ".FIFO"
}

// Size returns the number of buffered words.
func (p FifoProbe) Size() int {
	return p.comp.current().Fifo.Count
}

// Capacity returns the number of words the buffer can hold.
func (p FifoProbe) Capacity() int {
	return p.comp.Spec.FifoDepth
}
