// Package system assembles a DMA engine, a memory target, and the clock into
// a runnable platform, and offers the helpers a host program uses to drive
// it.
package system

import (
	"errors"
	"fmt"

	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/dma"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/memtarget"
	"github.com/sarchlab/axidma/sim"
)

// ErrTransferFailed is returned by Transfer when the engine reports an error.
var ErrTransferFailed = errors.New("system: transfer failed")

// System is a DMA engine connected to a memory target.
type System struct {
	Name string
	Sim  *sim.Simulation
	DMA  *dma.Comp
	Mem  *memtarget.Comp

	checker     *axi.Checker
	protocolErr error
}

// Builder constructs a System.
type Builder struct {
	dma           dma.Builder
	mem           memtarget.Builder
	checkProtocol bool
}

// MakeBuilder returns a new Builder with default component specs.
func MakeBuilder() Builder {
	return Builder{
		dma: dma.MakeBuilder(),
		mem: memtarget.MakeBuilder(),
	}
}

// WithDMASpec sets the spec of the DMA engine.
func (b Builder) WithDMASpec(spec dma.Spec) Builder {
	b.dma = b.dma.WithSpec(spec)
	return b
}

// WithFifoDepth sets the depth of the elastic buffer.
func (b Builder) WithFifoDepth(n int) Builder {
	b.dma = b.dma.WithFifoDepth(n)
	return b
}

// WithMemSpec sets the spec of the memory target.
func (b Builder) WithMemSpec(spec memtarget.Spec) Builder {
	b.mem = b.mem.WithSpec(spec)
	return b
}

// WithMemCapacity sets the size of the memory.
func (b Builder) WithMemCapacity(capacity uint64) Builder {
	b.mem = b.mem.WithNewStorage(capacity)
	return b
}

// WithReadLatency sets the read latency of the memory.
func (b Builder) WithReadLatency(cycles int) Builder {
	b.mem = b.mem.WithReadLatency(cycles)
	return b
}

// WithWriteLatency sets the write latency of the memory.
func (b Builder) WithWriteLatency(cycles int) Builder {
	b.mem = b.mem.WithWriteLatency(cycles)
	return b
}

// WithFault injects an error response window into the memory.
func (b Builder) WithFault(f memtarget.Fault) Builder {
	b.mem = b.mem.WithFault(f)
	return b
}

// WithProtocolChecker watches the bus for handshake rule violations.
func (b Builder) WithProtocolChecker() Builder {
	b.checkProtocol = true
	return b
}

// Build creates the system.
func (b Builder) Build(name string) *System {
	s := sim.NewSimulation()

	sys := &System{
		Name: name,
		Sim:  s,
		DMA:  b.dma.WithSimulation(s).Build(sim.BuildName(name, "DMA")),
		Mem:  b.mem.WithSimulation(s).Build(sim.BuildName(name, "Mem")),
	}

	sys.DMA.ConnectTarget(sys.Mem)
	sys.Mem.ConnectMaster(sys.DMA)

	s.RegisterComponent(sys.DMA)
	s.RegisterComponent(sys.Mem)

	if b.checkProtocol {
		sys.checker = &axi.Checker{}
		s.AcceptHook(hooking.HookFunc(sys.observeBus))
	}

	return sys
}

func (s *System) observeBus(ctx hooking.HookCtx) {
	if ctx.Pos != sim.HookPosTickBegin || s.protocolErr != nil {
		return
	}

	err := s.checker.Observe(s.DMA.MasterSignals(), s.Mem.SlaveSignals())
	if err != nil {
		s.protocolErr = fmt.Errorf("cycle %v: %w", ctx.Item, err)
	}
}

// ProtocolError returns the first bus rule violation seen by the checker.
func (s *System) ProtocolError() error {
	return s.protocolErr
}

// Reset returns every component to its power-on state.
func (s *System) Reset() {
	s.Sim.Reset()

	if s.checker != nil {
		s.checker.Reset()
	}

	s.protocolErr = nil
}

// ProgramTransfer writes the descriptor registers and sets the start bit.
func (s *System) ProgramTransfer(d dma.Descriptor, intEnable bool) error {
	writes := []struct {
		offset uint32
		value  uint32
	}{
		{dma.RegSrcAddr, d.Src},
		{dma.RegDstAddr, d.Dst},
		{dma.RegLength, uint32(d.Length)},
		{dma.RegControl, uint32(dma.ControlValue(d, intEnable))},
	}

	for _, w := range writes {
		if err := s.DMA.WriteReg(w.offset, w.value); err != nil {
			return err
		}
	}

	return nil
}

// Finished tells if the engine is idle with done or error reported.
func (s *System) Finished() bool {
	st, err := s.DMA.ReadReg(dma.RegStatus)
	if err != nil {
		return false
	}

	return st&uint32(dma.StatusBusy) == 0 &&
		st&uint32(dma.StatusDone|dma.StatusError) != 0
}

// Status reads the STATUS register.
func (s *System) Status() uint8 {
	st, _ := s.DMA.ReadReg(dma.RegStatus)
	return uint8(st)
}

// WaitDone runs the clock until the engine reports done or error.
func (s *System) WaitDone(maxCycles uint64) error {
	return s.Sim.RunUntil(s.Finished, maxCycles)
}

// Result summarizes a finished transfer.
type Result struct {
	Cycles uint64
	Status uint8
}

// Failed tells if the transfer ended with the error bit.
func (r Result) Failed() bool {
	return r.Status&dma.StatusError != 0
}

// Transfer clears stale status bits, programs a transfer, and waits for it.
func (s *System) Transfer(
	d dma.Descriptor,
	intEnable bool,
	maxCycles uint64,
) (Result, error) {
	if err := s.DMA.WriteReg(dma.RegIntStatus,
		uint32(dma.IntDone|dma.IntError)); err != nil {
		return Result{}, err
	}

	if err := s.Sim.Step(); err != nil {
		return Result{}, err
	}

	if err := s.ProgramTransfer(d, intEnable); err != nil {
		return Result{}, err
	}

	start := s.Sim.Cycle()

	if err := s.WaitDone(maxCycles); err != nil {
		return Result{}, err
	}

	res := Result{
		Cycles: uint64(s.Sim.Cycle() - start),
		Status: s.Status(),
	}

	if res.Failed() {
		return res, ErrTransferFailed
	}

	return res, nil
}
