package system

import (
	"github.com/sarchlab/axidma/dma"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/sim"
	"github.com/sarchlab/axidma/timing"
)

// probe records what the engine does, tick by tick.
type probe struct {
	sys *System

	fifoMin, fifoMax int

	transitions []dma.Transition
	burstStarts []dma.BurstInfo
	burstEnds   []dma.BurstInfo
	remaining   []uint32
}

func attachProbe(sys *System) *probe {
	p := &probe{sys: sys, fifoMin: 1 << 30}

	sys.Sim.AcceptHook(hooking.HookFunc(p.onTick))
	sys.DMA.AcceptHook(hooking.HookFunc(p.onDMA))

	return p
}

func (p *probe) onTick(ctx hooking.HookCtx) {
	if ctx.Pos != sim.HookPosTickEnd {
		return
	}

	n := p.sys.DMA.FIFO().Size()
	p.fifoMin = min(p.fifoMin, n)
	p.fifoMax = max(p.fifoMax, n)
}

func (p *probe) onDMA(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case dma.HookPosStateChange:
		t := ctx.Item.(dma.Transition)
		p.transitions = append(p.transitions, t)

		if t.From == dma.WriteResp && t.To == dma.CheckDone {
			p.remaining = append(p.remaining,
				p.sys.DMA.Snapshot().Tracker.Remaining)
		}
	case dma.HookPosBurstStart:
		p.burstStarts = append(p.burstStarts, ctx.Item.(dma.BurstInfo))
	case dma.HookPosBurstEnd:
		p.burstEnds = append(p.burstEnds, ctx.Item.(dma.BurstInfo))
	}
}

func (p *probe) transitionAt(from, to dma.TransferState) (timing.VTimeInCycle, bool) {
	for _, t := range p.transitions {
		if t.From == from && t.To == to {
			return t.Cycle, true
		}
	}

	return 0, false
}

func (p *probe) ends(dir dma.Direction) []dma.BurstInfo {
	var out []dma.BurstInfo

	for _, b := range p.burstEnds {
		if b.Dir == dir {
			out = append(out, b)
		}
	}

	return out
}
