package dma

import (
	"fmt"

	"github.com/sarchlab/axidma/idgen"
	"github.com/sarchlab/axidma/instrumentation/tracing"
	"github.com/sarchlab/axidma/timing"
)

// Task kinds reported through package tracing.
const (
	TaskKindTransfer = "transfer"
	TaskKindBurst    = "burst"
)

// taskEmitter turns the hooks of a Comp into tracing tasks. A transfer is a
// task, and each burst is a subtask of the transfer.
type taskEmitter struct {
	ids      idgen.Generator
	transfer string
	bursts   [2]string
}

func newTaskEmitter() *taskEmitter {
	return &taskEmitter{ids: idgen.New()}
}

func (e *taskEmitter) reset() {
	e.transfer = ""
	e.bursts = [2]string{}
}

func (e *taskEmitter) newID(c *Comp) string {
	return fmt.Sprintf("%s#%s", c.Name(), e.ids.Generate())
}

func (e *taskEmitter) trace(c *Comp, now timing.VTimeInCycle, p pendingHook) {
	switch p.pos {
	case HookPosTransferStart:
		e.startTransfer(c, now, p.item.(Descriptor))
	case HookPosTransferEnd:
		e.endTransfer(c, p.item.(TransferResult))
	case HookPosStateChange:
		t := p.item.(Transition)
		if e.transfer != "" {
			tracing.AddTaskStep(e.transfer, t.Cycle, c, t.To.String())
		}
	case HookPosBurstStart:
		e.startBurst(c, p.item.(BurstInfo))
	case HookPosBurstEnd:
		b := p.item.(BurstInfo)
		e.endBurst(c, b.Dir, b.Cycle)
	case HookPosBeat:
		b := p.item.(BeatInfo)
		if id := e.bursts[b.Dir]; id != "" {
			tracing.AddTaskStep(id, b.Cycle, c, b.Dir.String()+" beat")
		}
	}
}

func (e *taskEmitter) startTransfer(
	c *Comp,
	now timing.VTimeInCycle,
	d Descriptor,
) {
	e.transfer = e.newID(c)
	tracing.StartTask(e.transfer, "", now, c,
		TaskKindTransfer, "copy", d)
}

func (e *taskEmitter) endTransfer(c *Comp, r TransferResult) {
	if e.transfer == "" {
		return
	}

	e.endBurst(c, DirRead, r.Cycle)
	e.endBurst(c, DirWrite, r.Cycle)

	if r.Failed {
		tracing.AddTaskStep(e.transfer, r.Cycle, c, "failed")
	}

	tracing.EndTask(e.transfer, r.Cycle, c)
	e.transfer = ""
}

func (e *taskEmitter) startBurst(c *Comp, b BurstInfo) {
	e.endBurst(c, b.Dir, b.Cycle)

	id := e.newID(c)
	e.bursts[b.Dir] = id

	tracing.StartTask(id, e.transfer, b.Cycle, c,
		TaskKindBurst, b.Dir.String(), b)
}

func (e *taskEmitter) endBurst(c *Comp, dir Direction, cycle timing.VTimeInCycle) {
	id := e.bursts[dir]
	if id == "" {
		return
	}

	tracing.EndTask(id, cycle, c)
	e.bursts[dir] = ""
}
