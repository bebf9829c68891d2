package dma

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/axidma/instrumentation/tracing"
	"github.com/sarchlab/axidma/memtarget"
	"github.com/sarchlab/axidma/sim"
)

type taskLog struct {
	started []tracing.Task
	ended   []tracing.Task
}

func (l *taskLog) StartTask(t tracing.Task) { l.started = append(l.started, t) }
func (l *taskLog) StepTask(_ tracing.Task)  {}
func (l *taskLog) EndTask(t tracing.Task)   { l.ended = append(l.ended, t) }

var _ = Describe("Task tracing", func() {
	var (
		s       *sim.Simulation
		dma     *Comp
		target  *memtarget.Comp
		tasks   *taskLog
		steps   *tracing.StepCountTracer
		copying *tracing.TotalTimeTracer
	)

	BeforeEach(func() {
		s = sim.NewSimulation()
		dma = MakeBuilder().WithSimulation(s).Build("DMA")
		target = memtarget.MakeBuilder().
			WithSimulation(s).
			WithNewStorage(4096).
			Build("Mem")
		dma.ConnectTarget(target)
		target.ConnectMaster(dma)
		s.RegisterComponent(dma)
		s.RegisterComponent(target)

		tasks = &taskLog{}
		steps = tracing.NewStepCountTracer(tracing.KindIs(TaskKindBurst))
		copying = tracing.NewTotalTimeTracer(tracing.KindIs(TaskKindTransfer))

		tracing.CollectTrace(dma, tasks)
		tracing.CollectTrace(dma, steps)
		tracing.CollectTrace(dma, copying)
	})

	run := func(d Descriptor) {
		Expect(dma.WriteReg(RegSrcAddr, d.Src)).To(Succeed())
		Expect(dma.WriteReg(RegDstAddr, d.Dst)).To(Succeed())
		Expect(dma.WriteReg(RegLength, uint32(d.Length))).To(Succeed())
		Expect(dma.WriteReg(RegControl,
			uint32(ControlValue(d, false)))).To(Succeed())

		Expect(s.RunUntil(func() bool {
			st, _ := dma.ReadReg(RegStatus)
			return st != 0 && !dma.Busy()
		}, 1000)).To(Succeed())
	}

	It("should report a transfer with its bursts", func() {
		run(Descriptor{Src: 0, Dst: 0x400, Length: 32, Width: 4,
			SrcInc: true, DstInc: true, BurstEnable: true})

		Expect(tasks.started).To(HaveLen(5))
		Expect(tasks.ended).To(HaveLen(5))

		transfer := tasks.started[0]
		Expect(transfer.Kind).To(Equal(TaskKindTransfer))
		Expect(transfer.Where).To(Equal("DMA"))
		Expect(transfer.Detail).To(BeAssignableToTypeOf(Descriptor{}))

		for _, t := range tasks.started[1:] {
			Expect(t.Kind).To(Equal(TaskKindBurst))
			Expect(t.ParentID).To(Equal(transfer.ID))
		}

		Expect(tasks.ended[len(tasks.ended)-1].ID).To(Equal(transfer.ID))

		Expect(steps.GetStepCount("read beat")).To(Equal(uint64(32)))
		Expect(steps.GetStepCount("write beat")).To(Equal(uint64(32)))
		Expect(steps.GetTaskCount("read beat")).To(Equal(uint64(2)))
		Expect(steps.GetTaskCount("write beat")).To(Equal(uint64(2)))

		Expect(copying.TaskCount()).To(Equal(uint64(1)))
		Expect(copying.TotalTime()).To(BeNumerically(">", 32))
	})

	It("should close open bursts when a transfer fails", func() {
		run(Descriptor{Src: 4092, Dst: 0x40, Length: 4, Width: 4,
			SrcInc: true, DstInc: true, BurstEnable: true})

		Expect(tasks.ended).To(HaveLen(len(tasks.started)))
		Expect(copying.TaskCount()).To(Equal(uint64(1)))
	})

	It("should not emit tasks without hooks", func() {
		quiet := MakeBuilder().WithSimulation(s).Build("Quiet")
		quiet.ConnectTarget(target)

		Expect(quiet.NumHooks()).To(BeZero())
		Expect(func() { quiet.Commit(0) }).NotTo(Panic())
	})
})
