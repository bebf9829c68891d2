package dma

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/instrumentation/tracing"
	"github.com/sarchlab/axidma/memtarget"
	"github.com/sarchlab/axidma/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Hooks", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		s        *sim.Simulation
		dma      *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)

		s = sim.NewSimulation()
		dma = MakeBuilder().WithSimulation(s).Build("DMA")
		target := memtarget.MakeBuilder().
			WithSimulation(s).
			WithNewStorage(4096).
			Build("Mem")
		dma.ConnectTarget(target)
		target.ConnectMaster(dma)
		s.RegisterComponent(dma)
		s.RegisterComponent(target)

		dma.AcceptHook(hook)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should stay quiet while idle", func() {
		Expect(s.Run(5)).To(Succeed())
	})

	It("should fire hooks in the commit phase only", func() {
		d := Descriptor{Src: 0, Dst: 0x80, Length: 2, Width: 4,
			SrcInc: true, DstInc: true}
		Expect(dma.WriteReg(RegLength, uint32(d.Length))).To(Succeed())
		Expect(dma.WriteReg(RegControl,
			uint32(ControlValue(d, false)))).To(Succeed())
		Expect(s.Step()).To(Succeed())

		var positions []*hooking.HookPos
		hook.EXPECT().Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Domain).To(BeIdenticalTo(dma))
				positions = append(positions, ctx.Pos)
			}).
			MinTimes(1)

		Expect(dma.Compute(s.Cycle())).To(Succeed())
		Expect(positions).To(BeEmpty())

		s.States().CommitAll()
		dma.Commit(s.Cycle())

		Expect(positions).To(ContainElements(
			HookPosTransferStart,
			HookPosStateChange,
			tracing.HookPosTaskStart,
			tracing.HookPosTaskStep,
		))
	})
})
