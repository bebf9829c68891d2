package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/sim/state"
	"github.com/sarchlab/axidma/timing"
)

type regState struct {
	Value int
}

// copier latches the current value of its source plus one.
type copier struct {
	*ComponentBase

	states  *state.Manager
	source  string
	fail    bool
	commits int
}

func newCopier(
	name, source string,
	states *state.Manager,
) *copier {
	c := &copier{
		ComponentBase: NewComponentBase(name),
		states:        states,
		source:        source,
	}

	Expect(states.Register(name, &regState{})).To(Succeed())

	return c
}

func (c *copier) Compute(_ timing.VTimeInCycle) error {
	if c.fail {
		return errors.New("broken")
	}

	src := state.PeekAs[regState](c.states, c.source)
	next := state.StageAs[regState](c.states, c.Name())
	next.Value = src.Value + 1

	return nil
}

func (c *copier) Commit(_ timing.VTimeInCycle) {
	c.commits++
}

func (c *copier) Reset() {
	*state.StageAs[regState](c.states, c.Name()) = regState{}
}

func (c *copier) value() int {
	return state.PeekAs[regState](c.states, c.Name()).Value
}

var _ = Describe("Simulation", func() {
	var (
		s    *Simulation
		a, b *copier
	)

	BeforeEach(func() {
		s = NewSimulation()
		a = newCopier("A", "B", s.States())
		b = newCopier("B", "A", s.States())
		s.RegisterComponent(a)
		s.RegisterComponent(b)
	})

	It("should have an id", func() {
		Expect(s.ID()).NotTo(BeEmpty())
	})

	It("should find components by name", func() {
		Expect(s.GetComponentByName("A")).To(BeIdenticalTo(a))
		Expect(s.GetComponentByName("C")).To(BeNil())
		Expect(s.Components()).To(HaveLen(2))
	})

	It("should panic on duplicated names", func() {
		Expect(func() { s.RegisterComponent(a) }).To(Panic())
	})

	It("should compute from the frozen current state", func() {
		Expect(s.Step()).To(Succeed())

		Expect(a.value()).To(Equal(1))
		Expect(b.value()).To(Equal(1))

		Expect(s.Step()).To(Succeed())

		Expect(a.value()).To(Equal(2))
		Expect(b.value()).To(Equal(2))
		Expect(a.commits).To(Equal(2))
		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(2)))
	})

	It("should discard staged states when a component fails", func() {
		b.fail = true

		err := s.Step()

		Expect(err).To(MatchError(ContainSubstring("broken")))
		Expect(a.value()).To(Equal(0))
		Expect(s.States().HasStaged("A")).To(BeFalse())
		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(0)))
	})

	It("should run a number of cycles", func() {
		Expect(s.Run(5)).To(Succeed())

		Expect(a.value()).To(Equal(5))
		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(5)))

		Expect(s.Run(3)).To(Succeed())

		Expect(a.value()).To(Equal(8))
	})

	It("should run until a condition holds", func() {
		err := s.RunUntil(func() bool { return a.value() >= 4 }, 100)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(4)))
	})

	It("should report the cycle limit", func() {
		err := s.RunUntil(func() bool { return false }, 3)

		Expect(errors.Is(err, ErrCycleLimit)).To(BeTrue())
		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(3)))
	})

	It("should stop when asked", func() {
		s.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosTickEnd && ctx.Item == timing.VTimeInCycle(1) {
				s.Stop()
			}
		}))

		Expect(s.Run(10)).To(Succeed())

		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(2)))
	})

	It("should reset", func() {
		Expect(s.Run(4)).To(Succeed())

		s.Reset()

		Expect(a.value()).To(Equal(0))
		Expect(b.value()).To(Equal(0))
		Expect(s.Cycle()).To(Equal(timing.VTimeInCycle(0)))

		Expect(s.Run(2)).To(Succeed())
		Expect(a.value()).To(Equal(2))
	})

	It("should invoke tick hooks", func() {
		var begins, ends []any

		s.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			switch ctx.Pos {
			case HookPosTickBegin:
				begins = append(begins, ctx.Item)
			case HookPosTickEnd:
				ends = append(ends, ctx.Item)
			}
		}))

		Expect(s.Run(2)).To(Succeed())

		Expect(begins).To(Equal([]any{
			timing.VTimeInCycle(0), timing.VTimeInCycle(1)}))
		Expect(ends).To(Equal(begins))
	})
})

var _ = Describe("Naming", func() {
	It("should accept valid names", func() {
		Expect(func() { NameMustBeValid("Sys.DMA") }).NotTo(Panic())
		Expect(func() { NameMustBeValid("Sys.Mem[0][1]") }).NotTo(Panic())
	})

	It("should reject invalid names", func() {
		Expect(func() { NameMustBeValid("Sys..DMA") }).To(Panic())
		Expect(func() { NameMustBeValid("sys") }).To(Panic())
		Expect(func() { NameMustBeValid("Sys_DMA") }).To(Panic())
		Expect(func() { NameMustBeValid("Mem[x]") }).To(Panic())
		Expect(func() { NameMustBeValid("Mem[0") }).To(Panic())
	})

	It("should build names", func() {
		Expect(BuildName("", "Sys")).To(Equal("Sys"))
		Expect(BuildName("Sys", "DMA")).To(Equal("Sys.DMA"))
		Expect(BuildNameWithIndex("Sys", "Mem", 2)).To(Equal("Sys.Mem[2]"))
	})
})
