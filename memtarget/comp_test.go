package memtarget

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/sim"
)

type scriptedMaster struct {
	sig axi.MasterSignals
}

func (m *scriptedMaster) MasterSignals() axi.MasterSignals {
	return m.sig
}

var _ = Describe("Comp", func() {
	var (
		s      *sim.Simulation
		master *scriptedMaster
		target *Comp
	)

	build := func(b Builder) {
		s = sim.NewSimulation()
		master = &scriptedMaster{}
		target = b.WithSimulation(s).Build("Mem")
		target.ConnectMaster(master)
		s.RegisterComponent(target)
	}

	step := func() {
		Expect(s.Step()).To(Succeed())
	}

	BeforeEach(func() {
		build(MakeBuilder().
			WithNewStorage(256).
			WithReadLatency(0).
			WithWriteLatency(0))
	})

	It("should panic on invalid spec", func() {
		Expect(func() {
			MakeBuilder().WithNewStorage(0).WithSimulation(s).Build("Bad")
		}).To(Panic())
	})

	It("should fail to compute without a master", func() {
		t := MakeBuilder().WithSimulation(s).Build("Lonely")

		Expect(t.Compute(0)).NotTo(Succeed())
	})

	It("should serve an incrementing read burst", func() {
		Expect(target.Load(0x10, []byte{1, 0, 0, 0, 2, 0, 0, 0})).To(Succeed())

		master.sig.AR = axi.AddrChannel{
			Valid: true, Addr: 0x10, Len: 1, Size: 2, Burst: axi.BurstIncr}
		Expect(target.SlaveSignals().ARReady).To(BeTrue())
		step()

		master.sig = axi.MasterSignals{RReady: true}
		Expect(target.SlaveSignals().ARReady).To(BeFalse())
		step()

		r := target.SlaveSignals().R
		Expect(r.Valid).To(BeTrue())
		Expect(r.Data).To(Equal(uint32(1)))
		Expect(r.Last).To(BeFalse())
		step()

		r = target.SlaveSignals().R
		Expect(r.Data).To(Equal(uint32(2)))
		Expect(r.Last).To(BeTrue())
		Expect(r.Resp).To(Equal(axi.OKAY))
		step()

		Expect(target.SlaveSignals().R.Valid).To(BeFalse())
		Expect(target.SlaveSignals().ARReady).To(BeTrue())
		Expect(target.Stats().ReadBeats).To(Equal(uint64(2)))
		Expect(target.Bursts()).To(HaveLen(1))
		Expect(target.Bursts()[0].IsRead).To(BeTrue())
		Expect(target.Bursts()[0].Beats).To(Equal(2))
	})

	It("should hold a read beat until it is accepted", func() {
		master.sig.AR = axi.AddrChannel{Valid: true, Addr: 0, Size: 2}
		step()

		master.sig = axi.MasterSignals{}
		step()
		step()

		r := target.SlaveSignals().R
		Expect(r.Valid).To(BeTrue())
		Expect(r.Last).To(BeTrue())
	})

	It("should wait for the read latency", func() {
		build(MakeBuilder().WithNewStorage(256).WithReadLatency(3))

		master.sig.AR = axi.AddrChannel{Valid: true, Addr: 0, Size: 2}
		step()

		master.sig = axi.MasterSignals{RReady: true}
		for i := 0; i < 3; i++ {
			step()
			Expect(target.SlaveSignals().R.Valid).To(BeFalse())
		}

		step()
		Expect(target.SlaveSignals().R.Valid).To(BeTrue())
	})

	It("should answer DECERR beyond capacity", func() {
		master.sig.AR = axi.AddrChannel{Valid: true, Addr: 254, Size: 2}
		step()

		master.sig = axi.MasterSignals{RReady: true}
		step()

		Expect(target.SlaveSignals().R.Resp).To(Equal(axi.DECERR))
	})

	It("should apply write beats at commit", func() {
		var applied []MemWrite

		target.AcceptHook(hookFunc(func(w MemWrite) {
			applied = append(applied, w)
		}))

		master.sig.AW = axi.AddrChannel{Valid: true, Addr: 0x20, Size: 1,
			Burst: axi.BurstFixed}
		step()

		master.sig = axi.MasterSignals{}
		Expect(target.SlaveSignals().WReady).To(BeTrue())

		master.sig.W = axi.WChannel{
			Valid: true, Data: 0xbeef, Strb: 0x3, Last: true}
		step()

		data, _ := target.Dump(0x20, 2)
		Expect(data).To(Equal([]byte{0xef, 0xbe}))
		Expect(applied).To(HaveLen(1))

		b := target.SlaveSignals().B
		Expect(b.Valid).To(BeTrue())
		Expect(b.Resp).To(Equal(axi.OKAY))
		Expect(target.SlaveSignals().WReady).To(BeFalse())

		master.sig = axi.MasterSignals{BReady: true}
		step()

		Expect(target.SlaveSignals().B.Valid).To(BeFalse())
		Expect(target.SlaveSignals().AWReady).To(BeTrue())
	})

	It("should honor the write strobe", func() {
		Expect(target.Load(0, []byte{9, 9, 9, 9})).To(Succeed())

		master.sig.AW = axi.AddrChannel{Valid: true, Addr: 0, Size: 2}
		step()

		master.sig = axi.MasterSignals{W: axi.WChannel{
			Valid: true, Data: 0x04030201, Strb: 0x5, Last: true}}
		step()

		data, _ := target.Dump(0, 4)
		Expect(data).To(Equal([]byte{1, 9, 3, 9}))
	})

	It("should inject faults on writes", func() {
		target.AddFault(Fault{
			Start: 0x40, End: 0x44, Write: true, Resp: axi.SLVERR})

		master.sig.AW = axi.AddrChannel{Valid: true, Addr: 0x40, Size: 2}
		step()

		master.sig = axi.MasterSignals{W: axi.WChannel{
			Valid: true, Data: 7, Strb: 0xf, Last: true}}
		step()

		Expect(target.SlaveSignals().B.Resp).To(Equal(axi.SLVERR))

		data, _ := target.Dump(0x40, 4)
		Expect(data).To(Equal([]byte{0, 0, 0, 0}))
		Expect(target.Stats().ErrorResps).To(Equal(uint64(1)))
	})

	It("should flag a misplaced last beat", func() {
		master.sig.AW = axi.AddrChannel{Valid: true, Addr: 0, Len: 1, Size: 2}
		step()

		master.sig = axi.MasterSignals{W: axi.WChannel{
			Valid: true, Data: 7, Strb: 0xf, Last: true}}
		step()

		Expect(target.SlaveSignals().B.Resp).To(Equal(axi.SLVERR))
	})

	It("should reset to idle and keep memory", func() {
		Expect(target.Load(0, []byte{5})).To(Succeed())

		master.sig.AR = axi.AddrChannel{Valid: true, Addr: 0, Size: 0}
		step()

		s.Reset()

		Expect(target.SlaveSignals().ARReady).To(BeTrue())
		Expect(target.Bursts()).To(BeEmpty())

		data, _ := target.Dump(0, 1)
		Expect(data).To(Equal([]byte{5}))
	})
})

var _ = Describe("Spec", func() {
	It("should reject bad faults", func() {
		spec := Defaults()
		spec.Faults = []Fault{{Start: 4, End: 4, Read: true, Resp: axi.SLVERR}}
		Expect(spec.Validate()).NotTo(Succeed())

		spec.Faults = []Fault{{Start: 0, End: 4, Read: true, Resp: axi.OKAY}}
		Expect(spec.Validate()).NotTo(Succeed())
	})

	It("should reject negative latency", func() {
		spec := Defaults()
		spec.ReadLatency = -1
		Expect(spec.Validate()).NotTo(Succeed())
	})
})
