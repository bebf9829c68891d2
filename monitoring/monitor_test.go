package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/axidma/dma"
	"github.com/sarchlab/axidma/system"
)

type fakeBuffer struct {
	name      string
	size, cap int
}

func (b fakeBuffer) Name() string  { return b.name }
func (b fakeBuffer) Size() int     { return b.size }
func (b fakeBuffer) Capacity() int { return b.cap }

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
}

var _ = Describe("Monitor", func() {
	var (
		sys    *system.System
		m      *Monitor
		server *httptest.Server
	)

	BeforeEach(func() {
		sys = system.MakeBuilder().Build("Sys")

		m = NewMonitor().WithProfileDuration(10 * time.Millisecond)
		m.RegisterSimulation(sys.Sim)
		m.RegisterBuffer(sys.DMA.FIFO())

		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	get := func(path string) (int, []byte) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, body
	}

	getJSON := func(path string, v any) {
		code, body := get(path)
		Expect(code).To(Equal(http.StatusOK), string(body))
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	It("should report the current cycle", func() {
		Expect(sys.Sim.Run(5)).To(Succeed())

		var rsp nowRsp
		getJSON("/api/now", &rsp)

		Expect(rsp.Now).To(Equal(uint64(5)))
		Expect(rsp.Paused).To(BeFalse())
	})

	It("should step the simulation", func() {
		var rsp nowRsp
		getJSON("/api/step", &rsp)

		Expect(rsp.Now).To(Equal(uint64(1)))
		Expect(sys.Sim.Cycle()).To(BeEquivalentTo(1))
	})

	It("should run in the background", func() {
		code, _ := get("/api/run?cycles=10")
		Expect(code).To(Equal(http.StatusAccepted))

		Eventually(func() uint64 {
			var rsp nowRsp
			getJSON("/api/now", &rsp)

			if rsp.Running {
				return 0
			}

			return rsp.Now
		}).Should(Equal(uint64(10)))
	})

	It("should reject a run without cycles", func() {
		code, _ := get("/api/run")
		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should pause and continue the engine", func() {
		get("/api/pause")
		Expect(sys.Sim.Engine().IsPaused()).To(BeTrue())

		get("/api/continue")
		Expect(sys.Sim.Engine().IsPaused()).To(BeFalse())
	})

	It("should list components", func() {
		var names []string
		getJSON("/api/list_components", &names)

		Expect(names).To(Equal([]string{"Sys.DMA", "Sys.Mem"}))
	})

	It("should return 404 for unknown components", func() {
		code, _ := get("/api/component/Nope")
		Expect(code).To(Equal(http.StatusNotFound))

		code, _ = get("/api/state/Nope")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should serialize a component", func() {
		code, body := get("/api/component/Sys.DMA")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should report the registers", func() {
		Expect(sys.DMA.WriteReg(dma.RegSrcAddr, 0x1234)).To(Succeed())
		Expect(sys.Sim.Step()).To(Succeed())

		var regs []registerRsp
		getJSON("/api/regs/Sys.DMA", &regs)

		Expect(regs).To(HaveLen(len(dma.RegisterMap())))
		Expect(regs[0].Name).To(Equal("SRC_ADDR"))
		Expect(regs[0].Value).To(Equal(uint32(0x1234)))

		code, _ := get("/api/regs/Sys.Mem")
		Expect(code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should report a state field", func() {
		Expect(sys.DMA.WriteReg(dma.RegLength, 7)).To(Succeed())
		Expect(sys.Sim.Step()).To(Succeed())

		var length uint16
		getJSON("/api/state/Sys.DMA?field=Regs.Length", &length)
		Expect(length).To(Equal(uint16(7)))

		code, _ := get("/api/state/Sys.DMA?field=Nope")
		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should report buffers", func() {
		var rsp []bufferRsp
		getJSON("/api/hangdetector/buffers", &rsp)

		Expect(rsp).To(Equal([]bufferRsp{
			{Buffer: "Sys.DMA.FIFO", Level: 0, Cap: 32},
		}))

		code, _ := get("/api/hangdetector/buffers?sort=name")
		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("should report progress bars", func() {
		bar := m.CreateProgressBar("copy", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		var bars []ProgressBar
		getJSON("/api/progress", &bars)

		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("copy"))
		Expect(bars[0].Finished).To(Equal(uint64(3)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		getJSON("/api/progress", &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should report resources", func() {
		var rsp resourceRsp
		getJSON("/api/resource", &rsp)

		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		code, body := get("/api/profile")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should serve the web page", func() {
		code, body := get("/")

		Expect(code).To(Equal(http.StatusOK))
		Expect(string(body)).To(HavePrefix("<!DOCTYPE html>"))
	})
})

var _ = Describe("Buffer sorting", func() {
	var m *Monitor

	BeforeEach(func() {
		m = NewMonitor()
		m.RegisterBuffer(fakeBuffer{"A", 4, 8})
		m.RegisterBuffer(fakeBuffer{"B", 6, 32})
		m.RegisterBuffer(fakeBuffer{"C", 1, 1})
	})

	names := func(bs []Buffer) []string {
		out := []string{}
		for _, b := range bs {
			out = append(out, b.Name())
		}

		return out
	}

	It("should sort by percent", func() {
		Expect(names(m.sortAndSelectBuffers("percent", 0, 0))).
			To(Equal([]string{"C", "A", "B"}))
	})

	It("should sort by level", func() {
		Expect(names(m.sortAndSelectBuffers("level", 0, 0))).
			To(Equal([]string{"B", "A", "C"}))
	})

	It("should page the result", func() {
		Expect(names(m.sortAndSelectBuffers("level", 1, 1))).
			To(Equal([]string{"A"}))
		Expect(names(m.sortAndSelectBuffers("level", 5, 9))).To(BeEmpty())
	})
})

var _ = Describe("Field walking", func() {
	It("should walk int fields", func() {
		elem, err := walkFields(&sampleStruct{Field1: 1}, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{Field3: &sampleStruct{Field2: "abc"}}

		elem, err := walkFields(s, "Field3.Field2")

		Expect(err).To(BeNil())
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk slices recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{{Field1: 1}},
			}, {}},
		}

		elem, err := walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should reject bad paths", func() {
		s := &sampleStruct{Field4: []sampleStruct{{}}}

		_, err := walkFields(s, "Field4.7")
		Expect(err).To(MatchError(errFieldFormat))

		_, err = walkFields(s, "Field1.X")
		Expect(err).To(MatchError(errFieldFormat))

		_, err = walkFields(s, "Missing")
		Expect(err).To(MatchError(errFieldFormat))
	})
})
