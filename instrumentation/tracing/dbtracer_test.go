package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/axidma/datarecording"
	"go.uber.org/mock/gomock"
)

var _ = Describe("DBTracer", func() {
	var (
		path     string
		recorder datarecording.DataRecorder
		tracer   *DBTracer
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "trace")
		recorder = datarecording.NewWithDriver(path, datarecording.DriverPure)
		tracer = NewDBTracer(recorder)
	})

	query := func(table string, sample any) []any {
		r := datarecording.NewReaderWithDriver(
			path+".sqlite3", datarecording.DriverPure)
		defer r.Close()

		r.MapTable(table, sample)

		results, _, err := r.Query(context.Background(), table,
			datarecording.QueryParams{OrderBy: "rowid"})
		Expect(err).NotTo(HaveOccurred())

		return results
	}

	It("should write finished tasks and their steps", func() {
		tracer.StartTask(Task{ID: "1", Kind: "transfer", What: "copy",
			Where: "DMA", StartTime: 1})
		tracer.StartTask(Task{ID: "2", ParentID: "1", Kind: "burst",
			What: "read", Where: "DMA", StartTime: 2})
		tracer.StepTask(Task{ID: "2", Steps: []TaskStep{{Time: 4, What: "read beat"}}})
		tracer.EndTask(Task{ID: "2", EndTime: 5})
		tracer.StartTask(Task{ID: "3", Kind: "burst", What: "write",
			Where: "DMA", StartTime: 6})

		tracer.Terminate()
		Expect(recorder.Close()).To(Succeed())

		tasks := query(TaskTable, TaskEntry{})
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0]).To(Equal(&TaskEntry{
			ID: "2", ParentID: "1", Kind: "burst", What: "read",
			Location: "DMA", StartTime: 2, EndTime: 5,
		}))

		steps := query(StepTable, StepEntry{})
		Expect(steps).To(Equal([]any{
			&StepEntry{TaskID: "2", Time: 4, What: "read beat"},
		}))
	})

	It("should honor the time range", func() {
		tracer.SetTimeRange(10, 20)

		tracer.StartTask(Task{ID: "early", Kind: "k", What: "w", StartTime: 1})
		tracer.EndTask(Task{ID: "early", EndTime: 5})
		tracer.StartTask(Task{ID: "late", Kind: "k", What: "w", StartTime: 25})
		tracer.EndTask(Task{ID: "late", EndTime: 30})
		tracer.StartTask(Task{ID: "in", Kind: "k", What: "w", StartTime: 8})
		tracer.EndTask(Task{ID: "in", EndTime: 12})

		tracer.Terminate()
		Expect(recorder.Close()).To(Succeed())

		tasks := query(TaskTable, TaskEntry{})
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].(*TaskEntry).ID).To(Equal("in"))
	})
})

var _ = Describe("DBTracer with a mocked backend", func() {
	var (
		mockCtrl *gomock.Controller
		backend  *MockDataRecorder
		tracer   *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backend = NewMockDataRecorder(mockCtrl)
		backend.EXPECT().CreateTable(TaskTable, TaskEntry{})
		backend.EXPECT().CreateTable(StepTable, StepEntry{})

		tracer = NewDBTracer(backend)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should insert a task when it ends", func() {
		backend.EXPECT().InsertData(TaskTable, TaskEntry{
			ID: "1", Kind: "k", What: "w", Location: "E",
			StartTime: 1, EndTime: 3,
		})

		tracer.StartTask(Task{ID: "1", Kind: "k", What: "w", Where: "E",
			StartTime: 1})
		tracer.EndTask(Task{ID: "1", EndTime: 3})
	})

	It("should ignore unknown tasks", func() {
		tracer.StepTask(Task{ID: "x"})
		tracer.EndTask(Task{ID: "x", EndTime: 3})
	})

	It("should flush once on termination", func() {
		backend.EXPECT().Flush().Times(1)

		tracer.Terminate()
		tracer.Terminate()

		tracer.StartTask(Task{ID: "late", Kind: "k", What: "w"})
		tracer.EndTask(Task{ID: "late", EndTime: 1})
	})
})
