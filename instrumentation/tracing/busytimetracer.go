package tracing

import (
	"sort"

	"github.com/sarchlab/axidma/timing"
)

type taskSpan struct {
	start, end timing.VTimeInCycle
}

// BusyTimeTracer traces the time that a domain is processing a kind of task.
// If the task processing time overlaps, this tracer only consider one instance
// of the overlapped time.
type BusyTimeTracer struct {
	filter        TaskFilter
	inflightTasks map[string]timing.VTimeInCycle
	finished      []taskSpan
}

// NewBusyTimeTracer creates a new BusyTimeTracer
func NewBusyTimeTracer(filter TaskFilter) *BusyTimeTracer {
	return &BusyTimeTracer{
		filter:        filter,
		inflightTasks: make(map[string]timing.VTimeInCycle),
	}
}

// BusyTime returns the number of cycles in which at least one task was in
// flight. Only finished tasks are counted.
func (t *BusyTimeTracer) BusyTime() timing.VTimeInCycle {
	spans := append([]taskSpan(nil), t.finished...)
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	var busy timing.VTimeInCycle

	for i := 0; i < len(spans); {
		merged := spans[i]

		j := i + 1
		for ; j < len(spans) && spans[j].start <= merged.end; j++ {
			if spans[j].end > merged.end {
				merged.end = spans[j].end
			}
		}

		busy += merged.end - merged.start
		i = j
	}

	return busy
}

// TerminateAllTasks marks all the tasks in flight as finished at now.
func (t *BusyTimeTracer) TerminateAllTasks(now timing.VTimeInCycle) {
	for id, start := range t.inflightTasks {
		t.finished = append(t.finished, taskSpan{start: start, end: now})
		delete(t.inflightTasks, id)
	}
}

// StartTask records the task start time
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.inflightTasks[task.ID] = task.StartTime
}

// StepTask does nothing
func (t *BusyTimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *BusyTimeTracer) EndTask(task Task) {
	start, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, task.ID)
	t.finished = append(t.finished, taskSpan{start: start, end: task.EndTime})
}
