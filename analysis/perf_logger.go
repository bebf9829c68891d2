// Package analysis summarizes how the simulated hardware behaves over time,
// such as how full a buffer is on average in each sampling period.
package analysis

import (
	"github.com/sarchlab/axidma/datarecording"
)

// PerfTable is the table that DBPerfLogger writes to.
const PerfTable = "perf"

// PerfAnalyzerEntry is a single performance data point covering the cycles
// [Start, End).
type PerfAnalyzerEntry struct {
	Start uint64
	End   uint64
	Where string
	What  string
	Value float64
	Unit  string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

// DBPerfLogger stores performance entries with a data recorder.
type DBPerfLogger struct {
	recorder datarecording.DataRecorder
}

// NewDBPerfLogger creates the perf table in the recorder and returns a
// logger that writes to it.
func NewDBPerfLogger(recorder datarecording.DataRecorder) *DBPerfLogger {
	recorder.CreateTable(PerfTable, PerfAnalyzerEntry{})

	return &DBPerfLogger{recorder: recorder}
}

// AddDataEntry inserts the entry into the perf table.
func (l *DBPerfLogger) AddDataEntry(entry PerfAnalyzerEntry) {
	l.recorder.InsertData(PerfTable, entry)
}
