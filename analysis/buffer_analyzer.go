package analysis

import (
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/sim"
	"github.com/sarchlab/axidma/timing"
	"github.com/tebeka/atexit"
)

// Buffer is a queue whose occupancy can be sampled.
type Buffer interface {
	Name() string
	Size() int
}

// BufferAnalyzer tracks the time-weighted average level of a buffer. Attach
// it to a simulation and it samples the buffer at the end of every tick.
type BufferAnalyzer struct {
	buf    Buffer
	logger PerfLogger
	period timing.VTimeInCycle

	periodStart timing.VTimeInCycle
	lastTime    timing.VTimeInCycle
	lastLevel   int
	levelTime   map[int]timing.VTimeInCycle
}

// Func samples the buffer when a tick ends.
func (b *BufferAnalyzer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != sim.HookPosTickEnd {
		return
	}

	now, ok := ctx.Item.(timing.VTimeInCycle)
	if !ok {
		return
	}

	b.Sample(now + 1)
}

// Sample records the current buffer level as of cycle now. The level seen by
// the previous sample is assumed to have held until now.
func (b *BufferAnalyzer) Sample(now timing.VTimeInCycle) {
	b.advance(now)
	b.lastLevel = b.buf.Size()
}

// Summarize writes out the average level since the last completed period.
func (b *BufferAnalyzer) Summarize(now timing.VTimeInCycle) {
	b.advance(now)
	b.flush(b.periodStart, now)
	b.periodStart = now
}

func (b *BufferAnalyzer) advance(now timing.VTimeInCycle) {
	if now < b.lastTime {
		return
	}

	for b.period > 0 {
		end := b.periodStart + b.period
		if now < end {
			break
		}

		b.levelTime[b.lastLevel] += end - b.lastTime
		b.lastTime = end
		b.flush(b.periodStart, end)
		b.periodStart = end
	}

	b.levelTime[b.lastLevel] += now - b.lastTime
	b.lastTime = now
}

func (b *BufferAnalyzer) flush(start, end timing.VTimeInCycle) {
	sumLevel := 0.0
	sumDuration := 0.0

	for level, duration := range b.levelTime {
		sumLevel += float64(level) * float64(duration)
		sumDuration += float64(duration)
	}

	clear(b.levelTime)

	if sumDuration == 0 {
		return
	}

	avg := sumLevel / sumDuration
	if avg == 0 {
		return
	}

	b.logger.AddDataEntry(PerfAnalyzerEntry{
		Start: uint64(start),
		End:   uint64(end),
		Where: b.buf.Name(),
		What:  "buffer_level",
		Value: avg,
		Unit:  "beats",
	})
}

// BufferAnalyzerBuilder can build a BufferAnalyzer.
type BufferAnalyzerBuilder struct {
	logger     PerfLogger
	period     timing.VTimeInCycle
	buf        Buffer
	timeTeller func() timing.VTimeInCycle
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{}
}

// WithPerfLogger sets the logger that receives the averages.
func (b BufferAnalyzerBuilder) WithPerfLogger(
	logger PerfLogger,
) BufferAnalyzerBuilder {
	b.logger = logger
	return b
}

// WithPeriod sets the length of a sampling period in cycles. A zero period
// reports a single average when the analyzer is summarized.
func (b BufferAnalyzerBuilder) WithPeriod(
	period timing.VTimeInCycle,
) BufferAnalyzerBuilder {
	b.period = period
	return b
}

// WithBuffer sets the buffer to analyze.
func (b BufferAnalyzerBuilder) WithBuffer(buf Buffer) BufferAnalyzerBuilder {
	b.buf = buf
	return b
}

// WithSummarizeAtExit makes the analyzer summarize itself at program exit,
// using now to learn the final cycle.
func (b BufferAnalyzerBuilder) WithSummarizeAtExit(
	now func() timing.VTimeInCycle,
) BufferAnalyzerBuilder {
	b.timeTeller = now
	return b
}

// Build creates the BufferAnalyzer.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	if b.buf == nil {
		panic("buffer analyzer requires a buffer")
	}

	if b.logger == nil {
		panic("buffer analyzer requires a perf logger")
	}

	a := &BufferAnalyzer{
		buf:       b.buf,
		logger:    b.logger,
		period:    b.period,
		levelTime: make(map[int]timing.VTimeInCycle),
	}

	if b.timeTeller != nil {
		now := b.timeTeller
		atexit.Register(func() { a.Summarize(now()) })
	}

	return a
}
