package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/browser"
	"github.com/sarchlab/axidma/analysis"
	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/datarecording"
	"github.com/sarchlab/axidma/dma"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/instrumentation/tracing"
	"github.com/sarchlab/axidma/memtarget"
	"github.com/sarchlab/axidma/monitoring"
	"github.com/sarchlab/axidma/system"
	"github.com/sarchlab/axidma/timing"
	"github.com/spf13/cobra"
)

type runConfig struct {
	desc      dma.Descriptor
	intEnable bool
	seed      uint8

	dmaSpec      dma.Spec
	memSize      uint64
	readLatency  int
	writeLatency int
	faults       []memtarget.Fault

	maxCycles     uint64
	freqMHz       float64
	checkProtocol bool
	verify        bool

	verbose     bool
	monitor     bool
	monitorPort int
	openMonitor bool
	record      string
	pureSQLite  bool
	perfPeriod  uint64
}

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Run one transfer and report the result.",
		Long: `Run fills the source region with a byte pattern, programs the ` +
			`DMA registers, runs the clock until the engine reports done or ` +
			`error, and checks the destination region.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readRunConfig(cmd)
			if err != nil {
				return err
			}

			return runTransfer(cfg, cmd.OutOrStdout())
		},
	}

	f := c.Flags()
	f.Uint32("src", 0x0, "Source address")
	f.Uint32("dst", 0x1000, "Destination address")
	f.Uint16("length", 64, "Number of words to move")
	f.Int("width", 4, "Bytes per word, one of 1, 2, 4")
	f.Bool("src-inc", true, "Increment the source address")
	f.Bool("dst-inc", true, "Increment the destination address")
	f.Bool("burst", true, "Enable bursts")
	f.Bool("int-enable", false, "Raise the interrupt line on completion")
	f.Uint8("seed", 1, "Seed of the source byte pattern")

	defaults := dma.Defaults()
	f.Int("fifo-depth", defaults.FifoDepth, "Depth of the elastic buffer")
	f.Int("max-burst-len", defaults.MaxBurstLen,
		"Largest burst length field (beats minus one)")
	f.Int("min-burst-len", defaults.MinBurstLen,
		"Remaining words below which bursts are no longer capped")

	memDefaults := memtarget.Defaults()
	f.Uint64("mem-size", memDefaults.CapacityBytes, "Memory size in bytes")
	f.Int("read-latency", memDefaults.ReadLatency,
		"Cycles from read address to first beat")
	f.Int("write-latency", memDefaults.WriteLatency,
		"Cycles from write address to first WREADY")
	f.StringArray("fault", nil,
		"Fault window START:END:r|w|rw:RESP, such as 0x100:0x140:w:slverr")

	f.Uint64("max-cycles", 100000, "Give up after this many cycles")
	f.Float64("freq", 1000, "Clock frequency in MHz, used for reporting")
	f.Bool("check-protocol", true, "Check the bus handshake rules")
	f.Bool("verify", true, "Compare the destination with a reference copy")

	f.BoolP("verbose", "v", false, "Print every tick and state transition")
	f.Bool("monitor", false, "Serve the monitoring web page")
	f.Int("monitor-port", 0, "Port of the monitoring server, 0 for random")
	f.Bool("open-monitor", false, "Open the monitoring page in a browser")
	f.String("record", "",
		"Record transfer and burst tasks into FILE.sqlite3")
	f.Bool("pure-sqlite", false,
		"Record with the pure Go SQLite driver instead of the CGo one")
	f.Uint64("perf-period", 16,
		"Cycles per recorded FIFO level average, 0 for one average")

	return c
}

func readRunConfig(cmd *cobra.Command) (runConfig, error) {
	f := cmd.Flags()
	cfg := runConfig{}

	cfg.desc.Src, _ = f.GetUint32("src")
	cfg.desc.Dst, _ = f.GetUint32("dst")
	cfg.desc.Length, _ = f.GetUint16("length")
	cfg.desc.Width, _ = f.GetInt("width")
	cfg.desc.SrcInc, _ = f.GetBool("src-inc")
	cfg.desc.DstInc, _ = f.GetBool("dst-inc")
	cfg.desc.BurstEnable, _ = f.GetBool("burst")
	cfg.intEnable, _ = f.GetBool("int-enable")
	cfg.seed, _ = f.GetUint8("seed")

	cfg.dmaSpec.FifoDepth, _ = f.GetInt("fifo-depth")
	cfg.dmaSpec.MaxBurstLen, _ = f.GetInt("max-burst-len")
	cfg.dmaSpec.MinBurstLen, _ = f.GetInt("min-burst-len")

	cfg.memSize, _ = f.GetUint64("mem-size")
	cfg.readLatency, _ = f.GetInt("read-latency")
	cfg.writeLatency, _ = f.GetInt("write-latency")

	faults, _ := f.GetStringArray("fault")
	for _, s := range faults {
		fault, err := parseFault(s)
		if err != nil {
			return cfg, err
		}

		cfg.faults = append(cfg.faults, fault)
	}

	cfg.maxCycles, _ = f.GetUint64("max-cycles")
	cfg.freqMHz, _ = f.GetFloat64("freq")
	cfg.checkProtocol, _ = f.GetBool("check-protocol")
	cfg.verify, _ = f.GetBool("verify")

	cfg.verbose, _ = f.GetBool("verbose")
	cfg.monitor, _ = f.GetBool("monitor")
	cfg.monitorPort, _ = f.GetInt("monitor-port")
	cfg.openMonitor, _ = f.GetBool("open-monitor")
	cfg.record, _ = f.GetString("record")
	cfg.pureSQLite, _ = f.GetBool("pure-sqlite")
	cfg.perfPeriod, _ = f.GetUint64("perf-period")

	return cfg, cfg.validate()
}

func (c runConfig) validate() error {
	switch c.desc.Width {
	case 1, 2, 4:
	default:
		return fmt.Errorf("width must be 1, 2, or 4, got %d", c.desc.Width)
	}

	if err := c.dmaSpec.Validate(); err != nil {
		return err
	}

	return timing.Freq(c.freqMHz * float64(timing.MHz)).Validate()
}

// parseFault parses START:END:r|w|rw:RESP.
func parseFault(s string) (memtarget.Fault, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return memtarget.Fault{},
			fmt.Errorf("fault %q: want START:END:r|w|rw:RESP", s)
	}

	start, err := strconv.ParseUint(parts[0], 0, 64)
	if err != nil {
		return memtarget.Fault{}, fmt.Errorf("fault %q: %w", s, err)
	}

	end, err := strconv.ParseUint(parts[1], 0, 64)
	if err != nil {
		return memtarget.Fault{}, fmt.Errorf("fault %q: %w", s, err)
	}

	if end <= start {
		return memtarget.Fault{}, fmt.Errorf("fault %q: empty window", s)
	}

	dir := strings.ToLower(parts[2])
	if dir != "r" && dir != "w" && dir != "rw" {
		return memtarget.Fault{},
			fmt.Errorf("fault %q: direction must be r, w, or rw", s)
	}

	resp, err := axi.ParseResp(parts[3])
	if err != nil {
		return memtarget.Fault{}, fmt.Errorf("fault %q: %w", s, err)
	}

	return memtarget.Fault{
		Start: start,
		End:   end,
		Read:  strings.Contains(dir, "r"),
		Write: strings.Contains(dir, "w"),
		Resp:  resp,
	}, nil
}

func buildSystem(cfg runConfig) *system.System {
	b := system.MakeBuilder().
		WithDMASpec(cfg.dmaSpec).
		WithMemCapacity(cfg.memSize).
		WithReadLatency(cfg.readLatency).
		WithWriteLatency(cfg.writeLatency)

	for _, f := range cfg.faults {
		b = b.WithFault(f)
	}

	if cfg.checkProtocol {
		b = b.WithProtocolChecker()
	}

	return b.Build("Sys")
}

func runTransfer(cfg runConfig, out io.Writer) error {
	sys := buildSystem(cfg)
	d := cfg.desc

	err := sys.Fill(uint64(d.Src), int(system.Span(d, d.SrcInc)), cfg.seed)
	if err != nil {
		return err
	}

	if cfg.verbose {
		logger := log.New(os.Stderr, "", 0)
		sys.Sim.Engine().AcceptHook(timing.NewEventLogger(logger))
		sys.DMA.AcceptHook(dma.NewStateLogger(logger))
	}

	if cfg.record != "" {
		recorder, err := openRecorder(cfg)
		if err != nil {
			return err
		}

		tracer := tracing.NewDBTracer(recorder)
		tracing.CollectTrace(sys.DMA, tracer)

		fifo := analysis.MakeBufferAnalyzerBuilder().
			WithBuffer(sys.DMA.FIFO()).
			WithPerfLogger(analysis.NewDBPerfLogger(recorder)).
			WithPeriod(timing.VTimeInCycle(cfg.perfPeriod)).
			Build()
		sys.Sim.AcceptHook(fifo)

		defer func() {
			fifo.Summarize(sys.Sim.Cycle())
			tracer.Terminate()
			if err := recorder.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "closing %s: %v\n", cfg.record, err)
			}
		}()
	}

	if cfg.monitor || cfg.openMonitor {
		startMonitor(sys, cfg)
	}

	want, err := sys.ExpectedDestination(d)
	if err != nil {
		return err
	}

	res, err := sys.Transfer(d, cfg.intEnable, cfg.maxCycles)
	if err != nil && !errors.Is(err, system.ErrTransferFailed) {
		return err
	}

	report(out, sys, cfg, res)

	if err != nil {
		return err
	}

	if perr := sys.ProtocolError(); perr != nil {
		return perr
	}

	if cfg.verify {
		if err := sys.CheckDestination(d, want); err != nil {
			return err
		}

		fmt.Fprintln(out, "verify:   ok")
	}

	return nil
}

func openRecorder(cfg runConfig) (datarecording.DataRecorder, error) {
	filename := cfg.record + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("record file %s already exists", filename)
	}

	driver := datarecording.DriverCGo
	if cfg.pureSQLite {
		driver = datarecording.DriverPure
	}

	return datarecording.NewWithDriver(cfg.record, driver), nil
}

func startMonitor(sys *system.System, cfg runConfig) {
	m := monitoring.NewMonitor().WithPortNumber(cfg.monitorPort)
	m.RegisterSimulation(sys.Sim)
	m.RegisterBuffer(sys.DMA.FIFO())

	bar := m.CreateProgressBar("Transfer", uint64(cfg.desc.Length))
	sys.DMA.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos != dma.HookPosBeat {
			return
		}

		if ctx.Item.(dma.BeatInfo).Dir == dma.DirRead {
			bar.IncrementInProgress(1)
		} else {
			bar.MoveInProgressToFinished(1)
		}
	}))

	url := m.StartServer()

	if cfg.openMonitor {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "cannot open browser: %v\n", err)
		}
	}
}

func report(out io.Writer, sys *system.System, cfg runConfig, res system.Result) {
	freq := timing.Freq(cfg.freqMHz * float64(timing.MHz))
	stats := sys.DMA.Stats()
	seconds := freq.CyclesToSeconds(timing.VTimeInCycle(res.Cycles))

	status := "done"
	if res.Failed() {
		status = "error"
	}

	fmt.Fprintf(out, "transfer: %s\n", cfg.desc)
	fmt.Fprintf(out, "status:   %s (0x%02x)\n", status, res.Status)
	fmt.Fprintf(out, "cycles:   %d (%.3g s at %g MHz)\n",
		res.Cycles, float64(seconds), cfg.freqMHz)
	fmt.Fprintf(out, "bursts:   %d read, %d write\n",
		stats.ReadBursts, stats.WriteBursts)
	fmt.Fprintf(out, "beats:    %d read, %d write\n",
		stats.ReadBeats, stats.WriteBeats)
	fmt.Fprintf(out, "irq:      %v (%d raised)\n", sys.DMA.IRQ(), stats.IRQCount)
}
