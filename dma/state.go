package dma

import (
	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/fifo"
)

// TransferState is the state of the transfer control state machine.
type TransferState int

// Transfer states.
const (
	Idle TransferState = iota
	CalcBurst
	ReadAddr
	ReadData
	WriteAddr
	WriteData
	WriteResp
	CheckDone
	Complete
	Error
)

var transferStateNames = [...]string{
	"IDLE",
	"CALC_BURST",
	"READ_ADDR",
	"READ_DATA",
	"WRITE_ADDR",
	"WRITE_DATA",
	"WRITE_RESP",
	"CHECK_DONE",
	"COMPLETE",
	"ERROR",
}

func (s TransferState) String() string {
	if s < 0 || int(s) >= len(transferStateNames) {
		return "UNKNOWN"
	}

	return transferStateNames[s]
}

// Busy tells if the state belongs to an active transfer.
func (s TransferState) Busy() bool {
	switch s {
	case Idle, Complete, Error:
		return false
	default:
		return true
	}
}

// AddrState is a read or write address channel process.
type AddrState struct {
	Active bool
	Req    axi.AddrChannel
}

// RState is the read data channel process.
type RState struct {
	Beats     int
	DonePulse bool
}

// WState is the write data channel process, including its output register.
type WState struct {
	Valid      bool
	Data       uint32
	Strb       uint8
	Last       bool
	Beat       int
	Popped     int
	PopPending bool
}

// BState is the write response channel process.
type BState struct {
	WaitResp  bool
	Resp      axi.Resp
	DonePulse bool
}

// BusState is the state of the bus master protocol adapter.
type BusState struct {
	AR       AddrState
	R        RState
	AW       AddrState
	W        WState
	B        BState
	BusError Latch
}

// Stats counts what the engine has done since reset.
type Stats struct {
	Transfers   uint64
	Errors      uint64
	ReadBursts  uint64
	WriteBursts uint64
	ReadBeats   uint64
	WriteBeats  uint64
	BusyCycles  uint64
	IRQCount    uint64
	WordsMoved  uint64
}

// State is the mutable runtime data of the DMA engine.
type State struct {
	Ctrl    TransferState
	Regs    Regs
	Tracker Tracker
	Plan    BurstPlan
	Bus     BusState
	Fifo    fifo.Buffer
	IRQ     bool
	Stats   Stats
}

// Clone returns a deep copy of the state.
func (s *State) Clone() any {
	c := *s
	c.Fifo = s.Fifo.Clone()

	return &c
}

func initialState(spec Spec) *State {
	return &State{
		Ctrl: Idle,
		Fifo: fifo.New(spec.FifoDepth),
	}
}
