package dma

import (
	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/timing"
)

var (
	// HookPosStateChange is triggered when the control state machine moves to
	// another state. The item is a Transition.
	HookPosStateChange = &hooking.HookPos{Name: "DMA State Change"}

	// HookPosTransferStart is triggered when a transfer is loaded. The item
	// is a Descriptor.
	HookPosTransferStart = &hooking.HookPos{Name: "DMA Transfer Start"}

	// HookPosTransferEnd is triggered when a transfer completes or fails. The
	// item is a TransferResult.
	HookPosTransferEnd = &hooking.HookPos{Name: "DMA Transfer End"}

	// HookPosBurstStart is triggered when an address request is latched. The
	// item is a BurstInfo.
	HookPosBurstStart = &hooking.HookPos{Name: "DMA Burst Start"}

	// HookPosBurstEnd is triggered when a burst completes. The item is a
	// BurstInfo.
	HookPosBurstEnd = &hooking.HookPos{Name: "DMA Burst End"}

	// HookPosBeat is triggered on every data beat handshake. The item is a
	// BeatInfo.
	HookPosBeat = &hooking.HookPos{Name: "DMA Beat"}

	// HookPosIRQ is triggered when the interrupt line changes. The item is
	// the new level.
	HookPosIRQ = &hooking.HookPos{Name: "DMA IRQ"}
)

// Direction tells the read side from the write side.
type Direction int

// Directions.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirRead {
		return "read"
	}

	return "write"
}

// Transition describes a move of the control state machine.
type Transition struct {
	Cycle timing.VTimeInCycle
	From  TransferState
	To    TransferState
}

// TransferResult describes a finished transfer.
type TransferResult struct {
	Cycle  timing.VTimeInCycle
	Failed bool
}

// BurstInfo describes a burst.
type BurstInfo struct {
	Cycle     timing.VTimeInCycle
	Dir       Direction
	Addr      uint32
	Beats     int
	Burst     axi.BurstType
	FifoCount int
	Resp      axi.Resp
}

// BeatInfo describes one data beat.
type BeatInfo struct {
	Cycle timing.VTimeInCycle
	Dir   Direction
	Data  uint32
	Resp  axi.Resp
	Last  bool
}

type pendingHook struct {
	pos    *hooking.HookPos
	item   any
	detail any
}
