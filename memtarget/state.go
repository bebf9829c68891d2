package memtarget

import "github.com/sarchlab/axidma/axi"

// readState is the read side of the target.
type readState struct {
	Active bool
	Req    axi.AddrChannel
	Wait   int
	Beat   int
	Out    axi.RChannel
}

// writeState is the write side of the target.
type writeState struct {
	Active bool
	Req    axi.AddrChannel
	Wait   int
	Beat   int
	Resp   axi.Resp
	B      axi.BChannel
}

// Stats counts the traffic served by the target.
type Stats struct {
	ReadBursts  uint64
	WriteBursts uint64
	ReadBeats   uint64
	WriteBeats  uint64
	ErrorResps  uint64
}

// State is the mutable runtime data of the target. The memory content lives
// in the storage and is updated in the commit phase.
type State struct {
	Read  readState
	Write writeState
	Stats Stats
}

// Clone returns a copy of the state.
func (s *State) Clone() any {
	c := *s
	return &c
}
