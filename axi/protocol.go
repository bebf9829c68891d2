// Package axi defines the five-channel burst bus spoken between the DMA
// master and the memory target.
//
// Every channel carries a VALID from its source and a READY from its sink. A
// transfer on a channel happens in the tick where both are high.
package axi

import (
	"fmt"
	"strings"
)

// Resp is the response code carried on the R and B channels.
type Resp uint8

// Response codes.
const (
	OKAY Resp = iota
	EXOKAY
	SLVERR
	DECERR
)

// IsError tells if the response must be treated as a failed access.
func (r Resp) IsError() bool {
	return r != OKAY
}

func (r Resp) String() string {
	switch r {
	case OKAY:
		return "OKAY"
	case EXOKAY:
		return "EXOKAY"
	case SLVERR:
		return "SLVERR"
	case DECERR:
		return "DECERR"
	default:
		return fmt.Sprintf("Resp(%d)", uint8(r))
	}
}

// ParseResp converts a response name, such as "slverr", into a Resp.
func ParseResp(s string) (Resp, error) {
	for _, r := range []Resp{OKAY, EXOKAY, SLVERR, DECERR} {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}

	return OKAY, fmt.Errorf("unknown response %q", s)
}

// BurstType selects how the beat address moves inside a burst.
type BurstType uint8

// Supported burst types.
const (
	BurstFixed BurstType = iota
	BurstIncr
)

func (b BurstType) String() string {
	switch b {
	case BurstFixed:
		return "FIXED"
	case BurstIncr:
		return "INCR"
	default:
		return fmt.Sprintf("BurstType(%d)", uint8(b))
	}
}

// MaxBurstBeats is the longest burst the bus carries.
const MaxBurstBeats = 16

// AddrChannel is the payload of the AR and AW channels.
type AddrChannel struct {
	Valid bool
	Addr  uint32
	Len   uint8
	Size  uint8
	Burst BurstType
}

// Beats returns the number of data beats announced by the request.
func (c AddrChannel) Beats() int {
	return int(c.Len) + 1
}

// BeatAddr returns the address of the given beat of the burst.
func (c AddrChannel) BeatAddr(beat int) uint32 {
	if c.Burst == BurstFixed {
		return c.Addr
	}

	return c.Addr + uint32(beat)*uint32(SizeBytes(c.Size))
}

// RChannel is the payload of the read data channel.
type RChannel struct {
	Valid bool
	Data  uint32
	Resp  Resp
	Last  bool
}

// WChannel is the payload of the write data channel.
type WChannel struct {
	Valid bool
	Data  uint32
	Strb  uint8
	Last  bool
}

// BChannel is the payload of the write response channel.
type BChannel struct {
	Valid bool
	Resp  Resp
}

// MasterSignals are the wires driven by the bus master.
type MasterSignals struct {
	AR     AddrChannel
	RReady bool
	AW     AddrChannel
	W      WChannel
	BReady bool
}

// SlaveSignals are the wires driven by the bus target.
type SlaveSignals struct {
	ARReady bool
	R       RChannel
	AWReady bool
	WReady  bool
	B       BChannel
}

// Handshakes records which channels complete a transfer in a tick.
type Handshakes struct {
	AR bool
	R  bool
	AW bool
	W  bool
	B  bool
}

// Handshake evaluates all five channels.
func Handshake(m MasterSignals, s SlaveSignals) Handshakes {
	return Handshakes{
		AR: m.AR.Valid && s.ARReady,
		R:  s.R.Valid && m.RReady,
		AW: m.AW.Valid && s.AWReady,
		W:  m.W.Valid && s.WReady,
		B:  s.B.Valid && m.BReady,
	}
}

// Any tells if at least one channel completes a transfer.
func (h Handshakes) Any() bool {
	return h.AR || h.R || h.AW || h.W || h.B
}

// Master is a bus master whose wires can be sampled.
type Master interface {
	MasterSignals() MasterSignals
}

// Slave is a bus target whose wires can be sampled.
type Slave interface {
	SlaveSignals() SlaveSignals
}
