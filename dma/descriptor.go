package dma

import (
	"fmt"
	"log"
)

// Descriptor describes one transfer as programmed through the registers.
type Descriptor struct {
	Src         uint32
	Dst         uint32
	Length      uint16
	Width       int
	SrcInc      bool
	DstInc      bool
	BurstEnable bool
}

func (d Descriptor) String() string {
	return fmt.Sprintf("0x%08x -> 0x%08x, %d x %dB, inc %t/%t, burst %t",
		d.Src, d.Dst, d.Length, d.Width, d.SrcInc, d.DstInc, d.BurstEnable)
}

// BurstPlan is the shape of the next burst.
type BurstPlan struct {
	// Beats is the AxLEN encoding, the number of beats minus one.
	Beats        uint8
	BytesPerBeat int
}

// TransferBeats returns the number of data beats in the burst.
func (p BurstPlan) TransferBeats() int {
	return int(p.Beats) + 1
}

// BurstBytes returns the number of bytes moved by the burst.
func (p BurstPlan) BurstBytes() uint32 {
	return uint32(p.TransferBeats() * p.BytesPerBeat)
}

// planBurst applies the burst-length policy to the remaining word count.
func planBurst(spec Spec, remaining uint32, d Descriptor) BurstPlan {
	plan := BurstPlan{BytesPerBeat: d.Width}

	switch {
	case !d.BurstEnable:
		plan.Beats = 0
	case remaining > uint32(spec.MaxBurstLen):
		plan.Beats = uint8(spec.MaxBurstLen)
	case remaining >= uint32(spec.MinBurstLen), remaining > 0:
		plan.Beats = uint8(remaining - 1)
	default:
		plan.Beats = 0
	}

	return plan
}

// Tracker keeps the running addresses and the words left in a transfer.
type Tracker struct {
	Desc      Descriptor
	SrcPtr    uint32
	DstPtr    uint32
	Remaining uint32
}

// Load starts tracking a new transfer.
func (t *Tracker) Load(d Descriptor) {
	t.Desc = d
	t.SrcPtr = d.Src
	t.DstPtr = d.Dst
	t.Remaining = uint32(d.Length)
}

// Advance accounts for a completed burst.
func (t *Tracker) Advance(p BurstPlan) {
	if t.Desc.SrcInc {
		t.SrcPtr += p.BurstBytes()
	}

	if t.Desc.DstInc {
		t.DstPtr += p.BurstBytes()
	}

	beats := uint32(p.TransferBeats())
	if beats > t.Remaining {
		t.Remaining = 0
		return
	}

	t.Remaining -= beats
}

// Done tells if no word is left to move.
func (t *Tracker) Done() bool {
	return t.Remaining == 0
}

func widthFromCode(code uint8) int {
	switch code {
	case WidthByte:
		return 1
	case WidthHalfword:
		return 2
	case WidthWord:
		return 4
	default:
		log.Panicf("reserved width code %d", code)
	}

	return 0
}

func codeFromWidth(width int) uint8 {
	switch width {
	case 1:
		return WidthByte
	case 2:
		return WidthHalfword
	case 4:
		return WidthWord
	default:
		log.Panicf("unsupported width %d", width)
	}

	return 0
}
