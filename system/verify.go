package system

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sarchlab/axidma/dma"
)

// ErrMismatch is returned by CheckDestination when the memory content
// differs from the expected image.
var ErrMismatch = errors.New("system: destination mismatch")

// Span returns the number of bytes a transfer touches on one side. A side
// that does not increment touches a single word.
func Span(d dma.Descriptor, inc bool) uint64 {
	if !inc {
		return uint64(d.Width)
	}

	return uint64(d.Length) * uint64(d.Width)
}

// ExpectedDestination computes, from the current memory content, the image
// of the destination region after the transfer. Source and destination must
// not overlap.
func (s *System) ExpectedDestination(d dma.Descriptor) ([]byte, error) {
	src, err := s.Mem.Dump(uint64(d.Src), Span(d, d.SrcInc))
	if err != nil {
		return nil, err
	}

	want, err := s.Mem.Dump(uint64(d.Dst), Span(d, d.DstInc))
	if err != nil {
		return nil, err
	}

	w := uint64(d.Width)
	for i := uint64(0); i < uint64(d.Length); i++ {
		from, to := uint64(0), uint64(0)
		if d.SrcInc {
			from = i * w
		}

		if d.DstInc {
			to = i * w
		}

		copy(want[to:to+w], src[from:from+w])
	}

	return want, nil
}

// CheckDestination compares the destination region with want.
func (s *System) CheckDestination(d dma.Descriptor, want []byte) error {
	got, err := s.Mem.Dump(uint64(d.Dst), uint64(len(want)))
	if err != nil {
		return err
	}

	if bytes.Equal(got, want) {
		return nil
	}

	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("%w: byte 0x%x is 0x%02x, want 0x%02x",
				ErrMismatch, uint64(d.Dst)+uint64(i), got[i], want[i])
		}
	}

	return ErrMismatch
}

// Fill writes a deterministic byte pattern derived from seed.
func (s *System) Fill(addr uint64, n int, seed byte) error {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i*7)
	}

	return s.Mem.Load(addr, data)
}
