package dma

import (
	"fmt"

	"github.com/sarchlab/axidma/axi"
)

// Spec holds immutable configuration values for the DMA engine.
type Spec struct {
	// FifoDepth is the number of words the elastic buffer holds. The read
	// side keeps two slots of headroom, so a full-length burst needs at
	// least MaxBurstBeats+1 slots.
	FifoDepth int

	// MaxBurstLen is the largest AxLEN value issued (beats minus one).
	MaxBurstLen int

	// MinBurstLen is the remaining-count threshold of the middle tier of
	// the burst-length policy.
	MinBurstLen int
}

// Defaults returns a Spec with sane defaults.
func Defaults() Spec {
	return Spec{
		FifoDepth:   32,
		MaxBurstLen: axi.MaxBurstBeats - 1,
		MinBurstLen: 4,
	}
}

// Validate checks the Spec.
func (s Spec) Validate() error {
	if s.MaxBurstLen < 0 || s.MaxBurstLen >= axi.MaxBurstBeats {
		return fmt.Errorf("max burst len must be in [0, %d]",
			axi.MaxBurstBeats-1)
	}

	if s.MinBurstLen < 1 {
		return fmt.Errorf("min burst len must be > 0")
	}

	if s.FifoDepth < s.MaxBurstLen+2 {
		return fmt.Errorf("fifo depth must be >= %d to hold a full burst",
			s.MaxBurstLen+2)
	}

	return nil
}
