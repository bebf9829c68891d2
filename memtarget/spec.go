package memtarget

import (
	"fmt"

	"github.com/sarchlab/axidma/axi"
)

// Fault makes accesses to an address window fail with Resp.
type Fault struct {
	Start uint64
	End   uint64
	Read  bool
	Write bool
	Resp  axi.Resp
}

func (f Fault) covers(addr uint64, size int, isRead bool) bool {
	if isRead && !f.Read || !isRead && !f.Write {
		return false
	}

	return addr < f.End && addr+uint64(size) > f.Start
}

// Spec holds immutable configuration values for the target.
type Spec struct {
	// CapacityBytes is the size of the memory. Accesses beyond it get
	// DECERR.
	CapacityBytes uint64

	// UnitSize is the allocation unit of the storage. 0 uses the storage
	// default.
	UnitSize uint64

	// ReadLatency is the number of cycles between the read address
	// handshake and the first read beat.
	ReadLatency int

	// WriteLatency is the number of cycles between the write address
	// handshake and the first cycle WREADY is high.
	WriteLatency int

	Faults []Fault
}

// Defaults returns a Spec with sane defaults.
func Defaults() Spec {
	return Spec{
		CapacityBytes: 64 * 1024,
		ReadLatency:   2,
		WriteLatency:  1,
	}
}

// Validate checks the Spec.
func (s Spec) Validate() error {
	if s.CapacityBytes == 0 {
		return fmt.Errorf("capacity must be > 0")
	}

	if s.ReadLatency < 0 || s.WriteLatency < 0 {
		return fmt.Errorf("latency cycles must be >= 0")
	}

	for i, f := range s.Faults {
		if f.End <= f.Start {
			return fmt.Errorf("fault %d: empty window", i)
		}

		if !f.Resp.IsError() {
			return fmt.Errorf("fault %d: response %s is not an error", i, f.Resp)
		}
	}

	return nil
}
