package timing

import (
	"errors"
	"log"
)

// ErrZeroFrequency is returned when a clock is configured with 0 Hz.
var ErrZeroFrequency = errors.New("timing: frequency cannot be zero")

// Freq defines the frequency of a clock, in Hz.
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Validate checks that the frequency can drive a clock.
func (f Freq) Validate() error {
	if f <= 0 {
		return ErrZeroFrequency
	}

	return nil
}

// Period returns the time between two consecutive ticks.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// CyclesToSeconds converts a number of cycles of this clock to seconds.
func (f Freq) CyclesToSeconds(cycles VTimeInCycle) VTimeInSec {
	return VTimeInSec(float64(cycles)) * f.Period()
}
