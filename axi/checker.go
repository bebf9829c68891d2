package axi

import (
	"errors"
	"fmt"
)

// ErrProtocol is wrapped by every violation reported by a Checker.
var ErrProtocol = errors.New("axi protocol violation")

// A Checker watches the bus tick by tick and reports violations of the
// handshake rules: once a source raises VALID it must hold VALID and the
// payload stable until the handshake happens, and a write response may only
// arrive after the last write beat.
type Checker struct {
	prevM     MasterSignals
	prevS     SlaveSignals
	prevH     Handshakes
	started   bool
	wLastSeen int
}

// Observe checks the signals of one tick.
func (c *Checker) Observe(m MasterSignals, s SlaveSignals) error {
	h := Handshake(m, s)

	var errs []error

	if c.started {
		errs = append(errs,
			c.checkStable("AR", c.prevM.AR.Valid, c.prevH.AR,
				m.AR.Valid, c.prevM.AR != m.AR),
			c.checkStable("R", c.prevS.R.Valid, c.prevH.R,
				s.R.Valid, c.prevS.R != s.R),
			c.checkStable("AW", c.prevM.AW.Valid, c.prevH.AW,
				m.AW.Valid, c.prevM.AW != m.AW),
			c.checkStable("W", c.prevM.W.Valid, c.prevH.W,
				m.W.Valid, c.prevM.W != m.W),
			c.checkStable("B", c.prevS.B.Valid, c.prevH.B,
				s.B.Valid, c.prevS.B != s.B),
		)
	}

	if h.W && m.W.Last {
		c.wLastSeen++
	}

	if h.B {
		if c.wLastSeen == 0 {
			errs = append(errs,
				fmt.Errorf("B handshake before last W beat: %w", ErrProtocol))
		} else {
			c.wLastSeen--
		}
	}

	c.prevM = m
	c.prevS = s
	c.prevH = h
	c.started = true

	return errors.Join(errs...)
}

// Reset forgets the observed history.
func (c *Checker) Reset() {
	*c = Checker{}
}

func (c *Checker) checkStable(
	channel string,
	wasValid, handshaked, isValid, changed bool,
) error {
	if !wasValid || handshaked {
		return nil
	}

	if !isValid {
		return fmt.Errorf("%s VALID dropped before handshake: %w",
			channel, ErrProtocol)
	}

	if changed {
		return fmt.Errorf("%s payload changed while VALID: %w",
			channel, ErrProtocol)
	}

	return nil
}
