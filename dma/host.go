package dma

import "fmt"

// ReadReg returns the value of a register. Writes queued with WriteReg become
// visible after the next tick.
func (c *Comp) ReadReg(offset uint32) (uint32, error) {
	s := c.current()

	switch offset {
	case RegSrcAddr:
		return s.Regs.Src, nil
	case RegDstAddr:
		return s.Regs.Dst, nil
	case RegLength:
		return uint32(s.Regs.Length), nil
	case RegControl:
		return uint32(s.Regs.Control), nil
	case RegStatus:
		return uint32(status(s)), nil
	case RegIntStatus:
		return uint32(s.Regs.intStatus()), nil
	default:
		return 0, fmt.Errorf("read 0x%x: %w", offset, ErrBadOffset)
	}
}

func status(s *State) uint8 {
	var v uint8

	if s.Ctrl.Busy() {
		v |= StatusBusy
	}

	if s.Regs.Done.IsSet() {
		v |= StatusDone
	}

	if s.Regs.Error.IsSet() {
		v |= StatusError
	}

	return v
}

// WriteReg queues a register write. The write takes effect at the next tick
// boundary.
func (c *Comp) WriteReg(offset uint32, value uint32) error {
	switch offset {
	case RegSrcAddr, RegDstAddr, RegLength, RegControl:
		if c.Busy() {
			return fmt.Errorf("write 0x%x: %w", offset, ErrBusy)
		}
	case RegIntStatus:
	case RegStatus:
		return fmt.Errorf("write 0x%x: %w", offset, ErrReadOnly)
	default:
		return fmt.Errorf("write 0x%x: %w", offset, ErrBadOffset)
	}

	if offset == RegControl {
		code := (uint8(value) & CtrlWidthMask) >> CtrlWidthShift
		if code == widthReserved {
			return fmt.Errorf("write 0x%x: %w", offset, ErrBadWidth)
		}
	}

	c.hostLock.Lock()
	c.hostWrites = append(c.hostWrites, hostWrite{Offset: offset, Value: value})
	c.hostLock.Unlock()

	return nil
}

// regsMiddleware applies the register writes queued by the host.
type regsMiddleware struct {
	*Comp
}

func (m *regsMiddleware) Tick() bool {
	m.hostLock.Lock()
	writes := m.hostWrites
	m.hostWrites = nil
	m.hostLock.Unlock()

	for _, w := range writes {
		applyHostWrite(&m.next.Regs, w)
	}

	return len(writes) > 0
}
