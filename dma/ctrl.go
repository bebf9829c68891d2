package dma

// ctrlMiddleware is the transfer control state machine. It only reads the
// current state, so pulses raised by the bus adapter in this tick are seen in
// the next one.
type ctrlMiddleware struct {
	*Comp
}

func (m *ctrlMiddleware) Tick() bool {
	cur, next := m.cur, m.next

	if cur.Ctrl.Busy() {
		next.Stats.BusyCycles++

		if cur.Regs.startRequested() {
			next.Regs.Control &^= CtrlStart
		}
	}

	to := m.nextState(cur, next)
	if to == cur.Ctrl {
		return false
	}

	next.Ctrl = to
	m.emit(HookPosStateChange,
		Transition{Cycle: m.now, From: cur.Ctrl, To: to}, nil)

	return true
}

func (m *ctrlMiddleware) nextState(cur, next *State) TransferState {
	switch cur.Ctrl {
	case Idle:
		return m.idle(cur, next)
	case CalcBurst:
		return m.calcBurst(cur, next)
	case ReadAddr:
		return ReadData
	case ReadData:
		return m.readData(cur)
	case WriteAddr:
		if writeAddrGate(cur) {
			return WriteData
		}

		return WriteAddr
	case WriteData:
		return WriteResp
	case WriteResp:
		return m.writeResp(cur, next)
	case CheckDone:
		if cur.Tracker.Done() {
			return Complete
		}

		return CalcBurst
	case Complete:
		return m.complete(next)
	case Error:
		return m.fail(cur, next)
	}

	return cur.Ctrl
}

func (m *ctrlMiddleware) idle(cur, next *State) TransferState {
	if !cur.Regs.startRequested() {
		return Idle
	}

	desc := cur.Regs.Descriptor()
	next.Tracker.Load(desc)
	next.Bus.BusError.Clear()

	m.emit(HookPosTransferStart, desc, nil)

	return CalcBurst
}

func (m *ctrlMiddleware) calcBurst(cur, next *State) TransferState {
	next.Plan = planBurst(m.Spec, cur.Tracker.Remaining, cur.Tracker.Desc)

	if cur.Tracker.Done() {
		return Complete
	}

	return ReadAddr
}

func (m *ctrlMiddleware) readData(cur *State) TransferState {
	if !cur.Bus.R.DonePulse {
		return ReadData
	}

	if cur.Bus.BusError.IsSet() {
		return Error
	}

	return WriteAddr
}

func (m *ctrlMiddleware) writeResp(cur, next *State) TransferState {
	if !cur.Bus.B.DonePulse {
		return WriteResp
	}

	if cur.Bus.B.Resp.IsError() || cur.Bus.BusError.IsSet() {
		return Error
	}

	next.Tracker.Advance(cur.Plan)
	next.Stats.WordsMoved += uint64(cur.Plan.TransferBeats())

	return CheckDone
}

func (m *ctrlMiddleware) complete(next *State) TransferState {
	next.Regs.Done.Raise()
	next.Stats.Transfers++

	m.emit(HookPosTransferEnd, TransferResult{Cycle: m.now}, nil)

	return Idle
}

// fail aborts the transfer. Buffered words and channel progress are dropped
// so that nothing leaks into the next transfer.
func (m *ctrlMiddleware) fail(cur, next *State) TransferState {
	next.Regs.Error.Raise()
	next.Stats.Errors++
	next.Fifo.Flush()
	next.Bus = BusState{BusError: cur.Bus.BusError}

	m.emit(HookPosTransferEnd, TransferResult{Cycle: m.now, Failed: true}, nil)

	return Idle
}

// writeAddrGate lets the write address phase start when the read burst has
// just completed or when the buffer holds data.
func writeAddrGate(s *State) bool {
	return s.Bus.R.DonePulse || s.Fifo.Count > 0
}

// irqMiddleware drives the interrupt line from the next register values.
type irqMiddleware struct {
	*Comp
}

func (m *irqMiddleware) Tick() bool {
	next := m.next
	regs := next.Regs

	level := regs.intEnabled() && (regs.Done.IsSet() || regs.Error.IsSet())
	if level == m.cur.IRQ {
		next.IRQ = level
		return false
	}

	next.IRQ = level

	if level {
		next.Stats.IRQCount++
	}

	m.emit(HookPosIRQ, level, nil)

	return true
}
