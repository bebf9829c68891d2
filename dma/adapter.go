package dma

import (
	"log"

	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/fifo"
)

// busMiddleware is the bus master protocol adapter. The five channel
// processes all read the same current state and handshake results and write
// disjoint parts of the next state. The buffer sees at most one push and one
// pop per tick.
type busMiddleware struct {
	*Comp

	push     bool
	pushWord uint32
	pop      bool
}

func (m *busMiddleware) Tick() bool {
	if m.cur.Ctrl == Error {
		return false
	}

	m.push = false
	m.pop = false

	progress := m.addrRead()
	progress = m.dataRead() || progress
	progress = m.addrWrite() || progress
	progress = m.dataWrite() || progress
	progress = m.respWrite() || progress

	m.tickFifo()

	return progress
}

func burstType(inc bool) axi.BurstType {
	if inc {
		return axi.BurstIncr
	}

	return axi.BurstFixed
}

func (m *busMiddleware) addrRead() bool {
	cur, next := m.cur, m.next

	if !cur.Bus.AR.Active && cur.Ctrl == ReadAddr {
		req := axi.AddrChannel{
			Valid: true,
			Addr:  cur.Tracker.SrcPtr,
			Len:   cur.Plan.Beats,
			Size:  axi.SizeCode(cur.Plan.BytesPerBeat),
			Burst: burstType(cur.Tracker.Desc.SrcInc),
		}

		next.Bus.AR = AddrState{Active: true, Req: req}
		next.Bus.R.Beats = 0
		next.Stats.ReadBursts++

		m.emit(HookPosBurstStart, BurstInfo{
			Cycle:     m.now,
			Dir:       DirRead,
			Addr:      req.Addr,
			Beats:     req.Beats(),
			Burst:     req.Burst,
			FifoCount: cur.Fifo.Count,
		}, nil)

		return true
	}

	if cur.Bus.AR.Req.Valid && m.hs.AR {
		next.Bus.AR.Req.Valid = false
		return true
	}

	return false
}

func (m *busMiddleware) dataRead() bool {
	cur, next := m.cur, m.next
	next.Bus.R.DonePulse = false

	if !m.hs.R {
		return false
	}

	r := m.slave.R
	width := cur.Plan.BytesPerBeat

	m.push = true
	m.pushWord = axi.Mask(r.Data, width)

	if r.Resp.IsError() {
		next.Bus.BusError.Raise()
	}

	beats := cur.Bus.R.Beats + 1
	expected := cur.Bus.AR.Req.Beats()
	next.Bus.R.Beats = beats
	next.Stats.ReadBeats++

	if r.Last != (beats == expected) {
		next.Bus.BusError.Raise()
	}

	m.emit(HookPosBeat, BeatInfo{
		Cycle: m.now,
		Dir:   DirRead,
		Data:  m.pushWord,
		Resp:  r.Resp,
		Last:  r.Last,
	}, nil)

	if r.Last {
		next.Bus.R.DonePulse = true
		next.Bus.AR.Active = false

		m.emit(HookPosBurstEnd, BurstInfo{
			Cycle:     m.now,
			Dir:       DirRead,
			Addr:      cur.Bus.AR.Req.Addr,
			Beats:     beats,
			Burst:     cur.Bus.AR.Req.Burst,
			FifoCount: cur.Fifo.Count + 1,
			Resp:      r.Resp,
		}, nil)
	}

	return true
}

func (m *busMiddleware) addrWrite() bool {
	cur, next := m.cur, m.next

	if !cur.Bus.AW.Active && cur.Ctrl == WriteAddr && writeAddrGate(cur) {
		req := axi.AddrChannel{
			Valid: true,
			Addr:  cur.Tracker.DstPtr,
			Len:   cur.Plan.Beats,
			Size:  axi.SizeCode(cur.Plan.BytesPerBeat),
			Burst: burstType(cur.Tracker.Desc.DstInc),
		}

		next.Bus.AW = AddrState{Active: true, Req: req}
		next.Bus.W.Beat = 0
		next.Bus.W.Popped = 0
		next.Stats.WriteBursts++

		m.emit(HookPosBurstStart, BurstInfo{
			Cycle:     m.now,
			Dir:       DirWrite,
			Addr:      req.Addr,
			Beats:     req.Beats(),
			Burst:     req.Burst,
			FifoCount: cur.Fifo.Count,
		}, nil)

		return true
	}

	if cur.Bus.AW.Req.Valid && m.hs.AW {
		next.Bus.AW.Req.Valid = false
		return true
	}

	return false
}

// dataWrite pumps words from the buffer into the W register. A pop issued in
// one tick lands in the buffer output register, and the W register picks it
// up in the next tick.
func (m *busMiddleware) dataWrite() bool {
	cur, next := m.cur, m.next
	w := cur.Bus.W
	progress := false

	if m.hs.W {
		next.Bus.W.Valid = false
		next.Stats.WriteBeats++

		if w.Last {
			next.Bus.B.WaitResp = true
		}

		m.emit(HookPosBeat, BeatInfo{
			Cycle: m.now,
			Dir:   DirWrite,
			Data:  w.Data,
			Last:  w.Last,
		}, nil)

		progress = true
	}

	if w.PopPending {
		last := w.Beat == int(cur.Bus.AW.Req.Len)

		next.Bus.W.PopPending = false
		next.Bus.W.Valid = true
		next.Bus.W.Data = cur.Fifo.Dout
		next.Bus.W.Strb = axi.Strobe(cur.Plan.BytesPerBeat)
		next.Bus.W.Last = last

		if last {
			next.Bus.W.Beat = 0
		} else {
			next.Bus.W.Beat = w.Beat + 1
		}

		progress = true
	}

	regFree := !w.Valid || m.hs.W
	if cur.Bus.AW.Active &&
		cur.Fifo.Count > 0 &&
		!w.PopPending &&
		m.slave.WReady &&
		regFree &&
		w.Popped < cur.Bus.AW.Req.Beats() {
		m.pop = true
		next.Bus.W.PopPending = true
		next.Bus.W.Popped = w.Popped + 1
		progress = true
	}

	return progress
}

func (m *busMiddleware) respWrite() bool {
	cur, next := m.cur, m.next
	next.Bus.B.DonePulse = false

	if !m.hs.B {
		return false
	}

	resp := m.slave.B.Resp

	next.Bus.B.WaitResp = false
	next.Bus.B.Resp = resp
	next.Bus.B.DonePulse = true
	next.Bus.AW.Active = false

	if resp.IsError() {
		next.Bus.BusError.Raise()
	}

	m.emit(HookPosBurstEnd, BurstInfo{
		Cycle: m.now,
		Dir:   DirWrite,
		Addr:  cur.Bus.AW.Req.Addr,
		Beats: cur.Bus.AW.Req.Beats(),
		Burst: cur.Bus.AW.Req.Burst,
		Resp:  resp,
	}, nil)

	return true
}

func (m *busMiddleware) tickFifo() {
	if !m.push && !m.pop {
		return
	}

	pushed, popped, err := m.next.Fifo.Tick(m.push, m.pushWord, m.pop)
	if err != nil {
		log.Panicf("dma %s: buffer gating failed: %v", m.Name(), err)
	}

	if pushed {
		m.emit(fifo.HookPosPush, m.pushWord, m.next.Fifo.Count)
	}

	if popped {
		m.emit(fifo.HookPosPop, m.next.Fifo.Dout, m.next.Fifo.Count)
	}
}
