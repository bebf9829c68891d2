// Package memtarget provides a flat memory that answers the five-channel burst
// bus.
package memtarget

import (
	"fmt"

	"github.com/sarchlab/axidma/axi"
	"github.com/sarchlab/axidma/instrumentation/hooking"
	"github.com/sarchlab/axidma/memory"
	"github.com/sarchlab/axidma/sim"
	"github.com/sarchlab/axidma/sim/state"
	"github.com/sarchlab/axidma/timing"
)

// HookPosBurst is triggered when the target accepts an address request. The
// item is a BurstRecord.
var HookPosBurst = &hooking.HookPos{Name: "Target Burst"}

// HookPosMemWrite is triggered when a write beat is applied to the storage.
// The item is a MemWrite.
var HookPosMemWrite = &hooking.HookPos{Name: "Target Mem Write"}

// BurstRecord describes a burst accepted by the target.
type BurstRecord struct {
	Cycle  timing.VTimeInCycle
	IsRead bool
	Addr   uint32
	Beats  int
	Size   int
	Burst  axi.BurstType
}

// MemWrite is a write beat that lands in the storage at commit.
type MemWrite struct {
	Addr uint64
	Data []byte
	Strb uint8
}

// Comp is the bus target.
type Comp struct {
	*sim.ComponentBase

	Spec Spec

	storage *memory.Storage
	states  *state.Manager
	master  axi.Master

	faults []Fault
	bursts []BurstRecord

	// Effects collected in the compute phase and applied in the commit phase.
	writes    []MemWrite
	newBursts []BurstRecord
}

// ConnectMaster attaches the bus master the target answers.
func (c *Comp) ConnectMaster(m axi.Master) {
	c.master = m
}

// Storage returns the memory content.
func (c *Comp) Storage() *memory.Storage {
	return c.storage
}

// AddFault makes later accesses to a window fail.
func (c *Comp) AddFault(f Fault) {
	c.faults = append(c.faults, f)
}

// ClearFaults removes every injected fault.
func (c *Comp) ClearFaults() {
	c.faults = nil
}

// Bursts returns the bursts accepted since the last reset.
func (c *Comp) Bursts() []BurstRecord {
	return c.bursts
}

// Stats returns the traffic counters.
func (c *Comp) Stats() Stats {
	return c.current().Stats
}

func (c *Comp) current() *State {
	return state.PeekAs[State](c.states, c.Name())
}

// SlaveSignals returns the wires driven by the target. They are a pure
// function of the current state.
func (c *Comp) SlaveSignals() axi.SlaveSignals {
	return slaveSignals(c.current())
}

func slaveSignals(s *State) axi.SlaveSignals {
	w := s.Write

	return axi.SlaveSignals{
		ARReady: !s.Read.Active,
		R:       s.Read.Out,
		AWReady: !w.Active,
		WReady: w.Active && w.Wait == 0 && !w.B.Valid &&
			w.Beat < w.Req.Beats(),
		B: w.B,
	}
}

// Compute stages the next state of the target.
func (c *Comp) Compute(now timing.VTimeInCycle) error {
	if c.master == nil {
		return fmt.Errorf("target %s: bus master is not connected", c.Name())
	}

	v, err := c.states.Peek(c.Name())
	if err != nil {
		return err
	}

	cur := v.(*State)

	n, err := c.states.Stage(c.Name())
	if err != nil {
		return err
	}

	next := n.(*State)

	c.writes = c.writes[:0]
	c.newBursts = c.newBursts[:0]

	m := c.master.MasterSignals()
	hs := axi.Handshake(m, slaveSignals(cur))

	c.computeRead(now, cur, next, m, hs)
	c.computeWrite(now, cur, next, m, hs)

	return nil
}

func (c *Comp) computeRead(
	now timing.VTimeInCycle,
	cur, next *State,
	m axi.MasterSignals,
	hs axi.Handshakes,
) {
	if hs.AR {
		req := m.AR
		next.Read = readState{Active: true, Req: req, Wait: c.Spec.ReadLatency}
		next.Stats.ReadBursts++
		c.newBursts = append(c.newBursts, c.record(now, true, req))

		return
	}

	r := cur.Read
	if !r.Active {
		return
	}

	if hs.R {
		next.Read.Out.Valid = false
		next.Stats.ReadBeats++

		if r.Out.Resp.IsError() {
			next.Stats.ErrorResps++
		}

		if r.Out.Last {
			next.Read = readState{}
			return
		}
	}

	if r.Wait > 0 {
		next.Read.Wait = r.Wait - 1
		return
	}

	if (r.Out.Valid && !hs.R) || r.Beat >= r.Req.Beats() {
		return
	}

	addr := r.Req.BeatAddr(r.Beat)
	data, resp := c.readBeat(uint64(addr), axi.SizeBytes(r.Req.Size))

	next.Read.Out = axi.RChannel{
		Valid: true,
		Data:  data,
		Resp:  resp,
		Last:  r.Beat == int(r.Req.Len),
	}
	next.Read.Beat = r.Beat + 1
}

func (c *Comp) computeWrite(
	now timing.VTimeInCycle,
	cur, next *State,
	m axi.MasterSignals,
	hs axi.Handshakes,
) {
	if hs.AW {
		req := m.AW
		next.Write = writeState{Active: true, Req: req, Wait: c.Spec.WriteLatency}
		next.Stats.WriteBursts++
		c.newBursts = append(c.newBursts, c.record(now, false, req))

		return
	}

	w := cur.Write
	if !w.Active {
		return
	}

	if w.B.Valid {
		if hs.B {
			next.Write = writeState{}
		}

		return
	}

	if w.Wait > 0 {
		next.Write.Wait = w.Wait - 1
		return
	}

	if !hs.W {
		return
	}

	size := axi.SizeBytes(w.Req.Size)
	addr := uint64(w.Req.BeatAddr(w.Beat))
	resp := c.checkAccess(addr, size, false)

	if m.W.Last != (w.Beat == int(w.Req.Len)) {
		resp = worse(resp, axi.SLVERR)
	}

	if resp == axi.OKAY {
		c.writes = append(c.writes, MemWrite{
			Addr: addr,
			Data: axi.UnpackWord(m.W.Data, size),
			Strb: m.W.Strb,
		})
	}

	next.Write.Beat = w.Beat + 1
	next.Write.Resp = worse(w.Resp, resp)
	next.Stats.WriteBeats++

	if m.W.Last {
		next.Write.B = axi.BChannel{Valid: true, Resp: next.Write.Resp}

		if next.Write.Resp.IsError() {
			next.Stats.ErrorResps++
		}
	}
}

func (c *Comp) record(
	now timing.VTimeInCycle,
	isRead bool,
	req axi.AddrChannel,
) BurstRecord {
	return BurstRecord{
		Cycle:  now,
		IsRead: isRead,
		Addr:   req.Addr,
		Beats:  req.Beats(),
		Size:   axi.SizeBytes(req.Size),
		Burst:  req.Burst,
	}
}

func (c *Comp) checkAccess(addr uint64, size int, isRead bool) axi.Resp {
	if !c.storage.Contains(addr, uint64(size)) {
		return axi.DECERR
	}

	for _, f := range c.faults {
		if f.covers(addr, size, isRead) {
			return f.Resp
		}
	}

	return axi.OKAY
}

func (c *Comp) readBeat(addr uint64, size int) (uint32, axi.Resp) {
	resp := c.checkAccess(addr, size, true)
	if resp != axi.OKAY {
		return 0, resp
	}

	data, err := c.storage.Read(addr, uint64(size))
	if err != nil {
		return 0, axi.DECERR
	}

	return axi.PackWord(data), axi.OKAY
}

func worse(a, b axi.Resp) axi.Resp {
	if b > a {
		return b
	}

	return a
}

// Commit applies the write beats accepted in this tick to the storage.
func (c *Comp) Commit(_ timing.VTimeInCycle) {
	for _, w := range c.writes {
		for i, b := range w.Data {
			if w.Strb&(1<<i) == 0 {
				continue
			}

			if err := c.storage.Write(w.Addr+uint64(i), []byte{b}); err != nil {
				panic(err)
			}
		}

		c.InvokeHook(hooking.HookCtx{Domain: c, Pos: HookPosMemWrite, Item: w})
	}

	for _, b := range c.newBursts {
		c.bursts = append(c.bursts, b)
		c.InvokeHook(hooking.HookCtx{Domain: c, Pos: HookPosBurst, Item: b})
	}

	c.writes = c.writes[:0]
	c.newBursts = c.newBursts[:0]
}

// Reset stages an idle target. The memory content is kept.
func (c *Comp) Reset() {
	c.writes = c.writes[:0]
	c.newBursts = c.newBursts[:0]
	c.bursts = nil

	*state.StageAs[State](c.states, c.Name()) = State{}
}

// Load writes bytes into the memory outside of the bus.
func (c *Comp) Load(addr uint64, data []byte) error {
	return c.storage.Write(addr, data)
}

// Dump reads bytes from the memory outside of the bus.
func (c *Comp) Dump(addr, n uint64) ([]byte, error) {
	return c.storage.Read(addr, n)
}
