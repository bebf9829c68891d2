package dma

import "errors"

// Register offsets.
const (
	RegSrcAddr   uint32 = 0x0
	RegDstAddr   uint32 = 0x4
	RegLength    uint32 = 0x8
	RegControl   uint32 = 0xC
	RegStatus    uint32 = 0xD
	RegIntStatus uint32 = 0xE
)

// CONTROL fields.
const (
	CtrlStart       uint8 = 1 << 0
	CtrlSrcInc      uint8 = 1 << 1
	CtrlDstInc      uint8 = 1 << 2
	CtrlIntEnable   uint8 = 1 << 3
	CtrlBurstEnable uint8 = 1 << 4

	CtrlWidthShift = 5
	CtrlWidthMask  uint8 = 0x3 << CtrlWidthShift

	ctrlWritableMask uint8 = 0x7f
)

// Width codes of CONTROL[6:5].
const (
	WidthByte     uint8 = 0
	WidthHalfword uint8 = 1
	WidthWord     uint8 = 2
	widthReserved uint8 = 3
)

// STATUS fields.
const (
	StatusBusy  uint8 = 1 << 0
	StatusDone  uint8 = 1 << 1
	StatusError uint8 = 1 << 2
)

// INT_STATUS fields.
const (
	IntDone  uint8 = 1 << 0
	IntError uint8 = 1 << 1
)

var (
	// ErrBadOffset is returned when accessing an offset with no register.
	ErrBadOffset = errors.New("dma: no register at offset")

	// ErrReadOnly is returned when writing a read-only register.
	ErrReadOnly = errors.New("dma: register is read-only")

	// ErrBusy is returned when reprogramming the engine during a transfer.
	ErrBusy = errors.New("dma: engine is busy")

	// ErrBadWidth is returned when CONTROL selects the reserved width code.
	ErrBadWidth = errors.New("dma: reserved width code")
)

// Latch is a sticky status bit. It stays set until explicitly cleared.
type Latch bool

// Raise sets the latch.
func (l *Latch) Raise() {
	*l = true
}

// Clear resets the latch.
func (l *Latch) Clear() {
	*l = false
}

// IsSet tells if the latch is set.
func (l Latch) IsSet() bool {
	return bool(l)
}

// Regs is the software visible register file.
type Regs struct {
	Src     uint32
	Dst     uint32
	Length  uint16
	Control uint8
	Done    Latch
	Error   Latch
}

// Descriptor decodes the programmed transfer.
func (r Regs) Descriptor() Descriptor {
	return Descriptor{
		Src:         r.Src,
		Dst:         r.Dst,
		Length:      r.Length,
		Width:       widthFromCode((r.Control & CtrlWidthMask) >> CtrlWidthShift),
		SrcInc:      r.Control&CtrlSrcInc != 0,
		DstInc:      r.Control&CtrlDstInc != 0,
		BurstEnable: r.Control&CtrlBurstEnable != 0,
	}
}

func (r Regs) intEnabled() bool {
	return r.Control&CtrlIntEnable != 0
}

func (r Regs) startRequested() bool {
	return r.Control&CtrlStart != 0
}

func (r Regs) intStatus() uint8 {
	var v uint8

	if r.Done.IsSet() {
		v |= IntDone
	}

	if r.Error.IsSet() {
		v |= IntError
	}

	return v
}

// ControlValue encodes a descriptor into a CONTROL value with the start bit
// set.
func ControlValue(d Descriptor, intEnable bool) uint8 {
	v := CtrlStart | codeFromWidth(d.Width)<<CtrlWidthShift

	if d.SrcInc {
		v |= CtrlSrcInc
	}

	if d.DstInc {
		v |= CtrlDstInc
	}

	if intEnable {
		v |= CtrlIntEnable
	}

	if d.BurstEnable {
		v |= CtrlBurstEnable
	}

	return v
}

// RegisterInfo documents one register.
type RegisterInfo struct {
	Offset uint32
	Name   string
	Access string
	Fields string
}

// RegisterMap lists the registers in offset order.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{RegSrcAddr, "SRC_ADDR", "R/W", "32-bit source address"},
		{RegDstAddr, "DST_ADDR", "R/W", "32-bit destination address"},
		{RegLength, "LENGTH", "R/W", "16-bit transfer length (words)"},
		{RegControl, "CONTROL", "R/W",
			"bit0 start, bit1 src-inc, bit2 dst-inc, bit3 int-enable, " +
				"bit4 burst-enable, bits[6:5] width (00 byte, 01 half, 10 word)"},
		{RegStatus, "STATUS", "R",
			"bit0 busy (live), bit1 done (sticky), bit2 error (sticky)"},
		{RegIntStatus, "INT_STATUS", "R/W1C",
			"bit0 done, bit1 error; writing 1 clears the bit"},
	}
}

type hostWrite struct {
	Offset uint32
	Value  uint32
}

func applyHostWrite(r *Regs, w hostWrite) {
	switch w.Offset {
	case RegSrcAddr:
		r.Src = w.Value
	case RegDstAddr:
		r.Dst = w.Value
	case RegLength:
		r.Length = uint16(w.Value)
	case RegControl:
		r.Control = uint8(w.Value) & ctrlWritableMask
	case RegIntStatus:
		if uint8(w.Value)&IntDone != 0 {
			r.Done.Clear()
		}

		if uint8(w.Value)&IntError != 0 {
			r.Error.Clear()
		}
	}
}
