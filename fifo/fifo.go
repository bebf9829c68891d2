// Package fifo provides the elastic word buffer that decouples the read and
// write halves of a transfer.
package fifo

import (
	"errors"
	"log"

	"github.com/sarchlab/axidma/instrumentation/hooking"
)

// HookPosPush marks when a word is pushed into the buffer.
var HookPosPush = &hooking.HookPos{Name: "FIFO Push"}

// HookPosPop marks when a word is popped from the buffer.
var HookPosPop = &hooking.HookPos{Name: "FIFO Pop"}

var (
	// ErrFull is returned when pushing into a buffer that holds Capacity
	// words.
	ErrFull = errors.New("fifo: buffer full")

	// ErrEmpty is returned when popping from a buffer that holds no word.
	ErrEmpty = errors.New("fifo: buffer empty")
)

// Buffer is a fixed-capacity ring of 32-bit words. It is plain data so that
// it can live inside a component state and be copied between ticks.
//
// Words leave the buffer through the output register Dout. A Pop updates
// Dout; the consumer reads Dout on the following tick.
type Buffer struct {
	Words []uint32
	Head  int
	Tail  int
	Count int
	Dout  uint32
}

// New creates an empty buffer that can hold capacity words.
func New(capacity int) Buffer {
	if capacity <= 0 {
		log.Panicf("fifo capacity must be positive, got %d", capacity)
	}

	return Buffer{Words: make([]uint32, capacity)}
}

// Capacity returns the maximum number of words the buffer can hold.
func (b *Buffer) Capacity() int {
	return len(b.Words)
}

// Size returns the number of words currently held.
func (b *Buffer) Size() int {
	return b.Count
}

// Free returns the number of empty slots.
func (b *Buffer) Free() int {
	return len(b.Words) - b.Count
}

// Empty tells if the buffer holds no word.
func (b *Buffer) Empty() bool {
	return b.Count == 0
}

// Full tells if the buffer cannot accept another word.
func (b *Buffer) Full() bool {
	return b.Count >= len(b.Words)
}

// Push appends a word at the tail.
func (b *Buffer) Push(word uint32) error {
	if b.Full() {
		return ErrFull
	}

	b.Words[b.Tail] = word
	b.Tail = b.wrap(b.Tail + 1)
	b.Count++

	return nil
}

// Pop removes the word at the head and latches it into Dout.
func (b *Buffer) Pop() (uint32, error) {
	if b.Empty() {
		return 0, ErrEmpty
	}

	word := b.Words[b.Head]
	b.Head = b.wrap(b.Head + 1)
	b.Count--
	b.Dout = word

	return word, nil
}

// Peek returns the word at the head without removing it.
func (b *Buffer) Peek() (uint32, bool) {
	if b.Empty() {
		return 0, false
	}

	return b.Words[b.Head], true
}

// Tick applies at most one push and one pop in the same cycle. Both requests
// are judged against the count at the start of the tick, so a push into a full
// buffer is rejected even if a pop frees a slot in the same tick, and a pop
// from an empty buffer is rejected even if a word arrives in the same tick.
//
// The returned flags report which requests took effect. The error reports a
// rejected request.
func (b *Buffer) Tick(
	push bool,
	word uint32,
	pop bool,
) (pushed, popped bool, err error) {
	canPush := !b.Full()
	canPop := !b.Empty()

	switch {
	case !pop:
	case canPop:
		_, err = b.Pop()
		popped = err == nil
	default:
		err = ErrEmpty
	}

	switch {
	case !push:
	case canPush:
		perr := b.Push(word)
		pushed = perr == nil
		err = errors.Join(err, perr)
	default:
		err = errors.Join(err, ErrFull)
	}

	return pushed, popped, err
}

// Flush drops every buffered word and rewinds the pointers.
func (b *Buffer) Flush() {
	b.Head = 0
	b.Tail = 0
	b.Count = 0
	b.Dout = 0
}

// Contents returns the buffered words from head to tail.
func (b *Buffer) Contents() []uint32 {
	out := make([]uint32, 0, b.Count)
	for i := 0; i < b.Count; i++ {
		out = append(out, b.Words[b.wrap(b.Head+i)])
	}

	return out
}

// Clone returns a deep copy of the buffer.
func (b Buffer) Clone() Buffer {
	c := b
	c.Words = append([]uint32(nil), b.Words...)

	return c
}

func (b *Buffer) wrap(i int) int {
	if i >= len(b.Words) {
		return i - len(b.Words)
	}

	return i
}
