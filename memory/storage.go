// Package memory provides the sparse byte storage behind the simulated bus
// target.
package memory

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an access touches bytes beyond the storage
// capacity.
var ErrOutOfRange = errors.New(
	"accessing address beyond the storage capacity")

// A Storage keeps the bytes of a flat memory.
//
// The storage manages the bytes in units, similar to pages. Units that are
// never touched by Read or Write are not allocated and read as zero.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	return NewStorageWithUnitSize(capacity, 4096)
}

// NewStorageWithUnitSize creates a storage object whose allocation unit is
// unitSize bytes.
func NewStorageWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("storage unit size must be positive")
	}

	storage := new(Storage)
	storage.unitSize = unitSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of addressable bytes.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Contains tells if the byte range [address, address+length) is inside the
// storage.
func (s *Storage) Contains(address, length uint64) bool {
	end := address + length

	return end >= address && end <= s.capacity
}

func (s *Storage) getUnit(address uint64, create bool) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok && create {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read returns length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	if !s.Contains(address, length) {
		return nil, fmt.Errorf("read 0x%x+%d: %w", address, length, ErrOutOfRange)
	}

	currAddr := address
	dataOffset := uint64(0)
	res := make([]byte, length)

	for dataOffset < length {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToRead := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		unit := s.getUnit(currAddr, false)
		if unit != nil {
			copy(res[dataOffset:dataOffset+lenToRead],
				unit[inUnitAddr:inUnitAddr+lenToRead])
		}

		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	length := uint64(len(data))
	if !s.Contains(address, length) {
		return fmt.Errorf("write 0x%x+%d: %w", address, length, ErrOutOfRange)
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToWrite := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		unit := s.getUnit(currAddr, true)
		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])

		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// Reset drops all stored bytes.
func (s *Storage) Reset() {
	s.data = make(map[uint64][]byte)
}
