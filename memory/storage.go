// Package memory provides storage for guest physical memory images.
package memory

import "errors"

// ErrOutOfRange is returned when an access goes beyond the capacity of the
// physical memory image.
var ErrOutOfRange = errors.New("accessing physical address beyond the storage capacity")

// A Storage keeps the physical memory content of a guest system.
//
// A Storage can stand in for the memory of a live virtual machine or hold
// the content of a raw memory snapshot. It manages the memory in
// page-sized units and only allocates a unit once it is written, so a
// mostly-empty guest image stays cheap to hold. Units that were never
// written read back as zero bytes, matching what a hypervisor reports for
// untouched guest frames.
type Storage struct {
	unitSize uint64
	capacity uint64
	units    map[uint64][]byte
}

// NewStorage creates a Storage that can hold capacity bytes of guest
// physical memory.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		units:    make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) splitAddress(addr uint64) (base, inUnit uint64) {
	inUnit = addr % s.unitSize
	base = addr - inUnit
	return
}

func (s *Storage) unitForWrite(addr uint64) []byte {
	base, _ := s.splitAddress(addr)
	unit, ok := s.units[base]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.units[base] = unit
	}

	return unit
}

// Read returns n bytes starting at the given physical address. Reading a
// unit that was never written yields zero bytes.
func (s *Storage) Read(addr, n uint64) ([]byte, error) {
	if addr+n > s.capacity {
		return nil, ErrOutOfRange
	}

	res := make([]byte, n)
	cursor := addr

	for cursor < addr+n {
		base, inUnit := s.splitAddress(cursor)

		chunk := s.unitSize - inUnit
		if left := addr + n - cursor; left < chunk {
			chunk = left
		}

		if unit, ok := s.units[base]; ok {
			copy(res[cursor-addr:], unit[inUnit:inUnit+chunk])
		}

		cursor += chunk
	}

	return res, nil
}

// Write stores data at the given physical address.
func (s *Storage) Write(addr uint64, data []byte) error {
	if addr+uint64(len(data)) > s.capacity {
		return ErrOutOfRange
	}

	cursor := addr

	for cursor < addr+uint64(len(data)) {
		unit := s.unitForWrite(cursor)
		_, inUnit := s.splitAddress(cursor)

		chunk := s.unitSize - inUnit
		if left := addr + uint64(len(data)) - cursor; left < chunk {
			chunk = left
		}

		copy(unit[inUnit:inUnit+chunk], data[cursor-addr:])
		cursor += chunk
	}

	return nil
}
