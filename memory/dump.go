package memory

import (
	"fmt"
	"io"
	"os"
)

// LoadDump reads a raw physical memory snapshot into a Storage. The file
// content is placed at physical address zero, the way full-memory dumps
// taken by hypervisors lay out guest frames.
func LoadDump(path string) (*Storage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	s := NewStorage(uint64(info.Size()))

	buf := make([]byte, s.unitSize)
	addr := uint64(0)

	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			if wErr := s.Write(addr, buf[:n]); wErr != nil {
				return nil, wErr
			}
			addr += uint64(n)
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading dump %s: %w", path, err)
		}
	}

	return s, nil
}

// SaveDump writes the full content of the storage to a raw snapshot file.
func SaveDump(s *Storage, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for addr := uint64(0); addr < s.capacity; addr += s.unitSize {
		n := s.unitSize
		if addr+n > s.capacity {
			n = s.capacity - addr
		}

		data, err := s.Read(addr, n)
		if err != nil {
			return err
		}

		if _, err := f.Write(data); err != nil {
			return err
		}
	}

	return nil
}
