// Package umimem provides a memory endpoint that serves UMI requests from
// byte-addressable storage: reads, writes, posted writes, and atomic
// read-modify-write operations.
package umimem

import "fmt"

const pageSize = 1 << 12

// A Storage is a sparse byte-addressable memory. Pages are allocated on
// first touch; reads from untouched pages return zeros.
type Storage struct {
	capacity uint64
	pages    map[uint64][]byte
}

// NewStorage creates a storage of the given capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		capacity: capacity,
		pages:    make(map[uint64][]byte),
	}
}

// Capacity returns the size of the storage in bytes.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Read returns n bytes starting at addr.
func (s *Storage) Read(addr, n uint64) []byte {
	s.checkRange(addr, n)

	out := make([]byte, n)
	for i := uint64(0); i < n; {
		pageID := (addr + i) / pageSize
		offset := (addr + i) % pageSize

		chunk := uint64(pageSize) - offset
		if chunk > n-i {
			chunk = n - i
		}

		if page, ok := s.pages[pageID]; ok {
			copy(out[i:i+chunk], page[offset:])
		}

		i += chunk
	}

	return out
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint64, data []byte) {
	s.checkRange(addr, uint64(len(data)))

	for i := uint64(0); i < uint64(len(data)); {
		pageID := (addr + i) / pageSize
		offset := (addr + i) % pageSize

		chunk := uint64(pageSize) - offset
		if chunk > uint64(len(data))-i {
			chunk = uint64(len(data)) - i
		}

		page, ok := s.pages[pageID]
		if !ok {
			page = make([]byte, pageSize)
			s.pages[pageID] = page
		}
		copy(page[offset:], data[i:i+chunk])

		i += chunk
	}
}

func (s *Storage) checkRange(addr, n uint64) {
	if addr+n > s.capacity {
		panic(fmt.Sprintf(
			"access [0x%X, 0x%X) is beyond the storage capacity 0x%X",
			addr, addr+n, s.capacity))
	}
}
