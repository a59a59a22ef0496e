// Package vm implements per-process user address spaces.
package vm

import (
	"encoding/binary"
	"errors"
	"sync"
)

var (
	// ErrFault reports an access outside the address space.
	ErrFault = errors.New("vm: bad address")
	// ErrNoMem reports growth past the space's limit.
	ErrNoMem = errors.New("vm: out of memory")
)

// Space is a flat user address space starting at address 0. Threads of one
// process share it, so accesses are serialized.
type Space struct {
	mu    sync.RWMutex
	limit int
	mem   []byte
	freed bool
}

// New returns a zeroed space of size bytes that may grow up to limit.
func New(limit, size int) (*Space, error) {
	if size < 0 || size > limit {
		return nil, ErrNoMem
	}
	return &Space{limit: limit, mem: make([]byte, size)}, nil
}

// Size returns the current size in bytes.
func (s *Space) Size() uintptr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uintptr(len(s.mem))
}

// Grow changes the size by n bytes, which may be negative, and returns the
// previous size.
func (s *Space) Grow(n int) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freed {
		return 0, ErrFault
	}
	old := len(s.mem)
	sz := old + n
	switch {
	case sz < 0:
		return 0, ErrFault
	case sz > s.limit:
		return 0, ErrNoMem
	case n > 0:
		s.mem = append(s.mem, make([]byte, n)...)
	default:
		s.mem = s.mem[:sz]
	}
	return uintptr(old), nil
}

// Copy returns an independent copy of s with the same limit.
func (s *Space) Copy() (*Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.freed {
		return nil, ErrFault
	}
	mem := make([]byte, len(s.mem))
	copy(mem, s.mem)
	return &Space{limit: s.limit, mem: mem}, nil
}

// Load32 reads the little-endian word at addr.
func (s *Space) Load32(addr uintptr) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.word(addr)
	if !ok {
		return 0, ErrFault
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Store32 writes v as a little-endian word at addr.
func (s *Space) Store32(addr uintptr, v uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.word(addr)
	if !ok {
		return ErrFault
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (s *Space) word(addr uintptr) ([]byte, bool) {
	if s.freed || addr > uintptr(len(s.mem)) || uintptr(len(s.mem))-addr < 4 {
		return nil, false
	}
	return s.mem[addr : addr+4], true
}

// Free releases the memory. Every later access faults.
func (s *Space) Free() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freed = true
	s.mem = nil
}
