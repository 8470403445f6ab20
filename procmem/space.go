package procmem

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"unsafe"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

type allocation struct {
	buf  []byte
	pin  runtime.Pinner
	base uint64
	size uint64
}

func (a *allocation) contains(addr, length uint64) bool {
	end, ok := layout.SafeAdd(addr, length)
	return ok && addr >= a.base && end <= a.base+a.size
}

// Space is a gpubind.Space over pinned Go memory.
type Space struct {
	live  []*allocation // sorted by base
	inUse uint64
	mu    sync.RWMutex
}

var _ gpubind.Space = (*Space)(nil)

func New() *Space {
	return &Space{}
}

func (s *Space) PointerSize() uint64 {
	return uint64(unsafe.Sizeof(uintptr(0)))
}

// InUse is the number of bytes currently allocated.
func (s *Space) InUse() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inUse
}

func (s *Space) Alloc(size, align uint64) (uint64, error) {
	if size == 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, "zero-sized allocation")
	}
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, fmt.Sprintf("alignment %d is not a power of two", align))
	}
	total, ok := layout.SafeAdd(size, align-1)
	if !ok || total > layout.MaxAlloc {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align,
			fmt.Errorf("exceeds maximum allocation of %d bytes", layout.MaxAlloc))
	}

	buf := make([]byte, total)
	start := uint64(uintptr(unsafe.Pointer(&buf[0])))
	skip := layout.AlignTo(start, align) - start

	a := &allocation{
		buf:  buf[skip : skip+size : skip+size],
		base: start + skip,
		size: size,
	}
	a.pin.Pin(&a.buf[0])

	s.mu.Lock()
	i, _ := slices.BinarySearchFunc(s.live, a.base, func(e *allocation, base uint64) int {
		return cmpU64(e.base, base)
	})
	s.live = slices.Insert(s.live, i, a)
	s.inUse += size
	s.mu.Unlock()

	return a.base, nil
}

// Free unpins the allocation starting at addr. Unknown addresses are ignored.
func (s *Space) Free(addr, size, align uint64) {
	if addr == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := slices.BinarySearchFunc(s.live, addr, func(e *allocation, base uint64) int {
		return cmpU64(e.base, base)
	})
	if !found {
		return
	}
	a := s.live[i]
	s.live = slices.Delete(s.live, i, i+1)
	s.inUse -= a.size
	a.pin.Unpin()
}

// bytes returns the live slice backing [addr, addr+length).
func (s *Space) bytes(addr, length uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, found := slices.BinarySearchFunc(s.live, addr, func(e *allocation, base uint64) int {
		return cmpU64(e.base, base)
	})
	if !found {
		i--
	}
	if i < 0 || !s.live[i].contains(addr, length) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, addr, length, 0)
	}
	a := s.live[i]
	off := addr - a.base
	return a.buf[off : off+length], nil
}

func cmpU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (s *Space) Read(addr uint64, length uint64) ([]byte, error) {
	b, err := s.bytes(addr, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (s *Space) Write(addr uint64, data []byte) error {
	b, err := s.bytes(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (s *Space) ReadU8(addr uint64) (uint8, error) {
	b, err := s.bytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Space) ReadU16(addr uint64) (uint16, error) {
	b, err := s.bytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *Space) ReadU32(addr uint64) (uint32, error) {
	b, err := s.bytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Space) ReadU64(addr uint64) (uint64, error) {
	b, err := s.bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (s *Space) WriteU8(addr uint64, value uint8) error {
	b, err := s.bytes(addr, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (s *Space) WriteU16(addr uint64, value uint16) error {
	b, err := s.bytes(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (s *Space) WriteU32(addr uint64, value uint32) error {
	b, err := s.bytes(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (s *Space) WriteU64(addr uint64, value uint64) error {
	b, err := s.bytes(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
