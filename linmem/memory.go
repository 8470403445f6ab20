package linmem

import (
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

func (s *Space) offset(addr, length uint64) (uint32, error) {
	end, ok := layout.SafeAdd(addr, length)
	if !ok || end > uint64(s.mem.Size()) {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, length, s.Size())
	}
	return uint32(addr), nil
}

// Read returns a copy of length bytes at addr.
func (s *Space) Read(addr uint64, length uint64) ([]byte, error) {
	off, err := s.offset(addr, length)
	if err != nil {
		return nil, err
	}
	data, ok := s.mem.Read(off, uint32(length))
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, addr, length, s.Size())
	}
	return append([]byte(nil), data...), nil
}

func (s *Space) Write(addr uint64, data []byte) error {
	off, err := s.offset(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	if !s.mem.Write(off, data) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, uint64(len(data)), s.Size())
	}
	return nil
}

func (s *Space) ReadU8(addr uint64) (uint8, error) {
	off, err := s.offset(addr, 1)
	if err != nil {
		return 0, err
	}
	v, ok := s.mem.ReadByte(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, 1, s.Size())
	}
	return v, nil
}

func (s *Space) ReadU16(addr uint64) (uint16, error) {
	off, err := s.offset(addr, 2)
	if err != nil {
		return 0, err
	}
	v, ok := s.mem.ReadUint16Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, 2, s.Size())
	}
	return v, nil
}

func (s *Space) ReadU32(addr uint64) (uint32, error) {
	off, err := s.offset(addr, 4)
	if err != nil {
		return 0, err
	}
	v, ok := s.mem.ReadUint32Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, 4, s.Size())
	}
	return v, nil
}

func (s *Space) ReadU64(addr uint64) (uint64, error) {
	off, err := s.offset(addr, 8)
	if err != nil {
		return 0, err
	}
	v, ok := s.mem.ReadUint64Le(off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, addr, 8, s.Size())
	}
	return v, nil
}

func (s *Space) WriteU8(addr uint64, value uint8) error {
	off, err := s.offset(addr, 1)
	if err != nil {
		return err
	}
	if !s.mem.WriteByte(off, value) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, 1, s.Size())
	}
	return nil
}

func (s *Space) WriteU16(addr uint64, value uint16) error {
	off, err := s.offset(addr, 2)
	if err != nil {
		return err
	}
	if !s.mem.WriteUint16Le(off, value) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, 2, s.Size())
	}
	return nil
}

func (s *Space) WriteU32(addr uint64, value uint32) error {
	off, err := s.offset(addr, 4)
	if err != nil {
		return err
	}
	if !s.mem.WriteUint32Le(off, value) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, 4, s.Size())
	}
	return nil
}

func (s *Space) WriteU64(addr uint64, value uint64) error {
	off, err := s.offset(addr, 8)
	if err != nil {
		return err
	}
	if !s.mem.WriteUint64Le(off, value) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, 8, s.Size())
	}
	return nil
}
