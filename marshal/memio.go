package marshal

import (
	"math"
	"unicode/utf8"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

// ReadPtr loads a pointer of the given width.
func ReadPtr(mem gpubind.Memory, ptrSize, addr uint64) (uint64, error) {
	if ptrSize == 4 {
		v, err := mem.ReadU32(addr)
		return uint64(v), err
	}
	return mem.ReadU64(addr)
}

// WritePtr stores a pointer of the given width.
func WritePtr(mem gpubind.Memory, ptrSize, addr, value uint64) error {
	if ptrSize == 4 {
		if value > math.MaxUint32 {
			return errors.Overflow(errors.PhaseMarshal, nil, value, "32-bit pointer")
		}
		return mem.WriteU32(addr, uint32(value))
	}
	return mem.WriteU64(addr, value)
}

func checkArray(addr uint64, n int, what string) (bool, error) {
	if n == 0 {
		return false, nil
	}
	if n < 0 || n > layout.MaxArrayLen {
		return false, errors.Overflow(errors.PhaseUnmarshal, []string{what}, n, "array length")
	}
	if addr == 0 {
		return false, errors.NilPointer(errors.PhaseUnmarshal, []string{what}, what)
	}
	return true, nil
}

// ReadCString decodes a NUL-terminated string. A null address is "".
func ReadCString(mem gpubind.Memory, addr uint64) (string, error) {
	if addr == 0 {
		return "", nil
	}
	var buf []byte
	for {
		b, err := mem.ReadU8(addr + uint64(len(buf)))
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
		if len(buf) >= layout.MaxStringSize {
			return "", errors.Overflow(errors.PhaseUnmarshal, nil, len(buf), "string")
		}
	}
	if !utf8.Valid(buf) {
		return "", errors.InvalidUTF8(errors.PhaseUnmarshal, nil, buf)
	}
	return string(buf), nil
}

// ReadCStrings decodes an array of n string pointers.
func ReadCStrings(mem gpubind.Memory, ptrSize, addr uint64, n int) ([]string, error) {
	if ok, err := checkArray(addr, n, "char*[]"); !ok {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		p, err := ReadPtr(mem, ptrSize, addr+uint64(i)*ptrSize)
		if err != nil {
			return nil, err
		}
		if out[i], err = ReadCString(mem, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ReadU32s(mem gpubind.Memory, addr uint64, n int) ([]uint32, error) {
	if ok, err := checkArray(addr, n, "uint32_t[]"); !ok {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		v, err := mem.ReadU32(addr + 4*uint64(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func ReadU64s(mem gpubind.Memory, addr uint64, n int) ([]uint64, error) {
	if ok, err := checkArray(addr, n, "uint64_t[]"); !ok {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		v, err := mem.ReadU64(addr + 8*uint64(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func ReadF32s(mem gpubind.Memory, addr uint64, n int) ([]float32, error) {
	raw, err := ReadU32s(mem, addr, n)
	if err != nil || raw == nil {
		return nil, err
	}
	out := make([]float32, n)
	for i, v := range raw {
		out[i] = math.Float32frombits(v)
	}
	return out, nil
}

func ReadBytes(mem gpubind.Memory, addr uint64, n int) ([]byte, error) {
	if ok, err := checkArray(addr, n, "uint8_t[]"); !ok {
		return nil, err
	}
	return mem.Read(addr, uint64(n))
}

// ReadPtrs decodes an array of n pointer-width values (dispatchable handles).
func ReadPtrs(mem gpubind.Memory, ptrSize, addr uint64, n int) ([]uint64, error) {
	if ptrSize != 4 {
		return ReadU64s(mem, addr, n)
	}
	raw, err := ReadU32s(mem, addr, n)
	if err != nil || raw == nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i, v := range raw {
		out[i] = uint64(v)
	}
	return out, nil
}
