package marshal

import (
	"math"
	"strconv"
	"unicode/utf8"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

var (
	calc32 = layout.NewCalculator(layout.Target32)
	calc64 = layout.NewCalculator(layout.Target64)
)

// Layouts returns the shared layout calculator for a pointer width.
func Layouts(pointerSize uint64) *layout.Calculator {
	if pointerSize == 4 {
		return calc32
	}
	return calc64
}

// Scope is the arena for one native call. Every allocation made through
// it is freed by Close. A Scope is not safe for concurrent use.
type Scope struct {
	space  gpubind.Space
	calc   *layout.Calculator
	allocs *AllocationList
}

func NewScope(space gpubind.Space) *Scope {
	return &Scope{
		space:  space,
		calc:   Layouts(space.PointerSize()),
		allocs: NewAllocationList(),
	}
}

func (s *Scope) Space() gpubind.Space        { return s.space }
func (s *Scope) Layout() *layout.Calculator { return s.calc }

// Allocations is the number of live allocations owned by the scope.
func (s *Scope) Allocations() int {
	if s.allocs == nil {
		return 0
	}
	return s.allocs.Count()
}

// Close frees everything the scope allocated. Safe to call more than once.
func (s *Scope) Close() {
	if s.allocs == nil {
		return
	}
	s.allocs.FreeAndRelease(s.space)
	s.allocs = nil
}

// Alloc returns zeroed memory owned by the scope.
func (s *Scope) Alloc(size, align uint64) (uint64, error) {
	if s.allocs == nil {
		return 0, errors.InvalidInput(errors.PhaseMarshal, "scope is closed")
	}
	if size > layout.MaxAlloc {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size, align, nil)
	}
	if size == 0 {
		size = 1
	}
	addr, err := s.space.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseMarshal, size, align, err)
	}
	s.allocs.Add(addr, size, align)
	return addr, nil
}

// Struct allocates one zeroed instance of st and returns a writer on it.
func (s *Scope) Struct(st *layout.Struct) (*Writer, error) {
	info := s.calc.Struct(st)
	addr, err := s.Alloc(info.Size, info.Align)
	if err != nil {
		return nil, err
	}
	return NewWriter(s.space, s.calc, st, addr), nil
}

// Array allocates n zeroed, contiguous instances of st.
func (s *Scope) Array(st *layout.Struct, n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	info := s.calc.Struct(st)
	total, ok := layout.SafeMul(layout.AlignTo(info.Size, info.Align), uint64(n))
	if !ok || n > layout.MaxArrayLen {
		return 0, errors.Overflow(errors.PhaseMarshal, []string{st.Name}, n, "array length")
	}
	return s.Alloc(total, info.Align)
}

// Element returns a writer on element i of an array of st at base.
func (s *Scope) Element(st *layout.Struct, base uint64, i int) *Writer {
	stride := s.calc.Stride(layout.Inline(st))
	return NewWriter(s.space, s.calc, st, base+stride*uint64(i))
}

// Out allocates a zeroed output slot for one value of type t.
func (s *Scope) Out(t layout.Type) (uint64, error) {
	info := s.calc.Calculate(t)
	return s.Alloc(info.Size, info.Align)
}

// OutArray allocates n zeroed output slots of type t.
func (s *Scope) OutArray(t layout.Type, n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	info := s.calc.Calculate(t)
	total, ok := layout.SafeMul(layout.AlignTo(info.Size, info.Align), uint64(n))
	if !ok || n > layout.MaxArrayLen {
		return 0, errors.Overflow(errors.PhaseMarshal, nil, n, "array length")
	}
	return s.Alloc(total, info.Align)
}

// ValidateText checks that text can become a NUL-terminated native string.
func ValidateText(path []string, text string) error {
	for i := 0; i < len(text); i++ {
		if text[i] == 0 {
			return errors.EmbeddedNul(path, text, i)
		}
	}
	if !utf8.ValidString(text) {
		return errors.InvalidUTF8(errors.PhaseMarshal, path, []byte(text))
	}
	if len(text) >= layout.MaxStringSize {
		return errors.Overflow(errors.PhaseMarshal, path, len(text), "string")
	}
	return nil
}

// CString copies text into the scope with a terminating NUL.
func (s *Scope) CString(path []string, text string) (uint64, error) {
	if err := ValidateText(path, text); err != nil {
		return 0, err
	}
	addr, err := s.Alloc(uint64(len(text))+1, 1)
	if err != nil {
		return 0, err
	}
	if len(text) > 0 {
		if err := s.space.Write(addr, []byte(text)); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

// OptionalCString is CString with the empty string mapped to null.
func (s *Scope) OptionalCString(path []string, text string) (uint64, error) {
	if text == "" {
		return 0, nil
	}
	return s.CString(path, text)
}

// CStrings lowers list to an array of string pointers. Empty lists are null.
func (s *Scope) CStrings(path []string, list []string) (uint64, error) {
	if len(list) == 0 {
		return 0, nil
	}
	ptrSize := s.space.PointerSize()
	arr, err := s.Alloc(ptrSize*uint64(len(list)), ptrSize)
	if err != nil {
		return 0, err
	}
	for i, text := range list {
		p, err := s.CString(appendPath(path, i), text)
		if err != nil {
			return 0, err
		}
		if err := WritePtr(s.space, ptrSize, arr+uint64(i)*ptrSize, p); err != nil {
			return 0, err
		}
	}
	return arr, nil
}

// Bytes copies data into the scope. Empty data is null.
func (s *Scope) Bytes(data []byte, align uint64) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	addr, err := s.Alloc(uint64(len(data)), align)
	if err != nil {
		return 0, err
	}
	return addr, s.space.Write(addr, data)
}

func (s *Scope) U32s(values []uint32) (uint64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	addr, err := s.Alloc(4*uint64(len(values)), 4)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if err := s.space.WriteU32(addr+4*uint64(i), v); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

func (s *Scope) U64s(values []uint64) (uint64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	addr, err := s.Alloc(8*uint64(len(values)), 8)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if err := s.space.WriteU64(addr+8*uint64(i), v); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

func (s *Scope) F32s(values []float32) (uint64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	addr, err := s.Alloc(4*uint64(len(values)), 4)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if err := s.space.WriteU32(addr+4*uint64(i), math.Float32bits(v)); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

// BoxU32 lowers an optional scalar: nil is null, otherwise a pointer to a copy.
func (s *Scope) BoxU32(v *uint32) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	return s.U32s([]uint32{*v})
}

// Count converts a Go length to a native uint32 count.
func Count(path []string, n int) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseMarshal, path, n, "uint32_t")
	}
	return uint32(n), nil
}

func appendPath(path []string, i int) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	if len(out) == 0 {
		return append(out, "["+strconv.Itoa(i)+"]")
	}
	out[len(out)-1] += "[" + strconv.Itoa(i) + "]"
	return out
}
