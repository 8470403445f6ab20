package marshal

import (
	"bytes"
	"math"
	"unicode/utf8"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

// Reader loads fields of one native structure by name, with the same
// sticky-error behavior as Writer.
type Reader struct {
	mem  gpubind.Memory
	calc *layout.Calculator
	st   *layout.Struct
	info layout.Info
	addr uint64
	err  *error
}

func NewReader(mem gpubind.Memory, calc *layout.Calculator, st *layout.Struct, addr uint64) *Reader {
	r := &Reader{
		mem:  mem,
		calc: calc,
		st:   st,
		info: calc.Struct(st),
		addr: addr,
		err:  new(error),
	}
	if addr == 0 {
		*r.err = errors.NilPointer(errors.PhaseUnmarshal, []string{st.Name}, st.Name)
	}
	return r
}

// Element returns a reader on element i of an array of st at base.
func Element(mem gpubind.Memory, calc *layout.Calculator, st *layout.Struct, base uint64, i int) *Reader {
	stride := calc.Stride(layout.Inline(st))
	return NewReader(mem, calc, st, base+stride*uint64(i))
}

func (r *Reader) Addr() uint64            { return r.addr }
func (r *Reader) Schema() *layout.Struct { return r.st }
func (r *Reader) Err() error              { return *r.err }

func (r *Reader) Fail(err error) {
	if *r.err == nil && err != nil {
		*r.err = err
	}
}

func (r *Reader) field(name string, kinds ...layout.Kind) (layout.FieldInfo, bool) {
	if *r.err != nil {
		return layout.FieldInfo{}, false
	}
	return lookupField(r.st, r.info, errors.PhaseUnmarshal, r.err, name, kinds...)
}

func (r *Reader) scalar(f layout.FieldInfo) uint64 {
	var (
		v   uint64
		err error
	)
	switch f.Size {
	case 1:
		var b uint8
		b, err = r.mem.ReadU8(r.addr + f.Offset)
		v = uint64(b)
	case 2:
		var h uint16
		h, err = r.mem.ReadU16(r.addr + f.Offset)
		v = uint64(h)
	case 4:
		var u uint32
		u, err = r.mem.ReadU32(r.addr + f.Offset)
		v = uint64(u)
	case 8:
		v, err = r.mem.ReadU64(r.addr + f.Offset)
	}
	r.Fail(err)
	return v
}

func (r *Reader) U8(name string) uint8 {
	if f, ok := r.field(name, layout.KindU8); ok {
		return uint8(r.scalar(f))
	}
	return 0
}

func (r *Reader) U16(name string) uint16 {
	if f, ok := r.field(name, layout.KindU16); ok {
		return uint16(r.scalar(f))
	}
	return 0
}

func (r *Reader) U32(name string) uint32 {
	if f, ok := r.field(name, layout.KindU32); ok {
		return uint32(r.scalar(f))
	}
	return 0
}

func (r *Reader) I32(name string) int32 {
	if f, ok := r.field(name, layout.KindI32); ok {
		return int32(uint32(r.scalar(f)))
	}
	return 0
}

func (r *Reader) U64(name string) uint64 {
	if f, ok := r.field(name, layout.KindU64); ok {
		return r.scalar(f)
	}
	return 0
}

func (r *Reader) I64(name string) int64 {
	if f, ok := r.field(name, layout.KindI64); ok {
		return int64(r.scalar(f))
	}
	return 0
}

func (r *Reader) F32(name string) float32 {
	if f, ok := r.field(name, layout.KindF32); ok {
		return math.Float32frombits(uint32(r.scalar(f)))
	}
	return 0
}

func (r *Reader) F64(name string) float64 {
	if f, ok := r.field(name, layout.KindF64); ok {
		return math.Float64frombits(r.scalar(f))
	}
	return 0
}

func (r *Reader) Bool32(name string) bool {
	return r.U32(name) != 0
}

func (r *Reader) Ptr(name string) uint64 {
	if f, ok := r.field(name, layout.KindPtr); ok {
		return r.scalar(f)
	}
	return 0
}

func (r *Reader) Size(name string) uint64 {
	if f, ok := r.field(name, layout.KindSize); ok {
		return r.scalar(f)
	}
	return 0
}

func (r *Reader) Handle(name string) uint64 {
	if f, ok := r.field(name, layout.KindPtr, layout.KindU64); ok {
		return r.scalar(f)
	}
	return 0
}

// Bytes returns a copy of a fixed-size byte array.
func (r *Reader) Bytes(name string) []byte {
	f, ok := r.field(name, layout.KindArray)
	if !ok {
		return nil
	}
	if f.Type.Elem.Kind != layout.KindU8 {
		r.Fail(errors.TypeMismatch(errors.PhaseUnmarshal, r.st.Name, name, "uint8_t[]", f.Type.String()))
		return nil
	}
	data, err := r.mem.Read(r.addr+f.Offset, f.Type.Len)
	if err != nil {
		r.Fail(err)
		return nil
	}
	return data
}

// Text decodes a fixed-size char array up to its first NUL.
func (r *Reader) Text(name string) string {
	data := r.Bytes(name)
	if data == nil {
		return ""
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	if !utf8.Valid(data) {
		r.Fail(errors.InvalidUTF8(errors.PhaseUnmarshal, []string{r.st.Name, name}, data))
		return ""
	}
	return string(data)
}

func (r *Reader) U64Array(name string) []uint64 {
	f, ok := r.field(name, layout.KindArray)
	if !ok {
		return nil
	}
	if f.Type.Elem.Kind != layout.KindU64 {
		r.Fail(errors.TypeMismatch(errors.PhaseUnmarshal, r.st.Name, name, "uint64_t[]", f.Type.String()))
		return nil
	}
	out, err := ReadU64s(r.mem, r.addr+f.Offset, int(f.Type.Len))
	r.Fail(err)
	return out
}

func (r *Reader) Inline(name string) *Reader {
	f, ok := r.field(name, layout.KindStruct)
	if !ok {
		return &Reader{mem: r.mem, calc: r.calc, st: r.st, info: r.info, addr: r.addr, err: r.err}
	}
	return &Reader{
		mem:  r.mem,
		calc: r.calc,
		st:   f.Type.Struct,
		info: r.calc.Struct(f.Type.Struct),
		addr: r.addr + f.Offset,
		err:  r.err,
	}
}
