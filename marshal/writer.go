package marshal

import (
	"math"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

// Writer stores fields of one native structure by name. The first error
// sticks: later calls are no-ops and Err reports it. Writers returned by
// Inline share the error of their parent.
type Writer struct {
	mem  gpubind.Memory
	calc *layout.Calculator
	st   *layout.Struct
	info layout.Info
	addr uint64
	err  *error
}

func NewWriter(mem gpubind.Memory, calc *layout.Calculator, st *layout.Struct, addr uint64) *Writer {
	return &Writer{
		mem:  mem,
		calc: calc,
		st:   st,
		info: calc.Struct(st),
		addr: addr,
		err:  new(error),
	}
}

func (w *Writer) Addr() uint64            { return w.addr }
func (w *Writer) Schema() *layout.Struct { return w.st }
func (w *Writer) Err() error              { return *w.err }

// Fail records err unless an error is already recorded.
func (w *Writer) Fail(err error) {
	if *w.err == nil && err != nil {
		*w.err = err
	}
}

func (w *Writer) field(name string, kinds ...layout.Kind) (layout.FieldInfo, bool) {
	if *w.err != nil {
		return layout.FieldInfo{}, false
	}
	return lookupField(w.st, w.info, errors.PhaseMarshal, w.err, name, kinds...)
}

func lookupField(st *layout.Struct, info layout.Info, phase errors.Phase, errp *error, name string, kinds ...layout.Kind) (layout.FieldInfo, bool) {
	f, ok := info.Fields[name]
	if !ok {
		*errp = errors.FieldUnknown(phase, st.Name, name)
		return f, false
	}
	for _, k := range kinds {
		if f.Type.Kind == k {
			return f, true
		}
	}
	*errp = errors.TypeMismatch(phase, st.Name, name, kinds[0].String(), f.Type.String())
	return f, false
}

func (w *Writer) scalar(name string, f layout.FieldInfo, v uint64) {
	var err error
	switch f.Size {
	case 1:
		err = w.mem.WriteU8(w.addr+f.Offset, uint8(v))
	case 2:
		err = w.mem.WriteU16(w.addr+f.Offset, uint16(v))
	case 4:
		if v > math.MaxUint32 {
			err = errors.Overflow(errors.PhaseMarshal, []string{w.st.Name, name}, v, f.Type.String())
			break
		}
		err = w.mem.WriteU32(w.addr+f.Offset, uint32(v))
	case 8:
		err = w.mem.WriteU64(w.addr+f.Offset, v)
	}
	w.Fail(err)
}

func (w *Writer) U8(name string, v uint8) {
	if f, ok := w.field(name, layout.KindU8); ok {
		w.scalar(name, f, uint64(v))
	}
}

func (w *Writer) U16(name string, v uint16) {
	if f, ok := w.field(name, layout.KindU16); ok {
		w.scalar(name, f, uint64(v))
	}
}

func (w *Writer) U32(name string, v uint32) {
	if f, ok := w.field(name, layout.KindU32); ok {
		w.scalar(name, f, uint64(v))
	}
}

func (w *Writer) I32(name string, v int32) {
	if f, ok := w.field(name, layout.KindI32); ok {
		w.scalar(name, f, uint64(uint32(v)))
	}
}

func (w *Writer) U64(name string, v uint64) {
	if f, ok := w.field(name, layout.KindU64); ok {
		w.scalar(name, f, v)
	}
}

func (w *Writer) I64(name string, v int64) {
	if f, ok := w.field(name, layout.KindI64); ok {
		w.scalar(name, f, uint64(v))
	}
}

func (w *Writer) F32(name string, v float32) {
	if f, ok := w.field(name, layout.KindF32); ok {
		w.scalar(name, f, uint64(math.Float32bits(v)))
	}
}

func (w *Writer) F64(name string, v float64) {
	if f, ok := w.field(name, layout.KindF64); ok {
		w.scalar(name, f, math.Float64bits(v))
	}
}

// Bool32 writes a 32-bit boolean (1 or 0).
func (w *Writer) Bool32(name string, v bool) {
	var b uint32
	if v {
		b = 1
	}
	w.U32(name, b)
}

// Ptr writes an address into a pointer field.
func (w *Writer) Ptr(name string, addr uint64) {
	if f, ok := w.field(name, layout.KindPtr); ok {
		w.scalar(name, f, addr)
	}
}

// Size writes a size_t field.
func (w *Writer) Size(name string, v uint64) {
	if f, ok := w.field(name, layout.KindSize); ok {
		w.scalar(name, f, v)
	}
}

// Handle writes a handle into either a pointer-sized (dispatchable) or a
// 64-bit (non-dispatchable) field.
func (w *Writer) Handle(name string, h uint64) {
	if f, ok := w.field(name, layout.KindPtr, layout.KindU64); ok {
		w.scalar(name, f, h)
	}
}

// Count writes a Go length into a uint32 count field.
func (w *Writer) Count(name string, n int) {
	c, err := Count([]string{w.st.Name, name}, n)
	if err != nil {
		w.Fail(err)
		return
	}
	w.U32(name, c)
}

// Bytes fills a fixed-size byte array. Unused trailing bytes stay zero.
func (w *Writer) Bytes(name string, data []byte) {
	f, ok := w.field(name, layout.KindArray)
	if !ok {
		return
	}
	if f.Type.Elem.Kind != layout.KindU8 {
		w.Fail(errors.TypeMismatch(errors.PhaseMarshal, w.st.Name, name, "uint8_t[]", f.Type.String()))
		return
	}
	if uint64(len(data)) > f.Type.Len {
		w.Fail(errors.Overflow(errors.PhaseMarshal, []string{w.st.Name, name}, len(data), f.Type.String()))
		return
	}
	w.Fail(w.mem.Write(w.addr+f.Offset, data))
}

// Text fills a fixed-size char array with text and a terminating NUL.
func (w *Writer) Text(name string, text string) {
	if *w.err != nil {
		return
	}
	if err := ValidateText([]string{w.st.Name, name}, text); err != nil {
		w.Fail(err)
		return
	}
	buf := make([]byte, len(text)+1)
	copy(buf, text)
	w.Bytes(name, buf)
}

// U64Array fills a fixed-size array of 64-bit values.
func (w *Writer) U64Array(name string, values []uint64) {
	f, ok := w.field(name, layout.KindArray)
	if !ok {
		return
	}
	if f.Type.Elem.Kind != layout.KindU64 || uint64(len(values)) > f.Type.Len {
		w.Fail(errors.TypeMismatch(errors.PhaseMarshal, w.st.Name, name, "uint64_t[]", f.Type.String()))
		return
	}
	for i, v := range values {
		w.Fail(w.mem.WriteU64(w.addr+f.Offset+8*uint64(i), v))
	}
}

// Inline returns a writer on an embedded structure field.
func (w *Writer) Inline(name string) *Writer {
	f, ok := w.field(name, layout.KindStruct)
	if !ok {
		return &Writer{mem: w.mem, calc: w.calc, st: w.st, info: w.info, addr: w.addr, err: w.err}
	}
	return &Writer{
		mem:  w.mem,
		calc: w.calc,
		st:   f.Type.Struct,
		info: w.calc.Struct(f.Type.Struct),
		addr: w.addr + f.Offset,
		err:  w.err,
	}
}
