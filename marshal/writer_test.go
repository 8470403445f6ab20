package marshal

import (
	"math"
	"strconv"
	"testing"

	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

var scalarSchema = layout.NewStruct("Scalars",
	layout.F("u8", layout.U8),
	layout.F("u16", layout.U16),
	layout.F("u32", layout.U32),
	layout.F("i32", layout.I32),
	layout.F("u64", layout.U64),
	layout.F("i64", layout.I64),
	layout.F("f32", layout.F32),
	layout.F("f64", layout.F64),
	layout.F("ptr", layout.Ptr),
	layout.F("size", layout.Size),
	layout.F("name", layout.Array(layout.U8, 8)),
	layout.F("limits", layout.Array(layout.U64, 3)),
	layout.F("dispatchable", layout.Ptr),
	layout.F("nonDispatchable", layout.U64),
)

func TestWriterReaderScalars(t *testing.T) {
	forEachSpace(t, func(t *testing.T, space measuredSpace) {
		scope := NewScope(space)
		defer scope.Close()

		w, err := scope.Struct(scalarSchema)
		if err != nil {
			t.Fatal(err)
		}
		w.U8("u8", 0xab)
		w.U16("u16", 0xbeef)
		w.U32("u32", 0xdeadbeef)
		w.I32("i32", -5)
		w.U64("u64", 1<<40)
		w.I64("i64", -1<<40)
		w.F32("f32", 1.5)
		w.F64("f64", -2.25)
		w.Ptr("ptr", 0x1000)
		w.Size("size", 77)
		w.Text("name", "gpu")
		w.U64Array("limits", []uint64{1, 2, 3})
		w.Handle("dispatchable", 0x2000)
		w.Handle("nonDispatchable", 0xffff_ffff_0000_0001)
		if err := w.Err(); err != nil {
			t.Fatalf("write: %v", err)
		}

		r := NewReader(space, scope.Layout(), scalarSchema, w.Addr())
		checks := []struct {
			name string
			got  any
			want any
		}{
			{"u8", r.U8("u8"), uint8(0xab)},
			{"u16", r.U16("u16"), uint16(0xbeef)},
			{"u32", r.U32("u32"), uint32(0xdeadbeef)},
			{"i32", r.I32("i32"), int32(-5)},
			{"u64", r.U64("u64"), uint64(1 << 40)},
			{"i64", r.I64("i64"), int64(-1 << 40)},
			{"f32", r.F32("f32"), float32(1.5)},
			{"f64", r.F64("f64"), -2.25},
			{"ptr", r.Ptr("ptr"), uint64(0x1000)},
			{"size", r.Size("size"), uint64(77)},
			{"name", r.Text("name"), "gpu"},
			{"dispatchable", r.Handle("dispatchable"), uint64(0x2000)},
			{"nonDispatchable", r.Handle("nonDispatchable"), uint64(0xffff_ffff_0000_0001)},
		}
		for _, c := range checks {
			if c.got != c.want {
				t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
			}
		}
		limits := r.U64Array("limits")
		if len(limits) != 3 || limits[0] != 1 || limits[2] != 3 {
			t.Errorf("limits = %v", limits)
		}
		if err := r.Err(); err != nil {
			t.Errorf("read: %v", err)
		}
	})
}

func TestWriterErrors(t *testing.T) {
	forEachSpace(t, func(t *testing.T, space measuredSpace) {
		tests := []struct {
			name  string
			write func(w *Writer)
			kind  errors.Kind
		}{
			{"unknown field", func(w *Writer) { w.U32("missing", 1) }, errors.KindFieldUnknown},
			{"wrong width", func(w *Writer) { w.U64("u32", 1) }, errors.KindTypeMismatch},
			{"ptr as u32", func(w *Writer) { w.U32("ptr", 1) }, errors.KindTypeMismatch},
			{"text too long", func(w *Writer) { w.Text("name", "12345678") }, errors.KindOverflow},
			{"text with nul", func(w *Writer) { w.Text("name", "a\x00b") }, errors.KindEmbeddedNul},
			{"bytes into u64 array", func(w *Writer) { w.Bytes("limits", []byte{1}) }, errors.KindTypeMismatch},
			{"inline on scalar", func(w *Writer) { w.Inline("u32").U32("x", 1) }, errors.KindTypeMismatch},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				scope := NewScope(space)
				defer scope.Close()

				w, err := scope.Struct(scalarSchema)
				if err != nil {
					t.Fatal(err)
				}
				tt.write(w)
				w.U32("u32", 5) // sticky: must not clear or replace the first error

				var e *errors.Error
				if !errors.As(w.Err(), &e) {
					t.Fatalf("expected *errors.Error, got %v", w.Err())
				}
				if e.Kind != tt.kind {
					t.Errorf("Kind = %s, want %s", e.Kind, tt.kind)
				}
			})
		}
	})
}

func TestPointerWidthOverflow(t *testing.T) {
	forEachSpace(t, func(t *testing.T, space measuredSpace) {
		scope := NewScope(space)
		defer scope.Close()

		w, err := scope.Struct(scalarSchema)
		if err != nil {
			t.Fatal(err)
		}
		w.Ptr("ptr", 1<<40)
		overflow := errors.Is(w.Err(), &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindOverflow})
		if space.PointerSize() == 4 && !overflow {
			t.Errorf("40-bit pointer in 32-bit space: %v", w.Err())
		}
		if space.PointerSize() == 8 && w.Err() != nil {
			t.Errorf("40-bit pointer in 64-bit space: %v", w.Err())
		}
	})
}

func TestReaderNull(t *testing.T) {
	forEachSpace(t, func(t *testing.T, space measuredSpace) {
		r := NewReader(space, Layouts(space.PointerSize()), scalarSchema, 0)
		if r.U32("u32") != 0 {
			t.Error("null reader returned data")
		}
		if !errors.Is(r.Err(), &errors.Error{Phase: errors.PhaseUnmarshal, Kind: errors.KindNilPointer}) {
			t.Errorf("got %v", r.Err())
		}
	})
}

func TestReadHelpers(t *testing.T) {
	forEachSpace(t, func(t *testing.T, space measuredSpace) {
		scope := NewScope(space)
		defer scope.Close()

		if s, err := ReadCString(space, 0); s != "" || err != nil {
			t.Errorf("ReadCString(null) = %q, %v", s, err)
		}
		if v, err := ReadU32s(space, 0, 0); v != nil || err != nil {
			t.Errorf("ReadU32s(null, 0) = %v, %v", v, err)
		}
		if _, err := ReadU32s(space, 0, 2); !errors.Is(err, &errors.Error{Phase: errors.PhaseUnmarshal, Kind: errors.KindNilPointer}) {
			t.Errorf("ReadU32s(null, 2) = %v", err)
		}

		bad, err := scope.Bytes([]byte{0xff, 0xfe, 0}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ReadCString(space, bad); !errors.Is(err, &errors.Error{Phase: errors.PhaseUnmarshal, Kind: errors.KindInvalidUTF8}) {
			t.Errorf("ReadCString(invalid) = %v", err)
		}

		floats, err := scope.F32s([]float32{0.25, -8})
		if err != nil {
			t.Fatal(err)
		}
		got, err := ReadF32s(space, floats, 2)
		if err != nil || got[0] != 0.25 || got[1] != -8 {
			t.Errorf("ReadF32s = %v, %v", got, err)
		}

		handles, err := scope.OutArray(layout.Ptr, 2)
		if err != nil {
			t.Fatal(err)
		}
		ps := space.PointerSize()
		if err := WritePtr(space, ps, handles+ps, 0x42); err != nil {
			t.Fatal(err)
		}
		hs, err := ReadPtrs(space, ps, handles, 2)
		if err != nil || hs[0] != 0 || hs[1] != 0x42 {
			t.Errorf("ReadPtrs = %v, %v", hs, err)
		}
	})
}

func TestCount(t *testing.T) {
	if _, err := Count(nil, -1); err == nil {
		t.Error("negative count should fail")
	}
	if c, err := Count(nil, 12); err != nil || c != 12 {
		t.Errorf("Count(12) = %d, %v", c, err)
	}
	if strconv.IntSize == 64 {
		n := uint64(math.MaxUint32) + 1
		_, err := Count([]string{"pFences"}, int(n))
		if !errors.Is(err, &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindOverflow}) {
			t.Errorf("Count(2^32) = %v, want overflow", err)
		}
	}
}
