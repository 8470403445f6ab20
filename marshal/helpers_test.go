package marshal

import (
	"context"
	"testing"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/linmem"
	"github.com/wippyai/gpubind/procmem"
)

// measuredSpace is a gpubind.Space that reports bytes in use.
type measuredSpace interface {
	gpubind.Space
	InUse() uint64
}

// forEachSpace runs fn against a 32-bit linear memory and the 64-bit
// process address space.
func forEachSpace(t *testing.T, fn func(t *testing.T, space measuredSpace)) {
	t.Run("linmem", func(t *testing.T) {
		ctx := context.Background()
		s, err := linmem.New(ctx, linmem.DefaultConfig())
		if err != nil {
			t.Fatalf("linmem.New: %v", err)
		}
		defer s.Close(ctx)
		fn(t, s)
	})
	t.Run("procmem", func(t *testing.T) {
		fn(t, procmem.New())
	})
}

var (
	testInnerSchema = layout.NewStruct("TestInner",
		layout.F("id", layout.U32),
		layout.F("weight", layout.F32),
	)

	testInfoSchema = layout.NewStruct("TestInfo",
		layout.F("sType", layout.U32),
		layout.F("pNext", layout.Ptr),
		layout.F("pName", layout.Ptr),
		layout.F("valueCount", layout.U32),
		layout.F("pValues", layout.Ptr),
		layout.F("pScale", layout.Ptr),
		layout.F("pInner", layout.Ptr),
		layout.F("inline", layout.Inline(testInnerSchema)),
		layout.F("tagCount", layout.U32),
		layout.F("ppTags", layout.Ptr),
		layout.F("handle", layout.U64),
	)

	testExtSchema = layout.NewStruct("TestExt",
		layout.F("sType", layout.U32),
		layout.F("pNext", layout.Ptr),
		layout.F("value", layout.U32),
	)
)

const (
	testInfoSType = 7
	testExtSType  = 1000000007
)

type testInner struct {
	ID     uint32
	Weight float32
}

func (v *testInner) Schema() *layout.Struct { return testInnerSchema }

func (v *testInner) Lower(_ *Scope, w *Writer) error {
	w.U32("id", v.ID)
	w.F32("weight", v.Weight)
	return nil
}

type testExt struct {
	Value uint32
}

func (e *testExt) Schema() *layout.Struct { return testExtSchema }
func (e *testExt) StructureType() uint32  { return testExtSType }

func (e *testExt) Lower(_ *Scope, w *Writer) error {
	w.U32("value", e.Value)
	return nil
}

type testInfo struct {
	Name   string
	Values []uint32
	Scale  *uint32
	Inner  *testInner
	Inline testInner
	Tags   []string
	Handle uint64
	Next   []Extension
}

func (v *testInfo) Schema() *layout.Struct { return testInfoSchema }

func (v *testInfo) Lower(s *Scope, w *Writer) error {
	name, err := s.OptionalCString([]string{"TestInfo", "pName"}, v.Name)
	if err != nil {
		return err
	}
	values, err := s.U32s(v.Values)
	if err != nil {
		return err
	}
	scale, err := s.BoxU32(v.Scale)
	if err != nil {
		return err
	}
	inner, err := ConvertOptional(s, v.Inner)
	if err != nil {
		return err
	}
	tags, err := s.CStrings([]string{"TestInfo", "ppTags"}, v.Tags)
	if err != nil {
		return err
	}
	next, err := s.Chain(v.Next, 0)
	if err != nil {
		return err
	}

	w.U32("sType", testInfoSType)
	w.Ptr("pNext", next)
	w.Ptr("pName", name)
	w.Count("valueCount", len(v.Values))
	w.Ptr("pValues", values)
	w.Ptr("pScale", scale)
	w.Ptr("pInner", inner.Addr())
	if err := LowerInto(s, w.Inline("inline"), &v.Inline); err != nil {
		return err
	}
	w.Count("tagCount", len(v.Tags))
	w.Ptr("ppTags", tags)
	w.U64("handle", v.Handle)
	return nil
}

// liftTestInfo reads a TestInfo back into its Go form.
func liftTestInfo(t *testing.T, space gpubind.Space, addr uint64) (testInfo, []Link) {
	t.Helper()
	calc := Layouts(space.PointerSize())
	r := NewReader(space, calc, testInfoSchema, addr)

	var out testInfo
	var err error
	if out.Name, err = ReadCString(space, r.Ptr("pName")); err != nil {
		t.Fatalf("read name: %v", err)
	}
	if out.Values, err = ReadU32s(space, r.Ptr("pValues"), int(r.U32("valueCount"))); err != nil {
		t.Fatalf("read values: %v", err)
	}
	if p := r.Ptr("pScale"); p != 0 {
		v, err := space.ReadU32(p)
		if err != nil {
			t.Fatal(err)
		}
		out.Scale = &v
	}
	if p := r.Ptr("pInner"); p != 0 {
		ir := NewReader(space, calc, testInnerSchema, p)
		out.Inner = &testInner{ID: ir.U32("id"), Weight: ir.F32("weight")}
		if err := ir.Err(); err != nil {
			t.Fatal(err)
		}
	}
	in := r.Inline("inline")
	out.Inline = testInner{ID: in.U32("id"), Weight: in.F32("weight")}
	if out.Tags, err = ReadCStrings(space, space.PointerSize(), r.Ptr("ppTags"), int(r.U32("tagCount"))); err != nil {
		t.Fatalf("read tags: %v", err)
	}
	out.Handle = r.U64("handle")

	links, err := WalkChain(space, calc, r.Ptr("pNext"))
	if err != nil {
		t.Fatalf("walk chain: %v", err)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reader: %v", err)
	}
	return out, links
}
