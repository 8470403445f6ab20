package marshal

import (
	"fmt"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

// Extension is a structure that can be linked into a pNext chain.
// Lower must not write sType or pNext; the chain owns both.
type Extension interface {
	Lowerer
	StructureType() uint32
}

// MaxChainLength bounds chain traversal so a corrupt chain cannot loop forever.
const MaxChainLength = 64

var chainHeader = layout.NewStruct("VkBaseInStructure",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
)

// Chain lowers exts in order and links them: each element's pNext points
// at the next element and the last one at tail. It returns the head, or
// tail itself when exts is empty.
func (s *Scope) Chain(exts []Extension, tail uint64) (uint64, error) {
	if len(exts) == 0 {
		return tail, nil
	}
	if len(exts) > MaxChainLength {
		return 0, errors.Overflow(errors.PhaseMarshal, []string{"pNext"}, len(exts), "extension chain")
	}

	writers := make([]*Writer, len(exts))
	for i, ext := range exts {
		path := []string{fmt.Sprintf("pNext[%d]", i)}
		if ext == nil {
			return 0, errors.NilPointer(errors.PhaseMarshal, path, "Extension")
		}
		schema := ext.Schema()
		if !schema.Extensible() {
			return 0, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
				Path(path...).
				NativeType(schema.Name).
				Detail("structure has no sType/pNext header").
				Build()
		}
		w, err := s.Struct(schema)
		if err != nil {
			return 0, err
		}
		w.U32("sType", ext.StructureType())
		if err := lower(s, w, ext); err != nil {
			return 0, err
		}
		writers[i] = w
	}

	for i, w := range writers {
		next := tail
		if i+1 < len(writers) {
			next = writers[i+1].Addr()
		}
		w.Ptr("pNext", next)
		if err := w.Err(); err != nil {
			return 0, err
		}
	}
	return writers[0].Addr(), nil
}

// Link is one element of a native extension chain.
type Link struct {
	Addr  uint64
	SType uint32
}

// WalkChain follows pNext from head and returns every element in order.
func WalkChain(mem gpubind.Memory, calc *layout.Calculator, head uint64) ([]Link, error) {
	var links []Link
	for addr := head; addr != 0; {
		if len(links) == MaxChainLength {
			return nil, errors.Overflow(errors.PhaseUnmarshal, []string{"pNext"}, len(links), "extension chain")
		}
		r := NewReader(mem, calc, chainHeader, addr)
		links = append(links, Link{Addr: addr, SType: r.U32("sType")})
		addr = r.Ptr("pNext")
		if err := r.Err(); err != nil {
			return nil, err
		}
	}
	return links, nil
}

// FindInChain returns the address of the first element with the given
// sType, or 0.
func FindInChain(mem gpubind.Memory, calc *layout.Calculator, head uint64, sType uint32) (uint64, error) {
	links, err := WalkChain(mem, calc, head)
	if err != nil {
		return 0, err
	}
	for _, l := range links {
		if l.SType == sType {
			return l.Addr, nil
		}
	}
	return 0, nil
}
