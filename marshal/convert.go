package marshal

import (
	"fmt"

	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
)

// Lowerer is implemented by parameter types that have a native form.
// Lower must not modify the receiver.
type Lowerer interface {
	Schema() *layout.Struct
	Lower(s *Scope, w *Writer) error
}

// Lowerable constrains Convert's type parameter to pointer receivers.
type Lowerable[T any] interface {
	*T
	Lowerer
}

// Pointer is the native address of a converted T, valid until its scope closes.
type Pointer[T any] struct {
	addr uint64
}

func (p Pointer[T]) Addr() uint64 { return p.addr }
func (p Pointer[T]) IsNull() bool { return p.addr == 0 }

// Convert lowers v into a newly allocated structure owned by s.
func Convert[T any, P Lowerable[T]](s *Scope, v *T) (Pointer[T], error) {
	if v == nil {
		var zero T
		return Pointer[T]{}, errors.NilPointer(errors.PhaseMarshal, nil, typeName(zero))
	}
	w, err := s.Struct(P(v).Schema())
	if err != nil {
		return Pointer[T]{}, err
	}
	if err := lower(s, w, P(v)); err != nil {
		return Pointer[T]{}, err
	}
	return Pointer[T]{addr: w.Addr()}, nil
}

// ConvertOptional is Convert with nil mapped to a null pointer.
func ConvertOptional[T any, P Lowerable[T]](s *Scope, v *T) (Pointer[T], error) {
	if v == nil {
		return Pointer[T]{}, nil
	}
	return Convert[T, P](s, v)
}

// ConvertSlice lowers vs into a contiguous native array. An empty slice
// yields a null pointer and a zero count.
func ConvertSlice[T any, P Lowerable[T]](s *Scope, vs []T) (Pointer[T], uint32, error) {
	if len(vs) == 0 {
		return Pointer[T]{}, 0, nil
	}
	n, err := Count(nil, len(vs))
	if err != nil {
		return Pointer[T]{}, 0, err
	}
	schema := P(&vs[0]).Schema()
	base, err := s.Array(schema, len(vs))
	if err != nil {
		return Pointer[T]{}, 0, err
	}
	for i := range vs {
		if err := lower(s, s.Element(schema, base, i), P(&vs[i])); err != nil {
			return Pointer[T]{}, 0, err
		}
	}
	return Pointer[T]{addr: base}, n, nil
}

// LowerInto lowers v into an embedded structure, typically w.Inline(field).
func LowerInto[T any, P Lowerable[T]](s *Scope, w *Writer, v *T) error {
	if err := w.Err(); err != nil {
		return err
	}
	if v == nil {
		return errors.NilPointer(errors.PhaseMarshal, []string{w.Schema().Name}, w.Schema().Name)
	}
	if got := P(v).Schema(); got != w.Schema() {
		return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			NativeType(w.Schema().Name).
			Detail("cannot lower %s in place of %s", got.Name, w.Schema().Name).
			Build()
	}
	return lower(s, w, P(v))
}

func lower(s *Scope, w *Writer, v Lowerer) error {
	if err := v.Lower(s, w); err != nil {
		return err
	}
	return w.Err()
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
