// Package enumerate implements the two-call protocol native APIs use to
// return variable-length arrays: ask for the count with a null buffer,
// allocate, then ask again to fill the buffer.
//
// If the fill call reports Incomplete, the collection grew between the
// two calls and the whole sequence restarts. Results are never silently
// truncated; after MaxAttempts restarts the query fails with
// KindRetryExhausted. Results are fully materialized slices.
package enumerate

import (
	"fmt"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds count/fill restarts.
const DefaultMaxAttempts = 16

// Func performs one native enumeration call. pData is 0 for the count call.
type Func func(pCount, pData uint64) result.Code

// Query describes one enumeration.
type Query struct {
	Space       gpubind.Space
	Call        Func
	Logger      *zap.Logger
	Name        string
	MaxAttempts int
}

func (q Query) logger() *zap.Logger {
	if q.Logger == nil {
		return zap.NewNop()
	}
	return q.Logger
}

func (q Query) maxAttempts() int {
	if q.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return q.MaxAttempts
}

func (q Query) validate() error {
	if q.Space == nil || q.Call == nil {
		return errors.InvalidInput(errors.PhaseEnumerate, fmt.Sprintf("%s: incomplete query", q.Name))
	}
	return nil
}

// Structs enumerates an array of native structures and decodes each one.
func Structs[T any](q Query, schema *layout.Struct, decode func(*marshal.Reader) (T, error)) ([]T, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	calc := marshal.Layouts(q.Space.PointerSize())
	info := calc.Struct(schema)
	return run(q, layout.AlignTo(info.Size, info.Align), info.Align, func(base uint64, i int) (T, error) {
		r := marshal.Element(q.Space, calc, schema, base, i)
		v, err := decode(r)
		if err == nil {
			err = r.Err()
		}
		return v, err
	})
}

// Handles enumerates an array of handles. elem is layout.Ptr for
// dispatchable handles and layout.U64 otherwise.
func Handles(q Query, elem layout.Type) ([]uint64, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	calc := marshal.Layouts(q.Space.PointerSize())
	info := calc.Calculate(elem)
	return run(q, info.Size, info.Align, func(base uint64, i int) (uint64, error) {
		if info.Size == 4 {
			v, err := q.Space.ReadU32(base + 4*uint64(i))
			return uint64(v), err
		}
		return q.Space.ReadU64(base + 8*uint64(i))
	})
}

func run[T any](q Query, stride, align uint64, decode func(base uint64, i int) (T, error)) ([]T, error) {
	limit := q.maxAttempts()
	for attempt := 1; attempt <= limit; attempt++ {
		out, retry, err := once(q, stride, align, decode)
		if err != nil || !retry {
			return out, err
		}
		q.logger().Debug("enumeration changed size between calls; retrying",
			zap.String("function", q.Name),
			zap.Int("attempt", attempt))
	}

	return nil, errors.New(errors.PhaseEnumerate, errors.KindRetryExhausted).
		Detail("%s: result kept changing size after %d attempts", q.Name, limit).
		Build()
}

func once[T any](q Query, stride, align uint64, decode func(base uint64, i int) (T, error)) ([]T, bool, error) {
	scope := marshal.NewScope(q.Space)
	defer scope.Close()

	pCount, err := scope.Out(layout.U32)
	if err != nil {
		return nil, false, err
	}
	if _, err := result.Check(q.Call(pCount, 0)); err != nil {
		return nil, false, errors.Native(q.Name, err)
	}
	count, err := q.Space.ReadU32(pCount)
	if err != nil {
		return nil, false, err
	}
	if count == 0 {
		return []T{}, false, nil
	}
	if count > layout.MaxArrayLen {
		return nil, false, errors.Overflow(errors.PhaseEnumerate, []string{q.Name}, count, "element count")
	}

	pData, err := scope.Alloc(stride*uint64(count), align)
	if err != nil {
		return nil, false, err
	}
	status, err := result.Check(q.Call(pCount, pData))
	if err != nil {
		return nil, false, errors.Native(q.Name, err)
	}
	if status == result.Incomplete {
		return nil, true, nil
	}

	filled, err := q.Space.ReadU32(pCount)
	if err != nil {
		return nil, false, err
	}
	filled = min(filled, count)

	out := make([]T, filled)
	for i := range out {
		if out[i], err = decode(pData, i); err != nil {
			return nil, false, errors.New(errors.PhaseEnumerate, errors.KindInvalidInput).
				Path(q.Name, fmt.Sprintf("[%d]", i)).
				Cause(err).
				Detail("decode element").
				Build()
		}
	}
	return out, false, nil
}
