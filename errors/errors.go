package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseMarshal   Phase = "marshal"   // Go to native
	PhaseUnmarshal Phase = "unmarshal" // native to Go
	PhaseNative    Phase = "native"    // native call
	PhaseOwnership Phase = "ownership" // handle lifetime
	PhaseEnumerate Phase = "enumerate" // two-call queries
	PhaseLoad      Phase = "load"      // dispatch table resolution
	PhaseMemory    Phase = "memory"    // address space access
)

// Kind categorizes the error
type Kind string

const (
	KindEmbeddedNul    Kind = "embedded_nul"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindAllocation     Kind = "allocation"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindOverflow       Kind = "overflow"
	KindFieldUnknown   Kind = "field_unknown"
	KindTypeMismatch   Kind = "type_mismatch"
	KindInvalidInput   Kind = "invalid_input"
	KindNilPointer     Kind = "nil_pointer"
	KindNative         Kind = "native_failure"
	KindInUse          Kind = "in_use"
	KindUnsupported    Kind = "unsupported"
	KindReleased       Kind = "released"
	KindRetryExhausted Kind = "retry_exhausted"
	KindMissingFunc    Kind = "missing_function"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	NativeType string
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.NativeType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.NativeType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", native type ")
			b.WriteString(e.NativeType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("native type ")
			b.WriteString(e.NativeType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.NativeType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// NativeType sets the native structure or object type name
func (b *Builder) NativeType(t string) *Builder {
	b.err.NativeType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// EmbeddedNul reports text that cannot become a null-terminated native string.
func EmbeddedNul(path []string, s string, index int) *Error {
	preview := s
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindEmbeddedNul,
		Path:   path,
		Detail: fmt.Sprintf("string %q contains NUL at byte %d", preview, index),
		Value:  index,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint64, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds reports an address range outside the address space.
func OutOfBounds(phase Phase, addr, length, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%#x, +%d) exceeds address space of %d bytes", addr, length, limit),
		Value:  addr,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindOverflow,
		Path:       path,
		NativeType: targetType,
		Detail:     fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:      value,
	}
}

// FieldUnknown reports a field name that is not part of a native structure.
func FieldUnknown(phase Phase, nativeType, fieldName string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindFieldUnknown,
		NativeType: nativeType,
		Detail:     fmt.Sprintf("unknown field %q", fieldName),
	}
}

// TypeMismatch reports a field accessed with the wrong width or kind.
func TypeMismatch(phase Phase, nativeType, fieldName, want, got string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindTypeMismatch,
		NativeType: nativeType,
		Path:       []string{fieldName},
		Detail:     fmt.Sprintf("field is %s, accessed as %s", got, want),
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Released reports use of a reference after it was released or destroyed.
func Released(objectType string) *Error {
	return &Error{
		Phase:      PhaseOwnership,
		Kind:       KindReleased,
		NativeType: objectType,
		Detail:     "reference already released",
	}
}

// Native wraps a failed native call.
func Native(function string, cause error) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindNative,
		Detail: function,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// InUseError is returned by an explicit destroy while other references
// to the object are still live. The object is left untouched.
type InUseError struct {
	ObjectType string
	Handle     uint64
	Count      int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("[ownership] in_use: %s %#x still has %d live references", e.ObjectType, e.Handle, e.Count)
}

// Is reports whether target matches this error type
func (e *InUseError) Is(target error) bool {
	switch t := target.(type) {
	case *InUseError:
		return true
	case *Error:
		return t.Phase == PhaseOwnership && t.Kind == KindInUse
	}
	return false
}

// MissingFunctionsError is returned when a dispatch table has unresolved entries
type MissingFunctionsError struct {
	Table     string
	Functions []string
}

// NewMissingFunctionsError creates an error listing the unresolved function names.
func NewMissingFunctionsError(table string, functions []string) *MissingFunctionsError {
	sorted := append([]string(nil), functions...)
	sort.Strings(sorted)
	return &MissingFunctionsError{Table: table, Functions: sorted}
}

func (e *MissingFunctionsError) Error() string {
	if len(e.Functions) == 0 {
		return "[load] missing_function: no functions specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: missing %d function(s):", e.Table, len(e.Functions)))
	for _, fn := range e.Functions {
		b.WriteString("\n  - ")
		b.WriteString(fn)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingFunctionsError) Is(target error) bool {
	_, ok := target.(*MissingFunctionsError)
	return ok
}

// BatchError reports a batched creation where some elements failed.
// Elements listed in Failed have no object; the others were created and
// are returned to the caller alongside this error.
type BatchError struct {
	Cause     error
	Function  string
	Failed    []int
	Requested int
	Status    int32
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("[native] partial_batch: %s created %d of %d objects (failed indices %v, result %d)",
		e.Function, e.Requested-len(e.Failed), e.Requested, e.Failed, e.Status)
	if e.Cause != nil {
		msg += " (caused by: " + e.Cause.Error() + ")"
	}
	return msg
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type
func (e *BatchError) Is(target error) bool {
	switch t := target.(type) {
	case *BatchError:
		return true
	case *Error:
		return t.Phase == PhaseNative && t.Kind == KindNative
	}
	return false
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is errors.As from the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }
