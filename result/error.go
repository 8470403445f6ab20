package result

import "fmt"

// Error is a failed native call.
type Error struct {
	Kind Kind
	Code Code
}

// FromCode wraps any code in an Error, preserving it exactly.
func FromCode(c Code) *Error {
	return &Error{Kind: KindOf(c), Code: c}
}

// FromKind returns the error for a known kind.
func FromKind(k Kind) *Error {
	return &Error{Kind: k, Code: k.Code()}
}

func (e *Error) Error() string {
	if e.Kind == KindUnknown {
		return fmt.Sprintf("native call failed with unrecognized result %d", int32(e.Code))
	}
	return fmt.Sprintf("native call failed: %s (%d)", e.Kind, int32(e.Code))
}

// Is matches another *Error of the same kind. Two KindUnknown errors
// match only if their codes are equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return e.Kind != KindUnknown || e.Code == t.Code
}

var (
	ErrOutOfHostMemory             = FromKind(KindOutOfHostMemory)
	ErrOutOfDeviceMemory           = FromKind(KindOutOfDeviceMemory)
	ErrInitializationFailed        = FromKind(KindInitializationFailed)
	ErrDeviceLost                  = FromKind(KindDeviceLost)
	ErrMemoryMapFailed             = FromKind(KindMemoryMapFailed)
	ErrLayerNotPresent             = FromKind(KindLayerNotPresent)
	ErrExtensionNotPresent         = FromKind(KindExtensionNotPresent)
	ErrFeatureNotPresent           = FromKind(KindFeatureNotPresent)
	ErrIncompatibleDriver          = FromKind(KindIncompatibleDriver)
	ErrTooManyObjects              = FromKind(KindTooManyObjects)
	ErrFormatNotSupported          = FromKind(KindFormatNotSupported)
	ErrFragmentedPool              = FromKind(KindFragmentedPool)
	ErrUnspecified                 = FromKind(KindUnspecified)
	ErrOutOfPoolMemory             = FromKind(KindOutOfPoolMemory)
	ErrInvalidExternalHandle       = FromKind(KindInvalidExternalHandle)
	ErrFragmentation               = FromKind(KindFragmentation)
	ErrInvalidOpaqueCaptureAddress = FromKind(KindInvalidOpaqueCaptureAddress)
	ErrSurfaceLost                 = FromKind(KindSurfaceLost)
	ErrNativeWindowInUse           = FromKind(KindNativeWindowInUse)
	ErrOutOfDate                   = FromKind(KindOutOfDate)
	ErrIncompatibleDisplay         = FromKind(KindIncompatibleDisplay)
	ErrValidationFailed            = FromKind(KindValidationFailed)
	ErrInvalidShader               = FromKind(KindInvalidShader)
	ErrNotPermitted                = FromKind(KindNotPermitted)
	ErrFullScreenExclusiveModeLost = FromKind(KindFullScreenExclusiveModeLost)
	ErrCompressionExhausted        = FromKind(KindCompressionExhausted)
)
