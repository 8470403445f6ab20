package layout

import (
	"math"
	"unsafe"
)

// AlignTo rounds offset up to the next multiple of align (a power of two).
func AlignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func SafeMul(a, b uint64) (uint64, bool) {
	if b != 0 && a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

const (
	MaxStringSize = 1 << 30 // 1 GB max string size
	MaxArrayLen   = 1 << 27 // 128M max elements
	MaxAlloc      = 1 << 30 // 1 GB max single allocation
)

// Target describes the native ABI the layout is computed for.
type Target struct {
	PointerSize uint64
}

var (
	Target32 = Target{PointerSize: 4}
	Target64 = Target{PointerSize: 8}
)

// HostTarget returns the target matching the running process.
func HostTarget() Target {
	return Target{PointerSize: uint64(unsafe.Sizeof(uintptr(0)))}
}
