package vk

import (
	"math"
	"time"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/result"
)

// object is the reference every wrapper type embeds.
type object struct {
	ref *handle.Ref
}

// Handle returns the native handle, or handle.Null once released.
func (o *object) Handle() handle.Handle { return o.ref.Handle() }

// RefCount is the number of live references to the native object.
func (o *object) RefCount() int64 { return o.ref.Count() }

// Release drops this reference. The last release destroys the object.
func (o *object) Release() error { return o.ref.Release() }

// Destroy destroys the object if this is its only reference. Otherwise
// it returns *errors.InUseError and the object stays usable.
func (o *object) Destroy() error { return o.ref.Destroy() }

func (o *object) raw() (uint64, error) {
	h, err := o.ref.Get()
	return uint64(h), err
}

func (o *object) cloneRef() (*handle.Ref, error) {
	return o.ref.Clone()
}

// Infinite waits without a timeout.
const Infinite = time.Duration(math.MaxInt64)

// timeoutNanos converts a wait duration to the native nanosecond count.
func timeoutNanos(d time.Duration) uint64 {
	switch {
	case d <= 0:
		return 0
	case d == Infinite:
		return abi.WholeTimeout
	}
	return uint64(d)
}

// native wraps a failed call.
func native(function string, code result.Code) (result.Code, error) {
	status, err := result.Check(code)
	if err != nil {
		return status, errors.Native(function, err)
	}
	return status, nil
}

func bool32(v bool) uint32 {
	if v {
		return abi.True
	}
	return abi.False
}
