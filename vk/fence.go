package vk

import (
	"fmt"
	"time"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

type fenceCreateInfo struct {
	signaled bool
}

func (c *fenceCreateInfo) Schema() *layout.Struct { return abi.FenceCreateInfo }

func (c *fenceCreateInfo) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	var flags uint32
	if c.signaled {
		flags = abi.FenceCreateSignaled
	}
	w.U32("sType", uint32(abi.StructureTypeFenceCreateInfo))
	w.U32("flags", flags)
	return nil
}

// Fence is a host-visible completion signal.
type Fence struct {
	object
	device *Device
}

// CreateFence creates a fence, optionally already signaled.
func (d *Device) CreateFence(signaled bool) (*Fence, error) {
	ref, parent, err := createChild(d, "vkCreateFence", "VkFence", &fenceCreateInfo{signaled: signaled},
		d.table.CreateFence, d.table.DestroyFence)
	if err != nil {
		return nil, err
	}
	return &Fence{object: object{ref: ref}, device: parent}, nil
}

func (f *Fence) Clone() (*Fence, error) {
	ref, err := f.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *f
	c.ref = ref
	return &c, nil
}

// Status reports whether the fence is signaled.
func (f *Fence) Status() (bool, error) {
	h, err := f.raw()
	if err != nil {
		return false, err
	}
	dev, err := f.device.raw()
	if err != nil {
		return false, err
	}
	status, err := native("vkGetFenceStatus", f.device.table.GetFenceStatus(dev, h))
	if err != nil {
		return false, err
	}
	return status == result.Success, nil
}

// Wait waits up to timeout for the fence. It returns false on timeout.
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	return WaitForFences([]*Fence{f}, true, timeout)
}

// Reset returns the fence to the unsignaled state.
func (f *Fence) Reset() error {
	return ResetFences([]*Fence{f})
}

// fenceHandles returns the device and fence handles of a non-empty set of
// fences sharing one device.
func fenceHandles(fences []*Fence) (*Device, []uint64, error) {
	if len(fences) == 0 {
		return nil, nil, errors.InvalidInput(errors.PhaseMarshal, "no fences")
	}
	var dev *Device
	handles := make([]uint64, len(fences))
	for i, f := range fences {
		if f == nil {
			return nil, nil, errors.NilPointer(errors.PhaseMarshal, []string{fmt.Sprintf("pFences[%d]", i)}, "*vk.Fence")
		}
		if dev == nil {
			dev = f.device
		}
		if f.device.Handle() != dev.Handle() {
			return nil, nil, errors.InvalidInput(errors.PhaseMarshal, "fences belong to different devices")
		}
		h, err := f.raw()
		if err != nil {
			return nil, nil, err
		}
		handles[i] = h
	}
	return dev, handles, nil
}

// WaitForFences waits until all (or any) of fences are signaled, or the
// timeout expires. It returns false on timeout. Negative timeouts poll.
func WaitForFences(fences []*Fence, waitAll bool, timeout time.Duration) (bool, error) {
	device, handles, err := fenceHandles(fences)
	if err != nil {
		return false, err
	}
	dev, err := device.raw()
	if err != nil {
		return false, err
	}
	s := device.env.scope()
	defer s.Close()
	n, err := marshal.Count([]string{"pFences"}, len(handles))
	if err != nil {
		return false, err
	}
	pFences, err := s.U64s(handles)
	if err != nil {
		return false, err
	}
	status, err := native("vkWaitForFences",
		device.table.WaitForFences(dev, n, pFences, bool32(waitAll), timeoutNanos(timeout)))
	if err != nil {
		return false, err
	}
	return status != result.Timeout, nil
}

// ResetFences returns every fence to the unsignaled state.
func ResetFences(fences []*Fence) error {
	device, handles, err := fenceHandles(fences)
	if err != nil {
		return err
	}
	dev, err := device.raw()
	if err != nil {
		return err
	}
	s := device.env.scope()
	defer s.Close()
	n, err := marshal.Count([]string{"pFences"}, len(handles))
	if err != nil {
		return err
	}
	pFences, err := s.U64s(handles)
	if err != nil {
		return err
	}
	_, err = native("vkResetFences", device.table.ResetFences(dev, n, pFences))
	return err
}
