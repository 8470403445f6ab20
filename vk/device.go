package vk

import (
	"slices"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
	"go.uber.org/zap"
)

// PhysicalDeviceFeatures is a set of VkPhysicalDeviceFeatures members,
// named as in the native structure, e.g. "shaderInt64".
type PhysicalDeviceFeatures struct {
	Enabled []string
}

// Has reports whether the named feature is in the set.
func (f PhysicalDeviceFeatures) Has(name string) bool {
	return slices.Contains(f.Enabled, name)
}

func (f *PhysicalDeviceFeatures) Schema() *layout.Struct { return abi.PhysicalDeviceFeatures }

// Lower sets each named member to VK_TRUE. Unknown names fail conversion.
func (f *PhysicalDeviceFeatures) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	for _, name := range f.Enabled {
		w.Bool32(name, true)
	}
	return nil
}

func decodeFeatures(r *marshal.Reader) (PhysicalDeviceFeatures, error) {
	var f PhysicalDeviceFeatures
	for _, name := range abi.FeatureNames {
		if r.Bool32(name) {
			f.Enabled = append(f.Enabled, name)
		}
	}
	return f, r.Err()
}

// PhysicalDeviceFeatures2 carries the core features in the pNext chain
// instead of pEnabledFeatures.
type PhysicalDeviceFeatures2 struct {
	Features PhysicalDeviceFeatures
}

func (f *PhysicalDeviceFeatures2) Schema() *layout.Struct { return abi.PhysicalDeviceFeatures2 }

func (f *PhysicalDeviceFeatures2) StructureType() uint32 {
	return uint32(abi.StructureTypePhysicalDeviceFeatures2)
}

func (f *PhysicalDeviceFeatures2) Lower(s *marshal.Scope, w *marshal.Writer) error {
	return marshal.LowerInto(s, w.Inline("features"), &f.Features)
}

type PhysicalDeviceTimelineSemaphoreFeatures struct {
	TimelineSemaphore bool
}

func (f *PhysicalDeviceTimelineSemaphoreFeatures) Schema() *layout.Struct {
	return abi.PhysicalDeviceTimelineSemaphoreFeatures
}

func (f *PhysicalDeviceTimelineSemaphoreFeatures) StructureType() uint32 {
	return uint32(abi.StructureTypePhysicalDeviceTimelineSemaphoreFeatures)
}

func (f *PhysicalDeviceTimelineSemaphoreFeatures) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	w.Bool32("timelineSemaphore", f.TimelineSemaphore)
	return nil
}

type PhysicalDeviceBufferDeviceAddressFeatures struct {
	BufferDeviceAddress              bool
	BufferDeviceAddressCaptureReplay bool
	BufferDeviceAddressMultiDevice   bool
}

func (f *PhysicalDeviceBufferDeviceAddressFeatures) Schema() *layout.Struct {
	return abi.PhysicalDeviceBufferDeviceAddressFeatures
}

func (f *PhysicalDeviceBufferDeviceAddressFeatures) StructureType() uint32 {
	return uint32(abi.StructureTypePhysicalDeviceBufferDeviceAddressFeatures)
}

func (f *PhysicalDeviceBufferDeviceAddressFeatures) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	w.Bool32("bufferDeviceAddress", f.BufferDeviceAddress)
	w.Bool32("bufferDeviceAddressCaptureReplay", f.BufferDeviceAddressCaptureReplay)
	w.Bool32("bufferDeviceAddressMultiDevice", f.BufferDeviceAddressMultiDevice)
	return nil
}

type DeviceQueueCreateInfo struct {
	Flags            uint32
	QueueFamilyIndex uint32
	// QueuePriorities holds one priority per requested queue.
	QueuePriorities []float32
}

func (q *DeviceQueueCreateInfo) Schema() *layout.Struct { return abi.DeviceQueueCreateInfo }

func (q *DeviceQueueCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	prios, err := s.F32s(q.QueuePriorities)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeDeviceQueueCreateInfo))
	w.U32("flags", q.Flags)
	w.U32("queueFamilyIndex", q.QueueFamilyIndex)
	w.Count("queueCount", len(q.QueuePriorities))
	w.Ptr("pQueuePriorities", prios)
	return nil
}

type DeviceCreateInfo struct {
	QueueCreateInfos      []DeviceQueueCreateInfo
	EnabledExtensionNames []string
	EnabledFeatures       *PhysicalDeviceFeatures
	// Next is linked into pNext in order, e.g. *PhysicalDeviceFeatures2.
	Next []marshal.Extension
}

func (c *DeviceCreateInfo) Schema() *layout.Struct { return abi.DeviceCreateInfo }

func (c *DeviceCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	next, err := s.Chain(c.Next, 0)
	if err != nil {
		return err
	}
	queues, nq, err := marshal.ConvertSlice(s, c.QueueCreateInfos)
	if err != nil {
		return err
	}
	exts, err := s.CStrings([]string{"ppEnabledExtensionNames"}, c.EnabledExtensionNames)
	if err != nil {
		return err
	}
	features, err := marshal.ConvertOptional(s, c.EnabledFeatures)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeDeviceCreateInfo))
	w.Ptr("pNext", next)
	w.U32("queueCreateInfoCount", nq)
	w.Ptr("pQueueCreateInfos", queues.Addr())
	w.Count("enabledExtensionCount", len(c.EnabledExtensionNames))
	w.Ptr("ppEnabledExtensionNames", exts)
	w.Ptr("pEnabledFeatures", features.Addr())
	return nil
}

// Device is a logical device. It holds a reference on its instance.
type Device struct {
	object
	env      *env
	instance *Instance
	table    *dispatch.DeviceTable
}

// CreateDevice creates a logical device on p.
func (p *PhysicalDevice) CreateDevice(info *DeviceCreateInfo) (*Device, error) {
	pd, err := p.raw()
	if err != nil {
		return nil, err
	}
	e := p.instance.env

	s := e.scope()
	defer s.Close()
	pInfo, err := marshal.Convert(s, info)
	if err != nil {
		return nil, err
	}
	pAllocator, err := e.allocator(s)
	if err != nil {
		return nil, err
	}
	out, err := s.Out(abi.DispatchableHandle)
	if err != nil {
		return nil, err
	}
	if _, err := native("vkCreateDevice", p.instance.table.CreateDevice(pd, pInfo.Addr(), pAllocator, out)); err != nil {
		return nil, err
	}
	h, err := marshal.ReadPtr(e.space, e.space.PointerSize(), out)
	if err != nil {
		return nil, err
	}

	table, err := e.loader.Device(p.instance.table, h)
	if err != nil {
		// The native device leaks: destroying it needs this table.
		e.log.Error("device created but its functions could not be resolved",
			zap.Stringer("handle", handle.Handle(h)), zap.Error(err))
		return nil, err
	}
	parent, err := p.instance.Clone()
	if err != nil {
		e.destroyCall(func(pAllocator uint64) { table.DestroyDevice(h, pAllocator) })
		return nil, err
	}

	dev := &Device{env: e, instance: parent, table: table}
	dev.ref = e.wrap(h, handle.Options{
		ObjectType: "VkDevice",
		Parent:     parent.ref,
		Destroy: func(h handle.Handle) error {
			return e.destroyCall(func(pAllocator uint64) {
				table.DestroyDevice(uint64(h), pAllocator)
			})
		},
	})
	return dev, nil
}

func (d *Device) Clone() (*Device, error) {
	ref, err := d.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *d
	c.ref = ref
	return &c, nil
}

// WaitIdle blocks until the device has no work in flight.
func (d *Device) WaitIdle() error {
	h, err := d.raw()
	if err != nil {
		return err
	}
	_, err = native("vkDeviceWaitIdle", d.table.DeviceWaitIdle(h))
	return err
}

// destroyer returns the destroy func of a child. d must be the child's
// private reference, which stays live until the child is destroyed.
func (d *Device) destroyer(destroy func(device, h, pAllocator uint64)) handle.DestroyFunc {
	return func(h handle.Handle) error {
		dev := uint64(d.ref.Handle())
		return d.env.destroyCall(func(pAllocator uint64) {
			destroy(dev, uint64(h), pAllocator)
		})
	}
}

// createChild performs a single-object creation on d and wraps the
// result. The returned Device is the child's own reference on d.
func createChild[T any, P marshal.Lowerable[T]](
	d *Device, function, objectType string, info *T,
	create func(device, pInfo, pAllocator, pOut uint64) result.Code,
	destroy func(device, h, pAllocator uint64),
) (*handle.Ref, *Device, error) {
	dev, err := d.raw()
	if err != nil {
		return nil, nil, err
	}
	s := d.env.scope()
	defer s.Close()

	pInfo, err := marshal.Convert[T, P](s, info)
	if err != nil {
		return nil, nil, err
	}
	pAllocator, err := d.env.allocator(s)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.Out(abi.NonDispatchableHandle)
	if err != nil {
		return nil, nil, err
	}
	if _, err := native(function, create(dev, pInfo.Addr(), pAllocator, out)); err != nil {
		return nil, nil, err
	}
	h, err := d.env.space.ReadU64(out)
	if err != nil {
		return nil, nil, err
	}

	parent, err := d.Clone()
	if err != nil {
		destroy(dev, h, pAllocator)
		return nil, nil, err
	}
	ref := d.env.wrap(h, handle.Options{
		ObjectType: objectType,
		Parent:     parent.ref,
		Destroy:    parent.destroyer(destroy),
	})
	return ref, parent, nil
}

// Queue is a device queue. Queues are owned by their device and can
// never be destroyed on their own.
type Queue struct {
	object
	device *Device
}

// Queue returns queue index of family, which must have been requested
// when the device was created.
func (d *Device) Queue(family, index uint32) (*Queue, error) {
	dev, err := d.raw()
	if err != nil {
		return nil, err
	}
	s := d.env.scope()
	defer s.Close()
	out, err := s.Out(abi.DispatchableHandle)
	if err != nil {
		return nil, err
	}
	d.table.GetDeviceQueue(dev, family, index, out)
	h, err := marshal.ReadPtr(d.env.space, d.env.space.PointerSize(), out)
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, errors.New(errors.PhaseNative, errors.KindInvalidInput).
			NativeType("VkQueue").
			Detail("vkGetDeviceQueue returned no queue for family %d index %d", family, index).
			Build()
	}

	parent, err := d.Clone()
	if err != nil {
		return nil, err
	}
	ref := d.env.wrap(h, handle.Options{
		ObjectType:     "VkQueue",
		Parent:         parent.ref,
		Borrowed:       true,
		NotDestroyable: true,
	})
	return &Queue{object: object{ref: ref}, device: parent}, nil
}

func (q *Queue) Clone() (*Queue, error) {
	ref, err := q.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *q
	c.ref = ref
	return &c, nil
}

// WaitIdle blocks until the queue has no work in flight.
func (q *Queue) WaitIdle() error {
	h, err := q.raw()
	if err != nil {
		return err
	}
	_, err = native("vkQueueWaitIdle", q.device.table.QueueWaitIdle(h))
	return err
}
