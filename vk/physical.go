package vk

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/enumerate"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

// PhysicalDevice is a device reported by an instance. It is borrowed:
// releasing it never destroys anything native.
type PhysicalDevice struct {
	object
	instance *Instance
}

func (p *PhysicalDevice) Clone() (*PhysicalDevice, error) {
	ref, err := p.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *p
	c.ref = ref
	return &c, nil
}

type PhysicalDeviceProperties struct {
	APIVersion        abi.Version
	DriverVersion     uint32
	VendorID          uint32
	DeviceID          uint32
	DeviceType        uint32
	DeviceName        string
	PipelineCacheUUID [abi.UUIDSize]byte
}

func (p *PhysicalDevice) Properties() (PhysicalDeviceProperties, error) {
	h, err := p.raw()
	if err != nil {
		return PhysicalDeviceProperties{}, err
	}
	e := p.instance.env
	s := e.scope()
	defer s.Close()
	out, err := s.Out(layout.Inline(abi.PhysicalDeviceProperties))
	if err != nil {
		return PhysicalDeviceProperties{}, err
	}
	p.instance.table.GetPhysicalDeviceProperties(h, out)

	r := marshal.NewReader(e.space, s.Layout(), abi.PhysicalDeviceProperties, out)
	props := PhysicalDeviceProperties{
		APIVersion:    abi.Version(r.U32("apiVersion")),
		DriverVersion: r.U32("driverVersion"),
		VendorID:      r.U32("vendorID"),
		DeviceID:      r.U32("deviceID"),
		DeviceType:    r.U32("deviceType"),
		DeviceName:    r.Text("deviceName"),
	}
	copy(props.PipelineCacheUUID[:], r.Bytes("pipelineCacheUUID"))
	return props, r.Err()
}

// Features returns the supported VkPhysicalDeviceFeatures.
func (p *PhysicalDevice) Features() (PhysicalDeviceFeatures, error) {
	h, err := p.raw()
	if err != nil {
		return PhysicalDeviceFeatures{}, err
	}
	e := p.instance.env
	s := e.scope()
	defer s.Close()
	out, err := s.Out(layout.Inline(abi.PhysicalDeviceFeatures))
	if err != nil {
		return PhysicalDeviceFeatures{}, err
	}
	p.instance.table.GetPhysicalDeviceFeatures(h, out)
	return decodeFeatures(marshal.NewReader(e.space, s.Layout(), abi.PhysicalDeviceFeatures, out))
}

type Extent3D struct {
	Width, Height, Depth uint32
}

type QueueFamilyProperties struct {
	QueueFlags                  uint32
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity Extent3D
}

func decodeQueueFamily(r *marshal.Reader) (QueueFamilyProperties, error) {
	g := r.Inline("minImageTransferGranularity")
	return QueueFamilyProperties{
		QueueFlags:         r.U32("queueFlags"),
		QueueCount:         r.U32("queueCount"),
		TimestampValidBits: r.U32("timestampValidBits"),
		MinImageTransferGranularity: Extent3D{
			Width:  g.U32("width"),
			Height: g.U32("height"),
			Depth:  g.U32("depth"),
		},
	}, nil
}

func (p *PhysicalDevice) QueueFamilyProperties() ([]QueueFamilyProperties, error) {
	h, err := p.raw()
	if err != nil {
		return nil, err
	}
	table := p.instance.table
	return enumerate.Structs(p.instance.env.query("vkGetPhysicalDeviceQueueFamilyProperties", func(pCount, pData uint64) result.Code {
		table.GetPhysicalDeviceQueueFamilyProperties(h, pCount, pData)
		return result.Success
	}), abi.QueueFamilyProperties, decodeQueueFamily)
}

// EnumerateDeviceExtensionProperties lists device extensions, either the
// implementation's own (layer == "") or those of one layer.
func (p *PhysicalDevice) EnumerateDeviceExtensionProperties(layer string) ([]ExtensionProperties, error) {
	h, err := p.raw()
	if err != nil {
		return nil, err
	}
	e := p.instance.env
	s := e.scope()
	defer s.Close()
	pLayer, err := s.OptionalCString([]string{"pLayerName"}, layer)
	if err != nil {
		return nil, err
	}
	table := p.instance.table
	return enumerate.Structs(e.query("vkEnumerateDeviceExtensionProperties", func(pCount, pData uint64) result.Code {
		return table.EnumerateDeviceExtensionProperties(h, pLayer, pCount, pData)
	}), abi.ExtensionProperties, decodeExtension)
}
