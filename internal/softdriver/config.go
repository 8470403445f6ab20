package softdriver

import "github.com/wippyai/gpubind/abi"

// Config describes what the driver reports.
type Config struct {
	APIVersion         abi.Version
	Layers             []Layer
	InstanceExtensions []Extension
	PhysicalDevices    []PhysicalDevice
}

type Layer struct {
	Name                  string
	Description           string
	SpecVersion           uint32
	ImplementationVersion uint32
	Extensions            []Extension
}

type Extension struct {
	Name        string
	SpecVersion uint32
}

type PhysicalDevice struct {
	Name          string
	Type          uint32
	VendorID      uint32
	DeviceID      uint32
	APIVersion    abi.Version
	DriverVersion uint32
	QueueFamilies []QueueFamily
	Extensions    []Extension
	// Features lists the supported VkPhysicalDeviceFeatures members by name.
	Features []string
}

type QueueFamily struct {
	Flags              uint32
	Count              uint32
	TimestampValidBits uint32
}

// DefaultConfig is a single compute-capable device with one validation layer.
func DefaultConfig() Config {
	return Config{
		APIVersion: abi.MakeVersion(0, 1, 3, 275),
		Layers: []Layer{{
			Name:                  "VK_LAYER_KHRONOS_validation",
			Description:           "Khronos validation layer",
			SpecVersion:           uint32(abi.MakeVersion(0, 1, 3, 275)),
			ImplementationVersion: 1,
			Extensions: []Extension{
				{Name: "VK_EXT_validation_features", SpecVersion: 6},
			},
		}},
		InstanceExtensions: []Extension{
			{Name: "VK_KHR_get_physical_device_properties2", SpecVersion: 2},
			{Name: "VK_EXT_debug_utils", SpecVersion: 2},
		},
		PhysicalDevices: []PhysicalDevice{{
			Name:          "Soft Compute Device",
			Type:          abi.DeviceTypeCPU,
			VendorID:      0x10005,
			DeviceID:      0x1,
			APIVersion:    abi.MakeVersion(0, 1, 3, 275),
			DriverVersion: 1,
			QueueFamilies: []QueueFamily{
				{Flags: abi.QueueCompute | abi.QueueTransfer, Count: 2, TimestampValidBits: 64},
				{Flags: abi.QueueTransfer, Count: 1},
			},
			Extensions: []Extension{
				{Name: "VK_KHR_timeline_semaphore", SpecVersion: 2},
				{Name: "VK_KHR_buffer_device_address", SpecVersion: 1},
			},
			Features: []string{"robustBufferAccess", "shaderInt64", "shaderFloat64"},
		}},
	}
}

func (c Config) clone() Config {
	out := c
	out.Layers = append([]Layer(nil), c.Layers...)
	out.InstanceExtensions = append([]Extension(nil), c.InstanceExtensions...)
	out.PhysicalDevices = make([]PhysicalDevice, len(c.PhysicalDevices))
	for i, pd := range c.PhysicalDevices {
		out.PhysicalDevices[i] = pd.clone()
	}
	return out
}

func (p PhysicalDevice) clone() PhysicalDevice {
	out := p
	out.QueueFamilies = append([]QueueFamily(nil), p.QueueFamilies...)
	out.Extensions = append([]Extension(nil), p.Extensions...)
	out.Features = append([]string(nil), p.Features...)
	return out
}

func hasExtension(exts []Extension, name string) bool {
	for _, e := range exts {
		if e.Name == name {
			return true
		}
	}
	return false
}
