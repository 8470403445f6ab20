package abi

// StructureType tags extensible structures (the sType field).
type StructureType uint32

const (
	StructureTypeApplicationInfo                           StructureType = 0
	StructureTypeInstanceCreateInfo                        StructureType = 1
	StructureTypeDeviceQueueCreateInfo                     StructureType = 2
	StructureTypeDeviceCreateInfo                          StructureType = 3
	StructureTypeFenceCreateInfo                           StructureType = 8
	StructureTypeShaderModuleCreateInfo                    StructureType = 16
	StructureTypePipelineShaderStageCreateInfo             StructureType = 18
	StructureTypeComputePipelineCreateInfo                 StructureType = 29
	StructureTypePipelineLayoutCreateInfo                  StructureType = 30
	StructureTypeDescriptorSetLayoutCreateInfo             StructureType = 32
	StructureTypeDescriptorPoolCreateInfo                  StructureType = 33
	StructureTypeDescriptorSetAllocateInfo                 StructureType = 34
	StructureTypePhysicalDeviceFeatures2                   StructureType = 1000059000
	StructureTypePhysicalDeviceTimelineSemaphoreFeatures   StructureType = 1000207000
	StructureTypeValidationFeaturesEXT                     StructureType = 1000247000
	StructureTypePhysicalDeviceBufferDeviceAddressFeatures StructureType = 1000257000
)

const (
	MaxExtensionNameSize  = 256
	MaxDescriptionSize    = 256
	MaxPhysicalDeviceName = 256
	UUIDSize              = 16
)

const (
	FenceCreateSignaled = 0x1

	DescriptorPoolCreateFreeDescriptorSet = 0x1

	True  = 1
	False = 0
)

// WholeTimeout is the "wait forever" timeout value.
const WholeTimeout = ^uint64(0)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

const (
	QueueGraphics      = 0x1
	QueueCompute       = 0x2
	QueueTransfer      = 0x4
	QueueSparseBinding = 0x8
)

const ShaderStageCompute = 0x20

const (
	DescriptorTypeSampler       = 0
	DescriptorTypeUniformBuffer = 6
	DescriptorTypeStorageBuffer = 7
)

// PhysicalDeviceType values.
const (
	DeviceTypeOther         = 0
	DeviceTypeIntegratedGPU = 1
	DeviceTypeDiscreteGPU   = 2
	DeviceTypeVirtualGPU    = 3
	DeviceTypeCPU           = 4
)
