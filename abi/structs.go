package abi

import "github.com/wippyai/gpubind/layout"

// Dispatchable handles are pointers; non-dispatchable handles are 64-bit
// integers on every target.
var (
	DispatchableHandle    = layout.Ptr
	NonDispatchableHandle = layout.U64
)

var AllocationCallbacks = layout.NewStruct("VkAllocationCallbacks",
	layout.F("pUserData", layout.Ptr),
	layout.F("pfnAllocation", layout.Ptr),
	layout.F("pfnReallocation", layout.Ptr),
	layout.F("pfnFree", layout.Ptr),
	layout.F("pfnInternalAllocation", layout.Ptr),
	layout.F("pfnInternalFree", layout.Ptr),
)

var ApplicationInfo = layout.NewStruct("VkApplicationInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("pApplicationName", layout.Ptr),
	layout.F("applicationVersion", layout.U32),
	layout.F("pEngineName", layout.Ptr),
	layout.F("engineVersion", layout.U32),
	layout.F("apiVersion", layout.U32),
)

var InstanceCreateInfo = layout.NewStruct("VkInstanceCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("pApplicationInfo", layout.Ptr),
	layout.F("enabledLayerCount", layout.U32),
	layout.F("ppEnabledLayerNames", layout.Ptr),
	layout.F("enabledExtensionCount", layout.U32),
	layout.F("ppEnabledExtensionNames", layout.Ptr),
)

var ValidationFeatures = layout.NewStruct("VkValidationFeaturesEXT",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("enabledValidationFeatureCount", layout.U32),
	layout.F("pEnabledValidationFeatures", layout.Ptr),
	layout.F("disabledValidationFeatureCount", layout.U32),
	layout.F("pDisabledValidationFeatures", layout.Ptr),
)

var LayerProperties = layout.NewStruct("VkLayerProperties",
	layout.F("layerName", layout.Array(layout.U8, MaxExtensionNameSize)),
	layout.F("specVersion", layout.U32),
	layout.F("implementationVersion", layout.U32),
	layout.F("description", layout.Array(layout.U8, MaxDescriptionSize)),
)

var ExtensionProperties = layout.NewStruct("VkExtensionProperties",
	layout.F("extensionName", layout.Array(layout.U8, MaxExtensionNameSize)),
	layout.F("specVersion", layout.U32),
)

var Extent3D = layout.NewStruct("VkExtent3D",
	layout.F("width", layout.U32),
	layout.F("height", layout.U32),
	layout.F("depth", layout.U32),
)

var QueueFamilyProperties = layout.NewStruct("VkQueueFamilyProperties",
	layout.F("queueFlags", layout.U32),
	layout.F("queueCount", layout.U32),
	layout.F("timestampValidBits", layout.U32),
	layout.F("minImageTransferGranularity", layout.Inline(Extent3D)),
)

var PhysicalDeviceSparseProperties = layout.NewStruct("VkPhysicalDeviceSparseProperties",
	layout.F("residencyStandard2DBlockShape", layout.U32),
	layout.F("residencyStandard2DMultisampleBlockShape", layout.U32),
	layout.F("residencyStandard3DBlockShape", layout.U32),
	layout.F("residencyAlignedMipSize", layout.U32),
	layout.F("residencyNonResidentStrict", layout.U32),
)

// PhysicalDeviceProperties keeps VkPhysicalDeviceLimits as an opaque,
// 8-byte aligned 504-byte block; the binding does not decode limits.
var PhysicalDeviceProperties = layout.NewStruct("VkPhysicalDeviceProperties",
	layout.F("apiVersion", layout.U32),
	layout.F("driverVersion", layout.U32),
	layout.F("vendorID", layout.U32),
	layout.F("deviceID", layout.U32),
	layout.F("deviceType", layout.U32),
	layout.F("deviceName", layout.Array(layout.U8, MaxPhysicalDeviceName)),
	layout.F("pipelineCacheUUID", layout.Array(layout.U8, UUIDSize)),
	layout.F("limits", layout.Array(layout.U64, 63)),
	layout.F("sparseProperties", layout.Inline(PhysicalDeviceSparseProperties)),
)

var PhysicalDeviceFeatures = layout.NewStruct("VkPhysicalDeviceFeatures", featureFields()...)

var PhysicalDeviceFeatures2 = layout.NewStruct("VkPhysicalDeviceFeatures2",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("features", layout.Inline(PhysicalDeviceFeatures)),
)

var PhysicalDeviceTimelineSemaphoreFeatures = layout.NewStruct("VkPhysicalDeviceTimelineSemaphoreFeatures",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("timelineSemaphore", layout.U32),
)

var PhysicalDeviceBufferDeviceAddressFeatures = layout.NewStruct("VkPhysicalDeviceBufferDeviceAddressFeatures",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("bufferDeviceAddress", layout.U32),
	layout.F("bufferDeviceAddressCaptureReplay", layout.U32),
	layout.F("bufferDeviceAddressMultiDevice", layout.U32),
)

var DeviceQueueCreateInfo = layout.NewStruct("VkDeviceQueueCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("queueFamilyIndex", layout.U32),
	layout.F("queueCount", layout.U32),
	layout.F("pQueuePriorities", layout.Ptr),
)

var DeviceCreateInfo = layout.NewStruct("VkDeviceCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("queueCreateInfoCount", layout.U32),
	layout.F("pQueueCreateInfos", layout.Ptr),
	layout.F("enabledLayerCount", layout.U32),
	layout.F("ppEnabledLayerNames", layout.Ptr),
	layout.F("enabledExtensionCount", layout.U32),
	layout.F("ppEnabledExtensionNames", layout.Ptr),
	layout.F("pEnabledFeatures", layout.Ptr),
)

var FenceCreateInfo = layout.NewStruct("VkFenceCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
)

var ShaderModuleCreateInfo = layout.NewStruct("VkShaderModuleCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("codeSize", layout.Size),
	layout.F("pCode", layout.Ptr),
)

var DescriptorSetLayoutBinding = layout.NewStruct("VkDescriptorSetLayoutBinding",
	layout.F("binding", layout.U32),
	layout.F("descriptorType", layout.U32),
	layout.F("descriptorCount", layout.U32),
	layout.F("stageFlags", layout.U32),
	layout.F("pImmutableSamplers", layout.Ptr),
)

var DescriptorSetLayoutCreateInfo = layout.NewStruct("VkDescriptorSetLayoutCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("bindingCount", layout.U32),
	layout.F("pBindings", layout.Ptr),
)

var PushConstantRange = layout.NewStruct("VkPushConstantRange",
	layout.F("stageFlags", layout.U32),
	layout.F("offset", layout.U32),
	layout.F("size", layout.U32),
)

var PipelineLayoutCreateInfo = layout.NewStruct("VkPipelineLayoutCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("setLayoutCount", layout.U32),
	layout.F("pSetLayouts", layout.Ptr),
	layout.F("pushConstantRangeCount", layout.U32),
	layout.F("pPushConstantRanges", layout.Ptr),
)

var DescriptorPoolSize = layout.NewStruct("VkDescriptorPoolSize",
	layout.F("type", layout.U32),
	layout.F("descriptorCount", layout.U32),
)

var DescriptorPoolCreateInfo = layout.NewStruct("VkDescriptorPoolCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("maxSets", layout.U32),
	layout.F("poolSizeCount", layout.U32),
	layout.F("pPoolSizes", layout.Ptr),
)

var DescriptorSetAllocateInfo = layout.NewStruct("VkDescriptorSetAllocateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("descriptorPool", NonDispatchableHandle),
	layout.F("descriptorSetCount", layout.U32),
	layout.F("pSetLayouts", layout.Ptr),
)

var SpecializationMapEntry = layout.NewStruct("VkSpecializationMapEntry",
	layout.F("constantID", layout.U32),
	layout.F("offset", layout.U32),
	layout.F("size", layout.Size),
)

var SpecializationInfo = layout.NewStruct("VkSpecializationInfo",
	layout.F("mapEntryCount", layout.U32),
	layout.F("pMapEntries", layout.Ptr),
	layout.F("dataSize", layout.Size),
	layout.F("pData", layout.Ptr),
)

var PipelineShaderStageCreateInfo = layout.NewStruct("VkPipelineShaderStageCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("stage", layout.U32),
	layout.F("module", NonDispatchableHandle),
	layout.F("pName", layout.Ptr),
	layout.F("pSpecializationInfo", layout.Ptr),
)

var ComputePipelineCreateInfo = layout.NewStruct("VkComputePipelineCreateInfo",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
	layout.F("flags", layout.U32),
	layout.F("stage", layout.Inline(PipelineShaderStageCreateInfo)),
	layout.F("layout", NonDispatchableHandle),
	layout.F("basePipelineHandle", NonDispatchableHandle),
	layout.F("basePipelineIndex", layout.I32),
)

// BaseStructure is the common sType/pNext header used to walk extension chains.
var BaseStructure = layout.NewStruct("VkBaseInStructure",
	layout.F("sType", layout.U32),
	layout.F("pNext", layout.Ptr),
)
