package dispatch

import "github.com/wippyai/gpubind/result"

// EntryTable holds the functions callable before an instance exists.
type EntryTable struct {
	EnumerateInstanceVersion             func(pApiVersion uint64) result.Code
	EnumerateInstanceLayerProperties     func(pPropertyCount, pProperties uint64) result.Code
	EnumerateInstanceExtensionProperties func(pLayerName, pPropertyCount, pProperties uint64) result.Code
	CreateInstance                       func(pCreateInfo, pAllocator, pInstance uint64) result.Code
}

// InstanceTable holds instance-level functions.
type InstanceTable struct {
	DestroyInstance                        func(instance, pAllocator uint64)
	EnumeratePhysicalDevices               func(instance, pPhysicalDeviceCount, pPhysicalDevices uint64) result.Code
	GetPhysicalDeviceProperties            func(physicalDevice, pProperties uint64)
	GetPhysicalDeviceFeatures              func(physicalDevice, pFeatures uint64)
	GetPhysicalDeviceQueueFamilyProperties func(physicalDevice, pQueueFamilyPropertyCount, pQueueFamilyProperties uint64)
	EnumerateDeviceExtensionProperties     func(physicalDevice, pLayerName, pPropertyCount, pProperties uint64) result.Code
	CreateDevice                           func(physicalDevice, pCreateInfo, pAllocator, pDevice uint64) result.Code
}

// DeviceTable holds device-level functions.
type DeviceTable struct {
	DestroyDevice  func(device, pAllocator uint64)
	DeviceWaitIdle func(device uint64) result.Code
	GetDeviceQueue func(device uint64, queueFamilyIndex, queueIndex uint32, pQueue uint64)
	QueueWaitIdle  func(queue uint64) result.Code

	CreateFence    func(device, pCreateInfo, pAllocator, pFence uint64) result.Code
	DestroyFence   func(device, fence, pAllocator uint64)
	GetFenceStatus func(device, fence uint64) result.Code
	WaitForFences  func(device uint64, fenceCount uint32, pFences uint64, waitAll uint32, timeout uint64) result.Code
	ResetFences    func(device uint64, fenceCount uint32, pFences uint64) result.Code

	CreateShaderModule  func(device, pCreateInfo, pAllocator, pShaderModule uint64) result.Code
	DestroyShaderModule func(device, shaderModule, pAllocator uint64)

	CreateDescriptorSetLayout  func(device, pCreateInfo, pAllocator, pSetLayout uint64) result.Code
	DestroyDescriptorSetLayout func(device, descriptorSetLayout, pAllocator uint64)

	CreatePipelineLayout  func(device, pCreateInfo, pAllocator, pPipelineLayout uint64) result.Code
	DestroyPipelineLayout func(device, pipelineLayout, pAllocator uint64)

	CreateDescriptorPool   func(device, pCreateInfo, pAllocator, pDescriptorPool uint64) result.Code
	DestroyDescriptorPool  func(device, descriptorPool, pAllocator uint64)
	ResetDescriptorPool    func(device, descriptorPool uint64, flags uint32) result.Code
	AllocateDescriptorSets func(device, pAllocateInfo, pDescriptorSets uint64) result.Code
	FreeDescriptorSets     func(device, descriptorPool uint64, descriptorSetCount uint32, pDescriptorSets uint64) result.Code

	CreateComputePipelines func(device, pipelineCache uint64, createInfoCount uint32, pCreateInfos, pAllocator, pPipelines uint64) result.Code
	DestroyPipeline        func(device, pipeline, pAllocator uint64)
}
