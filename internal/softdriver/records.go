package softdriver

// Records capture what the driver decoded from each creation call.
// Tests compare them against the values handed to the binding.

type InstanceRecord struct {
	HasApplicationInfo bool
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	APIVersion         uint32
	Layers             []string
	Extensions         []string
	ValidationEnabled  []uint32
	ValidationDisabled []uint32
	// Chain is the sType of every pNext element in order.
	Chain     []uint32
	Allocator Allocator
}

type QueueRequest struct {
	Family     uint32
	Priorities []float32
}

type DeviceRecord struct {
	PhysicalDevice      uint64
	Queues              []QueueRequest
	Extensions          []string
	Features            []string
	FeaturesViaChain    bool
	TimelineSemaphore   bool
	BufferDeviceAddress bool
	Chain               []uint32
	Allocator           Allocator
}

type FenceRecord struct {
	Signaled bool
}

type ShaderModuleRecord struct {
	Code []uint32
}

type BindingRecord struct {
	Binding           uint32
	Type              uint32
	Count             uint32
	Stages            uint32
	ImmutableSamplers []uint64
}

type DescriptorSetLayoutRecord struct {
	Bindings []BindingRecord
}

type PushConstantRecord struct {
	Stages uint32
	Offset uint32
	Size   uint32
}

type PipelineLayoutRecord struct {
	SetLayouts    []uint64
	PushConstants []PushConstantRecord
}

type PoolSizeRecord struct {
	Type  uint32
	Count uint32
}

type DescriptorPoolRecord struct {
	Flags   uint32
	MaxSets uint32
	Sizes   []PoolSizeRecord
}

type DescriptorSetRecord struct {
	Pool   uint64
	Layout uint64
}

type SpecializationEntry struct {
	ConstantID uint32
	Offset     uint32
	Size       uint64
}

type SpecializationRecord struct {
	Entries []SpecializationEntry
	Data    []byte
}

type PipelineRecord struct {
	Flags             uint32
	Stage             uint32
	Module            uint64
	EntryPoint        string
	Specialization    *SpecializationRecord
	Layout            uint64
	BasePipeline      uint64
	BasePipelineIndex int32
}

// Allocator is a decoded VkAllocationCallbacks. The zero value means no
// callbacks were passed.
type Allocator struct {
	UserData           uint64
	Allocation         uint64
	Reallocation       uint64
	Free               uint64
	InternalAllocation uint64
	InternalFree       uint64
}
