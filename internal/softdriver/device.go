package softdriver

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

func (d *Driver) deviceTable() *dispatch.DeviceTable {
	return &dispatch.DeviceTable{
		DestroyDevice:  d.destroyDevice,
		DeviceWaitIdle: d.deviceWaitIdle,
		GetDeviceQueue: d.getDeviceQueue,
		QueueWaitIdle:  d.queueWaitIdle,

		CreateFence:    d.createFence,
		DestroyFence:   d.destroyFence,
		GetFenceStatus: d.getFenceStatus,
		WaitForFences:  d.waitForFences,
		ResetFences:    d.resetFences,

		CreateShaderModule:  d.createShaderModule,
		DestroyShaderModule: d.destroyShaderModule,

		CreateDescriptorSetLayout:  d.createDescriptorSetLayout,
		DestroyDescriptorSetLayout: d.destroyDescriptorSetLayout,

		CreatePipelineLayout:  d.createPipelineLayout,
		DestroyPipelineLayout: d.destroyPipelineLayout,

		CreateDescriptorPool:   d.createDescriptorPool,
		DestroyDescriptorPool:  d.destroyDescriptorPool,
		ResetDescriptorPool:    d.resetDescriptorPool,
		AllocateDescriptorSets: d.allocateDescriptorSets,
		FreeDescriptorSets:     d.freeDescriptorSets,

		CreateComputePipelines: d.createComputePipelines,
		DestroyPipeline:        d.destroyPipeline,
	}
}

func (d *Driver) destroyDevice(device, pAllocator uint64) {
	const fn = "vkDestroyDevice"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	if device == 0 {
		return
	}
	o, ok := d.lookup(fn, TypeDevice, device)
	if !ok {
		return
	}
	d.destroy(fn, TypeDevice, device, o.parent, pAllocator)
}

func (d *Driver) deviceWaitIdle(device uint64) result.Code {
	const fn = "vkDeviceWaitIdle"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	return result.Success
}

func (d *Driver) getDeviceQueue(device uint64, family, index uint32, pQueue uint64) {
	const fn = "vkGetDeviceQueue"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	o, ok := d.lookup(fn, TypeDevice, device)
	if !ok {
		return
	}
	q, ok := o.queues[[2]uint32{family, index}]
	if !ok {
		d.violation(fn, "queue %d of family %d was not requested at device creation", index, family)
	}
	d.writeHandle(fn, pQueue, q, true)
}

func (d *Driver) queueWaitIdle(queue uint64) result.Code {
	const fn = "vkQueueWaitIdle"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeQueue, queue); !ok {
		return result.KindValidationFailed.Code()
	}
	return result.Success
}

// create is the common tail of every single-object creation: it checks the
// device, decodes the allocator, stores the object and writes its handle.
func (d *Driver) create(fn, kind string, device, pAllocator, pOut uint64, o *object) result.Code {
	alloc, err := d.readAllocator(pAllocator)
	if err != nil {
		return d.violation(fn, "allocation callbacks: %v", err)
	}
	o.allocator = alloc
	h := d.add(kind, device, o)
	if code := d.writeHandle(fn, pOut, h, false); code != result.Success {
		d.remove(h)
		return code
	}
	return result.Success
}

func (d *Driver) createFence(device, pCreateInfo, pAllocator, pFence uint64) result.Code {
	const fn = "vkCreateFence"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	r, ok := d.reader(fn, abi.FenceCreateInfo, pCreateInfo, abi.StructureTypeFenceCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	flags := r.U32("flags")
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}
	rec := FenceRecord{Signaled: flags&abi.FenceCreateSignaled != 0}
	return d.create(fn, TypeFence, device, pAllocator, pFence, &object{record: rec})
}

func (d *Driver) destroyFence(device, fence, pAllocator uint64) {
	const fn = "vkDestroyFence"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypeFence, fence, device, pAllocator)
}

func (d *Driver) getFenceStatus(device, fence uint64) result.Code {
	const fn = "vkGetFenceStatus"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	o, ok := d.owned(fn, TypeFence, fence, device)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	if o.record.(FenceRecord).Signaled {
		return result.Success
	}
	return result.NotReady
}

// waitForFences never blocks: unsignaled fences time out immediately.
func (d *Driver) waitForFences(device uint64, fenceCount uint32, pFences uint64, waitAll uint32, timeout uint64) result.Code {
	const fn = "vkWaitForFences"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastTimeout = timeout
	if code, failed := d.enter(fn); failed {
		return code
	}
	if fenceCount == 0 {
		return d.violation(fn, "fenceCount must be greater than 0")
	}
	fences, err := marshal.ReadU64s(d.space, pFences, int(fenceCount))
	if err != nil {
		return d.violation(fn, "fences: %v", err)
	}
	signaled := 0
	for _, f := range fences {
		o, ok := d.owned(fn, TypeFence, f, device)
		if !ok {
			return result.KindValidationFailed.Code()
		}
		if o.record.(FenceRecord).Signaled {
			signaled++
		}
	}
	if signaled == len(fences) || waitAll == abi.False && signaled > 0 {
		return result.Success
	}
	return result.Timeout
}

func (d *Driver) resetFences(device uint64, fenceCount uint32, pFences uint64) result.Code {
	const fn = "vkResetFences"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	fences, err := marshal.ReadU64s(d.space, pFences, int(fenceCount))
	if err != nil {
		return d.violation(fn, "fences: %v", err)
	}
	for _, f := range fences {
		o, ok := d.owned(fn, TypeFence, f, device)
		if !ok {
			return result.KindValidationFailed.Code()
		}
		o.record = FenceRecord{}
	}
	return result.Success
}
