package softdriver

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

func (d *Driver) createShaderModule(device, pCreateInfo, pAllocator, pShaderModule uint64) result.Code {
	const fn = "vkCreateShaderModule"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	r, ok := d.reader(fn, abi.ShaderModuleCreateInfo, pCreateInfo, abi.StructureTypeShaderModuleCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	size := r.Size("codeSize")
	pCode := r.Ptr("pCode")
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}
	if size == 0 || size%4 != 0 {
		return d.violation(fn, "codeSize %d is not a positive multiple of 4", size)
	}
	code, err := marshal.ReadU32s(d.space, pCode, int(size/4))
	if err != nil {
		return d.violation(fn, "code: %v", err)
	}
	if code[0] != abi.SPIRVMagic {
		return result.KindInvalidShader.Code()
	}
	return d.create(fn, TypeShaderModule, device, pAllocator, pShaderModule, &object{record: ShaderModuleRecord{Code: code}})
}

func (d *Driver) destroyShaderModule(device, module, pAllocator uint64) {
	const fn = "vkDestroyShaderModule"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypeShaderModule, module, device, pAllocator)
}

func (d *Driver) createDescriptorSetLayout(device, pCreateInfo, pAllocator, pSetLayout uint64) result.Code {
	const fn = "vkCreateDescriptorSetLayout"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	r, ok := d.reader(fn, abi.DescriptorSetLayoutCreateInfo, pCreateInfo, abi.StructureTypeDescriptorSetLayoutCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	var rec DescriptorSetLayoutRecord
	n := int(r.U32("bindingCount"))
	base := r.Ptr("pBindings")
	if n > 0 && base == 0 {
		return d.violation(fn, "pBindings is null with bindingCount %d", n)
	}
	seen := make(map[uint32]bool)
	for i := 0; i < n; i++ {
		b := marshal.Element(d.space, d.calc, abi.DescriptorSetLayoutBinding, base, i)
		br := BindingRecord{
			Binding: b.U32("binding"),
			Type:    b.U32("descriptorType"),
			Count:   b.U32("descriptorCount"),
			Stages:  b.U32("stageFlags"),
		}
		if sp := b.Ptr("pImmutableSamplers"); sp != 0 {
			samplers, err := marshal.ReadU64s(d.space, sp, int(br.Count))
			if err != nil {
				return d.violation(fn, "binding %d samplers: %v", i, err)
			}
			br.ImmutableSamplers = samplers
		}
		if err := b.Err(); err != nil {
			return d.violation(fn, "binding %d: %v", i, err)
		}
		if seen[br.Binding] {
			return d.violation(fn, "binding number %d used twice", br.Binding)
		}
		seen[br.Binding] = true
		rec.Bindings = append(rec.Bindings, br)
	}
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}
	return d.create(fn, TypeDescriptorSetLayout, device, pAllocator, pSetLayout, &object{record: rec})
}

func (d *Driver) destroyDescriptorSetLayout(device, layout, pAllocator uint64) {
	const fn = "vkDestroyDescriptorSetLayout"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypeDescriptorSetLayout, layout, device, pAllocator)
}

func (d *Driver) createPipelineLayout(device, pCreateInfo, pAllocator, pPipelineLayout uint64) result.Code {
	const fn = "vkCreatePipelineLayout"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	r, ok := d.reader(fn, abi.PipelineLayoutCreateInfo, pCreateInfo, abi.StructureTypePipelineLayoutCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	var rec PipelineLayoutRecord
	var err error
	if rec.SetLayouts, err = marshal.ReadU64s(d.space, r.Ptr("pSetLayouts"), int(r.U32("setLayoutCount"))); err != nil {
		return d.violation(fn, "set layouts: %v", err)
	}
	for _, h := range rec.SetLayouts {
		if _, ok := d.owned(fn, TypeDescriptorSetLayout, h, device); !ok {
			return result.KindValidationFailed.Code()
		}
	}
	n := int(r.U32("pushConstantRangeCount"))
	base := r.Ptr("pPushConstantRanges")
	for i := 0; i < n; i++ {
		pc := marshal.Element(d.space, d.calc, abi.PushConstantRange, base, i)
		rec.PushConstants = append(rec.PushConstants, PushConstantRecord{
			Stages: pc.U32("stageFlags"),
			Offset: pc.U32("offset"),
			Size:   pc.U32("size"),
		})
		if err := pc.Err(); err != nil {
			return d.violation(fn, "push constant range %d: %v", i, err)
		}
	}
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}
	return d.create(fn, TypePipelineLayout, device, pAllocator, pPipelineLayout, &object{record: rec})
}

func (d *Driver) destroyPipelineLayout(device, layout, pAllocator uint64) {
	const fn = "vkDestroyPipelineLayout"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypePipelineLayout, layout, device, pAllocator)
}

func (d *Driver) createDescriptorPool(device, pCreateInfo, pAllocator, pDescriptorPool uint64) result.Code {
	const fn = "vkCreateDescriptorPool"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	r, ok := d.reader(fn, abi.DescriptorPoolCreateInfo, pCreateInfo, abi.StructureTypeDescriptorPoolCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	rec := DescriptorPoolRecord{Flags: r.U32("flags"), MaxSets: r.U32("maxSets")}
	n := int(r.U32("poolSizeCount"))
	base := r.Ptr("pPoolSizes")
	for i := 0; i < n; i++ {
		ps := marshal.Element(d.space, d.calc, abi.DescriptorPoolSize, base, i)
		rec.Sizes = append(rec.Sizes, PoolSizeRecord{Type: ps.U32("type"), Count: ps.U32("descriptorCount")})
		if err := ps.Err(); err != nil {
			return d.violation(fn, "pool size %d: %v", i, err)
		}
	}
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}
	if rec.MaxSets == 0 {
		return d.violation(fn, "maxSets must be greater than 0")
	}
	return d.create(fn, TypeDescriptorPool, device, pAllocator, pDescriptorPool, &object{record: rec, sets: make(map[uint64]struct{})})
}

func (d *Driver) destroyDescriptorPool(device, pool, pAllocator uint64) {
	const fn = "vkDestroyDescriptorPool"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypeDescriptorPool, pool, device, pAllocator)
}

func (d *Driver) resetDescriptorPool(device, pool uint64, flags uint32) result.Code {
	const fn = "vkResetDescriptorPool"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	o, ok := d.owned(fn, TypeDescriptorPool, pool, device)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	if flags != 0 {
		return d.violation(fn, "flags must be 0")
	}
	for h := range o.sets {
		d.remove(h)
	}
	return result.Success
}

// allocateDescriptorSets is all-or-nothing: on failure every output
// handle is null.
func (d *Driver) allocateDescriptorSets(device, pAllocateInfo, pDescriptorSets uint64) result.Code {
	const fn = "vkAllocateDescriptorSets"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	r, ok := d.reader(fn, abi.DescriptorSetAllocateInfo, pAllocateInfo, abi.StructureTypeDescriptorSetAllocateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	poolH := r.Handle("descriptorPool")
	n := int(r.U32("descriptorSetCount"))
	layouts, err := marshal.ReadU64s(d.space, r.Ptr("pSetLayouts"), n)
	if err != nil {
		return d.violation(fn, "set layouts: %v", err)
	}
	if err := r.Err(); err != nil {
		return d.violation(fn, "allocate info: %v", err)
	}
	if n == 0 {
		return d.violation(fn, "descriptorSetCount must be greater than 0")
	}
	pool, ok := d.owned(fn, TypeDescriptorPool, poolH, device)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	for _, l := range layouts {
		if _, ok := d.owned(fn, TypeDescriptorSetLayout, l, device); !ok {
			return result.KindValidationFailed.Code()
		}
	}

	fault, faulted := d.takeBatchFault(fn)
	rec := pool.record.(DescriptorPoolRecord)
	if faulted && fault.index < n || len(pool.sets)+n > int(rec.MaxSets) {
		code := result.KindOutOfPoolMemory.Code()
		if faulted {
			code = fault.code
		}
		for i := 0; i < n; i++ {
			_ = d.space.WriteU64(pDescriptorSets+8*uint64(i), 0)
		}
		return code
	}

	for i, l := range layouts {
		h := d.add(TypeDescriptorSet, poolH, &object{record: DescriptorSetRecord{Pool: poolH, Layout: l}})
		pool.sets[h] = struct{}{}
		if code := d.writeHandle(fn, pDescriptorSets+8*uint64(i), h, false); code != result.Success {
			return code
		}
	}
	return result.Success
}

func (d *Driver) freeDescriptorSets(device, pool uint64, count uint32, pDescriptorSets uint64) result.Code {
	const fn = "vkFreeDescriptorSets"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	o, ok := d.owned(fn, TypeDescriptorPool, pool, device)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	if o.record.(DescriptorPoolRecord).Flags&abi.DescriptorPoolCreateFreeDescriptorSet == 0 {
		return d.violation(fn, "pool %#x was not created with FREE_DESCRIPTOR_SET", pool)
	}
	sets, err := marshal.ReadU64s(d.space, pDescriptorSets, int(count))
	if err != nil {
		return d.violation(fn, "descriptor sets: %v", err)
	}
	for _, h := range sets {
		if h == 0 {
			continue
		}
		if _, ok := d.owned(fn, TypeDescriptorSet, h, pool); !ok {
			return result.KindValidationFailed.Code()
		}
		d.remove(h)
		d.destroyed[TypeDescriptorSet]++
	}
	return result.Success
}

// createComputePipelines creates each pipeline independently; failed
// entries are null and the first failure code is returned.
func (d *Driver) createComputePipelines(device, pipelineCache uint64, count uint32, pCreateInfos, pAllocator, pPipelines uint64) result.Code {
	const fn = "vkCreateComputePipelines"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeDevice, device); !ok {
		return result.KindValidationFailed.Code()
	}
	if pipelineCache != 0 {
		return d.violation(fn, "pipeline caches are not supported")
	}
	if count == 0 || pCreateInfos == 0 || pPipelines == 0 {
		return d.violation(fn, "empty batch")
	}
	alloc, err := d.readAllocator(pAllocator)
	if err != nil {
		return d.violation(fn, "allocation callbacks: %v", err)
	}

	fault, faulted := d.takeBatchFault(fn)
	status := result.Success
	for i := 0; i < int(count); i++ {
		out := pPipelines + 8*uint64(i)
		rec, code := d.decodeComputePipeline(fn, device, pCreateInfos, i)
		if code == result.Success && faulted && fault.index == i {
			code = fault.code
		}
		if code != result.Success {
			_ = d.space.WriteU64(out, 0)
			if status == result.Success {
				status = code
			}
			continue
		}
		h := d.add(TypePipeline, device, &object{record: rec, allocator: alloc})
		if wc := d.writeHandle(fn, out, h, false); wc != result.Success {
			d.remove(h)
			return wc
		}
	}
	return status
}

func (d *Driver) decodeComputePipeline(fn string, device, base uint64, i int) (PipelineRecord, result.Code) {
	r := marshal.Element(d.space, d.calc, abi.ComputePipelineCreateInfo, base, i)
	if st := r.U32("sType"); r.Err() == nil && st != uint32(abi.StructureTypeComputePipelineCreateInfo) {
		return PipelineRecord{}, d.violation(fn, "create info %d has sType %d", i, st)
	}
	stage := r.Inline("stage")
	if st := stage.U32("sType"); r.Err() == nil && st != uint32(abi.StructureTypePipelineShaderStageCreateInfo) {
		return PipelineRecord{}, d.violation(fn, "stage %d has sType %d", i, st)
	}
	rec := PipelineRecord{
		Flags:             r.U32("flags"),
		Stage:             stage.U32("stage"),
		Module:            stage.Handle("module"),
		Layout:            r.Handle("layout"),
		BasePipeline:      r.Handle("basePipelineHandle"),
		BasePipelineIndex: r.I32("basePipelineIndex"),
	}
	entry, err := marshal.ReadCString(d.space, stage.Ptr("pName"))
	if err != nil {
		return rec, d.violation(fn, "entry point %d: %v", i, err)
	}
	rec.EntryPoint = entry
	pSpec := stage.Ptr("pSpecializationInfo")
	if err := r.Err(); err != nil {
		return rec, d.violation(fn, "create info %d: %v", i, err)
	}

	if rec.Stage != abi.ShaderStageCompute {
		return rec, d.violation(fn, "stage %#x is not compute", rec.Stage)
	}
	if rec.EntryPoint == "" {
		return rec, d.violation(fn, "entry point name is empty")
	}
	if _, ok := d.owned(fn, TypeShaderModule, rec.Module, device); !ok {
		return rec, result.KindValidationFailed.Code()
	}
	if _, ok := d.owned(fn, TypePipelineLayout, rec.Layout, device); !ok {
		return rec, result.KindValidationFailed.Code()
	}

	if pSpec != 0 {
		spec, code := d.decodeSpecialization(fn, pSpec)
		if code != result.Success {
			return rec, code
		}
		rec.Specialization = spec
	}
	return rec, result.Success
}

func (d *Driver) decodeSpecialization(fn string, addr uint64) (*SpecializationRecord, result.Code) {
	s := marshal.NewReader(d.space, d.calc, abi.SpecializationInfo, addr)
	n := int(s.U32("mapEntryCount"))
	entries := s.Ptr("pMapEntries")
	size := s.Size("dataSize")
	pData := s.Ptr("pData")
	if err := s.Err(); err != nil {
		return nil, d.violation(fn, "specialization info: %v", err)
	}
	data, err := marshal.ReadBytes(d.space, pData, int(size))
	if err != nil {
		return nil, d.violation(fn, "specialization data: %v", err)
	}
	rec := &SpecializationRecord{Data: data}
	for i := 0; i < n; i++ {
		e := marshal.Element(d.space, d.calc, abi.SpecializationMapEntry, entries, i)
		entry := SpecializationEntry{
			ConstantID: e.U32("constantID"),
			Offset:     e.U32("offset"),
			Size:       e.Size("size"),
		}
		if err := e.Err(); err != nil {
			return nil, d.violation(fn, "map entry %d: %v", i, err)
		}
		if uint64(entry.Offset)+entry.Size > size {
			return nil, d.violation(fn, "map entry %d exceeds dataSize %d", i, size)
		}
		rec.Entries = append(rec.Entries, entry)
	}
	return rec, result.Success
}

func (d *Driver) destroyPipeline(device, pipeline, pAllocator uint64) {
	const fn = "vkDestroyPipeline"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypePipeline, pipeline, device, pAllocator)
}
