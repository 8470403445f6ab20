package vk_test

import (
	"bytes"
	"encoding/binary"
	"slices"
	"testing"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/internal/softdriver"
	"github.com/wippyai/gpubind/result"
	"github.com/wippyai/gpubind/vk"
)

type computeFixture struct {
	drv    *softdriver.Driver
	inst   *vk.Instance
	dev    *vk.Device
	module *vk.ShaderModule
	set    *vk.DescriptorSetLayout
	layout *vk.PipelineLayout
}

func newComputeFixture(t *testing.T) *computeFixture {
	t.Helper()
	f := &computeFixture{drv: newDriver(t, softdriver.DefaultConfig())}
	f.inst = newInstance(t, f.drv, vk.DefaultOptions())
	f.dev = newDevice(t, f.inst)

	var err error
	if f.module, err = f.dev.CreateShaderModule(computeShader); err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	f.set, err = f.dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
		Bindings: []vk.DescriptorSetLayoutBinding{
			{Binding: 0, DescriptorType: abi.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: abi.ShaderStageCompute},
			{Binding: 1, DescriptorType: abi.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: abi.ShaderStageCompute},
		},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}
	f.layout, err = f.dev.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts:         []*vk.DescriptorSetLayout{f.set},
		PushConstantRanges: []vk.PushConstantRange{{StageFlags: abi.ShaderStageCompute, Offset: 0, Size: 16}},
	})
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	return f
}

func (f *computeFixture) stage(name string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{Stage: abi.ShaderStageCompute, Module: f.module, Name: name}
}

func (f *computeFixture) pipelineInfo(name string) vk.ComputePipelineCreateInfo {
	return vk.ComputePipelineCreateInfo{Stage: f.stage(name), Layout: f.layout, BasePipelineIndex: -1}
}

// release drops the fixture's own references in creation order, which
// the parent references make safe.
func (f *computeFixture) release(t *testing.T) {
	t.Helper()
	for _, o := range []interface{ Release() error }{f.inst, f.dev, f.module, f.set, f.layout} {
		if err := o.Release(); err != nil {
			t.Errorf("Release: %v", err)
		}
	}
}

func TestShaderModule(t *testing.T) {
	f := newComputeFixture(t)
	defer f.release(t)

	rec, ok := softdriver.Record[softdriver.ShaderModuleRecord](f.drv, uint64(f.module.Handle()))
	if !ok || !slices.Equal(rec.Code, computeShader) {
		t.Errorf("code = %v", rec.Code)
	}

	if _, err := f.dev.CreateShaderModule(nil); !errors.Is(err, &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindInvalidInput}) {
		t.Errorf("empty code: %v", err)
	}
	if _, err := f.dev.CreateShaderModule([]uint32{0xdeadbeef, 0}); !errors.Is(err, result.ErrInvalidShader) {
		t.Errorf("bad magic: %v", err)
	}
}

func TestDescriptorSetLayoutRoundTrip(t *testing.T) {
	f := newComputeFixture(t)
	defer f.release(t)

	rec, _ := softdriver.Record[softdriver.DescriptorSetLayoutRecord](f.drv, uint64(f.set.Handle()))
	if len(rec.Bindings) != 2 || rec.Bindings[1].Type != abi.DescriptorTypeUniformBuffer || rec.Bindings[0].Stages != abi.ShaderStageCompute {
		t.Errorf("bindings = %+v", rec.Bindings)
	}
	for _, b := range rec.Bindings {
		if len(b.ImmutableSamplers) != 0 {
			t.Errorf("binding %d: samplers = %v, want none", b.Binding, b.ImmutableSamplers)
		}
	}

	plain, err := f.dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
		Bindings: []vk.DescriptorSetLayoutBinding{{
			Binding: 0, DescriptorType: abi.DescriptorTypeStorageBuffer, DescriptorCount: 4, StageFlags: abi.ShaderStageCompute,
		}},
	})
	if err != nil {
		t.Fatalf("binding without samplers: %v (violations %v)", err, f.drv.Violations())
	}
	defer plain.Release()
	if v := f.drv.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}

	samplers := []handle.Handle{0xa0, 0xb0}
	l, err := f.dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
		Bindings: []vk.DescriptorSetLayoutBinding{{
			Binding: 3, DescriptorType: abi.DescriptorTypeSampler, DescriptorCount: 2,
			StageFlags: abi.ShaderStageCompute, ImmutableSamplers: samplers,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()
	rec, _ = softdriver.Record[softdriver.DescriptorSetLayoutRecord](f.drv, uint64(l.Handle()))
	if !slices.Equal(rec.Bindings[0].ImmutableSamplers, []uint64{0xa0, 0xb0}) {
		t.Errorf("samplers = %v", rec.Bindings[0].ImmutableSamplers)
	}

	_, err = f.dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
		Bindings: []vk.DescriptorSetLayoutBinding{{DescriptorCount: 3, ImmutableSamplers: samplers}},
	})
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindInvalidInput}) {
		t.Errorf("sampler count mismatch: %v", err)
	}
}

func TestPipelineLayoutRoundTrip(t *testing.T) {
	f := newComputeFixture(t)
	defer f.release(t)

	rec, ok := softdriver.Record[softdriver.PipelineLayoutRecord](f.drv, uint64(f.layout.Handle()))
	if !ok {
		t.Fatal("no pipeline layout record")
	}
	if !slices.Equal(rec.SetLayouts, []uint64{uint64(f.set.Handle())}) {
		t.Errorf("set layouts = %v", rec.SetLayouts)
	}
	want := []softdriver.PushConstantRecord{{Stages: abi.ShaderStageCompute, Offset: 0, Size: 16}}
	if !slices.Equal(rec.PushConstants, want) {
		t.Errorf("push constants = %+v", rec.PushConstants)
	}

	if _, err := f.dev.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{SetLayouts: []*vk.DescriptorSetLayout{nil}}); err == nil {
		t.Error("expected error for nil set layout")
	}
}

func TestComputePipelines(t *testing.T) {
	f := newComputeFixture(t)

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], 64)
	binary.LittleEndian.PutUint64(data[4:], 1<<40)
	spec := &vk.SpecializationInfo{
		MapEntries: []vk.SpecializationMapEntry{
			{ConstantID: 0, Offset: 0, Size: 4},
			{ConstantID: 1, Offset: 4, Size: 8},
		},
		Data: data,
	}
	info := f.pipelineInfo("main")
	info.Stage.SpecializationInfo = spec

	pipelines, err := f.dev.CreateComputePipelines(handle.Null, []vk.ComputePipelineCreateInfo{info, f.pipelineInfo("second")})
	if err != nil {
		t.Fatal(err)
	}
	if len(pipelines) != 2 {
		t.Fatalf("got %d pipelines", len(pipelines))
	}

	rec, ok := softdriver.Record[softdriver.PipelineRecord](f.drv, uint64(pipelines[0].Handle()))
	if !ok {
		t.Fatal("no pipeline record")
	}
	if rec.EntryPoint != "main" || rec.Stage != abi.ShaderStageCompute || rec.BasePipelineIndex != -1 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Module != uint64(f.module.Handle()) || rec.Layout != uint64(f.layout.Handle()) {
		t.Errorf("module %#x layout %#x", rec.Module, rec.Layout)
	}
	if rec.Specialization == nil || !bytes.Equal(rec.Specialization.Data, data) {
		t.Fatalf("specialization = %+v", rec.Specialization)
	}
	wantEntries := []softdriver.SpecializationEntry{{ConstantID: 0, Offset: 0, Size: 4}, {ConstantID: 1, Offset: 4, Size: 8}}
	if !slices.Equal(rec.Specialization.Entries, wantEntries) {
		t.Errorf("entries = %+v", rec.Specialization.Entries)
	}
	second, _ := softdriver.Record[softdriver.PipelineRecord](f.drv, uint64(pipelines[1].Handle()))
	if second.EntryPoint != "second" || second.Specialization != nil {
		t.Errorf("second record = %+v", second)
	}

	// Parents are released before the pipelines that use them.
	f.release(t)
	for _, p := range pipelines {
		if err := p.Release(); err != nil {
			t.Fatal(err)
		}
	}
	checkClean(t, f.drv)
}

func TestComputePipelinesPartialFailure(t *testing.T) {
	f := newComputeFixture(t)
	infos := []vk.ComputePipelineCreateInfo{f.pipelineInfo("a"), f.pipelineInfo("b"), f.pipelineInfo("c")}

	t.Run("status", func(t *testing.T) {
		f.drv.FailBatchAt("vkCreateComputePipelines", 1, result.PipelineCompileRequired)
		pipelines, err := f.dev.CreateComputePipelines(handle.Null, infos)

		var batch *errors.BatchError
		if !errors.As(err, &batch) {
			t.Fatalf("err = %v, want *errors.BatchError", err)
		}
		if !slices.Equal(batch.Failed, []int{1}) || batch.Requested != 3 {
			t.Errorf("batch = %+v", batch)
		}
		if result.Code(batch.Status) != result.PipelineCompileRequired || batch.Cause != nil {
			t.Errorf("status %d cause %v", batch.Status, batch.Cause)
		}
		if len(pipelines) != 3 || pipelines[0] == nil || pipelines[1] != nil || pipelines[2] == nil {
			t.Fatalf("pipelines = %v", pipelines)
		}
		if n := f.drv.Live(softdriver.TypePipeline); n != 2 {
			t.Errorf("live pipelines = %d, want 2", n)
		}
		_ = pipelines[0].Release()
		_ = pipelines[2].Release()
	})

	t.Run("error", func(t *testing.T) {
		f.drv.FailBatchAt("vkCreateComputePipelines", 2, result.KindOutOfDeviceMemory.Code())
		pipelines, err := f.dev.CreateComputePipelines(handle.Null, infos)
		if !errors.Is(err, result.ErrOutOfDeviceMemory) {
			t.Fatalf("err = %v, want out of device memory", err)
		}
		var batch *errors.BatchError
		if !errors.As(err, &batch) || !slices.Equal(batch.Failed, []int{2}) {
			t.Fatalf("err = %v", err)
		}
		if pipelines[0] == nil || pipelines[1] == nil || pipelines[2] != nil {
			t.Fatalf("pipelines = %v", pipelines)
		}
		_ = pipelines[0].Release()
		_ = pipelines[1].Release()
	})

	t.Run("nothing created", func(t *testing.T) {
		f.drv.FailBatchAt("vkCreateComputePipelines", 0, result.KindOutOfHostMemory.Code())
		pipelines, err := f.dev.CreateComputePipelines(handle.Null, infos[:1])
		if !errors.Is(err, result.ErrOutOfHostMemory) {
			t.Fatalf("err = %v", err)
		}
		var batch *errors.BatchError
		if errors.As(err, &batch) {
			t.Error("a batch with no survivors should be a plain native error")
		}
		if pipelines != nil {
			t.Errorf("pipelines = %v", pipelines)
		}
	})

	f.release(t)
	checkClean(t, f.drv)
}

func TestComputePipelineMarshalErrors(t *testing.T) {
	f := newComputeFixture(t)
	defer f.release(t)

	noModule := f.pipelineInfo("main")
	noModule.Stage.Module = nil
	badName := f.pipelineInfo("ma\x00in")
	badSpec := f.pipelineInfo("main")
	badSpec.Stage.SpecializationInfo = &vk.SpecializationInfo{
		MapEntries: []vk.SpecializationMapEntry{{ConstantID: 0, Offset: 4, Size: 8}},
		Data:       make([]byte, 8),
	}
	noLayout := f.pipelineInfo("main")
	noLayout.Layout = nil

	tests := []struct {
		name string
		info vk.ComputePipelineCreateInfo
		kind errors.Kind
	}{
		{"nil module", noModule, errors.KindNilPointer},
		{"embedded NUL in entry point", badName, errors.KindEmbeddedNul},
		{"specialization out of bounds", badSpec, errors.KindOutOfBounds},
		{"nil layout", noLayout, errors.KindNilPointer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.dev.CreateComputePipelines(handle.Null, []vk.ComputePipelineCreateInfo{tt.info})
			if !errors.Is(err, &errors.Error{Phase: errors.PhaseMarshal, Kind: tt.kind}) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
	if n := f.drv.Calls("vkCreateComputePipelines"); n != 0 {
		t.Errorf("native call made %d times for invalid input", n)
	}

	pipelines, err := f.dev.CreateComputePipelines(handle.Null, nil)
	if err != nil || len(pipelines) != 0 {
		t.Errorf("empty batch = %v, %v", pipelines, err)
	}
}
