package vk

import (
	"fmt"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

type PushConstantRange struct {
	StageFlags uint32
	Offset     uint32
	Size       uint32
}

func (r *PushConstantRange) Schema() *layout.Struct { return abi.PushConstantRange }

func (r *PushConstantRange) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	w.U32("stageFlags", r.StageFlags)
	w.U32("offset", r.Offset)
	w.U32("size", r.Size)
	return nil
}

type PipelineLayoutCreateInfo struct {
	Flags              uint32
	SetLayouts         []*DescriptorSetLayout
	PushConstantRanges []PushConstantRange
}

func (c *PipelineLayoutCreateInfo) Schema() *layout.Struct { return abi.PipelineLayoutCreateInfo }

func (c *PipelineLayoutCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	handles := make([]uint64, len(c.SetLayouts))
	for i, l := range c.SetLayouts {
		if l == nil {
			return errors.NilPointer(errors.PhaseMarshal, []string{fmt.Sprintf("pSetLayouts[%d]", i)}, "*vk.DescriptorSetLayout")
		}
		h, err := l.raw()
		if err != nil {
			return err
		}
		handles[i] = h
	}
	layouts, err := s.U64s(handles)
	if err != nil {
		return err
	}
	ranges, n, err := marshal.ConvertSlice(s, c.PushConstantRanges)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypePipelineLayoutCreateInfo))
	w.U32("flags", c.Flags)
	w.Count("setLayoutCount", len(handles))
	w.Ptr("pSetLayouts", layouts)
	w.U32("pushConstantRangeCount", n)
	w.Ptr("pPushConstantRanges", ranges.Addr())
	return nil
}

type PipelineLayout struct {
	object
	device *Device
}

func (d *Device) CreatePipelineLayout(info *PipelineLayoutCreateInfo) (*PipelineLayout, error) {
	ref, parent, err := createChild(d, "vkCreatePipelineLayout", "VkPipelineLayout", info,
		d.table.CreatePipelineLayout, d.table.DestroyPipelineLayout)
	if err != nil {
		return nil, err
	}
	return &PipelineLayout{object: object{ref: ref}, device: parent}, nil
}

func (l *PipelineLayout) Clone() (*PipelineLayout, error) {
	ref, err := l.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *l
	c.ref = ref
	return &c, nil
}

type SpecializationMapEntry struct {
	ConstantID uint32
	Offset     uint32
	Size       uint64
}

func (m *SpecializationMapEntry) Schema() *layout.Struct { return abi.SpecializationMapEntry }

func (m *SpecializationMapEntry) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	w.U32("constantID", m.ConstantID)
	w.U32("offset", m.Offset)
	w.Size("size", m.Size)
	return nil
}

// SpecializationInfo sets shader specialization constants from Data.
type SpecializationInfo struct {
	MapEntries []SpecializationMapEntry
	Data       []byte
}

func (i *SpecializationInfo) Schema() *layout.Struct { return abi.SpecializationInfo }

func (i *SpecializationInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	for k, m := range i.MapEntries {
		if uint64(m.Offset)+m.Size > uint64(len(i.Data)) {
			return errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
				Path("pSpecializationInfo", fmt.Sprintf("pMapEntries[%d]", k)).
				Detail("constant %d at [%d, +%d) exceeds %d data bytes", m.ConstantID, m.Offset, m.Size, len(i.Data)).
				Build()
		}
	}
	entries, n, err := marshal.ConvertSlice(s, i.MapEntries)
	if err != nil {
		return err
	}
	var data uint64
	if len(i.Data) > 0 {
		if data, err = s.Bytes(i.Data, 8); err != nil {
			return err
		}
	}
	w.U32("mapEntryCount", n)
	w.Ptr("pMapEntries", entries.Addr())
	w.Size("dataSize", uint64(len(i.Data)))
	w.Ptr("pData", data)
	return nil
}

type PipelineShaderStageCreateInfo struct {
	Flags              uint32
	Stage              uint32
	Module             *ShaderModule
	Name               string
	SpecializationInfo *SpecializationInfo
}

func (c *PipelineShaderStageCreateInfo) Schema() *layout.Struct {
	return abi.PipelineShaderStageCreateInfo
}

func (c *PipelineShaderStageCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	if c.Module == nil {
		return errors.NilPointer(errors.PhaseMarshal, []string{"stage", "module"}, "*vk.ShaderModule")
	}
	module, err := c.Module.raw()
	if err != nil {
		return err
	}
	name, err := s.CString([]string{"stage", "pName"}, c.Name)
	if err != nil {
		return err
	}
	spec, err := marshal.ConvertOptional(s, c.SpecializationInfo)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypePipelineShaderStageCreateInfo))
	w.U32("flags", c.Flags)
	w.U32("stage", c.Stage)
	w.Handle("module", module)
	w.Ptr("pName", name)
	w.Ptr("pSpecializationInfo", spec.Addr())
	return nil
}

type ComputePipelineCreateInfo struct {
	Flags  uint32
	Stage  PipelineShaderStageCreateInfo
	Layout *PipelineLayout
	// BasePipeline and BasePipelineIndex are mutually exclusive; use -1
	// for no base index.
	BasePipeline      *ComputePipeline
	BasePipelineIndex int32
	Next              []marshal.Extension
}

func (c *ComputePipelineCreateInfo) Schema() *layout.Struct { return abi.ComputePipelineCreateInfo }

func (c *ComputePipelineCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	if c.Layout == nil {
		return errors.NilPointer(errors.PhaseMarshal, []string{"layout"}, "*vk.PipelineLayout")
	}
	pl, err := c.Layout.raw()
	if err != nil {
		return err
	}
	var base uint64
	if c.BasePipeline != nil {
		if base, err = c.BasePipeline.raw(); err != nil {
			return err
		}
	}
	next, err := s.Chain(c.Next, 0)
	if err != nil {
		return err
	}
	if err := marshal.LowerInto(s, w.Inline("stage"), &c.Stage); err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeComputePipelineCreateInfo))
	w.Ptr("pNext", next)
	w.U32("flags", c.Flags)
	w.Handle("layout", pl)
	w.Handle("basePipelineHandle", base)
	w.I32("basePipelineIndex", c.BasePipelineIndex)
	return nil
}

type ComputePipeline struct {
	object
	device *Device
}

func (p *ComputePipeline) Clone() (*ComputePipeline, error) {
	ref, err := p.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *p
	c.ref = ref
	return &c, nil
}

// CreateComputePipelines creates one pipeline per info. cache may be
// handle.Null.
//
// The driver may create some pipelines and fail others. The result then
// has one entry per info, nil where creation failed, together with an
// *errors.BatchError listing the failed indices; the created pipelines
// are owned by the caller. On a failure that created nothing, the result
// is nil.
func (d *Device) CreateComputePipelines(cache handle.Handle, infos []ComputePipelineCreateInfo) ([]*ComputePipeline, error) {
	const fn = "vkCreateComputePipelines"
	dev, err := d.raw()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return []*ComputePipeline{}, nil
	}
	s := d.env.scope()
	defer s.Close()

	pInfos, n, err := marshal.ConvertSlice(s, infos)
	if err != nil {
		return nil, err
	}
	pAllocator, err := d.env.allocator(s)
	if err != nil {
		return nil, err
	}
	out, err := s.OutArray(abi.NonDispatchableHandle, len(infos))
	if err != nil {
		return nil, err
	}
	code := d.table.CreateComputePipelines(dev, uint64(cache), n, pInfos.Addr(), pAllocator, out)
	handles, err := marshal.ReadU64s(d.env.space, out, len(infos))
	if err != nil {
		return nil, err
	}

	pipelines := make([]*ComputePipeline, len(infos))
	var failed []int
	created := 0
	for i, h := range handles {
		if h == 0 {
			failed = append(failed, i)
			continue
		}
		parent, err := d.Clone()
		if err != nil {
			d.table.DestroyPipeline(dev, h, pAllocator)
			failed = append(failed, i)
			continue
		}
		ref := d.env.wrap(h, handle.Options{
			ObjectType: "VkPipeline",
			Parent:     parent.ref,
			Destroy:    parent.destroyer(d.table.DestroyPipeline),
		})
		pipelines[i] = &ComputePipeline{object: object{ref: ref}, device: parent}
		created++
	}

	status, nativeErr := result.Check(code)
	if nativeErr == nil && len(failed) == 0 {
		return pipelines, nil
	}
	if nativeErr != nil && created == 0 {
		return nil, errors.Native(fn, nativeErr)
	}
	return pipelines, &errors.BatchError{
		Cause:     nativeErr,
		Function:  fn,
		Failed:    failed,
		Requested: len(infos),
		Status:    int32(status),
	}
}
