package vk

import (
	"fmt"
	"sync/atomic"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"go.uber.org/zap"
)

type DescriptorSetLayoutBinding struct {
	Binding         uint32
	DescriptorType  uint32
	DescriptorCount uint32
	StageFlags      uint32
	// ImmutableSamplers, when set, must hold DescriptorCount sampler handles.
	ImmutableSamplers []handle.Handle
}

func (b *DescriptorSetLayoutBinding) Schema() *layout.Struct { return abi.DescriptorSetLayoutBinding }

func (b *DescriptorSetLayoutBinding) Lower(s *marshal.Scope, w *marshal.Writer) error {
	var samplers uint64
	if len(b.ImmutableSamplers) > 0 {
		if len(b.ImmutableSamplers) != int(b.DescriptorCount) {
			return errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
				Path("pBindings", fmt.Sprintf("binding %d", b.Binding), "pImmutableSamplers").
				Detail("%d samplers for %d descriptors", len(b.ImmutableSamplers), b.DescriptorCount).
				Build()
		}
		var err error
		if samplers, err = s.U64s(handleValues(b.ImmutableSamplers)); err != nil {
			return err
		}
	}
	w.U32("binding", b.Binding)
	w.U32("descriptorType", b.DescriptorType)
	w.U32("descriptorCount", b.DescriptorCount)
	w.U32("stageFlags", b.StageFlags)
	w.Ptr("pImmutableSamplers", samplers)
	return nil
}

type DescriptorSetLayoutCreateInfo struct {
	Flags    uint32
	Bindings []DescriptorSetLayoutBinding
}

func (c *DescriptorSetLayoutCreateInfo) Schema() *layout.Struct {
	return abi.DescriptorSetLayoutCreateInfo
}

func (c *DescriptorSetLayoutCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	bindings, n, err := marshal.ConvertSlice(s, c.Bindings)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeDescriptorSetLayoutCreateInfo))
	w.U32("flags", c.Flags)
	w.U32("bindingCount", n)
	w.Ptr("pBindings", bindings.Addr())
	return nil
}

type DescriptorSetLayout struct {
	object
	device *Device
}

func (d *Device) CreateDescriptorSetLayout(info *DescriptorSetLayoutCreateInfo) (*DescriptorSetLayout, error) {
	ref, parent, err := createChild(d, "vkCreateDescriptorSetLayout", "VkDescriptorSetLayout", info,
		d.table.CreateDescriptorSetLayout, d.table.DestroyDescriptorSetLayout)
	if err != nil {
		return nil, err
	}
	return &DescriptorSetLayout{object: object{ref: ref}, device: parent}, nil
}

func (l *DescriptorSetLayout) Clone() (*DescriptorSetLayout, error) {
	ref, err := l.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *l
	c.ref = ref
	return &c, nil
}

type DescriptorPoolSize struct {
	Type            uint32
	DescriptorCount uint32
}

func (p *DescriptorPoolSize) Schema() *layout.Struct { return abi.DescriptorPoolSize }

func (p *DescriptorPoolSize) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	w.U32("type", p.Type)
	w.U32("descriptorCount", p.DescriptorCount)
	return nil
}

type DescriptorPoolCreateInfo struct {
	// Flags may include abi.DescriptorPoolCreateFreeDescriptorSet, which
	// lets released sets return to the pool individually.
	Flags     uint32
	MaxSets   uint32
	PoolSizes []DescriptorPoolSize
}

func (c *DescriptorPoolCreateInfo) Schema() *layout.Struct { return abi.DescriptorPoolCreateInfo }

func (c *DescriptorPoolCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	sizes, n, err := marshal.ConvertSlice(s, c.PoolSizes)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeDescriptorPoolCreateInfo))
	w.U32("flags", c.Flags)
	w.U32("maxSets", c.MaxSets)
	w.U32("poolSizeCount", n)
	w.Ptr("pPoolSizes", sizes.Addr())
	return nil
}

// poolState is shared by every reference to one pool.
type poolState struct {
	flags uint32
	// generation changes on every reset; sets from an older generation
	// were already freed by the reset.
	generation atomic.Uint64
}

type DescriptorPool struct {
	object
	device *Device
	state  *poolState
}

func (d *Device) CreateDescriptorPool(info *DescriptorPoolCreateInfo) (*DescriptorPool, error) {
	ref, parent, err := createChild(d, "vkCreateDescriptorPool", "VkDescriptorPool", info,
		d.table.CreateDescriptorPool, d.table.DestroyDescriptorPool)
	if err != nil {
		return nil, err
	}
	return &DescriptorPool{object: object{ref: ref}, device: parent, state: &poolState{flags: info.Flags}}, nil
}

func (p *DescriptorPool) Clone() (*DescriptorPool, error) {
	ref, err := p.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *p
	c.ref = ref
	return &c, nil
}

// FreesIndividually reports whether released sets are returned to the pool.
func (p *DescriptorPool) FreesIndividually() bool {
	return p.state.flags&abi.DescriptorPoolCreateFreeDescriptorSet != 0
}

// Reset returns every set allocated from the pool to it. Sets still
// referenced become invalid; releasing them later does nothing native.
func (p *DescriptorPool) Reset() error {
	h, err := p.raw()
	if err != nil {
		return err
	}
	dev, err := p.device.raw()
	if err != nil {
		return err
	}
	if _, err := native("vkResetDescriptorPool", p.device.table.ResetDescriptorPool(dev, h, 0)); err != nil {
		return err
	}
	p.state.generation.Add(1)
	return nil
}

// DescriptorSet is allocated from a pool and holds a reference on it.
// Sets cannot be destroyed explicitly; the last release frees the set
// only if the pool was created with the free-descriptor-set flag.
type DescriptorSet struct {
	object
	pool *DescriptorPool
}

type descriptorSetAllocateInfo struct {
	pool    uint64
	layouts []uint64
}

func (a *descriptorSetAllocateInfo) Schema() *layout.Struct { return abi.DescriptorSetAllocateInfo }

func (a *descriptorSetAllocateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	layouts, err := s.U64s(a.layouts)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeDescriptorSetAllocateInfo))
	w.Handle("descriptorPool", a.pool)
	w.Count("descriptorSetCount", len(a.layouts))
	w.Ptr("pSetLayouts", layouts)
	return nil
}

// AllocateDescriptorSets allocates one set per layout. Allocation is
// all-or-nothing.
func (p *DescriptorPool) AllocateDescriptorSets(layouts []*DescriptorSetLayout) ([]*DescriptorSet, error) {
	pool, err := p.raw()
	if err != nil {
		return nil, err
	}
	dev, err := p.device.raw()
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return []*DescriptorSet{}, nil
	}
	info := &descriptorSetAllocateInfo{pool: pool, layouts: make([]uint64, len(layouts))}
	for i, l := range layouts {
		if l == nil {
			return nil, errors.NilPointer(errors.PhaseMarshal, []string{fmt.Sprintf("pSetLayouts[%d]", i)}, "*vk.DescriptorSetLayout")
		}
		if info.layouts[i], err = l.raw(); err != nil {
			return nil, err
		}
	}

	e := p.device.env
	s := e.scope()
	defer s.Close()
	pInfo, err := marshal.Convert(s, info)
	if err != nil {
		return nil, err
	}
	out, err := s.OutArray(abi.NonDispatchableHandle, len(layouts))
	if err != nil {
		return nil, err
	}

	// Each set holds its own pool reference. They are taken before the
	// call so that every native set gets wrapped once it exists.
	parents := make([]*DescriptorPool, len(layouts))
	for i := range parents {
		if parents[i], err = p.Clone(); err != nil {
			for _, parent := range parents[:i] {
				_ = parent.Release()
			}
			return nil, err
		}
	}
	releaseParents := func() {
		for _, parent := range parents {
			_ = parent.Release()
		}
	}

	if _, err := native("vkAllocateDescriptorSets", p.device.table.AllocateDescriptorSets(dev, pInfo.Addr(), out)); err != nil {
		releaseParents()
		return nil, err
	}
	handles, err := marshal.ReadU64s(e.space, out, len(layouts))
	if err != nil {
		releaseParents()
		return nil, err
	}

	sets := make([]*DescriptorSet, len(handles))
	for i, h := range handles {
		parent := parents[i]
		var destroy handle.DestroyFunc
		if p.FreesIndividually() {
			destroy = parent.freeSet(p.state.generation.Load())
		}
		ref := e.wrap(h, handle.Options{
			ObjectType:     "VkDescriptorSet",
			Parent:         parent.ref,
			Destroy:        destroy,
			NotDestroyable: true,
		})
		sets[i] = &DescriptorSet{object: object{ref: ref}, pool: parent}
	}
	return sets, nil
}

// freeSet returns the destroy func of a set allocated in generation gen.
// p must be the set's own reference on the pool.
func (p *DescriptorPool) freeSet(gen uint64) handle.DestroyFunc {
	return func(h handle.Handle) error {
		if p.state.generation.Load() != gen {
			p.device.env.log.Debug("descriptor set already freed by pool reset", zap.Stringer("handle", h))
			return nil
		}
		pool := uint64(p.ref.Handle())
		dev := uint64(p.device.ref.Handle())
		s := p.device.env.scope()
		defer s.Close()
		pSets, err := s.U64s([]uint64{uint64(h)})
		if err != nil {
			return err
		}
		_, err = native("vkFreeDescriptorSets", p.device.table.FreeDescriptorSets(dev, pool, 1, pSets))
		return err
	}
}

func (ds *DescriptorSet) Clone() (*DescriptorSet, error) {
	ref, err := ds.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *ds
	c.ref = ref
	return &c, nil
}

func handleValues(hs []handle.Handle) []uint64 {
	out := make([]uint64, len(hs))
	for i, h := range hs {
		out[i] = uint64(h)
	}
	return out
}
