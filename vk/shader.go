package vk

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/errors"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
)

type ShaderModuleCreateInfo struct {
	Flags uint32
	// Code is SPIR-V, one 32-bit word per element.
	Code []uint32
}

func (c *ShaderModuleCreateInfo) Schema() *layout.Struct { return abi.ShaderModuleCreateInfo }

func (c *ShaderModuleCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	if len(c.Code) == 0 {
		return errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Path("pCode").
			NativeType(abi.ShaderModuleCreateInfo.Name).
			Detail("shader code is empty").
			Build()
	}
	code, err := s.U32s(c.Code)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeShaderModuleCreateInfo))
	w.U32("flags", c.Flags)
	w.Size("codeSize", 4*uint64(len(c.Code)))
	w.Ptr("pCode", code)
	return nil
}

type ShaderModule struct {
	object
	device *Device
}

// CreateShaderModule creates a shader module from SPIR-V words.
func (d *Device) CreateShaderModule(code []uint32) (*ShaderModule, error) {
	ref, parent, err := createChild(d, "vkCreateShaderModule", "VkShaderModule", &ShaderModuleCreateInfo{Code: code},
		d.table.CreateShaderModule, d.table.DestroyShaderModule)
	if err != nil {
		return nil, err
	}
	return &ShaderModule{object: object{ref: ref}, device: parent}, nil
}

func (m *ShaderModule) Clone() (*ShaderModule, error) {
	ref, err := m.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *m
	c.ref = ref
	return &c, nil
}
