package vk

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/enumerate"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

type LayerProperties struct {
	LayerName             string
	SpecVersion           abi.Version
	ImplementationVersion uint32
	Description           string
}

type ExtensionProperties struct {
	ExtensionName string
	SpecVersion   uint32
}

func decodeLayer(r *marshal.Reader) (LayerProperties, error) {
	return LayerProperties{
		LayerName:             r.Text("layerName"),
		SpecVersion:           abi.Version(r.U32("specVersion")),
		ImplementationVersion: r.U32("implementationVersion"),
		Description:           r.Text("description"),
	}, nil
}

func decodeExtension(r *marshal.Reader) (ExtensionProperties, error) {
	return ExtensionProperties{
		ExtensionName: r.Text("extensionName"),
		SpecVersion:   r.U32("specVersion"),
	}, nil
}

func entry(loader dispatch.Loader) (*env, *dispatch.EntryTable, error) {
	table, err := loader.Entry()
	if err != nil {
		return nil, nil, err
	}
	return newEnv(loader, DefaultOptions()), table, nil
}

// EnumerateInstanceVersion returns the highest API version the loader supports.
func EnumerateInstanceVersion(loader dispatch.Loader) (abi.Version, error) {
	e, table, err := entry(loader)
	if err != nil {
		return 0, err
	}
	s := e.scope()
	defer s.Close()
	out, err := s.Out(layout.U32)
	if err != nil {
		return 0, err
	}
	if _, err := native("vkEnumerateInstanceVersion", table.EnumerateInstanceVersion(out)); err != nil {
		return 0, err
	}
	v, err := e.space.ReadU32(out)
	return abi.Version(v), err
}

func EnumerateInstanceLayerProperties(loader dispatch.Loader) ([]LayerProperties, error) {
	e, table, err := entry(loader)
	if err != nil {
		return nil, err
	}
	return enumerate.Structs(e.query("vkEnumerateInstanceLayerProperties", table.EnumerateInstanceLayerProperties),
		abi.LayerProperties, decodeLayer)
}

// EnumerateInstanceExtensionProperties lists instance extensions, either
// the implementation's own (layer == "") or those of one layer.
func EnumerateInstanceExtensionProperties(loader dispatch.Loader, layer string) ([]ExtensionProperties, error) {
	e, table, err := entry(loader)
	if err != nil {
		return nil, err
	}
	s := e.scope()
	defer s.Close()
	pLayer, err := s.OptionalCString([]string{"pLayerName"}, layer)
	if err != nil {
		return nil, err
	}
	return enumerate.Structs(e.query("vkEnumerateInstanceExtensionProperties", func(pCount, pData uint64) result.Code {
		return table.EnumerateInstanceExtensionProperties(pLayer, pCount, pData)
	}), abi.ExtensionProperties, decodeExtension)
}
