package vk

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/enumerate"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
	"go.uber.org/zap"
)

type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	APIVersion         abi.Version
}

func (a *ApplicationInfo) Schema() *layout.Struct { return abi.ApplicationInfo }

func (a *ApplicationInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	name, err := s.OptionalCString([]string{"pApplicationInfo", "pApplicationName"}, a.ApplicationName)
	if err != nil {
		return err
	}
	engine, err := s.OptionalCString([]string{"pApplicationInfo", "pEngineName"}, a.EngineName)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeApplicationInfo))
	w.Ptr("pApplicationName", name)
	w.U32("applicationVersion", a.ApplicationVersion)
	w.Ptr("pEngineName", engine)
	w.U32("engineVersion", a.EngineVersion)
	w.U32("apiVersion", uint32(a.APIVersion))
	return nil
}

type InstanceCreateInfo struct {
	ApplicationInfo       *ApplicationInfo
	EnabledLayerNames     []string
	EnabledExtensionNames []string
	// Next is linked into pNext in order, e.g. *ValidationFeatures.
	Next []marshal.Extension
}

func (c *InstanceCreateInfo) Schema() *layout.Struct { return abi.InstanceCreateInfo }

func (c *InstanceCreateInfo) Lower(s *marshal.Scope, w *marshal.Writer) error {
	next, err := s.Chain(c.Next, 0)
	if err != nil {
		return err
	}
	app, err := marshal.ConvertOptional(s, c.ApplicationInfo)
	if err != nil {
		return err
	}
	layers, err := s.CStrings([]string{"ppEnabledLayerNames"}, c.EnabledLayerNames)
	if err != nil {
		return err
	}
	exts, err := s.CStrings([]string{"ppEnabledExtensionNames"}, c.EnabledExtensionNames)
	if err != nil {
		return err
	}
	w.U32("sType", uint32(abi.StructureTypeInstanceCreateInfo))
	w.Ptr("pNext", next)
	w.Ptr("pApplicationInfo", app.Addr())
	w.Count("enabledLayerCount", len(c.EnabledLayerNames))
	w.Ptr("ppEnabledLayerNames", layers)
	w.Count("enabledExtensionCount", len(c.EnabledExtensionNames))
	w.Ptr("ppEnabledExtensionNames", exts)
	return nil
}

// ValidationFeatures enables or disables validation layer features.
// It extends InstanceCreateInfo.
type ValidationFeatures struct {
	Enabled  []uint32
	Disabled []uint32
}

func (v *ValidationFeatures) Schema() *layout.Struct { return abi.ValidationFeatures }

func (v *ValidationFeatures) StructureType() uint32 {
	return uint32(abi.StructureTypeValidationFeaturesEXT)
}

func (v *ValidationFeatures) Lower(s *marshal.Scope, w *marshal.Writer) error {
	enabled, err := s.U32s(v.Enabled)
	if err != nil {
		return err
	}
	disabled, err := s.U32s(v.Disabled)
	if err != nil {
		return err
	}
	w.Count("enabledValidationFeatureCount", len(v.Enabled))
	w.Ptr("pEnabledValidationFeatures", enabled)
	w.Count("disabledValidationFeatureCount", len(v.Disabled))
	w.Ptr("pDisabledValidationFeatures", disabled)
	return nil
}

// Instance is the top-level context.
type Instance struct {
	object
	env   *env
	table *dispatch.InstanceTable
}

// CreateInstance creates an instance through loader.
func CreateInstance(loader dispatch.Loader, info *InstanceCreateInfo, opts Options) (*Instance, error) {
	entry, err := loader.Entry()
	if err != nil {
		return nil, err
	}
	e := newEnv(loader, opts)

	s := e.scope()
	defer s.Close()
	pInfo, err := marshal.Convert(s, info)
	if err != nil {
		return nil, err
	}
	pAllocator, err := e.allocator(s)
	if err != nil {
		return nil, err
	}
	out, err := s.Out(abi.DispatchableHandle)
	if err != nil {
		return nil, err
	}
	if _, err := native("vkCreateInstance", entry.CreateInstance(pInfo.Addr(), pAllocator, out)); err != nil {
		return nil, err
	}
	h, err := marshal.ReadPtr(e.space, e.space.PointerSize(), out)
	if err != nil {
		return nil, err
	}

	table, err := loader.Instance(h)
	if err != nil {
		// The native instance leaks: destroying it needs this table.
		e.log.Error("instance created but its functions could not be resolved",
			zap.Stringer("handle", handle.Handle(h)), zap.Error(err))
		return nil, err
	}

	inst := &Instance{env: e, table: table}
	inst.ref = e.wrap(h, handle.Options{
		ObjectType: "VkInstance",
		Destroy: func(h handle.Handle) error {
			return e.destroyCall(func(pAllocator uint64) {
				table.DestroyInstance(uint64(h), pAllocator)
			})
		},
	})
	return inst, nil
}

// Clone returns a new reference to the instance.
func (i *Instance) Clone() (*Instance, error) {
	ref, err := i.cloneRef()
	if err != nil {
		return nil, err
	}
	c := *i
	c.ref = ref
	return &c, nil
}

// EnumeratePhysicalDevices lists the devices available to the instance.
// Each one holds a reference on the instance until released.
func (i *Instance) EnumeratePhysicalDevices() ([]*PhysicalDevice, error) {
	h, err := i.raw()
	if err != nil {
		return nil, err
	}
	handles, err := enumerate.Handles(i.env.query("vkEnumeratePhysicalDevices", func(pCount, pData uint64) result.Code {
		return i.table.EnumeratePhysicalDevices(h, pCount, pData)
	}), abi.DispatchableHandle)
	if err != nil {
		return nil, err
	}

	out := make([]*PhysicalDevice, 0, len(handles))
	for _, pd := range handles {
		parent, err := i.Clone()
		if err != nil {
			for _, p := range out {
				p.Release()
			}
			return nil, err
		}
		ref := i.env.wrap(pd, handle.Options{ObjectType: "VkPhysicalDevice", Parent: parent.ref, Borrowed: true})
		out = append(out, &PhysicalDevice{object: object{ref: ref}, instance: parent})
	}
	return out, nil
}
