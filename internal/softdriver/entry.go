package softdriver

import (
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

func (d *Driver) entryTable() *dispatch.EntryTable {
	return &dispatch.EntryTable{
		EnumerateInstanceVersion:             d.enumerateInstanceVersion,
		EnumerateInstanceLayerProperties:     d.enumerateInstanceLayerProperties,
		EnumerateInstanceExtensionProperties: d.enumerateInstanceExtensionProperties,
		CreateInstance:                       d.createInstance,
	}
}

func (d *Driver) enumerateInstanceVersion(pAPIVersion uint64) result.Code {
	const fn = "vkEnumerateInstanceVersion"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if err := d.space.WriteU32(pAPIVersion, uint32(d.cfg.APIVersion)); err != nil {
		return d.violation(fn, "write version: %v", err)
	}
	return result.Success
}

func (d *Driver) enumerateInstanceLayerProperties(pCount, pProperties uint64) result.Code {
	const fn = "vkEnumerateInstanceLayerProperties"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if pProperties != 0 && d.takeGrow(fn) {
		d.cfg.Layers = append(d.cfg.Layers, Layer{
			Name:        d.grownName("VK_LAYER"),
			Description: "late layer",
			SpecVersion: uint32(d.cfg.APIVersion),
		})
	}
	layers := d.cfg.Layers
	return d.fill(fn, pCount, pProperties, len(layers), d.stride(abi.LayerProperties), func(i int, addr uint64) error {
		w := marshal.NewWriter(d.space, d.calc, abi.LayerProperties, addr)
		w.Text("layerName", layers[i].Name)
		w.U32("specVersion", layers[i].SpecVersion)
		w.U32("implementationVersion", layers[i].ImplementationVersion)
		w.Text("description", layers[i].Description)
		return w.Err()
	})
}

func (d *Driver) enumerateInstanceExtensionProperties(pLayerName, pCount, pProperties uint64) result.Code {
	const fn = "vkEnumerateInstanceExtensionProperties"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	layerName, err := marshal.ReadCString(d.space, pLayerName)
	if err != nil {
		return d.violation(fn, "layer name: %v", err)
	}
	if layerName != "" {
		layer, ok := d.layer(layerName)
		if !ok {
			return result.KindLayerNotPresent.Code()
		}
		return d.writeExtensions(fn, pCount, pProperties, layer.Extensions)
	}
	if pProperties != 0 && d.takeGrow(fn) {
		d.cfg.InstanceExtensions = append(d.cfg.InstanceExtensions, Extension{Name: d.grownName("VK_EXT"), SpecVersion: 1})
	}
	return d.writeExtensions(fn, pCount, pProperties, d.cfg.InstanceExtensions)
}

func (d *Driver) layer(name string) (Layer, bool) {
	for _, l := range d.cfg.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

func (d *Driver) createInstance(pCreateInfo, pAllocator, pInstance uint64) result.Code {
	const fn = "vkCreateInstance"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}

	r, ok := d.reader(fn, abi.InstanceCreateInfo, pCreateInfo, abi.StructureTypeInstanceCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	var rec InstanceRecord
	ptrSize := d.space.PointerSize()

	if pApp := r.Ptr("pApplicationInfo"); pApp != 0 {
		app, ok := d.reader(fn, abi.ApplicationInfo, pApp, abi.StructureTypeApplicationInfo)
		if !ok {
			return result.KindValidationFailed.Code()
		}
		var err error
		rec.HasApplicationInfo = true
		if rec.ApplicationName, err = marshal.ReadCString(d.space, app.Ptr("pApplicationName")); err != nil {
			return d.violation(fn, "application name: %v", err)
		}
		if rec.EngineName, err = marshal.ReadCString(d.space, app.Ptr("pEngineName")); err != nil {
			return d.violation(fn, "engine name: %v", err)
		}
		rec.ApplicationVersion = app.U32("applicationVersion")
		rec.EngineVersion = app.U32("engineVersion")
		rec.APIVersion = app.U32("apiVersion")
		if err := app.Err(); err != nil {
			return d.violation(fn, "application info: %v", err)
		}
	}

	var err error
	if rec.Layers, err = marshal.ReadCStrings(d.space, ptrSize, r.Ptr("ppEnabledLayerNames"), int(r.U32("enabledLayerCount"))); err != nil {
		return d.violation(fn, "layer names: %v", err)
	}
	if rec.Extensions, err = marshal.ReadCStrings(d.space, ptrSize, r.Ptr("ppEnabledExtensionNames"), int(r.U32("enabledExtensionCount"))); err != nil {
		return d.violation(fn, "extension names: %v", err)
	}
	if rec.Allocator, err = d.readAllocator(pAllocator); err != nil {
		return d.violation(fn, "allocation callbacks: %v", err)
	}
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}

	available := append([]Extension(nil), d.cfg.InstanceExtensions...)
	for _, name := range rec.Layers {
		layer, ok := d.layer(name)
		if !ok {
			return result.KindLayerNotPresent.Code()
		}
		available = append(available, layer.Extensions...)
	}
	for _, name := range rec.Extensions {
		if !hasExtension(available, name) {
			return result.KindExtensionNotPresent.Code()
		}
	}

	links, err := d.chain(r.Ptr("pNext"))
	if err != nil {
		return d.violation(fn, "pNext: %v", err)
	}
	for _, l := range links {
		rec.Chain = append(rec.Chain, l.SType)
		if l.SType != uint32(abi.StructureTypeValidationFeaturesEXT) {
			continue
		}
		v := marshal.NewReader(d.space, d.calc, abi.ValidationFeatures, l.Addr)
		if rec.ValidationEnabled, err = marshal.ReadU32s(d.space, v.Ptr("pEnabledValidationFeatures"), int(v.U32("enabledValidationFeatureCount"))); err != nil {
			return d.violation(fn, "validation features: %v", err)
		}
		if rec.ValidationDisabled, err = marshal.ReadU32s(d.space, v.Ptr("pDisabledValidationFeatures"), int(v.U32("disabledValidationFeatureCount"))); err != nil {
			return d.violation(fn, "validation features: %v", err)
		}
		if err := v.Err(); err != nil {
			return d.violation(fn, "validation features: %v", err)
		}
	}

	inst := d.add(TypeInstance, 0, &object{record: rec, allocator: rec.Allocator})
	for _, pd := range d.cfg.PhysicalDevices {
		d.addPhysicalDevice(inst, pd)
	}
	if code := d.writeHandle(fn, pInstance, inst, true); code != result.Success {
		d.remove(inst)
		return code
	}
	return result.Success
}

func (d *Driver) addPhysicalDevice(instance uint64, cfg PhysicalDevice) uint64 {
	pd := cfg.clone()
	return d.add(TypePhysicalDevice, instance, &object{physical: &pd})
}
