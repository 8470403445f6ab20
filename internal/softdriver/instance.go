package softdriver

import (
	"slices"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

func (d *Driver) instanceTable() *dispatch.InstanceTable {
	return &dispatch.InstanceTable{
		DestroyInstance:                        d.destroyInstance,
		EnumeratePhysicalDevices:               d.enumeratePhysicalDevices,
		GetPhysicalDeviceProperties:            d.getPhysicalDeviceProperties,
		GetPhysicalDeviceFeatures:              d.getPhysicalDeviceFeatures,
		GetPhysicalDeviceQueueFamilyProperties: d.getPhysicalDeviceQueueFamilyProperties,
		EnumerateDeviceExtensionProperties:     d.enumerateDeviceExtensionProperties,
		CreateDevice:                           d.createDevice,
	}
}

func (d *Driver) destroyInstance(instance, pAllocator uint64) {
	const fn = "vkDestroyInstance"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	d.destroy(fn, TypeInstance, instance, 0, pAllocator)
}

func (d *Driver) physicalDevices(instance uint64) []uint64 {
	var out []uint64
	for _, c := range d.objects[instance].children {
		if d.objects[c].kind == TypePhysicalDevice {
			out = append(out, c)
		}
	}
	return out
}

func (d *Driver) enumeratePhysicalDevices(instance, pCount, pDevices uint64) result.Code {
	const fn = "vkEnumeratePhysicalDevices"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	if _, ok := d.lookup(fn, TypeInstance, instance); !ok {
		return result.KindValidationFailed.Code()
	}
	if pDevices != 0 && d.takeGrow(fn) && len(d.cfg.PhysicalDevices) > 0 {
		pd := d.cfg.PhysicalDevices[0].clone()
		pd.Name = d.grownName(pd.Name)
		d.addPhysicalDevice(instance, pd)
	}
	devices := d.physicalDevices(instance)
	ptrSize := d.space.PointerSize()
	return d.fill(fn, pCount, pDevices, len(devices), ptrSize, func(i int, addr uint64) error {
		return marshal.WritePtr(d.space, ptrSize, addr, devices[i])
	})
}

func (d *Driver) getPhysicalDeviceProperties(physicalDevice, pProperties uint64) {
	const fn = "vkGetPhysicalDeviceProperties"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	o, ok := d.lookup(fn, TypePhysicalDevice, physicalDevice)
	if !ok {
		return
	}
	pd := o.physical
	w := marshal.NewWriter(d.space, d.calc, abi.PhysicalDeviceProperties, pProperties)
	w.U32("apiVersion", uint32(pd.APIVersion))
	w.U32("driverVersion", pd.DriverVersion)
	w.U32("vendorID", pd.VendorID)
	w.U32("deviceID", pd.DeviceID)
	w.U32("deviceType", pd.Type)
	w.Text("deviceName", pd.Name)
	uuid := make([]byte, abi.UUIDSize)
	uuid[0] = byte(pd.DeviceID)
	uuid[abi.UUIDSize-1] = byte(physicalDevice >> 4)
	w.Bytes("pipelineCacheUUID", uuid)
	w.Inline("sparseProperties").U32("residencyNonResidentStrict", abi.False)
	if err := w.Err(); err != nil {
		d.violation(fn, "write properties: %v", err)
	}
}

func (d *Driver) getPhysicalDeviceFeatures(physicalDevice, pFeatures uint64) {
	const fn = "vkGetPhysicalDeviceFeatures"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	o, ok := d.lookup(fn, TypePhysicalDevice, physicalDevice)
	if !ok {
		return
	}
	w := marshal.NewWriter(d.space, d.calc, abi.PhysicalDeviceFeatures, pFeatures)
	for _, name := range abi.FeatureNames {
		w.Bool32(name, slices.Contains(o.physical.Features, name))
	}
	if err := w.Err(); err != nil {
		d.violation(fn, "write features: %v", err)
	}
}

func (d *Driver) getPhysicalDeviceQueueFamilyProperties(physicalDevice, pCount, pProperties uint64) {
	const fn = "vkGetPhysicalDeviceQueueFamilyProperties"
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enter(fn)
	o, ok := d.lookup(fn, TypePhysicalDevice, physicalDevice)
	if !ok {
		return
	}
	families := o.physical.QueueFamilies
	d.fill(fn, pCount, pProperties, len(families), d.stride(abi.QueueFamilyProperties), func(i int, addr uint64) error {
		w := marshal.NewWriter(d.space, d.calc, abi.QueueFamilyProperties, addr)
		w.U32("queueFlags", families[i].Flags)
		w.U32("queueCount", families[i].Count)
		w.U32("timestampValidBits", families[i].TimestampValidBits)
		g := w.Inline("minImageTransferGranularity")
		g.U32("width", 1)
		g.U32("height", 1)
		g.U32("depth", 1)
		return w.Err()
	})
}

func (d *Driver) enumerateDeviceExtensionProperties(physicalDevice, pLayerName, pCount, pProperties uint64) result.Code {
	const fn = "vkEnumerateDeviceExtensionProperties"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	o, ok := d.lookup(fn, TypePhysicalDevice, physicalDevice)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	layerName, err := marshal.ReadCString(d.space, pLayerName)
	if err != nil {
		return d.violation(fn, "layer name: %v", err)
	}
	if layerName != "" {
		if _, ok := d.layer(layerName); !ok {
			return result.KindLayerNotPresent.Code()
		}
		return d.writeExtensions(fn, pCount, pProperties, nil)
	}
	if pProperties != 0 && d.takeGrow(fn) {
		o.physical.Extensions = append(o.physical.Extensions, Extension{Name: d.grownName("VK_KHR"), SpecVersion: 1})
	}
	return d.writeExtensions(fn, pCount, pProperties, o.physical.Extensions)
}

func (d *Driver) createDevice(physicalDevice, pCreateInfo, pAllocator, pDevice uint64) result.Code {
	const fn = "vkCreateDevice"
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, failed := d.enter(fn); failed {
		return code
	}
	pdo, ok := d.lookup(fn, TypePhysicalDevice, physicalDevice)
	if !ok {
		return result.KindValidationFailed.Code()
	}
	pd := pdo.physical
	r, ok := d.reader(fn, abi.DeviceCreateInfo, pCreateInfo, abi.StructureTypeDeviceCreateInfo)
	if !ok {
		return result.KindValidationFailed.Code()
	}

	rec := DeviceRecord{PhysicalDevice: physicalDevice}
	var err error
	if rec.Allocator, err = d.readAllocator(pAllocator); err != nil {
		return d.violation(fn, "allocation callbacks: %v", err)
	}

	nq := int(r.U32("queueCreateInfoCount"))
	pQueues := r.Ptr("pQueueCreateInfos")
	if nq == 0 || pQueues == 0 {
		return d.violation(fn, "at least one queue must be requested")
	}
	requested := make(map[uint32]bool)
	for i := 0; i < nq; i++ {
		q := marshal.Element(d.space, d.calc, abi.DeviceQueueCreateInfo, pQueues, i)
		if st := q.U32("sType"); q.Err() == nil && st != uint32(abi.StructureTypeDeviceQueueCreateInfo) {
			return d.violation(fn, "queue create info %d has sType %d", i, st)
		}
		family := q.U32("queueFamilyIndex")
		count := q.U32("queueCount")
		prios, err := marshal.ReadF32s(d.space, q.Ptr("pQueuePriorities"), int(count))
		if err != nil {
			return d.violation(fn, "queue priorities: %v", err)
		}
		if err := q.Err(); err != nil {
			return d.violation(fn, "queue create info %d: %v", i, err)
		}
		if int(family) >= len(pd.QueueFamilies) || count == 0 || count > pd.QueueFamilies[family].Count {
			return d.violation(fn, "queue family %d cannot provide %d queues", family, count)
		}
		if requested[family] {
			return d.violation(fn, "queue family %d requested twice", family)
		}
		requested[family] = true
		for _, p := range prios {
			if p < 0 || p > 1 {
				return d.violation(fn, "queue priority %v outside [0, 1]", p)
			}
		}
		rec.Queues = append(rec.Queues, QueueRequest{Family: family, Priorities: prios})
	}

	if rec.Extensions, err = marshal.ReadCStrings(d.space, d.space.PointerSize(), r.Ptr("ppEnabledExtensionNames"), int(r.U32("enabledExtensionCount"))); err != nil {
		return d.violation(fn, "extension names: %v", err)
	}
	for _, name := range rec.Extensions {
		if !hasExtension(pd.Extensions, name) {
			return result.KindExtensionNotPresent.Code()
		}
	}

	pFeatures := r.Ptr("pEnabledFeatures")
	if pFeatures != 0 {
		f := marshal.NewReader(d.space, d.calc, abi.PhysicalDeviceFeatures, pFeatures)
		rec.Features = d.readFeatures(f)
		if err := f.Err(); err != nil {
			return d.violation(fn, "enabled features: %v", err)
		}
	}

	links, err := d.chain(r.Ptr("pNext"))
	if err != nil {
		return d.violation(fn, "pNext: %v", err)
	}
	for _, l := range links {
		rec.Chain = append(rec.Chain, l.SType)
		var ext *marshal.Reader
		switch abi.StructureType(l.SType) {
		case abi.StructureTypePhysicalDeviceFeatures2:
			if pFeatures != 0 {
				return d.violation(fn, "pEnabledFeatures must be null when VkPhysicalDeviceFeatures2 is chained")
			}
			ext = marshal.NewReader(d.space, d.calc, abi.PhysicalDeviceFeatures2, l.Addr)
			rec.Features = d.readFeatures(ext.Inline("features"))
			rec.FeaturesViaChain = true
		case abi.StructureTypePhysicalDeviceTimelineSemaphoreFeatures:
			ext = marshal.NewReader(d.space, d.calc, abi.PhysicalDeviceTimelineSemaphoreFeatures, l.Addr)
			rec.TimelineSemaphore = ext.Bool32("timelineSemaphore")
		case abi.StructureTypePhysicalDeviceBufferDeviceAddressFeatures:
			ext = marshal.NewReader(d.space, d.calc, abi.PhysicalDeviceBufferDeviceAddressFeatures, l.Addr)
			rec.BufferDeviceAddress = ext.Bool32("bufferDeviceAddress")
		}
		if ext != nil && ext.Err() != nil {
			return d.violation(fn, "pNext %d: %v", l.SType, ext.Err())
		}
	}
	if err := r.Err(); err != nil {
		return d.violation(fn, "create info: %v", err)
	}
	for _, f := range rec.Features {
		if !slices.Contains(pd.Features, f) {
			return result.KindFeatureNotPresent.Code()
		}
	}

	dev := d.add(TypeDevice, pdo.parent, &object{record: rec, allocator: rec.Allocator, queues: make(map[[2]uint32]uint64)})
	devObj := d.objects[dev]
	for _, q := range rec.Queues {
		for i := range q.Priorities {
			devObj.queues[[2]uint32{q.Family, uint32(i)}] = d.add(TypeQueue, dev, &object{})
		}
	}
	if code := d.writeHandle(fn, pDevice, dev, true); code != result.Success {
		d.remove(dev)
		return code
	}
	return result.Success
}

// readFeatures returns the names of every enabled feature. Decode errors
// stay on r for the caller.
func (d *Driver) readFeatures(r *marshal.Reader) []string {
	var out []string
	for _, name := range abi.FeatureNames {
		if r.Bool32(name) {
			out = append(out, name)
		}
	}
	return out
}
