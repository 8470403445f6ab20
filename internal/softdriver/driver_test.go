package softdriver

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/enumerate"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/linmem"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
)

func newTestDriver(t *testing.T) (*Driver, *linmem.Space) {
	t.Helper()
	ctx := context.Background()
	space, err := linmem.New(ctx, linmem.DefaultConfig())
	if err != nil {
		t.Fatalf("linmem.New: %v", err)
	}
	t.Cleanup(func() { space.Close(ctx) })
	return New(space, DefaultConfig()), space
}

// createInstance builds a minimal VkInstanceCreateInfo and returns the
// new instance handle.
func createInstance(t *testing.T, d *Driver, layers []string) (uint64, result.Code) {
	t.Helper()
	s := marshal.NewScope(d.Space())
	defer s.Close()

	w, err := s.Struct(abi.InstanceCreateInfo)
	if err != nil {
		t.Fatal(err)
	}
	w.U32("sType", uint32(abi.StructureTypeInstanceCreateInfo))
	names, err := s.CStrings([]string{"ppEnabledLayerNames"}, layers)
	if err != nil {
		t.Fatal(err)
	}
	w.Count("enabledLayerCount", len(layers))
	w.Ptr("ppEnabledLayerNames", names)
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}
	out, err := s.Out(abi.DispatchableHandle)
	if err != nil {
		t.Fatal(err)
	}
	code := d.loader.EntryFuncs.CreateInstance(w.Addr(), 0, out)
	h, err := marshal.ReadPtr(d.Space(), d.Space().PointerSize(), out)
	if err != nil {
		t.Fatal(err)
	}
	return h, code
}

func TestLoaderTablesComplete(t *testing.T) {
	d, _ := newTestDriver(t)
	l := d.Loader()
	if _, err := l.Entry(); err != nil {
		t.Errorf("Entry: %v", err)
	}
	inst, err := l.Instance(1)
	if err != nil {
		t.Errorf("Instance: %v", err)
	}
	if _, err := l.Device(inst, 1); err != nil {
		t.Errorf("Device: %v", err)
	}
}

func TestEnumerateLayersGrowing(t *testing.T) {
	d, space := newTestDriver(t)
	d.GrowOnFill("vkEnumerateInstanceLayerProperties", 2)

	names, err := enumerate.Structs(enumerate.Query{
		Space: space,
		Call:  d.loader.EntryFuncs.EnumerateInstanceLayerProperties,
		Name:  "vkEnumerateInstanceLayerProperties",
	}, abi.LayerProperties, func(r *marshal.Reader) (string, error) {
		return r.Text("layerName"), nil
	})
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("got %d layers, want 3: %v", len(names), names)
	}
	if names[0] != "VK_LAYER_KHRONOS_validation" || !strings.HasPrefix(names[2], "VK_LAYER_grown_") {
		t.Errorf("unexpected layers %v", names)
	}
	if got := d.Calls("vkEnumerateInstanceLayerProperties"); got != 6 {
		t.Errorf("calls = %d, want 6", got)
	}
}

func TestCreateInstanceValidation(t *testing.T) {
	tests := []struct {
		name   string
		layers []string
		want   result.Code
	}{
		{"no layers", nil, result.Success},
		{"known layer", []string{"VK_LAYER_KHRONOS_validation"}, result.Success},
		{"unknown layer", []string{"VK_LAYER_missing"}, result.KindLayerNotPresent.Code()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDriver(t)
			h, code := createInstance(t, d, tt.layers)
			if code != tt.want {
				t.Fatalf("code = %v, want %v", code, tt.want)
			}
			if code != result.Success {
				if d.Live(TypeInstance) != 0 {
					t.Error("failed creation left an instance behind")
				}
				return
			}
			rec, ok := Record[InstanceRecord](d, h)
			if !ok {
				t.Fatal("no record for new instance")
			}
			if !slices.Equal(rec.Layers, tt.layers) {
				t.Errorf("layers = %v, want %v", rec.Layers, tt.layers)
			}
			if got := len(d.Handles(TypePhysicalDevice)); got != 1 {
				t.Errorf("physical devices = %d, want 1", got)
			}
		})
	}
}

func TestFailNextIsConsumed(t *testing.T) {
	d, _ := newTestDriver(t)
	d.FailNext("vkCreateInstance", result.KindInitializationFailed.Code())

	if _, code := createInstance(t, d, nil); code != result.KindInitializationFailed.Code() {
		t.Fatalf("first call: %v", code)
	}
	if _, code := createInstance(t, d, nil); code != result.Success {
		t.Fatalf("second call: %v", code)
	}
	if d.Calls("vkCreateInstance") != 2 {
		t.Errorf("calls = %d", d.Calls("vkCreateInstance"))
	}
}

func TestDestroyViolations(t *testing.T) {
	d, _ := newTestDriver(t)
	h, _ := createInstance(t, d, nil)

	d.loader.InstanceFuncs.DestroyInstance(h, 0)
	if v := d.Violations(); len(v) != 0 {
		t.Fatalf("clean destroy reported %v", v)
	}
	if d.Destroyed(TypeInstance) != 1 || d.Live("") != 0 || d.Live(TypePhysicalDevice) != 0 {
		t.Errorf("destroyed=%d live=%d", d.Destroyed(TypeInstance), d.Live(""))
	}

	d.loader.InstanceFuncs.DestroyInstance(h, 0)
	v := d.Violations()
	if len(v) != 1 || !strings.Contains(v[0], "not a live object") {
		t.Errorf("double destroy: %v", v)
	}
	if d.Destroyed(TypeInstance) != 1 {
		t.Error("double destroy was counted")
	}

	d.loader.InstanceFuncs.DestroyInstance(0, 0)
	if len(d.Violations()) != 1 {
		t.Error("destroying the null handle must be a no-op")
	}
}

func TestAllocatorMismatch(t *testing.T) {
	d, space := newTestDriver(t)
	h, _ := createInstance(t, d, nil)

	s := marshal.NewScope(space)
	defer s.Close()
	w, err := s.Struct(abi.AllocationCallbacks)
	if err != nil {
		t.Fatal(err)
	}
	w.Ptr("pUserData", 0x44)

	d.loader.InstanceFuncs.DestroyInstance(h, w.Addr())
	v := d.Violations()
	if len(v) != 1 || !strings.Contains(v[0], "allocation callbacks") {
		t.Errorf("violations = %v", v)
	}
}

func TestFenceStatus(t *testing.T) {
	d, space := newTestDriver(t)
	inst, _ := createInstance(t, d, nil)
	dev := createDevice(t, d, inst)

	s := marshal.NewScope(space)
	defer s.Close()
	w, _ := s.Struct(abi.FenceCreateInfo)
	w.U32("sType", uint32(abi.StructureTypeFenceCreateInfo))
	out, _ := s.Out(abi.NonDispatchableHandle)
	if code := d.loader.DeviceFuncs.CreateFence(dev, w.Addr(), 0, out); code != result.Success {
		t.Fatalf("CreateFence: %v", code)
	}
	fence, _ := space.ReadU64(out)

	if code := d.loader.DeviceFuncs.GetFenceStatus(dev, fence); code != result.NotReady {
		t.Errorf("unsignaled status = %v", code)
	}
	if code := d.loader.DeviceFuncs.WaitForFences(dev, 1, out, abi.True, 1000); code != result.Timeout {
		t.Errorf("wait = %v", code)
	}
	if d.LastWaitTimeout() != 1000 {
		t.Errorf("timeout = %d", d.LastWaitTimeout())
	}
	d.SignalFence(fence)
	if code := d.loader.DeviceFuncs.GetFenceStatus(dev, fence); code != result.Success {
		t.Errorf("signaled status = %v", code)
	}
	if code := d.loader.DeviceFuncs.ResetFences(dev, 1, out); code != result.Success {
		t.Fatalf("reset = %v", code)
	}
	if code := d.loader.DeviceFuncs.GetFenceStatus(dev, fence); code != result.NotReady {
		t.Errorf("status after reset = %v", code)
	}

	d.loader.DeviceFuncs.DestroyDevice(dev, 0)
	if v := d.Violations(); len(v) != 1 || !strings.Contains(v[0], "1 live children") {
		t.Errorf("destroying a device with a live fence: %v", v)
	}
}

func createDevice(t *testing.T, d *Driver, inst uint64) uint64 {
	t.Helper()
	space := d.Space()
	pds := d.Handles(TypePhysicalDevice)
	if len(pds) == 0 {
		t.Fatal("no physical device")
	}

	s := marshal.NewScope(space)
	defer s.Close()
	prios, _ := s.F32s([]float32{1})
	qbase, _ := s.Array(abi.DeviceQueueCreateInfo, 1)
	q := s.Element(abi.DeviceQueueCreateInfo, qbase, 0)
	q.U32("sType", uint32(abi.StructureTypeDeviceQueueCreateInfo))
	q.U32("queueCount", 1)
	q.Ptr("pQueuePriorities", prios)

	w, _ := s.Struct(abi.DeviceCreateInfo)
	w.U32("sType", uint32(abi.StructureTypeDeviceCreateInfo))
	w.U32("queueCreateInfoCount", 1)
	w.Ptr("pQueueCreateInfos", qbase)
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}
	out, _ := s.Out(abi.DispatchableHandle)
	if code := d.loader.InstanceFuncs.CreateDevice(pds[0], w.Addr(), 0, out); code != result.Success {
		t.Fatalf("CreateDevice: %v (%v)", code, d.Violations())
	}
	h, _ := marshal.ReadPtr(space, space.PointerSize(), out)
	return h
}

func TestComputePipelineBatchFault(t *testing.T) {
	d, space := newTestDriver(t)
	inst, _ := createInstance(t, d, nil)
	dev := createDevice(t, d, inst)

	s := marshal.NewScope(space)
	defer s.Close()

	code, _ := s.U32s([]uint32{abi.SPIRVMagic, 0x00010300})
	sm, _ := s.Struct(abi.ShaderModuleCreateInfo)
	sm.U32("sType", uint32(abi.StructureTypeShaderModuleCreateInfo))
	sm.Size("codeSize", 8)
	sm.Ptr("pCode", code)
	pModule, _ := s.Out(abi.NonDispatchableHandle)
	if c := d.loader.DeviceFuncs.CreateShaderModule(dev, sm.Addr(), 0, pModule); c != result.Success {
		t.Fatalf("CreateShaderModule: %v", c)
	}
	module, _ := space.ReadU64(pModule)

	pl, _ := s.Struct(abi.PipelineLayoutCreateInfo)
	pl.U32("sType", uint32(abi.StructureTypePipelineLayoutCreateInfo))
	pLayout, _ := s.Out(abi.NonDispatchableHandle)
	if c := d.loader.DeviceFuncs.CreatePipelineLayout(dev, pl.Addr(), 0, pLayout); c != result.Success {
		t.Fatalf("CreatePipelineLayout: %v", c)
	}
	plh, _ := space.ReadU64(pLayout)

	name, _ := s.CString(nil, "main")
	base, _ := s.Array(abi.ComputePipelineCreateInfo, 3)
	for i := 0; i < 3; i++ {
		w := s.Element(abi.ComputePipelineCreateInfo, base, i)
		w.U32("sType", uint32(abi.StructureTypeComputePipelineCreateInfo))
		st := w.Inline("stage")
		st.U32("sType", uint32(abi.StructureTypePipelineShaderStageCreateInfo))
		st.U32("stage", abi.ShaderStageCompute)
		st.Handle("module", module)
		st.Ptr("pName", name)
		w.Handle("layout", plh)
		w.I32("basePipelineIndex", -1)
		if err := w.Err(); err != nil {
			t.Fatal(err)
		}
	}
	out, _ := s.OutArray(abi.NonDispatchableHandle, 3)

	d.FailBatchAt("vkCreateComputePipelines", 1, result.PipelineCompileRequired)
	if c := d.loader.DeviceFuncs.CreateComputePipelines(dev, 0, 3, base, 0, out); c != result.PipelineCompileRequired {
		t.Fatalf("code = %v", c)
	}
	handles, _ := marshal.ReadU64s(space, out, 3)
	if handles[0] == 0 || handles[1] != 0 || handles[2] == 0 {
		t.Errorf("handles = %#x", handles)
	}
	rec, ok := Record[PipelineRecord](d, handles[2])
	if !ok || rec.EntryPoint != "main" || rec.Module != module || rec.BasePipelineIndex != -1 {
		t.Errorf("record = %+v", rec)
	}
	if d.Live(TypePipeline) != 2 {
		t.Errorf("live pipelines = %d", d.Live(TypePipeline))
	}
}

func TestPhysicalDeviceQueries(t *testing.T) {
	d, space := newTestDriver(t)
	inst, _ := createInstance(t, d, nil)
	pd := d.Handles(TypePhysicalDevice)[0]

	s := marshal.NewScope(space)
	defer s.Close()
	calc := marshal.Layouts(space.PointerSize())
	props, _ := s.Out(layout.Inline(abi.PhysicalDeviceProperties))
	d.loader.InstanceFuncs.GetPhysicalDeviceProperties(pd, props)
	r := marshal.NewReader(space, calc, abi.PhysicalDeviceProperties, props)
	if got := r.Text("deviceName"); got != "Soft Compute Device" {
		t.Errorf("deviceName = %q", got)
	}
	if got := abi.Version(r.U32("apiVersion")); got.Minor() != 3 {
		t.Errorf("apiVersion = %v", got)
	}

	families, err := enumerate.Structs(enumerate.Query{
		Space: space,
		Call: func(pCount, pData uint64) result.Code {
			d.loader.InstanceFuncs.GetPhysicalDeviceQueueFamilyProperties(pd, pCount, pData)
			return result.Success
		},
		Name: "vkGetPhysicalDeviceQueueFamilyProperties",
	}, abi.QueueFamilyProperties, func(r *marshal.Reader) (uint32, error) {
		return r.U32("queueCount"), nil
	})
	if err != nil || !slices.Equal(families, []uint32{2, 1}) {
		t.Errorf("queue families = %v, %v", families, err)
	}

	d.loader.InstanceFuncs.DestroyInstance(inst, 0)
	if len(d.Violations()) != 0 {
		t.Errorf("violations: %v", d.Violations())
	}
}
