package softdriver

import (
	"fmt"
	"slices"
	"sync"

	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"github.com/wippyai/gpubind/result"
	"go.uber.org/zap"
)

// Object type names, as reported in violations and counters.
const (
	TypeInstance            = "VkInstance"
	TypePhysicalDevice      = "VkPhysicalDevice"
	TypeDevice              = "VkDevice"
	TypeQueue               = "VkQueue"
	TypeFence               = "VkFence"
	TypeShaderModule        = "VkShaderModule"
	TypeDescriptorSetLayout = "VkDescriptorSetLayout"
	TypePipelineLayout      = "VkPipelineLayout"
	TypeDescriptorPool      = "VkDescriptorPool"
	TypeDescriptorSet       = "VkDescriptorSet"
	TypePipeline            = "VkPipeline"
)

// Objects freed together with their parent rather than destroyed one by one.
var implicitChildren = map[string]bool{
	TypePhysicalDevice: true,
	TypeQueue:          true,
	TypeDescriptorSet:  true,
}

type object struct {
	kind      string
	parent    uint64
	allocator Allocator
	record    any

	// Per-kind runtime state.
	physical *PhysicalDevice
	children []uint64
	queues   map[[2]uint32]uint64
	sets     map[uint64]struct{}
}

type batchFault struct {
	index int
	code  result.Code
}

// Driver is a Go implementation of the dispatch tables.
type Driver struct {
	space gpubind.Space
	calc  *layout.Calculator

	mu         sync.Mutex
	cfg        Config
	next       uint64
	objects    map[uint64]*object
	calls      map[string]int
	destroyed  map[string]int
	violations []string

	failNext    map[string]result.Code
	failBatch   map[string]batchFault
	grow        map[string]int
	grown       int
	lastTimeout uint64

	loader *dispatch.Static
}

// New creates a driver that reads and writes native structures in space.
func New(space gpubind.Space, cfg Config) *Driver {
	d := &Driver{
		space:     space,
		calc:      marshal.Layouts(space.PointerSize()),
		cfg:       cfg.clone(),
		next:      0x1000,
		objects:   make(map[uint64]*object),
		calls:     make(map[string]int),
		destroyed: make(map[string]int),
		failNext:  make(map[string]result.Code),
		failBatch: make(map[string]batchFault),
		grow:      make(map[string]int),
	}
	d.loader = &dispatch.Static{
		Mem:           space,
		EntryFuncs:    d.entryTable(),
		InstanceFuncs: d.instanceTable(),
		DeviceFuncs:   d.deviceTable(),
	}
	return d
}

// Loader returns a loader serving this driver's tables.
func (d *Driver) Loader() dispatch.Loader { return d.loader }

func (d *Driver) Space() gpubind.Space { return d.space }

// FailNext makes the next call to function return code.
func (d *Driver) FailNext(function string, code result.Code) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[function] = code
}

// FailBatchAt makes element index of the next batched creation through
// function fail with code.
func (d *Driver) FailBatchAt(function string, index int, code result.Code) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failBatch[function] = batchFault{index: index, code: code}
}

// GrowOnFill adds one element to the collection function enumerates
// during each of its next n fill calls, after the count was reported.
func (d *Driver) GrowOnFill(function string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grow[function] = n
}

// SignalFence sets a fence to the signaled state.
func (d *Driver) SignalFence(fence uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.objects[fence]
	if !ok || o.kind != TypeFence {
		return false
	}
	o.record = FenceRecord{Signaled: true}
	return true
}

// Calls is the number of times function was called.
func (d *Driver) Calls(function string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[function]
}

// Destroyed is the number of objects of a type explicitly destroyed or freed.
func (d *Driver) Destroyed(objectType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[objectType]
}

// Live is the number of live objects of a type; "" counts every type
// except the implicitly freed ones.
func (d *Driver) Live(objectType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.objects {
		if objectType == "" && !implicitChildren[o.kind] || o.kind == objectType {
			n++
		}
	}
	return n
}

// Violations lists every API misuse the driver observed, in order.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.violations)
}

// LastWaitTimeout is the timeout passed to the latest vkWaitForFences.
func (d *Driver) LastWaitTimeout() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTimeout
}

// Handles returns the live handles of a type in ascending order.
func (d *Driver) Handles(objectType string) []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []uint64
	for h, o := range d.objects {
		if o.kind == objectType {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// Record returns the decoded creation record of a live object.
func Record[T any](d *Driver, h uint64) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	o, ok := d.objects[h]
	if !ok {
		return zero, false
	}
	r, ok := o.record.(T)
	return r, ok
}

// enter counts a call and consumes a pending FailNext fault.
// Callers hold d.mu.
func (d *Driver) enter(function string) (result.Code, bool) {
	d.calls[function]++
	Logger().Debug("driver call", zap.String("function", function))
	if code, ok := d.failNext[function]; ok {
		delete(d.failNext, function)
		return code, true
	}
	return result.Success, false
}

func (d *Driver) takeBatchFault(function string) (batchFault, bool) {
	f, ok := d.failBatch[function]
	if ok {
		delete(d.failBatch, function)
	}
	return f, ok
}

func (d *Driver) takeGrow(function string) bool {
	if d.grow[function] <= 0 {
		return false
	}
	d.grow[function]--
	d.grown++
	return true
}

// violation records misuse and returns the code a validating driver reports.
func (d *Driver) violation(function, format string, args ...any) result.Code {
	msg := function + ": " + fmt.Sprintf(format, args...)
	d.violations = append(d.violations, msg)
	Logger().Warn("driver violation", zap.String("function", function), zap.String("detail", msg))
	return result.KindValidationFailed.Code()
}

func (d *Driver) newHandle() uint64 {
	h := d.next
	d.next += 0x10
	return h
}

func (d *Driver) add(kind string, parent uint64, o *object) uint64 {
	h := d.newHandle()
	o.kind = kind
	o.parent = parent
	d.objects[h] = o
	if p, ok := d.objects[parent]; ok {
		p.children = append(p.children, h)
	}
	return h
}

// lookup returns a live object of the given kind.
func (d *Driver) lookup(function, kind string, h uint64) (*object, bool) {
	o, ok := d.objects[h]
	if !ok || o.kind != kind {
		d.violation(function, "%s %#x is not a live object", kind, h)
		return nil, false
	}
	return o, true
}

// owned returns a live object of kind whose parent is parent.
func (d *Driver) owned(function, kind string, h, parent uint64) (*object, bool) {
	o, ok := d.lookup(function, kind, h)
	if !ok {
		return nil, false
	}
	if o.parent != parent {
		d.violation(function, "%s %#x belongs to %#x, not %#x", kind, h, o.parent, parent)
		return nil, false
	}
	return o, true
}

// destroy removes an object, checking parent, children and allocator.
func (d *Driver) destroy(function, kind string, h, parent, pAllocator uint64) {
	if h == 0 {
		return
	}
	o, ok := d.owned(function, kind, h, parent)
	if !ok {
		return
	}
	if alloc, err := d.readAllocator(pAllocator); err != nil {
		d.violation(function, "allocation callbacks: %v", err)
	} else if alloc != o.allocator {
		d.violation(function, "allocation callbacks differ from creation")
	}
	if live := d.liveChildren(o); live > 0 {
		d.violation(function, "%s %#x destroyed with %d live children", kind, h, live)
	}
	d.remove(h)
	d.destroyed[kind]++
}

func (d *Driver) liveChildren(o *object) int {
	n := 0
	for _, c := range o.children {
		if co, ok := d.objects[c]; ok && !implicitChildren[co.kind] {
			n++
		}
	}
	return n
}

// remove deletes h and every implicitly freed child.
func (d *Driver) remove(h uint64) {
	o, ok := d.objects[h]
	if !ok {
		return
	}
	delete(d.objects, h)
	for _, c := range o.children {
		if co, ok := d.objects[c]; ok && implicitChildren[co.kind] {
			d.remove(c)
		}
	}
	if p, ok := d.objects[o.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c uint64) bool { return c == h })
		if p.sets != nil {
			delete(p.sets, h)
		}
	}
}

func (d *Driver) readAllocator(addr uint64) (Allocator, error) {
	if addr == 0 {
		return Allocator{}, nil
	}
	r := marshal.NewReader(d.space, d.calc, abi.AllocationCallbacks, addr)
	a := Allocator{
		UserData:           r.Ptr("pUserData"),
		Allocation:         r.Ptr("pfnAllocation"),
		Reallocation:       r.Ptr("pfnReallocation"),
		Free:               r.Ptr("pfnFree"),
		InternalAllocation: r.Ptr("pfnInternalAllocation"),
		InternalFree:       r.Ptr("pfnInternalFree"),
	}
	return a, r.Err()
}

// reader opens a structure and checks its sType.
func (d *Driver) reader(function string, st *layout.Struct, addr uint64, sType abi.StructureType) (*marshal.Reader, bool) {
	if addr == 0 {
		d.violation(function, "%s pointer is null", st.Name)
		return nil, false
	}
	r := marshal.NewReader(d.space, d.calc, st, addr)
	if got := r.U32("sType"); r.Err() == nil && got != uint32(sType) {
		d.violation(function, "%s has sType %d, want %d", st.Name, got, sType)
		return nil, false
	}
	return r, true
}

// chain returns the sType of every element of a pNext chain.
func (d *Driver) chain(head uint64) ([]marshal.Link, error) {
	return marshal.WalkChain(d.space, d.calc, head)
}

func (d *Driver) writeHandle(function string, addr, h uint64, dispatchable bool) result.Code {
	var err error
	if dispatchable {
		err = marshal.WritePtr(d.space, d.space.PointerSize(), addr, h)
	} else {
		err = d.space.WriteU64(addr, h)
	}
	if err != nil {
		return d.violation(function, "write handle: %v", err)
	}
	return result.Success
}

// fill implements the count/fill half of an enumeration over total
// elements of the given stride.
func (d *Driver) fill(function string, pCount, pData uint64, total int, stride uint64, write func(i int, addr uint64) error) result.Code {
	if pCount == 0 {
		return d.violation(function, "count pointer is null")
	}
	if pData == 0 {
		if err := d.space.WriteU32(pCount, uint32(total)); err != nil {
			return d.violation(function, "write count: %v", err)
		}
		return result.Success
	}
	capacity, err := d.space.ReadU32(pCount)
	if err != nil {
		return d.violation(function, "read count: %v", err)
	}
	n := min(int(capacity), total)
	for i := 0; i < n; i++ {
		if err := write(i, pData+stride*uint64(i)); err != nil {
			return d.violation(function, "write element %d: %v", i, err)
		}
	}
	if err := d.space.WriteU32(pCount, uint32(n)); err != nil {
		return d.violation(function, "write count: %v", err)
	}
	if n < total {
		return result.Incomplete
	}
	return result.Success
}

func (d *Driver) stride(st *layout.Struct) uint64 {
	return d.calc.Stride(layout.Inline(st))
}

func (d *Driver) writeExtensions(function string, pCount, pData uint64, exts []Extension) result.Code {
	return d.fill(function, pCount, pData, len(exts), d.stride(abi.ExtensionProperties), func(i int, addr uint64) error {
		w := marshal.NewWriter(d.space, d.calc, abi.ExtensionProperties, addr)
		w.Text("extensionName", exts[i].Name)
		w.U32("specVersion", exts[i].SpecVersion)
		return w.Err()
	})
}

func (d *Driver) grownName(prefix string) string {
	return fmt.Sprintf("%s_grown_%d", prefix, d.grown)
}

// Summary returns live object counts keyed by type, for diagnostics.
func (d *Driver) Summary() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int)
	for _, o := range d.objects {
		out[o.kind]++
	}
	return out
}
