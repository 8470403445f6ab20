// Package gpubind provides a memory-safe Go binding layer over a C-ABI,
// handle-based graphics and compute API.
//
// The native API takes deeply nested parameter structures made of
// pointers and counts, and hands back opaque handles whose lifetime the
// caller must manage. This module keeps both sides honest.
//
// # Architecture Overview
//
//	gpubind/          Root package with the Memory, Allocator and Space interfaces
//	├── layout/       Native structure layout (field offsets, size, alignment)
//	├── abi/          Schemas for every wrapped native structure
//	├── marshal/      Call-scoped conversion of Go values into native structures
//	├── enumerate/    Two-call "count, then fill" queries
//	├── handle/       Reference-counted ownership of native handles
//	├── result/       Native result codes and the error taxonomy
//	├── dispatch/     Function tables resolved per context
//	├── errors/       Structured error types
//	├── linmem/       32-bit address space backed by a wazero linear memory
//	├── procmem/      The process address space (pinned Go buffers)
//	└── vk/           Wrapped objects and operations
//
// # Quick Start
//
//	inst, err := vk.CreateInstance(loader, &vk.InstanceCreateInfo{
//	    ApplicationInfo: &vk.ApplicationInfo{ApplicationName: "demo"},
//	    EnabledLayerNames: []string{"VK_LAYER_KHRONOS_validation"},
//	}, vk.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Release()
//
//	devices, err := inst.EnumeratePhysicalDevices()
//
// # Ownership
//
// Every object returned by a creation call is owned by the caller through
// a reference. Clone shares the object, Release drops one reference, and
// the native destroy call runs exactly once when the last reference is
// released. Destroy is the explicit path: it succeeds only for the sole
// reference and otherwise reports how many references are still live,
// leaving the object intact.
//
// Children keep their parent alive (a fence keeps its device, a device
// keeps its instance). Parents never reference children, so the graph has
// no cycles and destruction order follows from releasing references.
//
// # Thread Safety
//
// Objects may be shared across goroutines. The only state this layer
// mutates concurrently is each object's atomic reference count; any
// synchronization the native API requires for a handle is the caller's
// responsibility.
package gpubind
