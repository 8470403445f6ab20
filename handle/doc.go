// Package handle manages the lifetime of native object handles.
//
// # Ownership
//
// A native object created through the binding layer is Owned: it lives
// in a shared state with an atomic reference count, and every holder has
// its own *Ref. New returns the first reference (count 1); Clone adds
// one; Release drops one. When the count reaches zero the native destroy
// function runs exactly once and the reference the object held on its
// parent is released:
//
//	device := handle.New(h, handle.Options{
//		ObjectType: "VkDevice",
//		Parent:     instanceRef.Clone(),
//		Destroy:    destroyDevice,
//	})
//	shared := device.Clone()
//	device.Release()  // count 1, nothing destroyed
//	shared.Release()  // count 0, destroyDevice runs, instance clone released
//
// Parents never reference children, so the graph is acyclic and a parent
// cannot be destroyed while any child is alive.
//
// # Explicit destroy
//
// Destroy succeeds only when the caller holds the sole reference. With
// other references alive it returns *errors.InUseError carrying the
// observed count and changes nothing. Objects created with NotDestroyable
// (queues, descriptor sets) always refuse with an unsupported error.
//
// # Borrowed handles
//
// Handles the layer does not own (imported, or enumerated objects such
// as physical devices) are created with Borrowed and never destroyed
// natively. They still carry a parent reference.
//
// # Leaks
//
// A Ref that becomes unreachable without Release is released by a GC
// cleanup, so the object is still destroyed exactly once. Relying on this
// is a bug; Tracker and LogObserver help find such references.
//
// # Concurrency
//
// The count is the only shared mutable state and is updated atomically.
// A single *Ref must not be released from two goroutines at once; Clone
// it and hand each goroutine its own reference.
package handle
