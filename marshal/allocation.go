package marshal

import (
	"sync"

	gpubind "github.com/wippyai/gpubind"
)

type Allocation struct {
	Addr  uint64
	Size  uint64
	Align uint64
}

// AllocationList records allocations so they can be freed together.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small lists to prevent memory bloat
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator gpubind.Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(addr, size, align uint64) {
	al.allocations = append(al.allocations, Allocation{
		Addr:  addr,
		Size:  size,
		Align: align,
	})
}

// Free releases allocations in reverse order of creation.
func (al *AllocationList) Free(allocator gpubind.Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		a := al.allocations[i]
		if a.Addr != 0 {
			allocator.Free(a.Addr, a.Size, a.Align)
		}
	}
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}
