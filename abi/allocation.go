package abi

import (
	"sync"

	"github.com/wippyai/vspirv"
)

// Allocation is one block owned by the caller.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList records every block written for one request so that all
// of them can be released together after the call returns.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 16)}
	},
}

// NewAllocationList takes a list from the pool.
func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 256

// Release returns the list to the pool. The list must not be used after.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

// FreeAndRelease frees every block and returns the list to the pool.
func (al *AllocationList) FreeAndRelease(allocator vspirv.Allocator) {
	al.Free(allocator)
	al.Release()
}

// Add records a block.
func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Free releases every recorded block in reverse allocation order and
// empties the list, so a second call frees nothing.
func (al *AllocationList) Free(allocator vspirv.Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		a := al.allocations[i]
		if a.Ptr != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
	al.Reset()
}

// Reset forgets every block without freeing it.
func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

// Count returns the number of recorded blocks.
func (al *AllocationList) Count() int {
	return len(al.allocations)
}
