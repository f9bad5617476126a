package memory

import (
	"fmt"
	"sync"

	"github.com/wippyai/vspirv"
)

// heapBase keeps address zero and the first bytes unused so a zero
// address always means null.
const heapBase = 64

// BumpAllocator hands out never-reused addresses from a Linear memory and
// records every live block, so tests can assert that each allocation is
// freed exactly once.
type BumpAllocator struct {
	mem         *Linear
	live        map[uint32]uint32
	next        uint32
	allocs      int
	doubleFrees int
	mu          sync.Mutex
}

// NewBumpAllocator creates an allocator over mem.
func NewBumpAllocator(mem *Linear) *BumpAllocator {
	return &BumpAllocator{
		mem:  mem,
		live: make(map[uint32]uint32),
		next: heapBase,
	}
}

// Alloc reserves size bytes aligned to align (at least 8).
func (a *BumpAllocator) Alloc(size, align uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if align < 8 {
		align = 8
	}
	ptr := (a.next + align - 1) &^ (align - 1)
	n := size
	if n == 0 {
		n = 1
	}
	end := uint64(ptr) + uint64(n)
	if end > 0xFFFFFFFF {
		return 0, fmt.Errorf("allocation of %d bytes overflows address space", size)
	}
	if err := a.mem.Grow(uint32(end)); err != nil {
		return 0, err
	}
	a.next = uint32(end)
	a.live[ptr] = size
	a.allocs++
	return ptr, nil
}

// Free releases a block. Freeing an unknown address is counted as a
// double free.
func (a *BumpAllocator) Free(ptr, size, align uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[ptr]; !ok {
		a.doubleFrees++
		return
	}
	delete(a.live, ptr)
}

// Live returns the number of blocks not yet freed.
func (a *BumpAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Allocs returns the number of successful allocations.
func (a *BumpAllocator) Allocs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs
}

// DoubleFrees returns the number of frees of unknown addresses.
func (a *BumpAllocator) DoubleFrees() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doubleFrees
}

var _ vspirv.Allocator = (*BumpAllocator)(nil)
