package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/vspirv"
)

// maxMallocAlign is the alignment guaranteed by the guest's malloc.
const maxMallocAlign = 8

type guestAllocator struct {
	mallocFn   api.Function
	freeFn     api.Function
	currentCtx context.Context
	stackBuf   []uint64
	stackMutex sync.Mutex
}

func (a *guestAllocator) setContext(ctx context.Context) {
	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()
	a.currentCtx = ctx
}

func (a *guestAllocator) callContext() context.Context {
	if a.currentCtx == nil {
		return context.Background()
	}
	return a.currentCtx
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	if align > maxMallocAlign {
		return 0, fmt.Errorf("alignment %d exceeds malloc alignment %d", align, maxMallocAlign)
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	a.stackBuf[0] = uint64(size)
	if err := a.mallocFn.CallWithStack(a.callContext(), a.stackBuf[:1]); err != nil {
		return 0, err
	}
	ptr := uint32(a.stackBuf[0])
	if ptr == 0 {
		return 0, fmt.Errorf("malloc(%d) returned null", size)
	}
	if align > 1 && ptr%align != 0 {
		return 0, fmt.Errorf("malloc(%d) returned %#x, not aligned to %d", size, ptr, align)
	}
	return ptr, nil
}

func (a *guestAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	a.stackBuf[0] = uint64(ptr)
	if err := a.freeFn.CallWithStack(a.callContext(), a.stackBuf[:1]); err != nil {
		Logger().Warn("Free: failed to call guest free",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

var _ vspirv.Allocator = (*guestAllocator)(nil)
