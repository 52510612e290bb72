package heap

import (
	"fmt"

	"go.uber.org/zap"

	wrenruntime "github.com/wippyai/wren-runtime"
)

// reallocCase is the explicit tag derived from the callback's two inputs.
type reallocCase uint8

const (
	caseNop reallocCase = iota
	caseAlloc
	caseFree
	caseResize
)

func classify(ptr, size uint32) reallocCase {
	switch {
	case ptr == 0 && size == 0:
		return caseNop
	case ptr == 0:
		return caseAlloc
	case size == 0:
		return caseFree
	default:
		return caseResize
	}
}

// Adapter satisfies Wren's reallocate callback from a host allocator while
// tracking each live block's size. Every address it has handed to the VM
// appears in the table exactly once until freed or moved by a resize.
//
// Not safe for concurrent use; owned by exactly one VM.
type Adapter struct {
	alloc  wrenruntime.Allocator
	table  map[uint32]uint32 // address -> size most recently requested
	total  uint64
	closed bool
}

// NewAdapter creates an adapter over the given host allocator. Create it
// before the VM that will use it; Close it only after that VM is destroyed.
func NewAdapter(alloc wrenruntime.Allocator) *Adapter {
	return &Adapter{
		alloc: alloc,
		table: make(map[uint32]uint32),
	}
}

// Reallocate implements the VM's memory callback. It returns the block
// address, or 0 for the nop and free cases and on allocation failure
// (which the VM interprets as out-of-memory).
//
// Freeing or resizing an address the adapter never returned is a fatal
// invariant violation and panics.
func (a *Adapter) Reallocate(ptr, size uint32) uint32 {
	if a.closed {
		panic("wren heap: reallocate on closed adapter")
	}

	switch classify(ptr, size) {
	case caseNop:
		return 0

	case caseAlloc:
		addr, err := a.alloc.Alloc(size)
		if err != nil {
			Logger().Debug("allocation failed",
				zap.Uint32("size", size),
				zap.Error(err))
			return 0
		}
		a.table[addr] = size
		a.total += uint64(size)
		return addr

	case caseFree:
		old, ok := a.table[ptr]
		if !ok {
			panic(fmt.Sprintf("wren heap: free of untracked address %#x", ptr))
		}
		a.alloc.Free(ptr, old)
		delete(a.table, ptr)
		a.total -= uint64(old)
		return 0

	default: // caseResize
		old, ok := a.table[ptr]
		if !ok {
			panic(fmt.Sprintf("wren heap: resize of untracked address %#x", ptr))
		}
		addr, err := a.alloc.Resize(ptr, old, size)
		if err != nil {
			// The original block is still valid; keep its entry.
			Logger().Debug("resize failed",
				zap.Uint32("ptr", ptr),
				zap.Uint32("size", size),
				zap.Error(err))
			return 0
		}
		delete(a.table, ptr)
		a.table[addr] = size
		a.total += uint64(size) - uint64(old)
		return addr
	}
}

// Recorded returns the size tracked for an address, if any.
func (a *Adapter) Recorded(ptr uint32) (uint32, bool) {
	size, ok := a.table[ptr]
	return size, ok
}

// Len returns the number of live tracked allocations.
func (a *Adapter) Len() int { return len(a.table) }

// TrackedBytes returns the VM's outstanding heap usage through this adapter.
func (a *Adapter) TrackedBytes() uint64 { return a.total }

// Close releases every block still tracked and clears the table. It must
// run only after the owning VM has been destroyed: earlier it would free
// memory the VM still considers live. Close is idempotent.
func (a *Adapter) Close() {
	if a.closed {
		return
	}
	if len(a.table) > 0 {
		Logger().Warn("releasing blocks still tracked at teardown",
			zap.Int("blocks", len(a.table)),
			zap.Uint64("bytes", a.total))
	}
	for addr, size := range a.table {
		a.alloc.Free(addr, size)
	}
	a.table = make(map[uint32]uint32)
	a.total = 0
	a.closed = true
}
