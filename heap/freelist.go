package heap

import (
	"sort"

	"go.uber.org/zap"

	wrenruntime "github.com/wippyai/wren-runtime"
	"github.com/wippyai/wren-runtime/errors"
)

const (
	pageSize  = 65536
	alignment = 8
)

// span is a free block. size is always a multiple of alignment.
type span struct {
	addr uint32
	size uint32
}

// FreeList is a first-fit allocator over the guest's linear memory.
// The arena starts at the memory size observed at construction, so it never
// overlaps the guest's static data or shadow stack, and grows by whole
// pages as needed.
//
// It is not safe for concurrent use; it is owned by a single VM.
type FreeList struct {
	mem  wrenruntime.Memory
	grow wrenruntime.Grower
	base uint32
	brk  uint32 // next unallocated address; arena is [base, brk)
	free []span // sorted by addr, adjacent spans coalesced
}

// NewFreeList creates an allocator whose arena begins at the current end of
// linear memory. grow may be nil, in which case the arena cannot extend
// beyond the memory's current size.
func NewFreeList(mem wrenruntime.Memory, grow wrenruntime.Grower) *FreeList {
	base := mem.Size()
	return &FreeList{
		mem:  mem,
		grow: grow,
		base: base,
		brk:  base,
	}
}

// ArenaBase returns the first address managed by this allocator.
func (f *FreeList) ArenaBase() uint32 { return f.base }

// ArenaBytes returns the total bytes currently claimed from linear memory,
// free and allocated alike.
func (f *FreeList) ArenaBytes() uint32 { return f.brk - f.base }

func alignUp(n uint32) uint32 {
	return (n + alignment - 1) &^ uint32(alignment-1)
}

// Alloc returns the address of a block of at least size bytes.
func (f *FreeList) Alloc(size uint32) (uint32, error) {
	if size == 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, "zero-size allocation")
	}
	n := alignUp(size)
	if n < size {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size)
	}

	// First fit from recycled spans.
	for i := range f.free {
		if f.free[i].size >= n {
			addr := f.free[i].addr
			if rem := f.free[i].size - n; rem > 0 {
				f.free[i].addr += n
				f.free[i].size = rem
			} else {
				f.free = append(f.free[:i], f.free[i+1:]...)
			}
			return addr, nil
		}
	}

	// Extend the arena.
	addr := f.brk
	end := addr + n
	if end < addr {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size)
	}
	if err := f.reserve(end); err != nil {
		return 0, err
	}
	f.brk = end
	return addr, nil
}

// reserve grows linear memory until it covers addresses below end.
func (f *FreeList) reserve(end uint32) error {
	have := f.mem.Size()
	if end <= have {
		return nil
	}
	need := end - have
	pages := (need + pageSize - 1) / pageSize
	if f.grow == nil {
		return errors.AllocationFailed(errors.PhaseMemory, need)
	}
	if _, ok := f.grow.Grow(pages); !ok {
		Logger().Warn("linear memory growth refused",
			zap.Uint32("pages", pages),
			zap.Uint32("current_bytes", have))
		return errors.AllocationFailed(errors.PhaseMemory, need)
	}
	return nil
}

// Free returns a block to the free list, coalescing with neighbors.
func (f *FreeList) Free(ptr, size uint32) {
	if ptr == 0 || size == 0 {
		return
	}
	f.release(ptr, alignUp(size))
}

func (f *FreeList) release(addr, n uint32) {
	// Block at the top of the arena: retreat brk instead of listing it,
	// then fold in any spans that now touch the top.
	if addr+n == f.brk {
		f.brk = addr
		for len(f.free) > 0 {
			last := f.free[len(f.free)-1]
			if last.addr+last.size != f.brk {
				break
			}
			f.brk = last.addr
			f.free = f.free[:len(f.free)-1]
		}
		return
	}

	i := sort.Search(len(f.free), func(i int) bool { return f.free[i].addr > addr })
	f.free = append(f.free, span{})
	copy(f.free[i+1:], f.free[i:])
	f.free[i] = span{addr: addr, size: n}

	// Coalesce with successor, then predecessor.
	if i+1 < len(f.free) && f.free[i].addr+f.free[i].size == f.free[i+1].addr {
		f.free[i].size += f.free[i+1].size
		f.free = append(f.free[:i+1], f.free[i+2:]...)
	}
	if i > 0 && f.free[i-1].addr+f.free[i-1].size == f.free[i].addr {
		f.free[i-1].size += f.free[i].size
		f.free = append(f.free[:i], f.free[i+1:]...)
	}
}

// Resize grows or shrinks a block, preserving min(oldSize, newSize) bytes.
// The returned address may differ from ptr; on error the original block is
// untouched and still valid.
func (f *FreeList) Resize(ptr, oldSize, newSize uint32) (uint32, error) {
	if ptr == 0 {
		return f.Alloc(newSize)
	}
	oldN, newN := alignUp(oldSize), alignUp(newSize)

	switch {
	case newN == oldN:
		return ptr, nil

	case newN < oldN:
		f.release(ptr+newN, oldN-newN)
		return ptr, nil
	}

	delta := newN - oldN

	// Block ends at the arena top: extend in place.
	if ptr+oldN == f.brk {
		end := ptr + newN
		if end < ptr {
			return 0, errors.AllocationFailed(errors.PhaseMemory, newSize)
		}
		if err := f.reserve(end); err != nil {
			return 0, err
		}
		f.brk = end
		return ptr, nil
	}

	// Adjacent free span large enough: absorb the needed slice.
	for i := range f.free {
		if f.free[i].addr != ptr+oldN {
			continue
		}
		if f.free[i].size < delta {
			break
		}
		if rem := f.free[i].size - delta; rem > 0 {
			f.free[i].addr += delta
			f.free[i].size = rem
		} else {
			f.free = append(f.free[:i], f.free[i+1:]...)
		}
		return ptr, nil
	}

	// Relocate.
	newPtr, err := f.Alloc(newSize)
	if err != nil {
		return 0, err
	}
	data, err := f.mem.Read(ptr, oldSize)
	if err != nil {
		f.release(newPtr, newN)
		return 0, err
	}
	if err := f.mem.Write(newPtr, data); err != nil {
		f.release(newPtr, newN)
		return 0, err
	}
	f.release(ptr, oldN)
	return newPtr, nil
}

// Compile-time check that FreeList implements wrenruntime.Allocator
var _ wrenruntime.Allocator = (*FreeList)(nil)
