package wrenruntime

// Memory represents the VM's linear memory. Offsets are guest addresses;
// offset 0 is the null address and is never a valid allocation.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	ReadF64(offset uint32) (float64, error)
	WriteF64(offset uint32, value float64) error

	// Size returns the current linear memory size in bytes.
	Size() uint32
}

// Grower extends linear memory by whole pages (64KiB each).
// It returns the previous size in pages, or ok=false if the memory
// cannot grow (limit reached).
type Grower interface {
	Grow(deltaPages uint32) (prevPages uint32, ok bool)
}

// Allocator manages blocks inside the VM's linear memory on behalf of the
// host. Sizes are explicit on Resize and Free: the caller owns the size
// bookkeeping (see heap.Adapter), the allocator does not embed headers in
// the blocks themselves.
type Allocator interface {
	// Alloc returns the address of a new block of at least size bytes.
	Alloc(size uint32) (uint32, error)

	// Resize changes a block from oldSize to newSize bytes, preserving
	// min(oldSize, newSize) bytes of content. The returned address may
	// differ from ptr.
	Resize(ptr, oldSize, newSize uint32) (uint32, error)

	// Free releases a block previously returned by Alloc or Resize.
	Free(ptr, size uint32)
}
