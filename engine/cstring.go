package engine

import (
	wrenruntime "github.com/wippyai/wren-runtime"
	"github.com/wippyai/wren-runtime/errors"
	"github.com/wippyai/wren-runtime/heap"
)

// cstringChunk is how many bytes ReadCString scans per memory read while
// looking for the terminator.
const cstringChunk = 256

// ReadCString reads a NUL-terminated string from guest memory. The result
// is copied out, so it stays valid after the guest reuses the block.
func ReadCString(mem wrenruntime.Memory, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", errors.InvalidInput(errors.PhaseMemory, "null string pointer")
	}

	var out []byte
	for offset := ptr; ; {
		if offset >= mem.Size() {
			return "", errors.OutOfBounds(errors.PhaseMemory, offset, 1)
		}
		length := uint32(cstringChunk)
		if remaining := mem.Size() - offset; remaining < length {
			length = remaining
		}
		chunk, err := mem.Read(offset, length)
		if err != nil {
			return "", err
		}
		for i, b := range chunk {
			if b == 0 {
				return string(append(out, chunk[:i]...)), nil
			}
		}
		out = append(out, chunk...)
		offset += length
	}
}

// ReadBytes copies length bytes out of guest memory.
func ReadBytes(mem wrenruntime.Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// WriteCString copies s into a freshly tracked block with a trailing NUL
// and returns its guest address. The block goes through the heap adapter,
// so the guest releases it via the ordinary reallocate path. Returns 0 on
// allocation failure.
func WriteCString(mem wrenruntime.Memory, adapter *heap.Adapter, s string) uint32 {
	ptr := adapter.Reallocate(0, uint32(len(s))+1)
	if ptr == 0 {
		return 0
	}
	if err := mem.Write(ptr, append([]byte(s), 0)); err != nil {
		adapter.Reallocate(ptr, 0)
		return 0
	}
	return ptr
}
