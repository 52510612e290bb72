package heap

import (
	"encoding/binary"
	"math"

	wrenruntime "github.com/wippyai/wren-runtime"
	"github.com/wippyai/wren-runtime/errors"
)

// fakeMemory is an in-process linear memory for tests.
type fakeMemory struct {
	data     []byte
	maxPages uint32
}

func newFakeMemory(pages, maxPages uint32) *fakeMemory {
	return &fakeMemory{
		data:     make([]byte, pages*pageSize),
		maxPages: maxPages,
	}
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length)
	}
	return m.data[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.data)) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, uint32(len(data)))
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *fakeMemory) WriteU32(offset uint32, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return m.Write(offset, b[:])
}

func (m *fakeMemory) ReadF64(offset uint32) (float64, error) {
	b, err := m.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (m *fakeMemory) WriteF64(offset uint32, value float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(value))
	return m.Write(offset, b[:])
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.data)) }

func (m *fakeMemory) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(len(m.data)) / pageSize
	if prev+deltaPages > m.maxPages {
		return 0, false
	}
	m.data = append(m.data, make([]byte, deltaPages*pageSize)...)
	return prev, true
}

var (
	_ wrenruntime.Memory = (*fakeMemory)(nil)
	_ wrenruntime.Grower = (*fakeMemory)(nil)
)
