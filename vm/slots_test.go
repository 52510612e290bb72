package vm

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/errors"
)

// typedSlot wires FnGetSlotType to report one type for every slot.
func typedSlot(b *fakeBackend, t ValueType) {
	b.on[engine.FnGetSlotType] = func([]uint64) []uint64 { return []uint64{uint64(t)} }
}

func TestEnsureSlotsAndCount(t *testing.T) {
	vm, b := newTestVM(t, nil)

	var ensured uint64
	b.on[engine.FnEnsureSlots] = func(args []uint64) []uint64 {
		ensured = args[1]
		return []uint64{0}
	}
	b.on[engine.FnGetSlotCount] = func([]uint64) []uint64 { return []uint64{4} }

	if err := vm.EnsureSlots(context.Background(), 4); err != nil {
		t.Fatalf("EnsureSlots: %v", err)
	}
	if ensured != 4 {
		t.Fatalf("ensured = %d", ensured)
	}
	n, err := vm.SlotCount(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("SlotCount = %d, %v", n, err)
	}
}

func TestGetDouble(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeNum)
	b.on[engine.FnGetSlotDouble] = func([]uint64) []uint64 {
		return []uint64{math.Float64bits(3.5)}
	}

	v, err := vm.GetDouble(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetDouble: %v", err)
	}
	if v != 3.5 {
		t.Fatalf("GetDouble = %v", v)
	}
}

func TestSetDoubleEncoding(t *testing.T) {
	vm, b := newTestVM(t, nil)
	var got uint64
	b.on[engine.FnSetSlotDouble] = func(args []uint64) []uint64 {
		got = args[2]
		return []uint64{0}
	}

	if err := vm.SetDouble(context.Background(), 1, -0.25); err != nil {
		t.Fatalf("SetDouble: %v", err)
	}
	if math.Float64frombits(got) != -0.25 {
		t.Fatalf("guest received %v", math.Float64frombits(got))
	}
}

func TestGetBoolTypeMismatch(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeString)

	_, err := vm.GetBool(context.Background(), 0)
	var e *errors.Error
	if !errorsAs(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Fatalf("error = %v, want type mismatch", err)
	}
	if b.called(engine.FnGetSlotBool) != 0 {
		t.Fatal("guest read attempted despite mismatch")
	}
}

func TestGetBool(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeBool)
	b.on[engine.FnGetSlotBool] = func([]uint64) []uint64 { return []uint64{1} }

	v, err := vm.GetBool(context.Background(), 0)
	if err != nil || !v {
		t.Fatalf("GetBool = %v, %v", v, err)
	}
}

func TestGetString(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeString)

	const strPtr = 200
	if err := b.mem.Write(strPtr, []byte("score\x00")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b.on[engine.FnGetSlotString] = func([]uint64) []uint64 { return []uint64{strPtr} }

	s, err := vm.GetString(context.Background(), 0)
	if err != nil || s != "score" {
		t.Fatalf("GetString = %q, %v", s, err)
	}
}

func TestGetBytesWithEmbeddedNul(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeString)

	payload := []byte("a\x00b")
	const dataPtr = 300
	if err := b.mem.Write(dataPtr, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b.on[engine.FnGetSlotBytes] = func(args []uint64) []uint64 {
		// args: vm, slot, length out-param
		if err := b.mem.WriteU32(uint32(args[2]), uint32(len(payload))); err != nil {
			t.Fatalf("length write: %v", err)
		}
		return []uint64{dataPtr}
	}

	got, err := vm.GetBytes(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("GetBytes = %v", got)
	}
	if b.adapter.Len() != 0 {
		t.Fatal("length scratch leaked")
	}
}

func TestSetStringCopiesAndFrees(t *testing.T) {
	vm, b := newTestVM(t, nil)

	var got string
	b.on[engine.FnSetSlotString] = func(args []uint64) []uint64 {
		got = readGuestString(t, b, args[2])
		return []uint64{0}
	}

	if err := vm.SetString(context.Background(), 1, "player one"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if got != "player one" {
		t.Fatalf("guest saw %q", got)
	}
	if b.adapter.Len() != 0 {
		t.Fatal("string block leaked")
	}
}

func TestSetBytes(t *testing.T) {
	vm, b := newTestVM(t, nil)

	payload := []byte{1, 0, 2}
	var gotPtr, gotLen uint64
	b.on[engine.FnSetSlotBytes] = func(args []uint64) []uint64 {
		gotPtr, gotLen = args[2], args[3]
		data, err := b.mem.Read(uint32(gotPtr), uint32(gotLen))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(data, payload) {
			t.Fatalf("guest saw %v", data)
		}
		return []uint64{0}
	}

	if err := vm.SetBytes(context.Background(), 1, payload); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if gotLen != uint64(len(payload)) {
		t.Fatalf("length = %d", gotLen)
	}
	if b.adapter.Len() != 0 {
		t.Fatal("byte block leaked")
	}
}

func TestSetBytesEmpty(t *testing.T) {
	vm, b := newTestVM(t, nil)

	var gotPtr, gotLen uint64 = 99, 99
	b.on[engine.FnSetSlotBytes] = func(args []uint64) []uint64 {
		gotPtr, gotLen = args[2], args[3]
		return []uint64{0}
	}

	if err := vm.SetBytes(context.Background(), 1, nil); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if gotPtr != 0 || gotLen != 0 {
		t.Fatalf("empty bytes passed as ptr=%d len=%d", gotPtr, gotLen)
	}
}

func TestSetNullAndBool(t *testing.T) {
	vm, b := newTestVM(t, nil)

	var boolArg uint64
	b.on[engine.FnSetSlotBool] = func(args []uint64) []uint64 {
		boolArg = args[2]
		return []uint64{0}
	}

	if err := vm.SetNull(context.Background(), 0); err != nil {
		t.Fatalf("SetNull: %v", err)
	}
	if err := vm.SetBool(context.Background(), 0, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if boolArg != 1 {
		t.Fatalf("bool arg = %d", boolArg)
	}
	if b.called(engine.FnSetSlotNull) != 1 {
		t.Fatal("null not set")
	}
}

func TestHandleRoundTrip(t *testing.T) {
	vm, b := newTestVM(t, nil)

	const valPtr = 0x4000
	b.on[engine.FnGetSlotHandle] = func([]uint64) []uint64 { return []uint64{valPtr} }
	var setPtr uint64
	b.on[engine.FnSetSlotHandle] = func(args []uint64) []uint64 {
		setPtr = args[2]
		return []uint64{0}
	}

	h, err := vm.GetHandle(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetHandle: %v", err)
	}
	if err := vm.SetHandle(context.Background(), 1, h); err != nil {
		t.Fatalf("SetHandle: %v", err)
	}
	if setPtr != valPtr {
		t.Fatalf("set ptr = %#x", setPtr)
	}

	if err := h.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := vm.SetHandle(context.Background(), 1, h); err == nil {
		t.Fatal("set of released handle should fail")
	}
}

func TestForeignSlots(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeForeign)

	const dataPtr = 0x5000
	b.on[engine.FnSetSlotNewForeign] = func(args []uint64) []uint64 {
		if args[1] != 0 || args[2] != 1 || args[3] != 16 {
			t.Fatalf("new foreign args = %v", args)
		}
		return []uint64{dataPtr}
	}
	b.on[engine.FnGetSlotForeign] = func([]uint64) []uint64 { return []uint64{dataPtr} }

	got, err := vm.SetNewForeign(context.Background(), 0, 1, 16)
	if err != nil || got != dataPtr {
		t.Fatalf("SetNewForeign = %#x, %v", got, err)
	}
	got, err = vm.GetForeign(context.Background(), 0)
	if err != nil || got != dataPtr {
		t.Fatalf("GetForeign = %#x, %v", got, err)
	}
}

func TestListOperations(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeList)

	b.on[engine.FnGetListCount] = func([]uint64) []uint64 { return []uint64{3} }
	var insertIndex uint64
	b.on[engine.FnInsertInList] = func(args []uint64) []uint64 {
		insertIndex = args[2]
		return []uint64{0}
	}

	if err := vm.SetNewList(context.Background(), 0); err != nil {
		t.Fatalf("SetNewList: %v", err)
	}
	n, err := vm.ListCount(context.Background(), 0)
	if err != nil || n != 3 {
		t.Fatalf("ListCount = %d, %v", n, err)
	}

	// -1 appends; it crosses the boundary sign-extended into 32 bits.
	if err := vm.InsertInList(context.Background(), 0, -1, 1); err != nil {
		t.Fatalf("InsertInList: %v", err)
	}
	if insertIndex != uint64(uint32(0xFFFFFFFF)) {
		t.Fatalf("insert index = %#x", insertIndex)
	}

	if err := vm.GetListElement(context.Background(), 0, 2, 1); err != nil {
		t.Fatalf("GetListElement: %v", err)
	}
	if err := vm.SetListElement(context.Background(), 0, 2, 1); err != nil {
		t.Fatalf("SetListElement: %v", err)
	}
}

func TestMapOperations(t *testing.T) {
	vm, b := newTestVM(t, nil)
	typedSlot(b, TypeMap)

	b.on[engine.FnGetMapCount] = func([]uint64) []uint64 { return []uint64{2} }
	b.on[engine.FnGetMapContainsKey] = func([]uint64) []uint64 { return []uint64{1} }

	if err := vm.SetNewMap(context.Background(), 0); err != nil {
		t.Fatalf("SetNewMap: %v", err)
	}
	n, err := vm.MapCount(context.Background(), 0)
	if err != nil || n != 2 {
		t.Fatalf("MapCount = %d, %v", n, err)
	}
	ok, err := vm.MapContainsKey(context.Background(), 0, 1)
	if err != nil || !ok {
		t.Fatalf("MapContainsKey = %v, %v", ok, err)
	}

	if err := vm.SetMapValue(context.Background(), 0, 1, 2); err != nil {
		t.Fatalf("SetMapValue: %v", err)
	}
	if err := vm.GetMapValue(context.Background(), 0, 1, 2); err != nil {
		t.Fatalf("GetMapValue: %v", err)
	}
	if err := vm.RemoveMapValue(context.Background(), 0, 1, 2); err != nil {
		t.Fatalf("RemoveMapValue: %v", err)
	}
}

func TestSlotTypeValues(t *testing.T) {
	tests := []struct {
		t    ValueType
		name string
	}{
		{TypeBool, "bool"},
		{TypeNum, "num"},
		{TypeForeign, "foreign"},
		{TypeList, "list"},
		{TypeMap, "map"},
		{TypeNull, "null"},
		{TypeString, "string"},
		{TypeUnknown, "unknown"},
	}
	for _, tt := range tests {
		if tt.t.String() != tt.name {
			t.Errorf("ValueType(%d).String() = %q, want %q", tt.t, tt.t.String(), tt.name)
		}
	}
}

// errorsAs avoids importing the standard errors package alongside ours.
func errorsAs(err error, target **errors.Error) bool {
	for err != nil {
		if e, ok := err.(*errors.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
