package vm

import (
	"context"
	"math"

	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/errors"
)

// Slot accessors. Reads are type-checked against the slot's current
// content, turning what the C API leaves undefined into a TypeMismatch
// error.

func (vm *VM) slotInvoke(ctx context.Context, op, name string, args ...uint64) ([]uint64, error) {
	if vm.closed {
		return nil, errors.Closed(errors.PhaseSlot)
	}
	full := append([]uint64{uint64(vm.ptr)}, args...)
	res, err := vm.backend.Invoke(ctx, name, full...)
	if err != nil {
		return nil, vm.wrapSlotErr(err, op)
	}
	return res, nil
}

func (vm *VM) expectType(ctx context.Context, slot int, want ValueType) error {
	got, err := vm.SlotType(ctx, slot)
	if err != nil {
		return err
	}
	if got != want {
		return errors.TypeMismatch(slot, got.String(), want.String())
	}
	return nil
}

// SlotCount returns how many slots are currently usable.
func (vm *VM) SlotCount(ctx context.Context) (int, error) {
	res, err := vm.slotInvoke(ctx, "slot count", engine.FnGetSlotCount)
	if err != nil {
		return 0, err
	}
	return int(int32(uint32(res[0]))), nil
}

// EnsureSlots grows the slot array to at least count slots.
func (vm *VM) EnsureSlots(ctx context.Context, count int) error {
	_, err := vm.slotInvoke(ctx, "ensure slots", engine.FnEnsureSlots, encodeSlot(count))
	return err
}

// SlotType reports what the slot holds.
func (vm *VM) SlotType(ctx context.Context, slot int) (ValueType, error) {
	res, err := vm.slotInvoke(ctx, "slot type", engine.FnGetSlotType, encodeSlot(slot))
	if err != nil {
		return TypeUnknown, err
	}
	return ValueType(uint32(res[0])), nil
}

// GetBool reads a Bool slot.
func (vm *VM) GetBool(ctx context.Context, slot int) (bool, error) {
	if err := vm.expectType(ctx, slot, TypeBool); err != nil {
		return false, err
	}
	res, err := vm.slotInvoke(ctx, "get bool", engine.FnGetSlotBool, encodeSlot(slot))
	if err != nil {
		return false, err
	}
	return uint32(res[0]) != 0, nil
}

// GetDouble reads a Num slot.
func (vm *VM) GetDouble(ctx context.Context, slot int) (float64, error) {
	if err := vm.expectType(ctx, slot, TypeNum); err != nil {
		return 0, err
	}
	res, err := vm.slotInvoke(ctx, "get double", engine.FnGetSlotDouble, encodeSlot(slot))
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(res[0]), nil
}

// GetString reads a String slot up to its first NUL. Use GetBytes for
// strings carrying embedded NULs. The result is copied out of the guest.
func (vm *VM) GetString(ctx context.Context, slot int) (string, error) {
	if err := vm.expectType(ctx, slot, TypeString); err != nil {
		return "", err
	}
	res, err := vm.slotInvoke(ctx, "get string", engine.FnGetSlotString, encodeSlot(slot))
	if err != nil {
		return "", err
	}
	s, err := engine.ReadCString(vm.backend.Memory(), uint32(res[0]))
	if err != nil {
		return "", vm.wrapSlotErr(err, "get string")
	}
	return s, nil
}

// GetBytes reads a String slot with its exact length, embedded NULs
// included. The result is copied out of the guest.
func (vm *VM) GetBytes(ctx context.Context, slot int) ([]byte, error) {
	if err := vm.expectType(ctx, slot, TypeString); err != nil {
		return nil, err
	}

	// Scratch out-param the guest writes the length into.
	lenPtr := vm.backend.Heap().Reallocate(0, 4)
	if lenPtr == 0 {
		return nil, errors.AllocationFailed(errors.PhaseSlot, 4)
	}
	defer vm.backend.Heap().Reallocate(lenPtr, 0)

	res, err := vm.slotInvoke(ctx, "get bytes", engine.FnGetSlotBytes, encodeSlot(slot), uint64(lenPtr))
	if err != nil {
		return nil, err
	}
	length, err := vm.backend.Memory().ReadU32(lenPtr)
	if err != nil {
		return nil, vm.wrapSlotErr(err, "get bytes")
	}
	data, err := engine.ReadBytes(vm.backend.Memory(), uint32(res[0]), length)
	if err != nil {
		return nil, vm.wrapSlotErr(err, "get bytes")
	}
	return data, nil
}

// GetHandle pins the value in a slot. Works for any type.
func (vm *VM) GetHandle(ctx context.Context, slot int) (*Handle, error) {
	res, err := vm.slotInvoke(ctx, "get handle", engine.FnGetSlotHandle, encodeSlot(slot))
	if err != nil {
		return nil, err
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return nil, errors.AllocationFailed(errors.PhaseHandle, 0)
	}
	return vm.handles.track(vm, ptr), nil
}

// GetForeign returns the guest address of a foreign instance's data block.
func (vm *VM) GetForeign(ctx context.Context, slot int) (uint32, error) {
	if err := vm.expectType(ctx, slot, TypeForeign); err != nil {
		return 0, err
	}
	res, err := vm.slotInvoke(ctx, "get foreign", engine.FnGetSlotForeign, encodeSlot(slot))
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

// SetBool stores a Bool in a slot.
func (vm *VM) SetBool(ctx context.Context, slot int, value bool) error {
	var v uint64
	if value {
		v = 1
	}
	_, err := vm.slotInvoke(ctx, "set bool", engine.FnSetSlotBool, encodeSlot(slot), v)
	return err
}

// SetDouble stores a Num in a slot.
func (vm *VM) SetDouble(ctx context.Context, slot int, value float64) error {
	_, err := vm.slotInvoke(ctx, "set double", engine.FnSetSlotDouble, encodeSlot(slot), math.Float64bits(value))
	return err
}

// SetNull stores null in a slot.
func (vm *VM) SetNull(ctx context.Context, slot int) error {
	_, err := vm.slotInvoke(ctx, "set null", engine.FnSetSlotNull, encodeSlot(slot))
	return err
}

// SetString stores a String in a slot. The interpreter takes its own copy.
func (vm *VM) SetString(ctx context.Context, slot int, value string) error {
	if vm.closed {
		return errors.Closed(errors.PhaseSlot)
	}
	ptr, err := vm.writeString(value)
	if err != nil {
		return err
	}
	defer vm.freeString(ptr)
	_, err = vm.slotInvoke(ctx, "set string", engine.FnSetSlotString, encodeSlot(slot), uint64(ptr))
	return err
}

// SetBytes stores a String with explicit length, embedded NULs allowed.
func (vm *VM) SetBytes(ctx context.Context, slot int, value []byte) error {
	if vm.closed {
		return errors.Closed(errors.PhaseSlot)
	}
	var ptr uint32
	if len(value) > 0 {
		ptr = vm.backend.Heap().Reallocate(0, uint32(len(value)))
		if ptr == 0 {
			return errors.AllocationFailed(errors.PhaseSlot, uint32(len(value)))
		}
		defer vm.backend.Heap().Reallocate(ptr, 0)
		if err := vm.backend.Memory().Write(ptr, value); err != nil {
			return vm.wrapSlotErr(err, "set bytes")
		}
	}
	_, err := vm.slotInvoke(ctx, "set bytes", engine.FnSetSlotBytes, encodeSlot(slot), uint64(ptr), uint64(uint32(len(value))))
	return err
}

// SetHandle stores a pinned value back into a slot.
func (vm *VM) SetHandle(ctx context.Context, slot int, h *Handle) error {
	if h.released {
		return errors.InvalidInput(errors.PhaseSlot, "set released handle")
	}
	_, err := vm.slotInvoke(ctx, "set handle", engine.FnSetSlotHandle, encodeSlot(slot), uint64(h.ptr))
	return err
}

// SetNewList stores a fresh empty List in a slot.
func (vm *VM) SetNewList(ctx context.Context, slot int) error {
	_, err := vm.slotInvoke(ctx, "new list", engine.FnSetSlotNewList, encodeSlot(slot))
	return err
}

// SetNewMap stores a fresh empty Map in a slot.
func (vm *VM) SetNewMap(ctx context.Context, slot int) error {
	_, err := vm.slotInvoke(ctx, "new map", engine.FnSetSlotNewMap, encodeSlot(slot))
	return err
}

// SetNewForeign constructs an instance of the foreign class in classSlot
// with a data block of size bytes, stores it in slot, and returns the data
// block's guest address.
func (vm *VM) SetNewForeign(ctx context.Context, slot, classSlot int, size uint32) (uint32, error) {
	res, err := vm.slotInvoke(ctx, "new foreign", engine.FnSetSlotNewForeign,
		encodeSlot(slot), encodeSlot(classSlot), uint64(size))
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

// ListCount returns the element count of the List in a slot.
func (vm *VM) ListCount(ctx context.Context, slot int) (int, error) {
	if err := vm.expectType(ctx, slot, TypeList); err != nil {
		return 0, err
	}
	res, err := vm.slotInvoke(ctx, "list count", engine.FnGetListCount, encodeSlot(slot))
	if err != nil {
		return 0, err
	}
	return int(int32(uint32(res[0]))), nil
}

// GetListElement copies list[index] into elementSlot. Negative indices
// count from the end.
func (vm *VM) GetListElement(ctx context.Context, listSlot, index, elementSlot int) error {
	_, err := vm.slotInvoke(ctx, "get list element", engine.FnGetListElement,
		encodeSlot(listSlot), encodeSlot(index), encodeSlot(elementSlot))
	return err
}

// SetListElement stores the value in elementSlot at list[index].
func (vm *VM) SetListElement(ctx context.Context, listSlot, index, elementSlot int) error {
	_, err := vm.slotInvoke(ctx, "set list element", engine.FnSetListElement,
		encodeSlot(listSlot), encodeSlot(index), encodeSlot(elementSlot))
	return err
}

// InsertInList inserts the value in elementSlot into the list at index.
// index -1 appends.
func (vm *VM) InsertInList(ctx context.Context, listSlot, index, elementSlot int) error {
	_, err := vm.slotInvoke(ctx, "insert in list", engine.FnInsertInList,
		encodeSlot(listSlot), encodeSlot(index), encodeSlot(elementSlot))
	return err
}

// MapCount returns the entry count of the Map in a slot.
func (vm *VM) MapCount(ctx context.Context, slot int) (int, error) {
	if err := vm.expectType(ctx, slot, TypeMap); err != nil {
		return 0, err
	}
	res, err := vm.slotInvoke(ctx, "map count", engine.FnGetMapCount, encodeSlot(slot))
	if err != nil {
		return 0, err
	}
	return int(int32(uint32(res[0]))), nil
}

// MapContainsKey reports whether the map in mapSlot has the key in keySlot.
func (vm *VM) MapContainsKey(ctx context.Context, mapSlot, keySlot int) (bool, error) {
	if err := vm.expectType(ctx, mapSlot, TypeMap); err != nil {
		return false, err
	}
	res, err := vm.slotInvoke(ctx, "map contains key", engine.FnGetMapContainsKey,
		encodeSlot(mapSlot), encodeSlot(keySlot))
	if err != nil {
		return false, err
	}
	return uint32(res[0]) != 0, nil
}

// GetMapValue copies map[key] into valueSlot, or null if absent.
func (vm *VM) GetMapValue(ctx context.Context, mapSlot, keySlot, valueSlot int) error {
	_, err := vm.slotInvoke(ctx, "get map value", engine.FnGetMapValue,
		encodeSlot(mapSlot), encodeSlot(keySlot), encodeSlot(valueSlot))
	return err
}

// SetMapValue stores the value in valueSlot under the key in keySlot.
func (vm *VM) SetMapValue(ctx context.Context, mapSlot, keySlot, valueSlot int) error {
	_, err := vm.slotInvoke(ctx, "set map value", engine.FnSetMapValue,
		encodeSlot(mapSlot), encodeSlot(keySlot), encodeSlot(valueSlot))
	return err
}

// RemoveMapValue removes the key in keySlot from the map, leaving the
// removed value (or null) in removedValueSlot.
func (vm *VM) RemoveMapValue(ctx context.Context, mapSlot, keySlot, removedValueSlot int) error {
	_, err := vm.slotInvoke(ctx, "remove map value", engine.FnRemoveMapValue,
		encodeSlot(mapSlot), encodeSlot(keySlot), encodeSlot(removedValueSlot))
	return err
}
