package vm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/errors"
)

// Handle pins an interpreter value against garbage collection. The wrapped
// guest pointer stays valid until Release.
type Handle struct {
	vm       *VM
	ptr      uint32
	released bool
}

// Release returns the value to the garbage collector. Every handle must be
// released exactly once, before the VM closes; a second Release panics.
func (h *Handle) Release(ctx context.Context) error {
	if h.released {
		panic(fmt.Sprintf("wren vm: double release of handle %#x", h.ptr))
	}
	h.released = true
	h.vm.handles.forget(h)

	if h.vm.closed {
		// The guest is gone; the pin died with it.
		return nil
	}
	_, err := h.vm.backend.Invoke(ctx, engine.FnReleaseHandle, uint64(h.vm.ptr), uint64(h.ptr))
	if err != nil {
		return errors.New(errors.PhaseHandle, errors.KindInvalidInput).
			Detail("release handle").Cause(err).Build()
	}
	return nil
}

// handleTable tracks live handles so teardown can report and release
// stragglers. Owned by one VM, no locking.
type handleTable struct {
	live map[*Handle]struct{}
}

func newHandleTable() *handleTable {
	return &handleTable{live: make(map[*Handle]struct{})}
}

func (t *handleTable) track(vm *VM, ptr uint32) *Handle {
	h := &Handle{vm: vm, ptr: ptr}
	t.live[h] = struct{}{}
	return h
}

func (t *handleTable) forget(h *Handle) {
	delete(t.live, h)
}

func (t *handleTable) len() int { return len(t.live) }

// releaseAll releases every live handle against the guest. Used during VM
// close, before the interpreter is destroyed.
func (t *handleTable) releaseAll(ctx context.Context, vm *VM) {
	if len(t.live) > 0 {
		Logger().Warn("releasing handles still live at close",
			zap.Int("handles", len(t.live)))
	}
	for h := range t.live {
		h.released = true
		delete(t.live, h)
		if _, err := vm.backend.Invoke(ctx, engine.FnReleaseHandle, uint64(vm.ptr), uint64(h.ptr)); err != nil {
			Logger().Warn("release of straggler handle failed",
				zap.Uint32("ptr", h.ptr), zap.Error(err))
		}
	}
}
