package vm

import (
	"context"

	"go.uber.org/zap"

	wrenruntime "github.com/wippyai/wren-runtime"
	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/errors"
	"github.com/wippyai/wren-runtime/heap"
)

// backend is the slice of engine.Instance the VM uses. Tests substitute an
// in-process fake.
type backend interface {
	Invoke(ctx context.Context, name string, args ...uint64) ([]uint64, error)
	Memory() wrenruntime.Memory
	Heap() *heap.Adapter
	Close(ctx context.Context) error
}

var _ backend = (*engine.Instance)(nil)

// VM is one embedded interpreter. Not safe for concurrent use.
type VM struct {
	cfg     Config
	backend backend
	ptr     uint32 // guest WrenVM*
	handles *handleTable

	foreignMethods []ForeignMethodFn
	foreignClasses []ForeignClass

	diags    []errors.Diagnostic
	callCtx  context.Context
	userData any
	closed   bool
}

// New instantiates the VM binary and boots an interpreter configured from
// cfg. Close the returned VM to release the guest and its memory.
func New(ctx context.Context, module *engine.Module, cfg *Config) (*VM, error) {
	vm := newVM(cfg)
	inst, err := module.Instantiate(ctx, &hostHooks{vm: vm})
	if err != nil {
		return nil, err
	}
	vm.backend = inst

	if err := vm.boot(ctx); err != nil {
		inst.Close(ctx)
		return nil, err
	}
	return vm, nil
}

func newVM(cfg *Config) *VM {
	vm := &VM{handles: newHandleTable()}
	if cfg != nil {
		vm.cfg = *cfg
		vm.userData = cfg.UserData
	}
	return vm
}

// boot creates the guest interpreter with the configured heap tuning.
// Zero values keep the interpreter's defaults.
func (vm *VM) boot(ctx context.Context) error {
	res, err := vm.backend.Invoke(ctx, engine.FnNewVM,
		uint64(vm.cfg.InitialHeapSize),
		uint64(vm.cfg.MinHeapSize),
		uint64(vm.cfg.HeapGrowthPercent))
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInstantiation).
			Detail("create interpreter").Cause(err).Build()
	}
	vm.ptr = uint32(res[0])
	if vm.ptr == 0 {
		return errors.AllocationFailed(errors.PhaseConfig, 0)
	}
	return nil
}

// Interpret compiles and runs source in the given module, creating the
// module if needed. Script failures come back as *errors.ScriptError with
// the collected diagnostics.
func (vm *VM) Interpret(ctx context.Context, module, source string) error {
	if vm.closed {
		return errors.Closed(errors.PhaseInterpret)
	}
	modPtr, err := vm.writeString(module)
	if err != nil {
		return err
	}
	defer vm.freeString(modPtr)
	srcPtr, err := vm.writeString(source)
	if err != nil {
		return err
	}
	defer vm.freeString(srcPtr)

	vm.diags = vm.diags[:0]
	defer vm.enter(ctx)()

	res, err := vm.backend.Invoke(ctx, engine.FnInterpret,
		uint64(vm.ptr), uint64(modPtr), uint64(srcPtr))
	if err != nil {
		return errors.New(errors.PhaseInterpret, errors.KindRuntimeError).
			Module(module).Detail("interpreter trapped").Cause(err).Build()
	}
	return vm.scriptResult(InterpretResult(uint32(res[0])))
}

// MakeCallHandle compiles a method signature (e.g. "fire(_,_)") into a
// reusable handle for Call.
func (vm *VM) MakeCallHandle(ctx context.Context, signature string) (*Handle, error) {
	if vm.closed {
		return nil, errors.Closed(errors.PhaseHandle)
	}
	sigPtr, err := vm.writeString(signature)
	if err != nil {
		return nil, err
	}
	defer vm.freeString(sigPtr)

	res, err := vm.backend.Invoke(ctx, engine.FnMakeCallHandle,
		uint64(vm.ptr), uint64(sigPtr))
	if err != nil {
		return nil, errors.New(errors.PhaseHandle, errors.KindInvalidInput).
			Detail("make call handle %q", signature).Cause(err).Build()
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return nil, errors.AllocationFailed(errors.PhaseHandle, 0)
	}
	return vm.handles.track(vm, ptr), nil
}

// Call invokes a method previously compiled with MakeCallHandle. The
// receiver must be in slot 0 and arguments in the following slots.
func (vm *VM) Call(ctx context.Context, method *Handle) error {
	if vm.closed {
		return errors.Closed(errors.PhaseCall)
	}
	if method.released {
		return errors.InvalidInput(errors.PhaseCall, "call through released handle")
	}

	vm.diags = vm.diags[:0]
	defer vm.enter(ctx)()

	res, err := vm.backend.Invoke(ctx, engine.FnCall,
		uint64(vm.ptr), uint64(method.ptr))
	if err != nil {
		return errors.New(errors.PhaseCall, errors.KindRuntimeError).
			Detail("interpreter trapped").Cause(err).Build()
	}
	return vm.scriptResult(InterpretResult(uint32(res[0])))
}

// GetVariable reads a top-level variable of a previously loaded module into
// a slot.
func (vm *VM) GetVariable(ctx context.Context, module, name string, slot int) error {
	if vm.closed {
		return errors.Closed(errors.PhaseSlot)
	}
	modPtr, err := vm.writeString(module)
	if err != nil {
		return err
	}
	defer vm.freeString(modPtr)
	namePtr, err := vm.writeString(name)
	if err != nil {
		return err
	}
	defer vm.freeString(namePtr)

	_, err = vm.backend.Invoke(ctx, engine.FnGetVariable,
		uint64(vm.ptr), uint64(modPtr), uint64(namePtr), encodeSlot(slot))
	return vm.wrapSlotErr(err, "get variable")
}

// HasVariable reports whether module declares a top-level variable name.
// The module must already be loaded.
func (vm *VM) HasVariable(ctx context.Context, module, name string) (bool, error) {
	if vm.closed {
		return false, errors.Closed(errors.PhaseSlot)
	}
	modPtr, err := vm.writeString(module)
	if err != nil {
		return false, err
	}
	defer vm.freeString(modPtr)
	namePtr, err := vm.writeString(name)
	if err != nil {
		return false, err
	}
	defer vm.freeString(namePtr)

	res, err := vm.backend.Invoke(ctx, engine.FnHasVariable,
		uint64(vm.ptr), uint64(modPtr), uint64(namePtr))
	if err != nil {
		return false, vm.wrapSlotErr(err, "has variable")
	}
	return uint32(res[0]) != 0, nil
}

// HasModule reports whether a module has been imported or interpreted.
func (vm *VM) HasModule(ctx context.Context, module string) (bool, error) {
	if vm.closed {
		return false, errors.Closed(errors.PhaseSlot)
	}
	modPtr, err := vm.writeString(module)
	if err != nil {
		return false, err
	}
	defer vm.freeString(modPtr)

	res, err := vm.backend.Invoke(ctx, engine.FnHasModule,
		uint64(vm.ptr), uint64(modPtr))
	if err != nil {
		return false, vm.wrapSlotErr(err, "has module")
	}
	return uint32(res[0]) != 0, nil
}

// AbortFiber aborts the current fiber with the error value in the given
// slot. Meaningful only inside a foreign method.
func (vm *VM) AbortFiber(ctx context.Context, slot int) error {
	if vm.closed {
		return errors.Closed(errors.PhaseCall)
	}
	_, err := vm.backend.Invoke(ctx, engine.FnAbortFiber,
		uint64(vm.ptr), encodeSlot(slot))
	return vm.wrapSlotErr(err, "abort fiber")
}

// CollectGarbage forces an immediate garbage collection.
func (vm *VM) CollectGarbage(ctx context.Context) error {
	if vm.closed {
		return errors.Closed(errors.PhaseCall)
	}
	_, err := vm.backend.Invoke(ctx, engine.FnCollectGarbage, uint64(vm.ptr))
	return vm.wrapSlotErr(err, "collect garbage")
}

// Version returns the interpreter's version as a single number, e.g.
// 4000 for 0.4.0.
func (vm *VM) Version(ctx context.Context) (int, error) {
	if vm.closed {
		return 0, errors.Closed(errors.PhaseCall)
	}
	res, err := vm.backend.Invoke(ctx, engine.FnGetVersionNumber)
	if err != nil {
		return 0, vm.wrapSlotErr(err, "version")
	}
	return int(int32(uint32(res[0]))), nil
}

// Memory exposes the guest's linear memory, for reading and writing
// foreign data blocks addressed by GetForeign and SetNewForeign.
func (vm *VM) Memory() wrenruntime.Memory { return vm.backend.Memory() }

// UserData returns the host value attached to this VM.
func (vm *VM) UserData() any { return vm.userData }

// SetUserData replaces the host value attached to this VM.
func (vm *VM) SetUserData(v any) { vm.userData = v }

// Handles returns the number of live handles, for leak checks.
func (vm *VM) Handles() int { return vm.handles.len() }

// Close destroys the interpreter and the guest behind it: live handles are
// released, the interpreter is freed, and only then does the heap adapter
// reclaim the guest's remaining blocks. Idempotent.
func (vm *VM) Close(ctx context.Context) error {
	if vm.closed {
		return nil
	}

	vm.handles.releaseAll(ctx, vm)

	if _, err := vm.backend.Invoke(ctx, engine.FnFreeVM, uint64(vm.ptr)); err != nil {
		Logger().Warn("freeing interpreter failed", zap.Error(err))
	}
	vm.closed = true
	return vm.backend.Close(ctx)
}

// enter makes ctx available to host callbacks fired during a guest call.
// The returned func restores the previous context, so reentrant calls nest.
func (vm *VM) enter(ctx context.Context) func() {
	prev := vm.callCtx
	vm.callCtx = ctx
	return func() { vm.callCtx = prev }
}

func (vm *VM) callContext() context.Context {
	if vm.callCtx != nil {
		return vm.callCtx
	}
	return context.Background()
}

func (vm *VM) scriptResult(r InterpretResult) error {
	switch r {
	case ResultSuccess:
		return nil
	case ResultCompileError:
		return errors.CompileError(vm.takeDiags())
	default:
		return errors.RuntimeError(vm.takeDiags())
	}
}

func (vm *VM) takeDiags() []errors.Diagnostic {
	out := make([]errors.Diagnostic, len(vm.diags))
	copy(out, vm.diags)
	vm.diags = vm.diags[:0]
	return out
}

// writeString copies s into a guest block tracked by the heap adapter.
func (vm *VM) writeString(s string) (uint32, error) {
	ptr := engine.WriteCString(vm.backend.Memory(), vm.backend.Heap(), s)
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseMemory, uint32(len(s))+1)
	}
	return ptr, nil
}

func (vm *VM) freeString(ptr uint32) {
	vm.backend.Heap().Reallocate(ptr, 0)
}

func (vm *VM) wrapSlotErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseSlot, errors.KindInvalidInput).
		Detail("%s", op).Cause(err).Build()
}

// encodeSlot widens a slot index for the call ABI. Negative indices pass
// through sign-extended so the guest can reject them.
func encodeSlot(slot int) uint64 {
	return uint64(uint32(int32(slot)))
}
