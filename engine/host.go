package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// buildHostModule instantiates the "wren" import namespace into the
// instance's private runtime. The closures bind to inst, whose memory and
// heap fields are populated after guest instantiation; the guest only
// reaches these imports through explicit entry points called later, so the
// fields are set by the time any closure runs.
func buildHostModule(ctx context.Context, r wazero.Runtime, inst *Instance) error {
	i32 := api.ValueTypeI32
	b := r.NewHostModuleBuilder(HostModule)

	// reallocate(ptr, size, userdata) -> ptr
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			ptr := api.DecodeU32(stack[0])
			size := api.DecodeU32(stack[1])
			stack[0] = uint64(inst.heap.Reallocate(ptr, size))
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export(ImportReallocate)

	// write(vm, text)
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			inst.callbacks.Write(inst.readString(api.DecodeU32(stack[1])))
		}), []api.ValueType{i32, i32}, nil).
		Export(ImportWrite)

	// error(vm, kind, module, line, message)
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			inst.callbacks.Error(
				int32(api.DecodeU32(stack[1])),
				inst.readString(api.DecodeU32(stack[2])),
				int32(api.DecodeU32(stack[3])),
				inst.readString(api.DecodeU32(stack[4])))
		}), []api.ValueType{i32, i32, i32, i32, i32}, nil).
		Export(ImportError)

	// resolve_module(vm, importer, name) -> ptr
	// 0 keeps the import string as written.
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			importer := inst.readString(api.DecodeU32(stack[1]))
			name := inst.readString(api.DecodeU32(stack[2]))
			resolved, ok := inst.callbacks.ResolveModule(importer, name)
			if !ok {
				stack[0] = 0
				return
			}
			stack[0] = uint64(WriteCString(inst.mem, inst.heap, resolved))
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export(ImportResolveModule)

	// load_module(vm, name) -> ptr
	// 0 makes the import fail as module-not-found.
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			name := inst.readString(api.DecodeU32(stack[1]))
			source, ok := inst.callbacks.LoadModule(name)
			if !ok {
				stack[0] = 0
				return
			}
			ptr := WriteCString(inst.mem, inst.heap, source)
			if ptr == 0 {
				Logger().Warn("module source did not fit in guest memory",
					zap.String("module", name),
					zap.Int("bytes", len(source)))
			}
			stack[0] = uint64(ptr)
		}), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export(ImportLoadModule)

	// bind_foreign_method(vm, module, class, static, signature) -> id
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			id, ok := inst.callbacks.BindForeignMethod(
				inst.readString(api.DecodeU32(stack[1])),
				inst.readString(api.DecodeU32(stack[2])),
				api.DecodeU32(stack[3]) != 0,
				inst.readString(api.DecodeU32(stack[4])))
			if !ok {
				id = 0
			}
			stack[0] = uint64(id)
		}), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		Export(ImportBindForeignMethod)

	// foreign_method(vm, id)
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			inst.callbacks.ForeignMethod(api.DecodeU32(stack[1]))
		}), []api.ValueType{i32, i32}, nil).
		Export(ImportForeignMethod)

	// bind_foreign_class(vm, module, class) -> id
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			id, ok := inst.callbacks.BindForeignClass(
				inst.readString(api.DecodeU32(stack[1])),
				inst.readString(api.DecodeU32(stack[2])))
			if !ok {
				id = 0
			}
			stack[0] = uint64(id)
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export(ImportBindForeignClass)

	// foreign_allocate(vm, id)
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			inst.callbacks.ForeignAllocate(api.DecodeU32(stack[1]))
		}), []api.ValueType{i32, i32}, nil).
		Export(ImportForeignAllocate)

	// foreign_finalize(id, data)
	b.NewFunctionBuilder().WithGoModuleFunction(api.GoModuleFunc(
		func(_ context.Context, _ api.Module, stack []uint64) {
			inst.callbacks.ForeignFinalize(api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
		}), []api.ValueType{i32, i32}, nil).
		Export(ImportForeignFinalize)

	_, err := b.Instantiate(ctx)
	return err
}

// readString reads a NUL-terminated guest string, mapping a null pointer to
// the empty string. The VM passes NULL for the module of top-level runtime
// errors.
func (i *Instance) readString(ptr uint32) string {
	if ptr == 0 {
		return ""
	}
	s, err := ReadCString(i.mem, ptr)
	if err != nil {
		Logger().Warn("unreadable guest string", zap.Uint32("ptr", ptr), zap.Error(err))
		return ""
	}
	return s
}
