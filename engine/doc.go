// Package engine provides the low-level wazero integration for the Wren VM.
//
// The VM binary is a WebAssembly core module built from the upstream Wren C
// sources with a thin export shim. This package compiles and instantiates
// that module, caches its exported C API entry points, and supplies the
// host module the guest imports for its configuration callbacks.
//
// # Architecture
//
// The package provides three main types:
//
//	Engine   - Shared compilation cache and runtime configuration
//	Module   - A loaded VM binary, can create instances
//	Instance - A running VM guest with its memory and heap adapter
//
// Each Instance owns a private wazero runtime: the "wren" host module
// closes over exactly one instance, so the heap adapter and callback
// dispatch have a single owner. A shared wazero.CompilationCache keeps
// repeat instantiation of the same binary cheap.
//
// # Guest ABI
//
// The guest exports one function per C API entry point, named after the C
// function (wren_interpret, wren_get_slot_double, ...). Pointers and
// handles are i32 guest addresses, doubles are f64. The guest imports the
// host module "wren":
//
//	reallocate(ptr, size, userdata) -> ptr   all VM heap traffic
//	write(vm, text)                          WrenWriteFn
//	error(vm, kind, module, line, message)   WrenErrorFn
//	resolve_module(vm, importer, name) -> ptr
//	load_module(vm, name) -> ptr
//	bind_foreign_method(vm, module, class, static, signature) -> id
//	foreign_method(vm, id)
//	bind_foreign_class(vm, module, class) -> id
//	foreign_allocate(vm, id)
//	foreign_finalize(id, data)
//
// Strings returned to the guest (resolve_module, load_module) are written
// through the heap adapter, so the guest frees them through the same
// reallocate path it uses for everything else.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use. Instance is NOT
// thread-safe; it belongs to a single VM and a single goroutine.
//
// Most users should use the vm package. This package is for advanced use
// cases requiring direct control over the guest.
package engine
