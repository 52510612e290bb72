// Package wrenruntime provides Go bindings for the Wren scripting language.
//
// The Wren virtual machine - its compiler, bytecode interpreter and garbage
// collector - is consumed as a compiled WebAssembly core module and executed
// under wazero, so the bindings stay pure Go. This library forwards calls
// into the VM's C API exports, maps Wren's primitive types onto Go wrapper
// types, and backs the VM's heap with a host-managed allocator.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wrenruntime/        Root package with Memory, Grower and Allocator interfaces
//	├── vm/             High-level VM wrapper: interpret, call, slots, handles
//	├── engine/         wazero integration: guest exports and host callbacks
//	├── heap/           Host allocator and the tracked reallocate adapter
//	└── errors/         Structured error types for debugging
//
// # Quick Start
//
// Load the VM binary and run a script:
//
//	eng := engine.New(nil)
//	defer eng.Close(ctx)
//
//	mod, err := eng.LoadVM(wrenWasm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := vm.New(ctx, mod, &vm.Config{
//	    Write: func(text string) { fmt.Print(text) },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close(ctx)
//
//	err = w.Interpret(ctx, "main", `System.print("Hello, Wren!")`)
//
// # Memory Model
//
// Wren's configuration exposes a single reallocate callback through which
// every heap operation flows. The bindings install a host function for it
// and satisfy requests from a free-list allocator over the guest's linear
// memory, tracking each live block's size in a side table (the callback
// does not carry the old size on resize or free). See package heap.
//
// # Contracts
//
// The VM's own documented contracts apply unchanged: slot numbering,
// interpret and call result codes, and handle lifetime until explicit
// release. String and byte data owned by the VM is copied out of guest
// memory before a call returns, so no VM-owned pointer ever escapes to
// callers of this library.
//
// # Thread Safety
//
// A VM instance, its engine instance and its heap adapter form one
// single-threaded unit. Wren is re-entrant only through its own fibers;
// use one VM per goroutine or synchronize externally.
package wrenruntime
