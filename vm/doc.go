// Package vm is the high-level interface to an embedded Wren interpreter.
//
// A VM wraps one guest interpreter: its slots, handles and module registry.
// Construction takes a loaded engine.Module and a Config carrying the host
// callbacks (print output, error reporting, module loading, foreign
// bindings):
//
//	eng := engine.New(nil)
//	mod, err := eng.LoadVM(wasmBytes)
//	vm, err := vm.New(ctx, mod, &vm.Config{
//		Write: func(text string) { fmt.Print(text) },
//	})
//	defer vm.Close(ctx)
//
//	err = vm.Interpret(ctx, "main", `System.print("hello")`)
//
// # Slots
//
// Values cross the host/interpreter boundary through the slot array, exactly
// as in the C API: EnsureSlots reserves capacity, Set* writes a slot, Get*
// reads one. Strings and byte slices are copied out during the call, so they
// stay valid after the interpreter reuses its buffers.
//
// # Handles
//
// Handle pins an interpreter value so it survives garbage collection.
// MakeCallHandle compiles a method signature into a reusable handle for
// Call. Every handle must be released exactly once before Close; releasing
// twice is a programming error and panics.
//
// # Errors
//
// Interpret and Call return *errors.ScriptError carrying the diagnostics
// the interpreter reported (compile errors, the runtime error message and
// its stack trace). Host-side failures use *errors.Error.
//
// # Thread Safety
//
// A VM is not safe for concurrent use. Use one VM per goroutine or
// synchronize externally.
package vm
