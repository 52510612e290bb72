package vm

import "context"

// ForeignMethodFn implements a method declared foreign in script. It runs
// inside an Interpret or Call and communicates through the VM's slots:
// arguments arrive in slots 1..arity with the receiver in slot 0, and the
// return value is whatever slot 0 holds when the function returns.
type ForeignMethodFn func(ctx context.Context, vm *VM)

// ForeignClass carries the lifecycle hooks of a class declared foreign.
type ForeignClass struct {
	// Allocate runs when script constructs an instance. It must call
	// SetNewForeign on slot 0 to attach the instance's data block.
	Allocate ForeignMethodFn

	// Finalize runs from the interpreter's garbage collector with the
	// guest address of the instance's data block. It must not call back
	// into the VM. Nil if the class needs no finalizer.
	Finalize func(data uint32)
}

// Config carries the host side of the interpreter's configuration. All
// fields are optional; a zero Config runs scripts with output discarded and
// no imports available.
type Config struct {
	// Write receives System.print output and other script writes.
	Write func(text string)

	// Error receives every diagnostic as it is reported, in addition to
	// the diagnostics collected on the returned error.
	Error func(kind ErrorKind, module string, line int, message string)

	// ResolveModule canonicalizes an import string before loading.
	// Returning ok=false keeps the name as written.
	ResolveModule func(importer, name string) (resolved string, ok bool)

	// LoadModule supplies source for an import. Returning ok=false fails
	// the import.
	LoadModule func(name string) (source string, ok bool)

	// BindForeignMethod supplies the implementation of a foreign method.
	// Returning nil leaves the method unbound; calling it then aborts the
	// fiber.
	BindForeignMethod func(module, className string, isStatic bool, signature string) ForeignMethodFn

	// BindForeignClass supplies the lifecycle hooks of a foreign class.
	BindForeignClass func(module, className string) (ForeignClass, bool)

	// InitialHeapSize is the interpreter heap size in bytes before the
	// first garbage collection. 0 keeps the interpreter default (10 MiB).
	InitialHeapSize uint32

	// MinHeapSize is the floor the heap shrinks to after collection.
	// 0 keeps the interpreter default (1 MiB).
	MinHeapSize uint32

	// HeapGrowthPercent is how much the heap grows over live memory after
	// a collection. 0 keeps the interpreter default (50).
	HeapGrowthPercent uint32

	// UserData is an arbitrary host value retrievable with VM.UserData.
	UserData any
}
