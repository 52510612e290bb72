// Package errors provides structured error types for the wren-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes context relevant to an embedded script
// VM: module name, line number, slot index, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSlot, errors.KindTypeMismatch).
//		Slot(2).
//		Detail("slot holds a list, want a string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(2, "list", "string")
//	err := errors.AllocationFailed(errors.PhaseMemory, 1024)
//
// Failures reported by the VM itself (compile and runtime errors in
// executed scripts) are surfaced as ScriptError, carrying every diagnostic
// the VM emitted through its error callback.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
