package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // VM configuration
	PhaseLoad      Phase = "load"      // loading the VM module
	PhaseInterpret Phase = "interpret" // interpreting source
	PhaseCall      Phase = "call"      // invoking a call handle
	PhaseSlot      Phase = "slot"      // slot access
	PhaseHandle    Phase = "handle"    // handle lifetime
	PhaseMemory    Phase = "memory"    // linear memory and heap
	PhaseHost      Phase = "host"      // host callback dispatch
)

// Kind categorizes the error
type Kind string

const (
	KindCompileError   Kind = "compile_error"
	KindRuntimeError   Kind = "runtime_error"
	KindAllocation     Kind = "allocation"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindTypeMismatch   Kind = "type_mismatch"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInstantiation  Kind = "instantiation"
	KindMissingExport  Kind = "missing_export"
	KindClosed         Kind = "closed"
)

// Error is the structured error type used throughout the bindings
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Detail string
	Slot   int
	Line   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in ")
		b.WriteString(e.Module)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the script module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Line sets the script line number
func (b *Builder) Line(line int) *Builder {
	b.err.Line = line
	return b
}

// Slot sets the offending slot index
func (b *Builder) Slot(slot int) *Builder {
	b.err.Slot = slot
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access out of bounds: offset=%d length=%d", offset, length),
		Value:  offset,
	}
}

// TypeMismatch creates a type mismatch error for a slot read
func TypeMismatch(slot int, got, want string) *Error {
	return &Error{
		Phase:  PhaseSlot,
		Kind:   KindTypeMismatch,
		Slot:   slot,
		Detail: fmt.Sprintf("slot %d holds %s, want %s", slot, got, want),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Closed reports an operation against a VM that has been shut down
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "vm is closed",
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExport reports a wren_* entry point absent from the VM binary
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("vm module does not export %q", name),
	}
}

// Diagnostic is one message reported through the VM's error callback.
type Diagnostic struct {
	Module  string
	Message string
	Line    int
	Stack   bool // true for stack trace frames
}

// ScriptError is returned when interpret or call fails inside the VM.
// It carries the diagnostics the VM reported through its error callback.
type ScriptError struct {
	Kind        Kind // KindCompileError or KindRuntimeError
	Diagnostics []Diagnostic
}

// CompileError creates a ScriptError for a compile failure
func CompileError(diags []Diagnostic) *ScriptError {
	return &ScriptError{Kind: KindCompileError, Diagnostics: diags}
}

// RuntimeError creates a ScriptError for a runtime failure
func RuntimeError(diags []Diagnostic) *ScriptError {
	return &ScriptError{Kind: KindRuntimeError, Diagnostics: diags}
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))

	for _, d := range e.Diagnostics {
		b.WriteString("\n  ")
		if d.Stack {
			b.WriteString("at ")
		}
		if d.Module != "" {
			b.WriteString(d.Module)
			if d.Line > 0 {
				fmt.Fprintf(&b, ":%d", d.Line)
			}
			b.WriteString(": ")
		}
		b.WriteString(d.Message)
	}

	return b.String()
}

// Is reports whether target matches this error type and kind
func (e *ScriptError) Is(target error) bool {
	t, ok := target.(*ScriptError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}
