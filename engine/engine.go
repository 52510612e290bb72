package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wrenruntime "github.com/wippyai/wren-runtime"
	"github.com/wippyai/wren-runtime/errors"
	"github.com/wippyai/wren-runtime/heap"
)

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// CompilationCache is shared across instances so repeat instantiation of
	// the same VM binary skips recompilation. Nil creates a private cache
	// owned (and closed) by the engine.
	CompilationCache wazero.CompilationCache
}

// Engine creates VM instances. Each instance gets a private wazero runtime;
// the engine contributes the shared compilation cache and memory limits.
type Engine struct {
	cfg        Config
	cache      wazero.CompilationCache
	ownedCache bool
}

// New creates an engine. Pass nil for defaults.
func New(cfg *Config) *Engine {
	e := &Engine{}
	if cfg != nil {
		e.cfg = *cfg
	}
	if e.cfg.CompilationCache != nil {
		e.cache = e.cfg.CompilationCache
	} else {
		e.cache = wazero.NewCompilationCache()
		e.ownedCache = true
	}
	return e
}

// LoadVM wraps a VM core module binary. The binary is compiled lazily, per
// instance, against the shared compilation cache.
func (e *Engine) LoadVM(wasmBytes []byte) (*Module, error) {
	if len(wasmBytes) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty VM binary")
	}
	return &Module{engine: e, wasm: wasmBytes}, nil
}

// Close releases the engine's owned compilation cache. Instances created
// from this engine must be closed first.
func (e *Engine) Close(ctx context.Context) error {
	if e.ownedCache {
		return e.cache.Close(ctx)
	}
	return nil
}

// Module is a loaded VM binary. Safe for concurrent use.
type Module struct {
	engine *Engine
	wasm   []byte
}

// Callbacks receives the guest's configuration callbacks. The id values
// used by the foreign binding calls are opaque to the guest: the host hands
// them out from the Bind* calls and gets them back on invocation, with 0
// meaning unbound.
type Callbacks interface {
	// Write receives WrenWriteFn output, e.g. from System.print.
	Write(text string)

	// Error receives compile errors, runtime errors and stack trace lines.
	Error(kind int32, module string, line int32, message string)

	// ResolveModule maps an import string to a canonical module name.
	// Returning ok=false keeps the name as written.
	ResolveModule(importer, name string) (resolved string, ok bool)

	// LoadModule supplies source for an imported module. Returning ok=false
	// makes the import fail with a module-not-found runtime error.
	LoadModule(name string) (source string, ok bool)

	// BindForeignMethod maps a foreign method declaration to an id.
	BindForeignMethod(module, className string, isStatic bool, signature string) (id uint32, ok bool)

	// ForeignMethod invokes a previously bound foreign method.
	ForeignMethod(id uint32)

	// BindForeignClass maps a foreign class declaration to an id.
	BindForeignClass(module, className string) (id uint32, ok bool)

	// ForeignAllocate runs when the guest constructs an instance of a bound
	// foreign class.
	ForeignAllocate(id uint32)

	// ForeignFinalize runs from the guest's garbage collector with the
	// instance's foreign data address. No VM calls are legal inside it.
	ForeignFinalize(id uint32, data uint32)
}

// Instantiate creates a running VM guest. The instance owns a private
// runtime so the host module's closures bind to exactly one guest.
//
// Not safe for concurrent use once returned; one instance per goroutine.
func (m *Module) Instantiate(ctx context.Context, callbacks Callbacks) (*Instance, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCompilationCache(m.engine.cache)
	if m.engine.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(m.engine.cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	inst := &Instance{
		runtime:   r,
		callbacks: callbacks,
		funcs:     make(map[string]api.Function, len(requiredExports)),
	}

	if err := buildHostModule(ctx, r, inst); err != nil {
		r.Close(ctx)
		return nil, errors.Instantiation("build host module", err)
	}

	compiled, err := r.CompileModule(ctx, m.wasm)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Instantiation("compile VM binary", err)
	}

	module, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		r.Close(ctx)
		return nil, errors.Instantiation("instantiate VM binary", err)
	}

	mem := module.Memory()
	if mem == nil {
		r.Close(ctx)
		return nil, errors.Instantiation("VM binary exports no memory", nil)
	}
	linear := newLinearMemory(mem)

	inst.module = module
	inst.mem = linear
	inst.heap = heap.NewAdapter(heap.NewFreeList(linear, linear))

	for _, name := range requiredExports {
		fn := module.ExportedFunction(name)
		if fn == nil {
			r.Close(ctx)
			return nil, errors.MissingExport(name)
		}
		inst.funcs[name] = fn
	}

	Logger().Debug("instantiated VM guest",
		zap.Uint32("memory_bytes", linear.Size()),
		zap.Int("exports", len(inst.funcs)))
	return inst, nil
}

// Instance is a running VM guest: its module, linear memory, heap adapter
// and cached entry points.
//
// It is NOT safe for concurrent use from multiple goroutines.
type Instance struct {
	runtime   wazero.Runtime
	module    api.Module
	mem       *linearMemory
	heap      *heap.Adapter
	callbacks Callbacks
	funcs     map[string]api.Function
	closed    bool
}

// Invoke calls a guest export by name.
func (i *Instance) Invoke(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.closed {
		return nil, errors.Closed(errors.PhaseCall)
	}
	fn, ok := i.funcs[name]
	if !ok {
		return nil, errors.MissingExport(name)
	}
	return fn.Call(ctx, args...)
}

// Memory returns the guest's linear memory.
func (i *Instance) Memory() wrenruntime.Memory { return i.mem }

// Heap returns the heap adapter backing the guest's reallocate import.
func (i *Instance) Heap() *heap.Adapter { return i.heap }

// Close tears the instance down: heap adapter first (its blocks live in
// guest memory), then the runtime. The caller must destroy the guest VM
// (wren_free_vm) before Close, or the adapter frees memory the VM still
// considers live. Idempotent.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	if i.heap != nil {
		i.heap.Close()
	}
	return i.runtime.Close(ctx)
}
