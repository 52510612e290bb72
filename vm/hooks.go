package vm

import (
	"go.uber.org/zap"

	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/errors"
)

// hostHooks adapts a VM to the engine's callback surface. Foreign bindings
// are interned here: the guest sees dense ids, the VM keeps the functions.
type hostHooks struct {
	vm *VM
}

var _ engine.Callbacks = (*hostHooks)(nil)

func (h *hostHooks) Write(text string) {
	if h.vm.cfg.Write != nil {
		h.vm.cfg.Write(text)
	}
}

func (h *hostHooks) Error(kind int32, module string, line int32, message string) {
	k := ErrorKind(kind)
	h.vm.diags = append(h.vm.diags, errors.Diagnostic{
		Module:  module,
		Message: message,
		Line:    int(line),
		Stack:   k == ErrorStackTrace,
	})
	if h.vm.cfg.Error != nil {
		h.vm.cfg.Error(k, module, int(line), message)
	}
}

func (h *hostHooks) ResolveModule(importer, name string) (string, bool) {
	if h.vm.cfg.ResolveModule == nil {
		return "", false
	}
	return h.vm.cfg.ResolveModule(importer, name)
}

func (h *hostHooks) LoadModule(name string) (string, bool) {
	if h.vm.cfg.LoadModule == nil {
		return "", false
	}
	return h.vm.cfg.LoadModule(name)
}

func (h *hostHooks) BindForeignMethod(module, className string, isStatic bool, signature string) (uint32, bool) {
	if h.vm.cfg.BindForeignMethod == nil {
		return 0, false
	}
	fn := h.vm.cfg.BindForeignMethod(module, className, isStatic, signature)
	if fn == nil {
		return 0, false
	}
	h.vm.foreignMethods = append(h.vm.foreignMethods, fn)
	return uint32(len(h.vm.foreignMethods)), true
}

func (h *hostHooks) ForeignMethod(id uint32) {
	if id == 0 || int(id) > len(h.vm.foreignMethods) {
		Logger().Warn("foreign method call with unknown id", zap.Uint32("id", id))
		return
	}
	h.vm.foreignMethods[id-1](h.vm.callContext(), h.vm)
}

func (h *hostHooks) BindForeignClass(module, className string) (uint32, bool) {
	if h.vm.cfg.BindForeignClass == nil {
		return 0, false
	}
	class, ok := h.vm.cfg.BindForeignClass(module, className)
	if !ok {
		return 0, false
	}
	h.vm.foreignClasses = append(h.vm.foreignClasses, class)
	return uint32(len(h.vm.foreignClasses)), true
}

func (h *hostHooks) ForeignAllocate(id uint32) {
	if id == 0 || int(id) > len(h.vm.foreignClasses) {
		Logger().Warn("foreign allocate with unknown id", zap.Uint32("id", id))
		return
	}
	if fn := h.vm.foreignClasses[id-1].Allocate; fn != nil {
		fn(h.vm.callContext(), h.vm)
	}
}

func (h *hostHooks) ForeignFinalize(id uint32, data uint32) {
	if id == 0 || int(id) > len(h.vm.foreignClasses) {
		Logger().Warn("foreign finalize with unknown id", zap.Uint32("id", id))
		return
	}
	if fn := h.vm.foreignClasses[id-1].Finalize; fn != nil {
		fn(data)
	}
}
