package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/errors"
	"github.com/wippyai/wren-runtime/heap"
	"github.com/wippyai/wren-runtime/vm"
)

func main() {
	var (
		vmPath      = flag.String("vm", "wren.wasm", "Path to the Wren VM wasm binary")
		moduleName  = flag.String("module", "main", "Module name for the script")
		moduleDir   = flag.String("dir", "", "Directory imports load from (default: the script's directory)")
		interactive = flag.Bool("i", false, "Interactive REPL")
		verbose     = flag.Bool("v", false, "Debug logging to stderr")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			heap.SetLogger(logger)
			engine.SetLogger(logger)
			vm.SetLogger(logger)
		}
	}

	script := flag.Arg(0)
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))

	if *interactive || (script == "" && stdinTTY) {
		if err := runInteractive(*vmPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*vmPath, script, *moduleName, *moduleDir); err != nil {
		var se *errors.ScriptError
		if !errorsAs(err, &se) {
			// Script errors already went to stderr through the error
			// callback; everything else is reported here.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(vmPath, script, moduleName, moduleDir string) error {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(vmPath)
	if err != nil {
		return fmt.Errorf("read VM binary: %w", err)
	}

	var source []byte
	if script == "" {
		source, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	} else {
		source, err = os.ReadFile(script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		if moduleDir == "" {
			moduleDir = filepath.Dir(script)
		}
	}
	if moduleDir == "" {
		moduleDir = "."
	}

	eng := engine.New(nil)
	defer eng.Close(ctx)

	mod, err := eng.LoadVM(wasmBytes)
	if err != nil {
		return err
	}

	v, err := vm.New(ctx, mod, &vm.Config{
		Write: func(text string) { fmt.Print(text) },
		Error: printDiagnostic,
		LoadModule: func(name string) (string, bool) {
			return loadModuleFile(moduleDir, name)
		},
	})
	if err != nil {
		return err
	}
	defer v.Close(ctx)

	return v.Interpret(ctx, moduleName, string(source))
}

// printDiagnostic formats the error callback the way the reference CLI does.
func printDiagnostic(kind vm.ErrorKind, module string, line int, message string) {
	switch kind {
	case vm.ErrorCompile:
		fmt.Fprintf(os.Stderr, "[%s line %d] %s\n", module, line, message)
	case vm.ErrorRuntime:
		fmt.Fprintf(os.Stderr, "%s\n", message)
	case vm.ErrorStackTrace:
		fmt.Fprintf(os.Stderr, "[%s line %d] in %s\n", module, line, message)
	}
}

// loadModuleFile resolves `import "name"` to <dir>/<name>.wren.
func loadModuleFile(dir, name string) (string, bool) {
	if strings.Contains(name, "..") {
		return "", false
	}
	path := filepath.Join(dir, filepath.FromSlash(name))
	if filepath.Ext(path) == "" {
		path += ".wren"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func errorsAs(err error, target **errors.ScriptError) bool {
	for err != nil {
		if se, ok := err.(*errors.ScriptError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
