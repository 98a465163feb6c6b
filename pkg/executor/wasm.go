package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasmDriver runs tool implementations compiled to WebAssembly under
// wazero, sandboxed away from the host: a tool's capability surface is
// exactly what its module imports, nothing more. This is the opt-in
// replacement for SimulatedDriver when an operator wants to execute real
// tool logic without granting it host process access.
type WasmDriver struct {
	runtime wazero.Runtime
	modules map[string]wazero.CompiledModule
}

// NewWasmDriver builds a wazero runtime with WASI preview1 wired in and
// compiles each named module's bytes up front, so a later Execute call
// never pays compilation cost.
func NewWasmDriver(ctx context.Context, modules map[string][]byte) (*WasmDriver, error) {
	runtime := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("executor: instantiate WASI: %w", err)
	}

	compiled := make(map[string]wazero.CompiledModule, len(modules))
	for name, bytecode := range modules {
		mod, err := runtime.CompileModule(ctx, bytecode)
		if err != nil {
			return nil, fmt.Errorf("executor: compile wasm module %s: %w", name, err)
		}
		compiled[name] = mod
	}

	return &WasmDriver{runtime: runtime, modules: compiled}, nil
}

// Close releases the wazero runtime and every compiled module it holds.
func (w *WasmDriver) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

// Execute instantiates toolName's compiled module fresh for this call (a
// wazero module instance is not safe for concurrent reuse across calls
// with different memory state) and passes params to it JSON-encoded on
// WASI stdin (argv holds only toolName), returning whatever the module
// wrote to stdout as the decoded result.
func (w *WasmDriver) Execute(ctx context.Context, toolName string, params map[string]any) (any, error) {
	mod, ok := w.modules[toolName]
	if !ok {
		return nil, fmt.Errorf("executor: no wasm module registered for tool %q", toolName)
	}

	paramBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("executor: marshal params for %s: %w", toolName, err)
	}

	stdout := &jsonCaptureWriter{}
	cfg := wazero.NewModuleConfig().
		WithStdin(newBytesReader(paramBytes)).
		WithStdout(stdout).
		WithArgs(toolName)

	instance, err := w.runtime.InstantiateModule(ctx, mod, cfg)
	if err != nil {
		return nil, fmt.Errorf("executor: run wasm module %s: %w", toolName, err)
	}
	defer instance.Close(ctx)

	var result any
	if len(stdout.data) > 0 {
		if err := json.Unmarshal(stdout.data, &result); err != nil {
			return nil, fmt.Errorf("executor: decode wasm result for %s: %w", toolName, err)
		}
	}
	return result, nil
}
