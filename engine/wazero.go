package engine

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/fractal"
	"github.com/wippyai/fractal-wasm/wasm"
)

// WazeroEngine hosts fractal modules on a wazero runtime.
type WazeroEngine struct {
	runtime wazero.Runtime
	closed  atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// Interpreter selects wazero's interpreter instead of the compiler backend.
	Interpreter bool

	// Cache shares compiled code across engines. Optional.
	Cache wazero.CompilationCache
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) *WazeroEngine {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration.
// Only WebAssembly 1.0 core features are enabled; anything the encoder
// emits must load under them.
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) *WazeroEngine {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil {
		if cfg.Interpreter {
			runtimeCfg = wazero.NewRuntimeConfigInterpreter()
		}
		if cfg.Cache != nil {
			runtimeCfg = runtimeCfg.WithCompilationCache(cfg.Cache)
		}
	}
	runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV1)

	return &WazeroEngine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}
}

// LoadModule compiles a module binary. The binary is rejected if wazero
// cannot compile it or if any export does not take f64 arguments and return
// exactly one f64.
func (e *WazeroEngine) LoadModule(ctx context.Context, bin []byte) (*WazeroModule, error) {
	if e.closed.Load() {
		return nil, errors.InvalidInput(errors.PhaseLoad, "engine is closed")
	}

	compiled, err := e.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	m := &WazeroModule{
		engine:   e,
		compiled: compiled,
		sigs:     make(map[string]wasm.FuncType),
	}
	for name, def := range compiled.ExportedFunctions() {
		sig := funcType(def)
		if !f64Export(sig) {
			_ = compiled.Close(ctx)
			return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
				Path(name).
				Detail("export signature %s is not f64 arguments to one f64 result", sig).
				Build()
		}
		m.sigs[name] = sig
	}

	Logger().Debug("module compiled",
		zap.Int("bytes", len(bin)),
		zap.Int("exports", len(m.sigs)))

	return m, nil
}

// Verify loads bin, checks it against contract and calls every export once
// with max_iter = 0, which must return 0.
func (e *WazeroEngine) Verify(ctx context.Context, bin []byte, contract fractal.Contract) error {
	m, err := e.LoadModule(ctx, bin)
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	if err := m.Check(contract); err != nil {
		return err
	}

	inst, err := m.Instantiate(ctx)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	for _, entry := range contract.Entries {
		args := make([]float64, len(entry.Params))
		got, err := inst.Call(ctx, entry.Name, args...)
		if err != nil {
			return err
		}
		if got != 0 {
			return errors.New(errors.PhaseRuntime, errors.KindInvalidData).
				Path(entry.Name).
				Detail("max_iter 0 returned %v", got).
				Build()
		}
	}
	return nil
}

// Close releases the runtime and every module compiled by it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.runtime.Close(ctx)
}

// WazeroModule is a compiled module. It is safe for concurrent use;
// instances created from it are not.
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
	sigs     map[string]wasm.FuncType
}

// Exports returns the exported function names, sorted.
func (m *WazeroModule) Exports() []string {
	names := make([]string, 0, len(m.sigs))
	for name := range m.sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signature returns the host-visible signature of an export.
func (m *WazeroModule) Signature(name string) (wasm.FuncType, bool) {
	sig, ok := m.sigs[name]
	return sig, ok
}

// Check verifies that every contract entry is exported with the recorded signature.
func (m *WazeroModule) Check(contract fractal.Contract) error {
	for _, entry := range contract.Entries {
		got, ok := m.sigs[entry.Name]
		if !ok {
			return errors.NotFound(errors.PhaseLoad, "export", entry.Name)
		}
		if !got.Equal(entry.Signature) {
			return errors.SignatureMismatch(entry.Name, entry.Signature.String(), got.String())
		}
	}
	return nil
}

// Instantiate creates an anonymous instance, so a module can be instantiated
// many times in parallel.
func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	return &WazeroInstance{
		module:    m,
		instance:  mod,
		funcCache: make(map[string]*Function),
	}, nil
}

// Close releases the compiled code.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

func funcType(def api.FunctionDefinition) wasm.FuncType {
	ft := wasm.FuncType{
		Params:  make([]wasm.ValType, len(def.ParamTypes())),
		Results: make([]wasm.ValType, len(def.ResultTypes())),
	}
	// wazero value types use the binary encoding
	for i, p := range def.ParamTypes() {
		ft.Params[i] = wasm.ValType(p)
	}
	for i, r := range def.ResultTypes() {
		ft.Results[i] = wasm.ValType(r)
	}
	return ft
}

func f64Export(sig wasm.FuncType) bool {
	if len(sig.Results) != 1 || sig.Results[0] != wasm.ValF64 {
		return false
	}
	for _, p := range sig.Params {
		if p != wasm.ValF64 {
			return false
		}
	}
	return true
}
