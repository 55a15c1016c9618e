package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/fractal-wasm/errors"
)

// WazeroInstance is a running module. It is NOT thread-safe; give each
// goroutine its own instance.
type WazeroInstance struct {
	module    *WazeroModule
	instance  api.Module
	funcCache map[string]*Function
}

// Function returns a callable handle for an export. Handles are cached per
// instance and share its thread-safety rules.
func (i *WazeroInstance) Function(name string) (*Function, error) {
	if fn, ok := i.funcCache[name]; ok {
		return fn, nil
	}
	if i.instance == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "instance is closed")
	}
	sig, ok := i.module.sigs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	fn := &Function{
		name:  name,
		fn:    i.instance.ExportedFunction(name),
		arity: len(sig.Params),
		stack: make([]uint64, max(len(sig.Params), len(sig.Results))),
	}
	i.funcCache[name] = fn
	return fn, nil
}

// Call invokes an export with f64 arguments.
func (i *WazeroInstance) Call(ctx context.Context, name string, args ...float64) (float64, error) {
	fn, err := i.Function(name)
	if err != nil {
		return 0, err
	}
	return fn.Call(ctx, args...)
}

func (i *WazeroInstance) Close(ctx context.Context) error {
	var err error
	if i.instance != nil {
		err = i.instance.Close(ctx)
		i.instance = nil
	}
	i.funcCache = nil
	return err
}

// Function is an export bound to one instance. It reuses a single stack
// buffer, so calls must not overlap.
type Function struct {
	fn    api.Function
	name  string
	stack []uint64
	arity int
}

// Name returns the export name.
func (f *Function) Name() string { return f.name }

// Call invokes the export and decodes its single f64 result.
func (f *Function) Call(ctx context.Context, args ...float64) (float64, error) {
	if len(args) != f.arity {
		return 0, errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("%s takes %d arguments, got %d", f.name, f.arity, len(args)))
	}
	for j, a := range args {
		f.stack[j] = api.EncodeF64(a)
	}
	if err := f.fn.CallWithStack(ctx, f.stack); err != nil {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Path(f.name).
			Detail("call failed").
			Cause(err).
			Build()
	}
	return api.DecodeF64(f.stack[0]), nil
}
