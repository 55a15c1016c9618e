// Package engine loads fractal modules into wazero and calls their exports.
//
// It is the validating host for the encoder: a module that wazero compiles
// under WebAssembly 1.0 core features, whose exports match the compile-time
// contract, is structurally valid.
//
//	WazeroEngine   - owns a wazero runtime configured for core features V1
//	WazeroModule   - a compiled module; checks exports against a Contract
//	WazeroInstance - a running instance with cached export handles
//
// Typical use:
//
//	eng := engine.NewWazeroEngine(ctx)
//	defer eng.Close(ctx)
//
//	mod, err := eng.LoadModule(ctx, art.Binary)
//	if err != nil {
//	    return err
//	}
//	if err := mod.Check(art.Contract); err != nil {
//	    return err
//	}
//	inst, err := mod.Instantiate(ctx)
//	...
//	n, err := inst.Call(ctx, "mandelbrot", -0.75, 0.1, 100)
//
// # Thread Safety
//
// WazeroEngine and WazeroModule are safe for concurrent use.
// WazeroInstance and Function are NOT thread-safe and should be used by a
// single goroutine.
package engine
