// Package fractalwasm compiles escape-time fractal iterations into
// WebAssembly 1.0 modules without a toolchain.
//
// Each registered variant becomes one exported function that takes f64
// arguments and returns the iteration count as f64. Modules are assembled
// byte by byte: only the type, function, export and code sections are
// written, and every export runs in a single loop over f64 locals.
//
// # Architecture Overview
//
//	fractalwasm/         Root package with the one-call Build helper
//	├── wasm/            Instructions, LEB128, section encoding and decoding, validation
//	├── fractal/         Variant registry, loop skeleton, formulas and native reference
//	├── engine/          wazero host that loads, checks and calls compiled modules
//	├── bench/           Native versus wasm timing over a point grid
//	├── manifest/        TOML build manifest
//	├── errors/          Structured error types
//	└── cmd/fractalc/    Command line: build, inspect, bench, variants, explore
//
// # Quick Start
//
// Compile two variants and call one through wazero:
//
//	bin, err := fractalwasm.Build("mandelbrot", "julia")
//	if err != nil {
//	    return err
//	}
//	eng := engine.NewWazeroEngine(ctx)
//	defer eng.Close(ctx)
//	mod, err := eng.LoadModule(ctx, bin)
//	inst, err := mod.Instantiate(ctx)
//	n, err := inst.Call(ctx, "mandelbrot", -0.75, 0.1, 100) // 33
//
// # Variants
//
// Escape variants take (cx, cy, max_iter) and start the orbit at zero:
// mandelbrot, burning_ship, tricorn, celtic, buffalo,
// perpendicular_burning_ship and multibrot. The julia variant takes
// (zx, zy, c_re, c_im, max_iter) and starts the orbit at z.
//
// An orbit escapes once x*x + y*y exceeds 4. The returned count is the
// number of completed iterations, never more than max_iter.
package fractalwasm
