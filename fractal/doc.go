// Package fractal compiles escape-time fractal formulas into WebAssembly.
//
// Each variant is a Descriptor: a name, a parameter family, an emitter for
// the per-iteration update and a native step function with the same operation
// order. Every variant shares one loop skeleton:
//
//	block
//	  loop
//	    iter >= max_iter ; br_if 1
//	    x*x + y*y > 4.0 ; if ; iter ; return ; end
//	    temp = x' ; y = y'
//	    x = temp
//	    iter = iter + 1.0
//	    br 0
//	  end
//	end
//	iter
//
// Compile selects variants by name and returns a module with one export per
// variant plus the Contract describing those exports:
//
//	art, err := fractal.Compile("mandelbrot", "julia")
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("fractals.wasm", art.Binary, 0o644)
//
// The package holds no mutable state; concurrent calls to Compile are safe.
package fractal
