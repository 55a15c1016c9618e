package fractalwasm

import "github.com/wippyai/fractal-wasm/fractal"

// Build returns a module exporting the named variants in the given order.
// With no names every registered variant is exported.
func Build(names ...string) ([]byte, error) {
	var (
		art *fractal.Artifact
		err error
	)
	if len(names) == 0 {
		art, err = fractal.CompileAll()
	} else {
		art, err = fractal.Compile(names...)
	}
	if err != nil {
		return nil, err
	}
	return art.Binary, nil
}

// Variants lists the registered variant names in registry order.
func Variants() []string {
	return fractal.Names()
}
