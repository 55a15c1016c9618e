package fractal

import (
	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

// Artifact is the output of Compile.
type Artifact struct {
	Binary   []byte
	Module   *wasm.Module
	Contract Contract
}

// Compile builds a module exporting the named variants in the given order.
// Names are resolved and checked before any code is generated, so an unknown
// or repeated name yields an error and no bytes. The assembled module is
// validated before it is encoded.
func Compile(names ...string) (*Artifact, error) {
	if len(names) == 0 {
		return nil, errors.InvalidInput(errors.PhaseCompile, "no variants selected")
	}

	descs := make([]Descriptor, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, errors.Duplicate(errors.PhaseCompile, "variant", name)
		}
		seen[name] = struct{}{}

		d, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}

	funcs := make([]wasm.Func, len(descs))
	for i, d := range descs {
		funcs[i] = d.Func()
	}

	m, err := wasm.BuildModule(funcs)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	contract, err := newContract(m, descs)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidData, err, "contract")
	}

	return &Artifact{
		Binary:   m.Encode(),
		Module:   m,
		Contract: contract,
	}, nil
}

// CompileAll builds a module exporting every registered variant.
func CompileAll() (*Artifact, error) {
	return Compile(Names()...)
}
