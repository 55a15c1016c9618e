package wasm

import (
	"github.com/wippyai/fractal-wasm/errors"
)

// Func is one exported function handed to the module assembler.
type Func struct {
	Name   string
	Type   FuncType
	Locals []ValType // declared locals, parameters excluded
	Code   []byte    // instruction bytes including the trailing end
}

// BuildModule lays out funcs as a module: signatures are deduplicated in
// first-appearance order, function i is exported under funcs[i].Name with
// index i, and code bodies follow declaration order.
func BuildModule(funcs []Func) (*Module, error) {
	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseEncode, "no functions to assemble")
	}

	m := &Module{
		Funcs:   make([]uint32, 0, len(funcs)),
		Exports: make([]Export, 0, len(funcs)),
		Code:    make([]FuncBody, 0, len(funcs)),
	}
	seen := make(map[string]struct{}, len(funcs))

	for i, f := range funcs {
		if _, dup := seen[f.Name]; dup {
			return nil, errors.Duplicate(errors.PhaseEncode, "export", f.Name)
		}
		seen[f.Name] = struct{}{}

		m.Funcs = append(m.Funcs, m.typeIndex(f.Type))
		m.Exports = append(m.Exports, Export{Name: f.Name, Kind: KindFunc, Idx: uint32(i)})
		m.Code = append(m.Code, FuncBody{Locals: GroupLocals(f.Locals), Code: f.Code})
	}

	return m, nil
}

// typeIndex returns the index of ft in the type list, appending it when new.
func (m *Module) typeIndex(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if existing.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// Assemble builds and encodes a module in one step.
func Assemble(funcs []Func) ([]byte, error) {
	m, err := BuildModule(funcs)
	if err != nil {
		return nil, err
	}
	return m.Encode(), nil
}
