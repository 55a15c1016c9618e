package fractal

import (
	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

// UpdateFunc emits one iteration's update: x' into l.Temp and y' into l.Y.
type UpdateFunc func(c *wasm.Code, l Layout)

// StepFunc computes one iteration natively, rounding after every operation
// in the same order UpdateFunc emits them.
type StepFunc func(x, y, cx, cy float64) (float64, float64)

// Descriptor is one registered fractal variant. Descriptors are values and
// the registry never changes after init.
type Descriptor struct {
	Name    string
	Family  Family
	Summary string
	Update  UpdateFunc
	Step    StepFunc
}

// Layout returns the slot assignment for the descriptor's family.
func (d Descriptor) Layout() Layout {
	return d.Family.Layout()
}

// Signature returns the export's function type.
func (d Descriptor) Signature() wasm.FuncType {
	return d.Layout().Signature()
}

// Instructions returns the complete function body, final end included.
func (d Descriptor) Instructions() []wasm.Instruction {
	var c wasm.Code
	emitLoop(&c, d.Layout(), d.Update)
	return c.Instructions()
}

// Func returns the descriptor as an assembler input.
func (d Descriptor) Func() wasm.Func {
	l := d.Layout()
	return wasm.Func{
		Name:   d.Name,
		Type:   l.Signature(),
		Locals: l.LocalTypes(),
		Code:   wasm.EncodeInstructions(d.Instructions()),
	}
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, error) {
	for _, d := range registry {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, errors.UnknownVariant(name)
}

// Names returns every registered variant name in registration order.
func Names() []string {
	names := make([]string, len(registry))
	for i, d := range registry {
		names[i] = d.Name
	}
	return names
}

// Descriptors returns a copy of the registry.
func Descriptors() []Descriptor {
	return append([]Descriptor(nil), registry...)
}
