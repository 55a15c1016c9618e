package fractal

import (
	"github.com/wippyai/fractal-wasm/wasm"
)

// EscapeRadiusSquared is the escape threshold; an orbit escapes once
// x*x + y*y is strictly greater than it.
const EscapeRadiusSquared = 4.0

// Family selects the parameter list of a variant and where its orbit starts.
type Family int

const (
	// FamilyEscape variants take (cx, cy, max_iter) and start the orbit at 0.
	FamilyEscape Family = iota
	// FamilyJulia variants take (zx, zy, c_re, c_im, max_iter) and start the orbit at z.
	FamilyJulia
)

func (f Family) String() string {
	switch f {
	case FamilyEscape:
		return "escape"
	case FamilyJulia:
		return "julia"
	default:
		return "unknown"
	}
}

// Layout assigns local slots for one family. Parameters come first, then
// declared f64 locals.
type Layout struct {
	X, Y   uint32 // current orbit point
	CX, CY uint32 // additive constant
	Max    uint32
	Iter   uint32
	Temp   uint32 // holds x' while y' is computed from the old x

	Params []string // parameter names in order
	Locals int      // declared f64 locals
}

// Layout returns the slot assignment for the family.
func (f Family) Layout() Layout {
	if f == FamilyJulia {
		// x and y alias zx and zy
		return Layout{
			X: 0, Y: 1, CX: 2, CY: 3, Max: 4, Iter: 5, Temp: 6,
			Params: []string{"zx", "zy", "c_re", "c_im", "max_iter"},
			Locals: 2,
		}
	}
	return Layout{
		CX: 0, CY: 1, Max: 2, X: 3, Y: 4, Iter: 5, Temp: 6,
		Params: []string{"cx", "cy", "max_iter"},
		Locals: 4,
	}
}

// Signature takes every parameter as f64 and returns the iteration count as f64.
func (l Layout) Signature() wasm.FuncType {
	params := make([]wasm.ValType, len(l.Params))
	for i := range params {
		params[i] = wasm.ValF64
	}
	return wasm.FuncType{Params: params, Results: []wasm.ValType{wasm.ValF64}}
}

// LocalTypes lists the declared locals, parameters excluded.
func (l Layout) LocalTypes() []wasm.ValType {
	locals := make([]wasm.ValType, l.Locals)
	for i := range locals {
		locals[i] = wasm.ValF64
	}
	return locals
}

// emitLoop writes the full function body around update. update must leave
// the new x in Temp and the new y in Y, reading x and y only before either
// is overwritten.
func emitLoop(c *wasm.Code, l Layout, update UpdateFunc) {
	c.Emit(
		wasm.Block(),
		wasm.Loop(),

		// bound reached: leave both blocks with iter unchanged
		wasm.LocalGet(l.Iter),
		wasm.LocalGet(l.Max),
		wasm.F64Ge(),
		wasm.BrIf(1),

		wasm.LocalGet(l.X),
		wasm.LocalGet(l.X),
		wasm.F64Mul(),
		wasm.LocalGet(l.Y),
		wasm.LocalGet(l.Y),
		wasm.F64Mul(),
		wasm.F64Add(),
		wasm.F64Const(EscapeRadiusSquared),
		wasm.F64Gt(),
		wasm.If(),
		wasm.LocalGet(l.Iter),
		wasm.Return(),
		wasm.End(),
	)

	update(c, l)

	c.Emit(
		wasm.LocalGet(l.Temp),
		wasm.LocalSet(l.X),

		wasm.LocalGet(l.Iter),
		wasm.F64Const(1),
		wasm.F64Add(),
		wasm.LocalSet(l.Iter),

		wasm.Br(0),
		wasm.End(),
		wasm.End(),

		wasm.LocalGet(l.Iter),
		wasm.End(),
	)
}
