package fractal

import (
	"fmt"

	"github.com/wippyai/fractal-wasm/errors"
)

// Iterate runs the escape-time loop natively from the orbit point (x, y)
// with constant (cx, cy). It returns the same value, bit for bit, as the
// descriptor's compiled export.
func (d Descriptor) Iterate(x, y, cx, cy, maxIter float64) float64 {
	iter := 0.0
	for {
		if iter >= maxIter {
			return iter
		}
		if float64(x*x)+float64(y*y) > EscapeRadiusSquared {
			return iter
		}
		x, y = d.Step(x, y, cx, cy)
		iter += 1
	}
}

// Eval evaluates the descriptor with arguments in export parameter order.
func (d Descriptor) Eval(args ...float64) (float64, error) {
	l := d.Layout()
	if len(args) != len(l.Params) {
		return 0, errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("%s takes %d arguments, got %d", d.Name, len(l.Params), len(args)))
	}
	if d.Family == FamilyJulia {
		return d.Iterate(args[0], args[1], args[2], args[3], args[4]), nil
	}
	return d.Iterate(0, 0, args[0], args[1], args[2]), nil
}

// Reference evaluates the named variant natively.
func Reference(name string, args ...float64) (float64, error) {
	d, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	return d.Eval(args...)
}
