package fractal

import (
	"math"

	"github.com/wippyai/fractal-wasm/wasm"
)

// Registration order is the default export order.
var registry = []Descriptor{
	{
		Name:    "mandelbrot",
		Family:  FamilyEscape,
		Summary: "z² + c",
		Update:  updateMandelbrot,
		Step:    stepMandelbrot,
	},
	{
		Name:    "burning_ship",
		Family:  FamilyEscape,
		Summary: "(|x| + i|y|)² + c",
		Update:  updateBurningShip,
		Step:    stepBurningShip,
	},
	{
		Name:    "tricorn",
		Family:  FamilyEscape,
		Summary: "conj(z)² + c",
		Update:  updateTricorn,
		Step:    stepTricorn,
	},
	{
		Name:    "julia",
		Family:  FamilyJulia,
		Summary: "z² + c, z from the point, c fixed",
		Update:  updateMandelbrot,
		Step:    stepMandelbrot,
	},
	{
		Name:    "celtic",
		Family:  FamilyEscape,
		Summary: "|x² - y²| + 2ixy + c",
		Update:  updateCeltic,
		Step:    stepCeltic,
	},
	{
		Name:    "buffalo",
		Family:  FamilyEscape,
		Summary: "|x² - y²| - 2i|x||y| + c",
		Update:  updateBuffalo,
		Step:    stepBuffalo,
	},
	{
		Name:    "perpendicular_burning_ship",
		Family:  FamilyEscape,
		Summary: "x² - y² - 2ix|y| + c",
		Update:  updatePerpendicular,
		Step:    stepPerpendicular,
	},
	{
		Name:    "multibrot",
		Family:  FamilyEscape,
		Summary: "z³ + c",
		Update:  updateMultibrot,
		Step:    stepMultibrot,
	},
}

// Emitter fragments. Each pushes one f64.

func square(c *wasm.Code, slot uint32) {
	c.Emit(wasm.LocalGet(slot), wasm.LocalGet(slot), wasm.F64Mul())
}

func absSquare(c *wasm.Code, slot uint32) {
	c.Emit(wasm.LocalGet(slot), wasm.F64Abs(), wasm.LocalGet(slot), wasm.F64Abs(), wasm.F64Mul())
}

// x*x - y*y
func squareDiff(c *wasm.Code, l Layout) {
	square(c, l.X)
	square(c, l.Y)
	c.Emit(wasm.F64Sub())
}

// k*a*b, optionally taking |a| and |b|
func scaledProduct(c *wasm.Code, k float64, a uint32, absA bool, b uint32, absB bool) {
	c.Emit(wasm.F64Const(k), wasm.LocalGet(a))
	if absA {
		c.Emit(wasm.F64Abs())
	}
	c.Emit(wasm.F64Mul(), wasm.LocalGet(b))
	if absB {
		c.Emit(wasm.F64Abs())
	}
	c.Emit(wasm.F64Mul())
}

func storeX(c *wasm.Code, l Layout) {
	c.Emit(wasm.LocalGet(l.CX), wasm.F64Add(), wasm.LocalSet(l.Temp))
}

func storeY(c *wasm.Code, l Layout) {
	c.Emit(wasm.LocalGet(l.CY), wasm.F64Add(), wasm.LocalSet(l.Y))
}

func updateMandelbrot(c *wasm.Code, l Layout) {
	squareDiff(c, l)
	storeX(c, l)
	scaledProduct(c, 2, l.X, false, l.Y, false)
	storeY(c, l)
}

func updateTricorn(c *wasm.Code, l Layout) {
	squareDiff(c, l)
	storeX(c, l)
	scaledProduct(c, -2, l.X, false, l.Y, false)
	storeY(c, l)
}

func updateBurningShip(c *wasm.Code, l Layout) {
	absSquare(c, l.X)
	absSquare(c, l.Y)
	c.Emit(wasm.F64Sub())
	storeX(c, l)
	scaledProduct(c, 2, l.X, true, l.Y, true)
	storeY(c, l)
}

func updateCeltic(c *wasm.Code, l Layout) {
	squareDiff(c, l)
	c.Emit(wasm.F64Abs())
	storeX(c, l)
	scaledProduct(c, 2, l.X, false, l.Y, false)
	storeY(c, l)
}

func updateBuffalo(c *wasm.Code, l Layout) {
	squareDiff(c, l)
	c.Emit(wasm.F64Abs())
	storeX(c, l)
	scaledProduct(c, -2, l.X, true, l.Y, true)
	storeY(c, l)
}

func updatePerpendicular(c *wasm.Code, l Layout) {
	squareDiff(c, l)
	storeX(c, l)
	scaledProduct(c, -2, l.X, false, l.Y, true)
	storeY(c, l)
}

func updateMultibrot(c *wasm.Code, l Layout) {
	// x*x*x - 3*x*y*y
	square(c, l.X)
	c.Emit(wasm.LocalGet(l.X), wasm.F64Mul())
	scaledProduct(c, 3, l.X, false, l.Y, false)
	c.Emit(wasm.LocalGet(l.Y), wasm.F64Mul(), wasm.F64Sub())
	storeX(c, l)

	// 3*x*x*y - y*y*y
	scaledProduct(c, 3, l.X, false, l.X, false)
	c.Emit(wasm.LocalGet(l.Y), wasm.F64Mul())
	square(c, l.Y)
	c.Emit(wasm.LocalGet(l.Y), wasm.F64Mul(), wasm.F64Sub())
	storeY(c, l)
}

// Native steps. Conversions around products keep the compiler from fusing
// them into the following add or sub, which the wasm code never does.

func stepMandelbrot(x, y, cx, cy float64) (float64, float64) {
	return float64(x*x) - float64(y*y) + cx,
		float64(2*x*y) + cy
}

func stepTricorn(x, y, cx, cy float64) (float64, float64) {
	return float64(x*x) - float64(y*y) + cx,
		float64(-2*x*y) + cy
}

func stepBurningShip(x, y, cx, cy float64) (float64, float64) {
	ax, ay := math.Abs(x), math.Abs(y)
	return float64(ax*ax) - float64(ay*ay) + cx,
		float64(2*ax*ay) + cy
}

func stepCeltic(x, y, cx, cy float64) (float64, float64) {
	return math.Abs(float64(x*x)-float64(y*y)) + cx,
		float64(2*x*y) + cy
}

func stepBuffalo(x, y, cx, cy float64) (float64, float64) {
	return math.Abs(float64(x*x)-float64(y*y)) + cx,
		float64(-2*math.Abs(x)*math.Abs(y)) + cy
}

func stepPerpendicular(x, y, cx, cy float64) (float64, float64) {
	return float64(x*x) - float64(y*y) + cx,
		float64(-2*x*math.Abs(y)) + cy
}

func stepMultibrot(x, y, cx, cy float64) (float64, float64) {
	return float64(x*x*x) - float64(3*x*y*y) + cx,
		float64(3*x*x*y) - float64(y*y*y) + cy
}
