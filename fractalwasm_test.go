package fractalwasm_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fractalwasm "github.com/wippyai/fractal-wasm"
	"github.com/wippyai/fractal-wasm/engine"
	werrors "github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

func TestBuild(t *testing.T) {
	bin, err := fractalwasm.Build("julia", "mandelbrot")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(bin, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}))

	m, err := wasm.ParseModuleValidate(bin)
	require.NoError(t, err)
	assert.Equal(t, []string{"julia", "mandelbrot"}, m.ExportNames())

	ctx := context.Background()
	eng := engine.NewWazeroEngine(ctx)
	defer eng.Close(ctx)
	mod, err := eng.LoadModule(ctx, bin)
	require.NoError(t, err)
	inst, err := mod.Instantiate(ctx)
	require.NoError(t, err)
	n, err := inst.Call(ctx, "mandelbrot", -0.75, 0.1, 100)
	require.NoError(t, err)
	assert.Equal(t, 33.0, n)
}

func TestBuildAll(t *testing.T) {
	bin, err := fractalwasm.Build()
	require.NoError(t, err)
	m, err := wasm.ParseModule(bin)
	require.NoError(t, err)
	assert.Equal(t, fractalwasm.Variants(), m.ExportNames())
}

func TestBuildUnknown(t *testing.T) {
	_, err := fractalwasm.Build("mandelbrot", "koch")
	assert.True(t, errors.Is(err, werrors.UnknownVariant("koch")))
}
