package fractal_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	werrors "github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/fractal"
	"github.com/wippyai/fractal-wasm/wasm"
)

func newRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCoreFeatures(api.CoreFeaturesV1))
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return ctx, rt
}

func TestCompileEachVariantLoads(t *testing.T) {
	ctx, rt := newRuntime(t)

	for _, name := range fractal.Names() {
		t.Run(name, func(t *testing.T) {
			art, err := fractal.Compile(name)
			require.NoError(t, err)

			compiled, err := rt.CompileModule(ctx, art.Binary)
			require.NoError(t, err)
			defer compiled.Close(ctx)

			defs := compiled.ExportedFunctions()
			require.Len(t, defs, 1)
			def, ok := defs[name]
			require.True(t, ok, "export %q missing", name)

			entry, ok := art.Contract.Lookup(name)
			require.True(t, ok)
			require.Len(t, def.ParamTypes(), len(entry.Params))
			for _, p := range def.ParamTypes() {
				require.Equal(t, api.ValueTypeF64, p)
			}
			require.Equal(t, []api.ValueType{api.ValueTypeF64}, def.ResultTypes())
		})
	}
}

func TestCompileAllExports(t *testing.T) {
	ctx, rt := newRuntime(t)

	art, err := fractal.CompileAll()
	require.NoError(t, err)

	compiled, err := rt.CompileModule(ctx, art.Binary)
	require.NoError(t, err)

	var got []string
	for name := range compiled.ExportedFunctions() {
		got = append(got, name)
	}
	sort.Strings(got)

	want := fractal.Names()
	sort.Strings(want)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fractal.Names(), art.Contract.Names()); diff != "" {
		t.Errorf("contract order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileSectionFraming(t *testing.T) {
	art, err := fractal.CompileAll()
	require.NoError(t, err)

	m, err := wasm.ParseModuleValidate(art.Binary)
	require.NoError(t, err)
	require.Len(t, m.Sections, 4)

	wantIDs := []byte{wasm.SectionType, wasm.SectionFunction, wasm.SectionExport, wasm.SectionCode}
	end := len(art.Binary)
	for i := len(m.Sections) - 1; i >= 0; i-- {
		s := m.Sections[i]
		require.Equal(t, wantIDs[i], s.ID)
		header := 1 + wasm.SizeLEB128u(uint64(s.Size))
		require.Equal(t, end, s.Offset+header+int(s.Size), "%s section length", wasm.SectionName(s.ID))
		end = s.Offset
	}
	require.Equal(t, 8, end)

	// the code section of the full set needs a multi-byte length
	require.Greater(t, m.Sections[3].Size, uint32(127))

	require.True(t, bytes.Equal(art.Binary, art.Module.Encode()))
}

func TestCompileSignatureDedup(t *testing.T) {
	art, err := fractal.Compile("mandelbrot", "julia", "tricorn")
	require.NoError(t, err)

	require.Len(t, art.Module.Types, 2)
	require.Equal(t, []uint32{0, 1, 0}, art.Module.Funcs)
	require.Len(t, art.Module.Types[0].Params, 3)
	require.Len(t, art.Module.Types[1].Params, 5)

	types := art.Contract.Types()
	require.Len(t, types, 2)
	require.True(t, types[1].Equal(art.Module.Types[1]))

	e, ok := art.Contract.Lookup("tricorn")
	require.True(t, ok)
	require.Equal(t, uint32(2), e.FuncIndex)
	require.Equal(t, uint32(0), e.TypeIndex)
}

func TestCompileRequestedOrder(t *testing.T) {
	art, err := fractal.Compile("julia", "burning_ship")
	require.NoError(t, err)
	require.Equal(t, []string{"julia", "burning_ship"}, art.Module.ExportNames())
	require.Equal(t, []uint32{0, 1}, art.Module.Funcs)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		kind  werrors.Kind
	}{
		{"unknown", []string{"newton"}, werrors.KindUnknownVariant},
		{"unknown after valid", []string{"mandelbrot", "newton"}, werrors.KindUnknownVariant},
		{"duplicate", []string{"julia", "mandelbrot", "julia"}, werrors.KindDuplicate},
		{"empty", nil, werrors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := fractal.Compile(tt.names...)
			require.Nil(t, art)
			require.True(t, errors.Is(err, &werrors.Error{Phase: werrors.PhaseCompile, Kind: tt.kind}), "got %v", err)
		})
	}

	_, err := fractal.Compile("newton")
	var we *werrors.Error
	require.True(t, errors.As(err, &we))
	require.Equal(t, "newton", we.Value)
}

func TestCompileDeterministic(t *testing.T) {
	first, err := fractal.CompileAll()
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			art, err := fractal.CompileAll()
			if err == nil {
				results[i] = art.Binary
			}
		}(i)
	}
	wg.Wait()

	for i, bin := range results {
		require.True(t, bytes.Equal(first.Binary, bin), "run %d differs", i)
	}
}

func TestSkeletonPrologue(t *testing.T) {
	d, err := fractal.Lookup("mandelbrot")
	require.NoError(t, err)

	f := d.Func()
	want := []byte{
		0x02, 0x40, // block
		0x03, 0x40, // loop
		0x20, 0x05, 0x20, 0x02, 0x66, 0x0d, 0x01, // iter >= max_iter br_if 1
		0x20, 0x03, 0x20, 0x03, 0xa2, 0x20, 0x04, 0x20, 0x04, 0xa2, 0xa0,
		0x44, 0, 0, 0, 0, 0, 0, 0x10, 0x40, 0x64, // > 4.0
		0x04, 0x40, 0x20, 0x05, 0x0f, 0x0b, // if iter return end
	}
	require.Equal(t, want, f.Code[:len(want)])

	tail := []byte{0x0c, 0x00, 0x0b, 0x0b, 0x20, 0x05, 0x0b}
	require.Equal(t, tail, f.Code[len(f.Code)-len(tail):])
	require.Len(t, f.Locals, 4)

	j, err := fractal.Lookup("julia")
	require.NoError(t, err)
	jf := j.Func()
	require.Len(t, jf.Locals, 2)
	require.Equal(t, []byte{0x20, 0x05, 0x20, 0x04, 0x66}, jf.Code[4:9])
}

func TestContractEntryString(t *testing.T) {
	art, err := fractal.Compile("julia", "mandelbrot")
	require.NoError(t, err)

	j, ok := art.Contract.Lookup("julia")
	require.True(t, ok)
	require.Equal(t, "julia(zx: f64, zy: f64, c_re: f64, c_im: f64, max_iter: f64) -> f64", j.String())
	require.Equal(t, fractal.FamilyJulia, j.Family)

	m, ok := art.Contract.Lookup("mandelbrot")
	require.True(t, ok)
	require.Equal(t, "mandelbrot(cx: f64, cy: f64, max_iter: f64) -> f64", m.String())

	_, ok = art.Contract.Lookup("tricorn")
	require.False(t, ok)
}

func TestLookupAndNames(t *testing.T) {
	names := fractal.Names()
	require.Equal(t, []string{"mandelbrot", "burning_ship", "tricorn", "julia"}, names[:4])

	for _, name := range names {
		d, err := fractal.Lookup(name)
		require.NoError(t, err)
		require.Equal(t, name, d.Name)
		require.NotEmpty(t, d.Summary)
	}

	names[0] = "changed"
	require.Equal(t, "mandelbrot", fractal.Names()[0])

	_, err := fractal.Lookup("Mandelbrot")
	require.True(t, errors.Is(err, &werrors.Error{Phase: werrors.PhaseCompile, Kind: werrors.KindUnknownVariant}))
}
