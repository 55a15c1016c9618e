package wasm_test

import (
	"bytes"
	"errors"
	"testing"

	werrors "github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

var (
	f64x2ToF64 = wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValF64, wasm.ValF64},
		Results: []wasm.ValType{wasm.ValF64},
	}
	f64ToF64 = wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValF64},
		Results: []wasm.ValType{wasm.ValF64},
	}
)

func addFunc(name string) wasm.Func {
	var c wasm.Code
	c.Emit(wasm.LocalGet(0), wasm.LocalGet(1), wasm.F64Add(), wasm.End())
	return wasm.Func{Name: name, Type: f64x2ToF64, Code: c.Bytes()}
}

// countFunc loops until a local counter reaches its parameter and returns the count.
func countFunc(name string) wasm.Func {
	var c wasm.Code
	c.Emit(
		wasm.Block(),
		wasm.Loop(),
		wasm.LocalGet(1), wasm.LocalGet(0), wasm.F64Ge(), wasm.BrIf(1),
		wasm.LocalGet(1), wasm.F64Const(1), wasm.F64Add(), wasm.LocalSet(1),
		wasm.Br(0),
		wasm.End(),
		wasm.End(),
		wasm.LocalGet(1),
		wasm.End(),
	)
	return wasm.Func{Name: name, Type: f64ToF64, Locals: []wasm.ValType{wasm.ValF64}, Code: c.Bytes()}
}

func TestAssembleExactBytes(t *testing.T) {
	bin, err := wasm.Assemble([]wasm.Func{addFunc("add")})
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b,
	}
	if !bytes.Equal(bin, want) {
		t.Errorf("got  %x\nwant %x", bin, want)
	}
}

func TestAssembleFunction(t *testing.T) {
	tests := []struct {
		name   string
		locals []wasm.ValType
		code   []byte
		want   []byte
	}{
		{"no locals", nil, []byte{0x0b}, []byte{0x02, 0x00, 0x0b}},
		{
			"four f64",
			[]wasm.ValType{wasm.ValF64, wasm.ValF64, wasm.ValF64, wasm.ValF64},
			[]byte{0x0b},
			[]byte{0x04, 0x01, 0x04, 0x7c, 0x0b},
		},
		{
			"mixed runs",
			[]wasm.ValType{wasm.ValF64, wasm.ValI32, wasm.ValI32},
			[]byte{0x0b},
			[]byte{0x06, 0x02, 0x01, 0x7c, 0x02, 0x7f, 0x0b},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wasm.AssembleFunction(tt.locals, tt.code); !bytes.Equal(got, tt.want) {
				t.Errorf("got %x, want %x", got, tt.want)
			}
		})
	}
}

func TestAssembleFunctionLongBody(t *testing.T) {
	code := bytes.Repeat([]byte{0x20, 0x00, 0x21, 0x00}, 40)
	code = append(code, 0x0b)

	got := wasm.AssembleFunction(nil, code)

	// 1 byte for the empty local vector plus 161 instruction bytes
	if got[0] != 0xa2 || got[1] != 0x01 {
		t.Fatalf("expected two-byte length prefix a2 01, got %x", got[:2])
	}
	if len(got) != 2+162 {
		t.Errorf("expected %d bytes, got %d", 2+162, len(got))
	}
}

func TestGroupLocals(t *testing.T) {
	got := wasm.GroupLocals([]wasm.ValType{wasm.ValF64, wasm.ValF64, wasm.ValI32, wasm.ValF64})
	want := []wasm.LocalEntry{
		{Count: 2, ValType: wasm.ValF64},
		{Count: 1, ValType: wasm.ValI32},
		{Count: 1, ValType: wasm.ValF64},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if got := wasm.GroupLocals(nil); len(got) != 0 {
		t.Errorf("expected no entries, got %v", got)
	}
}

func TestBuildModuleDedupTypes(t *testing.T) {
	m, err := wasm.BuildModule([]wasm.Func{
		addFunc("a"),
		countFunc("b"),
		addFunc("c"),
		countFunc("d"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(m.Types))
	}
	if !m.Types[0].Equal(f64x2ToF64) || !m.Types[1].Equal(f64ToF64) {
		t.Errorf("types not in first-appearance order: %v", m.Types)
	}

	wantFuncs := []uint32{0, 1, 0, 1}
	for i, idx := range m.Funcs {
		if idx != wantFuncs[i] {
			t.Errorf("func %d: type %d, want %d", i, idx, wantFuncs[i])
		}
	}

	for i, e := range m.Exports {
		if e.Idx != uint32(i) || e.Kind != wasm.KindFunc {
			t.Errorf("export %q: idx %d kind %d", e.Name, e.Idx, e.Kind)
		}
	}
	if names := m.ExportNames(); len(names) != 4 || names[0] != "a" || names[3] != "d" {
		t.Errorf("unexpected export names %v", names)
	}
}

func TestBuildModuleErrors(t *testing.T) {
	_, err := wasm.BuildModule(nil)
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseEncode, Kind: werrors.KindInvalidInput}) {
		t.Errorf("expected invalid_input, got %v", err)
	}

	_, err = wasm.BuildModule([]wasm.Func{addFunc("x"), countFunc("x")})
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseEncode, Kind: werrors.KindDuplicate}) {
		t.Errorf("expected duplicate, got %v", err)
	}
}

func TestEncodeOmitsEmptySections(t *testing.T) {
	bin := (&wasm.Module{}).Encode()
	want := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(bin, want) {
		t.Errorf("got %x, want bare preamble", bin)
	}
}

func TestFuncTypeString(t *testing.T) {
	if got := f64x2ToF64.String(); got != "(f64, f64) -> f64" {
		t.Errorf("got %q", got)
	}
	if got := (wasm.FuncType{}).String(); got != "() -> ()" {
		t.Errorf("got %q", got)
	}
}
