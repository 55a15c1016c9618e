package wasm_test

import (
	"errors"
	"testing"

	werrors "github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

func bodyFunc(name string, ft wasm.FuncType, locals []wasm.ValType, instrs ...wasm.Instruction) wasm.Func {
	return wasm.Func{Name: name, Type: ft, Locals: locals, Code: wasm.EncodeInstructions(instrs)}
}

func TestValidateAccepts(t *testing.T) {
	escape := bodyFunc("escape", f64ToF64, nil,
		wasm.LocalGet(0), wasm.F64Const(4), wasm.F64Gt(),
		wasm.If(),
		wasm.LocalGet(0),
		wasm.Return(),
		wasm.End(),
		wasm.F64Const(0),
		wasm.End(),
	)

	m, err := wasm.BuildModule([]wasm.Func{addFunc("add"), countFunc("count"), escape})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("valid module rejected: %v", err)
	}

	if _, err := wasm.ParseModuleValidate(m.Encode()); err != nil {
		t.Errorf("parse and validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		fn   wasm.Func
		kind werrors.Kind
	}{
		{
			"local out of range",
			bodyFunc("f", f64x2ToF64, nil, wasm.LocalGet(0), wasm.LocalGet(2), wasm.F64Add(), wasm.End()),
			werrors.KindLocalIndex,
		},
		{
			"local.set out of range",
			bodyFunc("f", f64ToF64, []wasm.ValType{wasm.ValF64}, wasm.LocalGet(0), wasm.LocalSet(2), wasm.LocalGet(0), wasm.End()),
			werrors.KindLocalIndex,
		},
		{
			"branch too deep",
			bodyFunc("f", f64ToF64, nil, wasm.Block(), wasm.Br(2), wasm.End(), wasm.LocalGet(0), wasm.End()),
			werrors.KindBranchDepth,
		},
		{
			"block not closed",
			bodyFunc("f", f64ToF64, nil, wasm.Block(), wasm.End()),
			werrors.KindUnbalanced,
		},
		{
			"code after final end",
			bodyFunc("f", f64ToF64, nil, wasm.LocalGet(0), wasm.End(), wasm.LocalGet(0), wasm.End()),
			werrors.KindUnbalanced,
		},
		{
			"empty result",
			bodyFunc("f", f64ToF64, nil, wasm.End()),
			werrors.KindStackMismatch,
		},
		{
			"i32 result",
			bodyFunc("f", f64ToF64, nil, wasm.LocalGet(0), wasm.LocalGet(0), wasm.F64Gt(), wasm.End()),
			werrors.KindStackMismatch,
		},
		{
			"extra value",
			bodyFunc("f", f64ToF64, nil, wasm.LocalGet(0), wasm.LocalGet(0), wasm.End()),
			werrors.KindStackMismatch,
		},
		{
			"value left in block",
			bodyFunc("f", f64ToF64, nil, wasm.Block(), wasm.LocalGet(0), wasm.End(), wasm.LocalGet(0), wasm.End()),
			werrors.KindStackMismatch,
		},
		{
			"if without condition",
			bodyFunc("f", f64ToF64, nil, wasm.LocalGet(0), wasm.If(), wasm.End(), wasm.LocalGet(0), wasm.End()),
			werrors.KindStackMismatch,
		},
		{
			"add underflow",
			bodyFunc("f", f64ToF64, nil, wasm.LocalGet(0), wasm.F64Add(), wasm.End()),
			werrors.KindStackMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := wasm.BuildModule([]wasm.Func{tt.fn})
			if err != nil {
				t.Fatal(err)
			}
			err = m.Validate()
			if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: tt.kind}) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			var we *werrors.Error
			if errors.As(err, &we) && len(we.Path) > 0 && we.Path[0] != "f" {
				t.Errorf("expected path to name export f, got %v", we.Path)
			}
		})
	}
}

func TestValidateModuleStructure(t *testing.T) {
	base, err := wasm.BuildModule([]wasm.Func{addFunc("add")})
	if err != nil {
		t.Fatal(err)
	}

	badType := *base
	badType.Funcs = []uint32{3}
	if err := badType.Validate(); !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: werrors.KindTypeIndex}) {
		t.Errorf("expected type_index, got %v", err)
	}

	missingBody := *base
	missingBody.Code = nil
	if err := missingBody.Validate(); !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: werrors.KindInvalidData}) {
		t.Errorf("expected invalid_data, got %v", err)
	}

	dupExport := *base
	dupExport.Exports = append([]wasm.Export{}, base.Exports[0], base.Exports[0])
	if err := dupExport.Validate(); !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: werrors.KindDuplicate}) {
		t.Errorf("expected duplicate, got %v", err)
	}

	badExport := *base
	badExport.Exports = []wasm.Export{{Name: "add", Kind: wasm.KindFunc, Idx: 4}}
	if err := badExport.Validate(); !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: werrors.KindNotFound}) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestValidateBodyLocalRuns(t *testing.T) {
	ft := wasm.FuncType{Params: []wasm.ValType{wasm.ValF64}, Results: []wasm.ValType{wasm.ValF64}}
	body := wasm.FuncBody{
		Locals: []wasm.LocalEntry{
			{Count: 1 << 31, ValType: wasm.ValF64},
			{Count: 2, ValType: wasm.ValI32},
		},
	}

	body.Code = wasm.EncodeInstructions([]wasm.Instruction{wasm.LocalGet(1 << 30), wasm.End()})
	if err := wasm.ValidateBody([]string{"f"}, ft, body); err != nil {
		t.Errorf("local inside a large run rejected: %v", err)
	}

	// 1 param + 2^31 f64 locals puts the i32 run at 2^31+1
	body.Code = wasm.EncodeInstructions([]wasm.Instruction{wasm.LocalGet(1<<31 + 1), wasm.End()})
	err := wasm.ValidateBody([]string{"f"}, ft, body)
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: werrors.KindStackMismatch}) {
		t.Errorf("expected stack_mismatch for an i32 local, got %v", err)
	}

	body.Code = wasm.EncodeInstructions([]wasm.Instruction{wasm.LocalGet(1<<31 + 3), wasm.End()})
	err = wasm.ValidateBody([]string{"f"}, ft, body)
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseValidate, Kind: werrors.KindLocalIndex}) {
		t.Errorf("expected local_index, got %v", err)
	}
}
