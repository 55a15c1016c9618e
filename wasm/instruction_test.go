package wasm_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	werrors "github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm"
)

func TestInstructionBytes(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
		want  []byte
	}{
		{"local.get", wasm.LocalGet(3), []byte{0x20, 0x03}},
		{"local.get wide", wasm.LocalGet(200), []byte{0x20, 0xc8, 0x01}},
		{"local.set", wasm.LocalSet(6), []byte{0x21, 0x06}},
		{"f64.const 4", wasm.F64Const(4), []byte{0x44, 0, 0, 0, 0, 0, 0, 0x10, 0x40}},
		{"f64.const -2", wasm.F64Const(-2), []byte{0x44, 0, 0, 0, 0, 0, 0, 0, 0xc0}},
		{"f64.add", wasm.F64Add(), []byte{0xa0}},
		{"f64.sub", wasm.F64Sub(), []byte{0xa1}},
		{"f64.mul", wasm.F64Mul(), []byte{0xa2}},
		{"f64.gt", wasm.F64Gt(), []byte{0x64}},
		{"f64.ge", wasm.F64Ge(), []byte{0x66}},
		{"f64.abs", wasm.F64Abs(), []byte{0x99}},
		{"br", wasm.Br(0), []byte{0x0c, 0x00}},
		{"br_if", wasm.BrIf(1), []byte{0x0d, 0x01}},
		{"block", wasm.Block(), []byte{0x02, 0x40}},
		{"loop", wasm.Loop(), []byte{0x03, 0x40}},
		{"if", wasm.If(), []byte{0x04, 0x40}},
		{"end", wasm.End(), []byte{0x0b}},
		{"return", wasm.Return(), []byte{0x0f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.instr.Bytes(); !bytes.Equal(got, tt.want) {
				t.Errorf("got %x, want %x", got, tt.want)
			}
		})
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		instr wasm.Instruction
		want  string
	}{
		{wasm.LocalGet(3), "local.get 3"},
		{wasm.LocalSet(6), "local.set 6"},
		{wasm.F64Const(4), "f64.const 4"},
		{wasm.F64Const(-2), "f64.const -2"},
		{wasm.F64Const(0.5), "f64.const 0.5"},
		{wasm.BrIf(1), "br_if 1"},
		{wasm.Block(), "block"},
		{wasm.F64Abs(), "f64.abs"},
		{wasm.Instruction{Opcode: 0xfe}, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.instr.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestCodeBuilder(t *testing.T) {
	var c wasm.Code
	c.Emit(wasm.LocalGet(0), wasm.LocalGet(1)).Emit(wasm.F64Add(), wasm.End())

	if c.Len() != 4 {
		t.Fatalf("expected 4 instructions, got %d", c.Len())
	}
	want := []byte{0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b}
	if got := c.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestDecodeInstructionsRoundTrip(t *testing.T) {
	instrs := []wasm.Instruction{
		wasm.Block(),
		wasm.Loop(),
		wasm.LocalGet(5),
		wasm.LocalGet(2),
		wasm.F64Ge(),
		wasm.BrIf(1),
		wasm.F64Const(4),
		wasm.LocalGet(3),
		wasm.F64Abs(),
		wasm.F64Gt(),
		wasm.If(),
		wasm.Return(),
		wasm.End(),
		wasm.F64Const(1),
		wasm.F64Mul(),
		wasm.F64Sub(),
		wasm.F64Add(),
		wasm.LocalSet(130),
		wasm.Br(0),
		wasm.End(),
		wasm.End(),
		wasm.End(),
	}

	decoded, err := wasm.DecodeInstructions(wasm.EncodeInstructions(instrs))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, instrs) {
		t.Errorf("round trip mismatch:\n got  %v\n want %v", decoded, instrs)
	}
}

func TestDecodeInstructionsErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		kind werrors.Kind
	}{
		{"call", []byte{0x10, 0x00}, werrors.KindUnsupported},
		{"typed block", []byte{0x02, 0x7c}, werrors.KindUnsupported},
		{"short const", []byte{0x44, 0x00, 0x00}, werrors.KindInvalidData},
		{"missing local", []byte{0x20}, werrors.KindInvalidData},
		{"open branch", []byte{0x0c, 0x80}, werrors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.DecodeInstructions(tt.code)
			target := &werrors.Error{Phase: werrors.PhaseDecode, Kind: tt.kind}
			if !errors.Is(err, target) {
				t.Errorf("expected %s error, got %v", tt.kind, err)
			}
		})
	}
}
