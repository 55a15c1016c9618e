package wasm

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/wippyai/fractal-wasm/errors"
)

// Instruction is a single WebAssembly instruction: an opcode plus its immediate.
// Instructions are plain values; appending one to a body never aliases another.
type Instruction struct {
	Imm    any
	Opcode byte
}

// BlockImm holds the block type for block, loop and if. Only BlockTypeVoid is emitted.
type BlockImm struct {
	Type byte
}

// BranchImm holds the relative label depth for br and br_if.
type BranchImm struct {
	LabelIdx uint32
}

// LocalImm holds the local index for local.get and local.set.
type LocalImm struct {
	LocalIdx uint32
}

// F64Imm holds the constant value for f64.const.
type F64Imm struct {
	Value float64
}

// LocalGet pushes local i.
func LocalGet(i uint32) Instruction {
	return Instruction{Opcode: OpLocalGet, Imm: LocalImm{LocalIdx: i}}
}

// LocalSet pops into local i.
func LocalSet(i uint32) Instruction {
	return Instruction{Opcode: OpLocalSet, Imm: LocalImm{LocalIdx: i}}
}

// F64Const pushes v, encoded as 8 little-endian bytes.
func F64Const(v float64) Instruction {
	return Instruction{Opcode: OpF64Const, Imm: F64Imm{Value: v}}
}

// F64Add pops two f64 values and pushes their sum.
func F64Add() Instruction { return Instruction{Opcode: OpF64Add} }

// F64Sub pops b then a and pushes a - b.
func F64Sub() Instruction { return Instruction{Opcode: OpF64Sub} }

// F64Mul pops two f64 values and pushes their product.
func F64Mul() Instruction { return Instruction{Opcode: OpF64Mul} }

// F64Gt pops b then a and pushes i32 1 when a > b.
func F64Gt() Instruction { return Instruction{Opcode: OpF64Gt} }

// F64Ge pops b then a and pushes i32 1 when a >= b.
func F64Ge() Instruction { return Instruction{Opcode: OpF64Ge} }

// F64Abs replaces the top f64 with its absolute value.
func F64Abs() Instruction { return Instruction{Opcode: OpF64Abs} }

// Br branches to the label depth levels out.
func Br(depth uint32) Instruction {
	return Instruction{Opcode: OpBr, Imm: BranchImm{LabelIdx: depth}}
}

// BrIf pops an i32 and branches to the label depth levels out when it is non-zero.
func BrIf(depth uint32) Instruction {
	return Instruction{Opcode: OpBrIf, Imm: BranchImm{LabelIdx: depth}}
}

// Block opens a void block.
func Block() Instruction {
	return Instruction{Opcode: OpBlock, Imm: BlockImm{Type: BlockTypeVoid}}
}

// Loop opens a void loop; a branch to it jumps back to its start.
func Loop() Instruction {
	return Instruction{Opcode: OpLoop, Imm: BlockImm{Type: BlockTypeVoid}}
}

// If pops an i32 and opens a void conditional block.
func If() Instruction {
	return Instruction{Opcode: OpIf, Imm: BlockImm{Type: BlockTypeVoid}}
}

// End closes the innermost block, loop, if or the function body.
func End() Instruction { return Instruction{Opcode: OpEnd} }

// Return leaves the function with the result on top of the stack.
func Return() Instruction { return Instruction{Opcode: OpReturn} }

// Bytes returns the exact binary encoding of the instruction.
func (i Instruction) Bytes() []byte {
	var buf bytes.Buffer
	EncodeInstructionTo(&buf, &i)
	return buf.Bytes()
}

// String renders the instruction in text format, e.g. "local.get 3".
func (i Instruction) String() string {
	name := OpcodeName(i.Opcode)
	switch imm := i.Imm.(type) {
	case LocalImm:
		return name + " " + strconv.FormatUint(uint64(imm.LocalIdx), 10)
	case BranchImm:
		return name + " " + strconv.FormatUint(uint64(imm.LabelIdx), 10)
	case F64Imm:
		return name + " " + strconv.FormatFloat(imm.Value, 'g', -1, 64)
	default:
		return name
	}
}

// EncodeInstructionTo writes a single instruction to the provided buffer.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	switch instr.Opcode {
	case OpBlock, OpLoop, OpIf:
		imm, ok := instr.Imm.(BlockImm)
		if !ok {
			imm.Type = BlockTypeVoid
		}
		buf.WriteByte(imm.Type)

	case OpBr, OpBrIf:
		imm := instr.Imm.(BranchImm)
		WriteLEB128u(buf, imm.LabelIdx)

	case OpLocalGet, OpLocalSet, OpLocalTee:
		imm := instr.Imm.(LocalImm)
		WriteLEB128u(buf, imm.LocalIdx)

	case OpF64Const:
		imm := instr.Imm.(F64Imm)
		WriteFloat64(buf, imm.Value)
	}
}

// EncodeInstructionsTo writes multiple instructions to the provided buffer.
func EncodeInstructionsTo(buf *bytes.Buffer, instrs []Instruction) {
	for i := range instrs {
		EncodeInstructionTo(buf, &instrs[i])
	}
}

// EncodeInstructions encodes instructions to bytes
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	buf.Grow(len(instrs) * 3)
	EncodeInstructionsTo(&buf, instrs)
	return buf.Bytes()
}

// DecodeInstructions decodes the f64 control-flow subset produced by this package.
// Any other opcode yields an unsupported error carrying its offset.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := bytes.NewReader(code)
	var out []Instruction

	for r.Len() > 0 {
		offset := len(code) - r.Len()
		op, _ := r.ReadByte()
		instr := Instruction{Opcode: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := r.ReadByte()
			if err != nil {
				return nil, truncated(offset, op, err)
			}
			if bt != BlockTypeVoid {
				return nil, errors.Unsupported(errors.PhaseDecode,
					fmt.Sprintf("block type 0x%02x at offset %d", bt, offset))
			}
			instr.Imm = BlockImm{Type: bt}

		case OpBr, OpBrIf:
			depth, err := ReadLEB128u(r)
			if err != nil {
				return nil, truncated(offset, op, err)
			}
			instr.Imm = BranchImm{LabelIdx: depth}

		case OpLocalGet, OpLocalSet:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, truncated(offset, op, err)
			}
			instr.Imm = LocalImm{LocalIdx: idx}

		case OpF64Const:
			v, err := ReadFloat64(r)
			if err != nil {
				return nil, truncated(offset, op, err)
			}
			instr.Imm = F64Imm{Value: v}

		case OpEnd, OpReturn,
			OpF64Add, OpF64Sub, OpF64Mul, OpF64Abs, OpF64Gt, OpF64Ge:
			// no immediate

		default:
			return nil, errors.Unsupported(errors.PhaseDecode,
				fmt.Sprintf("opcode 0x%02x at offset %d", op, offset))
		}

		out = append(out, instr)
	}

	return out, nil
}

func truncated(offset int, op byte, cause error) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Detail("%s at offset %d: truncated immediate", OpcodeName(op), offset).
		Cause(cause).
		Build()
}

// Code accumulates an instruction sequence for one function body.
type Code struct {
	instrs []Instruction
}

// Emit appends instructions in order.
func (c *Code) Emit(instrs ...Instruction) *Code {
	c.instrs = append(c.instrs, instrs...)
	return c
}

// Instructions returns the accumulated sequence.
func (c *Code) Instructions() []Instruction {
	return c.instrs
}

// Len returns the number of instructions emitted so far.
func (c *Code) Len() int {
	return len(c.instrs)
}

// Bytes encodes the accumulated sequence.
func (c *Code) Bytes() []byte {
	return EncodeInstructions(c.instrs)
}
