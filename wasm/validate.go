package wasm

import (
	"fmt"
	"math"

	"github.com/wippyai/fractal-wasm/errors"
)

// Validate checks the module for structural validity: index bounds, export
// uniqueness, and per-body local indices, branch depths, block balance and
// operand stack typing. The encoder never calls it; tests and the CLI do.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateCodeCount(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	for i, body := range m.Code {
		ft := m.Types[m.Funcs[i]]
		if err := ValidateBody(m.funcPath(uint32(i)), ft, body); err != nil {
			return err
		}
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))
	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return errors.New(errors.PhaseValidate, errors.KindTypeIndex).
				Path(m.funcPath(uint32(i))...).
				Value(typeIdx).
				Detail("type index %d out of range (%d types)", typeIdx, numTypes).
				Build()
		}
	}
	return nil
}

func (m *Module) validateCodeCount() error {
	if len(m.Funcs) != len(m.Code) {
		return errors.InvalidData(errors.PhaseValidate, nil,
			fmt.Sprintf("function section declares %d functions, code section has %d bodies", len(m.Funcs), len(m.Code)))
	}
	return nil
}

func (m *Module) validateExports() error {
	seen := make(map[string]struct{}, len(m.Exports))
	for _, e := range m.Exports {
		if _, dup := seen[e.Name]; dup {
			return errors.Duplicate(errors.PhaseValidate, "export", e.Name)
		}
		seen[e.Name] = struct{}{}
		if e.Kind != KindFunc {
			return errors.Unsupported(errors.PhaseValidate, fmt.Sprintf("export %q has kind %d", e.Name, e.Kind))
		}
		if int(e.Idx) >= len(m.Funcs) {
			return errors.NotFound(errors.PhaseValidate, "function index", fmt.Sprint(e.Idx))
		}
	}
	return nil
}

// funcPath names a function by its export name when it has one.
func (m *Module) funcPath(idx uint32) []string {
	for _, e := range m.Exports {
		if e.Kind == KindFunc && e.Idx == idx {
			return []string{e.Name}
		}
	}
	return []string{fmt.Sprintf("func[%d]", idx)}
}

// valUnknown stands for any type on a stack made polymorphic by br or return.
const valUnknown ValType = 0

type ctrlFrame struct {
	opcode      byte // 0 for the function frame
	height      int
	unreachable bool
}

type bodyValidator struct {
	path   []string
	ft     FuncType
	body   FuncBody
	stack  []ValType
	frames []ctrlFrame
}

// ValidateBody type-checks one function body against its signature.
func ValidateBody(path []string, ft FuncType, body FuncBody) error {
	instrs, err := DecodeInstructions(body.Code)
	if err != nil {
		return errors.New(errors.PhaseValidate, errors.KindInvalidData).Path(path...).Cause(err).Build()
	}

	v := &bodyValidator{
		path:   path,
		ft:     ft,
		body:   body,
		frames: []ctrlFrame{{}},
	}

	for i, instr := range instrs {
		if len(v.frames) == 0 {
			return v.unbalanced("instruction %d follows the function's final end", i)
		}
		if err := v.step(instr); err != nil {
			return err
		}
	}

	if len(v.frames) != 0 {
		return v.unbalanced("%d block(s) not closed", len(v.frames))
	}
	return nil
}

func (v *bodyValidator) step(instr Instruction) error {
	switch instr.Opcode {
	case OpLocalGet:
		t, err := v.local(instr)
		if err != nil {
			return err
		}
		v.push(t)

	case OpLocalSet:
		t, err := v.local(instr)
		if err != nil {
			return err
		}
		return v.pop(t)

	case OpF64Const:
		v.push(ValF64)

	case OpF64Add, OpF64Sub, OpF64Mul:
		if err := v.popN(ValF64, ValF64); err != nil {
			return err
		}
		v.push(ValF64)

	case OpF64Abs:
		if err := v.pop(ValF64); err != nil {
			return err
		}
		v.push(ValF64)

	case OpF64Gt, OpF64Ge:
		if err := v.popN(ValF64, ValF64); err != nil {
			return err
		}
		v.push(ValI32)

	case OpBlock, OpLoop:
		v.frames = append(v.frames, ctrlFrame{opcode: instr.Opcode, height: len(v.stack)})

	case OpIf:
		if err := v.pop(ValI32); err != nil {
			return err
		}
		v.frames = append(v.frames, ctrlFrame{opcode: instr.Opcode, height: len(v.stack)})

	case OpBr:
		if err := v.branch(instr); err != nil {
			return err
		}
		v.setUnreachable()

	case OpBrIf:
		if err := v.pop(ValI32); err != nil {
			return err
		}
		return v.branch(instr)

	case OpReturn:
		if err := v.popN(v.ft.Results...); err != nil {
			return err
		}
		v.setUnreachable()

	case OpEnd:
		return v.end()

	default:
		return errors.Unsupported(errors.PhaseValidate, OpcodeName(instr.Opcode))
	}
	return nil
}

func (v *bodyValidator) local(instr Instruction) (ValType, error) {
	idx := instr.Imm.(LocalImm).LocalIdx
	if int(idx) < len(v.ft.Params) {
		return v.ft.Params[idx], nil
	}
	if t, ok := v.body.LocalType(uint64(idx) - uint64(len(v.ft.Params))); ok {
		return t, nil
	}
	available := uint64(len(v.ft.Params)) + v.body.NumLocals()
	return 0, errors.LocalIndex(v.path, idx, uint32(min(available, math.MaxUint32)))
}

// branch checks the label depth and the values the target label expects.
func (v *bodyValidator) branch(instr Instruction) error {
	depth := instr.Imm.(BranchImm).LabelIdx
	if int(depth) >= len(v.frames) {
		return errors.BranchDepth(v.path, depth, uint32(len(v.frames)-1))
	}
	target := v.frames[len(v.frames)-1-int(depth)]
	if target.opcode != 0 {
		// void blocks and loops take no label values
		return nil
	}
	if err := v.popN(v.ft.Results...); err != nil {
		return err
	}
	for _, t := range v.ft.Results {
		v.push(t)
	}
	return nil
}

func (v *bodyValidator) end() error {
	frame := v.frames[len(v.frames)-1]
	var results []ValType
	if frame.opcode == 0 {
		results = v.ft.Results
	}
	if err := v.popN(results...); err != nil {
		return err
	}
	if len(v.stack) != frame.height {
		return v.mismatch("%d value(s) left on the stack at end of %s", len(v.stack)-frame.height, v.frameName(frame))
	}
	v.frames = v.frames[:len(v.frames)-1]
	return nil
}

func (v *bodyValidator) push(t ValType) {
	v.stack = append(v.stack, t)
}

// popN pops the given types, last one first.
func (v *bodyValidator) popN(types ...ValType) error {
	for i := len(types) - 1; i >= 0; i-- {
		if err := v.pop(types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *bodyValidator) pop(want ValType) error {
	frame := v.frames[len(v.frames)-1]
	if len(v.stack) == frame.height {
		if frame.unreachable {
			return nil
		}
		return v.mismatch("expected %s, stack is empty", want)
	}
	got := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	if got != want && got != valUnknown {
		return v.mismatch("expected %s, got %s", want, got)
	}
	return nil
}

func (v *bodyValidator) setUnreachable() {
	top := &v.frames[len(v.frames)-1]
	v.stack = v.stack[:top.height]
	top.unreachable = true
}

func (v *bodyValidator) frameName(f ctrlFrame) string {
	if f.opcode == 0 {
		return "function"
	}
	return OpcodeName(f.opcode)
}

func (v *bodyValidator) mismatch(format string, args ...any) error {
	return errors.New(errors.PhaseValidate, errors.KindStackMismatch).
		Path(v.path...).
		Detail(format, args...).
		Build()
}

func (v *bodyValidator) unbalanced(format string, args ...any) error {
	return errors.New(errors.PhaseValidate, errors.KindUnbalanced).
		Path(v.path...).
		Detail(format, args...).
		Build()
}
