package wasm

import (
	"fmt"
	"strings"
)

// FormatText renders a module in a WAT-like form for inspection. The output
// is not meant to be reparsed; it mirrors the binary layout one line per
// instruction, indented by block nesting.
func FormatText(m *Module) string {
	var b strings.Builder
	b.WriteString("(module\n")

	for i, ft := range m.Types {
		fmt.Fprintf(&b, "  (type %d (func", i)
		writeTypeList(&b, "param", ft.Params)
		writeTypeList(&b, "result", ft.Results)
		b.WriteString("))\n")
	}

	for i := range m.Code {
		typeIdx := uint32(0)
		if i < len(m.Funcs) {
			typeIdx = m.Funcs[i]
		}
		fmt.Fprintf(&b, "  (func %d (type %d)", i, typeIdx)
		if int(typeIdx) < len(m.Types) {
			ft := m.Types[typeIdx]
			writeTypeList(&b, "param", ft.Params)
			writeTypeList(&b, "result", ft.Results)
		}
		b.WriteByte('\n')
		writeLocals(&b, m.Code[i].Locals)
		writeBody(&b, m.Code[i].Code)
		b.WriteString("  )\n")
	}

	for _, e := range m.Exports {
		fmt.Fprintf(&b, "  (export %q (func %d))\n", e.Name, e.Idx)
	}

	b.WriteString(")\n")
	return b.String()
}

func writeTypeList(b *strings.Builder, keyword string, types []ValType) {
	if len(types) == 0 {
		return
	}
	b.WriteString(" (")
	b.WriteString(keyword)
	for _, t := range types {
		b.WriteByte(' ')
		b.WriteString(t.String())
	}
	b.WriteByte(')')
}

// writeLocals lists short runs type by type and summarizes long ones.
func writeLocals(b *strings.Builder, runs []LocalEntry) {
	if len(runs) == 0 {
		return
	}
	b.WriteString("    (local")
	for _, l := range runs {
		if l.Count > maxListedLocals {
			fmt.Fprintf(b, " %s*%d", l.ValType, l.Count)
			continue
		}
		for j := uint32(0); j < l.Count; j++ {
			b.WriteByte(' ')
			b.WriteString(l.ValType.String())
		}
	}
	b.WriteString(")\n")
}

const maxListedLocals = 16

func writeBody(b *strings.Builder, code []byte) {
	instrs, err := DecodeInstructions(code)
	if err != nil {
		fmt.Fprintf(b, "    ;; %v\n", err)
		return
	}
	depth := 0
	for i, instr := range instrs {
		switch instr.Opcode {
		case OpEnd:
			if i == len(instrs)-1 {
				// the function's own end is implied by the closing paren
				return
			}
			if depth == 0 {
				b.WriteString("    ;; unbalanced end\n")
				return
			}
			depth--
		}
		b.WriteString(strings.Repeat("  ", depth+2))
		b.WriteString(instr.String())
		b.WriteByte('\n')
		switch instr.Opcode {
		case OpBlock, OpLoop, OpIf:
			depth++
		}
	}
}
