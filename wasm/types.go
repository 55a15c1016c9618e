package wasm

import "strings"

// Module is a WebAssembly module restricted to the four sections this package
// encodes: type, function, export and code.
type Module struct {
	Types   []FuncType // Function signatures, deduplicated
	Funcs   []uint32   // Type index per defined function
	Exports []Export
	Code    []FuncBody

	// Sections records the framing of each section as read by ParseModule.
	// It is empty for modules built in memory.
	Sections []SectionInfo
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether two signatures have identical parameter and result shapes.
func (ft FuncType) Equal(other FuncType) bool {
	return equalValTypes(ft.Params, other.Params) && equalValTypes(ft.Results, other.Results)
}

// String renders the signature as "(f64, f64) -> f64".
func (ft FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range ft.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	switch len(ft.Results) {
	case 0:
		b.WriteString("()")
	case 1:
		b.WriteString(ft.Results[0].String())
	default:
		b.WriteByte('(')
		for i, r := range ft.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

func equalValTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Export represents an exported definition.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// LocalEntry is one run of same-typed locals in a function body.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// FuncBody is a function's local declarations plus its instruction bytes.
// Code includes the trailing end opcode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// NumLocals returns the number of declared locals, excluding parameters.
// The sum is taken in 64 bits so oversized run counts cannot wrap.
func (b FuncBody) NumLocals() uint64 {
	var n uint64
	for _, l := range b.Locals {
		n += uint64(l.Count)
	}
	return n
}

// LocalType returns the type of declared local i, counting from the first
// local after the parameters, without expanding the runs.
func (b FuncBody) LocalType(i uint64) (ValType, bool) {
	for _, l := range b.Locals {
		if i < uint64(l.Count) {
			return l.ValType, true
		}
		i -= uint64(l.Count)
	}
	return 0, false
}

// SectionInfo describes one section as it appeared in a binary.
type SectionInfo struct {
	ID     byte
	Offset int    // offset of the section id byte
	Size   uint32 // declared payload length
}

// SectionName returns a readable name for a section id.
func SectionName(id byte) string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	default:
		return "unknown"
	}
}

// ExportedFunc returns the function index and signature for an exported function name.
func (m *Module) ExportedFunc(name string) (uint32, FuncType, bool) {
	for _, e := range m.Exports {
		if e.Name != name || e.Kind != KindFunc {
			continue
		}
		if int(e.Idx) >= len(m.Funcs) {
			return 0, FuncType{}, false
		}
		typeIdx := m.Funcs[e.Idx]
		if int(typeIdx) >= len(m.Types) {
			return 0, FuncType{}, false
		}
		return e.Idx, m.Types[typeIdx], true
	}
	return 0, FuncType{}, false
}

// ExportNames returns exported names in section order.
func (m *Module) ExportNames() []string {
	names := make([]string, len(m.Exports))
	for i, e := range m.Exports {
		names[i] = e.Name
	}
	return names
}
