package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (except custom sections).
// Only type, function, export and code are produced by this package.
const (
	SectionCustom   byte = 0  // Custom section (can appear anywhere)
	SectionType     byte = 1  // Type section (function signatures)
	SectionImport   byte = 2  // Import section
	SectionFunction byte = 3  // Function section (type indices)
	SectionTable    byte = 4  // Table section
	SectionMemory   byte = 5  // Memory section
	SectionGlobal   byte = 6  // Global section
	SectionExport   byte = 7  // Export section
	SectionStart    byte = 8  // Start section
	SectionElement  byte = 9  // Element section
	SectionCode     byte = 10 // Code section (function bodies)
	SectionData     byte = 11 // Data section
)

// Export descriptor kinds. Only functions are exported here.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32 ValType = 0x7F // 32-bit integer
	ValI64 ValType = 0x7E // 64-bit integer
	ValF32 ValType = 0x7D // 32-bit float
	ValF64 ValType = 0x7C // 64-bit float
)

// Type constructors and block types.
const (
	FuncTypeByte  byte = 0x60
	BlockTypeVoid byte = 0x40
)

// Control flow opcodes
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpIf          byte = 0x04
	OpElse        byte = 0x05
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
	OpBrIf        byte = 0x0D
	OpReturn      byte = 0x0F
)

// Variable access opcodes
const (
	OpLocalGet byte = 0x20
	OpLocalSet byte = 0x21
	OpLocalTee byte = 0x22
)

// Numeric opcodes (f64 subset)
const (
	OpF64Const byte = 0x44

	OpF64Eq byte = 0x61
	OpF64Ne byte = 0x62
	OpF64Lt byte = 0x63
	OpF64Gt byte = 0x64
	OpF64Le byte = 0x65
	OpF64Ge byte = 0x66

	OpF64Abs byte = 0x99
	OpF64Neg byte = 0x9A
	OpF64Add byte = 0xA0
	OpF64Sub byte = 0xA1
	OpF64Mul byte = 0xA2
	OpF64Div byte = 0xA3
)

// opcodeNames maps the opcodes understood by DecodeInstructions to their text format mnemonics.
var opcodeNames = map[byte]string{
	OpBlock:    "block",
	OpLoop:     "loop",
	OpIf:       "if",
	OpEnd:      "end",
	OpBr:       "br",
	OpBrIf:     "br_if",
	OpReturn:   "return",
	OpLocalGet: "local.get",
	OpLocalSet: "local.set",
	OpF64Const: "f64.const",
	OpF64Gt:    "f64.gt",
	OpF64Ge:    "f64.ge",
	OpF64Abs:   "f64.abs",
	OpF64Add:   "f64.add",
	OpF64Sub:   "f64.sub",
	OpF64Mul:   "f64.mul",
}

// OpcodeName returns the text format mnemonic for op, or "unknown".
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}
