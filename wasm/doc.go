// Package wasm encodes and decodes the slice of the WebAssembly 1.0 binary
// format needed to ship pure f64 compute kernels: type, function, export and
// code sections, with no imports, memory, tables or globals.
//
// # Encoding
//
// Functions are assembled from instruction sequences built with Code:
//
//	var c wasm.Code
//	c.Emit(wasm.LocalGet(0), wasm.LocalGet(1), wasm.F64Add(), wasm.End())
//
//	bin, err := wasm.Assemble([]wasm.Func{{
//	    Name: "add",
//	    Type: wasm.FuncType{Params: []wasm.ValType{wasm.ValF64, wasm.ValF64}, Results: []wasm.ValType{wasm.ValF64}},
//	    Code: c.Bytes(),
//	}})
//
// Signatures are deduplicated in first-appearance order and function i is
// exported under its name with index i. Every section is built in full before
// it is framed, so each length prefix is the measured payload size.
//
// # Decoding
//
// ParseModule reads a binary back and records the framing of each section:
//
//	m, err := wasm.ParseModule(bin)
//	for _, s := range m.Sections {
//	    fmt.Println(wasm.SectionName(s.ID), s.Size)
//	}
//
// # Validation
//
// Module.Validate checks index bounds, export uniqueness, local indices,
// branch depths, block balance and operand stack types for every body.
// FormatText renders a module as indented text for inspection.
package wasm
