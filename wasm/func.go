package wasm

import (
	"github.com/wippyai/fractal-wasm/wasm/internal/binary"
)

// GroupLocals collapses a per-slot local list into runs of equal type.
// A single-typed list becomes one entry.
func GroupLocals(locals []ValType) []LocalEntry {
	var out []LocalEntry
	for _, t := range locals {
		if n := len(out); n > 0 && out[n-1].ValType == t {
			out[n-1].Count++
			continue
		}
		out = append(out, LocalEntry{Count: 1, ValType: t})
	}
	return out
}

// AssembleFunction builds a length-prefixed function record from declared locals
// (parameters excluded) and the instruction bytes, which must end in OpEnd.
func AssembleFunction(locals []ValType, code []byte) []byte {
	return FuncBody{Locals: GroupLocals(locals), Code: code}.Encode()
}

// Encode returns the function record as it appears in the code section:
// the body byte length followed by local runs and instruction bytes.
func (b FuncBody) Encode() []byte {
	w := binary.NewWriter()
	writeFuncBody(w, b)
	return w.Bytes()
}

func writeFuncBody(w *binary.Writer, b FuncBody) {
	body := binary.NewWriter()
	body.WriteU32(uint32(len(b.Locals)))
	for _, l := range b.Locals {
		body.WriteU32(l.Count)
		body.Byte(byte(l.ValType))
	}
	body.WriteBytes(b.Code)
	w.WriteSized(body.Bytes())
}
