package fractal

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/fractal-wasm/wasm"
)

// Param is one named export parameter.
type Param struct {
	Name string
	Type wit.Type
}

// Entry describes one export of a compiled module.
type Entry struct {
	Name      string
	Family    Family
	FuncIndex uint32
	TypeIndex uint32
	Signature wasm.FuncType
	Params    []Param
	Result    wit.Type
}

// String renders the entry as "name(a: f64, b: f64) -> f64".
func (e Entry) String() string {
	params := make([]string, len(e.Params))
	for i, p := range e.Params {
		params[i] = p.Name + ": " + TypeName(p.Type)
	}
	return e.Name + "(" + strings.Join(params, ", ") + ") -> " + TypeName(e.Result)
}

// Contract lists a module's exports in export order.
type Contract struct {
	Entries []Entry
}

// Lookup returns the entry exported under name.
func (c Contract) Lookup(name string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns export names in export order.
func (c Contract) Names() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.Name
	}
	return names
}

// Types returns the distinct signatures in type index order.
func (c Contract) Types() []wasm.FuncType {
	var types []wasm.FuncType
	for _, e := range c.Entries {
		if int(e.TypeIndex) == len(types) {
			types = append(types, e.Signature)
		}
	}
	return types
}

// newContract pairs the assembled module with the descriptors it was built from.
func newContract(m *wasm.Module, descs []Descriptor) (Contract, error) {
	c := Contract{Entries: make([]Entry, 0, len(descs))}
	for _, d := range descs {
		idx, sig, ok := m.ExportedFunc(d.Name)
		if !ok {
			return Contract{}, fmt.Errorf("export %q missing from assembled module", d.Name)
		}
		l := d.Layout()
		params := make([]Param, len(l.Params))
		for i, name := range l.Params {
			params[i] = Param{Name: name, Type: wit.F64{}}
		}
		c.Entries = append(c.Entries, Entry{
			Name:      d.Name,
			Family:    d.Family,
			FuncIndex: idx,
			TypeIndex: m.Funcs[idx],
			Signature: sig,
			Params:    params,
			Result:    wit.F64{},
		})
	}
	return c, nil
}

// TypeName returns the WIT spelling of a primitive type.
func TypeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case nil:
		return "_"
	default:
		return fmt.Sprintf("%T", t)
	}
}
