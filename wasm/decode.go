package wasm

import (
	goerrors "errors"
	"fmt"

	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/wasm/internal/binary"
)

// MaxFunctionLocals bounds the declared locals of one function body.
const MaxFunctionLocals = 50000

var (
	// ErrInvalidMagic is returned when the binary does not start with "\0asm".
	ErrInvalidMagic = goerrors.New("invalid magic number")
	// ErrInvalidVersion is returned for any format version other than 1.
	ErrInvalidVersion = goerrors.New("unsupported version")
)

// ParseModule decodes a module containing type, function, export, code and
// custom sections. Every section's payload must be consumed exactly by its
// declared length; a mismatch is reported as a section_length error.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	var lastID byte

	for r.Remaining() > 0 {
		offset := r.Position()
		sectionID, _ := r.ReadByte()

		if sectionID != SectionCustom {
			if sectionID <= lastID {
				return nil, errors.New(errors.PhaseDecode, errors.KindSectionOrder).
					Path(SectionName(sectionID)).
					Detail("section %d appears after section %d", sectionID, lastID).
					Build()
			}
			lastID = sectionID
		}

		sectionSize, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		if int(sectionSize) > r.Remaining() {
			return nil, errors.SectionLength(errors.PhaseDecode, SectionName(sectionID), int(sectionSize), r.Remaining())
		}

		payload, _ := r.ReadBytes(int(sectionSize))
		m.Sections = append(m.Sections, SectionInfo{ID: sectionID, Offset: offset, Size: sectionSize})

		sr := binary.NewReader(payload)
		switch sectionID {
		case SectionCustom:
			if _, err := sr.ReadName(); err != nil {
				return nil, fmt.Errorf("custom section: %w", err)
			}
			continue
		case SectionType:
			err = parseTypeSection(sr, m)
		case SectionFunction:
			err = parseFunctionSection(sr, m)
		case SectionExport:
			err = parseExportSection(sr, m)
		case SectionCode:
			err = parseCodeSection(sr, m)
		default:
			return nil, errors.Unsupported(errors.PhaseDecode,
				fmt.Sprintf("%s section (id %d)", SectionName(sectionID), sectionID))
		}
		if err != nil {
			return nil, fmt.Errorf("%s section: %w", SectionName(sectionID), err)
		}
		if sr.Remaining() != 0 {
			return nil, errors.SectionLength(errors.PhaseDecode, SectionName(sectionID), int(sectionSize), sr.Position())
		}
	}

	return m, nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return errors.InvalidData(errors.PhaseDecode, []string{"type", fmt.Sprint(i)},
				fmt.Sprintf("expected func type 0x60, got 0x%02x", form))
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Remaining() {
		return nil, r.WrapError("value types", fmt.Errorf("count %d exceeds payload", n))
	}
	out := make([]ValType, n)
	for i := range out {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		out[i] = ValType(b)
	}
	return out, nil
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Funcs = append(m.Funcs, idx)
	}
	return nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

func parseCodeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, 0, count)
	for i := uint32(0); i < count; i++ {
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		if int(size) > r.Remaining() {
			return errors.SectionLength(errors.PhaseDecode, fmt.Sprintf("code[%d]", i), int(size), r.Remaining())
		}
		raw, _ := r.ReadBytes(int(size))
		body, err := parseFuncBody(binary.NewReader(raw))
		if err != nil {
			return fmt.Errorf("body %d: %w", i, err)
		}
		m.Code = append(m.Code, body)
	}
	return nil
}

func parseFuncBody(r *binary.Reader) (FuncBody, error) {
	runs, err := r.ReadU32()
	if err != nil {
		return FuncBody{}, err
	}
	var (
		body  FuncBody
		total uint64
	)
	for j := uint32(0); j < runs; j++ {
		n, err := r.ReadU32()
		if err != nil {
			return FuncBody{}, err
		}
		t, err := r.ReadByte()
		if err != nil {
			return FuncBody{}, err
		}
		total += uint64(n)
		if total > MaxFunctionLocals {
			return FuncBody{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Value(total).
				Detail("function declares more than %d locals", MaxFunctionLocals).
				Build()
		}
		body.Locals = append(body.Locals, LocalEntry{Count: n, ValType: ValType(t)})
	}
	code, _ := r.ReadBytes(r.Remaining())
	if len(code) == 0 || code[len(code)-1] != OpEnd {
		return FuncBody{}, errors.InvalidData(errors.PhaseDecode, nil, "function body does not end with end opcode")
	}
	body.Code = code
	return body, nil
}
