package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // variant selection and code generation
	PhaseEncode   Phase = "encode"   // module assembly
	PhaseDecode   Phase = "decode"   // binary parsing
	PhaseValidate Phase = "validate" // structural self-check
	PhaseLoad     Phase = "load"     // host compilation of a module
	PhaseRuntime  Phase = "runtime"  // host calls into a module
	PhaseConfig   Phase = "config"   // build manifest
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownVariant    Kind = "unknown_variant"
	KindDuplicate         Kind = "duplicate"
	KindInvalidInput      Kind = "invalid_input"
	KindLocalIndex        Kind = "local_index"
	KindBranchDepth       Kind = "branch_depth"
	KindUnbalanced        Kind = "unbalanced"
	KindStackMismatch     Kind = "stack_mismatch"
	KindTypeIndex         Kind = "type_index"
	KindSectionLength     Kind = "section_length"
	KindSectionOrder      Kind = "section_order"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindNotFound          Kind = "not_found"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindInstantiation     Kind = "instantiation"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path (variant name, section, field)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownVariant creates an error for a fractal name with no registered descriptor
func UnknownVariant(name string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindUnknownVariant,
		Path:   []string{name},
		Detail: fmt.Sprintf("no fractal variant named %q", name),
		Value:  name,
	}
}

// Duplicate creates an error for a name that appears more than once
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Path:   []string{name},
		Detail: fmt.Sprintf("%s %q listed more than once", what, name),
		Value:  name,
	}
}

// LocalIndex creates an error for an instruction referencing an undeclared local
func LocalIndex(path []string, index, declared uint32) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindLocalIndex,
		Path:   path,
		Detail: fmt.Sprintf("local %d referenced, only %d available", index, declared),
		Value:  index,
	}
}

// BranchDepth creates an error for a branch that targets a non-existent label
func BranchDepth(path []string, depth, nesting uint32) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindBranchDepth,
		Path:   path,
		Detail: fmt.Sprintf("branch depth %d exceeds nesting %d", depth, nesting),
		Value:  depth,
	}
}

// SectionLength creates a framing error where a declared size disagrees with the payload
func SectionLength(phase Phase, section string, declared, actual int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSectionLength,
		Path:   []string{section},
		Detail: fmt.Sprintf("declared %d bytes, found %d", declared, actual),
		Value:  declared,
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   []string{name},
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// SignatureMismatch creates an error for an export whose host-visible signature differs from the contract
func SignatureMismatch(name, want, got string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSignatureMismatch,
		Path:   []string{name},
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
