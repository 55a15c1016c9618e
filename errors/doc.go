// Package errors provides structured error types for the fractal encoder.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending name or path, a detail message, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindLocalIndex).
//		Path("mandelbrot", "code").
//		Value(9).
//		Detail("local %d referenced, %d declared", 9, 7).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownVariant("mandelbar")
//	err := errors.SectionLength(errors.PhaseDecode, "code", 40, 38)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when Phase and Kind are equal.
package errors
