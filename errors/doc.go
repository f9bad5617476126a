// Package errors provides structured error types for the vspirv module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the record path, the packed record name, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindOverflow).
//		Path("result", "data_buffers[0]").
//		Record("BDD<byte>").
//		Detail("count %d exceeds maximum %d", n, max).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Compilation(errors.PhaseCrossCompile, nativeMessage)
//	err := errors.OutOfBounds(errors.PhaseDecode, path, 2, 1)
//
// Independent failures are collected into an AggregateError, which lists
// every sub-failure rather than the first one.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
