// Package errors provides structured error types for the ndbridge library.
//
// Errors are categorized by Phase (which direction or layer failed) and Kind
// (error category). The Error type carries the argument path, the Go type and
// boundary array type involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindUnsupportedElementType).
//		Path("args", "0").
//		GoType("*imgmat.Mat").
//		ArrayType("float64[10,20]").
//		Detail("only uint8, uint16, int32, float32 are supported").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotConvertible(errors.PhaseLoad, "affine.Transform[float64]", "shape (3,4)")
//	err := errors.UnsupportedDimensionality(errors.PhaseLoad, 4)
//
// NotConvertible is the only soft kind: it tells the binding layer that an
// overload does not apply. Every other kind aborts the call.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
