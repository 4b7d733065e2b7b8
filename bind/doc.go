// Package bind exposes native Go functions to a scripting environment.
//
// Analyze inspects a function by reflection. Parameters may be
// affine.Transform[float32], affine.Transform[float64], *imgmat.Mat,
// *ndarray.Array or a scalar (bool, string, integer, float); a
// context.Context may come first. The function returns at most one such
// value, optionally followed by an error.
//
// Overloads groups several functions under one name:
//
//	o, err := bind.NewOverloads("echo",
//		func(t affine.Transform[float64]) affine.Transform[float64] { return t },
//		func(t affine.Transform[float32]) affine.Transform[float32] { return t },
//	)
//	res, err := o.Call(ctx, args)
//
// Call tries each overload in order. An argument conversion that fails with
// a NotConvertible error moves on to the next overload. Any other conversion
// error aborts the call. When nothing matches the error lists the supported
// signatures.
//
// Environments supply arguments through the Arg interface; see the jsbind
// and wasmbind packages.
package bind
