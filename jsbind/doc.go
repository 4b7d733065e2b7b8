// Package jsbind exposes native Go functions to JavaScript running in goja.
//
// Arrays cross the boundary as plain objects:
//
//	{data: Float32Array, shape: [4, 4], strides: [4, 16], order: "F", dtype: "float32"}
//
// Only data is required. A bare TypedArray is a rank 1 array, and a nested
// list of numbers is copied into a float64 array. Inbound arrays backed by a
// TypedArray are zero-copy views over its ArrayBuffer and are valid only for
// the duration of the native call. Outbound arrays always get a fresh
// ArrayBuffer.
//
// A Module groups native functions under a global name:
//
//	m := jsbind.NewModule("demo")
//	m.MustFunc("echo",
//		func(t affine.Transform[float64]) affine.Transform[float64] { return t },
//		func(t affine.Transform[float32]) affine.Transform[float32] { return t },
//	)
//
//	rt, _ := jsbind.NewRuntime(jsbind.WithOutput(os.Stdout))
//	_ = rt.Install(m)
//	_, err := rt.Run(ctx, "main.js", `console.log(demo.echo(nd.zeros("float32", [4, 4])))`)
//
// A call that matches no overload throws a TypeError listing the supported
// signatures. Any other conversion or function error throws an Error.
package jsbind
