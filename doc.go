// Package ndbridge provides marshalling adapters that let native Go functions
// exchange affine transforms and image matrices with a scripting environment.
//
// Values cross the boundary as n-dimensional arrays. The adapters convert
// between those arrays and two native value types, so bound functions take
// and return the native types directly.
//
// # Architecture Overview
//
//	ndbridge/        Root package with the linear Memory and Allocator interfaces
//	├── ndarray/     Boundary array: dtype, shape, byte strides, layout requests
//	├── affine/      4x4 affine transform value type (float32, float64)
//	├── imgmat/      Dense image matrix with depth and channel type tags
//	├── caster/      Transform and image adapters (array <-> native value)
//	├── bind/        Reflective signatures and overload resolution
//	├── jsbind/      JavaScript environment integration (goja)
//	├── wasmbind/    WASM guest integration (wazero)
//	├── errors/      Structured error types
//	└── cmd/ndrun/   Script runner and interactive explorer
//
// # Quick Start
//
// Expose a Go function to JavaScript:
//
//	mod := jsbind.NewModule("geom")
//	mod.Func("translate", func(t affine.Transform[float64]) affine.Transform[float64] {
//	    t.Set(0, 3, t.At(0, 3)+1)
//	    return t
//	})
//
//	vm := goja.New()
//	jsbind.InstallHelpers(vm)
//	mod.Install(vm)
//
// Scripts then pass plain ndarray objects:
//
//	geom.translate(nd.array(new Float64Array(16), [4, 4], {order: "F"}))
//
// # Ownership
//
// Conversions into native values may alias caller memory:
//
//	array -> transform     view when already column-major float, copy otherwise
//	array -> image matrix  always a view over the array's buffer
//
// Conversions back to the environment always produce independent storage:
//
//	transform -> array     fresh copy, order tag follows the transform storage
//	image matrix -> array  fresh copy with explicit strides
//
// A view is valid only as long as the value it aliases. Bound functions must
// not retain image matrices received as arguments beyond the call.
//
// # Thread Safety
//
// The adapters are stateless and safe for concurrent use. Arrays and matrices
// are not synchronized; callers must not mutate a value while it is being
// converted.
package ndbridge
