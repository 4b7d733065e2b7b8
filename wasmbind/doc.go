// Package wasmbind exposes native Go functions to WebAssembly guests running
// in wazero.
//
// Arrays cross the boundary as descriptors in guest memory (see Descriptor).
// Each host import takes one descriptor pointer per argument and a pointer to
// a result descriptor, and returns a status:
//
//	StatusOK       result descriptor written
//	StatusNoMatch  no overload accepts the arguments
//	StatusError    conversion or function failure
//
// Result data is allocated in the guest by calling its ndbridge_alloc
// export. A function without a result writes a zeroed descriptor.
//
//	h := wasmbind.NewHost("demo")
//	h.MustFunc("echo",
//		func(t affine.Transform[float64]) affine.Transform[float64] { return t },
//		func(m *imgmat.Mat) *imgmat.Mat { return m },
//	)
//	if _, err := h.Instantiate(ctx, r); err != nil {
//		return err
//	}
//
// Inbound arrays are views over guest memory and are valid only for the
// duration of the host call. Scalar parameters and results are rejected at
// registration.
package wasmbind
