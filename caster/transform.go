package caster

import (
	"github.com/wippyai/ndbridge/affine"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// TransformTypeName returns the Go type name used in error messages.
func TransformTypeName[S affine.Scalar]() string {
	return "affine.Transform[" + ndarray.DTypeOf[S]().String() + "]"
}

// LoadTransform converts a 4x4 array into a transform. The array is first
// requested as column-major S elements; that request copies only when the
// array is not already in that layout. Any array that cannot be presented
// as a 4x4 matrix yields a NotConvertible error.
func LoadTransform[S affine.Scalar](src *ndarray.Array, opts ...Option) (affine.Transform[S], error) {
	o := collect(opts)
	t := affine.New[S](o.order)
	goType := TransformTypeName[S]()

	if src == nil {
		return t, errors.NotConvertible(errors.PhaseLoad, goType, "nil array")
	}
	if src.Ndim() != 2 || src.Dim(0) != 4 || src.Dim(1) != 4 {
		return t, errors.New(errors.PhaseLoad, errors.KindNotConvertible).
			GoType(goType).
			ArrayType(src.String()).
			Detail("only 4x4 arrays are accepted").
			Build()
	}

	arr, _, err := ndarray.Require(src, ndarray.DTypeOf[S](), ndarray.F, o.alloc)
	if err != nil {
		return t, errors.New(errors.PhaseLoad, errors.KindNotConvertible).
			GoType(goType).
			ArrayType(src.String()).
			Cause(err).
			Build()
	}

	data, err := ndarray.Slice[S](arr)
	if err != nil {
		return t, errors.New(errors.PhaseLoad, errors.KindNotConvertible).
			GoType(goType).
			ArrayType(arr.String()).
			Cause(err).
			Build()
	}
	t.Assign(affine.MapColMajor(data))
	return t, nil
}

// CastTransform converts t into an owned 4x4 array. The raw storage is copied
// as is; the array's order follows t's storage order.
func CastTransform[S affine.Scalar](t affine.Transform[S]) *ndarray.Array {
	order := ndarray.F
	if t.IsRowMajor() {
		order = ndarray.C
	}
	data := make([]byte, 16*ndarray.DTypeOf[S]().Size())
	src, _ := ndarray.FromSlice(t.Data(), []int{4, 4}, order)
	copy(data, src.Data())
	out, _ := ndarray.Adopt(data, src.DType(), src.Shape(), src.Strides())
	return out
}
