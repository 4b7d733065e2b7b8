package caster

import (
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/imgmat"
	"github.com/wippyai/ndbridge/ndarray"
)

const matTypeName = "*imgmat.Mat"

// LoadMat returns a Mat that aliases src's buffer. The Mat is valid only as
// long as src's memory is.
//
// Rank 2 arrays are read as (height, width) with one channel, rank 3 arrays
// as (height, width, channels). Channels must be packed within a pixel and
// pixels within a row; rows may be further apart than their packed size.
func LoadMat(src *ndarray.Array) (*imgmat.Mat, error) {
	if src == nil {
		return nil, errors.NotConvertible(errors.PhaseLoad, matTypeName, "nil array")
	}

	var h, w, c int
	switch src.Ndim() {
	case 2:
		h, w, c = src.Dim(0), src.Dim(1), 1
	case 3:
		h, w, c = src.Dim(0), src.Dim(1), src.Dim(2)
	default:
		err := errors.UnsupportedDimensionality(errors.PhaseLoad, src.Ndim())
		err.GoType = matTypeName
		err.ArrayType = src.String()
		return nil, err
	}

	if c < 1 || c > imgmat.MaxChannels {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			GoType(matTypeName).
			ArrayType(src.String()).
			Value(c).
			Detail("%d channels outside 1..%d", c, imgmat.MaxChannels).
			Build()
	}

	depth, ok := DepthOf(src.DType())
	if !ok {
		err := errors.UnsupportedElementType(errors.PhaseLoad, src.DType().String())
		err.GoType = matTypeName
		err.ArrayType = src.String()
		return nil, err
	}

	step, err := rowStep(src, h, w, c)
	if err != nil {
		return nil, err
	}

	m, err := imgmat.FromBytes(h, w, imgmat.MakeType(depth, c), src.Data(), step)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			GoType(matTypeName).
			ArrayType(src.String()).
			Cause(err).
			Build()
	}
	return m, nil
}

// rowStep returns the Mat step for src, or 0 when rows are packed.
func rowStep(src *ndarray.Array, h, w, c int) (int, error) {
	esz := src.Itemsize()
	packed := true
	if src.Ndim() == 3 && c > 1 && src.Stride(2) != esz {
		packed = false
	}
	if w > 1 && src.Stride(1) != esz*c {
		packed = false
	}
	row := esz * w * c
	if packed && (h <= 1 || src.Stride(0) == row) {
		return 0, nil
	}
	if packed && src.Stride(0) > row {
		return src.Stride(0), nil
	}
	return 0, errors.New(errors.PhaseLoad, errors.KindInvalidData).
		GoType(matTypeName).
		ArrayType(src.String()).
		Detail("strides %v cannot be viewed as an image; pixels must be packed in row-major order", src.Strides()).
		Build()
}

// CastMat copies m into an owned array. Single-channel matrices become
// (rows, cols) arrays, multi-channel ones (rows, cols, channels). Strides are
// packed channel-last regardless of m's own step.
func CastMat(m *imgmat.Mat) (*ndarray.Array, error) {
	if m == nil {
		return nil, errors.NilPointer(errors.PhaseCast, nil, matTypeName)
	}

	dt, ok := DTypeOf(m.Depth())
	if !ok {
		err := errors.UnsupportedElementType(errors.PhaseCast, m.Type().String())
		err.GoType = matTypeName
		return nil, err
	}

	esz := dt.Size()
	h, w, c := m.Rows(), m.Cols(), m.Channels()

	var shape, strides []int
	if imgmat.Type(m.Depth()) == m.Type() {
		shape = []int{h, w}
		strides = []int{esz * w, esz}
	} else {
		shape = []int{h, w, c}
		strides = []int{esz * w * c, esz * c, esz}
	}

	row := esz * w * c
	buf := make([]byte, h*row)
	for y := 0; y < h; y++ {
		copy(buf[y*row:(y+1)*row], m.Row(y))
	}
	return ndarray.Adopt(buf, dt, shape, strides)
}
