package caster

import (
	"github.com/wippyai/ndbridge/imgmat"
	"github.com/wippyai/ndbridge/ndarray"
)

// DepthOf maps an array dtype to a Mat depth. Only uint8, uint16, int32 and
// float32 have a mapping, matched in that order.
func DepthOf(dt ndarray.DType) (imgmat.Depth, bool) {
	switch dt {
	case ndarray.Uint8:
		return imgmat.U8, true
	case ndarray.Uint16:
		return imgmat.U16, true
	case ndarray.Int32:
		return imgmat.S32, true
	case ndarray.Float32:
		return imgmat.F32, true
	}
	return 0, false
}

// DTypeOf maps a Mat depth to an array dtype. Only 8U, 16U, 32S and 32F have
// a mapping, matched in that order.
func DTypeOf(d imgmat.Depth) (ndarray.DType, bool) {
	switch d {
	case imgmat.U8:
		return ndarray.Uint8, true
	case imgmat.U16:
		return ndarray.Uint16, true
	case imgmat.S32:
		return ndarray.Int32, true
	case imgmat.F32:
		return ndarray.Float32, true
	}
	return ndarray.Invalid, false
}
