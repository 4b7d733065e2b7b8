// Package affine provides a 3D affine transform value type stored as a 4x4
// homogeneous matrix.
//
// A Transform holds exactly 16 scalars of one floating point type. Its
// storage order is fixed at construction: ColMajor (the default) or
// RowMajor. Data exposes the raw storage so that callers can reinterpret it
// without reordering elements.
//
// The last row of a true affine map is [0 0 0 1]. Transform does not enforce
// this; IsAffine reports it.
package affine

import (
	"fmt"
	"strings"
)

// Scalar is the set of element types a Transform can hold.
type Scalar interface {
	float32 | float64
}

// StorageOrder selects how the 16 elements are laid out in memory.
type StorageOrder uint8

const (
	ColMajor StorageOrder = iota
	RowMajor
)

func (o StorageOrder) String() string {
	if o == RowMajor {
		return "RowMajor"
	}
	return "ColMajor"
}

// Transform is a 4x4 homogeneous matrix. The zero value is an all-zero
// column-major matrix.
type Transform[S Scalar] struct {
	m     [16]S
	order StorageOrder
}

// New returns an all-zero transform stored in order.
func New[S Scalar](order StorageOrder) Transform[S] {
	return Transform[S]{order: order}
}

// Identity returns the identity transform stored in order.
func Identity[S Scalar](order StorageOrder) Transform[S] {
	t := Transform[S]{order: order}
	for i := 0; i < 4; i++ {
		t.m[i*5] = 1
	}
	return t
}

// FromRows builds a transform from row-indexed values stored in order.
func FromRows[S Scalar](rows [4][4]S, order StorageOrder) Transform[S] {
	t := Transform[S]{order: order}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			t.m[t.index(r, c)] = rows[r][c]
		}
	}
	return t
}

func (t *Transform[S]) index(r, c int) int {
	if t.order == RowMajor {
		return r*4 + c
	}
	return c*4 + r
}

// At returns the element at row r, column c.
func (t Transform[S]) At(r, c int) S {
	return t.m[t.index(r, c)]
}

// Set stores v at row r, column c.
func (t *Transform[S]) Set(r, c int, v S) {
	t.m[t.index(r, c)] = v
}

// Order returns the storage order.
func (t Transform[S]) Order() StorageOrder {
	return t.order
}

// IsRowMajor reports whether the storage is row-major.
func (t Transform[S]) IsRowMajor() bool {
	return t.order == RowMajor
}

// Data returns the raw storage in declared order. The slice aliases t.
func (t *Transform[S]) Data() []S {
	return t.m[:]
}

// Rows returns the matrix as row-indexed values.
func (t Transform[S]) Rows() [4][4]S {
	var rows [4][4]S
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			rows[r][c] = t.At(r, c)
		}
	}
	return rows
}

// Translation returns the translation column.
func (t Transform[S]) Translation() [3]S {
	return [3]S{t.At(0, 3), t.At(1, 3), t.At(2, 3)}
}

// IsAffine reports whether the last row is exactly [0 0 0 1].
func (t Transform[S]) IsAffine() bool {
	return t.At(3, 0) == 0 && t.At(3, 1) == 0 && t.At(3, 2) == 0 && t.At(3, 3) == 1
}

// Assign copies the 16 elements of v into t, keeping t's storage order.
func (t *Transform[S]) Assign(v ColMajorView[S]) {
	if t.order == ColMajor {
		copy(t.m[:], v.data[:16])
		return
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			t.m[r*4+c] = v.At(r, c)
		}
	}
}

// Equal reports whether t and o hold the same logical matrix, regardless of
// storage order.
func (t Transform[S]) Equal(o Transform[S]) bool {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if t.At(r, c) != o.At(r, c) {
				return false
			}
		}
	}
	return true
}

func (t Transform[S]) String() string {
	var b strings.Builder
	for r := 0; r < 4; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < 4; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%g", t.At(r, c))
		}
	}
	return b.String()
}

// ColMajorView is a read-only 4x4 column-major overlay on a slice.
type ColMajorView[S Scalar] struct {
	data []S
}

// MapColMajor overlays a view on the first 16 elements of data without
// copying. It panics if data holds fewer than 16 elements.
func MapColMajor[S Scalar](data []S) ColMajorView[S] {
	_ = data[15]
	return ColMajorView[S]{data: data[:16:16]}
}

// At returns the element at row r, column c.
func (v ColMajorView[S]) At(r, c int) S {
	return v.data[c*4+r]
}
