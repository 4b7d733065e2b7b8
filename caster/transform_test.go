package caster

import (
	"math"
	"slices"
	"testing"

	"github.com/wippyai/ndbridge/affine"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

type countingAllocator struct {
	calls int
}

func (c *countingAllocator) Alloc(n int) []byte {
	c.calls++
	return make([]byte, n)
}

// logical returns the value used for element (r, c) in tests.
func logical(r, c int) float64 {
	return float64(r*4+c) + 0.125
}

func filled[T float32 | float64](order ndarray.Order) []T {
	s := make([]T, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if order == ndarray.F {
				s[c*4+r] = T(logical(r, c))
			} else {
				s[r*4+c] = T(logical(r, c))
			}
		}
	}
	return s
}

func TestLoadTransform_ColMajorF64RoundTrip(t *testing.T) {
	src := filled[float64](ndarray.F)
	// Include values whose bit patterns would be disturbed by any conversion.
	src[5] = math.Nextafter(1, 2)
	src[10] = math.SmallestNonzeroFloat64
	arr, _ := ndarray.FromSlice(src, []int{4, 4}, ndarray.F)

	tr, err := LoadTransform[float64](arr)
	if err != nil {
		t.Fatal(err)
	}
	out := CastTransform(tr)

	if !out.IsFContiguous() || out.DType() != ndarray.Float64 {
		t.Fatalf("unexpected output %v strides=%v", out, out.Strides())
	}
	got, _ := ndarray.Slice[float64](out)
	for i := range src {
		if math.Float64bits(got[i]) != math.Float64bits(src[i]) {
			t.Errorf("element %d: got %v, want %v", i, got[i], src[i])
		}
	}
}

func TestLoadTransform_RowMajorF32RoundTrip(t *testing.T) {
	src := filled[float32](ndarray.C)
	arr, _ := ndarray.FromSlice(src, []int{4, 4}, ndarray.C)

	tr, err := LoadTransform[float32](arr)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if tr.At(r, c) != float32(logical(r, c)) {
				t.Errorf("At(%d,%d) = %v", r, c, tr.At(r, c))
			}
		}
	}

	out := CastTransform(tr)
	if out.IsCContiguous() {
		t.Error("column-major transform should produce an F-ordered array")
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			v, _ := out.Float64At(r, c)
			if v != float64(float32(logical(r, c))) {
				t.Errorf("[%d,%d] = %v", r, c, v)
			}
		}
	}
}

func TestLoadTransform_ZeroCopy(t *testing.T) {
	arr, _ := ndarray.FromSlice(filled[float32](ndarray.F), []int{4, 4}, ndarray.F)
	alloc := &countingAllocator{}

	if _, err := LoadTransform[float32](arr, WithAllocator(alloc)); err != nil {
		t.Fatal(err)
	}
	if alloc.calls != 0 {
		t.Errorf("column-major float32 input allocated %d buffers", alloc.calls)
	}
}

func TestLoadTransform_CopiesWhenNeeded(t *testing.T) {
	tests := []struct {
		name string
		arr  func() *ndarray.Array
	}{
		{"row_major", func() *ndarray.Array {
			a, _ := ndarray.FromSlice(filled[float32](ndarray.C), []int{4, 4}, ndarray.C)
			return a
		}},
		{"wider_dtype", func() *ndarray.Array {
			a, _ := ndarray.FromSlice(filled[float64](ndarray.F), []int{4, 4}, ndarray.F)
			return a
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alloc := &countingAllocator{}
			tr, err := LoadTransform[float32](tc.arr(), WithAllocator(alloc))
			if err != nil {
				t.Fatal(err)
			}
			if alloc.calls != 1 {
				t.Errorf("allocations = %d, want 1", alloc.calls)
			}
			if tr.At(2, 1) != float32(logical(2, 1)) {
				t.Errorf("At(2,1) = %v", tr.At(2, 1))
			}
		})
	}
}

func TestLoadTransform_IntegerInput(t *testing.T) {
	s := make([]int32, 16)
	for i := range s {
		s[i] = int32(i)
	}
	arr, _ := ndarray.FromSlice(s, []int{4, 4}, ndarray.C)

	tr, err := LoadTransform[float64](arr)
	if err != nil {
		t.Fatal(err)
	}
	if tr.At(1, 2) != 6 {
		t.Errorf("At(1,2) = %v, want 6", tr.At(1, 2))
	}
}

func TestLoadTransform_NotConvertible(t *testing.T) {
	shapes := [][]int{{3, 4}, {5, 5}, {16}, {4, 4, 1}, {4, 3}}

	for _, shape := range shapes {
		n := 1
		for _, d := range shape {
			n *= d
		}
		arr, _ := ndarray.FromSlice(make([]float64, n), shape, ndarray.C)

		_, err := LoadTransform[float64](arr)
		if !errors.IsNotConvertible(err) {
			t.Errorf("shape %v: expected NotConvertible, got %v", shape, err)
		}
	}

	// A shape miss is reported before any layout copy.
	alloc := &countingAllocator{}
	arr, _ := ndarray.FromSlice(make([]int32, 9), []int{3, 3}, ndarray.C)
	if _, err := LoadTransform[float32](arr, WithAllocator(alloc)); !errors.IsNotConvertible(err) {
		t.Errorf("int32 3x3: expected NotConvertible, got %v", err)
	}
	if alloc.calls != 0 {
		t.Errorf("shape miss allocated %d buffers", alloc.calls)
	}

	if _, err := LoadTransform[float32](nil); !errors.IsNotConvertible(err) {
		t.Errorf("nil: expected NotConvertible, got %v", err)
	}
}

func TestLoadTransform_StorageOrderOption(t *testing.T) {
	arr, _ := ndarray.FromSlice(filled[float64](ndarray.F), []int{4, 4}, ndarray.F)

	tr, err := LoadTransform[float64](arr, WithStorageOrder(affine.RowMajor))
	if err != nil {
		t.Fatal(err)
	}
	if !tr.IsRowMajor() {
		t.Fatal("expected row-major storage")
	}
	if tr.At(3, 0) != logical(3, 0) {
		t.Errorf("At(3,0) = %v", tr.At(3, 0))
	}

	out := CastTransform(tr)
	if !out.IsCContiguous() || !slices.Equal(out.Strides(), []int{32, 8}) {
		t.Errorf("row-major transform should produce C strides, got %v", out.Strides())
	}
	got, _ := ndarray.Slice[float64](out)
	if !slices.Equal(got, tr.Data()) {
		t.Error("raw storage must be copied without reordering")
	}
}

func TestCastTransform_Owned(t *testing.T) {
	tr := affine.Identity[float64](affine.ColMajor)
	out := CastTransform(tr)
	if !out.Owned() {
		t.Fatal("output must be owned")
	}

	tr.Set(0, 0, 5)
	if v, _ := out.Float64At(0, 0); v != 1 {
		t.Error("output aliases the transform")
	}
	if !slices.Equal(out.Shape(), []int{4, 4}) {
		t.Errorf("shape = %v", out.Shape())
	}
}

func TestLoadTransform_ViewIsNotRetained(t *testing.T) {
	src := filled[float64](ndarray.F)
	arr, _ := ndarray.FromSlice(src, []int{4, 4}, ndarray.F)

	tr, err := LoadTransform[float64](arr)
	if err != nil {
		t.Fatal(err)
	}
	src[0] = -1
	if tr.At(0, 0) != logical(0, 0) {
		t.Error("transform must hold its own elements after load")
	}
}
