package ndarray

import (
	"math"
	"slices"
	"testing"

	"github.com/wippyai/ndbridge/errors"
)

type countingAllocator struct {
	calls int
	bytes int
}

func (c *countingAllocator) Alloc(n int) []byte {
	c.calls++
	c.bytes += n
	return make([]byte, n)
}

func TestDType(t *testing.T) {
	tests := []struct {
		dt     DType
		name   string
		format string
		size   int
	}{
		{Bool, "bool", "?", 1},
		{Int8, "int8", "b", 1},
		{Uint8, "uint8", "B", 1},
		{Int16, "int16", "h", 2},
		{Uint16, "uint16", "H", 2},
		{Int32, "int32", "i", 4},
		{Uint32, "uint32", "I", 4},
		{Int64, "int64", "q", 8},
		{Uint64, "uint64", "Q", 8},
		{Float32, "float32", "f", 4},
		{Float64, "float64", "d", 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.dt.String(); got != tc.name {
				t.Errorf("String: got %q, want %q", got, tc.name)
			}
			if got := tc.dt.Format(); got != tc.format {
				t.Errorf("Format: got %q, want %q", got, tc.format)
			}
			if got := tc.dt.Size(); got != tc.size {
				t.Errorf("Size: got %d, want %d", got, tc.size)
			}
			for _, s := range []string{tc.name, tc.format} {
				parsed, err := ParseDType(s)
				if err != nil || parsed != tc.dt {
					t.Errorf("ParseDType(%q) = %v, %v", s, parsed, err)
				}
			}
		})
	}

	if Invalid.Valid() || DType(200).Valid() {
		t.Error("out of range dtypes must be invalid")
	}
	if _, err := ParseDType("complex128"); err == nil {
		t.Error("ParseDType should reject unknown names")
	}
}

func TestDTypeOf(t *testing.T) {
	if DTypeOf[float32]() != Float32 || DTypeOf[uint16]() != Uint16 || DTypeOf[int64]() != Int64 {
		t.Error("DTypeOf mismatch")
	}
}

func TestContiguousStrides(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		size  int
		order Order
		want  []int
	}{
		{"c_2d", []int{4, 4}, 4, C, []int{16, 4}},
		{"f_2d", []int{4, 4}, 4, F, []int{4, 16}},
		{"c_hwc", []int{10, 20, 3}, 1, C, []int{60, 3, 1}},
		{"f_hwc", []int{10, 20, 3}, 2, F, []int{2, 20, 400}},
		{"scalar", nil, 8, C, []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ContiguousStrides(tc.shape, tc.size, tc.order)
			if !slices.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFromBytes(t *testing.T) {
	t.Run("packed_default", func(t *testing.T) {
		a, err := FromBytes(make([]byte, 24), Float32, []int{2, 3}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(a.Strides(), []int{12, 4}) {
			t.Errorf("strides = %v", a.Strides())
		}
		if a.Owned() {
			t.Error("FromBytes must produce a view")
		}
		if a.String() != "float32[2,3]" {
			t.Errorf("String = %q", a.String())
		}
	})

	t.Run("short_buffer", func(t *testing.T) {
		_, err := FromBytes(make([]byte, 23), Float32, []int{2, 3}, nil)
		if !errors.IsKind(err, errors.KindOutOfBounds) {
			t.Errorf("expected out_of_bounds, got %v", err)
		}
	})

	t.Run("padded_rows", func(t *testing.T) {
		// 2 rows of 3 bytes with a row pitch of 4; the last row needs no padding.
		a, err := FromBytes(make([]byte, 7), Uint8, []int{2, 3}, []int{4, 1})
		if err != nil {
			t.Fatal(err)
		}
		if a.IsCContiguous() || a.IsFContiguous() {
			t.Error("padded array must not be contiguous")
		}
	})

	t.Run("bad_strides", func(t *testing.T) {
		if _, err := FromBytes(make([]byte, 16), Uint8, []int{4, 4}, []int{4}); err == nil {
			t.Error("expected stride count error")
		}
		if _, err := FromBytes(make([]byte, 16), Uint8, []int{4, 4}, []int{-4, 1}); err == nil {
			t.Error("expected negative stride error")
		}
	})

	t.Run("overflow", func(t *testing.T) {
		tests := []struct {
			name    string
			shape   []int
			strides []int
		}{
			{"count", []int{1 << 16, 1 << 16, 1 << 16, 1 << 16}, nil},
			{"bytes", []int{1 << 30, 1 << 30, 1 << 30}, []int{1, 1, 1}},
			{"strides", []int{2, 2}, []int{math.MaxInt / 2, math.MaxInt / 2}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := FromBytes(make([]byte, 16), Float64, tc.shape, tc.strides)
				if !errors.IsKind(err, errors.KindInvalidData) {
					t.Errorf("expected invalid data, got %v", err)
				}
			})
		}

		if _, err := New(Uint8, []int{1 << 30, 1 << 30, 1 << 30}, C); !errors.IsKind(err, errors.KindInvalidData) {
			t.Errorf("New: expected invalid data, got %v", err)
		}
	})

	t.Run("invalid_dtype", func(t *testing.T) {
		if _, err := FromBytes(nil, Invalid, []int{0}, nil); err == nil {
			t.Error("expected dtype error")
		}
	})

	t.Run("empty", func(t *testing.T) {
		a, err := FromBytes(nil, Int32, []int{0, 5}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if a.Len() != 0 || !a.IsCContiguous() || !a.IsFContiguous() {
			t.Error("empty arrays are trivially contiguous")
		}
	})
}

func TestFromSlice(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6}
	a, err := FromSlice(s, []int{2, 3}, C)
	if err != nil {
		t.Fatal(err)
	}
	if a.DType() != Float64 || a.Nbytes() != 48 {
		t.Fatalf("unexpected array %v nbytes=%d", a, a.Nbytes())
	}

	v, err := a.Float64At(1, 2)
	if err != nil || v != 6 {
		t.Errorf("At(1,2) = %v, %v", v, err)
	}

	// The array aliases the slice.
	s[0] = 42
	if v, _ := a.Float64At(0, 0); v != 42 {
		t.Errorf("expected view to see slice write, got %v", v)
	}

	if _, err := FromSlice(s, []int{4, 4}, C); err == nil {
		t.Error("expected element count mismatch")
	}
}

func TestContiguity(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		strides []int
		c, f    bool
	}{
		{"c_order", []int{4, 4}, []int{16, 4}, true, false},
		{"f_order", []int{4, 4}, []int{4, 16}, false, true},
		{"row_vector", []int{1, 4}, []int{16, 4}, true, true},
		{"column_vector", []int{4, 1}, []int{4, 4}, true, true},
		{"strided", []int{2, 2}, []int{16, 8}, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := FromBytes(make([]byte, 64), Float32, tc.shape, tc.strides)
			if err != nil {
				t.Fatal(err)
			}
			if a.IsCContiguous() != tc.c {
				t.Errorf("IsCContiguous = %v, want %v", a.IsCContiguous(), tc.c)
			}
			if a.IsFContiguous() != tc.f {
				t.Errorf("IsFContiguous = %v, want %v", a.IsFContiguous(), tc.f)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	a, _ := New(Int32, []int{2, 2}, C)
	s, err := Slice[int32](a)
	if err != nil {
		t.Fatal(err)
	}
	s[3] = 7
	if v, _ := a.Float64At(1, 1); v != 7 {
		t.Errorf("slice does not alias array: %v", v)
	}

	if _, err := Slice[float32](a); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("expected type mismatch, got %v", err)
	}

	strided, _ := FromBytes(make([]byte, 64), Int32, []int{2, 2}, []int{16, 8})
	if _, err := Slice[int32](strided); err == nil {
		t.Error("expected error for non-contiguous array")
	}
}

func TestOffset(t *testing.T) {
	a, _ := New(Uint16, []int{3, 5}, F)
	off, err := a.Offset(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if off != 2*2+4*6 {
		t.Errorf("offset = %d", off)
	}
	if _, err := a.Offset(3, 0); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("expected out_of_bounds, got %v", err)
	}
	if _, err := a.Offset(1); err == nil {
		t.Error("expected rank mismatch error")
	}
}
