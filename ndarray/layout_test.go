package ndarray

import (
	"testing"
)

func seq(a *Array) {
	i := 0
	a.walk(C, func(off int) {
		storeFloat(a.data[off:], a.dtype, float64(i))
		i++
	})
}

func TestRequire_NoCopyWhenSatisfied(t *testing.T) {
	a, _ := New(Float32, []int{4, 4}, F)
	alloc := &countingAllocator{}

	out, copied, err := Require(a, Float32, F, alloc)
	if err != nil {
		t.Fatal(err)
	}
	if copied || out != a {
		t.Error("Require must return the input when it already matches")
	}
	if alloc.calls != 0 {
		t.Errorf("allocator called %d times", alloc.calls)
	}
}

func TestRequire_ReordersLayout(t *testing.T) {
	a, _ := New(Float64, []int{2, 3}, C)
	seq(a)
	alloc := &countingAllocator{}

	out, copied, err := Require(a, Float64, F, alloc)
	if err != nil {
		t.Fatal(err)
	}
	if !copied || !out.Owned() || !out.IsFContiguous() {
		t.Fatalf("expected owned F-contiguous copy, got %v copied=%v", out.Strides(), copied)
	}
	if alloc.calls != 1 || alloc.bytes != 48 {
		t.Errorf("allocations = %d (%d bytes)", alloc.calls, alloc.bytes)
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			want, _ := a.Float64At(i, j)
			got, _ := out.Float64At(i, j)
			if got != want {
				t.Errorf("[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}

	// Column-major storage: the second element in memory is (1,0).
	s, _ := Slice[float64](out)
	if s[1] != 3 {
		t.Errorf("memory[1] = %v, want 3", s[1])
	}
}

func TestRequire_CastsElements(t *testing.T) {
	tests := []struct {
		name string
		src  DType
		dst  DType
		in   float64
		want float64
	}{
		{"f64_to_f32", Float64, Float32, 1.5, 1.5},
		{"u8_to_f64", Uint8, Float64, 200, 200},
		{"f32_to_i32_truncates", Float32, Int32, -2.75, -2},
		{"i32_to_u8_wraps", Int32, Uint8, 257, 1},
		{"i16_to_i64", Int16, Int64, -300, -300},
		{"bool_to_f32", Bool, Float32, 1, 1},
		{"f64_to_bool", Float64, Bool, 0.25, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := New(tc.src, []int{1}, C)
			if err := a.SetFloat64(tc.in, 0); err != nil {
				t.Fatal(err)
			}
			out, copied, err := Require(a, tc.dst, C, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !copied {
				t.Error("dtype change must copy")
			}
			got, _ := out.Float64At(0)
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequire_Strided(t *testing.T) {
	// Every other uint16 of an 8-element buffer, viewed as 2x2.
	buf := make([]byte, 16)
	base, _ := FromBytes(buf, Uint16, []int{8}, nil)
	for i := range 8 {
		_ = base.SetFloat64(float64(i*10), i)
	}
	a, err := FromBytes(buf, Uint16, []int{2, 2}, []int{8, 4})
	if err != nil {
		t.Fatal(err)
	}

	out, copied, err := Require(a, Uint16, C, nil)
	if err != nil || !copied {
		t.Fatalf("copied=%v err=%v", copied, err)
	}
	s, _ := Slice[uint16](out)
	want := []uint16{0, 20, 40, 60}
	for i := range want {
		if s[i] != want[i] {
			t.Errorf("s[%d] = %d, want %d", i, s[i], want[i])
		}
	}
}

func TestCopy(t *testing.T) {
	s := []int32{1, 2, 3, 4}
	a, _ := FromSlice(s, []int{2, 2}, C)

	cp, err := a.Copy(C)
	if err != nil {
		t.Fatal(err)
	}
	if !cp.Owned() {
		t.Error("copy must be owned")
	}
	s[0] = 99
	if v, _ := cp.Float64At(0, 0); v != 1 {
		t.Errorf("copy aliases source: %v", v)
	}
}

func TestCopyTo_ShortBuffer(t *testing.T) {
	a, _ := New(Float32, []int{2, 2}, C)
	if err := a.CopyTo(make([]byte, 8), C); err == nil {
		t.Error("expected error for short destination")
	}
}

func TestRequire_Nil(t *testing.T) {
	if _, _, err := Require(nil, Float32, C, nil); err == nil {
		t.Error("expected error for nil array")
	}
}
