package ndarray

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	"github.com/wippyai/ndbridge/errors"
)

// Order is a memory ordering convention.
type Order byte

const (
	// C is row-major: the last dimension varies fastest.
	C Order = 'C'
	// F is column-major: the first dimension varies fastest.
	F Order = 'F'
)

func (o Order) String() string {
	switch o {
	case C:
		return "C"
	case F:
		return "F"
	}
	return "Order(" + strconv.Itoa(int(o)) + ")"
}

// Array is a strided n-dimensional view over a byte buffer.
type Array struct {
	data    []byte
	shape   []int
	strides []int
	dtype   DType
	owned   bool
}

// New allocates a zeroed array that owns its storage.
func New(dt DType, shape []int, order Order) (*Array, error) {
	return newWith(dt, shape, order, nil)
}

func newWith(dt DType, shape []int, order Order, alloc Allocator) (*Array, error) {
	if !dt.Valid() {
		return nil, errors.InvalidInput(errors.PhaseValidate, "invalid dtype "+dt.String())
	}
	if err := checkShape(shape, dt.Size()); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = DefaultAllocator
	}
	n := count(shape) * dt.Size()
	buf := alloc.Alloc(n)
	if len(buf) < n {
		return nil, errors.AllocationFailed(errors.PhaseRuntime, uint32(n), uint32(dt.Size()))
	}
	return &Array{
		data:    buf[:n],
		shape:   append([]int(nil), shape...),
		strides: ContiguousStrides(shape, dt.Size(), order),
		dtype:   dt,
		owned:   true,
	}, nil
}

// FromBytes creates a view over data. A nil strides slice means packed
// C order. Every addressable element must lie within data.
func FromBytes(data []byte, dt DType, shape, strides []int) (*Array, error) {
	if !dt.Valid() {
		return nil, errors.InvalidInput(errors.PhaseValidate, "invalid dtype "+dt.String())
	}
	if err := checkShape(shape, dt.Size()); err != nil {
		return nil, err
	}
	if strides == nil {
		strides = ContiguousStrides(shape, dt.Size(), C)
	}
	if len(strides) != len(shape) {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("%d strides for %d dimensions", len(strides), len(shape)).
			Build()
	}
	for i, s := range strides {
		if s < 0 {
			return nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("negative stride %d in dimension %d", s, i).
				Build()
		}
	}
	need, ok := extent(shape, strides, dt.Size())
	if !ok {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("strides %v over shape %s overflow int", strides, formatShape(shape)).
			Build()
	}
	if need > len(data) {
		return nil, errors.New(errors.PhaseValidate, errors.KindOutOfBounds).
			Path("data").
			Detail("array needs %d bytes, buffer has %d", need, len(data)).
			Build()
	}
	return &Array{
		data:    data,
		shape:   append([]int(nil), shape...),
		strides: append([]int(nil), strides...),
		dtype:   dt,
	}, nil
}

// Adopt creates an array that takes ownership of data. The caller must not
// retain data. A nil strides slice means packed C order.
func Adopt(data []byte, dt DType, shape, strides []int) (*Array, error) {
	a, err := FromBytes(data, dt, shape, strides)
	if err != nil {
		return nil, err
	}
	a.owned = true
	return a, nil
}

// FromSlice creates a zero-copy view over a typed slice laid out in order.
func FromSlice[T Element](s []T, shape []int, order Order) (*Array, error) {
	dt := DTypeOf[T]()
	if !dt.Valid() {
		var zero T
		return nil, errors.InvalidInput(errors.PhaseValidate, fmt.Sprintf("no dtype for Go type %T", zero))
	}
	if err := checkShape(shape, dt.Size()); err != nil {
		return nil, err
	}
	if n := count(shape); n != len(s) {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("shape %s holds %d elements, slice has %d", formatShape(shape), n, len(s)).
			Build()
	}
	var data []byte
	if len(s) > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*dt.Size())
	}
	return &Array{
		data:    data,
		shape:   append([]int(nil), shape...),
		strides: ContiguousStrides(shape, dt.Size(), order),
		dtype:   dt,
	}, nil
}

// ContiguousStrides returns packed byte strides for shape in the given order.
func ContiguousStrides(shape []int, itemsize int, order Order) []int {
	strides := make([]int, len(shape))
	acc := itemsize
	if order == F {
		for i := 0; i < len(shape); i++ {
			strides[i] = acc
			acc *= max(shape[i], 1)
		}
		return strides
	}
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= max(shape[i], 1)
	}
	return strides
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Itemsize returns the element width in bytes.
func (a *Array) Itemsize() int { return a.dtype.Size() }

// Ndim returns the number of dimensions.
func (a *Array) Ndim() int { return len(a.shape) }

// Shape returns a copy of the shape.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Strides returns a copy of the byte strides.
func (a *Array) Strides() []int { return append([]int(nil), a.strides...) }

// Dim returns the extent of dimension i.
func (a *Array) Dim(i int) int { return a.shape[i] }

// Stride returns the byte stride of dimension i.
func (a *Array) Stride(i int) int { return a.strides[i] }

// Len returns the number of elements.
func (a *Array) Len() int { return count(a.shape) }

// Nbytes returns the number of bytes the elements occupy when packed.
func (a *Array) Nbytes() int { return a.Len() * a.dtype.Size() }

// Data returns the underlying buffer. For views this aliases foreign memory.
func (a *Array) Data() []byte { return a.data }

// Owned reports whether the array owns independent storage.
func (a *Array) Owned() bool { return a.owned }

// IsCContiguous reports whether the elements are packed in row-major order.
func (a *Array) IsCContiguous() bool { return a.contiguous(C) }

// IsFContiguous reports whether the elements are packed in column-major order.
func (a *Array) IsFContiguous() bool { return a.contiguous(F) }

// Contiguous reports whether the elements are packed in the given order.
func (a *Array) Contiguous(order Order) bool { return a.contiguous(order) }

func (a *Array) contiguous(order Order) bool {
	if a.Len() == 0 {
		return true
	}
	expected := a.dtype.Size()
	check := func(i int) bool {
		// Dimensions of extent 1 never move the offset.
		if a.shape[i] != 1 && a.strides[i] != expected {
			return false
		}
		expected *= a.shape[i]
		return true
	}
	if order == F {
		for i := 0; i < len(a.shape); i++ {
			if !check(i) {
				return false
			}
		}
		return true
	}
	for i := len(a.shape) - 1; i >= 0; i-- {
		if !check(i) {
			return false
		}
	}
	return true
}

// String returns a compact description such as "float32[4,4]".
func (a *Array) String() string {
	if a == nil {
		return "<nil>"
	}
	return a.dtype.String() + formatShape(a.shape)
}

// Offset returns the byte offset of the element at idx.
func (a *Array) Offset(idx ...int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Detail("%d indices for %d dimensions", len(idx), len(a.shape)).
			Build()
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			return 0, errors.OutOfBounds(errors.PhaseRuntime, []string{"dim" + strconv.Itoa(i)}, v, a.shape[i])
		}
		off += v * a.strides[i]
	}
	return off, nil
}

// Slice returns the elements as a typed slice aliasing the array's buffer.
// The array must be contiguous in either order and have dtype matching T.
func Slice[T Element](a *Array) ([]T, error) {
	if dt := DTypeOf[T](); a.dtype != dt {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, nil, dt.String(), a.String())
	}
	if !a.IsCContiguous() && !a.IsFContiguous() {
		return nil, errors.InvalidData(errors.PhaseRuntime, nil, "array is not contiguous")
	}
	n := a.Len()
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&a.data[0])), n), nil
}

// checkShape rejects negative extents and shapes whose byte size does not
// fit in an int.
func checkShape(shape []int, itemsize int) error {
	for i, d := range shape {
		if d < 0 {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("negative extent %d in dimension %d", d, i).
				Build()
		}
	}
	n := itemsize
	for _, d := range shape {
		if d != 0 && n > math.MaxInt/d {
			return errors.New(errors.PhaseValidate, errors.KindInvalidData).
				Detail("shape %s of %d-byte elements overflows int", formatShape(shape), itemsize).
				Build()
		}
		n *= d
	}
	return nil
}

func count(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// extent returns the number of bytes spanned by the array, from offset 0 to
// the end of the last addressable element. Strides must be non-negative.
// ok is false when the span does not fit in an int.
func extent(shape, strides []int, itemsize int) (n int, ok bool) {
	if count(shape) == 0 {
		return 0, true
	}
	last := 0
	for i, d := range shape {
		if s := strides[i]; s != 0 && d-1 > (math.MaxInt-itemsize-last)/s {
			return 0, false
		}
		last += (d - 1) * strides[i]
	}
	return last + itemsize, true
}

func formatShape(shape []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, d := range shape {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteByte(']')
	return b.String()
}
