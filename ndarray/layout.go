package ndarray

import (
	"math"
	"unsafe"

	"github.com/wippyai/ndbridge/errors"
)

// Allocator provides storage for arrays created by layout conversions.
type Allocator interface {
	// Alloc returns a zeroed buffer of at least n bytes.
	Alloc(n int) []byte
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(n int) []byte {
	return make([]byte, n)
}

// DefaultAllocator is used when a nil Allocator is passed.
var DefaultAllocator Allocator = HeapAllocator{}

// Require returns an array with dtype dt that is contiguous in order. When
// a already satisfies both it is returned unchanged and copied is false.
// Otherwise a new owned array is allocated from alloc and the elements are
// converted into it.
func Require(a *Array, dt DType, order Order, alloc Allocator) (out *Array, copied bool, err error) {
	if a == nil {
		return nil, false, errors.NilPointer(errors.PhaseRuntime, nil, "*ndarray.Array")
	}
	if a.dtype == dt && a.contiguous(order) {
		return a, false, nil
	}
	out, err = convert(a, dt, order, alloc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Copy returns an owned copy of a packed in order.
func (a *Array) Copy(order Order) (*Array, error) {
	return convert(a, a.dtype, order, nil)
}

// CopyTo copies a's elements into dst packed in order. dst must hold at
// least Nbytes bytes.
func (a *Array) CopyTo(dst []byte, order Order) error {
	if len(dst) < a.Nbytes() {
		return errors.OutOfBounds(errors.PhaseRuntime, []string{"dst"}, a.Nbytes(), len(dst))
	}
	size := a.dtype.Size()
	pos := 0
	a.walk(order, func(off int) {
		copy(dst[pos:pos+size], a.data[off:off+size])
		pos += size
	})
	return nil
}

func convert(a *Array, dt DType, order Order, alloc Allocator) (*Array, error) {
	out, err := newWith(dt, a.shape, order, alloc)
	if err != nil {
		return nil, err
	}
	if a.dtype == dt {
		if err := a.CopyTo(out.data, order); err != nil {
			return nil, err
		}
		return out, nil
	}
	size := dt.Size()
	pos := 0
	a.walk(order, func(off int) {
		castElement(out.data[pos:pos+size], dt, a.data[off:], a.dtype)
		pos += size
	})
	return out, nil
}

// walk visits the byte offset of every element, iterating so that the
// given order's fastest dimension changes first.
func (a *Array) walk(order Order, fn func(off int)) {
	n := a.Len()
	if n == 0 {
		return
	}
	nd := len(a.shape)
	if nd == 0 {
		fn(0)
		return
	}
	idx := make([]int, nd)
	off := 0
	for range n {
		fn(off)
		if order == F {
			for d := 0; d < nd; d++ {
				idx[d]++
				off += a.strides[d]
				if idx[d] < a.shape[d] {
					break
				}
				off -= idx[d] * a.strides[d]
				idx[d] = 0
			}
			continue
		}
		for d := nd - 1; d >= 0; d-- {
			idx[d]++
			off += a.strides[d]
			if idx[d] < a.shape[d] {
				break
			}
			off -= idx[d] * a.strides[d]
			idx[d] = 0
		}
	}
}

// Float64At returns the element at idx converted to float64.
func (a *Array) Float64At(idx ...int) (float64, error) {
	off, err := a.Offset(idx...)
	if err != nil {
		return 0, err
	}
	return loadFloat(a.data[off:], a.dtype), nil
}

// SetFloat64 stores v, converted to the array's dtype, at idx.
func (a *Array) SetFloat64(v float64, idx ...int) error {
	off, err := a.Offset(idx...)
	if err != nil {
		return err
	}
	storeFloat(a.data[off:], a.dtype, v)
	return nil
}

func castElement(dst []byte, dt DType, src []byte, st DType) {
	// Integer to integer conversions go through int64/uint64 to keep
	// values that float64 cannot represent exactly.
	if !dt.IsFloat() && !st.IsFloat() && dt != Bool && st != Bool {
		if st == Uint64 {
			storeInt(dst, dt, int64(load[uint64](src)))
			return
		}
		storeInt(dst, dt, loadInt(src, st))
		return
	}
	storeFloat(dst, dt, loadFloat(src, st))
}

func load[T Element | bool](b []byte) T {
	return *(*T)(unsafe.Pointer(&b[0]))
}

func store[T Element | bool](b []byte, v T) {
	*(*T)(unsafe.Pointer(&b[0])) = v
}

func loadInt(b []byte, dt DType) int64 {
	switch dt {
	case Int8:
		return int64(load[int8](b))
	case Uint8:
		return int64(load[uint8](b))
	case Int16:
		return int64(load[int16](b))
	case Uint16:
		return int64(load[uint16](b))
	case Int32:
		return int64(load[int32](b))
	case Uint32:
		return int64(load[uint32](b))
	case Int64:
		return load[int64](b)
	case Uint64:
		return int64(load[uint64](b))
	}
	return 0
}

func storeInt(b []byte, dt DType, v int64) {
	switch dt {
	case Int8:
		store(b, int8(v))
	case Uint8:
		store(b, uint8(v))
	case Int16:
		store(b, int16(v))
	case Uint16:
		store(b, uint16(v))
	case Int32:
		store(b, int32(v))
	case Uint32:
		store(b, uint32(v))
	case Int64:
		store(b, v)
	case Uint64:
		store(b, uint64(v))
	}
}

func loadFloat(b []byte, dt DType) float64 {
	switch dt {
	case Bool:
		if load[bool](b) {
			return 1
		}
		return 0
	case Float32:
		return float64(load[float32](b))
	case Float64:
		return load[float64](b)
	case Uint64:
		return float64(load[uint64](b))
	}
	return float64(loadInt(b, dt))
}

func storeFloat(b []byte, dt DType, v float64) {
	switch dt {
	case Bool:
		store(b, v != 0)
	case Float32:
		store(b, float32(v))
	case Float64:
		store(b, v)
	case Uint64:
		if v < 0 || math.IsNaN(v) {
			store(b, uint64(0))
			return
		}
		store(b, uint64(v))
	default:
		storeInt(b, dt, int64(v))
	}
}
