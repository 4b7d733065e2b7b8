package wasmbind

import (
	"encoding/binary"
	"strconv"

	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// Descriptor layout in guest memory, little-endian:
//
//	offset  size  field
//	0       4     data pointer
//	4       4     data length in bytes
//	8       1     dtype code (ndarray.DType)
//	9       1     order hint, 'C' or 'F' (0 means 'C')
//	10      1     ndim
//	11      1     reserved
//	12      16    shape, 4 x u32
//	28      16    strides in bytes, 4 x i32
const (
	DescriptorSize  = 44
	DescriptorAlign = 4
	MaxRank         = 4

	offData    = 0
	offLen     = 4
	offDType   = 8
	offOrder   = 9
	offNdim    = 10
	offShape   = 12
	offStrides = 28
)

// Descriptor is the decoded form of an array descriptor.
type Descriptor struct {
	Data    uint32
	Len     uint32
	DType   ndarray.DType
	Order   ndarray.Order
	Ndim    uint8
	Shape   [MaxRank]uint32
	Strides [MaxRank]int32
}

// Decode parses a descriptor from its DescriptorSize bytes.
func Decode(b []byte) (Descriptor, error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, errors.OutOfBounds(errors.PhaseLoad, []string{"descriptor"}, len(b), DescriptorSize)
	}
	d := Descriptor{
		Data:  binary.LittleEndian.Uint32(b[offData:]),
		Len:   binary.LittleEndian.Uint32(b[offLen:]),
		DType: ndarray.DType(b[offDType]),
		Order: ndarray.Order(b[offOrder]),
		Ndim:  b[offNdim],
	}
	if d.Order == 0 {
		d.Order = ndarray.C
	}
	if d.Ndim > MaxRank {
		return Descriptor{}, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Path("descriptor", "ndim").
			Value(int(d.Ndim)).
			Detail("rank %d exceeds %d", d.Ndim, MaxRank).
			Build()
	}
	for i := 0; i < MaxRank; i++ {
		d.Shape[i] = binary.LittleEndian.Uint32(b[offShape+4*i:])
		d.Strides[i] = int32(binary.LittleEndian.Uint32(b[offStrides+4*i:]))
	}
	return d, nil
}

// Encode serializes d into DescriptorSize bytes.
func (d Descriptor) Encode() []byte {
	b := make([]byte, DescriptorSize)
	binary.LittleEndian.PutUint32(b[offData:], d.Data)
	binary.LittleEndian.PutUint32(b[offLen:], d.Len)
	b[offDType] = byte(d.DType)
	b[offOrder] = byte(d.Order)
	b[offNdim] = d.Ndim
	for i := 0; i < MaxRank; i++ {
		binary.LittleEndian.PutUint32(b[offShape+4*i:], d.Shape[i])
		binary.LittleEndian.PutUint32(b[offStrides+4*i:], uint32(d.Strides[i]))
	}
	return b
}

func (d Descriptor) shape() ([]int, []int) {
	shape := make([]int, d.Ndim)
	strides := make([]int, d.Ndim)
	for i := range shape {
		shape[i] = int(d.Shape[i])
		strides[i] = int(d.Strides[i])
	}
	return shape, strides
}

// ReadArray decodes the descriptor at ptr and returns a view over the guest
// memory it describes. The view is valid until the guest frees or moves
// that memory, and never beyond the current host call.
func ReadArray(mem ndbridge.Memory, ptr uint32) (*ndarray.Array, error) {
	if ptr == 0 {
		return nil, errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "null descriptor")
	}
	raw, err := readRange(mem, ptr, DescriptorSize)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindOutOfBounds).
			Path("descriptor").
			Detail("descriptor at %#x", ptr).
			Cause(err).
			Build()
	}
	d, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if !d.DType.Valid() {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Path("descriptor", "dtype").
			Value(int(d.DType)).
			Detail("unknown dtype code %d", d.DType).
			Build()
	}

	var data []byte
	if d.Len > 0 {
		data, err = readRange(mem, d.Data, d.Len)
		if err != nil {
			return nil, errors.New(errors.PhaseLoad, errors.KindOutOfBounds).
				Path("descriptor", "data").
				Detail("%d bytes at %#x", d.Len, d.Data).
				Cause(err).
				Build()
		}
	}
	shape, strides := d.shape()
	return ndarray.FromBytes(data, d.DType, shape, strides)
}

// WriteArray copies a into guest memory obtained from alloc and writes its
// descriptor at descPtr. F-contiguous arrays keep their order; everything
// else is packed in C order.
func WriteArray(mem ndbridge.Memory, alloc ndbridge.Allocator, a *ndarray.Array, descPtr uint32) error {
	if a == nil {
		return errors.NilPointer(errors.PhaseCast, nil, "*ndarray.Array")
	}
	if a.Ndim() > MaxRank {
		return errors.New(errors.PhaseCast, errors.KindInvalidData).
			ArrayType(a.String()).
			Detail("rank %d exceeds %d", a.Ndim(), MaxRank).
			Build()
	}

	order := ndarray.C
	if a.IsFContiguous() && !a.IsCContiguous() {
		order = ndarray.F
	}
	buf := make([]byte, a.Nbytes())
	if err := a.CopyTo(buf, order); err != nil {
		return err
	}

	d := Descriptor{
		Len:   uint32(len(buf)),
		DType: a.DType(),
		Order: order,
		Ndim:  uint8(a.Ndim()),
	}
	if len(buf) > 0 {
		ptr, err := alloc.Alloc(uint32(len(buf)), uint32(a.Itemsize()))
		if err != nil {
			return errors.Wrap(errors.PhaseCast, errors.KindAllocation, err, "allocate "+strconv.Itoa(len(buf))+" bytes")
		}
		if err := writeRange(mem, ptr, buf); err != nil {
			return errors.Wrap(errors.PhaseCast, errors.KindOutOfBounds, err, "write array data")
		}
		d.Data = ptr
	}
	strides := ndarray.ContiguousStrides(a.Shape(), a.Itemsize(), order)
	for i := 0; i < a.Ndim(); i++ {
		d.Shape[i] = uint32(a.Dim(i))
		d.Strides[i] = int32(strides[i])
	}
	return writeDescriptor(mem, descPtr, d)
}

func writeDescriptor(mem ndbridge.Memory, ptr uint32, d Descriptor) error {
	if err := writeRange(mem, ptr, d.Encode()); err != nil {
		return errors.New(errors.PhaseCast, errors.KindOutOfBounds).
			Path("descriptor").
			Detail("descriptor at %#x", ptr).
			Cause(err).
			Build()
	}
	return nil
}
