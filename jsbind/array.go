package jsbind

import (
	"github.com/dop251/goja"

	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// constructorFor returns the TypedArray constructor used to expose dt.
// Types without a JS counterpart travel as Uint8Array bytes with an explicit
// dtype field.
func constructorFor(dt ndarray.DType) string {
	switch dt {
	case ndarray.Int8:
		return "Int8Array"
	case ndarray.Int16:
		return "Int16Array"
	case ndarray.Uint16:
		return "Uint16Array"
	case ndarray.Int32:
		return "Int32Array"
	case ndarray.Uint32:
		return "Uint32Array"
	case ndarray.Float32:
		return "Float32Array"
	case ndarray.Float64:
		return "Float64Array"
	}
	return "Uint8Array"
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// typedArray is the byte view and element type of a TypedArray.
type typedArray struct {
	data  []byte
	dtype ndarray.DType
}

// asTypedArray reports whether v is a TypedArray and returns the bytes it
// views. The check goes by the exported element slice, so objects that only
// imitate a TypedArray's properties are rejected.
func asTypedArray(v goja.Value) (typedArray, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return typedArray{}, false
	}
	switch s := obj.Export().(type) {
	case []uint8:
		return typedView(s)
	case []int8:
		return typedView(s)
	case []uint16:
		return typedView(s)
	case []int16:
		return typedView(s)
	case []uint32:
		return typedView(s)
	case []int32:
		return typedView(s)
	case []float32:
		return typedView(s)
	case []float64:
		return typedView(s)
	}
	return typedArray{}, false
}

func typedView[T ndarray.Element](s []T) (typedArray, bool) {
	a, err := ndarray.FromSlice(s, []int{len(s)}, ndarray.C)
	if err != nil {
		return typedArray{}, false
	}
	return typedArray{data: a.Data(), dtype: a.DType()}, true
}

// ToArray presents a JS value as an ndarray.Array. Accepted forms:
//
//   - an ndarray object {data: TypedArray, shape, strides?, order?, dtype?}
//   - a bare TypedArray, read as rank 1
//   - a nested array of numbers, copied into a float64 C-order array
//
// TypedArray forms are zero-copy views over the ArrayBuffer. Values that are
// not array-like return a NotConvertible error; malformed ndarray objects
// return hard errors.
func ToArray(vm *goja.Runtime, v goja.Value) (*ndarray.Array, error) {
	if !present(v) {
		return nil, errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "value is "+describe(v))
	}
	if ta, ok := asTypedArray(v); ok {
		return ndarray.FromBytes(ta.data, ta.dtype, []int{len(ta.data) / ta.dtype.Size()}, nil)
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "value is "+describe(v))
	}
	if obj.ClassName() == "Array" {
		return fromNested(v.Export())
	}

	data := obj.Get("data")
	if !present(data) {
		return nil, errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "object has no data field")
	}
	ta, ok := asTypedArray(data)
	if !ok {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"data"}, "data must be a TypedArray")
	}
	return fromObject(obj, ta)
}

func fromObject(obj *goja.Object, ta typedArray) (*ndarray.Array, error) {
	dt := ta.dtype
	if v := obj.Get("dtype"); present(v) {
		parsed, err := ndarray.ParseDType(v.String())
		if err != nil {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Path("dtype").
				Cause(err).
				Build()
		}
		dt = parsed
	}

	var shape []int
	if v := obj.Get("shape"); present(v) {
		s, err := intList(v, "shape")
		if err != nil {
			return nil, err
		}
		shape = s
	} else {
		shape = []int{len(ta.data) / dt.Size()}
	}

	var strides []int
	if v := obj.Get("strides"); present(v) {
		s, err := intList(v, "strides")
		if err != nil {
			return nil, err
		}
		strides = s
	} else {
		order := ndarray.C
		if v := obj.Get("order"); present(v) {
			switch v.String() {
			case "C":
			case "F":
				order = ndarray.F
			default:
				return nil, errors.InvalidData(errors.PhaseLoad, []string{"order"}, "order must be \"C\" or \"F\", got "+v.String())
			}
		}
		strides = ndarray.ContiguousStrides(shape, dt.Size(), order)
	}

	return ndarray.FromBytes(ta.data, dt, shape, strides)
}

func intList(v goja.Value, field string) ([]int, error) {
	items, ok := v.Export().([]any)
	if !ok {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{field}, field+" must be an array of integers")
	}
	out := make([]int, len(items))
	for i, it := range items {
		switch n := it.(type) {
		case int64:
			out[i] = int(n)
		case int:
			out[i] = n
		case float64:
			if n != float64(int(n)) {
				return nil, errors.InvalidData(errors.PhaseLoad, []string{field}, field+" must hold integers")
			}
			out[i] = int(n)
		default:
			return nil, errors.InvalidData(errors.PhaseLoad, []string{field}, field+" must hold integers")
		}
	}
	return out, nil
}

// fromNested copies a rectangular nested list of numbers into a float64
// C-order array.
func fromNested(v any) (*ndarray.Array, error) {
	var shape []int
	for cur := v; ; {
		list, ok := cur.([]any)
		if !ok {
			break
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			break
		}
		cur = list[0]
	}

	out, err := ndarray.New(ndarray.Float64, shape, ndarray.C)
	if err != nil {
		return nil, err
	}
	vals, _ := ndarray.Slice[float64](out)
	pos := 0
	var fill func(cur any, dim int) error
	fill = func(cur any, dim int) error {
		if dim == len(shape) {
			switch n := cur.(type) {
			case int64:
				vals[pos] = float64(n)
			case float64:
				vals[pos] = n
			default:
				return errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "nested list holds non-numeric values")
			}
			pos++
			return nil
		}
		list, ok := cur.([]any)
		if !ok || len(list) != shape[dim] {
			return errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "nested list is not rectangular")
		}
		for _, item := range list {
			if err := fill(item, dim+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := fill(v, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// FromArray copies a into a fresh ArrayBuffer and returns an ndarray object
// {data, shape, strides, dtype, order}. F-contiguous arrays keep their
// order; everything else is packed in C order.
func FromArray(vm *goja.Runtime, a *ndarray.Array) (*goja.Object, error) {
	if a == nil {
		return nil, errors.NilPointer(errors.PhaseCast, nil, "*ndarray.Array")
	}
	order := ndarray.C
	if a.IsFContiguous() && !a.IsCContiguous() {
		order = ndarray.F
	}
	buf := make([]byte, a.Nbytes())
	if err := a.CopyTo(buf, order); err != nil {
		return nil, err
	}
	return newObject(vm, vm.NewArrayBuffer(buf), a.DType(), a.Shape(),
		ndarray.ContiguousStrides(a.Shape(), a.Itemsize(), order), order)
}

func newObject(vm *goja.Runtime, buf goja.ArrayBuffer, dt ndarray.DType, shape, strides []int, order ndarray.Order) (*goja.Object, error) {
	data, err := vm.New(vm.Get(constructorFor(dt)), vm.ToValue(buf))
	if err != nil {
		return nil, err
	}
	obj := vm.NewObject()
	for _, kv := range []struct {
		key string
		val any
	}{
		{"data", data},
		{"shape", vm.NewArray(toAny(shape)...)},
		{"strides", vm.NewArray(toAny(strides)...)},
		{"dtype", dt.String()},
		{"order", order.String()},
	} {
		if err := obj.Set(kv.key, kv.val); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func toAny(s []int) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// describe names the JS type of v for error messages.
func describe(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		return obj.ClassName()
	}
	switch v.Export().(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, float64:
		return "number"
	}
	return v.String()
}
