package jsbind

import (
	"github.com/dop251/goja"

	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// HelpersName is the global the array helpers are installed under.
const HelpersName = "nd"

// InstallHelpers defines the nd global:
//
//	nd.array(typed, shape?, {order?, strides?, dtype?})  wrap a TypedArray without copying
//	nd.array(nestedList)                                 copy numbers into float64
//	nd.zeros(dtype, shape, order?)                       allocate a zeroed array
//	nd.dtype(x), nd.shape(x)                             inspect any array-like value
//	nd.format(x)                                         render elements as text
func InstallHelpers(vm *goja.Runtime) error {
	nd := vm.NewObject()
	helpers := map[string]func(goja.FunctionCall) goja.Value{
		"array":  func(call goja.FunctionCall) goja.Value { return ndArray(vm, call) },
		"zeros":  func(call goja.FunctionCall) goja.Value { return ndZeros(vm, call) },
		"dtype":  func(call goja.FunctionCall) goja.Value { return vm.ToValue(mustArray(vm, call.Argument(0)).DType().String()) },
		"shape":  func(call goja.FunctionCall) goja.Value { return vm.NewArray(toAny(mustArray(vm, call.Argument(0)).Shape())...) },
		"format": func(call goja.FunctionCall) goja.Value { return vm.ToValue(ndarray.Sprint(mustArray(vm, call.Argument(0)), 0)) },
	}
	for name, fn := range helpers {
		if err := nd.Set(name, fn); err != nil {
			return errors.Registration(errors.PhaseHost, HelpersName, name, err)
		}
	}
	if err := vm.Set(HelpersName, nd); err != nil {
		return errors.Registration(errors.PhaseHost, HelpersName, "", err)
	}
	return nil
}

func mustArray(vm *goja.Runtime, v goja.Value) *ndarray.Array {
	a, err := ToArray(vm, v)
	if err != nil {
		panic(vm.NewTypeError(err.Error()))
	}
	return a
}

func ndArray(vm *goja.Runtime, call goja.FunctionCall) goja.Value {
	src := call.Argument(0)
	if _, ok := asTypedArray(src); !ok {
		obj, err := FromArray(vm, mustArray(vm, src))
		if err != nil {
			throw(vm, err)
		}
		return obj
	}

	desc := vm.NewObject()
	_ = desc.Set("data", src)
	if shape := call.Argument(1); present(shape) {
		_ = desc.Set("shape", shape)
	}
	if opts := call.Argument(2); present(opts) {
		o := opts.ToObject(vm)
		for _, k := range []string{"order", "strides", "dtype"} {
			if v := o.Get(k); present(v) {
				_ = desc.Set(k, v)
			}
		}
	}

	a := mustArray(vm, desc)
	order := ndarray.C
	if a.IsFContiguous() && !a.IsCContiguous() {
		order = ndarray.F
	}
	for _, kv := range []struct {
		key string
		val any
	}{
		{"shape", vm.NewArray(toAny(a.Shape())...)},
		{"strides", vm.NewArray(toAny(a.Strides())...)},
		{"dtype", a.DType().String()},
		{"order", order.String()},
	} {
		if err := desc.Set(kv.key, kv.val); err != nil {
			throw(vm, err)
		}
	}
	return desc
}

func ndZeros(vm *goja.Runtime, call goja.FunctionCall) goja.Value {
	dt, err := ndarray.ParseDType(call.Argument(0).String())
	if err != nil {
		panic(vm.NewTypeError(err.Error()))
	}
	shape, err := intList(call.Argument(1), "shape")
	if err != nil {
		panic(vm.NewTypeError(err.Error()))
	}
	order := ndarray.C
	if v := call.Argument(2); present(v) && v.String() == "F" {
		order = ndarray.F
	}

	a, err := ndarray.New(dt, shape, order)
	if err != nil {
		throw(vm, err)
	}
	obj, err := FromArray(vm, a)
	if err != nil {
		throw(vm, err)
	}
	return obj
}
