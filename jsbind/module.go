package jsbind

import (
	"context"
	"math"
	"reflect"
	"sort"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/bind"
	"github.com/wippyai/ndbridge/caster"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// Module is a named set of native functions exposed to JavaScript as a
// global object.
type Module struct {
	name  string
	funcs map[string]*bind.Overloads
	opts  []caster.Option
	mu    sync.RWMutex
}

// NewModule creates an empty module. opts apply to every inbound conversion.
func NewModule(name string, opts ...caster.Option) *Module {
	return &Module{
		name:  name,
		funcs: make(map[string]*bind.Overloads),
		opts:  opts,
	}
}

// Name returns the global name the module is installed under.
func (m *Module) Name() string { return m.name }

// Func registers fns as overloads of name, tried in the order given.
// Registering a name again replaces it.
func (m *Module) Func(name string, fns ...any) error {
	o, err := bind.NewOverloads(name, fns...)
	if err != nil {
		return errors.Registration(errors.PhaseHost, m.name, name, err)
	}
	if len(m.opts) > 0 {
		o = o.WithOptions(m.opts...)
	}

	m.mu.Lock()
	m.funcs[name] = o
	m.mu.Unlock()

	Logger().Debug("registered native function",
		zap.String("module", m.name),
		zap.String("func", name),
		zap.Int("overloads", len(fns)))
	return nil
}

// MustFunc is like Func but panics on error.
func (m *Module) MustFunc(name string, fns ...any) {
	if err := m.Func(name, fns...); err != nil {
		panic(err)
	}
}

// Funcs returns the registered functions sorted by name.
func (m *Module) Funcs() []*bind.Overloads {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*bind.Overloads, 0, len(m.funcs))
	for _, o := range m.funcs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Lookup returns the overloads registered under name.
func (m *Module) Lookup(name string) (*bind.Overloads, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.funcs[name]
	return o, ok
}

// Install defines the module as a global object on vm. Calls run with a
// background context.
func (m *Module) Install(vm *goja.Runtime) error {
	return m.install(vm, context.Background)
}

func (m *Module) install(vm *goja.Runtime, ctx func() context.Context) error {
	obj := vm.NewObject()
	for _, o := range m.Funcs() {
		if err := obj.Set(o.Name(), nativeFunc(vm, m.name, o, ctx)); err != nil {
			return errors.Registration(errors.PhaseHost, m.name, o.Name(), err)
		}
	}
	if err := vm.Set(m.name, obj); err != nil {
		return errors.Registration(errors.PhaseHost, m.name, "", err)
	}
	return nil
}

func nativeFunc(vm *goja.Runtime, module string, o *bind.Overloads, ctx func() context.Context) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]bind.Arg, len(call.Arguments))
		for i, v := range call.Arguments {
			args[i] = &arg{vm: vm, v: v}
		}

		res, err := o.Call(ctx(), args)
		if err != nil {
			Logger().Debug("native call failed",
				zap.String("module", module),
				zap.String("func", o.Name()),
				zap.Error(err))
			throw(vm, err)
		}

		v, err := toValue(vm, res)
		if err != nil {
			throw(vm, err)
		}
		return v
	}
}

// throw raises err in JavaScript. Overload mismatches become TypeError, all
// other failures a plain Error carrying the Go error.
func throw(vm *goja.Runtime, err error) {
	if errors.IsKind(err, errors.KindTypeMismatch) {
		panic(vm.NewTypeError(err.Error()))
	}
	panic(vm.NewGoError(err))
}

func toValue(vm *goja.Runtime, res bind.Result) (goja.Value, error) {
	switch {
	case res.Array != nil:
		obj, err := FromArray(vm, res.Array)
		if err != nil {
			return nil, err
		}
		return obj, nil
	case res.Value != nil:
		return vm.ToValue(res.Value), nil
	}
	return goja.Undefined(), nil
}

// arg adapts a JS value to bind.Arg. The array form is computed once per
// call and shared by every overload tried.
type arg struct {
	vm     *goja.Runtime
	v      goja.Value
	arr    *ndarray.Array
	err    error
	loaded bool
}

func (a *arg) Array() (*ndarray.Array, error) {
	if !a.loaded {
		a.arr, a.err = ToArray(a.vm, a.v)
		a.loaded = true
	}
	return a.arr, a.err
}

func (a *arg) Scalar(t reflect.Type) (reflect.Value, error) {
	notConvertible := func() (reflect.Value, error) {
		return reflect.Value{}, errors.NotConvertible(errors.PhaseLoad, t.String(), "value is "+describe(a.v))
	}
	if !present(a.v) {
		return notConvertible()
	}

	x := a.v.Export()
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, ok := x.(bool)
		if !ok {
			return notConvertible()
		}
		out.SetBool(b)
	case reflect.String:
		s, ok := x.(string)
		if !ok {
			return notConvertible()
		}
		out.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := integral(x)
		if !ok || out.OverflowInt(n) {
			return notConvertible()
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := integral(x)
		if !ok || n < 0 || out.OverflowUint(uint64(n)) {
			return notConvertible()
		}
		out.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		switch n := x.(type) {
		case int64:
			out.SetFloat(float64(n))
		case float64:
			out.SetFloat(n)
		default:
			return notConvertible()
		}
	default:
		return notConvertible()
	}
	return out, nil
}

func integral(x any) (int64, bool) {
	switch n := x.(type) {
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func (a *arg) String() string {
	if arr, err := a.Array(); err == nil {
		return arr.String()
	}
	return describe(a.v)
}
