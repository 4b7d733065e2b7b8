package bind

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/ndbridge/affine"
	"github.com/wippyai/ndbridge/caster"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/imgmat"
	"github.com/wippyai/ndbridge/ndarray"
)

// Kind classifies a parameter or result of a bound function.
type Kind uint8

const (
	KindScalar Kind = iota
	KindTransform32
	KindTransform64
	KindMat
	KindArray
)

var (
	contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	transform32Type = reflect.TypeOf(affine.Transform[float32]{})
	transform64Type = reflect.TypeOf(affine.Transform[float64]{})
	matType         = reflect.TypeOf((*imgmat.Mat)(nil))
	arrayType       = reflect.TypeOf((*ndarray.Array)(nil))
)

// Param describes one Go parameter or result.
type Param struct {
	Type reflect.Type
	Kind Kind
}

func (p Param) String() string {
	switch p.Kind {
	case KindTransform32:
		return caster.TransformTypeName[float32]()
	case KindTransform64:
		return caster.TransformTypeName[float64]()
	case KindMat:
		return "*imgmat.Mat"
	case KindArray:
		return "*ndarray.Array"
	}
	return p.Type.String()
}

// IsArray reports whether the value crosses the boundary as an array.
func (p Param) IsArray() bool {
	return p.Kind != KindScalar
}

func classify(t reflect.Type) (Kind, bool) {
	switch t {
	case transform32Type:
		return KindTransform32, true
	case transform64Type:
		return KindTransform64, true
	case matType:
		return KindMat, true
	case arrayType:
		return KindArray, true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindScalar, true
	}
	return 0, false
}

// Signature is an analyzed Go function ready to be called with boundary
// arguments.
type Signature struct {
	argsPool sync.Pool
	fn       reflect.Value
	params   []Param
	result   *Param
	hasCtx   bool
	hasErr   bool
}

// Analyze inspects fn and records how each parameter and result crosses the
// boundary. An optional context.Context may come first; an optional error may
// come last.
func Analyze(fn any) (*Signature, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			GoType(reflect.TypeOf(fn).String()).
			Detail("handler must be a function").
			Build()
	}
	if rv.IsNil() {
		return nil, errors.NilPointer(errors.PhaseBind, nil, rv.Type().String())
	}

	ft := rv.Type()
	if ft.IsVariadic() {
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			GoType(ft.String()).
			Detail("variadic functions are not supported").
			Build()
	}

	s := &Signature{fn: rv}
	start := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		s.hasCtx = true
		start = 1
	}
	for i := start; i < ft.NumIn(); i++ {
		k, ok := classify(ft.In(i))
		if !ok {
			return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
				Path("param", itoa(i)).
				GoType(ft.In(i).String()).
				Detail("unsupported parameter type").
				Build()
		}
		s.params = append(s.params, Param{Type: ft.In(i), Kind: k})
	}

	nout := ft.NumOut()
	if nout > 0 && ft.Out(nout-1) == errorType {
		s.hasErr = true
		nout--
	}
	switch nout {
	case 0:
	case 1:
		k, ok := classify(ft.Out(0))
		if !ok {
			return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
				Path("result").
				GoType(ft.Out(0).String()).
				Detail("unsupported result type").
				Build()
		}
		s.result = &Param{Type: ft.Out(0), Kind: k}
	default:
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			GoType(ft.String()).
			Detail("at most one result plus an optional error is supported").
			Build()
	}

	numIn := ft.NumIn()
	s.argsPool = sync.Pool{
		New: func() any {
			v := make([]reflect.Value, numIn)
			return &v
		},
	}
	return s, nil
}

// NumArgs returns the number of boundary arguments, excluding a context.
func (s *Signature) NumArgs() int { return len(s.params) }

// Params returns the boundary parameters in order.
func (s *Signature) Params() []Param { return append([]Param(nil), s.params...) }

// Result returns the result description, if the function has one.
func (s *Signature) Result() (Param, bool) {
	if s.result == nil {
		return Param{}, false
	}
	return *s.result, true
}

// HasContext reports whether the function takes a leading context.
func (s *Signature) HasContext() bool { return s.hasCtx }

// String renders the signature as "(a, b) -> r".
func (s *Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	if s.result == nil {
		b.WriteString("None")
	} else {
		b.WriteString(s.result.String())
	}
	return b.String()
}

// load converts boundary arguments into Go values, writing them into dst
// after the context slot. The first error is returned with the argument
// index in its path.
func (s *Signature) load(dst []reflect.Value, args []Arg, opts []caster.Option) error {
	off := 0
	if s.hasCtx {
		off = 1
	}
	for i, p := range s.params {
		v, err := loadParam(p, args[i], opts)
		if err != nil {
			return errors.WithPath(err, "arg"+itoa(i))
		}
		dst[off+i] = v
	}
	return nil
}

func loadParam(p Param, arg Arg, opts []caster.Option) (reflect.Value, error) {
	if p.Kind == KindScalar {
		return arg.Scalar(p.Type)
	}

	a, err := arg.Array()
	if err != nil {
		return reflect.Value{}, err
	}

	switch p.Kind {
	case KindTransform32:
		t, err := caster.LoadTransform[float32](a, opts...)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(t), nil
	case KindTransform64:
		t, err := caster.LoadTransform[float64](a, opts...)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(t), nil
	case KindMat:
		m, err := caster.LoadMat(a)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(m), nil
	}
	if a == nil {
		return reflect.Value{}, errors.NotConvertible(errors.PhaseLoad, "*ndarray.Array", "nil array")
	}
	return reflect.ValueOf(a), nil
}

// invoke calls the function with loaded arguments and converts the result.
func (s *Signature) invoke(ctx context.Context, args []reflect.Value) (Result, error) {
	if s.hasCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		args[0] = reflect.ValueOf(ctx)
	}

	out := s.fn.Call(args)

	if s.hasErr {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return Result{}, errv.Interface().(error)
		}
	}
	if s.result == nil {
		return Result{}, nil
	}
	return castResult(*s.result, out[0])
}

func castResult(p Param, v reflect.Value) (Result, error) {
	switch p.Kind {
	case KindTransform32:
		return Result{Array: caster.CastTransform(v.Interface().(affine.Transform[float32]))}, nil
	case KindTransform64:
		return Result{Array: caster.CastTransform(v.Interface().(affine.Transform[float64]))}, nil
	case KindMat:
		a, err := caster.CastMat(v.Interface().(*imgmat.Mat))
		if err != nil {
			return Result{}, errors.WithPath(err, "result")
		}
		return Result{Array: a}, nil
	case KindArray:
		a := v.Interface().(*ndarray.Array)
		if a == nil {
			return Result{}, nil
		}
		return Result{Array: a}, nil
	}
	return Result{Value: v.Interface()}, nil
}

// Call loads args, invokes the function and converts its result. It is the
// single-signature form of Overloads.Call.
func (s *Signature) Call(ctx context.Context, args []Arg, opts ...caster.Option) (Result, error) {
	if len(args) != len(s.params) {
		return Result{}, errors.New(errors.PhaseBind, errors.KindNotConvertible).
			Detail("expected %d arguments, got %d", len(s.params), len(args)).
			Build()
	}

	ptr := s.argsPool.Get().(*[]reflect.Value)
	vals := *ptr
	defer func() {
		var zero reflect.Value
		for i := range vals {
			vals[i] = zero
		}
		s.argsPool.Put(ptr)
	}()

	if err := s.load(vals, args, opts); err != nil {
		return Result{}, err
	}
	return s.invoke(ctx, vals)
}
