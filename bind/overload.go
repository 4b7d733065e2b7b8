package bind

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/caster"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// Arg is one argument as supplied by a scripting environment.
type Arg interface {
	// Array presents the argument as a boundary array. Values that are not
	// array-like return a NotConvertible error.
	Array() (*ndarray.Array, error)
	// Scalar converts the argument to t, which is a bool, string, integer or
	// float type. Values of the wrong kind return a NotConvertible error.
	Scalar(t reflect.Type) (reflect.Value, error)
	// String describes the argument for error messages.
	String() string
}

// Result is the converted return value of a call. At most one field is set;
// both are zero when the function returns nothing.
type Result struct {
	Array *ndarray.Array
	Value any
}

// IsNone reports whether the call produced no value.
func (r Result) IsNone() bool {
	return r.Array == nil && r.Value == nil
}

// Overloads is an ordered set of signatures registered under one name.
// It is immutable once built and safe for concurrent use.
type Overloads struct {
	name string
	sigs []*Signature
	opts []caster.Option
}

// NewOverloads analyzes each function in fns. Overloads are tried in the
// order given.
func NewOverloads(name string, fns ...any) (*Overloads, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseBind, "function name cannot be empty")
	}
	if len(fns) == 0 {
		return nil, errors.InvalidInput(errors.PhaseBind, "no functions given for "+name)
	}
	o := &Overloads{name: name}
	for i, fn := range fns {
		s, err := Analyze(fn)
		if err != nil {
			return nil, errors.WithPath(err, name, "overload"+itoa(i))
		}
		o.sigs = append(o.sigs, s)
	}
	return o, nil
}

// WithOptions returns a copy of o that passes opts to every inbound
// conversion.
func (o *Overloads) WithOptions(opts ...caster.Option) *Overloads {
	cp := *o
	cp.opts = append(append([]caster.Option(nil), o.opts...), opts...)
	return &cp
}

// Name returns the registered name.
func (o *Overloads) Name() string { return o.name }

// Signatures returns the overloads in resolution order.
func (o *Overloads) Signatures() []*Signature {
	return append([]*Signature(nil), o.sigs...)
}

// Call resolves the first overload whose parameters accept args and invokes
// it. An argument that is merely not convertible moves on to the next
// overload; any other conversion error aborts the call. When no overload
// matches, a TypeMismatch error lists the accepted signatures.
func (o *Overloads) Call(ctx context.Context, args []Arg) (Result, error) {
	for _, s := range o.sigs {
		if len(args) != s.NumArgs() {
			continue
		}

		res, err := o.try(ctx, s, args)
		if err == nil {
			return res, nil
		}
		if errors.IsNotConvertible(err) {
			Logger().Debug("overload skipped",
				zap.String("func", o.name),
				zap.Stringer("signature", s),
				zap.Error(err))
			continue
		}
		return Result{}, err
	}
	return Result{}, o.mismatch(args)
}

func (o *Overloads) try(ctx context.Context, s *Signature, args []Arg) (Result, error) {
	ptr := s.argsPool.Get().(*[]reflect.Value)
	vals := *ptr
	defer func() {
		var zero reflect.Value
		for i := range vals {
			vals[i] = zero
		}
		s.argsPool.Put(ptr)
	}()

	if err := s.load(vals, args, o.opts); err != nil {
		return Result{}, err
	}
	res, err := s.invoke(ctx, vals)
	if err != nil && errors.IsNotConvertible(err) {
		// Conversion failures raised by the function body itself are not a
		// reason to try another overload.
		return Result{}, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, o.name+" failed")
	}
	return res, err
}

func (o *Overloads) mismatch(args []Arg) error {
	var b strings.Builder
	b.WriteString(o.name)
	b.WriteString("(): incompatible function arguments. The following argument types are supported:")
	for i, s := range o.sigs {
		b.WriteString("\n    ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(o.name)
		b.WriteString(s.String())
	}
	b.WriteString("\n\nInvoked with: ")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	return errors.New(errors.PhaseBind, errors.KindTypeMismatch).
		Detail("%s", b.String()).
		Build()
}

func itoa(i int) string { return strconv.Itoa(i) }
