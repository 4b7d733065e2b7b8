package wasmbind

import (
	"context"
	stderrors "errors"
	"reflect"
	"strconv"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/bind"
	"github.com/wippyai/ndbridge/caster"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/ndarray"
)

// Status codes returned by every host import.
const (
	StatusOK      = 0
	StatusNoMatch = 1
	StatusError   = 2
)

var errNoMatch = &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindTypeMismatch}

// Host is a wazero host module whose imports are overloaded native
// functions. Each import takes one descriptor pointer per argument followed
// by a result descriptor pointer, and returns a status code:
//
//	(param i32 ... i32 i32) (result i32)
type Host struct {
	name  string
	funcs []*hostFunc
	opts  []caster.Option
	mu    sync.Mutex
}

type hostFunc struct {
	o     *bind.Overloads
	nargs int
}

// NewHost creates an empty host module. opts apply to every inbound
// conversion.
func NewHost(name string, opts ...caster.Option) *Host {
	return &Host{name: name, opts: opts}
}

// Name returns the import module name.
func (h *Host) Name() string { return h.name }

// Func registers fns as overloads of name. All overloads must take the same
// number of arguments, and only array-like parameters and results are
// accepted.
func (h *Host) Func(name string, fns ...any) error {
	o, err := bind.NewOverloads(name, fns...)
	if err != nil {
		return errors.Registration(errors.PhaseHost, h.name, name, err)
	}
	if len(h.opts) > 0 {
		o = o.WithOptions(h.opts...)
	}

	sigs := o.Signatures()
	nargs := sigs[0].NumArgs()
	for i, s := range sigs {
		if s.NumArgs() != nargs {
			return errors.Registration(errors.PhaseHost, h.name, name,
				errors.InvalidInput(errors.PhaseHost, "overload "+strconv.Itoa(i)+" takes "+strconv.Itoa(s.NumArgs())+
					" arguments, want "+strconv.Itoa(nargs)))
		}
		for j, p := range s.Params() {
			if !p.IsArray() {
				return errors.Registration(errors.PhaseHost, h.name, name,
					errors.New(errors.PhaseHost, errors.KindTypeMismatch).
						Path("overload"+strconv.Itoa(i), "param"+strconv.Itoa(j)).
						GoType(p.String()).
						Detail("scalar parameters cannot cross a descriptor boundary").
						Build())
			}
		}
		if r, ok := s.Result(); ok && !r.IsArray() {
			return errors.Registration(errors.PhaseHost, h.name, name,
				errors.New(errors.PhaseHost, errors.KindTypeMismatch).
					Path("overload"+strconv.Itoa(i), "result").
					GoType(r.String()).
					Detail("scalar results cannot cross a descriptor boundary").
					Build())
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, f := range h.funcs {
		if f.o.Name() == name {
			h.funcs[i] = &hostFunc{o: o, nargs: nargs}
			return nil
		}
	}
	h.funcs = append(h.funcs, &hostFunc{o: o, nargs: nargs})
	return nil
}

// MustFunc is like Func but panics on error.
func (h *Host) MustFunc(name string, fns ...any) {
	if err := h.Func(name, fns...); err != nil {
		panic(err)
	}
}

// Funcs returns the registered functions in registration order.
func (h *Host) Funcs() []*bind.Overloads {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*bind.Overloads, len(h.funcs))
	for i, f := range h.funcs {
		out[i] = f.o
	}
	return out
}

// Instantiate builds the host module in r. Guests import its functions from
// the module named h.Name().
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	h.mu.Lock()
	funcs := append([]*hostFunc(nil), h.funcs...)
	h.mu.Unlock()

	builder := r.NewHostModuleBuilder(h.name)
	for _, f := range funcs {
		params := make([]api.ValueType, f.nargs+1)
		for i := range params {
			params[i] = api.ValueTypeI32
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.handler(f), params, []api.ValueType{api.ValueTypeI32}).
			Export(f.o.Name())
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(errors.PhaseHost, h.name, "", err)
	}
	Logger().Debug("host module instantiated",
		zap.String("module", h.name),
		zap.Int("funcs", len(funcs)))
	return mod, nil
}

func (h *Host) handler(f *hostFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		if mod.Memory() == nil {
			Logger().Warn("caller has no memory",
				zap.String("module", h.name),
				zap.String("func", f.o.Name()))
			stack[0] = api.EncodeU32(StatusError)
			return
		}
		mem := NewMemory(mod.Memory())
		args := make([]bind.Arg, f.nargs)
		for i := range args {
			args[i] = &descArg{mem: mem, ptr: api.DecodeU32(stack[i])}
		}
		retPtr := api.DecodeU32(stack[f.nargs])

		stack[0] = api.EncodeU32(h.call(ctx, mod, mem, f.o, args, retPtr))
	}
}

func (h *Host) call(ctx context.Context, mod api.Module, mem *WazeroMemory, o *bind.Overloads, args []bind.Arg, retPtr uint32) uint32 {
	res, err := o.Call(ctx, args)
	if err != nil {
		if stderrors.Is(err, errNoMatch) {
			Logger().Debug("no matching overload",
				zap.String("module", h.name),
				zap.String("func", o.Name()),
				zap.Error(err))
			return StatusNoMatch
		}
		Logger().Warn("host call failed",
			zap.String("module", h.name),
			zap.String("func", o.Name()),
			zap.Error(err))
		return StatusError
	}

	if res.Array == nil {
		if err := writeDescriptor(mem, retPtr, Descriptor{}); err != nil {
			Logger().Warn("write empty result failed",
				zap.String("func", o.Name()),
				zap.Error(err))
			return StatusError
		}
		return StatusOK
	}
	if err := WriteArray(mem, newModuleAllocator(ctx, mod), res.Array, retPtr); err != nil {
		Logger().Warn("write result failed",
			zap.String("module", h.name),
			zap.String("func", o.Name()),
			zap.Error(err))
		return StatusError
	}
	return StatusOK
}

// descArg adapts a descriptor pointer to bind.Arg.
type descArg struct {
	mem    ndbridge.Memory
	arr    *ndarray.Array
	err    error
	ptr    uint32
	loaded bool
}

func (a *descArg) Array() (*ndarray.Array, error) {
	if !a.loaded {
		a.arr, a.err = ReadArray(a.mem, a.ptr)
		a.loaded = true
	}
	return a.arr, a.err
}

func (a *descArg) Scalar(t reflect.Type) (reflect.Value, error) {
	return reflect.Value{}, errors.NotConvertible(errors.PhaseLoad, t.String(), "descriptor arguments carry arrays only")
}

func (a *descArg) String() string {
	if arr, err := a.Array(); err == nil {
		return arr.String()
	}
	return "descriptor@" + strconv.FormatUint(uint64(a.ptr), 16)
}
