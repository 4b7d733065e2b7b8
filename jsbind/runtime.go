package jsbind

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/ndarray"
)

// printLimit caps how many elements console.log renders per array.
const printLimit = 1024

// Runtime is a JavaScript VM with the nd helpers, a console and any number
// of native modules installed. Like goja itself it must be used from one
// goroutine at a time.
type Runtime struct {
	vm  *goja.Runtime
	ctx context.Context
	out io.Writer
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithOutput sets where console.log writes. The default discards output.
func WithOutput(w io.Writer) RuntimeOption {
	return func(r *Runtime) {
		r.out = w
	}
}

// NewRuntime creates a VM with the nd helpers and console installed.
func NewRuntime(opts ...RuntimeOption) (*Runtime, error) {
	r := &Runtime{
		vm:  goja.New(),
		ctx: context.Background(),
		out: io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := InstallHelpers(r.vm); err != nil {
		return nil, err
	}
	console := r.vm.NewObject()
	if err := console.Set("log", r.consoleLog); err != nil {
		return nil, err
	}
	if err := r.vm.Set("console", console); err != nil {
		return nil, err
	}
	return r, nil
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime { return r.vm }

// Install exposes m in this runtime. Native calls receive the context of
// the Run that invoked them.
func (r *Runtime) Install(m *Module) error {
	return m.install(r.vm, func() context.Context { return r.ctx })
}

// Run executes src. Cancelling ctx interrupts the script; the returned error
// is then ctx's error.
func (r *Runtime) Run(ctx context.Context, name, src string) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.ctx = ctx
	done := make(chan struct{})
	defer func() {
		close(done)
		r.vm.ClearInterrupt()
		r.ctx = context.Background()
	}()

	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := r.vm.RunScript(name, src)
	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			if cause := interrupted.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		Logger().Debug("script failed", zap.String("script", name), zap.Error(err))
		return nil, err
	}
	return val, nil
}

// Format renders a JS value for display. Array-like values show their
// description and elements; other objects are rendered as JSON.
func (r *Runtime) Format(v goja.Value) string {
	if !present(v) {
		return describe(v)
	}
	if obj, ok := v.(*goja.Object); ok {
		if obj.ClassName() != "Array" {
			if a, err := ToArray(r.vm, v); err == nil {
				return a.String() + "\n" + ndarray.Sprint(a, printLimit)
			}
		}
		if s, ok := r.stringify(v); ok {
			return s
		}
	}
	return v.String()
}

func (r *Runtime) stringify(v goja.Value) (string, bool) {
	stringify, ok := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("stringify"))
	if !ok {
		return "", false
	}
	out, err := stringify(goja.Undefined(), v)
	if err != nil || !present(out) {
		return "", false
	}
	return out.String(), true
}

func (r *Runtime) consoleLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = r.Format(a)
	}
	fmt.Fprintln(r.out, strings.Join(parts, " "))
	return goja.Undefined()
}
