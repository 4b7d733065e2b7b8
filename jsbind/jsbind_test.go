package jsbind

import (
	"bytes"
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/wippyai/ndbridge/affine"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/imgmat"
	"github.com/wippyai/ndbridge/ndarray"
)

func eval(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return v
}

func TestToArray_TypedArray(t *testing.T) {
	vm := goja.New()
	v := eval(t, vm, `x = new Float32Array([1, 2, 3]); x`)

	a, err := ToArray(vm, v)
	if err != nil {
		t.Fatal(err)
	}
	if a.DType() != ndarray.Float32 || !slices.Equal(a.Shape(), []int{3}) {
		t.Fatalf("got %v", a)
	}
	if a.Owned() {
		t.Error("typed array input must be a view")
	}

	// Writes through the view are visible to the script.
	if err := a.SetFloat64(7, 1); err != nil {
		t.Fatal(err)
	}
	if got := eval(t, vm, `x[1]`).ToFloat(); got != 7 {
		t.Errorf("x[1] = %v, want 7", got)
	}
}

func TestToArray_Subarray(t *testing.T) {
	vm := goja.New()
	v := eval(t, vm, `new Int32Array([1, 2, 3, 4]).subarray(1, 3)`)

	a, err := ToArray(vm, v)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := ndarray.Slice[int32](a)
	if !slices.Equal(got, []int32{2, 3}) {
		t.Errorf("values = %v", got)
	}
}

func TestToArray_Object(t *testing.T) {
	vm := goja.New()

	tests := []struct {
		name    string
		src     string
		dtype   ndarray.DType
		shape   []int
		strides []int
	}{
		{"c_order", `({data: new Float64Array(6), shape: [2, 3]})`, ndarray.Float64, []int{2, 3}, []int{24, 8}},
		{"f_order", `({data: new Float64Array(16), shape: [4, 4], order: "F"})`, ndarray.Float64, []int{4, 4}, []int{8, 32}},
		{"explicit_strides", `({data: new Uint8Array(8), shape: [2, 3], strides: [4, 1]})`, ndarray.Uint8, []int{2, 3}, []int{4, 1}},
		{"dtype_override", `({data: new Uint8Array(16), shape: [2], dtype: "float64"})`, ndarray.Float64, []int{2}, []int{8}},
		{"no_shape", `({data: new Uint16Array(5)})`, ndarray.Uint16, []int{5}, []int{2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ToArray(vm, eval(t, vm, tc.src))
			if err != nil {
				t.Fatal(err)
			}
			if a.DType() != tc.dtype || !slices.Equal(a.Shape(), tc.shape) || !slices.Equal(a.Strides(), tc.strides) {
				t.Errorf("got %v strides %v", a, a.Strides())
			}
		})
	}
}

func TestToArray_NestedList(t *testing.T) {
	vm := goja.New()
	a, err := ToArray(vm, eval(t, vm, `[[1, 2], [3, 4.5]]`))
	if err != nil {
		t.Fatal(err)
	}
	if a.DType() != ndarray.Float64 || !slices.Equal(a.Shape(), []int{2, 2}) || !a.Owned() {
		t.Fatalf("got %v", a)
	}
	if v, _ := a.Float64At(1, 1); v != 4.5 {
		t.Errorf("[1,1] = %v", v)
	}
}

func TestToArray_Errors(t *testing.T) {
	vm := goja.New()

	soft := []string{`42`, `"text"`, `null`, `undefined`, `({foo: 1})`, `[[1, 2], [3]]`, `["a"]`,
		`({constructor: {name: "Uint8Array"}, buffer: new ArrayBuffer(4), byteOffset: 0, byteLength: 100})`,
		`new ArrayBuffer(8)`}
	for _, src := range soft {
		if _, err := ToArray(vm, eval(t, vm, src)); !errors.IsNotConvertible(err) {
			t.Errorf("%s: expected NotConvertible, got %v", src, err)
		}
	}

	hard := []struct {
		src  string
		kind errors.Kind
	}{
		{`({data: [1, 2, 3]})`, errors.KindInvalidData},
		{`({data: {constructor: {name: "Float64Array"}, buffer: new ArrayBuffer(8), byteOffset: 4, byteLength: 64}})`, errors.KindInvalidData},
		{`({data: new Uint8Array(4), shape: [3, 3]})`, errors.KindOutOfBounds},
		{`({data: new Uint8Array(4), order: "Z"})`, errors.KindInvalidData},
		{`({data: new Uint8Array(4), dtype: "complex"})`, errors.KindInvalidData},
		{`({data: new Uint8Array(4), shape: [1.5]})`, errors.KindInvalidData},
	}
	for _, tc := range hard {
		_, err := ToArray(vm, eval(t, vm, tc.src))
		if !errors.IsKind(err, tc.kind) {
			t.Errorf("%s: expected %s, got %v", tc.src, tc.kind, err)
		}
	}
}

func TestFromArray(t *testing.T) {
	vm := goja.New()
	a, _ := ndarray.FromSlice([]float64{1, 2, 3, 4}, []int{2, 2}, ndarray.F)

	obj, err := FromArray(vm, a)
	if err != nil {
		t.Fatal(err)
	}
	_ = vm.Set("r", obj)

	got := eval(t, vm, `[r.dtype, r.order, r.shape.join("x"), r.strides.join(","), r.data.constructor.name, r.data[1]].join(" ")`).String()
	if got != "float64 F 2x2 8,16 Float64Array 2" {
		t.Errorf("got %q", got)
	}

	back, err := ToArray(vm, obj)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := back.Float64At(0, 1); v != 3 {
		t.Errorf("[0,1] = %v, want 3", v)
	}

	// The buffer is a copy.
	_ = a.SetFloat64(100, 0, 0)
	if v, _ := back.Float64At(0, 0); v != 1 {
		t.Error("outbound array must not alias the source")
	}
}

func TestFromArray_BoolTravelsAsBytes(t *testing.T) {
	vm := goja.New()
	a, _ := ndarray.New(ndarray.Bool, []int{3}, ndarray.C)
	_ = a.SetFloat64(1, 2)

	obj, err := FromArray(vm, a)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ToArray(vm, obj)
	if err != nil {
		t.Fatal(err)
	}
	if back.DType() != ndarray.Bool {
		t.Errorf("dtype = %v", back.DType())
	}
}

func demoModule(t *testing.T) *Module {
	t.Helper()
	m := NewModule("demo")
	m.MustFunc("echo",
		func(tr affine.Transform[float64]) affine.Transform[float64] { return tr },
		func(tr affine.Transform[float32]) affine.Transform[float32] { return tr },
	)
	m.MustFunc("echoImage", func(img *imgmat.Mat) *imgmat.Mat { return img })
	m.MustFunc("channels", func(img *imgmat.Mat) int { return img.Channels() })
	m.MustFunc("scale", func(a *ndarray.Array, k float64) (*ndarray.Array, error) {
		out, err := a.Copy(ndarray.C)
		if err != nil {
			return nil, err
		}
		for i := 0; i < out.Dim(0); i++ {
			v, _ := out.Float64At(i)
			_ = out.SetFloat64(v*k, i)
		}
		return out, nil
	})
	m.MustFunc("fail", func() error { return stderrors.New("native failure") })
	return m
}

func newTestRuntime(t *testing.T, out *bytes.Buffer) *Runtime {
	t.Helper()
	var opts []RuntimeOption
	if out != nil {
		opts = append(opts, WithOutput(out))
	}
	rt, err := NewRuntime(opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Install(demoModule(t)); err != nil {
		t.Fatal(err)
	}
	return rt
}

func run(t *testing.T, rt *Runtime, src string) string {
	t.Helper()
	v, err := rt.Run(context.Background(), "test.js", src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v.String()
}

func TestModule_TransformRoundTrip(t *testing.T) {
	rt := newTestRuntime(t, nil)

	got := run(t, rt, `
		const src = new Float32Array(16);
		for (let i = 0; i < 16; i++) src[i] = i;
		const r = demo.echo(nd.array(src, [4, 4], {order: "F"}));
		[r.dtype, r.order, r.shape.join("x"), r.data[9]].join(" ");
	`)
	if got != "float64 F 4x4 9" {
		t.Errorf("got %q", got)
	}
}

func TestModule_ImageRoundTrip(t *testing.T) {
	rt := newTestRuntime(t, nil)

	got := run(t, rt, `
		const px = new Uint8Array(18);
		for (let i = 0; i < 18; i++) px[i] = i;
		const r = demo.echoImage({data: px, shape: [2, 3, 3]});
		[r.shape.join("x"), r.strides.join(","), r.data[17], demo.channels({data: px, shape: [2, 3, 3]})].join(" ");
	`)
	if got != "2x3x3 9,3,1 17 3" {
		t.Errorf("got %q", got)
	}
}

func TestModule_Errors(t *testing.T) {
	rt := newTestRuntime(t, nil)

	tests := []struct {
		name string
		call string
		want []string
	}{
		{"no_overload", `demo.echo(nd.zeros("float64", [3, 3]))`,
			[]string{"TypeError", "incompatible function arguments", "echo(affine.Transform[float32])"}},
		{"unsupported_rank", `demo.echoImage(nd.zeros("uint8", [1, 1, 1, 1]))`,
			[]string{"hard: ", "unsupported dim 4"}},
		{"unsupported_dtype", `demo.echoImage(nd.zeros("float64", [2, 2]))`,
			[]string{"hard: ", "float64"}},
		{"native_error", `demo.fail()`,
			[]string{"hard: ", "native failure"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := run(t, rt, `
				var out;
				try { `+tc.call+`; out = "no error"; }
				catch (e) { out = (e instanceof TypeError ? "TypeError" : "hard") + ": " + e.message; }
				out;
			`)
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("%q missing %q", got, w)
				}
			}
		})
	}
}

func TestModule_ImitationTypedArray(t *testing.T) {
	rt := newTestRuntime(t, nil)

	got := run(t, rt, `
		const fake = {constructor: {name: "Uint8Array"}, buffer: new ArrayBuffer(4), byteOffset: 2, byteLength: 100};
		const out = [];
		for (const f of [
			() => demo.echo(fake),
			() => demo.echoImage({data: fake, shape: [10, 10]}),
			() => nd.array(fake, [100]),
		]) {
			try { f(); out.push("no error"); }
			catch (e) { out.push(e instanceof TypeError ? "TypeError" : "hard"); }
		}
		out.join(" ");
	`)
	if got != "TypeError hard TypeError" {
		t.Errorf("got %q", got)
	}
}

func TestModule_Scalars(t *testing.T) {
	rt := newTestRuntime(t, nil)

	got := run(t, rt, `Array.from(demo.scale(new Float32Array([1, 2, 3]), 2).data).join(",")`)
	if got != "2,4,6" {
		t.Errorf("got %q", got)
	}

	got = run(t, rt, `
		try { demo.scale(new Float32Array([1]), "two"); "no error" } catch (e) { e instanceof TypeError }
	`)
	if got != "true" {
		t.Errorf("string for float parameter: got %q", got)
	}
}

func TestModule_Registration(t *testing.T) {
	m := NewModule("m")
	if err := m.Func("bad", func(chan int) {}); !errors.IsKind(err, errors.KindRegistration) {
		t.Errorf("expected registration error, got %v", err)
	}
	if err := m.Func("ok", func() {}); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Lookup("ok"); !ok {
		t.Error("Lookup failed")
	}

	vm := goja.New()
	if err := m.Install(vm); err != nil {
		t.Fatal(err)
	}
	if got := eval(t, vm, `typeof m.ok`).String(); got != "function" {
		t.Errorf("typeof m.ok = %q", got)
	}
}

func TestHelpers(t *testing.T) {
	rt := newTestRuntime(t, nil)

	tests := []struct {
		src  string
		want string
	}{
		{`nd.dtype(new Int16Array(2))`, "int16"},
		{`nd.shape([[1, 2, 3], [4, 5, 6]]).join("x")`, "2x3"},
		{`nd.zeros("uint16", [2, 3], "F").strides.join(",")`, "2,4"},
		{`nd.array(new Float32Array(6), [2, 3]).strides.join(",")`, "12,4"},
		{`nd.array([[1, 2]]).dtype`, "float64"},
		{`nd.format(nd.array(new Int32Array([1, 0, 0, 1]), [2, 2]))`, "[[1 0]\n [0 1]]"},
	}

	for _, tc := range tests {
		if got := run(t, rt, tc.src); got != tc.want {
			t.Errorf("%s = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestRuntime_ConsoleLog(t *testing.T) {
	var out bytes.Buffer
	rt := newTestRuntime(t, &out)

	run(t, rt, `console.log("hi", nd.zeros("int32", [2]), {a: 1})`)
	if got := out.String(); got != "hi int32[2]\n[0 0] {\"a\":1}\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRuntime_Cancel(t *testing.T) {
	rt := newTestRuntime(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rt.Run(ctx, "loop.js", `for (;;) {}`)
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The runtime is usable after an interrupt.
	if got := run(t, rt, `1 + 1`); got != "2" {
		t.Errorf("got %q", got)
	}
}

func TestRuntime_SyntaxError(t *testing.T) {
	rt := newTestRuntime(t, nil)
	if _, err := rt.Run(context.Background(), "bad.js", `(`); err == nil {
		t.Error("expected syntax error")
	}
}
