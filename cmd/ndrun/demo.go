package main

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/affine"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/imgmat"
	"github.com/wippyai/ndbridge/jsbind"
	"github.com/wippyai/ndbridge/wasmbind"
)

const demoModuleName = "demo"

type demoFunc struct {
	name string
	fns  []any
	// arrays reports whether every parameter and result is array-like, so
	// the function can also be imported by wasm guests.
	arrays bool
}

func demoFuncs() []demoFunc {
	return []demoFunc{
		{
			name: "echoTransform",
			fns: []any{
				func(t affine.Transform[float64]) affine.Transform[float64] { return t },
				func(t affine.Transform[float32]) affine.Transform[float32] { return t },
			},
			arrays: true,
		},
		{
			name: "transformInfo",
			fns: []any{
				func(t affine.Transform[float64]) string { return transformInfo(t) },
				func(t affine.Transform[float32]) string { return transformInfo(t) },
			},
		},
		{
			name:   "echoImage",
			fns:    []any{func(m *imgmat.Mat) *imgmat.Mat { return m }},
			arrays: true,
		},
		{
			name: "imageInfo",
			fns:  []any{imageInfo},
		},
		{
			name: "imread",
			fns:  []any{imread},
		},
		{
			name: "imwrite",
			fns:  []any{imwrite},
		},
	}
}

func newDemoModule() (*jsbind.Module, error) {
	m := jsbind.NewModule(demoModuleName)
	for _, f := range demoFuncs() {
		if err := m.Func(f.name, f.fns...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newDemoHost() (*wasmbind.Host, error) {
	h := wasmbind.NewHost(demoModuleName)
	for _, f := range demoFuncs() {
		if !f.arrays {
			continue
		}
		if err := h.Func(f.name, f.fns...); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func transformInfo[S affine.Scalar](t affine.Transform[S]) string {
	tr := t.Translation()
	return fmt.Sprintf("%s affine=%t translation=[%g %g %g]",
		t.Order(), t.IsAffine(), tr[0], tr[1], tr[2])
}

func imageInfo(m *imgmat.Mat) string {
	return fmt.Sprintf("rows=%d cols=%d channels=%d depth=%s type=%s",
		m.Rows(), m.Cols(), m.Channels(), m.Depth(), m.Type())
}

// imread decodes any registered image format into a Mat.
func imread(path string) (*imgmat.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Detail("decode %s", path).
			Cause(err).
			Build()
	}
	m := imgmat.FromImage(img)
	logger.Debug("image decoded",
		zap.String("path", path),
		zap.String("format", format),
		zap.Stringer("mat", m))
	return m, nil
}

// imwrite encodes m in the format named by path's extension.
func imwrite(path string, m *imgmat.Mat) error {
	img, err := m.ToImage()
	if err != nil {
		return err
	}

	var encode func(io.Writer, image.Image) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		encode = png.Encode
	case ".jpg", ".jpeg":
		encode = func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
		}
	case ".bmp":
		encode = bmp.Encode
	case ".tif", ".tiff":
		encode = func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, nil)
		}
	default:
		return errors.InvalidInput(errors.PhaseCast, fmt.Sprintf("unsupported image extension %q", ext))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
