package imgmat

import (
	"encoding/binary"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/wippyai/ndbridge/errors"
)

// FromImage copies img into a new matrix. Gray images become 8UC1, Gray16
// images become 16UC1 with native-endian values, and everything else is
// rendered to RGBA and becomes 8UC4.
func FromImage(img image.Image) *Mat {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		m, _ := NewMat(h, w, MakeType(U8, 1))
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(m.Row(y), src.Pix[off:off+w])
		}
		return m
	case *image.Gray16:
		m, _ := NewMat(h, w, MakeType(U16, 1))
		for y := 0; y < h; y++ {
			row := m.Row(y)
			for x := 0; x < w; x++ {
				v := src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				putU16(row[x*2:], v)
			}
		}
		return m
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	m, _ := NewMat(h, w, MakeType(U8, 4))
	for y := 0; y < h; y++ {
		copy(m.Row(y), rgba.Pix[y*rgba.Stride:y*rgba.Stride+w*4])
	}
	return m
}

// ToImage copies m into an image. Supported types are 8UC1, 16UC1, 8UC3
// (treated as RGB) and 8UC4 (treated as RGBA).
func (m *Mat) ToImage() (image.Image, error) {
	r := image.Rect(0, 0, m.cols, m.rows)
	switch m.typ {
	case MakeType(U8, 1):
		img := image.NewGray(r)
		for y := 0; y < m.rows; y++ {
			copy(img.Pix[y*img.Stride:], m.Row(y))
		}
		return img, nil
	case MakeType(U16, 1):
		img := image.NewGray16(r)
		for y := 0; y < m.rows; y++ {
			row := m.Row(y)
			for x := 0; x < m.cols; x++ {
				img.SetGray16(x, y, color.Gray16{Y: getU16(row[x*2:])})
			}
		}
		return img, nil
	case MakeType(U8, 3):
		img := image.NewRGBA(r)
		for y := 0; y < m.rows; y++ {
			row := m.Row(y)
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < m.cols; x++ {
				copy(dst[x*4:x*4+3], row[x*3:x*3+3])
				dst[x*4+3] = 0xff
			}
		}
		return img, nil
	case MakeType(U8, 4):
		img := image.NewRGBA(r)
		for y := 0; y < m.rows; y++ {
			copy(img.Pix[y*img.Stride:], m.Row(y))
		}
		return img, nil
	}
	return nil, errors.New(errors.PhaseCast, errors.KindUnsupportedElementType).
		GoType("image.Image").
		Detail("cannot render %s as an image", m.typ).
		Build()
}

func putU16(b []byte, v uint16) { binary.NativeEndian.PutUint16(b, v) }

func getU16(b []byte) uint16 { return binary.NativeEndian.Uint16(b) }
