package imgmat

import (
	"fmt"
	"strconv"

	"github.com/wippyai/ndbridge/errors"
)

// Depth is the per-channel element type. Values follow OpenCV numbering.
type Depth uint8

const (
	U8 Depth = iota
	S8
	U16
	S16
	S32
	F32
	F64
	F16
)

// MaxChannels is the largest channel count a Type can encode.
const MaxChannels = 512

const channelShift = 3

var depthInfo = [...]struct {
	name string
	size int
}{
	U8:  {"8U", 1},
	S8:  {"8S", 1},
	U16: {"16U", 2},
	S16: {"16S", 2},
	S32: {"32S", 4},
	F32: {"32F", 4},
	F64: {"64F", 8},
	F16: {"16F", 2},
}

// Valid reports whether d is a known depth.
func (d Depth) Valid() bool {
	return int(d) < len(depthInfo)
}

// Size returns the width of one channel value in bytes.
func (d Depth) Size() int {
	if !d.Valid() {
		return 0
	}
	return depthInfo[d].size
}

func (d Depth) String() string {
	if !d.Valid() {
		return "Depth(" + strconv.Itoa(int(d)) + ")"
	}
	return depthInfo[d].name
}

// Type packs a depth and a channel count into a single tag.
type Type uint16

// invalidType has every channel bit set. Its channel count is above
// MaxChannels, so it never passes validation.
const invalidType = Type(^uint16(0) &^ (1<<channelShift - 1))

// MakeType composes depth and channel count, e.g. MakeType(U8, 3) is 8UC3.
// A channel count outside [1, MaxChannels] yields a Type that is not Valid.
func MakeType(d Depth, channels int) Type {
	if channels < 1 || channels > MaxChannels {
		return invalidType | Type(d&(1<<channelShift-1))
	}
	return Type(uint16(d) | uint16(channels-1)<<channelShift)
}

// Valid reports whether t has a known depth and an encodable channel count.
func (t Type) Valid() bool {
	return t.Depth().Valid() && t.Channels() <= MaxChannels
}

// Depth returns the per-channel element type.
func (t Type) Depth() Depth {
	return Depth(t & (1<<channelShift - 1))
}

// Channels returns the channel count.
func (t Type) Channels() int {
	return int(t>>channelShift) + 1
}

// ElemSize returns the size of one pixel in bytes.
func (t Type) ElemSize() int {
	return t.Depth().Size() * t.Channels()
}

func (t Type) String() string {
	return t.Depth().String() + "C" + strconv.Itoa(t.Channels())
}

// Mat is a dense rows x cols grid of pixels. Rows are Step bytes apart and
// each pixel packs Channels values of Depth.
//
// A Mat created by NewMat or Clone owns its buffer. A Mat created by
// FromBytes is a view and is valid only while the aliased memory is.
type Mat struct {
	data  []byte
	rows  int
	cols  int
	step  int
	typ   Type
	owned bool
}

// NewMat allocates a zeroed continuous matrix.
func NewMat(rows, cols int, typ Type) (*Mat, error) {
	if err := checkDims(rows, cols, typ); err != nil {
		return nil, err
	}
	step := cols * typ.ElemSize()
	return &Mat{
		data:  make([]byte, rows*step),
		rows:  rows,
		cols:  cols,
		step:  step,
		typ:   typ,
		owned: true,
	}, nil
}

// FromBytes creates a view over data. A zero step means rows are packed.
func FromBytes(rows, cols int, typ Type, data []byte, step int) (*Mat, error) {
	if err := checkDims(rows, cols, typ); err != nil {
		return nil, err
	}
	packed := cols * typ.ElemSize()
	if step == 0 {
		step = packed
	}
	if step < packed {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Detail("step %d is smaller than row size %d", step, packed).
			Build()
	}
	need := 0
	if rows > 0 {
		need = (rows-1)*step + packed
	}
	if len(data) < need {
		return nil, errors.New(errors.PhaseValidate, errors.KindOutOfBounds).
			Path("data").
			Detail("%dx%d %s needs %d bytes, buffer has %d", rows, cols, typ, need, len(data)).
			Build()
	}
	return &Mat{
		data: data,
		rows: rows,
		cols: cols,
		step: step,
		typ:  typ,
	}, nil
}

func checkDims(rows, cols int, typ Type) error {
	if rows < 0 || cols < 0 {
		return errors.InvalidInput(errors.PhaseValidate, fmt.Sprintf("negative size %dx%d", rows, cols))
	}
	if !typ.Depth().Valid() {
		return errors.InvalidInput(errors.PhaseValidate, "invalid depth "+typ.Depth().String())
	}
	if !typ.Valid() {
		return errors.InvalidInput(errors.PhaseValidate, fmt.Sprintf("channel count outside 1..%d", MaxChannels))
	}
	return nil
}

// Rows returns the height.
func (m *Mat) Rows() int { return m.rows }

// Cols returns the width.
func (m *Mat) Cols() int { return m.cols }

// Type returns the packed depth and channel tag.
func (m *Mat) Type() Type { return m.typ }

// Depth returns the per-channel element type.
func (m *Mat) Depth() Depth { return m.typ.Depth() }

// Channels returns the channel count.
func (m *Mat) Channels() int { return m.typ.Channels() }

// ElemSize returns the size of one pixel in bytes.
func (m *Mat) ElemSize() int { return m.typ.ElemSize() }

// ElemSize1 returns the size of one channel value in bytes.
func (m *Mat) ElemSize1() int { return m.typ.Depth().Size() }

// Step returns the distance between rows in bytes.
func (m *Mat) Step() int { return m.step }

// Data returns the underlying buffer.
func (m *Mat) Data() []byte { return m.data }

// Owned reports whether the matrix owns independent storage.
func (m *Mat) Owned() bool { return m.owned }

// Empty reports whether the matrix has no pixels.
func (m *Mat) Empty() bool { return m.rows == 0 || m.cols == 0 }

// IsContinuous reports whether rows are packed without gaps.
func (m *Mat) IsContinuous() bool {
	return m.rows <= 1 || m.step == m.cols*m.typ.ElemSize()
}

// Row returns the packed bytes of row y, excluding any padding.
func (m *Mat) Row(y int) []byte {
	if y < 0 || y >= m.rows {
		return nil
	}
	start := y * m.step
	return m.data[start : start+m.cols*m.typ.ElemSize()]
}

// Clone returns a continuous copy that owns its storage.
func (m *Mat) Clone() *Mat {
	out, _ := NewMat(m.rows, m.cols, m.typ)
	for y := 0; y < m.rows; y++ {
		copy(out.Row(y), m.Row(y))
	}
	return out
}

func (m *Mat) String() string {
	return fmt.Sprintf("Mat(%dx%d %s)", m.rows, m.cols, m.typ)
}
