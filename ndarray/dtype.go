package ndarray

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// DType identifies the element type of an array. Values are stable and used
// as wire codes by linear-memory bindings.
type DType uint8

const (
	Invalid DType = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var dtypeInfo = [...]struct {
	name   string
	format string
	size   int
}{
	Invalid: {"invalid", "", 0},
	Bool:    {"bool", "?", 1},
	Int8:    {"int8", "b", 1},
	Uint8:   {"uint8", "B", 1},
	Int16:   {"int16", "h", 2},
	Uint16:  {"uint16", "H", 2},
	Int32:   {"int32", "i", 4},
	Uint32:  {"uint32", "I", 4},
	Int64:   {"int64", "q", 8},
	Uint64:  {"uint64", "Q", 8},
	Float32: {"float32", "f", 4},
	Float64: {"float64", "d", 8},
}

// Valid reports whether d is a known element type.
func (d DType) Valid() bool {
	return d > Invalid && int(d) < len(dtypeInfo)
}

// Size returns the element width in bytes, or 0 for an invalid dtype.
func (d DType) Size() int {
	if !d.Valid() {
		return 0
	}
	return dtypeInfo[d].size
}

// String returns the numpy-style name, e.g. "uint8".
func (d DType) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
	return dtypeInfo[d].name
}

// Format returns the buffer protocol format character, e.g. "B" for uint8.
func (d DType) Format() string {
	if !d.Valid() {
		return ""
	}
	return dtypeInfo[d].format
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// IsSigned reports whether d is a signed integer type.
func (d DType) IsSigned() bool {
	return d == Int8 || d == Int16 || d == Int32 || d == Int64
}

// ParseDType accepts a dtype name ("float32") or a format character ("f").
func ParseDType(s string) (DType, error) {
	for d := Bool; int(d) < len(dtypeInfo); d++ {
		if s == dtypeInfo[d].name || s == dtypeInfo[d].format {
			return d, nil
		}
	}
	switch s {
	case "<f4":
		return Float32, nil
	case "<f8":
		return Float64, nil
	case "|u1", "u1":
		return Uint8, nil
	case "<u2", "u2":
		return Uint16, nil
	case "<i4", "i4":
		return Int32, nil
	}
	return Invalid, fmt.Errorf("unknown dtype %q", s)
}

// Element is the set of Go types an array can be viewed as. Only the sized
// types have a DType; DTypeOf returns Invalid for int, uint, uintptr and
// named types.
type Element interface {
	constraints.Integer | constraints.Float
}

// DTypeOf returns the dtype matching T.
func DTypeOf[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}
