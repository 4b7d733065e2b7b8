package ndarray

import (
	"strconv"
	"strings"
)

// Sprint renders the elements as nested bracketed rows, e.g.
//
//	[[1 0]
//	 [0 1]]
//
// Arrays with more than limit elements are summarized by their description.
func Sprint(a *Array, limit int) string {
	if a == nil {
		return "<nil>"
	}
	if limit > 0 && a.Len() > limit {
		return a.String() + " (" + strconv.Itoa(a.Len()) + " elements)"
	}
	var b strings.Builder
	idx := make([]int, a.Ndim())
	a.sprint(&b, idx, 0)
	return b.String()
}

func (a *Array) sprint(b *strings.Builder, idx []int, dim int) {
	if dim == len(a.shape) {
		off := 0
		for i, v := range idx {
			off += v * a.strides[i]
		}
		b.WriteString(a.formatElement(off))
		return
	}
	b.WriteByte('[')
	for i := 0; i < a.shape[dim]; i++ {
		if i > 0 {
			if dim == len(a.shape)-1 {
				b.WriteByte(' ')
			} else {
				b.WriteString(strings.Repeat("\n", len(a.shape)-1-dim))
				b.WriteString(strings.Repeat(" ", dim+1))
			}
		}
		idx[dim] = i
		a.sprint(b, idx, dim+1)
	}
	b.WriteByte(']')
}

func (a *Array) formatElement(off int) string {
	b := a.data[off:]
	switch a.dtype {
	case Bool:
		return strconv.FormatBool(b[0] != 0)
	case Float32:
		return strconv.FormatFloat(loadFloat(b, a.dtype), 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(loadFloat(b, a.dtype), 'g', -1, 64)
	case Uint64:
		return strconv.FormatUint(load[uint64](b), 10)
	}
	return strconv.FormatInt(loadInt(b, a.dtype), 10)
}
