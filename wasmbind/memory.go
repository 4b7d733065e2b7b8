package wasmbind

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/errors"
)

// AllocExport is the guest export used to allocate result buffers. Its
// signature is (size i32, align i32) -> ptr i32; a zero pointer means the
// allocation failed.
const AllocExport = "ndbridge_alloc"

// WazeroMemory adapts wazero memory to ndbridge.Memory. Reads alias guest
// memory.
type WazeroMemory struct {
	mem api.Memory
}

var (
	_ ndbridge.Memory      = (*WazeroMemory)(nil)
	_ ndbridge.MemorySizer = (*WazeroMemory)(nil)
)

// NewMemory wraps mem.
func NewMemory(mem api.Memory) *WazeroMemory {
	return &WazeroMemory{mem: mem}
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// checkRange returns an error when [off, off+n) extends past the current
// size of mem. Memories that do not report a size are left to Read and
// Write.
func checkRange(mem ndbridge.Memory, off, n uint32) error {
	sz, ok := mem.(ndbridge.MemorySizer)
	if !ok {
		return nil
	}
	if size := sz.Size(); uint64(off)+uint64(n) > uint64(size) {
		return fmt.Errorf("%d bytes at %#x exceed memory size %d", n, off, size)
	}
	return nil
}

func readRange(mem ndbridge.Memory, off, n uint32) ([]byte, error) {
	if err := checkRange(mem, off, n); err != nil {
		return nil, err
	}
	return mem.Read(off, n)
}

func writeRange(mem ndbridge.Memory, off uint32, data []byte) error {
	if err := checkRange(mem, off, uint32(len(data))); err != nil {
		return err
	}
	return mem.Write(off, data)
}

// moduleAllocator allocates through the guest's AllocExport.
type moduleAllocator struct {
	ctx      context.Context
	fn       api.Function
	stackBuf [2]uint64
}

var _ ndbridge.Allocator = (*moduleAllocator)(nil)

func newModuleAllocator(ctx context.Context, mod api.Module) *moduleAllocator {
	return &moduleAllocator{ctx: ctx, fn: mod.ExportedFunction(AllocExport)}
}

func (a *moduleAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.fn == nil {
		return 0, errors.New(errors.PhaseCast, errors.KindAllocation).
			Detail("guest does not export %s", AllocExport).
			Build()
	}
	a.stackBuf[0] = uint64(size)
	a.stackBuf[1] = uint64(align)
	if err := a.fn.CallWithStack(a.ctx, a.stackBuf[:]); err != nil {
		return 0, err
	}
	ptr := uint32(a.stackBuf[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseCast, size, align)
	}
	return ptr, nil
}
