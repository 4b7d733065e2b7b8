package ndbridge

// Memory represents a linear memory owned by a scripting environment,
// such as a WASM guest's memory.
type Memory interface {
	// Read returns length bytes at offset. Implementations may return a
	// view that aliases the underlying memory.
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// MemorySizer provides the current size of linear memory in bytes. Memories
// that implement it have ranges checked against Size before access.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory inside the environment that owns a Memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
}
