// Package ndarray implements the boundary array: a typed n-dimensional view
// over a byte buffer with explicit shape and byte strides.
//
// An Array either owns its buffer (New, Copy, Require with a copy) or is a
// view over memory owned by someone else (FromBytes, FromSlice). Views are
// valid only as long as the memory they alias.
//
// # Layout
//
// Strides are in bytes, one per dimension, and never negative. An array is
// C-contiguous when its last dimension varies fastest in memory with no gaps,
// and F-contiguous when its first dimension does:
//
//	shape (4,4) float32
//	C strides (16, 4)
//	F strides (4, 16)
//
// # Layout Requests
//
// Require asks for a dtype and memory order and copies only when the array
// does not already satisfy both. This keeps the zero-copy path for callers
// that already hold data in the requested layout:
//
//	out, copied, err := ndarray.Require(a, ndarray.Float64, ndarray.F, nil)
//
// The Allocator passed to Require is the only place new storage comes from,
// so callers can observe or pool allocations.
package ndarray
