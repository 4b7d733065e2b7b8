// Package caster converts boundary arrays to and from the native transform
// and image matrix types.
//
// # Transform Adapter
//
// LoadTransform requires shape (4,4), then requests the array as
// column-major elements of the scalar type, copying only when the array is
// not already in that layout. A shape miss never allocates. Any mismatch is
// reported as NotConvertible so a binding can try another overload.
//
// CastTransform always produces an owned 4x4 array whose strides follow the
// transform's storage order: RowMajor yields C strides, ColMajor F strides.
// The raw elements are copied without reordering.
//
// # Image Adapter
//
// LoadMat accepts rank 2 (H,W) and rank 3 (H,W,C) arrays of uint8, uint16,
// int32 or float32 and returns a Mat that aliases the array's buffer:
//
//	array dtype   Mat depth
//	──────────────────────
//	uint8         8U
//	uint16        16U
//	int32         32S
//	float32       32F
//
// Any other rank fails with UnsupportedDimensionality, any other dtype with
// UnsupportedElementType. Neither is a NotConvertible error.
//
// CastMat always copies into an owned array with explicit, packed,
// channel-last strides. Single-channel matrices become rank 2.
//
// # Ownership
//
//	LoadTransform  view of the caller's data when no copy is needed
//	CastTransform  owned
//	LoadMat        view of the caller's data, always
//	CastMat        owned
//
// The adapters hold no state and never log.
package caster
