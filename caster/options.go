package caster

import (
	"github.com/wippyai/ndbridge/affine"
	"github.com/wippyai/ndbridge/ndarray"
)

type options struct {
	alloc ndarray.Allocator
	order affine.StorageOrder
}

// Option configures a load.
type Option func(*options)

// WithAllocator sets the allocator used when an inbound array must be
// converted to another layout.
func WithAllocator(a ndarray.Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// WithStorageOrder sets the storage order of loaded transforms. The default
// is affine.ColMajor.
func WithStorageOrder(order affine.StorageOrder) Option {
	return func(o *options) {
		o.order = order
	}
}

func collect(opts []Option) options {
	o := options{alloc: ndarray.DefaultAllocator, order: affine.ColMajor}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
