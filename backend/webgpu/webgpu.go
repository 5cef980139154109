// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated training.
//
// Matrix products and large element-wise operations run as WGSL compute
// shaders; everything else falls through to the CPU backend. Tensor data
// stays in host memory and is copied per kernel. Native bindings are built
// on Windows only; elsewhere New returns ErrUnavailable.
//
// Example:
//
//	import (
//	    "github.com/born-ml/gantrain/autodiff"
//	    "github.com/born-ml/gantrain/backend/cpu"
//	    "github.com/born-ml/gantrain/backend/webgpu"
//	    "github.com/born-ml/gantrain/tensor"
//	)
//
//	func main() {
//	    var inner tensor.Backend = cpu.New()
//	    if gpu, err := webgpu.New(); err == nil {
//	        defer gpu.Release()
//	        inner = gpu
//	    }
//	    backend := autodiff.New(inner)
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/gantrain/internal/backend/webgpu"
	"github.com/born-ml/gantrain/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// ErrUnavailable is returned by New when no WebGPU device can be used.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// New creates a new WebGPU backend. Call Release() when done to free GPU
// resources.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
