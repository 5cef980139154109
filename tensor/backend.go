// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/gantrain/internal/tensor"

// Backend computes tensor operations on RawTensors.
//
// Implementations:
//   - backend/cpu: pure Go with gonum BLAS matrix products
//   - backend/webgpu: GPU matrix products, CPU for the rest
//   - autodiff: records operations for backpropagation
type Backend = tensor.Backend

// Device identifies where computation runs.
type Device = tensor.Device

// Compute devices.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
)
