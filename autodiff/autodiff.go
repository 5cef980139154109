// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation
// (backpropagation) using a gradient tape. It wraps any backend to add
// autodiff capabilities. Only computations that descend from a watched
// tensor are recorded, so the two players of a GAN can share one backend
// and still backpropagate separately.
//
// Example:
//
//	import (
//	    "github.com/born-ml/gantrain/autodiff"
//	    "github.com/born-ml/gantrain/backend/cpu"
//	    "github.com/born-ml/gantrain/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    w := tensor.Ones[float32](tensor.Shape{3, 1}, backend)
//	    backend.Tape().Watch(w.Raw())
//	    backend.Tape().StartRecording()
//
//	    x := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	    loss := x.MatMul(w).Sum()
//	    grads := autodiff.Backward(loss, backend)
//	    dw := grads[w.Raw()]
//	}
package autodiff

import (
	"github.com/born-ml/gantrain/internal/autodiff"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new, idle gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// LossBackend interface for backends with fused differentiable losses.
type LossBackend = autodiff.LossBackend

// Backward computes gradients of t with respect to every watched tensor it
// depends on.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return backend.Backward(t.Raw())
}
