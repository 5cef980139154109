// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the type-safe tensors used by gantrain.
//
// # Overview
//
// Tensors carry float32 (and a few integer) elements in host memory and
// dispatch every operation to a Backend:
//   - Generic type-safe tensors (Tensor[T, B])
//   - NumPy-style broadcasting for element-wise operations
//   - Reproducible random initialisation from a caller-owned *rand.Rand
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/gantrain/backend/cpu"
//	    "github.com/born-ml/gantrain/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    rng := rand.New(rand.NewSource(1))
//
//	    z := tensor.Randn(tensor.Shape{64, 100}, rng, backend)
//	    y := tensor.Ones[float32](tensor.Shape{64, 100}, backend)
//	    out := z.Add(y).MulScalar(0.5)
//	}
//
// Operations never modify their inputs. Gradients are recorded by wrapping
// the backend with autodiff.New.
package tensor
