// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go element-wise kernels (no CGO)
//   - gonum BLAS for matrix products
//   - NumPy-compatible broadcasting
//   - Work split across goroutines for large tensors
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/gantrain/autodiff"
//	    "github.com/born-ml/gantrain/backend/cpu"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.NewWithWorkers(4))
//	}
//
// # Thread Safety
//
// The CPU backend holds no mutable state and is safe for concurrent use.
package cpu
