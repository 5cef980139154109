// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training GAN players.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction and weight decay
//   - StepDecay: multiplicative learning-rate schedule by epoch
//
// Optimizers read the gradients accumulated on each nn.Parameter; frozen
// parameters and parameters without a gradient are left untouched.
//
// # Basic Usage
//
//	backend := autodiff.New(cpu.New())
//	model := nn.NewLinear(100, 784, backend, rng)
//	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{
//	    LR:    2e-4,
//	    Betas: [2]float32{0.5, 0.999},
//	})
//
//	opt.ZeroGrad()
//	grads := backend.Backward(loss.Raw())
//	nn.AccumulateGrads(model.Parameters(), grads)
//	opt.Step()
//
// # State
//
// StateDict and LoadStateDict export and restore the moment buffers so a
// resumed run continues with the same optimizer state.
package optim
