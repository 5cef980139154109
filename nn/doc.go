// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network building blocks for GAN players.
//
// # Overview
//
// This package contains:
//   - Module interface and Parameter
//   - Linear and Sequential
//   - Activations: ReLU, LeakyReLU, Sigmoid, Tanh
//   - Losses: BCE, BCEWithLogits, CrossEntropy, L1, MSE
//   - Initializers: Xavier, Normal, InitNormal
//   - Save and Load of .born weight files
//
// # Basic Usage
//
//	backend := autodiff.New(cpu.New())
//	rng := rand.New(rand.NewSource(1))
//
//	discriminator := nn.NewSequential[B](
//	    nn.NewLinear(784, 256, backend, rng),
//	    nn.NewLeakyReLU[B](0.2),
//	    nn.NewLinear(256, 1, backend, rng),
//	)
//	nn.InitNormal(discriminator.Parameters(), 0.02, rng)
//
//	logits := discriminator.Forward(images)
//	loss := nn.NewBCEWithLogitsLoss[B]().Forward(logits, targets)
package nn
