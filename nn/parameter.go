// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// A parameter owns a tensor, a gradient accumulator and a trainable flag.
// Freezing a parameter keeps it out of optimizer updates while the other
// player of a GAN trains.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
//	grad := weight.Grad() // nil until a gradient is accumulated
//
// Note: Parameter is implemented as a type alias because it is used as a return type
// in the Module interface. Go's type system requires exact type matches for interface
// implementations, so we cannot use an interface here.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new trainable parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// AccumulateGrads adds every gradient in grads to the parameter that owns
// the keyed tensor.
func AccumulateGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	nn.AccumulateGrads(params, grads)
}

// ZeroGrads clears the gradients of params.
func ZeroGrads[B tensor.Backend](params []*Parameter[B]) {
	nn.ZeroGrads(params)
}

// SetTrainable freezes or unfreezes params.
func SetTrainable[B tensor.Backend](params []*Parameter[B], trainable bool) {
	nn.SetTrainable(params, trainable)
}

// Watch registers params on the gradient tape of backend, when it has one.
func Watch[B tensor.Backend](backend B, params []*Parameter[B]) {
	nn.Watch(backend, params)
}
