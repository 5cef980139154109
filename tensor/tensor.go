// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/gantrain/internal/tensor"
)

// Tensor is a typed tensor bound to a backend.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// RawTensor is the untyped buffer passed to backends.
type RawTensor = tensor.RawTensor

// Shape is a tensor shape.
type Shape = tensor.Shape

// DType constrains tensor element types.
type DType = tensor.DType

// DataType tags the element type of a RawTensor.
type DataType = tensor.DataType

// Element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
)

// Zeros creates a zero-filled tensor.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full(shape, value, b)
}

// Randn draws from N(0, 1) using rng.
//
//	rng := rand.New(rand.NewSource(seed))
//	noise := tensor.Randn(tensor.Shape{batch, nz}, rng, backend)
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.Randn(shape, rng, b)
}

// Uniform draws from U(lo, hi) using rng.
func Uniform[B Backend](shape Shape, lo, hi float64, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.Uniform(shape, lo, hi, rng, b)
}

// OneHot encodes class labels as rows of a [len(labels), classes] tensor.
func OneHot[B Backend](labels []int64, classes int, b B) *Tensor[float32, B] {
	return tensor.OneHot(labels, classes, b)
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// New wraps a RawTensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T](raw, b)
}

// NewRaw allocates a zeroed RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Cat concatenates tensors along dim.
func Cat[T DType, B Backend](dim int, tensors ...*Tensor[T, B]) *Tensor[T, B] {
	return tensor.Cat(dim, tensors...)
}

// Float32s copies the elements of t into a new slice.
func Float32s[B Backend](t *Tensor[float32, B]) []float32 {
	return tensor.Float32s(t)
}

// BroadcastShapes returns the broadcast result of a and b and whether
// broadcasting was needed.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
