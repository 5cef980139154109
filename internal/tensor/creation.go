package tensor

import (
	"math/rand"
)

// Zeros creates a zero-filled tensor.
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return New[T, B](MustRaw(shape, dataTypeOf[T](), b.Device()), b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, T(1), b)
}

// Randn draws float32 values from N(0, 1) using rng.
// Callers own rng so runs are reproducible from a seed.
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Uniform draws float32 values from U(lo, hi) using rng.
func Uniform[B Backend](shape Shape, lo, hi float64, rng *rand.Rand, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(lo + (hi-lo)*rng.Float64())
	}
	return t
}

// OneHot encodes labels as rows of a [len(labels), classes] float32 tensor.
func OneHot[B Backend](labels []int64, classes int, b B) *Tensor[float32, B] {
	t := Zeros[float32](Shape{len(labels), classes}, b)
	data := t.Data()
	for i, l := range labels {
		if l < 0 || int(l) >= classes {
			panic("one-hot: label out of range")
		}
		data[i*classes+int(l)] = 1
	}
	return t
}
