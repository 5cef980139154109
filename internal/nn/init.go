package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/gantrain/internal/tensor"
)

// Xavier (Glorot) uniform initialization: U(-a, a) with a = sqrt(6/(fan_in+fan_out)).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform(shape, -bound, bound, rng, backend)
}

// Normal draws from N(mean, std²).
func Normal[B tensor.Backend](shape tensor.Shape, mean, std float64, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	t := tensor.Zeros[float32](shape, backend)
	data := t.Raw().AsFloat32()
	for i := range data {
		data[i] = float32(mean + std*rng.NormFloat64())
	}
	return t
}

// Zeros is the bias initializer.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// InitNormal overwrites every parameter named "weight" with N(0, std²) and
// zeroes the biases. This is the DCGAN-style reset applied to freshly built
// generators and discriminators.
func InitNormal[B tensor.Backend](params []*Parameter[B], std float64, rng *rand.Rand) {
	for _, p := range params {
		data := p.Tensor().Raw().AsFloat32()
		switch p.Name() {
		case "weight":
			for i := range data {
				data[i] = float32(std * rng.NormFloat64())
			}
		case "bias":
			for i := range data {
				data[i] = 0
			}
		}
	}
}
