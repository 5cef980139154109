package nn

import (
	"github.com/born-ml/gantrain/internal/tensor"
)

// activation is the parameterless part every element-wise module shares.
type activation[B tensor.Backend] struct{}

func (activation[B]) Parameters() []*Parameter[B]                      { return nil }
func (activation[B]) StateDict() map[string]*tensor.RawTensor          { return map[string]*tensor.RawTensor{} }
func (activation[B]) LoadStateDict(map[string]*tensor.RawTensor) error { return nil }

// ReLU applies max(0, x).
type ReLU[B tensor.Backend] struct{ activation[B] }

func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := input.Backend()
	return tensor.New[float32, B](b.ReLU(input.Raw()), b)
}

// LeakyReLU applies x for x > 0 and slope·x otherwise. GAN discriminators
// conventionally use slope 0.2.
type LeakyReLU[B tensor.Backend] struct {
	activation[B]
	slope float64
}

func NewLeakyReLU[B tensor.Backend](slope float64) *LeakyReLU[B] {
	return &LeakyReLU[B]{slope: slope}
}

func (r *LeakyReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := input.Backend()
	return tensor.New[float32, B](b.LeakyReLU(input.Raw(), r.slope), b)
}

// Sigmoid applies 1/(1+e^-x).
type Sigmoid[B tensor.Backend] struct{ activation[B] }

func NewSigmoid[B tensor.Backend]() *Sigmoid[B] { return &Sigmoid[B]{} }

func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := input.Backend()
	return tensor.New[float32, B](b.Sigmoid(input.Raw()), b)
}

// Tanh squashes into (-1, 1); generators end with it so samples match
// data normalized to [-1, 1].
type Tanh[B tensor.Backend] struct{ activation[B] }

func NewTanh[B tensor.Backend]() *Tanh[B] { return &Tanh[B]{} }

func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := input.Backend()
	return tensor.New[float32, B](b.Tanh(input.Raw()), b)
}
