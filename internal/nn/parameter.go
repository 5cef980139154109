package nn

import (
	"fmt"

	"github.com/born-ml/gantrain/internal/autodiff"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Parameter is a trainable tensor plus its gradient accumulator.
//
// The tensor keeps one identity for its whole life: LoadStateDict and the
// optimizers write into its buffer rather than replacing it, so the tape
// registration made by Watch stays valid.
//
//	weight := nn.NewParameter("weight", w)
//	weight.Accumulate(grads[w.Raw()])
//	g := weight.Grad()
type Parameter[B tensor.Backend] struct {
	name      string
	tensor    *tensor.Tensor[float32, B]
	grad      *tensor.RawTensor
	trainable bool
}

// NewParameter wraps an initialized tensor. Parameters start trainable.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t, trainable: true}
}

func (p *Parameter[B]) Name() string                       { return p.name }
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }
func (p *Parameter[B]) Trainable() bool                    { return p.trainable }

// SetTrainable freezes or unfreezes the parameter. Frozen parameters ignore
// Accumulate and are skipped by optimizers.
func (p *Parameter[B]) SetTrainable(trainable bool) {
	p.trainable = trainable
}

// Grad returns the accumulated gradient, or nil if nothing was accumulated
// since the last ZeroGrad.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	if p.grad == nil {
		return nil
	}
	return tensor.New[float32, B](p.grad, p.tensor.Backend())
}

// Accumulate adds g into the gradient buffer. The first call copies g.
func (p *Parameter[B]) Accumulate(g *tensor.RawTensor) {
	if !p.trainable || g == nil {
		return
	}
	if !g.Shape().Equal(p.tensor.Shape()) {
		panic(fmt.Sprintf("parameter %s: gradient shape %v does not match %v", p.name, g.Shape(), p.tensor.Shape()))
	}
	if p.grad == nil {
		p.grad = g.Clone()
		return
	}
	dst, src := p.grad.AsFloat32(), g.AsFloat32()
	for i := range dst {
		dst[i] += src[i]
	}
}

// ZeroGrad drops the accumulated gradient.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// AccumulateGrads routes the gradients produced by a backward pass into the
// trainable parameters among params. Frozen parameters and parameters the
// loss never reached are left untouched.
func AccumulateGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range params {
		if g, ok := grads[p.tensor.Raw()]; ok {
			p.Accumulate(g)
		}
	}
}

// ZeroGrads clears every gradient in params.
func ZeroGrads[B tensor.Backend](params []*Parameter[B]) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// SetTrainable flips the trainable flag on every parameter in params.
func SetTrainable[B tensor.Backend](params []*Parameter[B], trainable bool) {
	for _, p := range params {
		p.SetTrainable(trainable)
	}
}

// Watch registers params as gradient sources on the backend's tape. It is a
// no-op for backends without a tape.
func Watch[B tensor.Backend](backend B, params []*Parameter[B]) {
	tb, ok := any(backend).(interface{ Tape() *autodiff.GradientTape })
	if !ok {
		return
	}
	for _, p := range params {
		tb.Tape().Watch(p.tensor.Raw())
	}
}
