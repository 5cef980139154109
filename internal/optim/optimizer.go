// Package optim implements the optimizers that update player parameters.
//
// Optimizers read the gradients accumulated on each nn.Parameter and skip
// parameters that are frozen or received no gradient. One optimizer owns one
// player's parameters; the trainer never shares an optimizer across players.
//
//	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 2e-4, Betas: [2]float32{0.5, 0.999}})
//
//	opt.ZeroGrad()
//	grads := backend.Backward(loss.Raw())
//	nn.AccumulateGrads(model.Parameters(), grads)
//	opt.Step()
package optim

import (
	"fmt"

	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Optimizer is the interface shared by all optimizers.
type Optimizer interface {
	// Step applies one update from the accumulated gradients.
	Step()
	ZeroGrad()

	GetLR() float32
	SetLR(lr float32)

	// StateDict exports the optimizer buffers; keys are stable across runs
	// as long as the parameter order is.
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32
}

// gradientOf returns the parameter's gradient data, or nil when the
// parameter should not move this step.
func gradientOf[B tensor.Backend](p *nn.Parameter[B]) []float32 {
	if !p.Trainable() {
		return nil
	}
	g := p.Grad()
	if g == nil {
		return nil
	}
	return g.Raw().AsFloat32()
}

// bufferKey names a per-parameter buffer in a state dict: "m.3", "velocity.0".
func bufferKey(kind string, i int) string {
	return fmt.Sprintf("%s.%d", kind, i)
}

// loadBuffers restores per-parameter buffers, allocating fresh copies so the
// optimizer never aliases tensors owned by the caller.
func loadBuffers[B tensor.Backend](
	kind string,
	params []*nn.Parameter[B],
	stateDict map[string]*tensor.RawTensor,
) (map[int][]float32, error) {
	out := make(map[int][]float32)
	for i, p := range params {
		raw, ok := stateDict[bufferKey(kind, i)]
		if !ok {
			continue
		}
		if !raw.Shape().Equal(p.Tensor().Shape()) {
			return nil, fmt.Errorf("%s shape mismatch for parameter %d (%s): expected %v, got %v",
				kind, i, p.Name(), p.Tensor().Shape(), raw.Shape())
		}
		out[i] = append([]float32(nil), raw.AsFloat32()...)
	}
	return out, nil
}

// exportBuffer copies a buffer into a standalone tensor.
func exportBuffer(data []float32, shape tensor.Shape) *tensor.RawTensor {
	raw := tensor.MustRaw(shape, tensor.Float32, tensor.CPU)
	copy(raw.AsFloat32(), data)
	return raw
}
