package gan

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/optim"
	"github.com/born-ml/gantrain/internal/tensor"
)

// OptimizerConfig configures the optimizer of every player.
type OptimizerConfig struct {
	Name        string // "adam" (default) or "sgd"
	LR          float32
	Beta1       float32
	Beta2       float32
	WeightDecay float32
	Momentum    float32 // sgd only
	// DiscriminatorLR overrides LR for discriminators when positive.
	DiscriminatorLR float32
}

func (c OptimizerConfig) build(params []*nn.Parameter[Backend]) (optim.Optimizer, error) {
	switch c.Name {
	case "", "adam":
		return optim.NewAdam(params, optim.AdamConfig{
			LR:          c.LR,
			Betas:       [2]float32{c.Beta1, c.Beta2},
			WeightDecay: c.WeightDecay,
		}), nil
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{LR: c.LR, Momentum: c.Momentum}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", c.Name)
	}
}

// Options are the settings every variant shares.
type Options struct {
	Criterion Criterion
	Optimizer OptimizerConfig
	// NoiseSigma adds instance noise to every discriminator input; 0 disables.
	NoiseSigma float64
	Hidden     int
	InitStd    float64
}

func (o Options) modelConfig(dim int) models.Config {
	return models.Config{Dim: dim, Hidden: o.Hidden, InitStd: o.InitStd}
}

func (o Options) player(role Role, module nn.Module[Backend], backend Backend) (*Player, error) {
	cfg := o.Optimizer
	if role.discriminator() && cfg.DiscriminatorLR > 0 {
		cfg.LR = cfg.DiscriminatorLR
	}
	opt, err := cfg.build(module.Parameters())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", role, err)
	}
	return NewPlayer(role, module, opt, backend), nil
}

// Variant is one adversarial experiment: its players and the loss terms of
// each phase.
//
// DiscriminatorLoss is called first in a step and must score generated
// samples through Detach. GeneratorLoss is called second with the same Step
// and may reuse the samples generated in Phase D through Step.Remember.
type Variant interface {
	Name() string

	// Players lists every player in checkpoint order.
	Players() []*Player
	// Discriminators are stepped in Phase D and frozen in Phase G.
	Discriminators() []*Player
	// Generators are stepped in Phase G, auxiliary networks included.
	Generators() []*Player

	DiscriminatorLoss(s *Step) (*Terms, error)
	GeneratorLoss(s *Step) (*Terms, error)

	// FixedLatent draws the held-out latent rendered at every visual tick.
	// Variants conditioned on real data take it from the first batch.
	FixedLatent(rng *rand.Rand, first Batch) map[string]*tensor.RawTensor
	// Sample generates from a fixed latent without touching the tape.
	Sample(fixed map[string]*tensor.RawTensor) (data.Batch, error)
}

// Step is the per-step context shared by both phases.
type Step struct {
	Batch   Batch
	Backend Backend
	RNG     *rand.Rand

	cache map[string]any
}

// NewStep prepares the context of one step.
func NewStep(batch Batch, backend Backend, rng *rand.Rand) *Step {
	return &Step{Batch: batch, Backend: backend, RNG: rng, cache: make(map[string]any)}
}

// Remember returns the tensor stored under key, building it on first use.
// Generated samples are remembered so Phase G scores the same samples as
// Phase D.
func (s *Step) Remember(key string, build func() *Tensor) *Tensor {
	return s.Keep(key, func() any { return build() }).(*Tensor)
}

// Keep is Remember for values other than a single tensor.
func (s *Step) Keep(key string, build func() any) any {
	if v, ok := s.cache[key]; ok {
		return v
	}
	v := build()
	s.cache[key] = v
	return v
}

// Observations turns a batch into a [N, SampleDim] tensor.
func (s *Step) Observations(b data.Batch) *Tensor {
	return hostTensor(b.Observations, tensor.Shape{b.Size, b.Layout.SampleDim()}, s.Backend)
}

// Frames turns a batch into one row per frame, [N·T, Dim].
func (s *Step) Frames(b data.Batch) *Tensor {
	return hostTensor(b.Observations, tensor.Shape{b.Size * b.Layout.Frames, b.Layout.Dim}, s.Backend)
}

// Cond turns the conditioning features of a batch into [N, CondDim].
func (s *Step) Cond(b data.Batch) *Tensor {
	return hostTensor(b.Cond, tensor.Shape{b.Size, b.Layout.CondDim}, s.Backend)
}

// Noise draws standard normal values.
func (s *Step) Noise(shape ...int) *Tensor {
	return tensor.Randn(tensor.Shape(shape), s.RNG, s.Backend)
}

// OneHot encodes labels over classes.
func (s *Step) OneHot(labels []int64, classes int) *Tensor {
	return tensor.OneHot(labels, classes, s.Backend)
}

// Categories draws n uniform labels below classes.
func (s *Step) Categories(n, classes int) []int64 {
	labels := make([]int64, n)
	for i := range labels {
		labels[i] = int64(s.RNG.Intn(classes))
	}
	return labels
}

// InstanceNoise adds N(0, sigma²) noise to x. It is a no-op for sigma <= 0.
func (s *Step) InstanceNoise(x *Tensor, sigma float64) *Tensor {
	if sigma <= 0 {
		return x
	}
	return x.Add(s.Noise(x.Shape()...).MulScalar(sigma))
}

func hostTensor(values []float32, shape tensor.Shape, b Backend) *Tensor {
	t, err := tensor.FromSlice[float32](values, shape, b)
	if err != nil {
		panic(fmt.Sprintf("batch tensor %v: %v", shape, err))
	}
	return t
}

// sampleBatch copies generated rows back to host memory.
func sampleBatch(t *Tensor, layout data.Layout) data.Batch {
	values := t.Data()
	out := make([]float32, len(values))
	copy(out, values)
	return data.Batch{Layout: layout, Size: len(out) / layout.SampleDim(), Observations: out}
}

func fixed(latent map[string]*tensor.RawTensor, name string, b Backend) (*Tensor, error) {
	raw, ok := latent[name]
	if !ok {
		return nil, fmt.Errorf("fixed latent has no %q tensor", name)
	}
	return tensor.New[float32](raw, b), nil
}
