// Package models defines the generator, discriminator and reconstructor
// networks of the training variants.
//
// Every network is a multilayer perceptron over flattened samples; layer
// widths are a configuration detail. Discriminators are built by kind
// through a registry:
//
//	kind, err := models.ParseDiscriminatorKind("PatchVideoDiscriminator")
//	d, err := models.NewDiscriminator(kind, models.Config{Dim: 3 * 64 * 64, Frames: 16}, backend, rng)
package models

import (
	"math/rand"

	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// DefaultHidden is the hidden width used when a Config leaves it at zero.
const DefaultHidden = 128

// Config sizes a network.
type Config struct {
	Dim     int // features per frame
	Frames  int // frames per sample, 1 for images
	CondDim int // conditioning features appended to the input
	Classes int // auxiliary class or category count
	Hidden  int
	// InitStd re-initializes weights from N(0, InitStd) with zero biases
	// when positive; otherwise Linear's Xavier init is kept.
	InitStd float64
}

func (c Config) withDefaults() Config {
	if c.Frames < 1 {
		c.Frames = 1
	}
	if c.Hidden <= 0 {
		c.Hidden = DefaultHidden
	}
	return c
}

// mlp stacks Linear layers of the given widths with act between them and
// out after the last one (nil for raw logits).
func mlp[B tensor.Backend](widths []int, act func() nn.Module[B], out nn.Module[B], initStd float64, backend B, rng *rand.Rand) *nn.Sequential[B] {
	seq := nn.NewSequential[B]()
	for i := 0; i+1 < len(widths); i++ {
		seq.Add(nn.NewLinear(widths[i], widths[i+1], backend, rng))
		if i+2 < len(widths) {
			seq.Add(act())
		}
	}
	if out != nil {
		seq.Add(out)
	}
	if initStd > 0 {
		nn.InitNormal(seq.Parameters(), initStd, rng)
	}
	return seq
}

func relu[B tensor.Backend]() func() nn.Module[B] {
	return func() nn.Module[B] { return nn.NewReLU[B]() }
}

func leaky[B tensor.Backend]() func() nn.Module[B] {
	return func() nn.Module[B] { return nn.NewLeakyReLU[B](0.2) }
}

// NewConditionalGenerator maps noise ⊕ one-hot class to an image.
func NewConditionalGenerator[B tensor.Backend](noise int, cfg Config, backend B, rng *rand.Rand) *nn.Sequential[B] {
	cfg = cfg.withDefaults()
	return mlp([]int{noise + cfg.Classes, cfg.Hidden, 2 * cfg.Hidden, cfg.Dim}, relu[B](), nn.NewTanh[B](), cfg.InitStd, backend, rng)
}

// VideoLatent sizes the per-frame latent of the video generator.
type VideoLatent struct {
	Content  int
	Category int
	Motion   int
}

// Width is the latent length per frame.
func (l VideoLatent) Width() int { return l.Content + l.Category + l.Motion }

// NewVideoGenerator maps one row per frame, image ⊕ content ⊕ category ⊕
// motion, to that frame. Callers reshape the [N·T, Dim] output to videos.
func NewVideoGenerator[B tensor.Backend](latent VideoLatent, cfg Config, backend B, rng *rand.Rand) *nn.Sequential[B] {
	cfg = cfg.withDefaults()
	return mlp([]int{cfg.Dim + latent.Width(), 2 * cfg.Hidden, 2 * cfg.Hidden, cfg.Dim}, relu[B](), nn.NewTanh[B](), cfg.InitStd, backend, rng)
}

// NewImageReconstructor maps a generated frame back to its source image.
func NewImageReconstructor[B tensor.Backend](cfg Config, backend B, rng *rand.Rand) *nn.Sequential[B] {
	cfg = cfg.withDefaults()
	return mlp([]int{cfg.Dim, cfg.Hidden, cfg.Dim}, leaky[B](), nn.NewTanh[B](), cfg.InitStd, backend, rng)
}

// NewVideoReconstructor maps a generated clip back to its source image.
func NewVideoReconstructor[B tensor.Backend](cfg Config, backend B, rng *rand.Rand) *nn.Sequential[B] {
	cfg = cfg.withDefaults()
	return mlp([]int{cfg.Frames * cfg.Dim, cfg.Hidden, cfg.Dim}, leaky[B](), nn.NewTanh[B](), cfg.InitStd, backend, rng)
}

// NewTranslationGenerator maps a source image ⊕ noise to a target image.
func NewTranslationGenerator[B tensor.Backend](noise int, cfg Config, backend B, rng *rand.Rand) *nn.Sequential[B] {
	cfg = cfg.withDefaults()
	return mlp([]int{cfg.Dim + noise, 2 * cfg.Hidden, 2 * cfg.Hidden, cfg.Dim}, relu[B](), nn.NewTanh[B](), cfg.InitStd, backend, rng)
}
