package models

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// TextGenerator is a stage-I text-to-image generator. A conditioning
// augmentation layer maps the text embedding to a Gaussian (mu, logvar); a
// sample c = mu + exp(logvar/2)·eps is concatenated with noise and decoded
// to an image.
type TextGenerator[B tensor.Backend] struct {
	ca      *nn.Linear[B]
	net     *nn.Sequential[B]
	textDim int
	condDim int
	noise   int
}

// NewTextGenerator builds a generator for textDim embeddings. cfg.CondDim
// is the augmented conditioning width.
func NewTextGenerator[B tensor.Backend](textDim, noise int, cfg Config, backend B, rng *rand.Rand) *TextGenerator[B] {
	cfg = cfg.withDefaults()
	g := &TextGenerator[B]{
		ca:      nn.NewLinear(textDim, 2*cfg.CondDim, backend, rng),
		net:     mlp([]int{cfg.CondDim + noise, cfg.Hidden, 2 * cfg.Hidden, cfg.Dim}, relu[B](), nn.NewTanh[B](), cfg.InitStd, backend, rng),
		textDim: textDim,
		condDim: cfg.CondDim,
		noise:   noise,
	}
	if cfg.InitStd > 0 {
		nn.InitNormal(g.ca.Parameters(), cfg.InitStd, rng)
	}
	return g
}

func (g *TextGenerator[B]) TextDim() int  { return g.textDim }
func (g *TextGenerator[B]) CondDim() int  { return g.condDim }
func (g *TextGenerator[B]) NoiseDim() int { return g.noise }

// Condition returns the augmentation Gaussian for text embeddings [N, textDim].
func (g *TextGenerator[B]) Condition(text *tensor.Tensor[float32, B]) (mu, logvar *tensor.Tensor[float32, B]) {
	h := g.ca.Forward(text)
	mu = h.Narrow(1, 0, g.condDim)
	logvar = h.Narrow(1, g.condDim, g.condDim)
	return mu, logvar
}

// Generate decodes images from text embeddings, eps [N, condDim] and noise
// [N, noise], nil for a generator without noise. It also returns the
// conditioning Gaussian for the KL term.
func (g *TextGenerator[B]) Generate(text, eps, noise *tensor.Tensor[float32, B]) (images, mu, logvar *tensor.Tensor[float32, B]) {
	mu, logvar = g.Condition(text)
	c := mu.Add(logvar.MulScalar(0.5).Exp().Mul(eps))
	if noise != nil {
		c = tensor.Cat(1, c, noise)
	}
	return g.net.Forward(c), mu, logvar
}

// Forward decodes text ⊕ eps ⊕ noise rows.
func (g *TextGenerator[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	want := g.textDim + g.condDim + g.noise
	if input.Shape()[1] != want {
		panic(fmt.Sprintf("text generator: expected %d input features, got %d", want, input.Shape()[1]))
	}
	var noise *tensor.Tensor[float32, B]
	if g.noise > 0 {
		noise = input.Narrow(1, g.textDim+g.condDim, g.noise)
	}
	images, _, _ := g.Generate(input.Narrow(1, 0, g.textDim), input.Narrow(1, g.textDim, g.condDim), noise)
	return images
}

func (g *TextGenerator[B]) Parameters() []*nn.Parameter[B] {
	return append(g.ca.Parameters(), g.net.Parameters()...)
}

func (g *TextGenerator[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for k, v := range g.ca.StateDict() {
		sd["ca."+k] = v
	}
	for k, v := range g.net.StateDict() {
		sd["net."+k] = v
	}
	return sd
}

func (g *TextGenerator[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := g.ca.LoadStateDict(nn.SubStateDict(stateDict, "ca.")); err != nil {
		return fmt.Errorf("conditioning: %w", err)
	}
	if err := g.net.LoadStateDict(nn.SubStateDict(stateDict, "net.")); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	return nil
}
