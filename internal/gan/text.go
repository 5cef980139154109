package gan

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Text-to-image defaults.
const (
	DefaultCoeffKL      = 2.0
	DefaultConditionDim = 128
)

// TextConfig configures text-to-image synthesis.
type TextConfig struct {
	Options
	// Layout is the image layout; Layout.CondDim is the text embedding width.
	Layout data.Layout
	Noise  int
	// ConditionDim is the width of the augmented text condition.
	ConditionDim int
	// CoeffKL weighs the KL term of conditioning augmentation.
	CoeffKL float64
}

// TextToImage generates images from caption embeddings.
//
// The generator samples a condition c ~ N(mu(text), sigma(text)) and is
// regularized towards N(0, 1) by a KL term. The discriminator sees
// image ⊕ mu and learns three cases: real images with their own caption,
// real images with another sample's caption, and generated images.
type TextToImage struct {
	cfg     TextConfig
	backend Backend

	net       *models.TextGenerator[Backend]
	generator *Player
	critic    *Player
	disc      models.Discriminator[Backend]
}

// NewTextToImage builds the players of text-to-image synthesis.
func NewTextToImage(backend Backend, cfg TextConfig, rng *rand.Rand) (*TextToImage, error) {
	if cfg.Layout.CondDim <= 0 {
		return nil, errors.New("text: samples carry no text embedding")
	}
	if cfg.Layout.SampleDim() <= 0 {
		return nil, errors.New("text: empty sample layout")
	}
	if cfg.ConditionDim == 0 {
		cfg.ConditionDim = DefaultConditionDim
	}
	if cfg.CoeffKL == 0 {
		cfg.CoeffKL = DefaultCoeffKL
	}
	mc := cfg.modelConfig(cfg.Layout.SampleDim())
	mc.CondDim = cfg.ConditionDim

	disc, err := models.NewDiscriminator[Backend](models.TextDiscriminator, mc, backend, rng)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	t := &TextToImage{cfg: cfg, backend: backend, disc: disc}
	t.net = models.NewTextGenerator[Backend](cfg.Layout.CondDim, cfg.Noise, mc, backend, rng)
	if t.generator, err = cfg.player(RoleGenerator, t.net, backend); err != nil {
		return nil, err
	}
	if t.critic, err = cfg.player(RoleDiscriminator, disc, backend); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TextToImage) Name() string { return "stackgan" }

func (t *TextToImage) Players() []*Player        { return []*Player{t.generator, t.critic} }
func (t *TextToImage) Discriminators() []*Player { return []*Player{t.critic} }
func (t *TextToImage) Generators() []*Player     { return []*Player{t.generator} }

type textFakes struct {
	images, mu, logvar *Tensor
}

func (t *TextToImage) fakes(s *Step) textFakes {
	return s.Keep("fakes", func() any {
		n := s.Batch.Size()
		var noise *Tensor
		if t.cfg.Noise > 0 {
			noise = s.Noise(n, t.cfg.Noise)
		}
		images, mu, logvar := t.net.Generate(s.Cond(s.Batch.Real), s.Noise(n, t.cfg.ConditionDim), noise)
		return textFakes{images: images, mu: mu, logvar: logvar}
	}).(textFakes)
}

// judge scores images under the caption means mu.
func (t *TextToImage) judge(s *Step, images, mu *Tensor) *Tensor {
	adv, _ := t.disc.Discriminate(tensor.Cat(1, s.InstanceNoise(images, t.cfg.NoiseSigma), mu))
	return adv
}

// mismatched shifts the images by one row so no caption meets its own image.
func mismatched(b data.Batch) []float32 {
	d := b.Layout.SampleDim()
	out := make([]float32, 0, len(b.Observations))
	out = append(out, b.Observations[d:]...)
	return append(out, b.Observations[:d]...)
}

func (t *TextToImage) DiscriminatorLoss(s *Step) (*Terms, error) {
	batch := s.Batch.Real
	if batch.Layout.CondDim != t.cfg.Layout.CondDim {
		return nil, fmt.Errorf("text: embedding width %d, want %d", batch.Layout.CondDim, t.cfg.Layout.CondDim)
	}
	fake := t.fakes(s)
	mu := fake.mu.Detach()
	crit := t.cfg.Criterion
	terms := NewTerms()

	terms.Add("real", Adversarial(crit, t.judge(s, s.Observations(batch), mu), RealTarget))
	if batch.Size > 1 {
		wrong := hostTensor(mismatched(batch), tensor.Shape{batch.Size, batch.Layout.SampleDim()}, t.backend)
		terms.AddWeighted("wrong", 0.5, Adversarial(crit, t.judge(s, wrong, mu), FakeTarget))
		terms.AddWeighted("fake", 0.5, Adversarial(crit, t.judge(s, fake.images.Detach(), mu), FakeTarget))
	} else {
		terms.Add("fake", Adversarial(crit, t.judge(s, fake.images.Detach(), mu), FakeTarget))
	}
	return terms, nil
}

func (t *TextToImage) GeneratorLoss(s *Step) (*Terms, error) {
	fake := t.fakes(s)
	terms := NewTerms()
	terms.Add("adv", Adversarial(t.cfg.Criterion, t.judge(s, fake.images, fake.mu.Detach()), RealTarget))
	terms.AddWeighted("kl", t.cfg.CoeffKL, KLDivergence(fake.mu, fake.logvar))
	return terms, nil
}

// FixedLatent keeps the caption embeddings of the first batch with one
// augmentation and noise draw.
func (t *TextToImage) FixedLatent(rng *rand.Rand, first Batch) map[string]*tensor.RawTensor {
	n := first.Size()
	out := map[string]*tensor.RawTensor{
		"text": hostTensor(first.Real.Cond, tensor.Shape{n, t.cfg.Layout.CondDim}, t.backend).Raw(),
		"eps":  tensor.Randn(tensor.Shape{n, t.cfg.ConditionDim}, rng, t.backend).Raw(),
	}
	if t.cfg.Noise > 0 {
		out["noise"] = tensor.Randn(tensor.Shape{n, t.cfg.Noise}, rng, t.backend).Raw()
	}
	return out
}

func (t *TextToImage) Sample(latent map[string]*tensor.RawTensor) (data.Batch, error) {
	text, err := fixed(latent, "text", t.backend)
	if err != nil {
		return data.Batch{}, err
	}
	eps, err := fixed(latent, "eps", t.backend)
	if err != nil {
		return data.Batch{}, err
	}
	var noise *Tensor
	if t.cfg.Noise > 0 {
		if noise, err = fixed(latent, "noise", t.backend); err != nil {
			return data.Batch{}, err
		}
	}
	layout := t.cfg.Layout
	layout.CondDim = 0
	var out data.Batch
	t.backend.NoGrad(func() {
		images, _, _ := t.net.Generate(text, eps, noise)
		out = sampleBatch(images, layout)
	})
	return out, nil
}
