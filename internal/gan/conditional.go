package gan

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/born-ml/gantrain/internal/tensor"
)

// ConditionalConfig configures the auxiliary-classifier GAN.
type ConditionalConfig struct {
	Options
	Layout data.Layout
	Noise  int
	// Classes is the number of conditioning classes. Zero trains an
	// unconditional GAN with a plain image discriminator.
	Classes int
}

// Conditional is an auxiliary-classifier GAN over images.
//
// The generator maps noise ⊕ one-hot(class) to an image. The discriminator
// has an adversarial head and, when Classes > 0, a class head trained on
// both real and generated images against the conditioning labels.
type Conditional struct {
	cfg     ConditionalConfig
	backend Backend

	generator *Player
	critic    *Player
	disc      models.Discriminator[Backend]
}

// NewConditional builds the players of an auxiliary-classifier GAN.
func NewConditional(backend Backend, cfg ConditionalConfig, rng *rand.Rand) (*Conditional, error) {
	if cfg.Noise <= 0 {
		return nil, errors.New("conditional: noise width must be positive")
	}
	if cfg.Layout.SampleDim() <= 0 {
		return nil, errors.New("conditional: empty sample layout")
	}
	mc := cfg.modelConfig(cfg.Layout.SampleDim())
	mc.Classes = cfg.Classes

	kind := models.ImageDiscriminator
	if cfg.Classes > 0 {
		kind = models.ConditionalDiscriminator
	}
	disc, err := models.NewDiscriminator[Backend](kind, mc, backend, rng)
	if err != nil {
		return nil, fmt.Errorf("conditional: %w", err)
	}

	c := &Conditional{cfg: cfg, backend: backend, disc: disc}
	if c.generator, err = cfg.player(RoleGenerator, models.NewConditionalGenerator[Backend](cfg.Noise, mc, backend, rng), backend); err != nil {
		return nil, err
	}
	if c.critic, err = cfg.player(RoleDiscriminator, disc, backend); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conditional) Name() string { return "acgan" }

func (c *Conditional) Players() []*Player        { return []*Player{c.generator, c.critic} }
func (c *Conditional) Discriminators() []*Player { return []*Player{c.critic} }
func (c *Conditional) Generators() []*Player     { return []*Player{c.generator} }

// latent is noise ⊕ one-hot(labels).
func (c *Conditional) latent(noise *Tensor, labels []int64) *Tensor {
	if c.cfg.Classes == 0 {
		return noise
	}
	return tensor.Cat(1, noise, tensor.OneHot(labels, c.cfg.Classes, c.backend))
}

// labels validates the batch labels. An unconditional GAN ignores them.
func (c *Conditional) labels(s *Step) ([]int64, error) {
	if c.cfg.Classes == 0 {
		return nil, nil
	}
	labels := s.Batch.Real.Labels
	for _, l := range labels {
		if l < 0 || int(l) >= c.cfg.Classes {
			return nil, fmt.Errorf("label %d outside %d classes", l, c.cfg.Classes)
		}
	}
	return labels, nil
}

func (c *Conditional) fake(s *Step, labels []int64) *Tensor {
	return s.Remember("fake", func() *Tensor {
		return c.generator.Forward(c.latent(s.Noise(s.Batch.Size(), c.cfg.Noise), labels))
	})
}

func (c *Conditional) DiscriminatorLoss(s *Step) (*Terms, error) {
	labels, err := c.labels(s)
	if err != nil {
		return nil, err
	}
	terms := NewTerms()

	adv, cls := c.disc.Discriminate(s.InstanceNoise(s.Observations(s.Batch.Real), c.cfg.NoiseSigma))
	terms.Add("real_adv", Adversarial(c.cfg.Criterion, adv, RealTarget))
	if cls != nil {
		terms.Add("real_cls", Classification(cls, labels))
	}

	adv, cls = c.disc.Discriminate(s.InstanceNoise(c.fake(s, labels).Detach(), c.cfg.NoiseSigma))
	terms.Add("fake_adv", Adversarial(c.cfg.Criterion, adv, FakeTarget))
	if cls != nil {
		terms.Add("fake_cls", Classification(cls, labels))
	}
	return terms, nil
}

func (c *Conditional) GeneratorLoss(s *Step) (*Terms, error) {
	labels, err := c.labels(s)
	if err != nil {
		return nil, err
	}
	terms := NewTerms()
	adv, cls := c.disc.Discriminate(s.InstanceNoise(c.fake(s, labels), c.cfg.NoiseSigma))
	terms.Add("adv", Adversarial(c.cfg.Criterion, adv, RealTarget))
	if cls != nil {
		terms.Add("cls", Classification(cls, labels))
	}
	return terms, nil
}

// FixedLatent holds one noise row per sample of the first batch, with
// classes assigned round-robin.
func (c *Conditional) FixedLatent(rng *rand.Rand, first Batch) map[string]*tensor.RawTensor {
	n := first.Size()
	labels := make([]int64, n)
	for i := range labels {
		labels[i] = int64(i % max(c.cfg.Classes, 1))
	}
	return map[string]*tensor.RawTensor{
		"noise":  tensor.Randn(tensor.Shape{n, c.cfg.Noise}, rng, c.backend).Raw(),
		"labels": tensor.OneHot(labels, max(c.cfg.Classes, 1), c.backend).Raw(),
	}
}

func (c *Conditional) Sample(latent map[string]*tensor.RawTensor) (data.Batch, error) {
	noise, err := fixed(latent, "noise", c.backend)
	if err != nil {
		return data.Batch{}, err
	}
	onehot, err := fixed(latent, "labels", c.backend)
	if err != nil {
		return data.Batch{}, err
	}
	var out data.Batch
	c.backend.NoGrad(func() {
		z := noise
		if c.cfg.Classes > 0 {
			z = tensor.Cat(1, noise, onehot)
		}
		out = sampleBatch(c.generator.Forward(z), c.cfg.Layout)
	})
	return out, nil
}
