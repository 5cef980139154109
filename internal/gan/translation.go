package gan

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/born-ml/gantrain/internal/tensor"
)

// DefaultLambdaL1 weighs the L1 term of image translation.
const DefaultLambdaL1 = 100

// TranslationConfig configures paired image-to-image translation.
type TranslationConfig struct {
	Options
	// Layout is the target layout; Layout.CondDim is the source width.
	Layout data.Layout
	Noise  int
	// LambdaL1 weighs the L1 distance to the target; 0 means DefaultLambdaL1.
	LambdaL1 float64
}

// Translation learns a mapping from source images A to target images B on
// aligned pairs. The discriminator judges (A, B) pairs; the generator is
// trained adversarially and by L1 distance to the true B.
type Translation struct {
	cfg     TranslationConfig
	backend Backend

	generator *Player
	critic    *Player
	disc      models.Discriminator[Backend]
}

// NewTranslation builds the players of image translation.
func NewTranslation(backend Backend, cfg TranslationConfig, rng *rand.Rand) (*Translation, error) {
	if cfg.Layout.CondDim != cfg.Layout.SampleDim() {
		return nil, fmt.Errorf("translation: source width %d differs from target width %d", cfg.Layout.CondDim, cfg.Layout.SampleDim())
	}
	if cfg.Layout.SampleDim() <= 0 {
		return nil, errors.New("translation: empty sample layout")
	}
	if cfg.LambdaL1 == 0 {
		cfg.LambdaL1 = DefaultLambdaL1
	}
	mc := cfg.modelConfig(cfg.Layout.SampleDim())
	mc.CondDim = cfg.Layout.CondDim

	disc, err := models.NewDiscriminator[Backend](models.PairDiscriminator, mc, backend, rng)
	if err != nil {
		return nil, fmt.Errorf("translation: %w", err)
	}
	t := &Translation{cfg: cfg, backend: backend, disc: disc}
	if t.generator, err = cfg.player(RoleGenerator, models.NewTranslationGenerator[Backend](cfg.Noise, mc, backend, rng), backend); err != nil {
		return nil, err
	}
	if t.critic, err = cfg.player(RoleDiscriminator, disc, backend); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Translation) Name() string { return "pix2pix" }

func (t *Translation) Players() []*Player        { return []*Player{t.generator, t.critic} }
func (t *Translation) Discriminators() []*Player { return []*Player{t.critic} }
func (t *Translation) Generators() []*Player     { return []*Player{t.generator} }

func (t *Translation) translate(source, noise *Tensor) *Tensor {
	if noise == nil {
		return t.generator.Forward(source)
	}
	return t.generator.Forward(tensor.Cat(1, source, noise))
}

func (t *Translation) fake(s *Step) *Tensor {
	return s.Remember("fake", func() *Tensor {
		var noise *Tensor
		if t.cfg.Noise > 0 {
			noise = s.Noise(s.Batch.Size(), t.cfg.Noise)
		}
		return t.translate(s.Cond(s.Batch.Real), noise)
	})
}

// judge scores source ⊕ target pairs.
func (t *Translation) judge(s *Step, source, target *Tensor) *Tensor {
	adv, _ := t.disc.Discriminate(s.InstanceNoise(tensor.Cat(1, target, source), t.cfg.NoiseSigma))
	return adv
}

func (t *Translation) check(b Batch) error {
	if b.Real.Layout.CondDim != t.cfg.Layout.CondDim || b.Real.Layout.SampleDim() != t.cfg.Layout.SampleDim() {
		return fmt.Errorf("translation: batch of %d→%d features, want %d→%d",
			b.Real.Layout.CondDim, b.Real.Layout.SampleDim(), t.cfg.Layout.CondDim, t.cfg.Layout.SampleDim())
	}
	return nil
}

func (t *Translation) DiscriminatorLoss(s *Step) (*Terms, error) {
	if err := t.check(s.Batch); err != nil {
		return nil, err
	}
	source := s.Cond(s.Batch.Real)
	terms := NewTerms()
	terms.AddWeighted("real", 0.5, Adversarial(t.cfg.Criterion, t.judge(s, source, s.Observations(s.Batch.Real)), RealTarget))
	terms.AddWeighted("fake", 0.5, Adversarial(t.cfg.Criterion, t.judge(s, source, t.fake(s).Detach()), FakeTarget))
	return terms, nil
}

func (t *Translation) GeneratorLoss(s *Step) (*Terms, error) {
	if err := t.check(s.Batch); err != nil {
		return nil, err
	}
	source := s.Cond(s.Batch.Real)
	fake := t.fake(s)
	terms := NewTerms()
	terms.Add("adv", Adversarial(t.cfg.Criterion, t.judge(s, source, fake), RealTarget))
	terms.AddWeighted("l1", t.cfg.LambdaL1, Reconstruction(fake, s.Observations(s.Batch.Real)))
	return terms, nil
}

// FixedLatent keeps the source images of the first batch and, when the
// generator takes noise, one noise draw.
func (t *Translation) FixedLatent(rng *rand.Rand, first Batch) map[string]*tensor.RawTensor {
	n := first.Size()
	out := map[string]*tensor.RawTensor{
		"source": hostTensor(first.Real.Cond, tensor.Shape{n, t.cfg.Layout.CondDim}, t.backend).Raw(),
	}
	if t.cfg.Noise > 0 {
		out["noise"] = tensor.Randn(tensor.Shape{n, t.cfg.Noise}, rng, t.backend).Raw()
	}
	return out
}

func (t *Translation) Sample(latent map[string]*tensor.RawTensor) (data.Batch, error) {
	source, err := fixed(latent, "source", t.backend)
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
		out = sampleBatch(t.translate(source, noise), layout)
	})
	return out, nil
}
