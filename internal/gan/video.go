package gan

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/born-ml/gantrain/internal/tensor"
)

// DefaultFrameWeightScale is k in the linear frame weight k·(N−i).
const DefaultFrameWeightScale = 1000

// motionDecay is the AR(1) coefficient of the motion walk.
const motionDecay = 0.9

// VideoConfig configures image-to-video transfer.
type VideoConfig struct {
	Options
	// Layout is the per-frame layout shared by images and video frames.
	Layout data.Layout
	Frames int
	Latent models.VideoLatent

	ImageDiscriminator models.DiscriminatorKind
	VideoDiscriminator models.DiscriminatorKind

	// FrameSchedule and FrameWeightScale weigh the L1 distance between each
	// generated frame and the source image.
	FrameSchedule    FrameSchedule
	FrameWeightScale float64

	// ReconWeight weighs the reconstructor terms. Zero builds no
	// reconstructors.
	ReconWeight float64
}

// Video animates a still image. Each step pairs a batch of images (the
// primary stream) with a batch of real clips (the paired stream).
//
// The generator produces every frame from image ⊕ content ⊕ category ⊕
// motion, with content and category fixed per clip and motion following a
// random walk. An image discriminator judges single frames and a video
// discriminator judges whole clips. The generator is also pulled towards the
// source image frame by frame, with early frames weighted most.
type Video struct {
	cfg     VideoConfig
	backend Backend
	weights []float64

	generator  *Player
	imageD     *Player
	videoD     *Player
	imageRecon *Player
	videoRecon *Player

	imageDisc models.Discriminator[Backend]
	videoDisc models.Discriminator[Backend]
}

// NewVideo builds the players of image-to-video transfer.
func NewVideo(backend Backend, cfg VideoConfig, rng *rand.Rand) (*Video, error) {
	if cfg.Frames < 1 {
		return nil, errors.New("video: frame count must be positive")
	}
	if cfg.Layout.Dim <= 0 {
		return nil, errors.New("video: empty frame layout")
	}
	if cfg.FrameWeightScale == 0 {
		cfg.FrameWeightScale = DefaultFrameWeightScale
	}
	if cfg.ImageDiscriminator.Input() != models.Still {
		return nil, fmt.Errorf("video: %s cannot score still images", cfg.ImageDiscriminator)
	}
	if cfg.VideoDiscriminator.Input() != models.Clip {
		return nil, fmt.Errorf("video: %s cannot score clips", cfg.VideoDiscriminator)
	}
	mc := cfg.modelConfig(cfg.Layout.Dim)
	mc.Frames = cfg.Frames
	mc.Classes = cfg.Latent.Category

	v := &Video{cfg: cfg, backend: backend, weights: FrameWeights(cfg.FrameSchedule, cfg.FrameWeightScale, cfg.Frames)}
	var err error
	if v.imageDisc, err = models.NewDiscriminator[Backend](cfg.ImageDiscriminator, mc, backend, rng); err != nil {
		return nil, fmt.Errorf("video: image discriminator: %w", err)
	}
	if v.videoDisc, err = models.NewDiscriminator[Backend](cfg.VideoDiscriminator, mc, backend, rng); err != nil {
		return nil, fmt.Errorf("video: video discriminator: %w", err)
	}

	if v.generator, err = cfg.player(RoleGenerator, models.NewVideoGenerator[Backend](cfg.Latent, mc, backend, rng), backend); err != nil {
		return nil, err
	}
	if v.imageD, err = cfg.player(RoleImageDiscriminator, v.imageDisc, backend); err != nil {
		return nil, err
	}
	if v.videoD, err = cfg.player(RoleVideoDiscriminator, v.videoDisc, backend); err != nil {
		return nil, err
	}
	if cfg.ReconWeight > 0 {
		if v.imageRecon, err = cfg.player(RoleImageReconstructor, models.NewImageReconstructor[Backend](mc, backend, rng), backend); err != nil {
			return nil, err
		}
		if v.videoRecon, err = cfg.player(RoleVideoReconstructor, models.NewVideoReconstructor[Backend](mc, backend, rng), backend); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *Video) Name() string { return "mocogan" }

func (v *Video) Players() []*Player {
	return append([]*Player{v.generator, v.imageD, v.videoD}, v.reconstructors()...)
}

func (v *Video) Discriminators() []*Player { return []*Player{v.imageD, v.videoD} }

func (v *Video) Generators() []*Player {
	return append([]*Player{v.generator}, v.reconstructors()...)
}

func (v *Video) reconstructors() []*Player {
	if v.imageRecon == nil {
		return nil
	}
	return []*Player{v.imageRecon, v.videoRecon}
}

// videoLatent is the generator input of a batch apart from the images.
type videoLatent struct {
	content  []float32 // n × Content
	category []float32 // n × Category, one-hot
	labels   []int64
	motion   []float32 // n·T × Motion
}

func (v *Video) drawLatent(rng *rand.Rand, n int) videoLatent {
	l := v.cfg.Latent
	z := videoLatent{
		content:  make([]float32, n*l.Content),
		category: make([]float32, n*l.Category),
		labels:   make([]int64, n),
		motion:   make([]float32, n*v.cfg.Frames*l.Motion),
	}
	for i := range z.content {
		z.content[i] = float32(rng.NormFloat64())
	}
	if l.Category > 0 {
		for i := range z.labels {
			z.labels[i] = int64(rng.Intn(l.Category))
			z.category[i*l.Category+int(z.labels[i])] = 1
		}
	}
	// Stationary AR(1) walk per clip and motion channel.
	innovation := math.Sqrt(1 - motionDecay*motionDecay)
	for i := 0; i < n; i++ {
		for t := 0; t < v.cfg.Frames; t++ {
			row := z.motion[(i*v.cfg.Frames+t)*l.Motion : (i*v.cfg.Frames+t+1)*l.Motion]
			for m := range row {
				eps := rng.NormFloat64()
				if t == 0 {
					row[m] = float32(eps)
					continue
				}
				prev := z.motion[(i*v.cfg.Frames+t-1)*l.Motion+m]
				row[m] = float32(motionDecay*float64(prev) + innovation*eps)
			}
		}
	}
	return z
}

// rows lays out one generator input row per frame: [n·T, Dim + latent].
func (v *Video) rows(images []float32, n int, z videoLatent) *Tensor {
	l, dim, frames := v.cfg.Latent, v.cfg.Layout.Dim, v.cfg.Frames
	width := dim + l.Width()
	out := make([]float32, 0, n*frames*width)
	for i := 0; i < n; i++ {
		for t := 0; t < frames; t++ {
			out = append(out, images[i*dim:(i+1)*dim]...)
			out = append(out, z.content[i*l.Content:(i+1)*l.Content]...)
			out = append(out, z.category[i*l.Category:(i+1)*l.Category]...)
			k := i*frames + t
			out = append(out, z.motion[k*l.Motion:(k+1)*l.Motion]...)
		}
	}
	return hostTensor(out, tensor.Shape{n * frames, width}, v.backend)
}

// generate returns clips [n, T·Dim] for the given inputs.
func (v *Video) generate(images []float32, n int, z videoLatent) *Tensor {
	frames := v.generator.Forward(v.rows(images, n, z))
	return frames.Reshape(n, v.cfg.Frames*v.cfg.Layout.Dim)
}

type videoFakes struct {
	clips  *Tensor // [n, T·Dim]
	images *Tensor // [n, Dim], one frame of each clip
	labels []int64
}

// fakes generates the clips of the step and picks one frame as the image
// sample. The result is kept for Phase G.
func (v *Video) fakes(s *Step) videoFakes {
	return s.Keep("fakes", func() any {
		n := s.Batch.Size()
		z := v.drawLatent(s.RNG, n)
		clips := v.generate(s.Batch.Real.Observations, n, z)
		frame := s.RNG.Intn(v.cfg.Frames)
		return videoFakes{
			clips:  clips,
			images: clips.Narrow(1, frame*v.cfg.Layout.Dim, v.cfg.Layout.Dim),
			labels: z.labels,
		}
	}).(videoFakes)
}

func (v *Video) check(b Batch) error {
	if !b.Paired {
		return errors.New("video: needs paired image and clip streams")
	}
	if b.Real.Layout.SampleDim() != v.cfg.Layout.Dim {
		return fmt.Errorf("video: image width %d, want %d", b.Real.Layout.SampleDim(), v.cfg.Layout.Dim)
	}
	if b.Pair.Layout.Frames != v.cfg.Frames || b.Pair.Layout.Dim != v.cfg.Layout.Dim {
		return fmt.Errorf("video: clips are %d×%d, want %d×%d", b.Pair.Layout.Frames, b.Pair.Layout.Dim, v.cfg.Frames, v.cfg.Layout.Dim)
	}
	return nil
}

func (v *Video) DiscriminatorLoss(s *Step) (*Terms, error) {
	if err := v.check(s.Batch); err != nil {
		return nil, err
	}
	sigma, crit := v.cfg.NoiseSigma, v.cfg.Criterion
	terms := NewTerms()

	realClips := s.InstanceNoise(s.Observations(s.Batch.Pair), sigma)
	adv, _ := v.videoDisc.Discriminate(realClips)
	terms.Add("video_real", Adversarial(crit, adv, RealTarget))

	realImages := s.InstanceNoise(s.Observations(s.Batch.Real), sigma)
	adv, _ = v.imageDisc.Discriminate(realImages)
	terms.Add("image_real", Adversarial(crit, adv, RealTarget))

	fake := v.fakes(s)
	adv, cls := v.videoDisc.Discriminate(s.InstanceNoise(fake.clips.Detach(), sigma))
	terms.Add("video_fake", Adversarial(crit, adv, FakeTarget))
	if cls != nil {
		terms.Add("video_fake_cls", Classification(cls, fake.labels))
	}
	adv, _ = v.imageDisc.Discriminate(s.InstanceNoise(fake.images.Detach(), sigma))
	terms.Add("image_fake", Adversarial(crit, adv, FakeTarget))
	return terms, nil
}

func (v *Video) GeneratorLoss(s *Step) (*Terms, error) {
	if err := v.check(s.Batch); err != nil {
		return nil, err
	}
	sigma, crit := v.cfg.NoiseSigma, v.cfg.Criterion
	fake := v.fakes(s)
	terms := NewTerms()

	adv, cls := v.videoDisc.Discriminate(s.InstanceNoise(fake.clips, sigma))
	terms.Add("video_adv", Adversarial(crit, adv, RealTarget))
	if cls != nil {
		terms.Add("video_cls", Classification(cls, fake.labels))
	}
	adv, _ = v.imageDisc.Discriminate(s.InstanceNoise(fake.images, sigma))
	terms.Add("image_adv", Adversarial(crit, adv, RealTarget))

	source := s.Observations(s.Batch.Real)
	if v.weights != nil {
		terms.Add("frames", FrameReconstruction(fake.clips, source, v.weights))
	}
	if v.imageRecon != nil {
		terms.AddWeighted("image_recon", v.cfg.ReconWeight, Reconstruction(v.imageRecon.Forward(fake.images), source))
		terms.AddWeighted("video_recon", v.cfg.ReconWeight, Reconstruction(v.videoRecon.Forward(fake.clips), source))
	}
	return terms, nil
}

// FixedLatent keeps the source images of the first batch together with
// one latent draw. Empty latent parts are left out.
func (v *Video) FixedLatent(rng *rand.Rand, first Batch) map[string]*tensor.RawTensor {
	n := first.Size()
	z := v.drawLatent(rng, n)
	l := v.cfg.Latent
	out := map[string]*tensor.RawTensor{
		"images": hostTensor(first.Real.Observations, tensor.Shape{n, v.cfg.Layout.Dim}, v.backend).Raw(),
	}
	for name, part := range map[string]struct {
		values []float32
		rows   int
		width  int
	}{
		"content":  {z.content, n, l.Content},
		"category": {z.category, n, l.Category},
		"motion":   {z.motion, n * v.cfg.Frames, l.Motion},
	} {
		if part.width > 0 {
			out[name] = hostTensor(part.values, tensor.Shape{part.rows, part.width}, v.backend).Raw()
		}
	}
	return out
}

// Sample renders clips from the fixed latent.
func (v *Video) Sample(latent map[string]*tensor.RawTensor) (data.Batch, error) {
	images, err := fixed(latent, "images", v.backend)
	if err != nil {
		return data.Batch{}, err
	}
	n := images.Shape()[0]
	var z videoLatent
	for _, part := range []struct {
		name  string
		dst   *[]float32
		width int
	}{
		{"content", &z.content, v.cfg.Latent.Content},
		{"category", &z.category, v.cfg.Latent.Category},
		{"motion", &z.motion, v.cfg.Latent.Motion},
	} {
		if part.width == 0 {
			continue
		}
		t, err := fixed(latent, part.name, v.backend)
		if err != nil {
			return data.Batch{}, err
		}
		*part.dst = t.Data()
	}

	layout := v.cfg.Layout
	layout.Frames = v.cfg.Frames
	var out data.Batch
	v.backend.NoGrad(func() {
		out = sampleBatch(v.generate(images.Data(), n, z), layout)
	})
	return out, nil
}
