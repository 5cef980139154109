// Package experiment assembles a training run from a configuration: the
// compute device, the datasets and their feed, the variant's players, the
// visual sink and the trainer driving them.
package experiment

import (
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/born-ml/gantrain/internal/checkpoint"
	"github.com/born-ml/gantrain/internal/config"
	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/device"
	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/visual"
	"github.com/pkg/errors"
)

// Experiment is a ready-to-run training job.
type Experiment struct {
	Config   *config.Config
	Variant  gan.Variant
	Trainer  *gan.Trainer
	Sink     *visual.Sink
	Reporter *gan.Reporter

	device  *device.Selection
	closers []func()
}

// New builds the run described by cfg, writing progress to out. Every
// error is a configuration or dataset problem and nothing has been trained
// when it is returned.
func New(cfg *config.Config, out io.Writer) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{Config: cfg, Reporter: gan.NewReporter(out, cfg.Epochs, 0)}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	sel, err := device.Select(cfg.Device, cfg.Workers, e.Reporter.Warnf)
	if err != nil {
		return nil, err
	}
	e.device = sel
	e.Reporter.Infof("device %s, cpu %s", sel.Backend.Name(), device.Describe())

	backend := gan.NewBackend(sel.Backend)
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: reproducible initialization

	var feed gan.Feed
	switch cfg.Variant {
	case config.VariantACGAN:
		e.Variant, feed, err = e.conditional(backend, rng)
	case config.VariantMoCoGAN:
		e.Variant, feed, err = e.video(backend, rng)
	case config.VariantPix2Pix:
		e.Variant, feed, err = e.translation(backend, rng)
	case config.VariantStackGAN:
		e.Variant, feed, err = e.textToImage(backend, rng)
	default:
		err = errors.Wrapf(config.ErrInvalidConfig, "unknown variant %q", cfg.Variant)
	}
	if err != nil {
		return nil, err
	}

	nonFinite, err := gan.ParseNonFinitePolicy(cfg.NonFinite)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create output dir")
	}

	e.Trainer = gan.NewTrainer(backend, e.Variant, feed, gan.TrainerConfig{
		RunID:              cfg.RunID,
		Seed:               cfg.Seed,
		Epochs:             cfg.Epochs,
		MaxSteps:           cfg.MaxSteps,
		LogInterval:        cfg.LogInterval,
		CheckpointInterval: cfg.CheckpointInterval,
		CheckpointDir:      cfg.OutDir,
		Resume:             cfg.Resume,
		Weights:            e.weights(),
		LRDecayEvery:       cfg.LRDecayStep,
		LRDecayGamma:       float32(cfg.LRDecayGamma),
		NonFinite:          nonFinite,
	})
	e.Sink = visual.NewSink(cfg.OutDir, visual.Options{})
	e.Trainer.Reporter = e.Reporter
	e.Trainer.Renderer = e.Sink
	e.Trainer.OnCheckpoint = e.reportMemory

	e.Reporter.Infof("run %s: %s with %d players, %d steps per epoch", cfg.RunID, e.Variant.Name(), len(e.Variant.Players()), feed.Len())
	ok = true
	return e, nil
}

// Run trains until the configured epochs or step budget are used up, or
// ctx is done.
func (e *Experiment) Run(ctx context.Context) (*gan.TrainingState, error) {
	return e.Trainer.Run(ctx)
}

// Close stops the prefetchers and releases the device.
func (e *Experiment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
	if e.device != nil {
		e.device.Release()
	}
}

func (e *Experiment) weights() map[gan.Role]string {
	w := make(map[gan.Role]string)
	if e.Config.NetG != "" {
		w[gan.RoleGenerator] = e.Config.NetG
	}
	if e.Config.NetD != "" {
		w[gan.RoleDiscriminator] = e.Config.NetD
	}
	return w
}

func (e *Experiment) reportMemory(idx checkpoint.Index) {
	rss, err := device.RSS()
	if err != nil {
		return
	}
	e.Reporter.Infof("%s: resident memory %s", idx, device.FormatBytes(rss))
}

// options maps the shared player settings.
func (e *Experiment) options() (gan.Options, error) {
	cfg := e.Config
	criterion, err := gan.ParseCriterion(cfg.Criterion)
	if err != nil {
		return gan.Options{}, err
	}
	opts := gan.Options{
		Criterion: criterion,
		Optimizer: gan.OptimizerConfig{
			Name:            cfg.Optimizer,
			LR:              float32(cfg.LR),
			Beta1:           float32(cfg.Beta1),
			Beta2:           float32(cfg.Beta2),
			WeightDecay:     float32(cfg.WeightDecay),
			Momentum:        float32(cfg.Momentum),
			DiscriminatorLR: float32(cfg.LRD),
		},
		Hidden:  cfg.Hidden,
		InitStd: cfg.InitStd,
	}
	if cfg.UseNoise {
		opts.NoiseSigma = cfg.NoiseSigma
	}
	return opts, nil
}

// source serves a dataset in shuffled batches, prefetched when configured.
func (e *Experiment) source(ds *data.Dataset, batch int, seed int64) data.Source {
	var src data.Source = data.NewMemorySource(ds.Samples, ds.Layout, data.MemoryOptions{
		BatchSize: batch,
		Shuffle:   true,
		DropLast:  len(ds.Samples) >= batch,
		Seed:      seed,
	})
	if e.Config.Prefetch > 0 {
		p := data.NewPrefetcher(src, e.Config.Prefetch)
		e.closers = append(e.closers, p.Close)
		src = p
	}
	return src
}

func (e *Experiment) imageOptions() data.ImageOptions {
	return data.ImageOptions{
		Size:     e.Config.ImageSize,
		Channels: e.Config.Channels,
		Frames:   e.Config.VideoLength,
		EveryNth: e.Config.EveryNth,
		Seed:     e.Config.Seed,
	}
}

func (e *Experiment) describe(name string, ds *data.Dataset) {
	origin := "generated"
	if e.Config.DataRoot != "" {
		origin = filepath.Clean(e.Config.DataRoot)
	}
	e.Reporter.Infof("%s: %d samples (%s)", name, len(ds.Samples), origin)
}
