package experiment

import (
	"math/rand"

	"github.com/born-ml/gantrain/internal/config"
	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/born-ml/gantrain/internal/text"
	"github.com/pkg/errors"
)

// syntheticClasses is the class count of generated acgan data when nl is unset.
const syntheticClasses = 4

func (e *Experiment) conditional(backend gan.Backend, rng *rand.Rand) (gan.Variant, gan.Feed, error) {
	cfg := e.Config
	var ds *data.Dataset
	if cfg.DataRoot == "" {
		classes := cfg.Classes
		if classes == 0 {
			classes = syntheticClasses
		}
		ds = data.Blobs(cfg.Synthetic, classes, cfg.Channels, cfg.ImageSize, rng)
	} else {
		var err error
		if ds, err = data.LoadImageFolder(cfg.DataRoot, e.imageOptions()); err != nil {
			return nil, nil, errors.Wrap(err, "load images")
		}
	}
	e.describe("images", ds)

	classes := cfg.Classes
	if classes == 0 {
		classes = len(ds.Classes)
	}
	if classes < len(ds.Classes) {
		return nil, nil, errors.Wrapf(config.ErrInvalidConfig, "nl is %d but the dataset has %d classes", classes, len(ds.Classes))
	}
	opts, err := e.options()
	if err != nil {
		return nil, nil, err
	}
	v, err := gan.NewConditional(backend, gan.ConditionalConfig{
		Options: opts,
		Layout:  ds.Layout,
		Noise:   cfg.Noise,
		Classes: classes,
	}, rng)
	if err != nil {
		return nil, nil, err
	}
	return v, gan.SingleFeed(e.source(ds, cfg.BatchSize, cfg.Seed)), nil
}

func (e *Experiment) video(backend gan.Backend, rng *rand.Rand) (gan.Variant, gan.Feed, error) {
	cfg := e.Config
	var videos, stills *data.Dataset
	if cfg.DataRoot == "" {
		videos, stills = data.MovingDots(cfg.Synthetic, cfg.VideoLength, cfg.Channels, cfg.ImageSize, rng)
	} else {
		var err error
		if videos, stills, err = data.LoadVideoFolder(cfg.DataRoot, e.imageOptions()); err != nil {
			return nil, nil, errors.Wrap(err, "load videos")
		}
	}
	e.describe("videos", videos)
	e.describe("images", stills)

	imageKind, err := models.ParseDiscriminatorKind(cfg.ImageDiscriminator)
	if err != nil {
		return nil, nil, err
	}
	videoKind, err := models.ParseDiscriminatorKind(cfg.VideoDiscriminator)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := gan.ParseFrameSchedule(cfg.FrameSchedule)
	if err != nil {
		return nil, nil, err
	}
	opts, err := e.options()
	if err != nil {
		return nil, nil, err
	}
	v, err := gan.NewVideo(backend, gan.VideoConfig{
		Options: opts,
		Layout:  stills.Layout,
		Frames:  cfg.VideoLength,
		Latent: models.VideoLatent{
			Content:  cfg.ContentDim,
			Category: cfg.CategoryDim,
			Motion:   cfg.MotionDim,
		},
		ImageDiscriminator: imageKind,
		VideoDiscriminator: videoKind,
		FrameSchedule:      schedule,
		FrameWeightScale:   cfg.FrameWeightScale,
		ReconWeight:        cfg.ReconWeight,
	}, rng)
	if err != nil {
		return nil, nil, err
	}

	videoBatch := cfg.VideoBatchSize
	if videoBatch == 0 {
		videoBatch = cfg.BatchSize
	}
	images := e.source(stills, cfg.BatchSize, cfg.Seed)
	clips := e.source(videos, videoBatch, cfg.Seed+1)
	return v, gan.PairedFeed(data.NewPaired(images, clips)), nil
}

func (e *Experiment) translation(backend gan.Backend, rng *rand.Rand) (gan.Variant, gan.Feed, error) {
	cfg := e.Config
	var ds *data.Dataset
	if cfg.DataRoot == "" {
		ds = data.MaskPairs(cfg.Synthetic, cfg.Channels, cfg.ImageSize, rng)
	} else {
		var err error
		if ds, err = data.LoadPairedFolder(cfg.DataRoot, e.imageOptions()); err != nil {
			return nil, nil, errors.Wrap(err, "load pairs")
		}
	}
	e.describe("pairs", ds)

	opts, err := e.options()
	if err != nil {
		return nil, nil, err
	}
	v, err := gan.NewTranslation(backend, gan.TranslationConfig{
		Options:  opts,
		Layout:   ds.Layout,
		Noise:    cfg.Noise,
		LambdaL1: cfg.LambdaL1,
	}, rng)
	if err != nil {
		return nil, nil, err
	}
	return v, gan.SingleFeed(e.source(ds, cfg.BatchSize, cfg.Seed)), nil
}

func (e *Experiment) textToImage(backend gan.Backend, rng *rand.Rand) (gan.Variant, gan.Feed, error) {
	cfg := e.Config
	var ds *data.Dataset
	if cfg.DataRoot == "" {
		ds = data.CaptionedShapes(cfg.Synthetic, cfg.ImageSize, rng)
	} else {
		opts := e.imageOptions()
		opts.Captions = true
		var err error
		if ds, err = data.LoadImageFolder(cfg.DataRoot, opts); err != nil {
			return nil, nil, errors.Wrap(err, "load captioned images")
		}
	}
	e.describe("captioned images", ds)

	captions := make([]string, len(ds.Samples))
	for i, s := range ds.Samples {
		captions[i] = s.Caption
	}
	tok, err := text.New(cfg.Tokenizer, captions)
	if err != nil {
		return nil, nil, errors.Wrap(err, "tokenizer")
	}
	emb, err := text.NewEmbedder(tok, cfg.TextDim, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}
	layout, err := emb.EmbedSamples(ds.Samples, ds.Layout)
	if err != nil {
		return nil, nil, errors.Wrap(err, "embed captions")
	}
	ds.Layout = layout
	e.Reporter.Infof("captions embedded with %s into %d dims", tok.Name(), emb.Dim())

	opts, err := e.options()
	if err != nil {
		return nil, nil, err
	}
	v, err := gan.NewTextToImage(backend, gan.TextConfig{
		Options:      opts,
		Layout:       ds.Layout,
		Noise:        cfg.Noise,
		ConditionDim: cfg.ConditionDim,
		CoeffKL:      cfg.CoeffKL,
	}, rng)
	if err != nil {
		return nil, nil, err
	}
	return v, gan.SingleFeed(e.source(ds, cfg.BatchSize, cfg.Seed)), nil
}
