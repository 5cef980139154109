// Package config holds the configuration of a training run.
//
// Values come from three sources, later ones overriding earlier ones:
// Default, an optional YAML file named by -config, and command-line flags.
package config

import (
	"bytes"
	"flag"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Training variants.
const (
	VariantACGAN    = "acgan"
	VariantMoCoGAN  = "mocogan"
	VariantPix2Pix  = "pix2pix"
	VariantStackGAN = "stackgan"
)

// Variants lists every variant name in CLI order.
var Variants = []string{VariantACGAN, VariantMoCoGAN, VariantPix2Pix, VariantStackGAN}

// ErrInvalidConfig is wrapped by every Validate and Load failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full configuration surface of a run.
type Config struct {
	Variant string `yaml:"variant"`
	RunID   string `yaml:"run_id"`
	Seed    int64  `yaml:"seed"`

	// Data. An empty DataRoot trains on generated data.
	DataRoot       string `yaml:"dataroot"`
	Synthetic      int    `yaml:"synthetic_samples"`
	ImageSize      int    `yaml:"image_size"`
	Channels       int    `yaml:"channels"`
	BatchSize      int    `yaml:"batch_size"`
	VideoBatchSize int    `yaml:"video_batch_size"`
	VideoLength    int    `yaml:"video_length"`
	EveryNth       int    `yaml:"every_nth"`
	Prefetch       int    `yaml:"prefetch"`

	// Latent space.
	Noise       int `yaml:"nz"`
	Classes     int `yaml:"nl"`
	ContentDim  int `yaml:"dim_z_content"`
	CategoryDim int `yaml:"dim_z_category"`
	MotionDim   int `yaml:"dim_z_motion"`

	// Text conditioning.
	TextDim      int     `yaml:"text_dim"`
	ConditionDim int     `yaml:"condition_dim"`
	Tokenizer    string  `yaml:"tokenizer"`
	CoeffKL      float64 `yaml:"coeff_kl"`

	// Players.
	Hidden             int     `yaml:"hidden"`
	InitStd            float64 `yaml:"init_std"`
	ImageDiscriminator string  `yaml:"image_discriminator"`
	VideoDiscriminator string  `yaml:"video_discriminator"`
	Criterion          string  `yaml:"criterion"`
	UseNoise           bool    `yaml:"use_noise"`
	NoiseSigma         float64 `yaml:"noise_sigma"`

	// Optimization.
	Optimizer    string  `yaml:"optimizer"`
	LR           float64 `yaml:"lr"`
	LRD          float64 `yaml:"lr_d"`
	Beta1        float64 `yaml:"beta1"`
	Beta2        float64 `yaml:"beta2"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Momentum     float64 `yaml:"momentum"`
	LRDecayStep  int     `yaml:"lr_decay_step"`
	LRDecayGamma float64 `yaml:"lr_decay_gamma"`

	// Losses.
	LambdaL1         float64 `yaml:"lambda_l1"`
	FrameSchedule    string  `yaml:"frame_schedule"`
	FrameWeightScale float64 `yaml:"frame_weight_scale"`
	ReconWeight      float64 `yaml:"recon_weight"`

	// Loop.
	Epochs             int    `yaml:"epochs"`
	MaxSteps           int64  `yaml:"max_steps"`
	LogInterval        int    `yaml:"log_interval"`
	CheckpointInterval int    `yaml:"checkpoint_interval"`
	NonFinite          string `yaml:"non_finite"`

	// Output and resume.
	OutDir string `yaml:"outf"`
	Resume bool   `yaml:"resume"`
	NetG   string `yaml:"netG"`
	NetD   string `yaml:"netD"`

	// Compute.
	Device  string `yaml:"device"`
	Workers int    `yaml:"workers"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Variant:            VariantACGAN,
		Seed:               1,
		Synthetic:          256,
		ImageSize:          16,
		Channels:           3,
		BatchSize:          64,
		VideoLength:        8,
		EveryNth:           2,
		Prefetch:           2,
		Noise:              100,
		ContentDim:         50,
		CategoryDim:        6,
		MotionDim:          10,
		TextDim:            128,
		ConditionDim:       64,
		Tokenizer:          "words",
		CoeffKL:            2,
		Hidden:             256,
		InitStd:            0.02,
		ImageDiscriminator: "patch-image",
		VideoDiscriminator: "categorical-video",
		Criterion:          "bce",
		NoiseSigma:         0.1,
		Optimizer:          "adam",
		LR:                 0.0002,
		Beta1:              0.5,
		Beta2:              0.999,
		LRDecayGamma:       0.5,
		LambdaL1:           100,
		FrameSchedule:      "linear",
		FrameWeightScale:   1,
		Epochs:             25,
		LogInterval:        100,
		CheckpointInterval: 1000,
		NonFinite:          "skip",
		OutDir:             "out",
		Device:             "cpu",
	}
}

// LoadYAML overlays the keys present in the file at path. Unknown keys are
// rejected.
func (c *Config) LoadYAML(path string) error {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%s: %v", path, err)
	}
	return nil
}

// RegisterFlags binds every option to fs, using the current values as
// defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Variant, "variant", c.Variant, "training variant: "+strings.Join(Variants, " | "))
	fs.StringVar(&c.RunID, "run-id", c.RunID, "run identifier stored in checkpoints (default: random)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed")

	fs.StringVar(&c.DataRoot, "dataroot", c.DataRoot, "path to dataset (empty: generated data)")
	fs.IntVar(&c.Synthetic, "synthetic", c.Synthetic, "number of generated samples when no dataroot is set")
	fs.IntVar(&c.ImageSize, "image-size", c.ImageSize, "height / width of the images")
	fs.IntVar(&c.Channels, "channels", c.Channels, "image channels: 1 or 3")
	fs.IntVar(&c.BatchSize, "batch", c.BatchSize, "input batch size")
	fs.IntVar(&c.VideoBatchSize, "video-batch", c.VideoBatchSize, "video batch size (default: -batch)")
	fs.IntVar(&c.VideoLength, "video-length", c.VideoLength, "frames per video clip")
	fs.IntVar(&c.EveryNth, "every-nth", c.EveryNth, "use every nth frame of long videos")
	fs.IntVar(&c.Prefetch, "prefetch", c.Prefetch, "batches loaded ahead of training (0: synchronous)")

	fs.IntVar(&c.Noise, "nz", c.Noise, "size of the latent noise vector")
	fs.IntVar(&c.Classes, "nl", c.Classes, "number of classes (default: from dataset)")
	fs.IntVar(&c.ContentDim, "dim-z-content", c.ContentDim, "video content latent size")
	fs.IntVar(&c.CategoryDim, "dim-z-category", c.CategoryDim, "video category latent size")
	fs.IntVar(&c.MotionDim, "dim-z-motion", c.MotionDim, "video motion latent size")

	fs.IntVar(&c.TextDim, "text-dim", c.TextDim, "caption embedding width")
	fs.IntVar(&c.ConditionDim, "condition-dim", c.ConditionDim, "augmented text condition width")
	fs.StringVar(&c.Tokenizer, "tokenizer", c.Tokenizer, "caption tokenizer: words or a tiktoken encoding")
	fs.Float64Var(&c.CoeffKL, "coeff-kl", c.CoeffKL, "coefficient for the KL divergence")

	fs.IntVar(&c.Hidden, "hidden", c.Hidden, "hidden layer width")
	fs.Float64Var(&c.InitStd, "init-std", c.InitStd, "weight init standard deviation")
	fs.StringVar(&c.ImageDiscriminator, "image-discriminator", c.ImageDiscriminator, "image discriminator kind")
	fs.StringVar(&c.VideoDiscriminator, "video-discriminator", c.VideoDiscriminator, "video discriminator kind")
	fs.StringVar(&c.Criterion, "criterion", c.Criterion, "adversarial criterion: bce or bce-logits")
	fs.BoolVar(&c.UseNoise, "use-noise", c.UseNoise, "add instance noise to discriminator inputs")
	fs.Float64Var(&c.NoiseSigma, "noise-sigma", c.NoiseSigma, "instance noise standard deviation")

	fs.StringVar(&c.Optimizer, "optimizer", c.Optimizer, "optimizer: adam or sgd")
	fs.Float64Var(&c.LR, "lr", c.LR, "learning rate")
	fs.Float64Var(&c.LRD, "lr-d", c.LRD, "discriminator learning rate (default: -lr)")
	fs.Float64Var(&c.Beta1, "beta1", c.Beta1, "beta1 for adam")
	fs.Float64Var(&c.Beta2, "beta2", c.Beta2, "beta2 for adam")
	fs.Float64Var(&c.WeightDecay, "weight-decay", c.WeightDecay, "weight decay")
	fs.Float64Var(&c.Momentum, "momentum", c.Momentum, "momentum for sgd")
	fs.IntVar(&c.LRDecayStep, "lr-decay-step", c.LRDecayStep, "decay learning rates every n epochs (0: never)")
	fs.Float64Var(&c.LRDecayGamma, "lr-decay-gamma", c.LRDecayGamma, "learning rate decay factor")

	fs.Float64Var(&c.LambdaL1, "lambda-l1", c.LambdaL1, "weight of the pix2pix L1 term")
	fs.StringVar(&c.FrameSchedule, "frame-schedule", c.FrameSchedule, "frame weight schedule: linear, constant or none")
	fs.Float64Var(&c.FrameWeightScale, "frame-weight-scale", c.FrameWeightScale, "frame weight scale k")
	fs.Float64Var(&c.ReconWeight, "recon-weight", c.ReconWeight, "weight of the reconstructor terms (0: no reconstructors)")

	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "number of epochs to train for")
	fs.Int64Var(&c.MaxSteps, "max-steps", c.MaxSteps, "stop after this many steps (0: no limit)")
	fs.IntVar(&c.LogInterval, "log-interval", c.LogInterval, "render samples every n steps (0: never)")
	fs.IntVar(&c.CheckpointInterval, "checkpoint-interval", c.CheckpointInterval, "save checkpoints every n steps (0: at the end only)")
	fs.StringVar(&c.NonFinite, "non-finite", c.NonFinite, "non-finite loss policy: skip or abort")

	fs.StringVar(&c.OutDir, "outf", c.OutDir, "folder to output images and model checkpoints")
	fs.BoolVar(&c.Resume, "resume", c.Resume, "continue from the newest checkpoint in -outf")
	fs.StringVar(&c.NetG, "netG", c.NetG, "path to generator weights (to continue training)")
	fs.StringVar(&c.NetD, "netD", c.NetD, "path to discriminator weights (to continue training)")

	fs.StringVar(&c.Device, "device", c.Device, "compute device: cpu or webgpu")
	fs.IntVar(&c.Workers, "workers", c.Workers, "CPU worker goroutines (0: one per core)")
}

// Load builds the configuration from args: defaults, then the YAML file
// named by -config if any, then the remaining flags. The result is
// validated and carries a run id.
func Load(name string, args []string) (*Config, error) {
	cfg := Default()
	path, err := configPath(args)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.LoadYAML(path); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "YAML configuration file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "unexpected arguments %q", fs.Args())
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath finds the value of -config ahead of flag parsing.
func configPath(args []string) (string, error) {
	for i, a := range args {
		if a == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value, nil
		}
		if i+1 >= len(args) {
			return "", errors.Wrap(ErrInvalidConfig, "-config needs a file")
		}
		return args[i+1], nil
	}
	return "", nil
}
