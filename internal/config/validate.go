package config

import (
	"os"
	"slices"
	"strings"

	"github.com/born-ml/gantrain/internal/device"
	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/pkg/errors"
)

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

// Validate checks ranges, names and paths. It returns the first problem
// found, wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	if !slices.Contains(Variants, c.Variant) {
		return invalid("unknown variant %q (want %s)", c.Variant, strings.Join(Variants, ", "))
	}
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateOptimizer(); err != nil {
		return err
	}
	return c.validateLoop()
}

func (c *Config) validateData() error {
	switch {
	case c.ImageSize <= 0:
		return invalid("image size must be positive, got %d", c.ImageSize)
	case c.Channels != 1 && c.Channels != 3:
		return invalid("channels must be 1 or 3, got %d", c.Channels)
	case c.BatchSize <= 0:
		return invalid("batch size must be positive, got %d", c.BatchSize)
	case c.VideoBatchSize < 0:
		return invalid("video batch size must not be negative, got %d", c.VideoBatchSize)
	case c.Prefetch < 0:
		return invalid("prefetch must not be negative, got %d", c.Prefetch)
	case c.Variant == VariantMoCoGAN && c.VideoLength < 2:
		return invalid("video length must be at least 2, got %d", c.VideoLength)
	case c.EveryNth < 1:
		return invalid("every-nth must be at least 1, got %d", c.EveryNth)
	case c.Variant == VariantStackGAN && c.Channels != 3:
		return invalid("%s needs 3 channels", VariantStackGAN)
	}
	if c.DataRoot == "" {
		if c.Synthetic <= 0 {
			return invalid("no dataroot and no synthetic samples")
		}
		return nil
	}
	info, err := os.Stat(c.DataRoot)
	if err != nil {
		return invalid("dataroot: %v", err)
	}
	if !info.IsDir() {
		return invalid("dataroot %s is not a directory", c.DataRoot)
	}
	return nil
}

func (c *Config) validateModel() error {
	switch {
	case c.Hidden <= 0:
		return invalid("hidden width must be positive, got %d", c.Hidden)
	case c.InitStd < 0:
		return invalid("init std must not be negative, got %g", c.InitStd)
	case c.Noise < 0 || c.Classes < 0:
		return invalid("latent sizes must not be negative")
	case c.Variant != VariantPix2Pix && c.Noise == 0:
		return invalid("%s needs a noise vector (nz > 0)", c.Variant)
	case c.UseNoise && c.NoiseSigma <= 0:
		return invalid("noise sigma must be positive with use-noise, got %g", c.NoiseSigma)
	}
	if _, err := gan.ParseCriterion(c.Criterion); err != nil {
		return invalid("%v", err)
	}

	switch c.Variant {
	case VariantMoCoGAN:
		if c.ContentDim <= 0 || c.MotionDim <= 0 || c.CategoryDim < 0 {
			return invalid("video latent sizes must be positive")
		}
		image, err := models.ParseDiscriminatorKind(c.ImageDiscriminator)
		if err != nil {
			return invalid("%v", err)
		}
		video, err := models.ParseDiscriminatorKind(c.VideoDiscriminator)
		if err != nil {
			return invalid("%v", err)
		}
		if image.Input() != models.Still {
			return invalid("%s cannot score still images", image)
		}
		if video.Input() != models.Clip {
			return invalid("%s cannot score clips", video)
		}
		if video.HasClassHead() && c.CategoryDim == 0 {
			return invalid("%s needs a category latent (dim-z-category > 0)", video)
		}
		if c.NetD != "" {
			return invalid("netD names a single discriminator; %s has two, use -resume", c.Variant)
		}
		if _, err := gan.ParseFrameSchedule(c.FrameSchedule); err != nil {
			return invalid("%v", err)
		}
		if c.FrameWeightScale < 0 || c.ReconWeight < 0 {
			return invalid("loss weights must not be negative")
		}
	case VariantPix2Pix:
		if c.LambdaL1 < 0 {
			return invalid("lambda L1 must not be negative, got %g", c.LambdaL1)
		}
	case VariantStackGAN:
		if c.TextDim <= 0 || c.ConditionDim <= 0 {
			return invalid("text and condition widths must be positive")
		}
		if c.CoeffKL < 0 {
			return invalid("KL coefficient must not be negative, got %g", c.CoeffKL)
		}
	}
	return nil
}

func (c *Config) validateOptimizer() error {
	switch {
	case c.Optimizer != "adam" && c.Optimizer != "sgd":
		return invalid("unknown optimizer %q (want adam or sgd)", c.Optimizer)
	case c.LR <= 0:
		return invalid("learning rate must be positive, got %g", c.LR)
	case c.LRD < 0:
		return invalid("discriminator learning rate must not be negative, got %g", c.LRD)
	case c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1:
		return invalid("adam betas must be in [0, 1), got %g and %g", c.Beta1, c.Beta2)
	case c.WeightDecay < 0 || c.Momentum < 0:
		return invalid("weight decay and momentum must not be negative")
	case c.LRDecayStep < 0:
		return invalid("lr decay step must not be negative, got %d", c.LRDecayStep)
	case c.LRDecayStep > 0 && (c.LRDecayGamma <= 0 || c.LRDecayGamma > 1):
		return invalid("lr decay gamma must be in (0, 1], got %g", c.LRDecayGamma)
	}
	return nil
}

func (c *Config) validateLoop() error {
	switch {
	case c.Epochs <= 0:
		return invalid("epochs must be positive, got %d", c.Epochs)
	case c.MaxSteps < 0:
		return invalid("max steps must not be negative, got %d", c.MaxSteps)
	case c.LogInterval < 0 || c.CheckpointInterval < 0:
		return invalid("intervals must not be negative")
	case c.OutDir == "":
		return invalid("no output directory")
	case c.Workers < 0:
		return invalid("workers must not be negative, got %d", c.Workers)
	}
	if _, err := gan.ParseNonFinitePolicy(c.NonFinite); err != nil {
		return invalid("%v", err)
	}
	if d := strings.ToLower(c.Device); d != device.CPU && d != device.WebGPU {
		return invalid("unknown device %q (want %s or %s)", c.Device, device.CPU, device.WebGPU)
	}
	for _, w := range []string{c.NetG, c.NetD} {
		if w == "" {
			continue
		}
		if _, err := os.Stat(w); err != nil {
			return invalid("weights: %v", err)
		}
	}
	return nil
}
