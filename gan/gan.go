// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gan provides adversarial training over the gantrain backends.
//
// A Variant owns the players of one experiment (generators,
// discriminators and optional reconstructors) and composes the loss terms
// of each phase. The Trainer alternates Phase D and Phase G on every
// batch, checkpoints the players and renders samples from a fixed latent.
//
// Example:
//
//	import (
//	    "context"
//	    "log"
//	    "math/rand"
//
//	    "github.com/born-ml/gantrain/backend/cpu"
//	    "github.com/born-ml/gantrain/gan"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewSource(1))
//	    backend := gan.NewBackend(cpu.New())
//
//	    ds := gan.Blobs(512, 4, 1, 16, rng)
//	    feed := gan.SingleFeed(gan.NewMemorySource(ds.Samples, ds.Layout, gan.MemoryOptions{
//	        BatchSize: 64,
//	        Shuffle:   true,
//	    }))
//
//	    variant, err := gan.NewConditional(backend, gan.ConditionalConfig{
//	        Options: gan.Options{Hidden: 256, InitStd: 0.02},
//	        Layout:  ds.Layout,
//	        Noise:   100,
//	        Classes: 4,
//	    }, rng)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    trainer := gan.NewTrainer(backend, variant, feed, gan.TrainerConfig{
//	        Epochs:        25,
//	        CheckpointDir: "out",
//	    })
//	    state, err := trainer.Run(context.Background())
//	}
package gan

import (
	"math/rand"

	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/tensor"
)

// Backend is the differentiable backend every player runs on.
type Backend = gan.Backend

// NewBackend wraps a compute backend for training.
func NewBackend(inner tensor.Backend) Backend {
	return gan.NewBackend(inner)
}

// Role names a player and prefixes its checkpoint files.
type Role = gan.Role

// Player roles.
const (
	RoleGenerator          = gan.RoleGenerator
	RoleDiscriminator      = gan.RoleDiscriminator
	RoleImageDiscriminator = gan.RoleImageDiscriminator
	RoleVideoDiscriminator = gan.RoleVideoDiscriminator
	RoleImageReconstructor = gan.RoleImageReconstructor
	RoleVideoReconstructor = gan.RoleVideoReconstructor
)

// Player is one network with its optimizer.
type Player = gan.Player

// Variant is one adversarial experiment.
type Variant = gan.Variant

// Options are the settings every variant shares.
type Options = gan.Options

// OptimizerConfig configures the optimizer of every player.
type OptimizerConfig = gan.OptimizerConfig

// Criterion selects the adversarial loss.
type Criterion = gan.Criterion

// Adversarial criteria.
const (
	CriterionBCE           = gan.CriterionBCE
	CriterionBCEWithLogits = gan.CriterionBCEWithLogits
)

// FrameSchedule shapes the per-frame reconstruction weights of clips.
type FrameSchedule = gan.FrameSchedule

// Frame schedules.
const (
	FrameLinear   = gan.FrameLinear
	FrameConstant = gan.FrameConstant
	FrameNone     = gan.FrameNone
)

// FrameWeights returns the weights of n frames under schedule s with
// scale k.
func FrameWeights(s FrameSchedule, k float64, n int) []float64 {
	return gan.FrameWeights(s, k, n)
}

// Variants

type (
	// ConditionalConfig configures the auxiliary-classifier GAN.
	ConditionalConfig = gan.ConditionalConfig
	// Conditional is an auxiliary-classifier GAN over images.
	Conditional = gan.Conditional

	// VideoConfig configures the motion/content video GAN.
	VideoConfig = gan.VideoConfig
	// Video is a GAN over paired image and clip streams.
	Video = gan.Video

	// TranslationConfig configures the paired image-to-image GAN.
	TranslationConfig = gan.TranslationConfig
	// Translation is a conditional image-to-image GAN.
	Translation = gan.Translation

	// TextConfig configures the text-conditioned GAN.
	TextConfig = gan.TextConfig
	// TextToImage is a GAN conditioned on caption embeddings.
	TextToImage = gan.TextToImage
)

// NewConditional builds the players of an auxiliary-classifier GAN.
func NewConditional(backend Backend, cfg ConditionalConfig, rng *rand.Rand) (*Conditional, error) {
	return gan.NewConditional(backend, cfg, rng)
}

// NewVideo builds the players of a video GAN.
func NewVideo(backend Backend, cfg VideoConfig, rng *rand.Rand) (*Video, error) {
	return gan.NewVideo(backend, cfg, rng)
}

// NewTranslation builds the players of an image-to-image GAN.
func NewTranslation(backend Backend, cfg TranslationConfig, rng *rand.Rand) (*Translation, error) {
	return gan.NewTranslation(backend, cfg, rng)
}

// NewTextToImage builds the players of a text-to-image GAN.
func NewTextToImage(backend Backend, cfg TextConfig, rng *rand.Rand) (*TextToImage, error) {
	return gan.NewTextToImage(backend, cfg, rng)
}
