// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gan

import (
	"io"

	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/visual"
)

// Trainer runs a variant over a feed for a number of epochs.
type Trainer = gan.Trainer

// TrainerConfig configures the training loop.
type TrainerConfig = gan.TrainerConfig

// TrainingState is the loop position and counters of a run.
type TrainingState = gan.TrainingState

// NewTrainer prepares a run.
//
// Example:
//
//	trainer := gan.NewTrainer(backend, variant, feed, gan.TrainerConfig{
//	    Epochs:             25,
//	    LogInterval:        100,
//	    CheckpointInterval: 1000,
//	    CheckpointDir:      "out",
//	    Resume:             true,
//	})
//	trainer.Reporter = gan.NewReporter(os.Stdout, 25, feed.Len())
//	trainer.Renderer = gan.NewSink("out", gan.SinkOptions{})
func NewTrainer(backend Backend, v Variant, feed Feed, cfg TrainerConfig) *Trainer {
	return gan.NewTrainer(backend, v, feed, cfg)
}

// NonFinitePolicy decides what happens when a loss is NaN or infinite.
type NonFinitePolicy = gan.NonFinitePolicy

// Non-finite loss policies.
const (
	NonFiniteSkip  = gan.NonFiniteSkip
	NonFiniteAbort = gan.NonFiniteAbort
)

// Training errors.
var (
	ErrBatchMismatch = gan.ErrBatchMismatch
	ErrNonFiniteLoss = gan.ErrNonFiniteLoss
)

// Reporter prints progress lines and warnings.
type Reporter = gan.Reporter

// NewReporter writes to out; epochs and steps size the progress prefix.
func NewReporter(out io.Writer, epochs, steps int) *Reporter {
	return gan.NewReporter(out, epochs, steps)
}

// Renderer receives the visual output of a run.
type Renderer = gan.Renderer

// Sink renders sample grids and clip animations into a directory.
type Sink = visual.Sink

// SinkOptions configures a Sink.
type SinkOptions = visual.Options

// NewSink renders into dir.
func NewSink(dir string, opts SinkOptions) *Sink {
	return visual.NewSink(dir, opts)
}
