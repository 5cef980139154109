// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gan

import (
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/gan"
)

// Feed yields the batches of a run and restarts its sources each epoch.
type Feed = gan.Feed

// Batch is one step's input: the primary stream and, for paired feeds, the
// second stream.
type Batch = gan.Batch

// SingleFeed feeds from one source.
func SingleFeed(src Source) Feed {
	return gan.SingleFeed(src)
}

// PairedFeed feeds from two synchronized sources. Steps whose batches
// differ in size are skipped.
func PairedFeed(p *Paired) Feed {
	return gan.PairedFeed(p)
}

type (
	// Source yields batches until exhausted.
	Source = data.Source
	// Sample is one observation with its optional label, condition and
	// caption.
	Sample = data.Sample
	// Layout describes the shape of one sample.
	Layout = data.Layout
	// Dataset is an in-memory collection of samples.
	Dataset = data.Dataset
	// MemoryOptions configures a MemorySource.
	MemoryOptions = data.MemoryOptions
	// MemorySource serves batches from a slice of samples.
	MemorySource = data.MemorySource
	// Paired couples two sources step by step.
	Paired = data.Paired
	// Prefetcher loads batches on a background goroutine.
	Prefetcher = data.Prefetcher
)

// Source errors.
var (
	ErrExhausted = data.ErrExhausted
	ErrMismatch  = data.ErrMismatch
)

// ImageLayout is the layout of frames × channels × size × size samples.
func ImageLayout(frames, channels, size int) Layout {
	return data.ImageLayout(frames, channels, size)
}

// NewMemorySource serves samples in batches.
func NewMemorySource(samples []Sample, layout Layout, opts MemoryOptions) *MemorySource {
	return data.NewMemorySource(samples, layout, opts)
}

// NewPaired couples a and b.
func NewPaired(a, b Source) *Paired {
	return data.NewPaired(a, b)
}

// NewPrefetcher reads ahead up to depth batches from src.
func NewPrefetcher(src Source, depth int) *Prefetcher {
	return data.NewPrefetcher(src, depth)
}

// Synthetic datasets

// Blobs generates Gaussian blobs whose position depends on the class.
func Blobs(n, classes, channels, size int, rng *rand.Rand) *Dataset {
	return data.Blobs(n, classes, channels, size, rng)
}

// MovingDots generates clips of a travelling blob and every frame as a still.
func MovingDots(n, frames, channels, size int, rng *rand.Rand) (videos, stills *Dataset) {
	return data.MovingDots(n, frames, channels, size, rng)
}

// MaskPairs generates mask/image pairs for translation.
func MaskPairs(n, channels, size int, rng *rand.Rand) *Dataset {
	return data.MaskPairs(n, channels, size, rng)
}

// CaptionedShapes generates coloured shapes with captions.
func CaptionedShapes(n, size int, rng *rand.Rand) *Dataset {
	return data.CaptionedShapes(n, size, rng)
}
