// Package data provides the batch sources the trainer pulls from.
//
// Batches carry host data: flattened float32 observations laid out
// sample-major, frame-major, then channel, row and column. The trainer turns
// them into backend tensors; sources never touch a backend.
//
//	src := data.NewMemorySource(ds.Samples, ds.Layout, data.MemoryOptions{BatchSize: 64, Shuffle: true, DropLast: true, Seed: 1})
//	for {
//	    b, err := src.Next(ctx)
//	    if errors.Is(err, data.ErrExhausted) {
//	        break
//	    }
//	    ...
//	}
package data

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrExhausted signals that a source has delivered every batch of the
	// current pass. Reset starts a new pass.
	ErrExhausted = errors.New("data: source exhausted")

	// ErrMismatch is returned by Paired when the two streams yield batches of
	// different realized sizes. Both streams have already advanced.
	ErrMismatch = errors.New("data: paired batch size mismatch")

	// ErrEmpty is returned by loaders that find no usable samples.
	ErrEmpty = errors.New("data: no samples")
)

// Layout describes the per-sample shape of a dataset.
type Layout struct {
	Frames   int // 1 for still images
	Channels int
	Size     int // square side in pixels; 0 for non-image features
	Dim      int // features per frame
	CondDim  int // conditioning features per sample, 0 if none
}

// ImageLayout returns the layout of frames×channels×size×size samples.
func ImageLayout(frames, channels, size int) Layout {
	return Layout{Frames: frames, Channels: channels, Size: size, Dim: channels * size * size}
}

// SampleDim is the number of observation features per sample.
func (l Layout) SampleDim() int {
	return l.Frames * l.Dim
}

// Sample is one dataset element.
type Sample struct {
	Observation []float32
	Label       int64
	Cond        []float32
	Caption     string
}

// Batch is an immutable group of samples.
type Batch struct {
	Layout Layout
	Size   int

	// Observations holds Size × Layout.SampleDim() values.
	Observations []float32
	Labels       []int64
	// Cond holds Size × Layout.CondDim values, nil when the dataset has none.
	Cond     []float32
	Captions []string
}

// Sample returns the observation of the i-th sample.
func (b Batch) Sample(i int) []float32 {
	d := b.Layout.SampleDim()
	return b.Observations[i*d : (i+1)*d]
}

// Frame returns frame f of sample i.
func (b Batch) Frame(i, f int) []float32 {
	s := b.Sample(i)
	return s[f*b.Layout.Dim : (f+1)*b.Layout.Dim]
}

// NewBatch assembles samples into a batch.
func NewBatch(layout Layout, samples []Sample) (Batch, error) {
	b := Batch{
		Layout:       layout,
		Size:         len(samples),
		Observations: make([]float32, 0, len(samples)*layout.SampleDim()),
		Labels:       make([]int64, 0, len(samples)),
	}
	if layout.CondDim > 0 {
		b.Cond = make([]float32, 0, len(samples)*layout.CondDim)
	}
	for i, s := range samples {
		if len(s.Observation) != layout.SampleDim() {
			return Batch{}, fmt.Errorf("sample %d: expected %d features, got %d", i, layout.SampleDim(), len(s.Observation))
		}
		if len(s.Cond) != layout.CondDim {
			return Batch{}, fmt.Errorf("sample %d: expected %d conditioning features, got %d", i, layout.CondDim, len(s.Cond))
		}
		b.Observations = append(b.Observations, s.Observation...)
		b.Labels = append(b.Labels, s.Label)
		b.Cond = append(b.Cond, s.Cond...)
		if s.Caption != "" {
			if b.Captions == nil {
				b.Captions = make([]string, len(samples))
			}
			b.Captions[i] = s.Caption
		}
	}
	return b, nil
}

// Source yields fixed-size batches.
//
// Next may block. It returns ErrExhausted once the pass is over and keeps
// returning it until Reset.
type Source interface {
	Next(ctx context.Context) (Batch, error)
	Reset() error
	// BatchSize is the nominal batch size.
	BatchSize() int
	// Len is the number of batches in one pass.
	Len() int
}
