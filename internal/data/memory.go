package data

import (
	"context"
	"math/rand"
)

// MemoryOptions configures a MemorySource.
type MemoryOptions struct {
	BatchSize int
	Shuffle   bool
	// DropLast discards a trailing batch smaller than BatchSize.
	DropLast bool
	Seed     int64
}

// MemorySource serves batches from samples held in memory.
type MemorySource struct {
	samples []Sample
	layout  Layout
	opts    MemoryOptions
	rng     *rand.Rand
	order   []int
	pos     int
}

// NewMemorySource creates a source over samples. The samples are not copied.
func NewMemorySource(samples []Sample, layout Layout, opts MemoryOptions) *MemorySource {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	s := &MemorySource{
		samples: samples,
		layout:  layout,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)), //nolint:gosec // reproducible shuffling
		order:   make([]int, len(samples)),
	}
	s.rewind()
	return s
}

func (s *MemorySource) rewind() {
	for i := range s.order {
		s.order[i] = i
	}
	if s.opts.Shuffle {
		s.rng.Shuffle(len(s.order), func(i, j int) { s.order[i], s.order[j] = s.order[j], s.order[i] })
	}
	s.pos = 0
}

// Next returns the next batch of the pass.
func (s *MemorySource) Next(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	remaining := len(s.order) - s.pos
	if remaining <= 0 || (s.opts.DropLast && remaining < s.opts.BatchSize) {
		return Batch{}, ErrExhausted
	}
	n := min(remaining, s.opts.BatchSize)
	picked := make([]Sample, n)
	for i := range picked {
		picked[i] = s.samples[s.order[s.pos+i]]
	}
	s.pos += n
	return NewBatch(s.layout, picked)
}

// Reset starts a new pass, reshuffling if configured.
func (s *MemorySource) Reset() error {
	s.rewind()
	return nil
}

func (s *MemorySource) BatchSize() int { return s.opts.BatchSize }
func (s *MemorySource) Layout() Layout { return s.layout }

func (s *MemorySource) Len() int {
	if s.opts.DropLast {
		return len(s.samples) / s.opts.BatchSize
	}
	return (len(s.samples) + s.opts.BatchSize - 1) / s.opts.BatchSize
}
