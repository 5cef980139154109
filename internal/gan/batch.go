package gan

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/gantrain/internal/data"
)

// Batch is the real data of one step. Paired variants draw from two streams:
// Real holds the primary stream (images for video transfer, source images
// for translation) and Pair the secondary one.
type Batch struct {
	Real   data.Batch
	Pair   data.Batch
	Paired bool
}

// Size is the realized batch size of the step.
func (b Batch) Size() int { return b.Real.Size }

// Aligned reports whether the streams of a paired batch agree on size.
func (b Batch) Aligned() bool {
	return !b.Paired || b.Real.Size == b.Pair.Size
}

// Feed supplies the trainer with step batches. Exhaustion is handled inside
// the feed: Next only fails on mismatched or broken streams.
type Feed interface {
	Next(ctx context.Context) (Batch, error)
	// Len is the number of steps in one epoch.
	Len() int
}

type singleFeed struct {
	src data.Source
}

// SingleFeed feeds from one source, rewinding it when a pass ends.
func SingleFeed(src data.Source) Feed {
	return &singleFeed{src: src}
}

func (f *singleFeed) Next(ctx context.Context) (Batch, error) {
	b, err := f.src.Next(ctx)
	if errors.Is(err, data.ErrExhausted) {
		if err := f.src.Reset(); err != nil {
			return Batch{}, fmt.Errorf("reset source: %w", err)
		}
		b, err = f.src.Next(ctx)
	}
	if err != nil {
		return Batch{}, err
	}
	return Batch{Real: b}, nil
}

func (f *singleFeed) Len() int { return f.src.Len() }

type pairedFeed struct {
	p *data.Paired
}

// PairedFeed feeds from two synchronized streams. Batches of different
// realized sizes come back with ErrBatchMismatch.
func PairedFeed(p *data.Paired) Feed {
	return &pairedFeed{p: p}
}

func (f *pairedFeed) Next(ctx context.Context) (Batch, error) {
	a, b, err := f.p.Next(ctx)
	if errors.Is(err, data.ErrMismatch) {
		return Batch{Real: a, Pair: b, Paired: true}, fmt.Errorf("%w: %w", ErrBatchMismatch, err)
	}
	if err != nil {
		return Batch{}, err
	}
	return Batch{Real: a, Pair: b, Paired: true}, nil
}

func (f *pairedFeed) Len() int { return f.p.Len() }
