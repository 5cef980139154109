package data

import (
	"context"
	"errors"
	"fmt"
)

// Paired draws one batch from each of two independent streams per step.
//
// When either stream runs out, both are reset and the draw is retried once,
// so the streams start each pass together. When the realized sizes differ,
// Next returns both batches together with ErrMismatch; the caller skips the
// step and the streams have already moved on.
type Paired struct {
	A, B Source
}

// NewPaired pairs two sources.
func NewPaired(a, b Source) *Paired {
	return &Paired{A: a, B: b}
}

// Next returns the next batch of each stream.
func (p *Paired) Next(ctx context.Context) (Batch, Batch, error) {
	a, b, err := p.draw(ctx)
	if errors.Is(err, ErrExhausted) {
		if err := p.Reset(); err != nil {
			return Batch{}, Batch{}, err
		}
		a, b, err = p.draw(ctx)
	}
	if err != nil {
		return Batch{}, Batch{}, err
	}
	if a.Size != b.Size {
		return a, b, fmt.Errorf("%w: %d vs %d", ErrMismatch, a.Size, b.Size)
	}
	return a, b, nil
}

// draw advances both streams even if the first is exhausted.
func (p *Paired) draw(ctx context.Context) (Batch, Batch, error) {
	a, errA := p.A.Next(ctx)
	b, errB := p.B.Next(ctx)
	if err := errors.Join(errA, errB); err != nil {
		if errors.Is(errA, ErrExhausted) || errors.Is(errB, ErrExhausted) {
			return Batch{}, Batch{}, ErrExhausted
		}
		return Batch{}, Batch{}, err
	}
	return a, b, nil
}

// Reset rewinds both streams.
func (p *Paired) Reset() error {
	return errors.Join(p.A.Reset(), p.B.Reset())
}

// Len is the pass length of stream B, which drives the epoch.
func (p *Paired) Len() int { return p.B.Len() }
