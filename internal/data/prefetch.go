package data

import (
	"context"
	"sync"
)

type fetched struct {
	batch Batch
	err   error
}

// Prefetcher reads batches from a source on a background goroutine and
// keeps up to depth of them ready. It is itself a Source.
//
//	src := data.NewPrefetcher(folder, 4)
//	defer src.Close()
type Prefetcher struct {
	src   Source
	depth int

	mu     sync.Mutex
	ch     chan fetched
	cancel context.CancelFunc
	done   chan struct{}

	// failed is the error that stopped the goroutine; it is written before
	// ch is closed.
	failed error
}

// NewPrefetcher starts prefetching from src. The source must not be used
// directly afterwards.
func NewPrefetcher(src Source, depth int) *Prefetcher {
	if depth < 1 {
		depth = 1
	}
	p := &Prefetcher{src: src, depth: depth}
	p.start()
	return p
}

func (p *Prefetcher) start() {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan fetched, p.depth)
	done := make(chan struct{})
	p.ch, p.cancel, p.done, p.failed = ch, cancel, done, nil

	go func() {
		defer close(done)
		defer close(ch)
		for {
			b, err := p.src.Next(ctx)
			if err != nil {
				p.failed = err
			}
			select {
			case ch <- fetched{batch: b, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

func (p *Prefetcher) stop() {
	p.cancel()
	<-p.done
}

// Next returns the next prefetched batch, waiting for one if necessary.
func (p *Prefetcher) Next(ctx context.Context) (Batch, error) {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	case f, ok := <-ch:
		if !ok {
			return Batch{}, p.terminal()
		}
		return f.batch, f.err
	}
}

// terminal is returned once the stream has stopped. A source error other
// than exhaustion is returned again until Reset.
func (p *Prefetcher) terminal() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed != nil {
		return p.failed
	}
	return ErrExhausted
}

// Reset discards prefetched batches, rewinds the source and resumes.
func (p *Prefetcher) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
	if err := p.src.Reset(); err != nil {
		return err
	}
	p.start()
	return nil
}

// Close stops the background goroutine.
func (p *Prefetcher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
}

func (p *Prefetcher) BatchSize() int { return p.src.BatchSize() }
func (p *Prefetcher) Len() int       { return p.src.Len() }
