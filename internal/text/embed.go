package text

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/gantrain/internal/data"
)

// ErrNoCaption is returned when a sample to embed has no caption.
var ErrNoCaption = errors.New("text: sample has no caption")

// Embedder maps captions to unit vectors of a fixed width. Every token id
// owns a Gaussian direction drawn from a generator seeded by (seed, id); a
// caption is the normalized sum of its tokens' directions. Equal captions
// always embed equally, and the vectors only depend on the seed.
type Embedder struct {
	tok   Tokenizer
	dim   int
	seed  int64
	table map[int32][]float32
}

// NewEmbedder returns an embedder producing dim-wide vectors.
func NewEmbedder(tok Tokenizer, dim int, seed int64) (*Embedder, error) {
	if tok == nil {
		return nil, errors.New("text: nil tokenizer")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("text: embedding width must be positive, got %d", dim)
	}
	return &Embedder{tok: tok, dim: dim, seed: seed, table: make(map[int32][]float32)}, nil
}

// Dim is the embedding width.
func (e *Embedder) Dim() int { return e.dim }

// Embed returns the vector for caption. A caption without tokens embeds
// to the zero vector.
func (e *Embedder) Embed(caption string) ([]float32, error) {
	ids, err := e.tok.Encode(caption)
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %w", caption, err)
	}
	sum := make([]float64, e.dim)
	for _, id := range ids {
		for i, v := range e.direction(id) {
			sum[i] += float64(v)
		}
	}
	var norm float64
	for _, v := range sum {
		norm += v * v
	}
	out := make([]float32, e.dim)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range sum {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedSamples fills the Cond of every sample with its caption's embedding
// and returns the layout widened to carry it.
func (e *Embedder) EmbedSamples(samples []data.Sample, layout data.Layout) (data.Layout, error) {
	for i := range samples {
		if samples[i].Caption == "" {
			return layout, fmt.Errorf("sample %d: %w", i, ErrNoCaption)
		}
		v, err := e.Embed(samples[i].Caption)
		if err != nil {
			return layout, err
		}
		samples[i].Cond = v
	}
	layout.CondDim = e.dim
	return layout, nil
}

func (e *Embedder) direction(id int32) []float32 {
	if v, ok := e.table[id]; ok {
		return v
	}
	rng := rand.New(rand.NewSource(e.seed*1_000_003 + int64(id))) //nolint:gosec // G404: deterministic projection, not security.
	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	e.table[id] = v
	return v
}
