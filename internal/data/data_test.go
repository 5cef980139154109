package data_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(n, dim int) []data.Sample {
	out := make([]data.Sample, n)
	for i := range out {
		obs := make([]float32, dim)
		for j := range obs {
			obs[j] = float32(i)
		}
		out[i] = data.Sample{Observation: obs, Label: int64(i)}
	}
	return out
}

func layout(dim int) data.Layout {
	return data.Layout{Frames: 1, Dim: dim}
}

func drain(t *testing.T, src data.Source) [][]int64 {
	t.Helper()
	var labels [][]int64
	for {
		b, err := src.Next(context.Background())
		if errors.Is(err, data.ErrExhausted) {
			return labels
		}
		require.NoError(t, err)
		labels = append(labels, b.Labels)
	}
}

func TestMemorySource_Sequential(t *testing.T) {
	src := data.NewMemorySource(samples(5, 2), layout(2), data.MemoryOptions{BatchSize: 2})
	assert.Equal(t, 3, src.Len())

	got := drain(t, src)
	assert.Equal(t, [][]int64{{0, 1}, {2, 3}, {4}}, got)

	// Exhaustion is sticky until Reset.
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, data.ErrExhausted)

	require.NoError(t, src.Reset())
	assert.Equal(t, got, drain(t, src))
}

func TestMemorySource_DropLast(t *testing.T) {
	src := data.NewMemorySource(samples(5, 2), layout(2), data.MemoryOptions{BatchSize: 2, DropLast: true})
	assert.Equal(t, 2, src.Len())
	assert.Equal(t, [][]int64{{0, 1}, {2, 3}}, drain(t, src))
}

func TestMemorySource_ShuffleIsSeeded(t *testing.T) {
	opts := data.MemoryOptions{BatchSize: 4, Shuffle: true, Seed: 3}
	a := drain(t, data.NewMemorySource(samples(12, 1), layout(1), opts))
	b := drain(t, data.NewMemorySource(samples(12, 1), layout(1), opts))
	assert.Equal(t, a, b)

	seen := map[int64]bool{}
	for _, batch := range a {
		for _, l := range batch {
			seen[l] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestMemorySource_ObservationsFollowLabels(t *testing.T) {
	src := data.NewMemorySource(samples(4, 3), layout(3), data.MemoryOptions{BatchSize: 4, Shuffle: true, Seed: 9})
	b, err := src.Next(context.Background())
	require.NoError(t, err)
	for i, l := range b.Labels {
		assert.Equal(t, []float32{float32(l), float32(l), float32(l)}, b.Sample(i))
	}
}

func TestMemorySource_HonorsContext(t *testing.T) {
	src := data.NewMemorySource(samples(4, 1), layout(1), data.MemoryOptions{BatchSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBatch_RejectsWrongWidth(t *testing.T) {
	_, err := data.NewBatch(layout(3), []data.Sample{{Observation: []float32{1, 2}}})
	assert.Error(t, err)

	l := layout(1)
	l.CondDim = 2
	_, err = data.NewBatch(l, []data.Sample{{Observation: []float32{1}}})
	assert.Error(t, err)
}

// counting wraps a source and counts Next and Reset calls.
type counting struct {
	data.Source
	next, reset int
}

func (c *counting) Next(ctx context.Context) (data.Batch, error) {
	c.next++
	return c.Source.Next(ctx)
}

func (c *counting) Reset() error {
	c.reset++
	return c.Source.Reset()
}

func TestPaired_MismatchAdvancesBoth(t *testing.T) {
	a := &counting{Source: data.NewMemorySource(samples(16, 1), layout(1), data.MemoryOptions{BatchSize: 8})}
	b := &counting{Source: data.NewMemorySource(samples(12, 1), layout(1), data.MemoryOptions{BatchSize: 6})}
	p := data.NewPaired(a, b)

	ba, bb, err := p.Next(context.Background())
	assert.ErrorIs(t, err, data.ErrMismatch)
	assert.Equal(t, 8, ba.Size)
	assert.Equal(t, 6, bb.Size)
	assert.Equal(t, 1, a.next)
	assert.Equal(t, 1, b.next)

	// The next draw continues from where both streams stopped.
	ba, bb, err = p.Next(context.Background())
	assert.ErrorIs(t, err, data.ErrMismatch)
	assert.Equal(t, int64(8), ba.Labels[0])
	assert.Equal(t, int64(6), bb.Labels[0])
}

func TestPaired_ExhaustionResetsBoth(t *testing.T) {
	a := &counting{Source: data.NewMemorySource(samples(4, 1), layout(1), data.MemoryOptions{BatchSize: 2})}
	b := &counting{Source: data.NewMemorySource(samples(8, 1), layout(1), data.MemoryOptions{BatchSize: 2})}
	p := data.NewPaired(a, b)
	assert.Equal(t, 4, p.Len())

	for range 2 {
		_, _, err := p.Next(context.Background())
		require.NoError(t, err)
	}
	// a is exhausted: both restart together.
	ba, bb, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ba.Labels)
	assert.Equal(t, []int64{0, 1}, bb.Labels)
	assert.Equal(t, 1, a.reset)
	assert.Equal(t, 1, b.reset)
}

func TestPaired_EmptySourceFails(t *testing.T) {
	a := data.NewMemorySource(nil, layout(1), data.MemoryOptions{BatchSize: 2})
	b := data.NewMemorySource(samples(2, 1), layout(1), data.MemoryOptions{BatchSize: 2})
	_, _, err := data.NewPaired(a, b).Next(context.Background())
	assert.ErrorIs(t, err, data.ErrExhausted)
}

func TestPrefetcher(t *testing.T) {
	src := data.NewMemorySource(samples(6, 1), layout(1), data.MemoryOptions{BatchSize: 2})
	p := data.NewPrefetcher(src, 2)
	defer p.Close()

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, 2, p.BatchSize())
	want := [][]int64{{0, 1}, {2, 3}, {4, 5}}
	assert.Equal(t, want, drain(t, p))

	require.NoError(t, p.Reset())
	assert.Equal(t, want, drain(t, p))

	// Reset mid-pass discards what was prefetched.
	require.NoError(t, p.Reset())
	b, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, b.Labels)
	require.NoError(t, p.Reset())
	b, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, b.Labels)
}

// broken fails after its first batch.
type broken struct {
	data.Source
	calls int
}

var errDisk = errors.New("disk read failed")

func (b *broken) Next(ctx context.Context) (data.Batch, error) {
	b.calls++
	if b.calls > 1 {
		return data.Batch{}, errDisk
	}
	return b.Source.Next(ctx)
}

func TestPrefetcher_KeepsSourceError(t *testing.T) {
	src := &broken{Source: data.NewMemorySource(samples(6, 1), layout(1), data.MemoryOptions{BatchSize: 2})}
	p := data.NewPrefetcher(src, 2)
	defer p.Close()

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	for range 3 {
		_, err = p.Next(context.Background())
		require.ErrorIs(t, err, errDisk)
		assert.NotErrorIs(t, err, data.ErrExhausted)
	}
}

func TestClipIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, []int{0, 1, 2, 4}, data.ClipIndices(5, 4, 2, rng))
	assert.Equal(t, []int{0, 1, 2}, data.ClipIndices(3, 3, 1, rng))

	idx := data.ClipIndices(30, 4, 3, rng)
	require.Len(t, idx, 4)
	for i := 1; i < len(idx); i++ {
		assert.Equal(t, 3, idx[i]-idx[i-1])
	}
	assert.Less(t, idx[3], 30)
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadImageFolder(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "cats", "a.png"), 8, 8, color.White)
	writePNG(t, filepath.Join(root, "dogs", "b.png"), 16, 16, color.Black)
	require.NoError(t, os.WriteFile(filepath.Join(root, "dogs", "b.txt"), []byte(" a black dog\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cats", "a.txt"), []byte("a white cat"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o600))

	ds, err := data.LoadImageFolder(root, data.ImageOptions{Size: 4, Channels: 3, Captions: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "dogs"}, ds.Classes)
	assert.Equal(t, data.ImageLayout(1, 3, 4), ds.Layout)
	require.Len(t, ds.Samples, 2)

	assert.Equal(t, int64(0), ds.Samples[0].Label)
	assert.Equal(t, "a white cat", ds.Samples[0].Caption)
	for _, v := range ds.Samples[0].Observation {
		assert.InDelta(t, 1, v, 1e-6)
	}
	assert.Equal(t, int64(1), ds.Samples[1].Label)
	assert.Equal(t, "a black dog", ds.Samples[1].Caption)
	for _, v := range ds.Samples[1].Observation {
		assert.InDelta(t, -1, v, 1e-6)
	}
}

func TestLoadImageFolder_Errors(t *testing.T) {
	_, err := data.LoadImageFolder(filepath.Join(t.TempDir(), "missing"), data.ImageOptions{Size: 4})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = data.LoadImageFolder(t.TempDir(), data.ImageOptions{Size: 4})
	assert.ErrorIs(t, err, data.ErrEmpty)
}

func TestLoadVideoFolder_Strip(t *testing.T) {
	root := t.TempDir()
	// A horizontal strip of five 4x4 frames and a too-short one.
	writePNG(t, filepath.Join(root, "walk", "long.png"), 20, 4, color.White)
	writePNG(t, filepath.Join(root, "walk", "short.png"), 8, 4, color.White)

	videos, frames, err := data.LoadVideoFolder(root, data.ImageOptions{Size: 2, Channels: 1, Frames: 3})
	require.NoError(t, err)
	require.Len(t, videos.Samples, 1)
	assert.Equal(t, data.ImageLayout(3, 1, 2), videos.Layout)
	assert.Len(t, videos.Samples[0].Observation, 12)
	assert.Len(t, frames.Samples, 5)
}

func TestLoadVideoFolder_GIF(t *testing.T) {
	root := t.TempDir()
	palette := color.Palette{color.Black, color.White}
	anim := &gif.GIF{}
	for i := range 4 {
		frame := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
		for p := range frame.Pix {
			frame.Pix[p] = uint8(i % 2)
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}
	f, err := os.Create(filepath.Join(root, "blink.gif"))
	require.NoError(t, err)
	require.NoError(t, gif.EncodeAll(f, anim))
	require.NoError(t, f.Close())

	videos, _, err := data.LoadVideoFolder(root, data.ImageOptions{Size: 4, Channels: 1, Frames: 4})
	require.NoError(t, err)
	clip := videos.Samples[0].Observation
	assert.InDelta(t, -1, clip[0], 1e-6)
	assert.InDelta(t, 1, clip[16], 1e-6)
}

func TestLoadPairedFolder(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a", "1.png"), 4, 4, color.Black)
	writePNG(t, filepath.Join(root, "b", "1.png"), 4, 4, color.White)
	writePNG(t, filepath.Join(root, "b", "2.png"), 4, 4, color.White) // no partner

	ds, err := data.LoadPairedFolder(root, data.ImageOptions{Size: 2, Channels: 3})
	require.NoError(t, err)
	require.Len(t, ds.Samples, 1)
	assert.Equal(t, ds.Layout.Dim, ds.Layout.CondDim)
	assert.InDelta(t, -1, ds.Samples[0].Cond[0], 1e-6)
	assert.InDelta(t, 1, ds.Samples[0].Observation[0], 1e-6)
}

func TestSynthetic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	blobs := data.Blobs(10, 5, 1, 8, rng)
	assert.Len(t, blobs.Samples, 10)
	assert.Len(t, blobs.Classes, 5)

	videos, stills := data.MovingDots(4, 3, 1, 8, rng)
	assert.Len(t, videos.Samples, 4)
	assert.Len(t, stills.Samples, 12)
	assert.Len(t, videos.Samples[0].Observation, videos.Layout.SampleDim())

	pairs := data.MaskPairs(3, 3, 8, rng)
	assert.Len(t, pairs.Samples[0].Cond, pairs.Layout.CondDim)

	shapes := data.CaptionedShapes(5, 8, rng)
	for _, s := range shapes.Samples {
		assert.Regexp(t, `^a (small|large) (red|green|blue) (square|disc)$`, s.Caption)
		for _, v := range s.Observation {
			assert.True(t, v >= -1 && v <= 1)
		}
	}
}
