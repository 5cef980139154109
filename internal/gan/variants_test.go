package gan_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func termNames(terms *gan.Terms) []string {
	var out []string
	for _, v := range terms.Values() {
		out = append(out, v.Name)
	}
	return out
}

func roles(players []*gan.Player) []string {
	var out []string
	for _, p := range players {
		out = append(out, p.Role())
	}
	return out
}

const clipFrames = 3

func videoFeed(batch int) gan.Feed {
	videos, stills := data.MovingDots(8, clipFrames, 1, blobSize, rand.New(rand.NewSource(5)))
	images := data.NewMemorySource(stills.Samples, stills.Layout, data.MemoryOptions{BatchSize: batch, Shuffle: true, Seed: 1})
	clips := data.NewMemorySource(videos.Samples, videos.Layout, data.MemoryOptions{BatchSize: batch, Shuffle: true, Seed: 2})
	return gan.PairedFeed(data.NewPaired(images, clips))
}

func newVideo(t *testing.T, b gan.Backend) *gan.Video {
	t.Helper()
	v, err := gan.NewVideo(b, gan.VideoConfig{
		Options:            gan.Options{Hidden: 8, Criterion: gan.CriterionBCEWithLogits},
		Layout:             data.ImageLayout(1, 1, blobSize),
		Frames:             clipFrames,
		Latent:             models.VideoLatent{Content: 2, Category: 4, Motion: 2},
		ImageDiscriminator: models.PatchImageDiscriminator,
		VideoDiscriminator: models.CategoricalVideoDiscriminator,
		FrameSchedule:      gan.FrameLinear,
		FrameWeightScale:   1,
		ReconWeight:        1,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return v
}

func TestVideo_Step(t *testing.T) {
	b := newBackend()
	v := newVideo(t, b)
	assert.Equal(t, []string{"generator", "discriminator-image", "discriminator-video", "image-reconstructor", "video-reconstructor"}, roles(v.Players()))
	assert.Equal(t, []string{"discriminator-image", "discriminator-video"}, roles(v.Discriminators()))
	assert.Equal(t, []string{"generator", "image-reconstructor", "video-reconstructor"}, roles(v.Generators()))

	batch := firstBatch(t, videoFeed(4))
	require.True(t, batch.Paired)
	assert.Equal(t, clipFrames, batch.Pair.Layout.Frames)

	state := &gan.TrainingState{}
	res, err := gan.NewDriver(b, rand.New(rand.NewSource(2))).Step(context.Background(), state, v, batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"video_real", "image_real", "video_fake", "video_fake_cls", "image_fake"}, termNames(res.D))
	assert.Equal(t, []string{"video_adv", "video_cls", "image_adv", "frames", "image_recon", "video_recon"}, termNames(res.G))
	for _, p := range v.Players() {
		assert.Equal(t, int64(1), p.Updates(), p.Role())
	}
	assert.Len(t, state.Updates, 5)
}

func TestVideo_FrameWeightsFavorEarlyFrames(t *testing.T) {
	b := newBackend()
	v := newVideo(t, b)
	res, err := gan.NewDriver(b, rand.New(rand.NewSource(2))).Step(context.Background(), &gan.TrainingState{}, v, firstBatch(t, videoFeed(4)))
	require.NoError(t, err)
	frames, ok := res.G.Get("frames")
	require.True(t, ok)
	// Weights 3, 2, 1 over three L1 distances.
	assert.Greater(t, frames, 0.0)
}

func TestVideo_NeedsClips(t *testing.T) {
	b := newBackend()
	v := newVideo(t, b)
	_, stills := data.MovingDots(2, clipFrames, 1, blobSize, rand.New(rand.NewSource(5)))
	batch, err := data.NewBatch(stills.Layout, stills.Samples[:4])
	require.NoError(t, err)

	_, err = gan.NewDriver(b, rand.New(rand.NewSource(2))).Step(context.Background(), &gan.TrainingState{}, v, gan.Batch{Real: batch})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paired")
	for _, p := range v.Players() {
		assert.Zero(t, p.Updates())
	}
}

func TestVideo_SampleRendersClips(t *testing.T) {
	b := newBackend()
	v := newVideo(t, b)
	latent := v.FixedLatent(rand.New(rand.NewSource(3)), firstBatch(t, videoFeed(4)))
	assert.ElementsMatch(t, []string{"images", "content", "category", "motion"}, keys(latent))

	out, err := v.Sample(latent)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Size)
	assert.Equal(t, clipFrames, out.Layout.Frames)
	assert.Len(t, out.Observations, 4*clipFrames*blobSize*blobSize)

	again, err := v.Sample(latent)
	require.NoError(t, err)
	assert.Equal(t, out.Observations, again.Observations)
}

func TestVideo_WithoutReconstructors(t *testing.T) {
	b := newBackend()
	v, err := gan.NewVideo(b, gan.VideoConfig{
		Options:            gan.Options{Hidden: 8},
		Layout:             data.ImageLayout(1, 1, blobSize),
		Frames:             clipFrames,
		Latent:             models.VideoLatent{Content: 2, Motion: 2},
		ImageDiscriminator: models.ImageDiscriminator,
		VideoDiscriminator: models.PatchVideoDiscriminator,
		FrameSchedule:      gan.FrameNone,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, v.Players(), 3)

	res, err := gan.NewDriver(b, rand.New(rand.NewSource(2))).Step(context.Background(), &gan.TrainingState{}, v, firstBatch(t, videoFeed(4)))
	require.NoError(t, err)
	assert.Equal(t, []string{"video_real", "image_real", "video_fake", "image_fake"}, termNames(res.D))
	assert.Equal(t, []string{"video_adv", "image_adv"}, termNames(res.G))

	latent := v.FixedLatent(rand.New(rand.NewSource(3)), firstBatch(t, videoFeed(4)))
	assert.NotContains(t, latent, "category")
}

func TestVideo_RejectsMisplacedDiscriminators(t *testing.T) {
	cfg := gan.VideoConfig{
		Options:            gan.Options{Hidden: 8},
		Layout:             data.ImageLayout(1, 1, blobSize),
		Frames:             clipFrames,
		Latent:             models.VideoLatent{Content: 2, Motion: 2},
		ImageDiscriminator: models.VideoDiscriminator,
		VideoDiscriminator: models.VideoDiscriminator,
	}
	_, err := gan.NewVideo(newBackend(), cfg, rand.New(rand.NewSource(1)))
	require.ErrorContains(t, err, "still images")

	cfg.ImageDiscriminator, cfg.VideoDiscriminator = models.ImageDiscriminator, models.PairDiscriminator
	_, err = gan.NewVideo(newBackend(), cfg, rand.New(rand.NewSource(1)))
	require.ErrorContains(t, err, "clips")
}

func translationFeed(n, batch int) gan.Feed {
	ds := data.MaskPairs(n, 1, blobSize, rand.New(rand.NewSource(4)))
	return gan.SingleFeed(data.NewMemorySource(ds.Samples, ds.Layout, data.MemoryOptions{BatchSize: batch}))
}

func TestTranslation_Step(t *testing.T) {
	b := newBackend()
	layout := data.ImageLayout(1, 1, blobSize)
	layout.CondDim = layout.Dim
	v, err := gan.NewTranslation(b, gan.TranslationConfig{Options: gan.Options{Hidden: 8}, Layout: layout, Noise: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	batch := firstBatch(t, translationFeed(8, 4))
	res, err := gan.NewDriver(b, rand.New(rand.NewSource(2))).Step(context.Background(), &gan.TrainingState{}, v, batch)
	require.NoError(t, err)

	assert.Equal(t, []string{"real", "fake"}, termNames(res.D))
	for _, term := range res.D.Values() {
		assert.InDelta(t, 0.5, term.Weight, 0)
	}
	assert.Equal(t, []string{"adv", "l1"}, termNames(res.G))
	assert.InDelta(t, float64(gan.DefaultLambdaL1), res.G.Values()[1].Weight, 0)

	latent := v.FixedLatent(rand.New(rand.NewSource(3)), batch)
	out, err := v.Sample(latent)
	require.NoError(t, err)
	assert.Zero(t, out.Layout.CondDim)
	assert.Equal(t, 4, out.Size)
}

func TestTranslation_RejectsMismatchedWidths(t *testing.T) {
	layout := data.ImageLayout(1, 1, blobSize)
	layout.CondDim = 3
	_, err := gan.NewTranslation(newBackend(), gan.TranslationConfig{Layout: layout}, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

const textDim = 6

func captionBatch(t *testing.T, n int) gan.Batch {
	t.Helper()
	rng := rand.New(rand.NewSource(8))
	ds := data.CaptionedShapes(n, blobSize, rng)
	layout := ds.Layout
	layout.CondDim = textDim
	for i := range ds.Samples {
		ds.Samples[i].Cond = make([]float32, textDim)
		for j := range ds.Samples[i].Cond {
			ds.Samples[i].Cond[j] = float32(rng.NormFloat64())
		}
	}
	batch, err := data.NewBatch(layout, ds.Samples)
	require.NoError(t, err)
	return gan.Batch{Real: batch}
}

func newText(t *testing.T, b gan.Backend) *gan.TextToImage {
	t.Helper()
	layout := data.ImageLayout(1, 3, blobSize)
	layout.CondDim = textDim
	v, err := gan.NewTextToImage(b, gan.TextConfig{
		Options:      gan.Options{Hidden: 8, NoiseSigma: 0.1},
		Layout:       layout,
		Noise:        2,
		ConditionDim: 4,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return v
}

func TestTextToImage_Step(t *testing.T) {
	b := newBackend()
	v := newText(t, b)
	d := gan.NewDriver(b, rand.New(rand.NewSource(2)))

	res, err := d.Step(context.Background(), &gan.TrainingState{}, v, captionBatch(t, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"real", "wrong", "fake"}, termNames(res.D))
	assert.Equal(t, []string{"adv", "kl"}, termNames(res.G))
	kl, ok := res.G.Get("kl")
	require.True(t, ok)
	assert.GreaterOrEqual(t, kl, 0.0)

	// A single caption has no other caption to mismatch with.
	res, err = d.Step(context.Background(), &gan.TrainingState{}, v, captionBatch(t, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"real", "fake"}, termNames(res.D))
}

func TestTextToImage_Sample(t *testing.T) {
	b := newBackend()
	v := newText(t, b)
	latent := v.FixedLatent(rand.New(rand.NewSource(3)), captionBatch(t, 4))
	assert.ElementsMatch(t, []string{"text", "eps", "noise"}, keys(latent))

	out, err := v.Sample(latent)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Size)
	assert.Len(t, out.Observations, 4*3*blobSize*blobSize)
	assert.Zero(t, out.Layout.CondDim)
}

func TestTextToImage_RequiresEmbeddings(t *testing.T) {
	_, err := gan.NewTextToImage(newBackend(), gan.TextConfig{Layout: data.ImageLayout(1, 3, blobSize)}, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}
