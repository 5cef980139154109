package gan_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blobSize = 4

func newBackend() gan.Backend { return gan.NewBackend(cpu.New()) }

func blobs(n, classes int) *data.Dataset {
	return data.Blobs(n, classes, 1, blobSize, rand.New(rand.NewSource(7)))
}

func blobFeed(n, batch int) gan.Feed {
	ds := blobs(n, 2)
	return gan.SingleFeed(data.NewMemorySource(ds.Samples, ds.Layout, data.MemoryOptions{BatchSize: batch}))
}

func firstBatch(t *testing.T, feed gan.Feed) gan.Batch {
	t.Helper()
	b, err := feed.Next(context.Background())
	require.NoError(t, err)
	return b
}

func newConditional(t *testing.T, b gan.Backend, classes int) *gan.Conditional {
	t.Helper()
	v, err := gan.NewConditional(b, gan.ConditionalConfig{
		Options: gan.Options{Criterion: gan.CriterionBCE, Hidden: 8, Optimizer: gan.OptimizerConfig{LR: 0.01}},
		Layout:  data.ImageLayout(1, 1, blobSize),
		Noise:   4,
		Classes: classes,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return v
}

func zeroParams(players []*gan.Player) {
	for _, p := range players {
		for _, param := range p.Parameters() {
			param.Tensor().Raw().Fill(0)
		}
	}
}

func snapshot(players []*gan.Player) [][]float32 {
	var out [][]float32
	for _, p := range players {
		for _, param := range p.Parameters() {
			out = append(out, append([]float32(nil), param.Tensor().Data()...))
		}
	}
	return out
}

// recording starts a fresh tape for calling the phases directly.
func recording(t *testing.T, b gan.Backend) {
	t.Helper()
	tape := b.Tape()
	tape.Clear()
	tape.StartRecording()
	t.Cleanup(func() {
		tape.StopRecording()
		tape.Clear()
	})
}

func TestDriver_ZeroNetworksScoreLn2(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 0)
	zeroParams(v.Players())

	state := &gan.TrainingState{}
	d := gan.NewDriver(b, rand.New(rand.NewSource(3)))
	res, err := d.Step(context.Background(), state, v, firstBatch(t, blobFeed(8, 4)))
	require.NoError(t, err)

	realAdv, ok := res.D.Get("real_adv")
	require.True(t, ok)
	fakeAdv, ok := res.D.Get("fake_adv")
	require.True(t, ok)
	assert.InDelta(t, math.Ln2, realAdv, 1e-5)
	assert.InDelta(t, math.Ln2, fakeAdv, 1e-5)
	assert.InDelta(t, 2*math.Ln2, res.D.Value(), 1e-5)
	assert.InDelta(t, math.Ln2, res.G.Value(), 1e-5)

	assert.InDelta(t, 2*math.Ln2, state.LastLossD, 1e-5)
	assert.InDelta(t, math.Ln2, state.LastLossG, 1e-5)
	assert.Equal(t, map[string]int64{"generator": 1, "discriminator": 1}, state.Updates)
	assert.Zero(t, b.Tape().NumOps())
	assert.False(t, b.Tape().IsRecording())
}

func TestDriver_PhasesMutateOnlyTheirPlayers(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 2)
	batch := firstBatch(t, blobFeed(8, 4))
	d := gan.NewDriver(b, rand.New(rand.NewSource(3)))
	recording(t, b)
	s := gan.NewStep(batch, b, rand.New(rand.NewSource(4)))

	gBefore, dBefore := snapshot(v.Generators()), snapshot(v.Discriminators())
	_, err := d.PhaseD(s, v)
	require.NoError(t, err)
	assert.Equal(t, gBefore, snapshot(v.Generators()), "phase D moved the generator")
	assert.NotEqual(t, dBefore, snapshot(v.Discriminators()), "phase D left the discriminator unchanged")
	for _, p := range v.Generators() {
		for _, param := range p.Parameters() {
			assert.Nil(t, param.Grad(), "generator gradient after phase D: %s", param.Name())
		}
	}

	dAfter, gMid := snapshot(v.Discriminators()), snapshot(v.Generators())
	_, err = d.PhaseG(s, v)
	require.NoError(t, err)
	assert.Equal(t, dAfter, snapshot(v.Discriminators()), "phase G moved the discriminator")
	assert.NotEqual(t, gMid, snapshot(v.Generators()), "phase G left the generator unchanged")
	for _, p := range v.Discriminators() {
		assert.False(t, p.Trainable())
	}
	assert.Equal(t, int64(1), v.Generators()[0].Updates())
	assert.Equal(t, int64(1), v.Discriminators()[0].Updates())
}

func TestDriver_SkipsMismatchedPair(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 0)
	ds := blobs(14, 2)
	a := data.NewMemorySource(ds.Samples[:8], ds.Layout, data.MemoryOptions{BatchSize: 8})
	bb := data.NewMemorySource(ds.Samples[8:], ds.Layout, data.MemoryOptions{BatchSize: 8})
	feed := gan.PairedFeed(data.NewPaired(a, bb))

	batch, err := feed.Next(context.Background())
	require.ErrorIs(t, err, gan.ErrBatchMismatch)
	require.ErrorIs(t, err, data.ErrMismatch)
	assert.Equal(t, 8, batch.Real.Size)
	assert.Equal(t, 6, batch.Pair.Size)

	before := snapshot(v.Players())
	state := &gan.TrainingState{}
	_, err = gan.NewDriver(b, rand.New(rand.NewSource(1))).Step(context.Background(), state, v, batch)
	require.ErrorIs(t, err, gan.ErrBatchMismatch)
	assert.Equal(t, int64(1), state.SkippedMismatch)
	assert.Equal(t, before, snapshot(v.Players()))
	for _, p := range v.Players() {
		assert.Zero(t, p.Updates())
	}
}

// poisoned adds a NaN term to one phase of a variant.
type poisoned struct {
	*gan.Conditional
	phase gan.Phase
}

func (p poisoned) nan(s *gan.Step, terms *gan.Terms) *gan.Terms {
	terms.Add("poison", tensor.Full[float32](tensor.Shape{}, float32(math.NaN()), s.Backend))
	return terms
}

func (p poisoned) DiscriminatorLoss(s *gan.Step) (*gan.Terms, error) {
	terms, err := p.Conditional.DiscriminatorLoss(s)
	if err != nil || p.phase != gan.PhaseD {
		return terms, err
	}
	return p.nan(s, terms), nil
}

func (p poisoned) GeneratorLoss(s *gan.Step) (*gan.Terms, error) {
	terms, err := p.Conditional.GeneratorLoss(s)
	if err != nil || p.phase != gan.PhaseG {
		return terms, err
	}
	return p.nan(s, terms), nil
}

func TestDriver_NonFiniteLossSkipsUpdate(t *testing.T) {
	for _, phase := range []gan.Phase{gan.PhaseD, gan.PhaseG} {
		t.Run(phase.String(), func(t *testing.T) {
			b := newBackend()
			v := poisoned{Conditional: newConditional(t, b, 0), phase: phase}
			d := gan.NewDriver(b, rand.New(rand.NewSource(1)))
			var hooked []gan.Phase
			d.OnNonFinite = func(p gan.Phase, terms *gan.Terms) {
				hooked = append(hooked, p)
				assert.False(t, terms.Finite())
			}

			gBefore := snapshot(v.Generators())
			state := &gan.TrainingState{}
			_, err := d.Step(context.Background(), state, v, firstBatch(t, blobFeed(8, 4)))
			require.ErrorIs(t, err, gan.ErrNonFiniteLoss)
			assert.Equal(t, []gan.Phase{phase}, hooked)
			assert.Equal(t, int64(1), state.SkippedNonFinite)
			assert.Equal(t, gBefore, snapshot(v.Generators()))
			assert.Zero(t, v.Generators()[0].Updates())
			if phase == gan.PhaseD {
				assert.Zero(t, v.Discriminators()[0].Updates())
				assert.Empty(t, state.Updates)
			} else {
				assert.Equal(t, int64(1), v.Discriminators()[0].Updates())
				assert.Equal(t, map[string]int64{"discriminator": 1}, state.Updates)
			}
			for _, p := range v.Players() {
				for _, param := range p.Parameters() {
					assert.Nil(t, param.Grad())
				}
			}
		})
	}
}

func TestDriver_HonorsContext(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gan.NewDriver(b, rand.New(rand.NewSource(1))).Step(ctx, &gan.TrainingState{}, v, firstBatch(t, blobFeed(8, 4)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v.Generators()[0].Updates())
}

func TestConditional_RejectsUnknownLabel(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 2)
	ds := blobs(4, 4) // labels 0..3
	batch, err := data.NewBatch(ds.Layout, ds.Samples)
	require.NoError(t, err)

	_, err = gan.NewDriver(b, rand.New(rand.NewSource(1))).Step(context.Background(), &gan.TrainingState{}, v, gan.Batch{Real: batch})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside 2 classes")
}

func TestConditional_UnconditionalIgnoresLabels(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 0)
	ds := blobs(4, 4) // labels 0..3
	batch, err := data.NewBatch(ds.Layout, ds.Samples)
	require.NoError(t, err)

	res, err := gan.NewDriver(b, rand.New(rand.NewSource(1))).Step(context.Background(), &gan.TrainingState{}, v, gan.Batch{Real: batch})
	require.NoError(t, err)
	assert.Equal(t, []string{"real_adv", "fake_adv"}, termNames(res.D))
	assert.Equal(t, []string{"adv"}, termNames(res.G))
	assert.Equal(t, int64(1), v.Generators()[0].Updates())
}

func TestConditional_ClassTerms(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 2)
	res, err := gan.NewDriver(b, rand.New(rand.NewSource(1))).Step(context.Background(), &gan.TrainingState{}, v, firstBatch(t, blobFeed(8, 4)))
	require.NoError(t, err)

	names := func(terms *gan.Terms) []string {
		var out []string
		for _, v := range terms.Values() {
			out = append(out, v.Name)
		}
		return out
	}
	assert.Equal(t, []string{"real_adv", "real_cls", "fake_adv", "fake_cls"}, names(res.D))
	assert.Equal(t, []string{"adv", "cls"}, names(res.G))
}

func TestSample_FixedLatentIsDeterministic(t *testing.T) {
	b := newBackend()
	v := newConditional(t, b, 2)
	first := firstBatch(t, blobFeed(8, 4))
	latent := v.FixedLatent(rand.New(rand.NewSource(9)), first)

	b.Tape().StartRecording()
	defer b.Tape().StopRecording()
	ops := b.Tape().NumOps()

	s1, err := v.Sample(latent)
	require.NoError(t, err)
	s2, err := v.Sample(latent)
	require.NoError(t, err)
	assert.Equal(t, s1.Observations, s2.Observations)
	assert.Equal(t, 4, s1.Size)
	assert.Equal(t, data.ImageLayout(1, 1, blobSize), s1.Layout)
	assert.Equal(t, ops, b.Tape().NumOps(), "sampling recorded operations")

	again := v.FixedLatent(rand.New(rand.NewSource(9)), first)
	assert.Equal(t, latent["noise"].AsFloat32(), again["noise"].AsFloat32())
}

func TestStep_RememberBuildsOnce(t *testing.T) {
	b := newBackend()
	s := gan.NewStep(gan.Batch{}, b, rand.New(rand.NewSource(1)))
	calls := 0
	build := func() *gan.Tensor {
		calls++
		return s.Noise(2, 3)
	}
	first := s.Remember("fake", build)
	second := s.Remember("fake", build)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, tensor.Shape{2, 3}, first.Shape())
}

func TestOptions_DiscriminatorLR(t *testing.T) {
	b := newBackend()
	v, err := gan.NewConditional(b, gan.ConditionalConfig{
		Options: gan.Options{Hidden: 8, Optimizer: gan.OptimizerConfig{LR: 0.002, DiscriminatorLR: 0.0004}},
		Layout:  data.ImageLayout(1, 1, blobSize),
		Noise:   4,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.InDelta(t, 0.002, v.Generators()[0].Optimizer().GetLR(), 1e-9)
	assert.InDelta(t, 0.0004, v.Discriminators()[0].Optimizer().GetLR(), 1e-9)

	_, err = gan.NewConditional(b, gan.ConditionalConfig{
		Options: gan.Options{Optimizer: gan.OptimizerConfig{Name: "lbfgs"}},
		Layout:  data.ImageLayout(1, 1, blobSize),
		Noise:   4,
	}, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
