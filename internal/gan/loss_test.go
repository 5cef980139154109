package gan_test

import (
	"math"
	"testing"

	"github.com/born-ml/gantrain/internal/gan"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalar(b gan.Backend, v float32) *gan.Tensor {
	return tensor.Full[float32](tensor.Shape{}, v, b)
}

func matrix(t *testing.T, b gan.Backend, values []float32, rows, cols int) *gan.Tensor {
	t.Helper()
	x, err := tensor.FromSlice[float32](values, tensor.Shape{rows, cols}, b)
	require.NoError(t, err)
	return x
}

func TestTerms_WeightedSumInOrder(t *testing.T) {
	b := newBackend()
	terms := gan.NewTerms()
	terms.Add("adv", scalar(b, 0.5))
	terms.AddWeighted("l1", 100, scalar(b, 0.02))
	terms.AddWeighted("kl", 2, scalar(b, 0.25))

	assert.Equal(t, 3, terms.Len())
	assert.InDelta(t, 0.5+2+0.5, terms.Value(), 1e-5)
	assert.True(t, terms.Finite())
	assert.Equal(t, []gan.Value{
		{Name: "adv", Weight: 1, Value: 0.5},
		{Name: "l1", Weight: 100, Value: float64(float32(0.02))},
		{Name: "kl", Weight: 2, Value: 0.25},
	}, terms.Values())
	assert.Equal(t, "adv: 0.5000 l1: 0.0200 kl: 0.2500", terms.String())

	v, ok := terms.Get("l1")
	require.True(t, ok)
	assert.InDelta(t, 0.02, v, 1e-7)
	_, ok = terms.Get("missing")
	assert.False(t, ok)
}

func TestTerms_Rejects(t *testing.T) {
	b := newBackend()

	terms := gan.NewTerms()
	terms.Add("adv", scalar(b, 1))
	assert.Panics(t, func() { terms.Add("adv", scalar(b, 1)) }, "duplicate name")
	assert.Panics(t, func() { terms.Add("neg", scalar(b, -1)) }, "negative value")
	assert.Panics(t, func() { terms.AddWeighted("w", -1, scalar(b, 1)) }, "negative weight")
	assert.Panics(t, func() { terms.Add("vec", tensor.Zeros[float32](tensor.Shape{2}, b)) }, "not a scalar")

	terms.Total()
	assert.Panics(t, func() { terms.Add("late", scalar(b, 1)) }, "add after total")
	assert.Panics(t, func() { gan.NewTerms().Total() }, "empty")

	// Rounding noise below the tolerance is accepted.
	assert.NotPanics(t, func() { gan.NewTerms().Add("kl", scalar(b, -1e-6)) })
}

func TestTerms_NonFinite(t *testing.T) {
	b := newBackend()
	for _, v := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		terms := gan.NewTerms()
		terms.Add("ok", scalar(b, 1))
		assert.NotPanics(t, func() { terms.Add("bad", scalar(b, v)) })
		assert.False(t, terms.Finite())
	}
}

func TestTerms_BackwardOnce(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()
	defer b.Tape().StopRecording()

	x := matrix(t, b, []float32{1, -2, 3, -4}, 2, 2)
	b.Tape().Watch(x.Raw())
	terms := gan.NewTerms()
	terms.AddWeighted("l1", 2, gan.Reconstruction(x, tensor.Zeros[float32](tensor.Shape{2, 2}, b)))

	grads, err := terms.Backward(b)
	require.NoError(t, err)
	require.Contains(t, grads, x.Raw())
	assert.InDeltaSlice(t, []float32{0.5, -0.5, 0.5, -0.5}, grads[x.Raw()].AsFloat32(), 1e-6)

	_, err = terms.Backward(b)
	require.ErrorIs(t, err, gan.ErrAlreadyBackpropagated)
}

func TestAdversarial(t *testing.T) {
	b := newBackend()
	logits := matrix(t, b, []float32{0, 0, 0, 0}, 4, 1)
	for _, c := range []gan.Criterion{gan.CriterionBCE, gan.CriterionBCEWithLogits} {
		assert.InDelta(t, math.Ln2, float64(gan.Adversarial(c, logits, gan.RealTarget).Item()), 1e-5, c.String())
		assert.InDelta(t, math.Ln2, float64(gan.Adversarial(c, logits, gan.FakeTarget).Item()), 1e-5, c.String())
	}

	confident := matrix(t, b, []float32{4, 4}, 2, 1)
	asReal := float64(gan.Adversarial(gan.CriterionBCEWithLogits, confident, gan.RealTarget).Item())
	asFake := float64(gan.Adversarial(gan.CriterionBCEWithLogits, confident, gan.FakeTarget).Item())
	assert.InDelta(t, math.Log1p(math.Exp(-4)), asReal, 1e-4)
	assert.InDelta(t, 4+math.Log1p(math.Exp(-4)), asFake, 1e-4)
}

func TestParseCriterion(t *testing.T) {
	for in, want := range map[string]gan.Criterion{
		"bce":           gan.CriterionBCE,
		"BCE":           gan.CriterionBCE,
		"bce-logits":    gan.CriterionBCEWithLogits,
		"BCEWithLogits": gan.CriterionBCEWithLogits,
	} {
		got, err := gan.ParseCriterion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := gan.ParseCriterion("hinge")
	require.Error(t, err)
}

func TestFrameWeights(t *testing.T) {
	assert.Equal(t, []float64{4000, 3000, 2000, 1000}, gan.FrameWeights(gan.FrameLinear, 1000, 4))
	assert.Equal(t, []float64{2, 2, 2}, gan.FrameWeights(gan.FrameConstant, 2, 3))
	assert.Nil(t, gan.FrameWeights(gan.FrameNone, 1000, 4))

	// Earlier frames never weigh less than later ones.
	w := gan.FrameWeights(gan.FrameLinear, 0.5, 16)
	for i := 1; i < len(w); i++ {
		assert.Greater(t, w[i-1], w[i])
	}
	assert.InDelta(t, 0.5, w[len(w)-1], 1e-12)
}

func TestParseFrameSchedule(t *testing.T) {
	for in, want := range map[string]gan.FrameSchedule{
		"linear":   gan.FrameLinear,
		"constant": gan.FrameConstant,
		"none":     gan.FrameNone,
		"":         gan.FrameNone,
	} {
		got, err := gan.ParseFrameSchedule(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := gan.ParseFrameSchedule("exponential")
	require.Error(t, err)
}

func TestFrameReconstruction(t *testing.T) {
	b := newBackend()
	// Two clips of three 2-wide frames; frame i of every clip is off by i+1.
	clips := matrix(t, b, []float32{
		1, 1, 2, 2, 3, 3,
		1, 1, 2, 2, 3, 3,
	}, 2, 6)
	reference := tensor.Zeros[float32](tensor.Shape{2, 2}, b)

	got := gan.FrameReconstruction(clips, reference, []float64{3, 2, 1})
	assert.InDelta(t, 3*1+2*2+1*3, float64(got.Item()), 1e-5)

	got = gan.FrameReconstruction(clips, reference, []float64{0, 1, 0})
	assert.InDelta(t, 2, float64(got.Item()), 1e-5)

	got = gan.FrameReconstruction(clips, reference, []float64{0, 0, 0})
	assert.Zero(t, got.Item())
}

func TestKLDivergence(t *testing.T) {
	b := newBackend()
	zero := tensor.Zeros[float32](tensor.Shape{3, 4}, b)
	assert.InDelta(t, 0, float64(gan.KLDivergence(zero, zero).Item()), 1e-7)

	mu := matrix(t, b, []float32{1, -1}, 1, 2)
	logvar := matrix(t, b, []float32{0, 0}, 1, 2)
	assert.InDelta(t, 0.5, float64(gan.KLDivergence(mu, logvar).Item()), 1e-6)

	logvar = matrix(t, b, []float32{1, -1}, 1, 2)
	zero = tensor.Zeros[float32](tensor.Shape{1, 2}, b)
	want := 0.5 * ((math.E - 1 - 1) + (1/math.E - 1 + 1)) / 2
	assert.InDelta(t, want, float64(gan.KLDivergence(zero, logvar).Item()), 1e-6)
}

func TestClassification(t *testing.T) {
	b := newBackend()
	logits := matrix(t, b, []float32{0, 0, 0, 0, 0, 0}, 2, 3)
	assert.InDelta(t, math.Log(3), float64(gan.Classification(logits, []int64{0, 2}).Item()), 1e-5)
}
