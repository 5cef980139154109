package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/gantrain/internal/autodiff"
	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adBackend = *autodiff.AutodiffBackend[tensor.Backend]

func newAutodiff() adBackend {
	return autodiff.New[tensor.Backend](cpu.New())
}

func fromSlice[B tensor.Backend](t *testing.T, b B, data []float32, shape ...int) *tensor.Tensor[float32, B] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), b)
	require.NoError(t, err)
	return x
}

func TestParameter_Accumulate(t *testing.T) {
	b := cpu.New()
	p := nn.NewParameter("w", fromSlice(t, b, []float32{1, 2}, 2))
	assert.True(t, p.Trainable())
	assert.Nil(t, p.Grad())

	g := fromSlice(t, b, []float32{0.5, 1}, 2).Raw()
	p.Accumulate(g)
	p.Accumulate(g)
	assert.Equal(t, []float32{1, 2}, p.Grad().Data())
	assert.Equal(t, []float32{0.5, 1}, g.AsFloat32(), "accumulation must not alias the source")

	p.ZeroGrad()
	assert.Nil(t, p.Grad())

	p.SetTrainable(false)
	p.Accumulate(g)
	assert.Nil(t, p.Grad(), "frozen parameters ignore gradients")
}

func TestParameter_AccumulateShapeMismatchPanics(t *testing.T) {
	b := cpu.New()
	p := nn.NewParameter("w", fromSlice(t, b, []float32{1, 2}, 2))
	assert.Panics(t, func() {
		p.Accumulate(fromSlice(t, b, []float32{1, 2, 3}, 3).Raw())
	})
}

func TestLinear_Forward(t *testing.T) {
	b := cpu.New()
	layer := nn.NewLinear(3, 2, b, rand.New(rand.NewSource(1)))
	require.NoError(t, layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": fromSlice(t, b, []float32{1, 0, -1, 2, 1, 0}, 2, 3).Raw(),
		"bias":   fromSlice(t, b, []float32{0.5, -0.5}, 2).Raw(),
	}))

	out := layer.Forward(fromSlice(t, b, []float32{1, 2, 3, 0, 1, 0}, 2, 3))

	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{-1.5, 3.5, 0.5, 0.5}, out.Data())
}

func TestLinear_ForwardRejectsWrongWidth(t *testing.T) {
	b := cpu.New()
	layer := nn.NewLinear(3, 2, b, rand.New(rand.NewSource(1)))
	assert.Panics(t, func() { layer.Forward(tensor.Zeros[float32](tensor.Shape{1, 4}, b)) })
}

func TestLinear_GradientsReachParameters(t *testing.T) {
	ad := newAutodiff()
	layer := nn.NewLinear[tensor.Backend](2, 1, ad, rand.New(rand.NewSource(1)))
	require.NoError(t, layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": fromSlice[tensor.Backend](t, ad, []float32{2, -1}, 1, 2).Raw(),
		"bias":   fromSlice[tensor.Backend](t, ad, []float32{0}, 1).Raw(),
	}))
	nn.Watch[tensor.Backend](ad, layer.Parameters())
	ad.Tape().StartRecording()

	x := fromSlice[tensor.Backend](t, ad, []float32{1, 3, 2, 1}, 2, 2)
	loss := layer.Forward(x).Sum()
	nn.AccumulateGrads(layer.Parameters(), ad.Backward(loss.Raw()))

	// d(sum(xWᵀ+b))/dW = column sums of x, d/db = batch size.
	assert.Equal(t, []float32{3, 4}, layer.Weight().Grad().Data())
	assert.Equal(t, []float32{2}, layer.Bias().Grad().Data())
}

func TestSequential_StateDictRoundTrip(t *testing.T) {
	b := cpu.New()
	build := func(seed int64) *nn.Sequential[*cpu.CPUBackend] {
		rng := rand.New(rand.NewSource(seed))
		return nn.NewSequential[*cpu.CPUBackend](
			nn.NewLinear(4, 3, b, rng),
			nn.NewLeakyReLU[*cpu.CPUBackend](0.2),
			nn.NewLinear(3, 1, b, rng),
			nn.NewSigmoid[*cpu.CPUBackend](),
		)
	}
	src, dst := build(1), build(2)

	sd := src.StateDict()
	assert.Equal(t, []string{"0.bias", "0.weight", "2.bias", "2.weight"}, nn.SortedKeys(sd))
	require.NoError(t, dst.LoadStateDict(sd))

	x := tensor.Randn(tensor.Shape{5, 4}, rand.New(rand.NewSource(3)), b)
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
	assert.Len(t, dst.Parameters(), 4)
	assert.Equal(t, 4, dst.Len())
}

func TestSequential_LoadStateDictErrors(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(1))
	model := nn.NewSequential[*cpu.CPUBackend](nn.NewLinear(2, 2, b, rng))

	err := model.LoadStateDict(map[string]*tensor.RawTensor{})
	assert.ErrorContains(t, err, "missing weight")

	err = model.LoadStateDict(map[string]*tensor.RawTensor{
		"0.weight": tensor.Zeros[float32](tensor.Shape{3, 2}, b).Raw(),
		"0.bias":   tensor.Zeros[float32](tensor.Shape{2}, b).Raw(),
	})
	assert.ErrorContains(t, err, "shape mismatch")
}

func TestActivations(t *testing.T) {
	b := cpu.New()
	x := fromSlice(t, b, []float32{-2, 0, 3}, 3)

	assert.Equal(t, []float32{0, 0, 3}, nn.NewReLU[*cpu.CPUBackend]().Forward(x).Data())
	assert.InDeltaSlice(t, []float32{-0.4, 0, 3}, nn.NewLeakyReLU[*cpu.CPUBackend](0.2).Forward(x).Data(), 1e-6)
	assert.InDelta(t, 0.5, nn.NewSigmoid[*cpu.CPUBackend]().Forward(x).Data()[1], 1e-6)
	assert.InDelta(t, math.Tanh(3), nn.NewTanh[*cpu.CPUBackend]().Forward(x).Data()[2], 1e-6)
}

func TestLosses_PlainBackend(t *testing.T) {
	b := cpu.New()
	half := tensor.Full[float32](tensor.Shape{4, 1}, 0.5, b)
	ones := tensor.Ones[float32](tensor.Shape{4, 1}, b)
	zeros := tensor.Zeros[float32](tensor.Shape{4, 1}, b)

	assert.InDelta(t, math.Ln2, nn.NewBCELoss[*cpu.CPUBackend]().Forward(half, ones).Item(), 1e-6)
	assert.InDelta(t, math.Ln2, nn.NewBCEWithLogitsLoss[*cpu.CPUBackend]().Forward(zeros, ones).Item(), 1e-6)
	assert.InDelta(t, 0.5, nn.NewL1Loss[*cpu.CPUBackend]().Forward(half, ones).Item(), 1e-6)
	assert.InDelta(t, 0.25, nn.NewMSELoss[*cpu.CPUBackend]().Forward(half, zeros).Item(), 1e-6)

	logits := tensor.Zeros[float32](tensor.Shape{2, 5}, b)
	labels, err := tensor.FromSlice([]int64{0, 4}, tensor.Shape{2}, b)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(5), nn.NewCrossEntropyLoss[*cpu.CPUBackend]().Forward(logits, labels).Item(), 1e-6)
}

func TestInitNormal(t *testing.T) {
	b := cpu.New()
	layer := nn.NewLinear(64, 64, b, rand.New(rand.NewSource(1)))
	layer.Bias().Tensor().Raw().Fill(3)

	nn.InitNormal(layer.Parameters(), 0.02, rand.New(rand.NewSource(2)))

	var sum, sq float64
	w := layer.Weight().Tensor().Data()
	for _, v := range w {
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	n := float64(len(w))
	std := math.Sqrt(sq/n - (sum/n)*(sum/n))
	assert.InDelta(t, 0.02, std, 0.002)
	assert.Equal(t, make([]float32, 64), layer.Bias().Tensor().Data())
}
