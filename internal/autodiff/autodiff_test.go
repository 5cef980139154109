package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/gantrain/internal/autodiff"
	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

type T = tensor.Tensor[float32, tensor.Backend]

func newBackend() *autodiff.AutodiffBackend[tensor.Backend] {
	return autodiff.New[tensor.Backend](cpu.New())
}

func constant(t *testing.T, b tensor.Backend, data []float32, shape ...int) *T {
	t.Helper()
	x, err := tensor.FromSlice[float32, tensor.Backend](data, tensor.Shape(shape), b)
	require.NoError(t, err)
	return x
}

// gradCheck compares the tape gradient of f at x0 with central finite differences.
func gradCheck(t *testing.T, x0 []float32, shape tensor.Shape, f func(b tensor.Backend, x *T) *T) {
	t.Helper()
	ad := newBackend()
	x := constant(t, ad, x0, shape...)
	ad.Tape().Watch(x.Raw())
	ad.Tape().StartRecording()
	loss := f(ad, x)
	grads := ad.Backward(loss.Raw())
	ad.Tape().StopRecording()

	got, ok := grads[x.Raw()]
	require.True(t, ok, "no gradient reached the input")
	require.Equal(t, shape, got.Shape())

	eval := func(v []float64) float64 {
		data := make([]float32, len(v))
		for i := range v {
			data[i] = float32(v[i])
		}
		return float64(f(ad, constant(t, ad, data, shape...)).Item())
	}
	start := make([]float64, len(x0))
	for i, v := range x0 {
		start[i] = float64(v)
	}
	want := fd.Gradient(nil, eval, start, &fd.Settings{Formula: fd.Central, Step: 1e-2})

	for i, w := range want {
		assert.InDelta(t, w, float64(got.AsFloat32()[i]), 2e-2*math.Max(1, math.Abs(w)), "element %d", i)
	}
}

func TestGradient_BroadcastArithmetic(t *testing.T) {
	gradCheck(t, []float32{0.5, -1, 2}, tensor.Shape{1, 3}, func(b tensor.Backend, bias *T) *T {
		x := constant(t, b, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
		c := constant(t, b, []float32{0.5, 1.5, -2, 1, 1, 3}, 2, 3)
		return x.Add(bias).Mul(c).Sub(bias).Div(x).Sum()
	})
}

func TestGradient_MatMulTranspose(t *testing.T) {
	gradCheck(t, []float32{0.1, -0.2, 0.3, 0.4, 0.5, -0.6}, tensor.Shape{2, 3}, func(b tensor.Backend, w *T) *T {
		x := constant(t, b, []float32{1, 2, 3, -1, 0, 2}, 2, 3)
		h := x.MatMul(w.T())
		return tensor.New[float32, tensor.Backend](b.Tanh(h.Raw()), b).Sum()
	})
}

func TestGradient_Activations(t *testing.T) {
	gradCheck(t, []float32{-1.5, -0.3, 0.4, 2.1}, tensor.Shape{4}, func(b tensor.Backend, x *T) *T {
		y := tensor.New[float32, tensor.Backend](b.LeakyReLU(x.Raw(), 0.2), b)
		s := tensor.New[float32, tensor.Backend](b.Sigmoid(y.Raw()), b)
		r := tensor.New[float32, tensor.Backend](b.ReLU(x.Raw()), b)
		return s.Add(r).Add(x.Abs()).Exp().AddScalar(1).Log().Mean()
	})
}

func TestGradient_ShapeOps(t *testing.T) {
	gradCheck(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, func(b tensor.Backend, x *T) *T {
		head := x.Narrow(1, 1, 2)
		joined := tensor.Cat(1, x, head.MulScalar(3))
		flat := joined.Reshape(-1, 1)
		return flat.Mul(flat).SumDim(0, false).Sum()
	})
}

func TestGradient_SumDimKeep(t *testing.T) {
	gradCheck(t, []float32{1, -2, 3, 0.5}, tensor.Shape{2, 2}, func(b tensor.Backend, x *T) *T {
		rows := x.SumDim(1, true)
		return x.Mul(rows).Sum()
	})
}

func TestGradient_Losses(t *testing.T) {
	ad := newBackend()
	lb := autodiff.LossBackend(ad)

	t.Run("bce_with_logits", func(t *testing.T) {
		gradCheck(t, []float32{-2, 0.5, 1, 3}, tensor.Shape{4, 1}, func(b tensor.Backend, x *T) *T {
			y := constant(t, b, []float32{0, 1, 1, 0}, 4, 1)
			return tensor.New[float32, tensor.Backend](b.(autodiff.LossBackend).BCEWithLogits(x.Raw(), y.Raw()), b)
		})
	})
	t.Run("bce", func(t *testing.T) {
		gradCheck(t, []float32{0.2, 0.7, 0.4}, tensor.Shape{3}, func(b tensor.Backend, p *T) *T {
			y := constant(t, b, []float32{0, 1, 1}, 3)
			return tensor.New[float32, tensor.Backend](b.(autodiff.LossBackend).BCE(p.Raw(), y.Raw()), b)
		})
	})
	t.Run("cross_entropy", func(t *testing.T) {
		gradCheck(t, []float32{1, 2, 0.5, -1, 0, 3}, tensor.Shape{2, 3}, func(b tensor.Backend, x *T) *T {
			labels, err := tensor.FromSlice[int64, tensor.Backend]([]int64{1, 2}, tensor.Shape{2}, b)
			require.NoError(t, err)
			return tensor.New[float32, tensor.Backend](b.(autodiff.LossBackend).CrossEntropy(x.Raw(), labels.Raw()), b)
		})
	})
	t.Run("l1", func(t *testing.T) {
		gradCheck(t, []float32{0.5, -1, 2}, tensor.Shape{3}, func(b tensor.Backend, x *T) *T {
			y := constant(t, b, []float32{0, 0, 0}, 3)
			return tensor.New[float32, tensor.Backend](b.(autodiff.LossBackend).L1(x.Raw(), y.Raw()), b)
		})
	})
	t.Run("mse", func(t *testing.T) {
		gradCheck(t, []float32{0.5, -1, 2}, tensor.Shape{3}, func(b tensor.Backend, x *T) *T {
			y := constant(t, b, []float32{1, 1, 1}, 3)
			return tensor.New[float32, tensor.Backend](b.(autodiff.LossBackend).MSE(y.Raw(), x.Raw()), b)
		})
	})

	// BCE stays finite at the saturated ends.
	p := constant(t, ad, []float32{0, 1}, 2)
	y := constant(t, ad, []float32{1, 0}, 2)
	loss := lb.BCE(p.Raw(), y.Raw()).AsFloat32()[0]
	assert.InDelta(t, 100, loss, 1e-4)
}

func TestBCEWithLogits_ZeroLogitsIsLn2(t *testing.T) {
	ad := newBackend()
	x := tensor.Zeros[float32, tensor.Backend](tensor.Shape{4, 1}, ad)
	for _, target := range []float32{0, 1} {
		y := tensor.Full[float32, tensor.Backend](tensor.Shape{4, 1}, target, ad)
		loss := ad.BCEWithLogits(x.Raw(), y.Raw()).AsFloat32()[0]
		assert.InDelta(t, math.Ln2, loss, 1e-6)
	}
}

func TestBackward_SharedInputAccumulates(t *testing.T) {
	ad := newBackend()
	x := constant(t, ad, []float32{3}, 1)
	ad.Tape().Watch(x.Raw())
	ad.Tape().StartRecording()

	grads := ad.Backward(x.Mul(x).Sum().Raw())

	assert.InDelta(t, 6, grads[x.Raw()].AsFloat32()[0], 1e-6)
}

func TestDetach_CutsGradientFlow(t *testing.T) {
	ad := newBackend()
	x := constant(t, ad, []float32{1, 2}, 2)
	w := constant(t, ad, []float32{3, 4}, 2)
	ad.Tape().Watch(x.Raw())
	ad.Tape().Watch(w.Raw())
	ad.Tape().StartRecording()

	hidden := x.Mul(x)
	loss := hidden.Detach().Mul(w).Sum()
	grads := ad.Backward(loss.Raw())

	_, reachedX := grads[x.Raw()]
	assert.False(t, reachedX)
	require.Contains(t, grads, w.Raw())
	assert.Equal(t, []float32{1, 4}, grads[w.Raw()].AsFloat32())
}

func TestTape_RecordsOnlyTrackedWork(t *testing.T) {
	ad := newBackend()
	tape := ad.Tape()
	tape.StartRecording()

	a := constant(t, ad, []float32{1, 2}, 2)
	_ = a.Add(a).Sum()
	assert.Zero(t, tape.NumOps(), "constants must not be recorded")

	tape.Watch(a.Raw())
	y := a.Add(a)
	assert.Equal(t, 1, tape.NumOps())
	assert.True(t, tape.Tracked(y.Raw()))

	tape.Clear()
	assert.Zero(t, tape.NumOps())
	assert.False(t, tape.Tracked(y.Raw()))
	assert.True(t, tape.Tracked(a.Raw()), "watched tensors survive Clear")

	tape.Unwatch(a.Raw())
	assert.False(t, tape.Tracked(a.Raw()))
}

func TestNoGrad(t *testing.T) {
	ad := newBackend()
	x := constant(t, ad, []float32{1}, 1)
	ad.Tape().Watch(x.Raw())
	ad.Tape().StartRecording()

	ad.NoGrad(func() {
		_ = x.Mul(x)
	})

	assert.Zero(t, ad.Tape().NumOps())
	assert.True(t, ad.Tape().IsRecording())
}

func TestBackward_UntrackedRootIsEmpty(t *testing.T) {
	ad := newBackend()
	x := constant(t, ad, []float32{1, 2}, 2)
	assert.Empty(t, ad.Backward(x.Sum().Raw()))
}
