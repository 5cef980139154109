package cpu_test

import (
	"testing"

	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), data)
	return r
}

func TestCPUBackend_New(t *testing.T) {
	b := cpu.New()
	assert.Equal(t, "CPU", b.Name())
	assert.Equal(t, tensor.CPU, b.Device())
	assert.GreaterOrEqual(t, b.Workers(), 1)
}

func TestAdd_Broadcast(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2, 3}, 3, 1)
	y := raw(t, []float32{10, 20}, 1, 2)

	out := b.Add(x, y)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{11, 21, 12, 22, 13, 23}, out.AsFloat32())
}

func TestBinary_SameShape(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{6, 8}, 2)
	y := raw(t, []float32{2, 4}, 2)

	assert.Equal(t, []float32{4, 4}, b.Sub(x, y).AsFloat32())
	assert.Equal(t, []float32{12, 32}, b.Mul(x, y).AsFloat32())
	assert.Equal(t, []float32{3, 2}, b.Div(x, y).AsFloat32())
}

func TestBinary_InputsUntouched(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2}, 2)
	y := raw(t, []float32{3, 4}, 2)
	_ = b.Add(x, y)
	assert.Equal(t, []float32{1, 2}, x.AsFloat32())
	assert.Equal(t, []float32{3, 4}, y.AsFloat32())
}

func TestMatMul(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	y := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	out := b.MatMul(x, y)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())
}

func TestMatMul_ShapeMismatchPanics(t *testing.T) {
	b := cpu.New()
	assert.Panics(t, func() {
		b.MatMul(raw(t, make([]float32, 6), 2, 3), raw(t, make([]float32, 4), 2, 2))
	})
}

func TestTranspose(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	out := b.Transpose(x)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())
}

func TestReshape_Infer(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	out := b.Reshape(x, tensor.Shape{-1, 2})
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	out.AsFloat32()[0] = 99
	assert.Equal(t, float32(1), x.AsFloat32()[0], "reshape must not alias its input")
}

func TestCatAndNarrow(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4}, 2, 2)
	y := raw(t, []float32{5, 6}, 2, 1)

	cat := b.Cat([]*tensor.RawTensor{x, y}, 1)
	assert.Equal(t, tensor.Shape{2, 3}, cat.Shape())
	assert.Equal(t, []float32{1, 2, 5, 3, 4, 6}, cat.AsFloat32())

	back := b.Narrow(cat, 1, 2, 1)
	assert.Equal(t, []float32{5, 6}, back.AsFloat32())

	rows := b.Cat([]*tensor.RawTensor{x, x}, 0)
	assert.Equal(t, tensor.Shape{4, 2}, rows.Shape())
	assert.Equal(t, []float32{3, 4}, b.Narrow(rows, 0, 1, 1).AsFloat32())
}

func TestSumDim(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	rows := b.SumDim(x, 1, false)
	assert.Equal(t, tensor.Shape{2}, rows.Shape())
	assert.Equal(t, []float32{6, 15}, rows.AsFloat32())

	cols := b.SumDim(x, 0, true)
	assert.Equal(t, tensor.Shape{1, 3}, cols.Shape())
	assert.Equal(t, []float32{5, 7, 9}, cols.AsFloat32())

	total := b.Sum(x)
	assert.Empty(t, total.Shape())
	assert.Equal(t, float32(21), total.AsFloat32()[0])
}

func TestActivations(t *testing.T) {
	b := cpu.New()
	x := raw(t, []float32{-2, 0, 3}, 3)

	assert.Equal(t, []float32{0, 0, 3}, b.ReLU(x).AsFloat32())
	assert.InDeltaSlice(t, []float32{-0.4, 0, 3}, b.LeakyReLU(x, 0.2).AsFloat32(), 1e-6)
	assert.InDelta(t, 0.5, b.Sigmoid(x).AsFloat32()[1], 1e-7)
	assert.InDelta(t, 0, b.Tanh(x).AsFloat32()[1], 1e-7)
	assert.Equal(t, []float32{2, 0, 3}, b.Abs(x).AsFloat32())
}

func TestSigmoid64_Extremes(t *testing.T) {
	assert.InDelta(t, 1.0, cpu.Sigmoid64(800), 1e-12)
	assert.InDelta(t, 0.0, cpu.Sigmoid64(-800), 1e-12)
}
