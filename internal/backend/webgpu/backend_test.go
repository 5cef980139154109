//go:build windows

package webgpu_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/backend/webgpu"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *webgpu.Backend {
	t.Helper()
	b, err := webgpu.New()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func random(t *testing.T, rng *rand.Rand, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	data := r.AsFloat32()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return r
}

func TestBackend_MatMulMatchesCPU(t *testing.T) {
	b := newBackend(t)
	assert.Equal(t, tensor.WebGPU, b.Device())

	rng := rand.New(rand.NewSource(1))
	x, y := random(t, rng, 33, 17), random(t, rng, 17, 9)
	want := cpu.New().MatMul(x, y)
	got := b.MatMul(x, y)
	assert.Equal(t, want.Shape(), got.Shape())
	assert.InDeltaSlice(t, want.AsFloat32(), got.AsFloat32(), 1e-4)
}

func TestBackend_ElementwiseMatchesCPU(t *testing.T) {
	b := newBackend(t)
	b.MinElements = 1

	rng := rand.New(rand.NewSource(2))
	x, y := random(t, rng, 4, 300), random(t, rng, 4, 300)
	ref := cpu.New()
	assert.InDeltaSlice(t, ref.Add(x, y).AsFloat32(), b.Add(x, y).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, ref.Mul(x, y).AsFloat32(), b.Mul(x, y).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, ref.Tanh(x).AsFloat32(), b.Tanh(x).AsFloat32(), 1e-5)

	// Broadcasting stays on the CPU.
	row := random(t, rng, 1, 300)
	assert.InDeltaSlice(t, ref.Sub(x, row).AsFloat32(), b.Sub(x, row).AsFloat32(), 1e-6)
}
