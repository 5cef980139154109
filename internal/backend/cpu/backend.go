// Package cpu implements the float32 CPU backend: element-wise loops chunked
// across goroutines and gonum BLAS for matrix products.
package cpu

import (
	"fmt"

	"github.com/born-ml/gantrain/internal/parallel"
	"github.com/born-ml/gantrain/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a CPU backend using every logical core.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{device: tensor.CPU, par: cfg}
}

func (cpu *CPUBackend) Name() string          { return "CPU" }
func (cpu *CPUBackend) Device() tensor.Device { return cpu.device }

// Workers reports the configured goroutine fan-out.
func (cpu *CPUBackend) Workers() int {
	if !cpu.par.Enabled {
		return 1
	}
	return cpu.par.NumWorkers
}

func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// binary applies f element-wise with NumPy broadcasting.
func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	requireFloat32(op, a)
	requireFloat32(op, b)

	outShape, expanded, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	result := tensor.MustRaw(outShape, tensor.Float32, cpu.device)
	out, av, bv := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()

	if !expanded {
		parallel.For(len(out), func(i int) {
			out[i] = f(av[i], bv[i])
		}, cpu.par)
		return result
	}

	aStrides := tensor.BroadcastStrides(a.Shape(), outShape)
	bStrides := tensor.BroadcastStrides(b.Shape(), outShape)
	outStrides := outShape.ComputeStrides()
	parallel.For(len(out), func(i int) {
		ai, bi, rem := 0, 0, i
		for d, st := range outStrides {
			idx := rem / st
			rem %= st
			ai += idx * aStrides[d]
			bi += idx * bStrides[d]
		}
		out[i] = f(av[ai], bv[bi])
	}, cpu.par)
	return result
}

// unary applies f element-wise into a new tensor of the same shape.
func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f func(v float32) float32) *tensor.RawTensor {
	requireFloat32(op, x)
	result := tensor.MustRaw(x.Shape(), tensor.Float32, cpu.device)
	out, in := result.AsFloat32(), x.AsFloat32()
	parallel.For(len(out), func(i int) {
		out[i] = f(in[i])
	}, cpu.par)
	return result
}

func requireFloat32(op string, x *tensor.RawTensor) {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: only float32 is supported, got %s", op, x.DType()))
	}
}
