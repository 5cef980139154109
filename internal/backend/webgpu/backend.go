//go:build windows

// Package webgpu runs the heavy tensor operations on a GPU through WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Matrix products and large element-wise operations are dispatched as WGSL
// compute shaders; everything else falls through to the embedded CPU
// backend. Tensor data stays in host memory between operations.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// DefaultMinElements is the smallest element-wise workload sent to the GPU.
// Below it the upload and readback cost more than the CPU loop.
const DefaultMinElements = 1 << 14

// Backend implements tensor.Backend on top of a WebGPU device.
type Backend struct {
	*cpu.CPUBackend

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	// MinElements routes smaller element-wise operations to the CPU.
	MinElements int
}

var _ tensor.Backend = (*Backend)(nil)

// New creates a WebGPU backend. It returns an error when no adapter or
// native library is available.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: native library not available: %v", ErrUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrUnavailable, adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrUnavailable, deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: no queue", ErrUnavailable)
	}

	return &Backend{
		CPUBackend:  cpu.New(),
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		MinElements: DefaultMinElements,
	}, nil
}

// Release frees every WebGPU object. The backend must not be used after.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *Backend) Name() string          { return "WebGPU" }
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// MatMul multiplies on the GPU, falling back to the CPU on dispatch errors.
func (b *Backend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	out, err := b.runMatMul(a, other)
	if err != nil {
		return b.CPUBackend.MatMul(a, other)
	}
	return out
}

func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(a, other, "add", addShader, b.CPUBackend.Add)
}

func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(a, other, "sub", subShader, b.CPUBackend.Sub)
}

func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(a, other, "mul", mulShader, b.CPUBackend.Mul)
}

func (b *Backend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(a, other, "div", divShader, b.CPUBackend.Div)
}

func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "relu", reluShader, b.CPUBackend.ReLU)
}

func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "sigmoid", sigmoidShader, b.CPUBackend.Sigmoid)
}

func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "tanh", tanhShader, b.CPUBackend.Tanh)
}

func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(x, "exp", expShader, b.CPUBackend.Exp)
}

// binary dispatches same-shape operations above MinElements; broadcasting
// and small inputs run on the CPU.
func (b *Backend) binary(a, other *tensor.RawTensor, name, code string, fallback func(a, b *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if a.NumElements() < b.MinElements || !a.Shape().Equal(other.Shape()) {
		return fallback(a, other)
	}
	out, err := b.runElementwise(name, code, a, other)
	if err != nil {
		return fallback(a, other)
	}
	return out
}

func (b *Backend) unary(x *tensor.RawTensor, name, code string, fallback func(x *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if x.NumElements() < b.MinElements {
		return fallback(x)
	}
	out, err := b.runElementwise(name, code, x)
	if err != nil {
		return fallback(x)
	}
	return out
}
