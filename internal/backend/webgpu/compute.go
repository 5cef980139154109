//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// pipeline compiles code once per name and caches the compute pipeline.
func (b *Backend) pipeline(name, code string) *wgpu.ComputePipeline {
	b.mu.RLock()
	if p, ok := b.pipelines[name]; ok {
		b.mu.RUnlock()
		return p
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pipelines[name]; ok {
		return p
	}
	shader := b.device.CreateShaderModuleWGSL(code)
	b.shaders[name] = shader
	p := b.device.CreateComputePipelineSimple(nil, shader, "main")
	b.pipelines[name] = p
	return p
}

// upload creates a storage buffer holding data.
func (b *Backend) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mapped), size), data)
	buffer.Unmap()
	return buffer
}

// uniform packs u32 parameters into a 16-byte aligned uniform buffer.
func (b *Backend) uniform(values ...uint32) *wgpu.Buffer {
	size := (uint64(4*len(values)) + 15) &^ 15
	data := make([]byte, size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	return b.upload(data, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

// readback copies a storage buffer to host memory through a staging buffer.
func (b *Backend) readback(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	out := append([]byte(nil), unsafe.Slice((*byte)(mapped), size)...)
	staging.Unmap()
	return out, nil
}

// dispatch binds inputs, an output of outSize bytes and params to the
// named shader, runs it over groups workgroups and reads the output back.
func (b *Backend) dispatch(name, code string, inputs []*tensor.RawTensor, outSize uint64, params []uint32, groups [2]uint32) ([]byte, error) {
	p := b.pipeline(name, code)

	entries := make([]wgpu.BindGroupEntry, 0, len(inputs)+2)
	for i, in := range inputs {
		buf := b.upload(in.Data(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
		defer buf.Release()
		//nolint:gosec // G115: ByteSize is non-negative
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), buf, 0, uint64(in.ByteSize())))
	}
	result := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  outSize,
	})
	defer result.Release()
	uni := b.uniform(params...)
	defer uni.Release()
	n := uint32(len(inputs)) //nolint:gosec // G115: at most two inputs
	entries = append(entries,
		wgpu.BufferBindingEntry(n, result, 0, outSize),
		wgpu.BufferBindingEntry(n+1, uni, 0, 16),
	)

	group := b.device.CreateBindGroupSimple(p.GetBindGroupLayout(0), entries)
	defer group.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(groups[0], groups[1], 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	return b.readback(result, outSize)
}

// runElementwise applies a one- or two-input float32 shader.
func (b *Backend) runElementwise(name, code string, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	for _, in := range inputs {
		if in.DType() != tensor.Float32 {
			return nil, fmt.Errorf("webgpu: only float32 is supported, got %s", in.DType())
		}
	}
	ref := inputs[0]
	n := ref.NumElements()
	//nolint:gosec // G115: element counts are non-negative
	data, err := b.dispatch(name, code, inputs, uint64(ref.ByteSize()), []uint32{uint32(n)},
		[2]uint32{uint32((n + workgroupSize - 1) / workgroupSize), 1})
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(ref.Shape(), tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// runMatMul computes C = A @ B for A [M, K] and B [K, N].
func (b *Backend) runMatMul(a, other *tensor.RawTensor) (*tensor.RawTensor, error) {
	if a.DType() != tensor.Float32 || other.DType() != tensor.Float32 {
		return nil, fmt.Errorf("webgpu: only float32 is supported, got %s and %s", a.DType(), other.DType())
	}
	as, bs := a.Shape(), other.Shape()
	if len(as) != 2 || len(bs) != 2 || as[1] != bs[0] {
		return nil, fmt.Errorf("webgpu: matmul shape mismatch %v @ %v", as, bs)
	}
	m, k, n := as[0], as[1], bs[1]
	if m == 0 || n == 0 {
		return nil, fmt.Errorf("webgpu: empty matmul %v @ %v", as, bs)
	}

	//nolint:gosec // G115: shape dimensions are non-negative
	data, err := b.dispatch("matmul", matmulShader, []*tensor.RawTensor{a, other}, uint64(m*n*4),
		[]uint32{uint32(m), uint32(k), uint32(n)},
		[2]uint32{uint32((n + tile - 1) / tile), uint32((m + tile - 1) / tile)})
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.Shape{m, n}, tensor.Float32, tensor.WebGPU)
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}
