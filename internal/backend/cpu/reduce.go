package cpu

import (
	"github.com/born-ml/gantrain/internal/tensor"
)

// Sum adds every element into a 0-d scalar. Accumulates in float64.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("sum", x)
	var acc float64
	for _, v := range x.AsFloat32() {
		acc += float64(v)
	}
	return tensor.Scalar(float32(acc), cpu.device)
}

// SumDim reduces along dim. Without keepDim the dimension is dropped.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	requireFloat32("sum_dim", x)
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))
	outer, size, inner := splitAt(shape, dim)

	var outShape tensor.Shape
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}
	if outShape == nil {
		outShape = tensor.Shape{}
	}

	result := tensor.MustRaw(outShape, tensor.Float32, cpu.device)
	in, out := x.AsFloat32(), result.AsFloat32()
	for o := range outer {
		for j := range inner {
			var acc float64
			for s := range size {
				acc += float64(in[(o*size+s)*inner+j])
			}
			out[o*inner+j] = float32(acc)
		}
	}
	return result
}
