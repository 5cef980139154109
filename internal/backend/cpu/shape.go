package cpu

import (
	"fmt"

	"github.com/born-ml/gantrain/internal/tensor"
)

// Reshape copies x into newShape. A single -1 dimension is inferred.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape, err := inferShape(newShape, x.NumElements())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	out, err := x.Clone().WithShape(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return out
}

func inferShape(shape tensor.Shape, n int) (tensor.Shape, error) {
	out := shape.Clone()
	inferred := -1
	known := 1
	for i, d := range out {
		if d == -1 {
			if inferred >= 0 {
				return nil, fmt.Errorf("only one dimension can be inferred in %v", shape)
			}
			inferred = i
			continue
		}
		known *= d
	}
	if inferred >= 0 {
		if known == 0 || n%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension of %v for %d elements", shape, n)
		}
		out[inferred] = n / known
	}
	if out.NumElements() != n {
		return nil, fmt.Errorf("cannot reshape %d elements into %v", n, shape)
	}
	return out, nil
}

// Transpose permutes dimensions. Works on any dtype since it moves bytes.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", rank, len(axes)))
	}

	seen := make([]bool, rank)
	outShape := make(tensor.Shape, rank)
	for i, ax := range axes {
		if ax < 0 || ax >= rank || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	result := tensor.MustRaw(outShape, x.DType(), cpu.device)
	es := x.DType().Size()
	src, dst := x.Data(), result.Data()
	inStrides := x.Strides()
	outStrides := outShape.ComputeStrides()

	for i := range x.NumElements() {
		rem, off := i, 0
		for d := range rank {
			idx := rem / outStrides[d]
			rem %= outStrides[d]
			off += idx * inStrides[axes[d]]
		}
		copy(dst[i*es:(i+1)*es], src[off*es:(off+1)*es])
	}
	return result
}

// splitAt returns the element counts before, at and after dim.
func splitAt(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}

// Cat concatenates tensors along dim; all other dimensions must agree.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors")
	}
	first := tensors[0].Shape()
	dim = tensor.NormalizeDim(dim, len(first))

	outShape := first.Clone()
	outShape[dim] = 0
	for _, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) || t.DType() != tensors[0].DType() {
			panic(fmt.Sprintf("cat: incompatible tensors %v and %v", first, s))
		}
		for i := range s {
			if i != dim && s[i] != first[i] {
				panic(fmt.Sprintf("cat: shape mismatch %v vs %v at dimension %d", first, s, i))
			}
		}
		outShape[dim] += s[dim]
	}

	result := tensor.MustRaw(outShape, tensors[0].DType(), cpu.device)
	es := tensors[0].DType().Size()
	outer, total, inner := splitAt(outShape, dim)
	dst := result.Data()

	offset := 0
	for _, t := range tensors {
		size := t.Shape()[dim]
		src := t.Data()
		chunk := size * inner * es
		for o := range outer {
			dstStart := (o*total + offset) * inner * es
			copy(dst[dstStart:dstStart+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += size
	}
	return result
}

// Narrow copies [start, start+length) along dim.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension %d of %v", start, start+length, dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result := tensor.MustRaw(outShape, x.DType(), cpu.device)

	es := x.DType().Size()
	outer, size, inner := splitAt(shape, dim)
	src, dst := x.Data(), result.Data()
	chunk := length * inner * es
	for o := range outer {
		srcStart := (o*size + start) * inner * es
		copy(dst[o*chunk:(o+1)*chunk], src[srcStart:srcStart+chunk])
	}
	return result
}
