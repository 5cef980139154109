package ops

import "github.com/born-ml/gantrain/internal/tensor"

// TransposeOp permutes dimensions; backward applies the inverse permutation.
type TransposeOp struct {
	node
	axes []int
}

func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	rank := len(input.Shape())
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	return &TransposeOp{node: newNode(output, input), axes: append([]int(nil), axes...)}
}

func (op *TransposeOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(grad, inverse...)}
}

// ReshapeOp changes the shape; backward restores the input shape.
type ReshapeOp struct{ node }

func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{newNode(output, input)}
}

func (op *ReshapeOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(grad, op.inputs[0].Shape())}
}

// CatOp concatenates along dim; backward narrows the gradient back into pieces.
type CatOp struct {
	node
	dim int
}

func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	dim = tensor.NormalizeDim(dim, len(output.Shape()))
	return &CatOp{node: newNode(output, inputs...), dim: dim}
}

func (op *CatOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	start := 0
	for i, in := range op.inputs {
		size := in.Shape()[op.dim]
		grads[i] = backend.Narrow(grad, op.dim, start, size)
		start += size
	}
	return grads
}

// NarrowOp slices [start, start+length) along dim; backward zero-pads the gradient.
type NarrowOp struct {
	node
	dim, start int
}

func NewNarrowOp(input, output *tensor.RawTensor, dim, start int) *NarrowOp {
	dim = tensor.NormalizeDim(dim, len(input.Shape()))
	return &NarrowOp{node: newNode(output, input), dim: dim, start: start}
}

func (op *NarrowOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	length := grad.Shape()[op.dim]
	after := inShape[op.dim] - op.start - length

	pieces := make([]*tensor.RawTensor, 0, 3)
	if op.start > 0 {
		s := inShape.Clone()
		s[op.dim] = op.start
		pieces = append(pieces, zerosLike(s, grad.Device()))
	}
	pieces = append(pieces, grad)
	if after > 0 {
		s := inShape.Clone()
		s[op.dim] = after
		pieces = append(pieces, zerosLike(s, grad.Device()))
	}
	if len(pieces) == 1 {
		return []*tensor.RawTensor{grad}
	}
	return []*tensor.RawTensor{backend.Cat(pieces, op.dim)}
}
