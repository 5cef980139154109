package ops

import "github.com/born-ml/gantrain/internal/tensor"

// SumOp reduces everything to a scalar; backward broadcasts the scalar back.
type SumOp struct{ node }

func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{newNode(output, input)}
}

func (op *SumOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	zeros := zerosLike(op.inputs[0].Shape(), grad.Device())
	return []*tensor.RawTensor{backend.Add(zeros, grad)}
}

// SumDimOp reduces along dim; backward broadcasts along the same dim.
type SumDimOp struct {
	node
	dim     int
	keepDim bool
}

func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	dim = tensor.NormalizeDim(dim, len(input.Shape()))
	return &SumDimOp{node: newNode(output, input), dim: dim, keepDim: keepDim}
}

func (op *SumDimOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inShape := op.inputs[0].Shape()
	if !op.keepDim {
		kept := inShape.Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	zeros := zerosLike(inShape, grad.Device())
	return []*tensor.RawTensor{backend.Add(zeros, grad)}
}
