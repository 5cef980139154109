package ops

import (
	"math"

	"github.com/born-ml/gantrain/internal/tensor"
)

// MulScalarOp is output = x * s.
type MulScalarOp struct {
	node
	scalar float64
}

func NewMulScalarOp(input, output *tensor.RawTensor, s float64) *MulScalarOp {
	return &MulScalarOp{node: newNode(output, input), scalar: s}
}

func (op *MulScalarOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(grad, op.scalar)}
}

// AddScalarOp is output = x + s; the gradient passes through.
type AddScalarOp struct{ node }

func NewAddScalarOp(input, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{newNode(output, input)}
}

func (op *AddScalarOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{grad}
}

// ExpOp: d exp(x) = exp(x), read back from the output.
type ExpOp struct{ node }

func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{newNode(output, input)}
}

func (op *ExpOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(grad, op.output)}
}

// LogOp: d log(x) = 1/x.
type LogOp struct{ node }

func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{newNode(output, input)}
}

func (op *LogOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(grad, op.inputs[0])}
}

// AbsOp: d|x| = sign(x), with sign(0) = 0.
type AbsOp struct{ node }

func NewAbsOp(input, output *tensor.RawTensor) *AbsOp {
	return &AbsOp{newNode(output, input)}
}

func (op *AbsOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapGrad(grad, op.inputs[0], func(g, x float32) float32 {
		return g * sign(x)
	})}
}

// ReLUOp passes the gradient where x > 0.
type ReLUOp struct{ node }

func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{newNode(output, input)}
}

func (op *ReLUOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapGrad(grad, op.inputs[0], func(g, x float32) float32 {
		if x > 0 {
			return g
		}
		return 0
	})}
}

// LeakyReLUOp scales the gradient by slope where x <= 0.
type LeakyReLUOp struct {
	node
	slope float32
}

func NewLeakyReLUOp(input, output *tensor.RawTensor, slope float64) *LeakyReLUOp {
	return &LeakyReLUOp{node: newNode(output, input), slope: float32(slope)}
}

func (op *LeakyReLUOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapGrad(grad, op.inputs[0], func(g, x float32) float32 {
		if x > 0 {
			return g
		}
		return g * op.slope
	})}
}

// SigmoidOp: dσ = σ(1-σ), computed from the stored output.
type SigmoidOp struct{ node }

func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{newNode(output, input)}
}

func (op *SigmoidOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapGrad(grad, op.output, func(g, s float32) float32 {
		return g * s * (1 - s)
	})}
}

// TanhOp: d tanh = 1 - tanh², computed from the stored output.
type TanhOp struct{ node }

func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{newNode(output, input)}
}

func (op *TanhOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapGrad(grad, op.output, func(g, t float32) float32 {
		return g * (1 - t*t)
	})}
}

func sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
