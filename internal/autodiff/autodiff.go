// Package autodiff implements reverse-mode automatic differentiation as a
// backend decorator.
//
// AutodiffBackend wraps any tensor.Backend, forwards every computation to it
// and records the differentiable ones on a GradientTape. Parameters are
// registered with Watch; only computations that descend from a watched tensor
// are recorded.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().Watch(w.Raw())
//	backend.Tape().StartRecording()
//	loss := x.MatMul(w).Sum()
//	grads := backend.Backward(loss.Raw())
//	dw := grads[w.Raw()]
package autodiff

import (
	"github.com/born-ml/gantrain/internal/autodiff/ops"
	"github.com/born-ml/gantrain/internal/tensor"
)

// AutodiffBackend wraps a Backend and records operations for backpropagation.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an AutodiffBackend around backend with an idle tape.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape exposes the gradient tape for recording control and parameter registration.
func (b *AutodiffBackend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B { return b.inner }

func (b *AutodiffBackend[B]) Name() string          { return "Autodiff(" + b.inner.Name() + ")" }
func (b *AutodiffBackend[B]) Device() tensor.Device { return b.inner.Device() }

func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewAddOp(a, c, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewSubOp(a, c, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewMulOp(a, c, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewDivOp(a, c, result))
	}
	return result
}

func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewMatMulOp(a, c, result))
	}
	return result
}

// Reshape is recorded even though it is shape-only: the backend copies, so
// the result is a new tensor and gradients must be routed back explicitly.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	if b.tape.wants(t) {
		b.tape.Record(ops.NewReshapeOp(t, result))
	}
	return result
}

// Transpose is recorded for the same reason as Reshape. Linear computes
// x @ Wᵀ and the weight gradient has to find its way back to W.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	result := b.inner.Transpose(t, axes...)
	if b.tape.wants(t) {
		b.tape.Record(ops.NewTransposeOp(t, result, axes))
	}
	return result
}

func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, s)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewMulScalarOp(x, result, s))
	}
	return result
}

func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	result := b.inner.AddScalar(x, s)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewAddScalarOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Exp(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewExpOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Log(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewLogOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Abs(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewAbsOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewReLUOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) LeakyReLU(x *tensor.RawTensor, slope float64) *tensor.RawTensor {
	result := b.inner.LeakyReLU(x, slope)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewLeakyReLUOp(x, result, slope))
	}
	return result
}

func (b *AutodiffBackend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sigmoid(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewSigmoidOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Tanh(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewTanhOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewSumOp(x, result))
	}
	return result
}

func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	}
	return result
}

func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Cat(tensors, dim)
	if b.tape.wants(tensors...) {
		b.tape.Record(ops.NewCatOp(tensors, result, dim))
	}
	return result
}

func (b *AutodiffBackend[B]) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	result := b.inner.Narrow(x, dim, start, length)
	if b.tape.wants(x) {
		b.tape.Record(ops.NewNarrowOp(x, result, dim, start))
	}
	return result
}
