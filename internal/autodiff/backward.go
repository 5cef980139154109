package autodiff

import (
	"fmt"

	"github.com/born-ml/gantrain/internal/autodiff/ops"
	"github.com/born-ml/gantrain/internal/tensor"
)

// BackwardCapable is implemented by backends that can backpropagate.
type BackwardCapable interface {
	tensor.Backend
	Tape() *GradientTape
	Backward(root *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor
}

// LossBackend is implemented by backends that provide fused, differentiable
// loss kernels. Every method returns a 0-d mean loss.
type LossBackend interface {
	BCEWithLogits(logits, targets *tensor.RawTensor) *tensor.RawTensor
	BCE(probs, targets *tensor.RawTensor) *tensor.RawTensor
	CrossEntropy(logits, labels *tensor.RawTensor) *tensor.RawTensor
	L1(a, c *tensor.RawTensor) *tensor.RawTensor
	MSE(a, c *tensor.RawTensor) *tensor.RawTensor
}

var (
	_ BackwardCapable = (*AutodiffBackend[tensor.Backend])(nil)
	_ LossBackend     = (*AutodiffBackend[tensor.Backend])(nil)
)

// Backward seeds root with ones and returns dL/dx for every tracked x that
// root depends on. Parameters that root does not reach are absent.
func (b *AutodiffBackend[B]) Backward(root *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	if root.DType() != tensor.Float32 {
		panic(fmt.Sprintf("backward: unsupported dtype %s", root.DType()))
	}
	seed := tensor.MustRaw(root.Shape(), tensor.Float32, root.Device())
	seed.Fill(1)
	return b.tape.Backward(root, seed, b.inner)
}

// NoGrad runs fn with recording paused. Used for sampling, rendering and
// anything else that must not leave operations on the tape.
func (b *AutodiffBackend[B]) NoGrad(fn func()) {
	was := b.tape.IsRecording()
	b.tape.StopRecording()
	defer func() {
		if was {
			b.tape.StartRecording()
		}
	}()
	fn()
}

func (b *AutodiffBackend[B]) BCEWithLogits(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	result := ops.BCEWithLogitsForward(logits, targets)
	if b.tape.wants(logits) {
		b.tape.Record(ops.NewBCEWithLogitsOp(logits, targets, result))
	}
	return result
}

func (b *AutodiffBackend[B]) BCE(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	result := ops.BCEForward(probs, targets)
	if b.tape.wants(probs) {
		b.tape.Record(ops.NewBCEOp(probs, targets, result))
	}
	return result
}

func (b *AutodiffBackend[B]) CrossEntropy(logits, labels *tensor.RawTensor) *tensor.RawTensor {
	result := ops.CrossEntropyForward(logits, labels)
	if b.tape.wants(logits) {
		b.tape.Record(ops.NewCrossEntropyOp(logits, labels, result))
	}
	return result
}

func (b *AutodiffBackend[B]) L1(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := ops.L1Forward(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewL1Op(a, c, result))
	}
	return result
}

func (b *AutodiffBackend[B]) MSE(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := ops.MSEForward(a, c)
	if b.tape.wants(a, c) {
		b.tape.Record(ops.NewMSEOp(a, c, result))
	}
	return result
}
