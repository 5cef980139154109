package nn

import (
	"github.com/born-ml/gantrain/internal/autodiff"
	"github.com/born-ml/gantrain/internal/autodiff/ops"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Every loss returns a 0-d mean. On a backend implementing
// autodiff.LossBackend the fused kernel is used and recorded; on a plain
// backend the value is computed without a graph.

// BCELoss is binary cross-entropy on probabilities. Log terms are clamped
// at -100 so saturated probabilities stay finite.
type BCELoss[B tensor.Backend] struct{}

func NewBCELoss[B tensor.Backend]() *BCELoss[B] { return &BCELoss[B]{} }

func (*BCELoss[B]) Forward(probs, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := probs.Backend()
	if lb, ok := any(b).(autodiff.LossBackend); ok {
		return tensor.New[float32, B](lb.BCE(probs.Raw(), targets.Raw()), b)
	}
	return tensor.New[float32, B](ops.BCEForward(probs.Raw(), targets.Raw()), b)
}

// BCEWithLogitsLoss fuses the sigmoid into BCE for numerical stability.
type BCEWithLogitsLoss[B tensor.Backend] struct{}

func NewBCEWithLogitsLoss[B tensor.Backend]() *BCEWithLogitsLoss[B] { return &BCEWithLogitsLoss[B]{} }

func (*BCEWithLogitsLoss[B]) Forward(logits, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := logits.Backend()
	if lb, ok := any(b).(autodiff.LossBackend); ok {
		return tensor.New[float32, B](lb.BCEWithLogits(logits.Raw(), targets.Raw()), b)
	}
	return tensor.New[float32, B](ops.BCEWithLogitsForward(logits.Raw(), targets.Raw()), b)
}

// CrossEntropyLoss is softmax cross-entropy over [batch, classes] logits.
type CrossEntropyLoss[B tensor.Backend] struct{}

func NewCrossEntropyLoss[B tensor.Backend]() *CrossEntropyLoss[B] { return &CrossEntropyLoss[B]{} }

func (*CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], labels *tensor.Tensor[int64, B]) *tensor.Tensor[float32, B] {
	b := logits.Backend()
	if lb, ok := any(b).(autodiff.LossBackend); ok {
		return tensor.New[float32, B](lb.CrossEntropy(logits.Raw(), labels.Raw()), b)
	}
	return tensor.New[float32, B](ops.CrossEntropyForward(logits.Raw(), labels.Raw()), b)
}

// L1Loss is mean absolute error.
type L1Loss[B tensor.Backend] struct{}

func NewL1Loss[B tensor.Backend]() *L1Loss[B] { return &L1Loss[B]{} }

func (*L1Loss[B]) Forward(predictions, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := predictions.Backend()
	if lb, ok := any(b).(autodiff.LossBackend); ok {
		return tensor.New[float32, B](lb.L1(predictions.Raw(), targets.Raw()), b)
	}
	return tensor.New[float32, B](ops.L1Forward(predictions.Raw(), targets.Raw()), b)
}

// MSELoss is mean squared error.
type MSELoss[B tensor.Backend] struct{}

func NewMSELoss[B tensor.Backend]() *MSELoss[B] { return &MSELoss[B]{} }

func (*MSELoss[B]) Forward(predictions, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	b := predictions.Backend()
	if lb, ok := any(b).(autodiff.LossBackend); ok {
		return tensor.New[float32, B](lb.MSE(predictions.Raw(), targets.Raw()), b)
	}
	return tensor.New[float32, B](ops.MSEForward(predictions.Raw(), targets.Raw()), b)
}
