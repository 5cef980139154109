package autodiff

import (
	"github.com/born-ml/gantrain/internal/autodiff/ops"
	"github.com/born-ml/gantrain/internal/tensor"
)

// GradientTape records operations during the forward pass and replays them
// in reverse to compute gradients.
//
// Only operations that touch a watched tensor (a parameter) or the output of
// an earlier recorded operation are kept. Everything else is a constant as
// far as the tape is concerned, which is what makes a View-based Detach work:
// the view is a new pointer nobody has recorded.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.Watch(weight.Raw())
//	tape.StartRecording()
//	// ... forward ...
//	grads := tape.Backward(loss.Raw(), seed, backend)
type GradientTape struct {
	operations []ops.Operation
	recording  bool

	// watched survive Clear; tracked is rebuilt every forward pass.
	watched map[*tensor.RawTensor]struct{}
	tracked map[*tensor.RawTensor]struct{}
}

// NewGradientTape creates an empty tape that is not recording.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
		watched:    make(map[*tensor.RawTensor]struct{}),
		tracked:    make(map[*tensor.RawTensor]struct{}),
	}
}

func (t *GradientTape) StartRecording()   { t.recording = true }
func (t *GradientTape) StopRecording()    { t.recording = false }
func (t *GradientTape) IsRecording() bool { return t.recording }
func (t *GradientTape) NumOps() int       { return len(t.operations) }

// Watch marks a tensor as a gradient source. Watched tensors stay watched
// across Clear.
func (t *GradientTape) Watch(raw *tensor.RawTensor) {
	t.watched[raw] = struct{}{}
}

// Unwatch removes a gradient source.
func (t *GradientTape) Unwatch(raw *tensor.RawTensor) {
	delete(t.watched, raw)
}

// Tracked reports whether gradients can flow into raw.
func (t *GradientTape) Tracked(raw *tensor.RawTensor) bool {
	if _, ok := t.watched[raw]; ok {
		return true
	}
	_, ok := t.tracked[raw]
	return ok
}

// wants reports whether an operation over inputs should be recorded.
func (t *GradientTape) wants(inputs ...*tensor.RawTensor) bool {
	if !t.recording {
		return false
	}
	for _, in := range inputs {
		if t.Tracked(in) {
			return true
		}
	}
	return false
}

// Record appends op if recording is on and any of its inputs is tracked.
// The op's output becomes tracked.
func (t *GradientTape) Record(op ops.Operation) {
	if !t.wants(op.Inputs()...) {
		return
	}
	t.operations = append(t.operations, op)
	t.tracked[op.Output()] = struct{}{}
}

// Clear drops recorded operations and intermediate tracking. Watched tensors
// and the recording state are kept.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
	t.tracked = make(map[*tensor.RawTensor]struct{})
}

// Backward seeds root with seed and walks the tape in reverse, accumulating
// dL/dx for every tracked x reachable from root. Recording is paused for the
// duration so gradient arithmetic never lands on the tape.
func (t *GradientTape) Backward(root, seed *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if !t.Tracked(root) {
		return grads
	}

	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	grads[root] = seed
	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}
		t.accumulate(op.Inputs(), op.Backward(outGrad, backend), grads, backend)
	}
	return grads
}

func (t *GradientTape) accumulate(
	inputs, inputGrads []*tensor.RawTensor,
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	backend tensor.Backend,
) {
	for j, input := range inputs {
		if j >= len(inputGrads) || inputGrads[j] == nil || !t.Tracked(input) {
			continue
		}
		if existing, ok := grads[input]; ok {
			grads[input] = backend.Add(existing, inputGrads[j])
		} else {
			grads[input] = inputGrads[j]
		}
	}
}
