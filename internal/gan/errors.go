package gan

import "errors"

var (
	// ErrBatchMismatch is returned when paired streams yield batches of
	// different sizes. The step is skipped with no optimizer update.
	ErrBatchMismatch = errors.New("gan: batch size mismatch")

	// ErrNonFiniteLoss is returned when a phase loss is NaN or infinite. The
	// phase's optimizers are not stepped and its gradients are dropped.
	ErrNonFiniteLoss = errors.New("gan: non-finite loss")

	// ErrAlreadyBackpropagated is returned by Terms.Backward on a second call.
	ErrAlreadyBackpropagated = errors.New("gan: loss already backpropagated")
)
