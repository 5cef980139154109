// Package nn implements the neural network building blocks the trainer
// composes into generators and discriminators.
//
// This package provides:
//   - Module interface: Forward plus parameter and state access
//   - Parameter: a tensor with a gradient accumulator and a trainable flag
//   - Linear, Sequential and element-wise activations
//   - Loss modules: BCE, BCEWithLogits, CrossEntropy, L1, MSE
//
// Modules are generic over the backend. Training wraps the compute backend
// in autodiff.AutodiffBackend; evaluation can use the plain backend.
package nn

import (
	"fmt"
	"sort"

	"github.com/born-ml/gantrain/internal/tensor"
)

// Module is the base interface for all neural network components.
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(64, 128, backend, rng),
//	    nn.NewLeakyReLU[B](0.2),
//	    nn.NewLinear(128, 1, backend, rng),
//	)
type Module[B tensor.Backend] interface {
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns every parameter in a stable order. Optimizer state
	// is keyed by position in this slice.
	Parameters() []*Parameter[B]

	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// loadInto copies src into dst after checking shape and dtype. dst keeps its
// identity so tape registrations stay valid.
func loadInto(name string, dst *tensor.RawTensor, stateDict map[string]*tensor.RawTensor) error {
	src, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("missing %s in state dict", name)
	}
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", name, dst.Shape(), src.Shape())
	}
	if src.DType() != dst.DType() {
		return fmt.Errorf("%s dtype mismatch: expected %v, got %v", name, dst.DType(), src.DType())
	}
	copy(dst.Data(), src.Data())
	return nil
}

// SubStateDict returns the entries under prefix with the prefix stripped.
func SubStateDict(stateDict map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			out[name[len(prefix):]] = raw
		}
	}
	return out
}

// SortedKeys lists state dict names in lexical order.
func SortedKeys(stateDict map[string]*tensor.RawTensor) []string {
	keys := make([]string, 0, len(stateDict))
	for k := range stateDict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
