// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/serialization"
	"github.com/born-ml/gantrain/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all parameters in a stable order
//   - StateDict: Export parameters for serialization
//   - LoadStateDict: Import parameters from serialization
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// Header is the JSON header of a .born file.
type Header = serialization.Header

// Save writes the module's state dictionary to a .born file atomically.
//
// Example:
//
//	err := nn.Save(generator, "generator.born", "Sequential", map[string]string{"variant": "acgan"})
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) error {
	return serialization.WriteFile(path, module.StateDict(), serialization.Header{
		ModelType: modelType,
		Metadata:  metadata,
	})
}

// Load reads a .born file into module and returns its header. The file's
// checksum and every tensor shape are verified before any parameter changes.
//
// Example:
//
//	header, err := nn.Load("generator.born", generator)
func Load[B tensor.Backend](path string, module Module[B]) (Header, error) {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	if err := module.LoadStateDict(f.Tensors); err != nil {
		return Header{}, err
	}
	return f.Header, nil
}
