package checkpoint

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/born-ml/gantrain/internal/serialization"
	"github.com/born-ml/gantrain/internal/tensor"
)

// LatentFile holds the fixed visualization latent of a run.
const LatentFile = "fixed-latent.born"

// SaveState writes the trainer-state sidecar for idx.
func SaveState(dir string, idx Index, state encoding.BinaryMarshaler) error {
	data, err := state.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode trainer state: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	return serialization.AtomicWrite(filepath.Join(dir, StateName(idx)), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// LoadState decodes the trainer-state sidecar for idx into state.
// A missing sidecar returns ErrNotFound.
func LoadState(dir string, idx Index, state encoding.BinaryUnmarshaler) error {
	//nolint:gosec // G304: path built from the run directory
	data, err := os.ReadFile(filepath.Join(dir, StateName(idx)))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: trainer state at %s", ErrNotFound, idx)
	}
	if err != nil {
		return fmt.Errorf("read trainer state: %w", err)
	}
	if err := state.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("decode trainer state: %w", err)
	}
	return nil
}

// SaveLatent persists the fixed latent tensors. It is written once per run
// so visuals stay comparable across resumes.
func SaveLatent(dir string, tensors map[string]*tensor.RawTensor) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	return serialization.WriteFile(filepath.Join(dir, LatentFile), tensors, serialization.Header{ModelType: "fixed-latent"})
}

// LoadLatent reads the fixed latent. ok is false if the run has none yet.
func LoadLatent(dir string) (tensors map[string]*tensor.RawTensor, ok bool, err error) {
	path := filepath.Join(dir, LatentFile)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return nil, false, nil
	}
	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return f.Tensors, true, nil
}
