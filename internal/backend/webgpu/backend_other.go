//go:build !windows

// Package webgpu runs the heavy tensor operations on a GPU through WebGPU.
// The native bindings are only built on Windows; elsewhere New always
// reports ErrUnavailable.
package webgpu

import "github.com/born-ml/gantrain/internal/backend/cpu"

// Backend is the CPU backend on platforms without WebGPU bindings.
type Backend struct {
	*cpu.CPUBackend
}

// New always fails with ErrUnavailable.
func New() (*Backend, error) { return nil, ErrUnavailable }

// Release is a no-op.
func (b *Backend) Release() {}

// IsAvailable reports false.
func IsAvailable() bool { return false }
