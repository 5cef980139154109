// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/gantrain/backend/cpu"
	"github.com/born-ml/gantrain/tensor"
)

// TestBackendInterface verifies that the CPU backend implements tensor.Backend.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = cpu.New()
}

// TestRawTensorAPI verifies RawTensor type alias exposes expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", raw.DType())
	}
	if raw.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", raw.Device())
	}
	if n := raw.NumElements(); n != 6 {
		t.Errorf("NumElements() = %d, want 6", n)
	}
	if raw.ByteSize() != 6*4 {
		t.Errorf("ByteSize() = %d, want 24", raw.ByteSize())
	}
	if len(raw.AsFloat32()) != 6 {
		t.Errorf("AsFloat32() length = %d, want 6", len(raw.AsFloat32()))
	}
}

// TestTensorCreationFunctions verifies high-level tensor creation API.
func TestTensorCreationFunctions(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name  string
		fn    func() (*tensor.Tensor[float32, *cpu.Backend], error)
		first float32
	}{
		{"Zeros", func() (*tensor.Tensor[float32, *cpu.Backend], error) {
			return tensor.Zeros[float32](tensor.Shape{2, 3}, backend), nil
		}, 0},
		{"Ones", func() (*tensor.Tensor[float32, *cpu.Backend], error) {
			return tensor.Ones[float32](tensor.Shape{2, 3}, backend), nil
		}, 1},
		{"Full", func() (*tensor.Tensor[float32, *cpu.Backend], error) {
			return tensor.Full[float32](tensor.Shape{2, 3}, 3.5, backend), nil
		}, 3.5},
		{"FromSlice", func() (*tensor.Tensor[float32, *cpu.Backend], error) {
			return tensor.FromSlice([]float32{7, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
		}, 7},
		{"OneHot", func() (*tensor.Tensor[float32, *cpu.Backend], error) {
			return tensor.OneHot([]int64{0, 2}, 3, backend), nil
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.fn()
			if err != nil {
				t.Fatalf("%s() returned error: %v", tt.name, err)
			}
			if !result.Shape().Equal(tensor.Shape{2, 3}) {
				t.Errorf("%s() shape = %v, want [2 3]", tt.name, result.Shape())
			}
			if got := result.Data()[0]; got != tt.first {
				t.Errorf("%s() first element = %v, want %v", tt.name, got, tt.first)
			}
		})
	}

	u := tensor.Uniform(tensor.Shape{100}, -1, 1, rng, backend)
	for _, v := range u.Data() {
		if v < -1 || v >= 1 {
			t.Fatalf("Uniform() produced %v outside [-1, 1)", v)
		}
	}
	if tensor.Randn(tensor.Shape{4}, rng, backend).NumElements() != 4 {
		t.Error("Randn() element count mismatch")
	}
}

// TestCatAndBroadcast verifies the package-level helpers.
func TestCatAndBroadcast(t *testing.T) {
	backend := cpu.New()
	a := tensor.Ones[float32](tensor.Shape{2, 1}, backend)
	b := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)

	c := tensor.Cat(1, a, b)
	if !c.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Cat() shape = %v, want [2 3]", c.Shape())
	}
	got := tensor.Float32s(c)
	want := []float32{1, 0, 0, 1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Cat() = %v, want %v", got, want)
		}
	}

	shape, needed, err := tensor.BroadcastShapes(tensor.Shape{2, 1}, tensor.Shape{1, 3})
	if err != nil {
		t.Fatalf("BroadcastShapes failed: %v", err)
	}
	if !needed || !shape.Equal(tensor.Shape{2, 3}) {
		t.Errorf("BroadcastShapes() = %v, %v, want [2 3], true", shape, needed)
	}
}

// TestDeviceConstants verifies all device constants are accessible.
func TestDeviceConstants(t *testing.T) {
	devices := []struct {
		name   string
		device tensor.Device
	}{
		{"CPU", tensor.CPU},
		{"WebGPU", tensor.WebGPU},
	}

	for _, d := range devices {
		t.Run(d.name, func(t *testing.T) {
			if str := d.device.String(); str != d.name {
				t.Errorf("Device.String() = %q, want %q", str, d.name)
			}
		})
	}
}
