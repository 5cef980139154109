// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/born-ml/gantrain/autodiff"
	"github.com/born-ml/gantrain/backend/cpu"
	"github.com/born-ml/gantrain/nn"
	"github.com/born-ml/gantrain/optim"
	"github.com/born-ml/gantrain/tensor"
)

type trainBackend = *autodiff.Backend[*cpu.Backend]

// TestModuleInterface verifies that concrete types implement Module interface.
func TestModuleInterface(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name   string
		module nn.Module[*cpu.Backend]
		params int
	}{
		{"Linear", nn.NewLinear(10, 5, backend, rng), 2},
		{"Sequential", nn.NewSequential[*cpu.Backend](
			nn.NewLinear(10, 5, backend, rng),
			nn.NewLeakyReLU[*cpu.Backend](0.2),
			nn.NewLinear(5, 1, backend, rng),
			nn.NewSigmoid[*cpu.Backend](),
		), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tensor.Randn(tensor.Shape{2, 10}, rng, backend)
			out := tt.module.Forward(input)
			if out.Shape()[0] != 2 {
				t.Errorf("Forward() batch = %d, want 2", out.Shape()[0])
			}
			if got := len(tt.module.Parameters()); got != tt.params {
				t.Errorf("Parameters() returned %d params, want %d", got, tt.params)
			}
			if got := len(tt.module.StateDict()); got != tt.params {
				t.Errorf("StateDict() has %d entries, want %d", got, tt.params)
			}
		})
	}
}

// TestParameterInterface verifies the Parameter alias and gradient helpers.
func TestParameterInterface(t *testing.T) {
	backend := cpu.New()
	data := tensor.Ones[float32](tensor.Shape{3}, backend)
	param := nn.NewParameter("weight", data)

	if name := param.Name(); name != "weight" {
		t.Errorf("Name() = %q, want %q", name, "weight")
	}
	if param.Tensor() != data {
		t.Error("Tensor() returned different tensor than provided")
	}
	if param.Grad() != nil {
		t.Error("Grad() should be nil before backward pass")
	}

	params := []*nn.Parameter[*cpu.Backend]{param}
	grad := tensor.Full[float32](tensor.Shape{3}, 2, backend)
	nn.AccumulateGrads(params, map[*tensor.RawTensor]*tensor.RawTensor{data.Raw(): grad.Raw()})
	nn.AccumulateGrads(params, map[*tensor.RawTensor]*tensor.RawTensor{data.Raw(): grad.Raw()})
	if got := param.Grad().Data()[0]; got != 4 {
		t.Errorf("accumulated gradient = %v, want 4", got)
	}

	nn.ZeroGrads(params)
	if param.Grad() != nil {
		t.Error("Grad() should be nil after ZeroGrads()")
	}

	nn.SetTrainable(params, false)
	nn.AccumulateGrads(params, map[*tensor.RawTensor]*tensor.RawTensor{data.Raw(): grad.Raw()})
	if param.Grad() != nil {
		t.Error("frozen parameter accumulated a gradient")
	}
}

// TestTrainingStep runs one optimizer step through the public packages.
func TestTrainingStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(2))

	model := nn.NewSequential[trainBackend](
		nn.NewLinear(4, 8, backend, rng),
		nn.NewReLU[trainBackend](),
		nn.NewLinear(8, 1, backend, rng),
	)
	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.01})

	x := tensor.Randn(tensor.Shape{16, 4}, rng, backend)
	target := tensor.Ones[float32](tensor.Shape{16, 1}, backend)
	loss := func() float32 {
		return nn.NewMSELoss[trainBackend]().Forward(model.Forward(x), target).Item()
	}

	before := loss()
	for range 20 {
		nn.Watch(backend, model.Parameters())
		backend.Tape().StartRecording()
		l := nn.NewMSELoss[trainBackend]().Forward(model.Forward(x), target)
		opt.ZeroGrad()
		nn.AccumulateGrads(model.Parameters(), autodiff.Backward(l, backend))
		backend.Tape().StopRecording()
		backend.Tape().Clear()
		opt.Step()
	}
	if after := loss(); after >= before {
		t.Errorf("loss did not decrease: before %v, after %v", before, after)
	}
}

// TestSaveLoad verifies a module round-trips through a .born file.
func TestSaveLoad(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "generator.born")

	src := nn.NewLinear(3, 2, backend, rand.New(rand.NewSource(3)))
	if err := nn.Save[*cpu.Backend](src, path, "Linear", map[string]string{"role": "generator"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := nn.NewLinear(3, 2, backend, rand.New(rand.NewSource(4)))
	header, err := nn.Load[*cpu.Backend](path, dst)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if header.ModelType != "Linear" || header.Metadata["role"] != "generator" {
		t.Errorf("header = %+v, want Linear/generator", header)
	}

	want := src.Weight().Tensor().Data()
	got := dst.Weight().Tensor().Data()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("weight[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	wrong := nn.NewLinear(2, 2, backend, rand.New(rand.NewSource(5)))
	if _, err := nn.Load[*cpu.Backend](path, wrong); err == nil {
		t.Error("Load into a mismatched layer succeeded")
	}
}
