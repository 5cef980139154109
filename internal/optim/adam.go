package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Adam implements Adam with optional L2 weight decay.
//
//	g   = grad + weight_decay * param
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²
//	param -= lr * (m_t / (1-beta1^t)) / (sqrt(v_t / (1-beta2^t)) + eps)
//
// The timestep is global to the optimizer, so a parameter that was frozen
// for some steps still sees the same bias correction as its siblings.
type Adam[B tensor.Backend] struct {
	params      []*nn.Parameter[B]
	lr          float32
	beta1       float32
	beta2       float32
	eps         float32
	weightDecay float32
	t           int64
	m           map[int][]float32
	v           map[int][]float32
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR          float32    // default 0.001
	Betas       [2]float32 // default [0.9, 0.999]
	Eps         float32    // default 1e-8
	WeightDecay float32    // default 0
}

// NewAdam creates an Adam optimizer over params, filling unset fields with defaults.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[B]{
		params:      params,
		lr:          config.LR,
		beta1:       config.Betas[0],
		beta2:       config.Betas[1],
		eps:         config.Eps,
		weightDecay: config.WeightDecay,
		m:           make(map[int][]float32),
		v:           make(map[int][]float32),
	}
}

// Step performs one Adam update on every trainable parameter with a gradient.
func (a *Adam[B]) Step() {
	a.t++
	bc1 := float32(1 - math.Pow(float64(a.beta1), float64(a.t)))
	bc2 := float32(1 - math.Pow(float64(a.beta2), float64(a.t)))

	for i, p := range a.params {
		grad := gradientOf(p)
		if grad == nil {
			continue
		}
		param := p.Tensor().Raw().AsFloat32()
		m, ok := a.m[i]
		if !ok {
			m = make([]float32, len(param))
			a.m[i] = m
		}
		v, ok := a.v[i]
		if !ok {
			v = make([]float32, len(param))
			a.v[i] = v
		}
		for j := range param {
			g := grad[j] + a.weightDecay*param[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			param[j] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

func (a *Adam[B]) ZeroGrad()        { nn.ZeroGrads(a.params) }
func (a *Adam[B]) GetLR() float32   { return a.lr }
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }
func (a *Adam[B]) Timestep() int64  { return a.t }

// StateDict exports "t" (int64 timestep) plus "m.{i}" and "v.{i}" moments
// for every parameter that has been updated at least once.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	t := tensor.MustRaw(tensor.Shape{1}, tensor.Int64, tensor.CPU)
	t.AsInt64()[0] = a.t
	state["t"] = t
	for i, p := range a.params {
		if m, ok := a.m[i]; ok {
			state[bufferKey("m", i)] = exportBuffer(m, p.Tensor().Shape())
		}
		if v, ok := a.v[i]; ok {
			state[bufferKey("v", i)] = exportBuffer(v, p.Tensor().Shape())
		}
	}
	return state
}

// LoadStateDict replaces the optimizer state. Moments absent from stateDict
// start from zero on the next step.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	t, ok := stateDict["t"]
	if !ok {
		return fmt.Errorf("adam state: missing timestep")
	}
	if t.DType() != tensor.Int64 || t.NumElements() != 1 {
		return fmt.Errorf("adam state: timestep must be one int64, got %d %s", t.NumElements(), t.DType())
	}
	m, err := loadBuffers("m", a.params, stateDict)
	if err != nil {
		return fmt.Errorf("adam state: %w", err)
	}
	v, err := loadBuffers("v", a.params, stateDict)
	if err != nil {
		return fmt.Errorf("adam state: %w", err)
	}
	a.t, a.m, a.v = t.AsInt64()[0], m, v
	return nil
}
