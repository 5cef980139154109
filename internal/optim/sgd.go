package optim

import (
	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
//	velocity = momentum * velocity + grad
//	param   -= lr * velocity
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[int][]float32
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR       float32 // default 0.01
	Momentum float32 // [0, 1), default 0
}

// NewSGD creates an SGD optimizer over params.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[int][]float32),
	}
}

func (s *SGD[B]) Step() {
	for i, p := range s.params {
		grad := gradientOf(p)
		if grad == nil {
			continue
		}
		param := p.Tensor().Raw().AsFloat32()
		if s.momentum == 0 {
			for j := range param {
				param[j] -= s.lr * grad[j]
			}
			continue
		}
		vel, ok := s.velocities[i]
		if !ok {
			vel = make([]float32, len(param))
			s.velocities[i] = vel
		}
		for j := range param {
			vel[j] = s.momentum*vel[j] + grad[j]
			param[j] -= s.lr * vel[j]
		}
	}
}

func (s *SGD[B]) ZeroGrad()        { nn.ZeroGrads(s.params) }
func (s *SGD[B]) GetLR() float32   { return s.lr }
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// StateDict exports "velocity.{i}" buffers. Without momentum it is empty.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for i, p := range s.params {
		if vel, ok := s.velocities[i]; ok {
			state[bufferKey("velocity", i)] = exportBuffer(vel, p.Tensor().Shape())
		}
	}
	return state
}

func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if s.momentum == 0 {
		return nil
	}
	vel, err := loadBuffers("velocity", s.params, stateDict)
	if err != nil {
		return err
	}
	s.velocities = vel
	return nil
}
