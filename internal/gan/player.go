package gan

import (
	"fmt"

	"github.com/born-ml/gantrain/internal/checkpoint"
	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/optim"
	"github.com/born-ml/gantrain/internal/tensor"
)

var _ checkpoint.Player = (*Player)(nil)

// Player is a network in the adversarial game together with the optimizer
// that alone mutates it.
type Player struct {
	role    Role
	module  nn.Module[Backend]
	opt     optim.Optimizer
	backend Backend
	updates int64
}

// NewPlayer wraps module and registers its parameters on the backend's tape.
func NewPlayer(role Role, module nn.Module[Backend], opt optim.Optimizer, backend Backend) *Player {
	p := &Player{role: role, module: module, opt: opt, backend: backend}
	nn.Watch(backend, module.Parameters())
	return p
}

// NewAdamPlayer wraps module with an Adam optimizer over its parameters.
func NewAdamPlayer(role Role, module nn.Module[Backend], cfg optim.AdamConfig, backend Backend) *Player {
	return NewPlayer(role, module, optim.NewAdam(module.Parameters(), cfg), backend)
}

func (p *Player) Role() string                         { return string(p.role) }
func (p *Player) Kind() Role                           { return p.role }
func (p *Player) Module() nn.Module[Backend]           { return p.module }
func (p *Player) Optimizer() optim.Optimizer           { return p.opt }
func (p *Player) Parameters() []*nn.Parameter[Backend] { return p.module.Parameters() }

// Updates is the number of optimizer steps taken.
func (p *Player) Updates() int64 { return p.updates }

// Forward evaluates the network.
func (p *Player) Forward(x *Tensor) *Tensor { return p.module.Forward(x) }

// SetTrainable freezes or unfreezes every parameter. Frozen parameters are
// also unwatched, so a backward pass computes no gradient for them.
func (p *Player) SetTrainable(trainable bool) {
	tape := p.backend.Tape()
	for _, param := range p.module.Parameters() {
		param.SetTrainable(trainable)
		if trainable {
			tape.Watch(param.Tensor().Raw())
		} else {
			tape.Unwatch(param.Tensor().Raw())
		}
	}
}

// Trainable reports whether every parameter is trainable.
func (p *Player) Trainable() bool {
	for _, param := range p.module.Parameters() {
		if !param.Trainable() {
			return false
		}
	}
	return true
}

func (p *Player) ZeroGrad() { p.opt.ZeroGrad() }

// Accumulate routes backward-pass gradients into the trainable parameters.
func (p *Player) Accumulate(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	nn.AccumulateGrads(p.module.Parameters(), grads)
}

// Step applies one optimizer update and drops the consumed gradients.
func (p *Player) Step() {
	p.opt.Step()
	p.opt.ZeroGrad()
	p.updates++
}

func (p *Player) StateDict() map[string]*tensor.RawTensor { return p.module.StateDict() }

func (p *Player) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return p.module.LoadStateDict(stateDict)
}

func (p *Player) OptimizerStateDict() map[string]*tensor.RawTensor { return p.opt.StateDict() }

func (p *Player) LoadOptimizerStateDict(stateDict map[string]*tensor.RawTensor) error {
	return p.opt.LoadStateDict(stateDict)
}

func (p *Player) OptimizerInfo() (string, float32) {
	switch p.opt.(type) {
	case *optim.Adam[Backend]:
		return "Adam", p.opt.GetLR()
	case *optim.SGD[Backend]:
		return "SGD", p.opt.GetLR()
	default:
		return fmt.Sprintf("%T", p.opt), p.opt.GetLR()
	}
}

func checkpointPlayers(players []*Player) []checkpoint.Player {
	out := make([]checkpoint.Player, len(players))
	for i, p := range players {
		out[i] = p
	}
	return out
}
