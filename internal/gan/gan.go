// Package gan implements adversarial training: players, the loss composer,
// the alternating optimizer driver, the training variants and the trainer
// loop around them.
//
// One step runs two phases in fixed order on the same batch:
//
//	Phase D: unfreeze the discriminators, score real and detached fake
//	         samples, backpropagate the summed terms, step the
//	         discriminator optimizers.
//	Phase G: freeze the discriminators, score the non-detached fake
//	         samples (plus any reconstruction terms), backpropagate, step
//	         the generator-side optimizers.
//
// Gradient isolation comes from three mechanisms: Detach cuts the tape
// between generator and discriminator, frozen parameters are unwatched so
// the tape never computes their gradients, and gradients are only
// accumulated into trainable parameters.
//
// Usage:
//
//	backend := gan.NewBackend(cpu.New())
//	variant, _ := gan.NewConditional(backend, gan.ConditionalConfig{...}, rng)
//	trainer := gan.NewTrainer(backend, variant, feed, gan.TrainerConfig{...})
//	state, err := trainer.Run(ctx)
package gan

import (
	"github.com/born-ml/gantrain/internal/autodiff"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Backend is the differentiable backend every player runs on.
type Backend = *autodiff.AutodiffBackend[tensor.Backend]

// Tensor is a float32 tensor on Backend.
type Tensor = tensor.Tensor[float32, Backend]

// NewBackend wraps a compute backend for training.
func NewBackend(inner tensor.Backend) Backend {
	return autodiff.New[tensor.Backend](inner)
}

// Role names a player. Roles double as checkpoint file prefixes.
type Role string

const (
	RoleGenerator          Role = "generator"
	RoleDiscriminator      Role = "discriminator"
	RoleImageDiscriminator Role = "discriminator-image"
	RoleVideoDiscriminator Role = "discriminator-video"
	RoleImageReconstructor Role = "image-reconstructor"
	RoleVideoReconstructor Role = "video-reconstructor"
)

func (r Role) discriminator() bool {
	return r == RoleDiscriminator || r == RoleImageDiscriminator || r == RoleVideoDiscriminator
}

// Phase is one half of a training step.
type Phase int

const (
	PhaseD Phase = iota
	PhaseG
)

func (p Phase) String() string {
	if p == PhaseD {
		return "D"
	}
	return "G"
}
