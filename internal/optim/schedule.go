package optim

// StepDecay multiplies the learning rate by Gamma every Every epochs,
// starting from the rate the optimizer had when the schedule was built.
//
//	decay := optim.NewStepDecay(opt, 100, 0.5) // StackGAN: halve every 100 epochs
//	decay.Apply(epoch)
type StepDecay struct {
	opt   Optimizer
	base  float32
	every int
	gamma float32
}

// NewStepDecay captures opt's current learning rate as the base rate.
func NewStepDecay(opt Optimizer, every int, gamma float32) *StepDecay {
	return &StepDecay{opt: opt, base: opt.GetLR(), every: every, gamma: gamma}
}

// Apply sets the learning rate for epoch (0-based). A non-positive period
// disables the schedule.
func (s *StepDecay) Apply(epoch int) float32 {
	if s.every <= 0 {
		return s.opt.GetLR()
	}
	lr := s.base
	for n := epoch / s.every; n > 0; n-- {
		lr *= s.gamma
	}
	s.opt.SetLR(lr)
	return lr
}
