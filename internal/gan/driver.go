package gan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// StepResult reports the loss terms of one step. A phase that did not run
// has nil terms.
type StepResult struct {
	D, G *Terms
}

// Driver runs the two phases of a training step.
//
// Every player is mutated only by its own optimizer during its own phase:
// discriminators in Phase D, generators and auxiliary networks in Phase G.
// Gradients are cleared after each optimizer step, so a player never
// carries gradients from one phase into the next.
type Driver struct {
	backend Backend
	rng     *rand.Rand

	// OnNonFinite is called when a phase loss is NaN or infinite, before the
	// phase is abandoned.
	OnNonFinite func(Phase, *Terms)
}

// NewDriver creates a driver drawing latents from rng.
func NewDriver(backend Backend, rng *rand.Rand) *Driver {
	return &Driver{backend: backend, rng: rng}
}

// Step runs Phase D then Phase G on batch and records the outcome in state.
//
// A paired batch whose streams disagree on size is skipped with
// ErrBatchMismatch and no update. A non-finite loss abandons the step at
// that phase with ErrNonFiniteLoss: a non-finite Phase D skips the whole
// step, a non-finite Phase G keeps the discriminator update already taken.
// The context is only consulted before the step starts.
func (d *Driver) Step(ctx context.Context, state *TrainingState, v Variant, batch Batch) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if !batch.Aligned() {
		state.SkippedMismatch++
		return StepResult{}, fmt.Errorf("%w: %d vs %d", ErrBatchMismatch, batch.Real.Size, batch.Pair.Size)
	}

	before := updateCounts(v)
	tape := d.backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
		d.recordUpdates(state, v, before)
	}()

	s := NewStep(batch, d.backend, d.rng)
	var res StepResult
	var err error

	res.D, err = d.PhaseD(s, v)
	if err != nil {
		d.recordFailure(state, err)
		return res, err
	}
	state.LastLossD = res.D.Value()

	res.G, err = d.PhaseG(s, v)
	if err != nil {
		d.recordFailure(state, err)
		return res, err
	}
	state.LastLossG = res.G.Value()
	return res, nil
}

// PhaseD updates the discriminators.
func (d *Driver) PhaseD(s *Step, v Variant) (*Terms, error) {
	for _, p := range v.Discriminators() {
		p.SetTrainable(true)
		p.ZeroGrad()
	}

	terms, err := v.DiscriminatorLoss(s)
	if err != nil {
		return nil, fmt.Errorf("phase D: %w", err)
	}
	if !terms.Finite() {
		d.nonFinite(PhaseD, terms, v.Discriminators())
		return terms, fmt.Errorf("phase D: %w: %s", ErrNonFiniteLoss, terms)
	}

	grads, err := terms.Backward(d.backend)
	if err != nil {
		return terms, fmt.Errorf("phase D: %w", err)
	}
	for _, p := range v.Players() {
		p.Accumulate(grads)
	}
	for _, p := range v.Discriminators() {
		p.Step()
	}
	return terms, nil
}

// PhaseG freezes the discriminators and updates the generator side.
func (d *Driver) PhaseG(s *Step, v Variant) (*Terms, error) {
	for _, p := range v.Discriminators() {
		p.SetTrainable(false)
	}
	for _, p := range v.Generators() {
		p.ZeroGrad()
	}

	terms, err := v.GeneratorLoss(s)
	if err != nil {
		return nil, fmt.Errorf("phase G: %w", err)
	}
	if !terms.Finite() {
		d.nonFinite(PhaseG, terms, v.Generators())
		return terms, fmt.Errorf("phase G: %w: %s", ErrNonFiniteLoss, terms)
	}

	grads, err := terms.Backward(d.backend)
	if err != nil {
		return terms, fmt.Errorf("phase G: %w", err)
	}
	for _, p := range v.Generators() {
		p.Accumulate(grads)
		p.Step()
	}
	return terms, nil
}

func (d *Driver) nonFinite(phase Phase, terms *Terms, players []*Player) {
	for _, p := range players {
		p.ZeroGrad()
	}
	if d.OnNonFinite != nil {
		d.OnNonFinite(phase, terms)
	}
}

func (d *Driver) recordFailure(state *TrainingState, err error) {
	if errors.Is(err, ErrNonFiniteLoss) {
		state.SkippedNonFinite++
	}
}

func updateCounts(v Variant) []int64 {
	players := v.Players()
	out := make([]int64, len(players))
	for i, p := range players {
		out[i] = p.Updates()
	}
	return out
}

// recordUpdates adds the optimizer steps taken since before to state, so
// counts restored from a snapshot keep growing.
func (d *Driver) recordUpdates(state *TrainingState, v Variant, before []int64) {
	if state.Updates == nil {
		state.Updates = make(map[string]int64)
	}
	for i, p := range v.Players() {
		if n := p.Updates() - before[i]; n > 0 {
			state.Updates[p.Role()] += n
		}
	}
}
