package gan

import (
	"context"
	"io"
	"math/rand"
	"strings"

	"github.com/born-ml/gantrain/internal/checkpoint"
	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/optim"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/pkg/errors"
)

// NonFinitePolicy decides what the trainer does with a non-finite loss.
type NonFinitePolicy int

const (
	// NonFiniteSkip warns, counts the step as skipped and continues.
	NonFiniteSkip NonFinitePolicy = iota
	// NonFiniteAbort stops training with ErrNonFiniteLoss.
	NonFiniteAbort
)

func (p NonFinitePolicy) String() string {
	if p == NonFiniteAbort {
		return "abort"
	}
	return "skip"
}

// ParseNonFinitePolicy accepts "skip" or "abort".
func ParseNonFinitePolicy(s string) (NonFinitePolicy, error) {
	switch strings.ToLower(s) {
	case "skip", "":
		return NonFiniteSkip, nil
	case "abort":
		return NonFiniteAbort, nil
	default:
		return 0, errors.Errorf("unknown non-finite policy %q", s)
	}
}

// Renderer receives the visual output of a run.
type Renderer interface {
	// RenderReal is called once with the first batch of the run.
	RenderReal(b Batch) error
	// RenderFake is called at the log cadence with samples generated from
	// the fixed latent.
	RenderFake(epoch, step int, samples data.Batch) error
}

// TrainerConfig configures the training loop.
type TrainerConfig struct {
	RunID  string
	Seed   int64
	Epochs int
	// MaxSteps stops training after that many steps in total; 0 means no
	// budget.
	MaxSteps int64

	// LogInterval renders samples every LogInterval steps; 0 disables.
	LogInterval int
	// CheckpointInterval saves every player every CheckpointInterval steps
	// (never at step 0); 0 saves only at the end of training.
	CheckpointInterval int
	CheckpointDir      string
	// Resume continues from the newest snapshot set in CheckpointDir.
	Resume bool
	// Weights loads explicit snapshots by role before training.
	Weights map[Role]string

	// LRDecayEvery multiplies every learning rate by LRDecayGamma each
	// LRDecayEvery epochs; 0 disables.
	LRDecayEvery int
	LRDecayGamma float32

	NonFinite NonFinitePolicy
}

// Trainer runs a variant over a feed for a number of epochs.
type Trainer struct {
	cfg     TrainerConfig
	variant Variant
	feed    Feed
	driver  *Driver
	decays  []*optim.StepDecay
	rng     *rand.Rand

	// Reporter receives progress and warnings. It defaults to io.Discard.
	Reporter *Reporter
	// Renderer is optional.
	Renderer Renderer
	// OnCheckpoint is called after every successful snapshot set.
	OnCheckpoint func(idx checkpoint.Index)
}

// NewTrainer prepares a run. The learning-rate schedules start from the
// rates the optimizers have now.
func NewTrainer(backend Backend, v Variant, feed Feed, cfg TrainerConfig) *Trainer {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: reproducible training noise
	t := &Trainer{
		cfg:      cfg,
		variant:  v,
		feed:     feed,
		driver:   NewDriver(backend, rng),
		rng:      rng,
		Reporter: NewReporter(io.Discard, cfg.Epochs, feed.Len()),
	}
	if cfg.LRDecayGamma == 0 {
		t.cfg.LRDecayGamma = 0.5
	}
	for _, p := range v.Players() {
		t.decays = append(t.decays, optim.NewStepDecay(p.Optimizer(), cfg.LRDecayEvery, t.cfg.LRDecayGamma))
	}
	t.driver.OnNonFinite = func(phase Phase, terms *Terms) {
		t.Reporter.Warnf("non-finite loss in phase %s: %s", phase, terms)
	}
	return t
}

// Run trains until the epochs or the step budget are used up, or ctx is
// done. The context is checked between steps; a running step always
// completes. Every player is saved once more after the last completed step
// unless that step was just checkpointed; a failure of that final save is
// returned because it would lose the trained state.
func (t *Trainer) Run(ctx context.Context) (*TrainingState, error) {
	state := &TrainingState{
		RunID:   t.cfg.RunID,
		Variant: t.variant.Name(),
		Seed:    t.cfg.Seed,
		Updates: make(map[string]int64),
	}
	if err := t.loadWeights(); err != nil {
		return state, err
	}
	if t.cfg.Resume {
		if err := t.resume(state); err != nil {
			return state, err
		}
	}

	steps := t.feed.Len()
	if steps <= 0 {
		return state, errors.Wrap(data.ErrEmpty, "feed has no batches")
	}
	t.Reporter.epochs, t.Reporter.steps = t.cfg.Epochs, steps

	var (
		latent  map[string]*tensor.RawTensor
		last    *checkpoint.Index
		saved   bool
		decayed = -1
	)
	for state.Epoch < t.cfg.Epochs {
		if t.cfg.MaxSteps > 0 && state.GlobalStep >= t.cfg.MaxSteps {
			t.Reporter.Infof("step budget of %d reached", t.cfg.MaxSteps)
			break
		}
		if err := ctx.Err(); err != nil {
			return state, t.finish(last, saved, state, err)
		}
		if state.Epoch != decayed {
			t.applyDecay(state.Epoch)
			decayed = state.Epoch
		}

		idx := checkpoint.Index{Epoch: state.Epoch, Step: state.Step}
		batch, err := t.feed.Next(ctx)
		if errors.Is(err, ErrBatchMismatch) {
			state.SkippedMismatch++
			t.Reporter.Warnf("%s: %v, skipping step", idx, err)
			state.Advance(steps)
			continue
		}
		if err != nil {
			return state, t.finish(last, saved, state, errors.Wrapf(err, "next batch at %s", idx))
		}

		if latent == nil {
			if latent, err = t.fixedLatent(batch); err != nil {
				return state, t.finish(last, saved, state, err)
			}
		}

		res, err := t.driver.Step(ctx, state, t.variant, batch)
		switch {
		case err == nil:
			t.Reporter.Step(idx.Epoch, idx.Step, res)
		case errors.Is(err, ErrBatchMismatch):
			t.Reporter.Warnf("%s: %v, skipping step", idx, err)
		case errors.Is(err, ErrNonFiniteLoss) && t.cfg.NonFinite == NonFiniteSkip:
			t.Reporter.Warnf("%s: %v, skipping step", idx, err)
		default:
			return state, t.finish(last, saved, state, errors.Wrapf(err, "step %s", idx))
		}

		if t.cfg.LogInterval > 0 && idx.Step%t.cfg.LogInterval == 0 {
			t.render(idx, latent)
		}

		state.Advance(steps)
		last, saved = &idx, false
		if t.cfg.CheckpointInterval > 0 && idx.Step%t.cfg.CheckpointInterval == 0 && idx.Step != 0 {
			if err := t.save(idx, state); err != nil {
				t.Reporter.Warnf("checkpoint %s: %v", idx, err)
			} else {
				saved = true
			}
		}
	}
	return state, t.finish(last, saved, state, nil)
}

// finish writes the final snapshot set and combines its failure with the
// error that ended the run.
func (t *Trainer) finish(last *checkpoint.Index, saved bool, state *TrainingState, runErr error) error {
	if last == nil || saved || t.cfg.CheckpointDir == "" {
		return runErr
	}
	if err := t.save(*last, state); err != nil {
		err = errors.Wrap(err, "final checkpoint")
		if runErr != nil {
			return errors.Wrap(runErr, err.Error())
		}
		return err
	}
	return runErr
}

func (t *Trainer) applyDecay(epoch int) {
	if t.cfg.LRDecayEvery <= 0 {
		return
	}
	for _, d := range t.decays {
		d.Apply(epoch)
	}
}

// save writes every player and the trainer state at idx. state already
// points past idx.
func (t *Trainer) save(idx checkpoint.Index, state *TrainingState) error {
	if t.cfg.CheckpointDir == "" {
		return nil
	}
	run := checkpoint.Run{ID: state.RunID, Variant: state.Variant, GlobalStep: state.GlobalStep}
	for _, p := range t.variant.Players() {
		if _, err := checkpoint.Save(t.cfg.CheckpointDir, idx, run, p); err != nil {
			return err
		}
	}
	if err := checkpoint.SaveState(t.cfg.CheckpointDir, idx, state); err != nil {
		return err
	}
	t.Reporter.Infof("saved checkpoint %s", idx)
	if t.OnCheckpoint != nil {
		t.OnCheckpoint(idx)
	}
	return nil
}

// resume restores the players and the loop position from the newest
// snapshot set. Without a state sidecar the run continues after the
// snapshot's step.
func (t *Trainer) resume(state *TrainingState) error {
	if t.cfg.CheckpointDir == "" {
		return errors.New("resume needs a checkpoint directory")
	}
	idx, ok, err := checkpoint.Resume(t.cfg.CheckpointDir, checkpointPlayers(t.variant.Players()))
	if err != nil {
		return errors.Wrap(err, "resume")
	}
	if !ok {
		t.Reporter.Infof("no checkpoint in %s, starting fresh", t.cfg.CheckpointDir)
		return nil
	}

	loaded := TrainingState{}
	err = checkpoint.LoadState(t.cfg.CheckpointDir, idx, &loaded)
	switch {
	case err == nil:
		*state = loaded
		if state.RunID == "" {
			state.RunID = t.cfg.RunID
		}
	case errors.Is(err, checkpoint.ErrNotFound):
		state.Epoch, state.Step = idx.Epoch, idx.Step
		state.Advance(t.feed.Len())
		state.GlobalStep = 0
	default:
		return errors.Wrap(err, "resume")
	}
	t.Reporter.Infof("resumed from %s, next epoch %d step %d", idx, state.Epoch, state.Step)
	return nil
}

func (t *Trainer) loadWeights() error {
	for _, p := range t.variant.Players() {
		path, ok := t.cfg.Weights[p.Kind()]
		if !ok || path == "" {
			continue
		}
		if _, err := checkpoint.Load(path, p); err != nil {
			return errors.Wrapf(err, "load %s weights", p.Role())
		}
		t.Reporter.Infof("loaded %s from %s", p.Role(), path)
	}
	return nil
}

// fixedLatent returns the latent held constant for the whole run. It is
// drawn from the first batch with its own generator so the training noise
// stream does not depend on it, and persisted so resumed runs keep it.
func (t *Trainer) fixedLatent(first Batch) (map[string]*tensor.RawTensor, error) {
	if t.Renderer != nil {
		if err := t.Renderer.RenderReal(first); err != nil {
			t.Reporter.Warnf("render real samples: %v", err)
		}
	}
	if t.cfg.CheckpointDir != "" {
		latent, ok, err := checkpoint.LoadLatent(t.cfg.CheckpointDir)
		if err != nil {
			return nil, errors.Wrap(err, "load fixed latent")
		}
		if ok {
			return latent, nil
		}
	}
	rng := rand.New(rand.NewSource(t.cfg.Seed + 1)) //nolint:gosec // G404: reproducible visual latent
	latent := t.variant.FixedLatent(rng, first)
	if t.cfg.CheckpointDir != "" {
		if err := checkpoint.SaveLatent(t.cfg.CheckpointDir, latent); err != nil {
			t.Reporter.Warnf("save fixed latent: %v", err)
		}
	}
	return latent, nil
}

func (t *Trainer) render(idx checkpoint.Index, latent map[string]*tensor.RawTensor) {
	if t.Renderer == nil {
		return
	}
	samples, err := t.variant.Sample(latent)
	if err == nil {
		err = t.Renderer.RenderFake(idx.Epoch, idx.Step, samples)
	}
	if err != nil {
		t.Reporter.Warnf("render %s: %v", idx, err)
	}
}
