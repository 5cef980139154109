// Package checkpoint persists players, the trainer state and the fixed
// visualization latent, and finds the newest complete snapshot to resume from.
//
// Artifacts share one naming scheme so a directory listing is enough to
// locate them:
//
//	generator_epoch-3_step-40.born
//	discriminator_epoch-3_step-40.born
//	trainer_epoch-3_step-40.state
//	fixed-latent.born
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/born-ml/gantrain/internal/serialization"
	"github.com/born-ml/gantrain/internal/tensor"
)

// Extensions of player snapshots and trainer-state sidecars.
const (
	Ext      = ".born"
	StateExt = ".state"

	// StateRole names the trainer-state sidecar.
	StateRole = "trainer"

	optimizerPrefix = "optimizer."
)

var (
	// ErrIncomplete is returned by Resume when no index holds a snapshot
	// for every role.
	ErrIncomplete = errors.New("checkpoint: incomplete snapshot set")

	// ErrNotFound is returned when a requested artifact does not exist.
	ErrNotFound = errors.New("checkpoint: not found")
)

var namePattern = regexp.MustCompile(`^([a-z][a-z-]*)_epoch-(\d+)_step-(\d+)(\.born|\.state)$`)

// Index locates a snapshot in a run.
type Index struct {
	Epoch int
	Step  int
}

// Less orders indices by epoch, then step.
func (i Index) Less(o Index) bool {
	if i.Epoch != o.Epoch {
		return i.Epoch < o.Epoch
	}
	return i.Step < o.Step
}

func (i Index) String() string {
	return fmt.Sprintf("epoch-%d_step-%d", i.Epoch, i.Step)
}

// Name returns the player snapshot file name for role at idx.
func Name(role string, idx Index) string {
	return fmt.Sprintf("%s_epoch-%d_step-%d%s", role, idx.Epoch, idx.Step, Ext)
}

// StateName returns the trainer-state sidecar file name at idx.
func StateName(idx Index) string {
	return fmt.Sprintf("%s_epoch-%d_step-%d%s", StateRole, idx.Epoch, idx.Step, StateExt)
}

// Parse splits an artifact file name into role and index.
func Parse(filename string) (role string, idx Index, ok bool) {
	m := namePattern.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return "", Index{}, false
	}
	epoch, err := strconv.Atoi(m[2])
	if err != nil {
		return "", Index{}, false
	}
	step, err := strconv.Atoi(m[3])
	if err != nil {
		return "", Index{}, false
	}
	return m[1], Index{Epoch: epoch, Step: step}, true
}

// Scan lists every player snapshot in dir, grouped by index.
func Scan(dir string) (map[Index]map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[Index]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	found := make(map[Index]map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		role, idx, ok := Parse(e.Name())
		if !ok {
			continue
		}
		if found[idx] == nil {
			found[idx] = make(map[string]string)
		}
		found[idx][role] = filepath.Join(dir, e.Name())
	}
	return found, nil
}

// Latest returns the maximum (epoch, step) among the snapshots in dir.
// ok is false when there are none.
func Latest(dir string) (idx Index, ok bool, err error) {
	found, err := Scan(dir)
	if err != nil {
		return Index{}, false, err
	}
	idx, ok = newestIndex(found)
	return idx, ok, nil
}

// Player is what a snapshot stores: model parameters and optimizer buffers.
type Player interface {
	Role() string
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
	OptimizerStateDict() map[string]*tensor.RawTensor
	LoadOptimizerStateDict(stateDict map[string]*tensor.RawTensor) error
	// OptimizerInfo names the optimizer and its current learning rate.
	OptimizerInfo() (name string, lr float32)
}

// Run identifies the run a snapshot belongs to.
type Run struct {
	ID         string
	Variant    string
	GlobalStep int64
}

// Save writes player's snapshot for idx into dir atomically and returns its path.
func Save(dir string, idx Index, run Run, p Player) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}
	state := make(map[string]*tensor.RawTensor)
	for name, raw := range p.StateDict() {
		state[name] = raw
	}
	for name, raw := range p.OptimizerStateDict() {
		state[optimizerPrefix+name] = raw
	}
	optName, lr := p.OptimizerInfo()
	header := serialization.Header{
		ModelType: p.Role(),
		Metadata:  map[string]string{"variant": run.Variant},
		CheckpointMeta: &serialization.CheckpointMeta{
			Role:          p.Role(),
			Epoch:         idx.Epoch,
			Step:          idx.Step,
			GlobalStep:    run.GlobalStep,
			RunID:         run.ID,
			OptimizerType: optName,
			LearningRate:  lr,
		},
	}
	path := filepath.Join(dir, Name(p.Role(), idx))
	if err := serialization.WriteFile(path, state, header); err != nil {
		return "", fmt.Errorf("save %s: %w", p.Role(), err)
	}
	return path, nil
}

// Load restores player from the snapshot at path. Optimizer buffers are
// restored when present; a file written without them (for example an
// exported generator) loads the parameters only.
func Load(path string, p Player) (*serialization.CheckpointMeta, error) {
	snap, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := snap.apply(p); err != nil {
		return nil, err
	}
	return snap.meta, nil
}

// snapshot is a decoded player file not yet applied to a player.
type snapshot struct {
	meta   *serialization.CheckpointMeta
	params map[string]*tensor.RawTensor
	opt    map[string]*tensor.RawTensor
}

func read(path string) (*snapshot, error) {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{
		meta:   f.Header.CheckpointMeta,
		params: make(map[string]*tensor.RawTensor),
		opt:    make(map[string]*tensor.RawTensor),
	}
	for name, raw := range f.Tensors {
		if len(name) > len(optimizerPrefix) && name[:len(optimizerPrefix)] == optimizerPrefix {
			snap.opt[name[len(optimizerPrefix):]] = raw
			continue
		}
		snap.params[name] = raw
	}
	return snap, nil
}

func (s *snapshot) apply(p Player) error {
	if err := p.LoadStateDict(s.params); err != nil {
		return fmt.Errorf("load %s parameters: %w", p.Role(), err)
	}
	if len(s.opt) > 0 {
		if err := p.LoadOptimizerStateDict(s.opt); err != nil {
			return fmt.Errorf("load %s optimizer: %w", p.Role(), err)
		}
	}
	return nil
}

// Resume loads every player from the newest snapshot set in dir that holds
// a file for each player's role. Newer sets missing a role are passed over.
// ok is false when dir holds no snapshot, in which case the players are
// untouched. When snapshots exist but no set is complete Resume fails with
// ErrIncomplete. Every file is decoded before any player is modified.
func Resume(dir string, players []Player) (idx Index, ok bool, err error) {
	found, err := Scan(dir)
	if err != nil || len(found) == 0 {
		return Index{}, false, err
	}
	idx, ok = newestComplete(found, players)
	if !ok {
		newest, _ := newestIndex(found)
		for _, p := range players {
			if _, has := found[newest][p.Role()]; !has {
				return newest, false, fmt.Errorf("%w: %s missing at %s", ErrIncomplete, p.Role(), newest)
			}
		}
		return newest, false, ErrIncomplete
	}
	snaps := make([]*snapshot, len(players))
	for i, p := range players {
		if snaps[i], err = read(found[idx][p.Role()]); err != nil {
			return idx, false, fmt.Errorf("load %s: %w", p.Role(), err)
		}
	}
	for i, p := range players {
		if err := snaps[i].apply(p); err != nil {
			return idx, false, err
		}
	}
	return idx, true, nil
}

func newestIndex(found map[Index]map[string]string) (idx Index, ok bool) {
	for i := range found {
		if !ok || idx.Less(i) {
			idx, ok = i, true
		}
	}
	return idx, ok
}

func newestComplete(found map[Index]map[string]string, players []Player) (idx Index, ok bool) {
	for i, roles := range found {
		complete := true
		for _, p := range players {
			if _, has := roles[p.Role()]; !has {
				complete = false
				break
			}
		}
		if complete && (!ok || idx.Less(i)) {
			idx, ok = i, true
		}
	}
	return idx, ok
}
