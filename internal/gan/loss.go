package gan

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// negativeTolerance absorbs rounding in terms that are non-negative in exact
// arithmetic, such as the KL divergence.
const negativeTolerance = 1e-4

// Value is the scalar value of one named term.
type Value struct {
	Name   string
	Weight float64
	Value  float64
}

// Terms accumulates the named sub-losses of one phase into a single scalar.
//
// Terms are summed in insertion order so logs are reproducible. The total
// may be backpropagated exactly once.
//
//	terms := gan.NewTerms()
//	terms.Add("real_adv", gan.Adversarial(crit, dReal, gan.RealTarget))
//	terms.Add("fake_adv", gan.Adversarial(crit, dFake, gan.FakeTarget))
//	grads, err := terms.Backward(backend)
type Terms struct {
	names   []string
	weights []float64
	losses  []*Tensor
	total   *Tensor
	done    bool
}

// NewTerms returns an empty accumulator.
func NewTerms() *Terms {
	return &Terms{}
}

// Add appends a term with weight 1.
func (t *Terms) Add(name string, loss *Tensor) {
	t.AddWeighted(name, 1, loss)
}

// AddWeighted appends weight·loss. loss must be a non-negative scalar and
// name unused so far. Non-finite values are accepted and surface through
// Finite.
func (t *Terms) AddWeighted(name string, weight float64, loss *Tensor) {
	if t.total != nil {
		panic("terms: Add after Total")
	}
	for _, n := range t.names {
		if n == name {
			panic(fmt.Sprintf("terms: duplicate term %q", name))
		}
	}
	if loss.NumElements() != 1 {
		panic(fmt.Sprintf("terms: %s is not a scalar: %v", name, loss.Shape()))
	}
	if v := float64(loss.Item()); (v < -negativeTolerance && !math.IsInf(v, 0)) || weight < 0 {
		panic(fmt.Sprintf("terms: %s must be non-negative, got %g×%g", name, weight, v))
	}
	t.names = append(t.names, name)
	t.weights = append(t.weights, weight)
	t.losses = append(t.losses, loss)
}

// Len is the number of terms.
func (t *Terms) Len() int { return len(t.names) }

// Total returns the weighted sum. It is built on first call.
func (t *Terms) Total() *Tensor {
	if t.total != nil {
		return t.total
	}
	if len(t.losses) == 0 {
		panic("terms: no terms")
	}
	for i, loss := range t.losses {
		if t.weights[i] != 1 {
			loss = loss.MulScalar(t.weights[i])
		}
		if t.total == nil {
			t.total = loss
		} else {
			t.total = t.total.Add(loss)
		}
	}
	return t.total
}

// Value is the scalar value of the total.
func (t *Terms) Value() float64 {
	return float64(t.Total().Item())
}

// Finite reports whether the total is a finite number.
func (t *Terms) Finite() bool {
	v := t.Value()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Values lists every term in insertion order.
func (t *Terms) Values() []Value {
	out := make([]Value, len(t.names))
	for i, name := range t.names {
		out[i] = Value{Name: name, Weight: t.weights[i], Value: float64(t.losses[i].Item())}
	}
	return out
}

// Get returns the unweighted value of a term.
func (t *Terms) Get(name string) (float64, bool) {
	for i, n := range t.names {
		if n == name {
			return float64(t.losses[i].Item()), true
		}
	}
	return 0, false
}

func (t *Terms) String() string {
	var sb strings.Builder
	for i, v := range t.Values() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s: %.4f", v.Name, v.Value)
	}
	return sb.String()
}

// Backward backpropagates the total and returns the gradients.
func (t *Terms) Backward(backend Backend) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	if t.done {
		return nil, ErrAlreadyBackpropagated
	}
	t.done = true
	return backend.Backward(t.Total().Raw()), nil
}

// Adversarial targets.
const (
	RealTarget float32 = 1
	FakeTarget float32 = 0
)

// Criterion selects the adversarial loss.
type Criterion int

const (
	// CriterionBCE applies a sigmoid to the logits and takes binary
	// cross-entropy on the probabilities.
	CriterionBCE Criterion = iota
	// CriterionBCEWithLogits fuses the sigmoid into the loss.
	CriterionBCEWithLogits
)

func (c Criterion) String() string {
	if c == CriterionBCEWithLogits {
		return "bce-logits"
	}
	return "bce"
}

// ParseCriterion accepts "bce" or "bce-logits".
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(s) {
	case "bce":
		return CriterionBCE, nil
	case "bce-logits", "bcewithlogits":
		return CriterionBCEWithLogits, nil
	default:
		return 0, fmt.Errorf("unknown adversarial criterion %q", s)
	}
}

// Adversarial is the binary cross-entropy between the discriminator's
// judgement of logits and a constant target.
func Adversarial(c Criterion, logits *Tensor, target float32) *Tensor {
	targets := tensor.Full[float32](logits.Shape(), target, logits.Backend())
	if c == CriterionBCEWithLogits {
		return nn.NewBCEWithLogitsLoss[Backend]().Forward(logits, targets)
	}
	probs := nn.NewSigmoid[Backend]().Forward(logits)
	return nn.NewBCELoss[Backend]().Forward(probs, targets)
}

// Classification is the cross-entropy between class logits [N, C] and labels.
func Classification(logits *Tensor, labels []int64) *Tensor {
	b := logits.Backend()
	lt, err := tensor.FromSlice[int64](labels, tensor.Shape{len(labels)}, b)
	if err != nil {
		panic(err)
	}
	return nn.NewCrossEntropyLoss[Backend]().Forward(logits, lt)
}

// Reconstruction is the mean absolute difference between two samples.
func Reconstruction(generated, reference *Tensor) *Tensor {
	return nn.NewL1Loss[Backend]().Forward(generated, reference)
}

// FrameSchedule shapes per-frame reconstruction weights.
type FrameSchedule int

const (
	// FrameLinear weighs frame i of n by k·(n−i): early frames dominate.
	FrameLinear FrameSchedule = iota
	// FrameConstant weighs every frame by k.
	FrameConstant
	// FrameNone disables per-frame reconstruction.
	FrameNone
)

func (s FrameSchedule) String() string {
	switch s {
	case FrameLinear:
		return "linear"
	case FrameConstant:
		return "constant"
	default:
		return "none"
	}
}

// ParseFrameSchedule accepts "linear", "constant" or "none".
func ParseFrameSchedule(s string) (FrameSchedule, error) {
	switch strings.ToLower(s) {
	case "linear":
		return FrameLinear, nil
	case "constant":
		return FrameConstant, nil
	case "none", "":
		return FrameNone, nil
	default:
		return 0, fmt.Errorf("unknown frame weight schedule %q", s)
	}
}

// FrameWeights returns the weight of each of n frames. FrameNone yields nil.
func FrameWeights(s FrameSchedule, k float64, n int) []float64 {
	if s == FrameNone {
		return nil
	}
	w := make([]float64, n)
	for i := range w {
		if s == FrameLinear {
			w[i] = k * float64(n-i)
		} else {
			w[i] = k
		}
	}
	return w
}

// FrameReconstruction is Σ w_i·L1(frame_i, reference) for a batch of clips
// [N, T·D] against reference images [N, D]. Zero-weight frames are skipped.
func FrameReconstruction(clips, reference *Tensor, weights []float64) *Tensor {
	dim := reference.Shape()[1]
	var total *Tensor
	for i, w := range weights {
		if w == 0 {
			continue
		}
		term := Reconstruction(clips.Narrow(1, i*dim, dim), reference).MulScalar(w)
		if total == nil {
			total = term
		} else {
			total = total.Add(term)
		}
	}
	if total == nil {
		return tensor.Zeros[float32](tensor.Shape{}, clips.Backend())
	}
	return total
}

// KLDivergence is KL(N(mu, exp(logvar)) ‖ N(0, 1)) averaged over elements.
func KLDivergence(mu, logvar *Tensor) *Tensor {
	return mu.Mul(mu).Add(logvar.Exp()).AddScalar(-1).Sub(logvar).MulScalar(0.5).Mean()
}
