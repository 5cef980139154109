package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/gantrain/internal/tensor"
)

// bceLogFloor clamps log terms in BCE so p ∈ {0, 1} stays finite.
const bceLogFloor = -100.0

// BCEWithLogitsForward computes mean(max(x,0) - x*y + log(1 + exp(-|x|))).
func BCEWithLogitsForward(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	requireSameShape("bce_with_logits", logits, targets)
	x, y := logits.AsFloat32(), targets.AsFloat32()
	var sum float64
	for i := range x {
		xi, yi := float64(x[i]), float64(y[i])
		sum += math.Max(xi, 0) - xi*yi + math.Log1p(math.Exp(-math.Abs(xi)))
	}
	return tensor.Scalar(float32(sum/float64(len(x))), logits.Device())
}

// BCEWithLogitsOp: d/dx = (σ(x) - y) / N. Targets are constants.
type BCEWithLogitsOp struct {
	node
	targets *tensor.RawTensor
}

func NewBCEWithLogitsOp(logits, targets, output *tensor.RawTensor) *BCEWithLogitsOp {
	return &BCEWithLogitsOp{node: newNode(output, logits), targets: targets}
}

func (op *BCEWithLogitsOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	logits := op.inputs[0]
	scale := scalarOf(grad) / float32(logits.NumElements())
	out := tensor.MustRaw(logits.Shape(), tensor.Float32, logits.Device())
	x, y, o := logits.AsFloat32(), op.targets.AsFloat32(), out.AsFloat32()
	for i := range o {
		o[i] = scale * (float32(sigmoid(float64(x[i]))) - y[i])
	}
	return []*tensor.RawTensor{out}
}

// BCEForward computes mean(-(y*log p + (1-y)*log(1-p))) with logs clamped at -100.
func BCEForward(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	requireSameShape("bce", probs, targets)
	p, y := probs.AsFloat32(), targets.AsFloat32()
	var sum float64
	for i := range p {
		pi, yi := float64(p[i]), float64(y[i])
		sum -= yi*clampedLog(pi) + (1-yi)*clampedLog(1-pi)
	}
	return tensor.Scalar(float32(sum/float64(len(p))), probs.Device())
}

// BCEOp: d/dp = (p - y) / (p(1-p)) / N, denominator floored at 1e-12.
type BCEOp struct {
	node
	targets *tensor.RawTensor
}

func NewBCEOp(probs, targets, output *tensor.RawTensor) *BCEOp {
	return &BCEOp{node: newNode(output, probs), targets: targets}
}

func (op *BCEOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	probs := op.inputs[0]
	scale := float64(scalarOf(grad)) / float64(probs.NumElements())
	out := tensor.MustRaw(probs.Shape(), tensor.Float32, probs.Device())
	p, y, o := probs.AsFloat32(), op.targets.AsFloat32(), out.AsFloat32()
	for i := range o {
		pi := float64(p[i])
		o[i] = float32(scale * (pi - float64(y[i])) / math.Max(pi*(1-pi), 1e-12))
	}
	return []*tensor.RawTensor{out}
}

// CrossEntropyForward computes the mean of logsumexp(x_b) - x_b[label_b] over
// a [B, C] logit matrix and B int64 labels.
func CrossEntropyForward(logits, labels *tensor.RawTensor) *tensor.RawTensor {
	b, c := crossEntropyDims(logits, labels)
	x, l := logits.AsFloat32(), labels.AsInt64()
	var sum float64
	for i := 0; i < b; i++ {
		row := x[i*c : (i+1)*c]
		sum += logSumExp(row) - float64(row[l[i]])
	}
	return tensor.Scalar(float32(sum/float64(b)), logits.Device())
}

// CrossEntropyOp: d/dx = (softmax(x) - onehot(label)) / B.
type CrossEntropyOp struct {
	node
	labels *tensor.RawTensor
}

func NewCrossEntropyOp(logits, labels, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{node: newNode(output, logits), labels: labels}
}

func (op *CrossEntropyOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	logits := op.inputs[0]
	b, c := crossEntropyDims(logits, op.labels)
	scale := float64(scalarOf(grad)) / float64(b)
	out := tensor.MustRaw(logits.Shape(), tensor.Float32, logits.Device())
	x, l, o := logits.AsFloat32(), op.labels.AsInt64(), out.AsFloat32()
	for i := 0; i < b; i++ {
		row := x[i*c : (i+1)*c]
		lse := logSumExp(row)
		for j := range row {
			p := math.Exp(float64(row[j]) - lse)
			if int64(j) == l[i] {
				p--
			}
			o[i*c+j] = float32(scale * p)
		}
	}
	return []*tensor.RawTensor{out}
}

// L1Forward computes mean(|a - b|).
func L1Forward(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireSameShape("l1", a, b)
	x, y := a.AsFloat32(), b.AsFloat32()
	var sum float64
	for i := range x {
		sum += math.Abs(float64(x[i]) - float64(y[i]))
	}
	return tensor.Scalar(float32(sum/float64(len(x))), a.Device())
}

// L1Op: d/da = sign(a - b) / N, d/db = -d/da.
type L1Op struct{ node }

func NewL1Op(a, b, output *tensor.RawTensor) *L1Op {
	return &L1Op{newNode(output, a, b)}
}

func (op *L1Op) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	scale := scalarOf(grad) / float32(a.NumElements())
	ga := tensor.MustRaw(a.Shape(), tensor.Float32, a.Device())
	x, y, o := a.AsFloat32(), b.AsFloat32(), ga.AsFloat32()
	for i := range o {
		o[i] = scale * sign(x[i]-y[i])
	}
	return []*tensor.RawTensor{ga, backend.MulScalar(ga, -1)}
}

// MSEForward computes mean((a - b)²).
func MSEForward(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireSameShape("mse", a, b)
	x, y := a.AsFloat32(), b.AsFloat32()
	var sum float64
	for i := range x {
		d := float64(x[i]) - float64(y[i])
		sum += d * d
	}
	return tensor.Scalar(float32(sum/float64(len(x))), a.Device())
}

// MSEOp: d/da = 2(a - b) / N, d/db = -d/da.
type MSEOp struct{ node }

func NewMSEOp(a, b, output *tensor.RawTensor) *MSEOp {
	return &MSEOp{newNode(output, a, b)}
}

func (op *MSEOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	scale := 2 * scalarOf(grad) / float32(a.NumElements())
	ga := tensor.MustRaw(a.Shape(), tensor.Float32, a.Device())
	x, y, o := a.AsFloat32(), b.AsFloat32(), ga.AsFloat32()
	for i := range o {
		o[i] = scale * (x[i] - y[i])
	}
	return []*tensor.RawTensor{ga, backend.MulScalar(ga, -1)}
}

func requireSameShape(name string, a, b *tensor.RawTensor) {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", name, a.Shape(), b.Shape()))
	}
}

func crossEntropyDims(logits, labels *tensor.RawTensor) (int, int) {
	s := logits.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("cross_entropy: logits must be 2D, got %v", s))
	}
	if labels.DType() != tensor.Int64 || labels.NumElements() != s[0] {
		panic(fmt.Sprintf("cross_entropy: need %d int64 labels, got %d %s", s[0], labels.NumElements(), labels.DType()))
	}
	for _, l := range labels.AsInt64() {
		if l < 0 || int(l) >= s[1] {
			panic(fmt.Sprintf("cross_entropy: label %d out of range [0, %d)", l, s[1]))
		}
	}
	return s[0], s[1]
}

func logSumExp(row []float32) float64 {
	maxV := math.Inf(-1)
	for _, v := range row {
		maxV = math.Max(maxV, float64(v))
	}
	if !isFinite(maxV) {
		return maxV
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - maxV)
	}
	return maxV + math.Log(sum)
}

func clampedLog(v float64) float64 {
	if v <= 0 {
		return bceLogFloor
	}
	return math.Max(math.Log(v), bceLogFloor)
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
