// Package ops holds the differentiable operations recorded on the gradient tape.
//
// Each operation keeps references to its inputs and output from the forward
// pass and maps an output gradient to one gradient per input. A nil entry in
// the returned slice means no gradient flows to that input.
package ops

import "github.com/born-ml/gantrain/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward maps dL/d(output) to dL/d(input) for each input, in Inputs() order.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	Inputs() []*tensor.RawTensor
	Output() *tensor.RawTensor
}

// node carries the bookkeeping shared by every operation.
type node struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func newNode(output *tensor.RawTensor, inputs ...*tensor.RawTensor) node {
	return node{inputs: inputs, output: output}
}

func (n node) Inputs() []*tensor.RawTensor { return n.inputs }
func (n node) Output() *tensor.RawTensor   { return n.output }
