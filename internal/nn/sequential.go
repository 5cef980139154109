package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/gantrain/internal/tensor"
)

// Sequential chains modules; each output feeds the next module.
//
// State dict entries are prefixed with the module index: "0.weight",
// "0.bias", "2.weight", ...
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Add appends a module.
func (s *Sequential[B]) Add(m Module[B]) {
	s.modules = append(s.modules, m)
}

func (s *Sequential[B]) Len() int { return len(s.modules) }

// Module returns the i-th module.
func (s *Sequential[B]) Module(i int) Module[B] {
	if i < 0 || i >= len(s.modules) {
		panic(fmt.Sprintf("Sequential.Module: index %d out of range [0, %d)", i, len(s.modules)))
	}
	return s.modules[i]
}

func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for i, m := range s.modules {
		prefix := strconv.Itoa(i) + "."
		for name, raw := range m.StateDict() {
			out[prefix+name] = raw
		}
	}
	return out
}

func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, m := range s.modules {
		if len(m.Parameters()) == 0 {
			continue
		}
		prefix := strconv.Itoa(i) + "."
		if err := m.LoadStateDict(SubStateDict(stateDict, prefix)); err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}
	return nil
}
