package ops

import (
	"github.com/born-ml/gantrain/internal/tensor"
)

// reduceBroadcast sums grad down to target, undoing forward broadcasting.
//
//	Forward:  a[3,1] + b[3,4] -> c[3,4]
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		return grad
	}
	g := grad
	for len(g.Shape()) > len(target) {
		g = backend.SumDim(g, 0, false)
	}
	for i := range target {
		if target[i] == 1 && g.Shape()[i] != 1 {
			g = backend.SumDim(g, i, true)
		}
	}
	if !g.Shape().Equal(target) {
		g = backend.Reshape(g, target)
	}
	return g
}

// mapGrad builds f(grad[i], ref[i]) element-wise. grad and ref share a shape.
func mapGrad(grad, ref *tensor.RawTensor, f func(g, r float32) float32) *tensor.RawTensor {
	out := tensor.MustRaw(ref.Shape(), tensor.Float32, ref.Device())
	g, r, o := grad.AsFloat32(), ref.AsFloat32(), out.AsFloat32()
	for i := range o {
		o[i] = f(g[i], r[i])
	}
	return out
}

// scalarOf returns the value of a single-element gradient.
func scalarOf(grad *tensor.RawTensor) float32 {
	return grad.AsFloat32()[0]
}

// zerosLike allocates a float32 zero tensor of the given shape.
func zerosLike(shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	return tensor.MustRaw(shape, tensor.Float32, device)
}
