package tensor

// Backend computes tensor operations. Inputs are never modified; every
// operation allocates its result.
//
// Implementations:
//   - backend/cpu: pure Go, gonum BLAS for matrix products
//   - backend/webgpu: GPU matrix products, CPU for everything else
//   - autodiff: decorator that records operations on a gradient tape
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul multiplies two 2D matrices: (M, K) @ (K, N) → (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	Reshape(t *RawTensor, newShape Shape) *RawTensor
	// Transpose permutes dimensions; no axes reverses them.
	Transpose(t *RawTensor, axes ...int) *RawTensor

	MulScalar(x *RawTensor, s float64) *RawTensor
	AddScalar(x *RawTensor, s float64) *RawTensor

	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor

	ReLU(x *RawTensor) *RawTensor
	LeakyReLU(x *RawTensor, slope float64) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Sum reduces every element to a 0-d scalar.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Cat concatenates along dim; Narrow takes [start, start+length) along dim.
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	Name() string
	Device() Device
}
