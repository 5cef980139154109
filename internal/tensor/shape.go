package tensor

import "fmt"

// Shape holds tensor dimensions. An empty Shape is a scalar.
type Shape []int

// NumElements returns the product of all dimensions (1 for scalars).
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate reports the first non-positive dimension.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether both shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}

// ComputeStrides returns row-major strides in elements.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s[i]
	}
	return strides
}

// BroadcastShapes applies NumPy broadcasting rules, aligning shapes from the right.
// The boolean result reports whether either operand has to be expanded.
//
//	(3, 1) + (3, 5) → (3, 5), true
//	(3, 5) + (3, 5) → (3, 5), false
//	(3, 4) + (3, 5) → error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	expanded := len(a) != len(b)

	for i := 1; i <= n; i++ {
		da, db := 1, 1
		if len(a)-i >= 0 {
			da = a[len(a)-i]
		}
		if len(b)-i >= 0 {
			db = b[len(b)-i]
		}
		switch {
		case da == db:
			out[n-i] = da
		case da == 1:
			out[n-i] = db
			expanded = true
		case db == 1:
			out[n-i] = da
			expanded = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, n-i, da, db)
		}
	}
	return out, expanded, nil
}

// BroadcastStrides returns strides of s viewed as the (larger) shape out,
// with zero strides on broadcast dimensions.
func BroadcastStrides(s, out Shape) []int {
	own := s.ComputeStrides()
	strides := make([]int, len(out))
	offset := len(out) - len(s)
	for i := range s {
		if s[i] != 1 {
			strides[i+offset] = own[i]
		}
	}
	return strides
}
