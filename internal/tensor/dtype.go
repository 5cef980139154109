// Package tensor provides the tensor types shared by every backend, layer and trainer.
package tensor

// DType is the compile-time constraint for tensor element types.
type DType interface {
	~float32 | ~float64 | ~int64 | ~uint8
}

// DataType is the runtime tag stored in every RawTensor.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Int64
	Uint8
)

// Size returns the byte width of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8:
		return 1
	default:
		panic("unknown data type")
	}
}

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	default:
		return "unknown"
	}
}

func dataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int64:
		return Int64
	case uint8:
		return Uint8
	default:
		panic("unsupported element type")
	}
}
