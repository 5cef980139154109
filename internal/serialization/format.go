// Package serialization reads and writes the .born v2 tensor container used
// for player checkpoints and the fixed visualization latent.
//
//	Layout:
//	  0x00  [4]  magic "BORN"
//	  0x04  [4]  version (uint32 LE, always 2)
//	  0x08  [4]  flags
//	  0x0C  [4]  reserved
//	  0x10  [8]  JSON header size
//	  0x18  [8]  data section size
//	  0x20  [32] SHA-256 of the data section
//	  0x40  JSON header, zero-padded to a 64-byte boundary
//	        tensor data, in header order
//
// Tensors are written in lexical name order so the same state dict always
// produces the same bytes apart from the creation timestamp.
package serialization

import (
	"time"

	"github.com/born-ml/gantrain/internal/tensor"
)

// Format constants.
const (
	MagicBytes       = "BORN"
	FormatVersion    = 2
	HeaderAlignment  = 64
	FixedHeaderSize  = 64
	ChecksumSize     = 32
	ChecksumOffset   = 0x20
	formatGeneration = "gantrain/1"
)

// Flags for the fixed header.
const (
	FlagHasOptimizer uint32 = 1 << 1
	FlagHasMetadata  uint32 = 1 << 2
)

// Data type names used in the JSON header.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
	DTypeInt64   = "int64"
	DTypeUint8   = "uint8"
)

// Header is the JSON header of a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	Generator      string            `json:"generator"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta records where in a run a player snapshot was taken.
type CheckpointMeta struct {
	Role          string  `json:"role"`
	Epoch         int     `json:"epoch"`
	Step          int     `json:"step"`
	GlobalStep    int64   `json:"global_step"`
	RunID         string  `json:"run_id"`
	OptimizerType string  `json:"optimizer_type,omitempty"`
	LearningRate  float32 `json:"learning_rate,omitempty"`
}

// TensorMeta describes one tensor of the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	case tensor.Int64:
		return DTypeInt64
	case tensor.Uint8:
		return DTypeUint8
	default:
		return "unknown"
	}
}

func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	case DTypeInt64:
		return tensor.Int64, true
	case DTypeUint8:
		return tensor.Uint8, true
	default:
		return 0, false
	}
}
