package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateTensorName rejects empty names, path-like names and NUL bytes.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Kind: ErrInvalidTensorName, Details: "empty name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name[:64] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen)}
	case strings.Contains(name, ".."):
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, "/\\"):
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "contains a path separator"}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "contains a NUL byte"}
	}
	return nil
}

// ValidateTensorOffsets checks that every tensor lies inside the data section,
// that no two tensors overlap and that sizes match dtype × shape.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{Kind: ErrOutOfBounds, Details: fmt.Sprintf("%d tensors, max %d", len(tensors), MaxTensorCount)}
	}
	sorted := append([]TensorMeta(nil), tensors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 || t.Offset+t.Size > dataSize {
			return &ValidationError{Kind: ErrOutOfBounds, Tensor: t.Name,
				Details: fmt.Sprintf("offset %d + size %d, data section %d", t.Offset, t.Size, dataSize)}
		}
		if want, ok := expectedSize(t); ok && want != t.Size {
			return &ValidationError{Kind: ErrOutOfBounds, Tensor: t.Name,
				Details: fmt.Sprintf("size %d does not match %s%v (%d bytes)", t.Size, t.DType, t.Shape, want)}
		}
		if i+1 < len(sorted) && t.Offset+t.Size > sorted[i+1].Offset {
			next := sorted[i+1]
			return &ValidationError{Kind: ErrOffsetOverlap, Tensor: t.Name, Tensor2: next.Name,
				Details: fmt.Sprintf("[%d-%d] and [%d-%d]", t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size)}
		}
	}
	return nil
}

// ValidateHeader runs every structural check on a parsed header.
func ValidateHeader(h *Header, dataSize int64) error {
	if h.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: header says %d", ErrUnsupportedVersion, h.FormatVersion)
	}
	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return &ValidationError{Kind: ErrInvalidTensorName, Tensor: t.Name, Details: "duplicate name"}
		}
		seen[t.Name] = struct{}{}
		if _, ok := stringToDtype(t.DType); !ok {
			return &ValidationError{Kind: ErrInvalidTensorName, Tensor: t.Name, Details: "unknown dtype " + t.DType}
		}
	}
	return ValidateTensorOffsets(h.Tensors, dataSize)
}

func expectedSize(t TensorMeta) (int64, bool) {
	dt, ok := stringToDtype(t.DType)
	if !ok {
		return 0, false
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= int64(d)
	}
	return n * int64(dt.Size()), true
}
