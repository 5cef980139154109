package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/born-ml/gantrain/internal/tensor"
)

// File is a decoded .born file.
type File struct {
	Header  Header
	Tensors map[string]*tensor.RawTensor
}

// Decode parses and validates a complete .born v2 image. The checksum is
// always verified; tensors are copied out of buf.
func Decode(buf []byte) (*File, error) {
	if len(buf) < FixedHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(buf))
	}
	if string(buf[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(buf[16:24])
	dataSize := binary.LittleEndian.Uint64(buf[24:32])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	var stored [32]byte
	copy(stored[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerEnd := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - headerEnd%HeaderAlignment) % HeaderAlignment
	dataStart := headerEnd + padding
	if dataStart+int64(dataSize) > int64(len(buf)) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, dataStart+int64(dataSize), len(buf))
	}
	data := buf[dataStart : dataStart+int64(dataSize)]

	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, err
	}

	var header Header
	if err := json.Unmarshal(buf[FixedHeaderSize:headerEnd], &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tensors := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		dt, _ := stringToDtype(meta.DType)
		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dt, tensor.CPU)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", meta.Name, err)
		}
		copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])
		tensors[meta.Name] = raw
	}
	return &File{Header: header, Tensors: tensors}, nil
}

// ReadFile reads and decodes path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: checkpoint paths come from the run configuration
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	f, err := Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
