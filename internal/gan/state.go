package gan

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// TrainingState is everything about a run that is not a tensor: the loop
// position, counters and the last observed losses. It is saved next to
// every snapshot set so a resumed run continues from the recorded position.
type TrainingState struct {
	RunID   string
	Variant string
	Seed    int64

	// Epoch and Step are the next position to run.
	Epoch int
	Step  int

	// GlobalStep counts completed steps across epochs, skipped ones included.
	GlobalStep int64

	SkippedMismatch  int64
	SkippedNonFinite int64

	LastLossD float64
	LastLossG float64

	// Updates is the optimizer step count per role.
	Updates map[string]int64
}

// Advance moves the position past the current step.
func (s *TrainingState) Advance(stepsPerEpoch int) {
	s.GlobalStep++
	s.Step++
	if stepsPerEpoch > 0 && s.Step >= stepsPerEpoch {
		s.Epoch++
		s.Step = 0
	}
}

// Field numbers of the encoded state.
const (
	fieldRunID            protowire.Number = 1
	fieldVariant          protowire.Number = 2
	fieldSeed             protowire.Number = 3
	fieldEpoch            protowire.Number = 4
	fieldStep             protowire.Number = 5
	fieldGlobalStep       protowire.Number = 6
	fieldSkippedMismatch  protowire.Number = 7
	fieldSkippedNonFinite protowire.Number = 8
	fieldLastLossD        protowire.Number = 9
	fieldLastLossG        protowire.Number = 10
	fieldUpdates          protowire.Number = 11

	fieldUpdateRole  protowire.Number = 1
	fieldUpdateCount protowire.Number = 2
)

var errTruncatedState = errors.New("truncated trainer state")

// MarshalBinary encodes the state in protobuf wire format. Update entries
// are written in role order.
func (s *TrainingState) MarshalBinary() ([]byte, error) {
	var b []byte
	b = appendString(b, fieldRunID, s.RunID)
	b = appendString(b, fieldVariant, s.Variant)
	b = protowire.AppendTag(b, fieldSeed, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(s.Seed))
	b = appendVarint(b, fieldEpoch, uint64(s.Epoch))
	b = appendVarint(b, fieldStep, uint64(s.Step))
	b = appendVarint(b, fieldGlobalStep, uint64(s.GlobalStep))
	b = appendVarint(b, fieldSkippedMismatch, uint64(s.SkippedMismatch))
	b = appendVarint(b, fieldSkippedNonFinite, uint64(s.SkippedNonFinite))
	b = protowire.AppendTag(b, fieldLastLossD, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(s.LastLossD))
	b = protowire.AppendTag(b, fieldLastLossG, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(s.LastLossG))

	roles := make([]string, 0, len(s.Updates))
	for role := range s.Updates {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		var entry []byte
		entry = appendString(entry, fieldUpdateRole, role)
		entry = appendVarint(entry, fieldUpdateCount, uint64(s.Updates[role]))
		b = protowire.AppendTag(b, fieldUpdates, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

// UnmarshalBinary decodes a state written by MarshalBinary. Unknown fields
// are skipped.
func (s *TrainingState) UnmarshalBinary(data []byte) error {
	*s = TrainingState{Updates: make(map[string]int64)}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %w", errTruncatedState, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldRunID || num == fieldVariant || num == fieldUpdates):
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errTruncatedState, num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldRunID:
				s.RunID = string(v)
			case fieldVariant:
				s.Variant = string(v)
			default:
				role, count, err := decodeUpdate(v)
				if err != nil {
					return err
				}
				s.Updates[role] = count
			}

		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errTruncatedState, num, protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldSeed:
				s.Seed = protowire.DecodeZigZag(v)
			case fieldEpoch:
				s.Epoch = int(v) //nolint:gosec // G115: written from an int
			case fieldStep:
				s.Step = int(v) //nolint:gosec // G115: written from an int
			case fieldGlobalStep:
				s.GlobalStep = int64(v) //nolint:gosec // G115: written from an int64
			case fieldSkippedMismatch:
				s.SkippedMismatch = int64(v) //nolint:gosec // G115: written from an int64
			case fieldSkippedNonFinite:
				s.SkippedNonFinite = int64(v) //nolint:gosec // G115: written from an int64
			}

		case typ == protowire.Fixed64Type && (num == fieldLastLossD || num == fieldLastLossG):
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errTruncatedState, num, protowire.ParseError(n))
			}
			data = data[n:]
			if num == fieldLastLossD {
				s.LastLossD = math.Float64frombits(v)
			} else {
				s.LastLossG = math.Float64frombits(v)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", errTruncatedState, num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

func decodeUpdate(data []byte) (string, int64, error) {
	var (
		role  string
		count int64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", 0, fmt.Errorf("%w: update entry: %w", errTruncatedState, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldUpdateRole && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: update role: %w", errTruncatedState, protowire.ParseError(n))
			}
			role, data = string(v), data[n:]
		case num == fieldUpdateCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: update count: %w", errTruncatedState, protowire.ParseError(n))
			}
			count, data = int64(v), data[n:] //nolint:gosec // G115: written from an int64
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: update entry: %w", errTruncatedState, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return role, count, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
