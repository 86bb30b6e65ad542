// Package codec turns a message definition into a codec: the record layout,
// the per-byte encode operations and the per-signal decode operations that
// renderers serialize into target source. The codec is also directly
// executable, Encode and Decode implement the exact semantics the generated
// source expresses, which is what the round-trip tests exercise.
package codec

import (
	"errors"
	"sort"

	"github.com/y0rk9s/cangen/internal/bits"
	"github.com/y0rk9s/cangen/internal/dbc"
	"github.com/y0rk9s/cangen/internal/layout"
)

// ErrInsufficientBuffer is returned when an encode destination or decode
// source is smaller than the message's fixed byte length. Nothing is written
// in that case.
var ErrInsufficientBuffer = errors.New("buffer smaller than message byte length")

// FieldCodec is the codec for one retained signal.
type FieldCodec struct {
	// Name is the normalized identifier used in the generated record.
	Name string
	// Signal is the database definition, kept for documentation metadata.
	Signal *dbc.Signal
	// Type is the storage type of the record field and the decode
	// accumulator.
	Type Type
	// Segments are the byte segments of the signal, in emission order.
	Segments []layout.Segment
	// ExtendMask has all bits from BitLength through the storage width set.
	// It is ORed into the accumulator when the decoded sign bit is set.
	// Zero for unsigned signals and when BitLength equals the storage width.
	ExtendMask uint64
}

// SignBit is the bit position tested before sign extension.
func (f FieldCodec) SignBit() int {
	return f.Signal.BitLength - 1
}

// EncodeOp is one byte-wise OR into the encode destination:
//
//	dst[ByteIndex] |= (value(Field) <Shift>) & Mask
//
// Several fields legitimately share a byte, so operations on one byte
// accumulate with OR, never plain assignment.
type EncodeOp struct {
	ByteIndex int
	// Field is the normalized name of the source field.
	Field string
	// Shift is the encode-direction shift. Positive is a left shift.
	Shift int
	Mask  uint8
}

// MessageCodec aggregates the codecs of every retained signal of one message.
type MessageCodec struct {
	// Name is the normalized identifier of the message.
	Name string
	// Message is the database definition.
	Message *dbc.Message
	// Fields holds the retained signals in declaration order.
	Fields []FieldCodec
	// Excluded lists the signals dropped from the codec and why.
	Excluded []Diagnostic

	ops []EncodeOp
}

// newField builds the codec for one signal. The normalized name is supplied
// by the caller, which owns collision policy.
func newField(sig *dbc.Signal, name string) (FieldCodec, Reason) {
	switch {
	case sig.Multiplexed || sig.Selector:
		return FieldCodec{}, MultiplexedSignal
	case sig.Float:
		return FieldCodec{}, FloatSignal
	}

	t, ok := StorageType(sig.BitLength, sig.Signed)
	if !ok {
		return FieldCodec{}, TooWide
	}

	f := FieldCodec{
		Name:     name,
		Signal:   sig,
		Type:     t,
		Segments: layout.Segments(sig.StartBit, sig.BitLength, sig.Order),
	}
	if sig.Signed && sig.BitLength < t.Width() {
		f.ExtendMask = bits.Mask[uint64](uint64(sig.BitLength), uint64(t.Width()))
	}
	return f, ReasonUnknown
}

// New builds the codec for one message. Signals that are float valued,
// multiplexed, wider than 64 bits, or whose normalized name collides with an
// earlier signal's are excluded and reported in Excluded; the remaining
// signals still get a full codec. A message whose signals are all excluded
// yields an empty record and codec.
func New(msg *dbc.Message, normalize func(string) string) MessageCodec {
	mc := MessageCodec{
		Name:    normalize(msg.Name),
		Message: msg,
	}

	seen := map[string]bool{}
	for _, sig := range msg.Signals {
		name := normalize(sig.Name)
		if seen[name] {
			mc.Excluded = append(mc.Excluded, Diagnostic{Message: msg.Name, Signal: sig.Name, Reason: DuplicateIdent})
			continue
		}

		f, reason := newField(sig, name)
		if reason != ReasonUnknown {
			mc.Excluded = append(mc.Excluded, Diagnostic{Message: msg.Name, Signal: sig.Name, Reason: reason})
			continue
		}
		seen[name] = true
		mc.Fields = append(mc.Fields, f)
	}

	mc.ops = buildEncodeOps(mc.Fields)
	return mc
}

// buildEncodeOps merges the encode segments of all fields and orders them by
// ascending byte index so output is deterministic. OR accumulation makes the
// order immaterial to correctness, fields keep declaration order within a
// byte.
func buildEncodeOps(fields []FieldCodec) []EncodeOp {
	ops := make([]EncodeOp, 0, len(fields))
	for _, f := range fields {
		for _, s := range f.Segments {
			ops = append(ops, EncodeOp{
				ByteIndex: s.ByteIndex,
				Field:     f.Name,
				Shift:     s.EncodeShift,
				Mask:      s.Mask,
			})
		}
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].ByteIndex < ops[j].ByteIndex })
	return ops
}

// EncodeOps returns the message's encode operations, grouped by ascending
// byte index.
func (mc MessageCodec) EncodeOps() []EncodeOp {
	return mc.ops
}

// Record holds field values keyed by normalized field name. Values are the
// raw bit patterns of the field's storage type: a decoded int8 of -1 is
// stored as 0xFF.
type Record map[string]uint64

// Encode packs rec into dst. dst must hold at least the message's byte
// length or ErrInsufficientBuffer is returned and nothing is written. The
// first byte length bytes of dst are zero filled first. Returns the number
// of bytes written.
func (mc MessageCodec) Encode(dst []byte, rec Record) (int, error) {
	size := mc.Message.ByteLength
	if len(dst) < size {
		return 0, ErrInsufficientBuffer
	}
	for i := 0; i < size; i++ {
		dst[i] = 0
	}

	for _, op := range mc.ops {
		v := rec[op.Field]
		var b uint8
		if op.Shift >= 0 {
			b = uint8(v<<op.Shift) & op.Mask
		} else {
			b = uint8(v>>(-op.Shift)) & op.Mask
		}
		dst[op.ByteIndex] |= b
	}
	return size, nil
}

// Decode unpacks src into rec. src must hold at least the message's byte
// length or ErrInsufficientBuffer is returned and rec is untouched. rec is
// cleared first; fields decode in declaration order, each accumulated from
// its segments then sign extended to its storage width when signed.
func (mc MessageCodec) Decode(rec Record, src []byte) error {
	size := mc.Message.ByteLength
	if len(src) < size {
		return ErrInsufficientBuffer
	}
	for k := range rec {
		delete(rec, k)
	}

	for _, f := range mc.Fields {
		var acc uint64
		for _, s := range f.Segments {
			v := uint64(src[s.ByteIndex] & s.Mask)
			if s.DecodeShift >= 0 {
				acc |= v << s.DecodeShift
			} else {
				acc |= v >> (-s.DecodeShift)
			}
		}
		if f.ExtendMask != 0 && bits.GetBit(acc, uint8(f.SignBit())) {
			acc |= f.ExtendMask
		}
		rec[f.Name] = acc
	}
	return nil
}
