// Package layout decomposes a signal's bit range into byte-aligned segments.
// Each segment names one destination byte, the bits of that byte the signal
// owns, and the shift that moves the signal value into (or out of) position.
package layout

import (
	"math/bits"

	"github.com/y0rk9s/cangen/internal/dbc"
)

// Segment is one byte-aligned slice of a signal's bit range.
type Segment struct {
	// ByteIndex is the index of the byte within the message buffer.
	ByteIndex int
	// EncodeShift moves the signal value's bits into position within the
	// byte when packing. Positive is a left shift, negative a right shift.
	EncodeShift int
	// DecodeShift moves the bits extracted from the byte back down to their
	// position within the accumulated value. Always -EncodeShift; it is
	// stored explicitly so neither emitter direction derives it and risks an
	// off-by-sign error.
	DecodeShift int
	// Mask selects the bits of the byte this segment owns.
	Mask uint8
	// Bits is the number of value bits the segment carries.
	Bits int
}

// Segments decomposes a field at startBit with bitLength bits into its
// ordered byte segments. Concatenating the segments in emission order,
// applying DecodeShift to each, reconstructs the original value.
//
// For little-endian signals startBit names the value's least-significant bit
// and segments walk toward higher byte indexes. For big-endian signals
// startBit names the value's most-significant bit position (bit 7 is the most
// significant within a byte); segments consume bits from that position toward
// bit 0, then cross into the next byte at its bit 7.
//
// bitLength must be 1..64; wider fields are rejected by the caller before
// segmentation.
func Segments(startBit, bitLength int, order dbc.ByteOrder) []Segment {
	index := startBit / 8
	pos := startBit % 8
	left := bitLength

	segs := make([]Segment, 0, bitLength/8+2)
	for left > 0 {
		var segBits, shift, mask int

		if order == dbc.BigEndian {
			if left > pos+1 {
				// The remaining bits spill past bit 0 of this byte: the
				// value's top bits land here, the rest continue at bit 7 of
				// the next byte.
				segBits = pos + 1
				shift = -(left - segBits)
				mask = 1<<segBits - 1
				pos = 7
			} else {
				// Final segment: the value's low bits end at pos-left+1.
				segBits = left
				shift = pos - segBits + 1
				mask = (1<<segBits - 1) << shift
			}
		} else {
			if left >= 8-pos {
				// Fill this byte from pos up; the rest continues at bit 0 of
				// the next byte.
				segBits = 8 - pos
				shift = (left - bitLength) + pos
				mask = (1<<segBits - 1) << pos
				pos = 0
			} else {
				segBits = left
				shift = (left - bitLength) + pos
				mask = (1<<segBits - 1) << pos
			}
		}

		segs = append(segs, Segment{
			ByteIndex:   index,
			EncodeShift: shift,
			DecodeShift: -shift,
			Mask:        uint8(mask),
			Bits:        segBits,
		})
		left -= segBits
		index++
	}
	return segs
}

// Bits sums the bit counts of segs.
func Bits(segs []Segment) int {
	n := 0
	for _, s := range segs {
		n += bits.OnesCount8(s.Mask)
	}
	return n
}
