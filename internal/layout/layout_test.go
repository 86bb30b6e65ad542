package layout

import (
	mathbits "math/bits"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/y0rk9s/cangen/internal/dbc"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		name      string
		startBit  int
		bitLength int
		order     dbc.ByteOrder
		want      []Segment
	}{
		{
			name:      "little endian, byte aligned single byte",
			startBit:  0,
			bitLength: 8,
			order:     dbc.LittleEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 0, DecodeShift: 0, Mask: 0xFF, Bits: 8},
			},
		},
		{
			name:      "little endian, 12 bits from bit 0",
			startBit:  0,
			bitLength: 12,
			order:     dbc.LittleEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 0, DecodeShift: 0, Mask: 0xFF, Bits: 8},
				{ByteIndex: 1, EncodeShift: -8, DecodeShift: 8, Mask: 0x0F, Bits: 4},
			},
		},
		{
			name:      "little endian, 4 bits in the high nibble",
			startBit:  12,
			bitLength: 4,
			order:     dbc.LittleEndian,
			want: []Segment{
				{ByteIndex: 1, EncodeShift: 4, DecodeShift: -4, Mask: 0xF0, Bits: 4},
			},
		},
		{
			name:      "little endian, unaligned crossing a byte",
			startBit:  4,
			bitLength: 10,
			order:     dbc.LittleEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 4, DecodeShift: -4, Mask: 0xF0, Bits: 4},
				{ByteIndex: 1, EncodeShift: -4, DecodeShift: 4, Mask: 0x3F, Bits: 6},
			},
		},
		{
			name:      "little endian, three byte span",
			startBit:  6,
			bitLength: 17,
			order:     dbc.LittleEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 6, DecodeShift: -6, Mask: 0xC0, Bits: 2},
				{ByteIndex: 1, EncodeShift: -2, DecodeShift: 2, Mask: 0xFF, Bits: 8},
				{ByteIndex: 2, EncodeShift: -10, DecodeShift: 10, Mask: 0x7F, Bits: 7},
			},
		},
		{
			name:      "big endian, byte aligned single byte",
			startBit:  7,
			bitLength: 8,
			order:     dbc.BigEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 0, DecodeShift: 0, Mask: 0xFF, Bits: 8},
			},
		},
		{
			name:      "big endian, 12 bits from bit 7",
			startBit:  7,
			bitLength: 12,
			order:     dbc.BigEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: -4, DecodeShift: 4, Mask: 0xFF, Bits: 8},
				{ByteIndex: 1, EncodeShift: 4, DecodeShift: -4, Mask: 0xF0, Bits: 4},
			},
		},
		{
			name:      "big endian, 12 bits from bit 0",
			startBit:  0,
			bitLength: 12,
			order:     dbc.BigEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: -11, DecodeShift: 11, Mask: 0x01, Bits: 1},
				{ByteIndex: 1, EncodeShift: -3, DecodeShift: 3, Mask: 0xFF, Bits: 8},
				{ByteIndex: 2, EncodeShift: 5, DecodeShift: -5, Mask: 0xE0, Bits: 3},
			},
		},
		{
			name:      "big endian, single bit at the top of a byte",
			startBit:  7,
			bitLength: 1,
			order:     dbc.BigEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 7, DecodeShift: -7, Mask: 0x80, Bits: 1},
			},
		},
		{
			name:      "big endian, field ending exactly at bit 0",
			startBit:  3,
			bitLength: 4,
			order:     dbc.BigEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 0, DecodeShift: 0, Mask: 0x0F, Bits: 4},
			},
		},
		{
			name:      "big endian, wide field ending exactly at bit 0",
			startBit:  5,
			bitLength: 6,
			order:     dbc.BigEndian,
			want: []Segment{
				{ByteIndex: 0, EncodeShift: 0, DecodeShift: 0, Mask: 0x3F, Bits: 6},
			},
		},
	}

	for _, test := range tests {
		got := Segments(test.startBit, test.bitLength, test.order)
		if diff := pretty.Compare(test.want, got); diff != "" {
			t.Errorf("TestSegments(%s): -want/+got:\n%s", test.name, diff)
		}
	}
}

// TestSegmentCoverage checks the structural invariants for every layout a 16
// byte message can hold: segment bit counts sum to the field's bit length,
// masks match their bit counts, shifts are exact inverses, and byte indexes
// stay inside the message and strictly increase.
func TestSegmentCoverage(t *testing.T) {
	const msgBytes = 16

	for _, order := range []dbc.ByteOrder{dbc.LittleEndian, dbc.BigEndian} {
		for start := 0; start < msgBytes*8; start++ {
			for length := 1; length <= 64; length++ {
				if !fits(start, length, order, msgBytes) {
					continue
				}

				segs := Segments(start, length, order)
				if got := Bits(segs); got != length {
					t.Fatalf("TestSegmentCoverage(%v start %d len %d): covered %d bits, want %d", order, start, length, got, length)
				}

				lastIndex := -1
				for _, s := range segs {
					if s.ByteIndex <= lastIndex {
						t.Fatalf("TestSegmentCoverage(%v start %d len %d): byte index %d does not increase", order, start, length, s.ByteIndex)
					}
					lastIndex = s.ByteIndex
					if s.ByteIndex < 0 || s.ByteIndex >= msgBytes {
						t.Fatalf("TestSegmentCoverage(%v start %d len %d): byte index %d outside message", order, start, length, s.ByteIndex)
					}
					if mathbits.OnesCount8(s.Mask) != s.Bits {
						t.Fatalf("TestSegmentCoverage(%v start %d len %d): mask %08b has %d bits, segment claims %d", order, start, length, s.Mask, mathbits.OnesCount8(s.Mask), s.Bits)
					}
					if s.DecodeShift != -s.EncodeShift {
						t.Fatalf("TestSegmentCoverage(%v start %d len %d): decode shift %d is not the inverse of encode shift %d", order, start, length, s.DecodeShift, s.EncodeShift)
					}
				}
			}
		}
	}
}

// fits reports whether a field fully lies within a message of msgBytes.
func fits(start, length int, order dbc.ByteOrder, msgBytes int) bool {
	if order == dbc.BigEndian {
		// Bits available from the start position walking toward bit 0 and
		// then through the remaining bytes.
		avail := (start % 8) + 1 + (msgBytes-1-start/8)*8
		return length <= avail
	}
	return start+length <= msgBytes*8
}
