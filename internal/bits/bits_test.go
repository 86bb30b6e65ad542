package bits

import (
	mathbits "math/bits"
	"testing"
)

func TestMask(t *testing.T) {
	tests := []struct {
		start, end uint64
		want       uint64
	}{
		{start: 0, end: 1, want: 0x01},
		{start: 1, end: 4, want: 0x0E},
		{start: 0, end: 8, want: 0xFF},
		{start: 4, end: 12, want: 0xFF0},
		{start: 0, end: 64, want: ^uint64(0)},
		{start: 63, end: 64, want: 1 << 63},
	}

	for _, test := range tests {
		got := Mask[uint64](test.start, test.end)
		if got != test.want {
			t.Errorf("TestMask(%d, %d): got %#x, want %#x", test.start, test.end, got, test.want)
		}
	}

	// Sweep every valid range and check the popcount and the edges.
	for start := uint64(0); start < 64; start++ {
		for end := start + 1; end <= 64; end++ {
			m := Mask[uint64](start, end)
			if got := mathbits.OnesCount64(m); got != int(end-start) {
				t.Fatalf("TestMask(%d, %d): %d bits set, want %d", start, end, got, end-start)
			}
			if m&(1<<start) == 0 {
				t.Fatalf("TestMask(%d, %d): start bit not set", start, end)
			}
			if m&(1<<(end-1)) == 0 {
				t.Fatalf("TestMask(%d, %d): bit end-1 not set", start, end)
			}
		}
	}
}

func TestGetBit(t *testing.T) {
	var v uint64 = 0b1010
	if GetBit(v, 0) {
		t.Errorf("TestGetBit: bit 0 of %04b reported set", v)
	}
	if !GetBit(v, 1) {
		t.Errorf("TestGetBit: bit 1 of %04b reported clear", v)
	}
	if !GetBit(uint64(1)<<63, 63) {
		t.Errorf("TestGetBit: bit 63 reported clear")
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		v     uint64
		width int
		want  uint64
	}{
		{v: 0b1111, width: 4, want: ^uint64(0)},            // -1
		{v: 0b1000, width: 4, want: ^uint64(0) &^ 0b0111},  // -8
		{v: 0b0111, width: 4, want: 0b0111},                // 7
		{v: 0, width: 1, want: 0},
		{v: 1, width: 1, want: ^uint64(0)},                 // single bit, set means -1
		{v: 0x8000, width: 16, want: ^uint64(0) &^ 0x7FFF}, // int16 min
		{v: 0x7FFF, width: 16, want: 0x7FFF},
		{v: 1 << 63, width: 64, want: 1 << 63},             // full width is the identity
		{v: 0xFF, width: 64, want: 0xFF},
	}

	for _, test := range tests {
		got := SignExtend(test.v, test.width)
		if got != test.want {
			t.Errorf("TestSignExtend(%#x, %d): got %#x, want %#x", test.v, test.width, got, test.want)
		}
	}
}
