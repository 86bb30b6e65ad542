// Package bits provides bit manipulation utilities shared by the layout and
// codec packages. This is not a replacement for math/bits.
package bits

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// Mask creates a mask with all bits set from start (inclusive) to end
// (exclusive). Index starts at 0, so Mask(1, 4) covers bits 1 to 3.
// If start >= end or end exceeds 64, this panics.
func Mask[U constraints.Unsigned](start, end uint64) U {
	if start >= end {
		panic("start cannot be >= end")
	}
	if end > 64 {
		panic(fmt.Sprintf("end %d exceeds width 64", end))
	}

	width := end - start

	var m uint64
	if width == 64 {
		// Avoid shifting by 64 (illegal in Go).
		m = ^uint64(0)
	} else {
		m = (uint64(1)<<width - 1) << start
	}
	return U(m)
}

// GetBit gets a single bit value from "store" in position "pos". true if set,
// false if not.
func GetBit[U constraints.Unsigned](store U, pos uint8) bool {
	return store&(1<<pos) != 0
}

// SignExtend replicates bit width-1 of v into all bits from width up to bit
// 63, producing the two's-complement value of a width-bit signed quantity.
// width must be in 1..64.
func SignExtend(v uint64, width int) uint64 {
	if width <= 0 || width > 64 {
		panic(fmt.Sprintf("width %d out of range 1..64", width))
	}
	if width == 64 {
		return v
	}
	if v&(1<<(width-1)) != 0 {
		return v | Mask[uint64](uint64(width), 64)
	}
	return v &^ Mask[uint64](uint64(width), 64)
}

// BytesInBinary renders a byte slice as space separated binary octets, for
// test failure output.
func BytesInBinary(bs []byte) string {
	buff := strings.Builder{}
	for _, n := range bs {
		buff.WriteString(fmt.Sprintf("% 08b", n))
	}
	return buff.String()
}
