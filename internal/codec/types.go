package codec

import "fmt"

// Type represents the storage type of a decoded signal: the smallest fixed
// width integer that holds the signal's bits, signed when the signal is.
type Type uint8

const (
	TUnknown Type = 0
	TInt8    Type = 1
	TInt16   Type = 2
	TInt32   Type = 3
	TInt64   Type = 4
	TUint8   Type = 5
	TUint16  Type = 6
	TUint32  Type = 7
	TUint64  Type = 8
)

// StorageType selects the storage type for a signal of bitLength bits.
// ok is false when bitLength is outside 1..64.
func StorageType(bitLength int, signed bool) (t Type, ok bool) {
	var width Type
	switch {
	case bitLength <= 0:
		return TUnknown, false
	case bitLength <= 8:
		width = TInt8
	case bitLength <= 16:
		width = TInt16
	case bitLength <= 32:
		width = TInt32
	case bitLength <= 64:
		width = TInt64
	default:
		return TUnknown, false
	}
	if !signed {
		width += 4
	}
	return width, true
}

// Width returns the bit width of the type.
func (t Type) Width() int {
	switch t {
	case TInt8, TUint8:
		return 8
	case TInt16, TUint16:
		return 16
	case TInt32, TUint32:
		return 32
	case TInt64, TUint64:
		return 64
	}
	return 0
}

// Signed reports whether the type is signed.
func (t Type) Signed() bool {
	return t >= TInt8 && t <= TInt64
}

// CType returns the C fixed width integer name, e.g. "uint16_t".
func (t Type) CType() string {
	if t == TUnknown {
		panic("CType() on TUnknown")
	}
	if t.Signed() {
		return fmt.Sprintf("int%d_t", t.Width())
	}
	return fmt.Sprintf("uint%d_t", t.Width())
}

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TInt8:
		return "int8"
	case TInt16:
		return "int16"
	case TInt32:
		return "int32"
	case TInt64:
		return "int64"
	case TUint8:
		return "uint8"
	case TUint16:
		return "uint16"
	case TUint32:
		return "uint32"
	case TUint64:
		return "uint64"
	}
	return "unknown"
}
