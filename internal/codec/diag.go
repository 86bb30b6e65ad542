package codec

import "fmt"

// Reason classifies why a signal was excluded from a generated codec.
type Reason uint8

const (
	ReasonUnknown Reason = 0
	// FloatSignal marks a signal whose value is IEEE float or double.
	FloatSignal Reason = 1
	// MultiplexedSignal marks a multiplexed signal or a multiplexer selector.
	MultiplexedSignal Reason = 2
	// TooWide marks a signal wider than 64 bits.
	TooWide Reason = 3
	// DuplicateIdent marks a name that collides with another identifier
	// after snake_case normalization.
	DuplicateIdent Reason = 4
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	switch r {
	case FloatSignal:
		return "float signals are not supported"
	case MultiplexedSignal:
		return "multiplexed signals are not supported"
	case TooWide:
		return "signals wider than 64 bits are not supported"
	case DuplicateIdent:
		return "identifier collides after snake_case normalization"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so diagnostics serialize as
// readable strings in JSON reports.
func (r Reason) MarshalText() ([]byte, error) {
	switch r {
	case FloatSignal:
		return []byte("float_signal"), nil
	case MultiplexedSignal:
		return []byte("multiplexed_signal"), nil
	case TooWide:
		return []byte("too_wide"), nil
	case DuplicateIdent:
		return []byte("duplicate_identifier"), nil
	}
	return []byte("unknown"), nil
}

// Diagnostic records one excluded signal or message. It is collected and
// returned with the generation result instead of being printed, so callers
// and tests can inspect exclusions deterministically.
type Diagnostic struct {
	// Message is the database name of the containing message.
	Message string `json:"message"`
	// Signal is the database name of the excluded signal. Empty when the
	// whole message was excluded.
	Signal string `json:"signal,omitempty"`
	Reason Reason `json:"reason"`
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	if d.Signal == "" {
		return fmt.Sprintf("message %q: %s", d.Message, d.Reason)
	}
	return fmt.Sprintf("message %q signal %q: %s", d.Message, d.Signal, d.Reason)
}
