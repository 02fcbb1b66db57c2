package log

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Category classifies a control-plane event.
type Category uint8

const (
	// CategoryCommand is a command dispatched to the firmware.
	CategoryCommand Category = 0
	// CategoryResponse is a firmware response to a command.
	CategoryResponse Category = 1
	// CategoryNotification is an uncorrelated firmware event.
	CategoryNotification Category = 2
	// CategoryTimeout is a fired timeout (command, confirm or message).
	CategoryTimeout Category = 3
	// CategoryDefect is an unexpected condition the loop survived.
	CategoryDefect Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "command"
	case CategoryResponse:
		return "response"
	case CategoryNotification:
		return "notification"
	case CategoryTimeout:
		return "timeout"
	case CategoryDefect:
		return "defect"
	default:
		return "unknown"
	}
}

// Event represents one control-plane occurrence. CBOR encoding uses integer
// keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"2,keyasint"`

	// Kind is the command/response/notification kind name.
	Kind string `cbor:"3,keyasint,omitempty"`

	// TransactionID correlates commands with responses and timeouts.
	TransactionID uint16 `cbor:"4,keyasint,omitempty"`

	// Status is the firmware status string, when the event carries one.
	Status string `cbor:"5,keyasint,omitempty"`

	// ClientID is the owning client, when known.
	ClientID int `cbor:"6,keyasint,omitempty"`

	// SessionID is the owning discovery session, when known.
	SessionID int `cbor:"7,keyasint,omitempty"`

	// Detail is free-form context for defects.
	Detail string `cbor:"8,keyasint,omitempty"`
}

// rawEvent strips Event's method set so the codec walks the struct tags
// instead of calling back into MarshalBinary.
type rawEvent Event

// MarshalBinary encodes the event as CBOR.
func (e Event) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(rawEvent(e))
}

// UnmarshalBinary decodes a CBOR event.
func (e *Event) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*rawEvent)(e))
}
