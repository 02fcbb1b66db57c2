package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// FrameKind identifies the purpose of a frame on the simulated air link.
type FrameKind uint8

const (
	// KindAnnounce advertises a published service.
	KindAnnounce FrameKind = 1
	// KindProbe solicits announcements for a subscribed service.
	KindProbe FrameKind = 2
	// KindFollowup carries a unicast follow-on message.
	KindFollowup FrameKind = 3
	// KindFollowupAck acknowledges a follow-on message.
	KindFollowupAck FrameKind = 4
	// KindBye withdraws a previously announced service.
	KindBye FrameKind = 5
)

// IsValid reports whether the kind is a known frame kind.
func (k FrameKind) IsValid() bool {
	return k >= KindAnnounce && k <= KindBye
}

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindAnnounce:
		return "announce"
	case KindProbe:
		return "probe"
	case KindFollowup:
		return "followup"
	case KindFollowupAck:
		return "followup-ack"
	case KindBye:
		return "bye"
	default:
		return "unknown"
	}
}

// Frame is one message on the simulated air link.
type Frame struct {
	Kind    FrameKind `cbor:"1,keyasint"`
	Origin  uint32    `cbor:"2,keyasint"`
	Service string    `cbor:"3,keyasint,omitempty"`
	Payload []byte    `cbor:"4,keyasint,omitempty"`
}

// Validate checks the frame for well-formedness.
func (f *Frame) Validate() error {
	if !f.Kind.IsValid() {
		return fmt.Errorf("invalid frame kind: %d", f.Kind)
	}
	if f.Origin == 0 {
		return fmt.Errorf("frame origin must be non-zero")
	}
	return nil
}

// encMode is the CBOR encoder mode for frames.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for frames.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeFrame encodes a frame to CBOR bytes.
func EncodeFrame(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return Marshal(f)
}

// DecodeFrame decodes CBOR bytes into a frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return &f, nil
}
