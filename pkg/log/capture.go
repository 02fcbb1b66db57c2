package log

import (
	"fmt"
	"io"

	"github.com/aware-protocol/aware-go/pkg/wire"
)

// CaptureLogger writes events as length-prefixed CBOR frames, producing a
// trace that ReadCapture can replay offline.
type CaptureLogger struct {
	fw *wire.FrameWriter
}

// NewCaptureLogger creates a capture logger writing to w.
func NewCaptureLogger(w io.Writer) *CaptureLogger {
	return &CaptureLogger{fw: wire.NewFrameWriter(w)}
}

// Log encodes and writes the event. Encoding or write errors are dropped;
// a capture is best effort and must never disturb the event loop.
func (c *CaptureLogger) Log(event Event) {
	data, err := event.MarshalBinary()
	if err != nil {
		return
	}
	_ = c.fw.WriteFrame(data)
}

var _ Logger = (*CaptureLogger)(nil)

// ReadCapture decodes all events from a capture stream until EOF.
func ReadCapture(r io.Reader) ([]Event, error) {
	fr := wire.NewFrameReader(r)
	var events []Event
	for {
		data, err := fr.ReadFrame()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("read capture frame %d: %w", len(events), err)
		}
		var e Event
		if err := e.UnmarshalBinary(data); err != nil {
			return events, fmt.Errorf("decode capture frame %d: %w", len(events), err)
		}
		events = append(events, e)
	}
}
