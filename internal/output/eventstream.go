package output

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
)

// EventStreamContentType is the media type of a framed select response.
const EventStreamContentType = "application/vnd.amazon.eventstream"

// EventStreamWriter frames select output as AWS event-stream messages so stock
// S3 clients can consume it. Every Write becomes one Records event; the stream
// is closed with either WriteStats and WriteEnd, or WriteError.
type EventStreamWriter struct {
	w   io.Writer
	enc *eventstream.Encoder
}

// NewEventStreamWriter creates a writer that frames messages onto w.
func NewEventStreamWriter(w io.Writer) *EventStreamWriter {
	return &EventStreamWriter{w: w, enc: eventstream.NewEncoder()}
}

// Write emits p as the payload of a Records event.
func (e *EventStreamWriter) Write(p []byte) (int, error) {
	msg := eventstream.Message{Payload: p}
	msg.Headers.Set(":message-type", eventstream.StringValue("event"))
	msg.Headers.Set(":event-type", eventstream.StringValue("Records"))
	msg.Headers.Set(":content-type", eventstream.StringValue("application/octet-stream"))
	if err := e.enc.Encode(e.w, msg); err != nil {
		return 0, fmt.Errorf("encode records event: %w", err)
	}
	return len(p), nil
}

type statsPayload struct {
	XMLName        xml.Name `xml:"Stats"`
	BytesScanned   int64    `xml:"BytesScanned"`
	BytesProcessed int64    `xml:"BytesProcessed"`
	BytesReturned  int64    `xml:"BytesReturned"`
}

// WriteStats emits a Stats event.
func (e *EventStreamWriter) WriteStats(s Stats) error {
	payload, err := xml.Marshal(statsPayload{
		BytesScanned:   s.BytesScanned,
		BytesProcessed: s.BytesProcessed,
		BytesReturned:  s.BytesReturned,
	})
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	msg := eventstream.Message{Payload: payload}
	msg.Headers.Set(":message-type", eventstream.StringValue("event"))
	msg.Headers.Set(":event-type", eventstream.StringValue("Stats"))
	msg.Headers.Set(":content-type", eventstream.StringValue("text/xml"))
	return e.enc.Encode(e.w, msg)
}

// WriteEnd emits the End event that marks a complete response.
func (e *EventStreamWriter) WriteEnd() error {
	var msg eventstream.Message
	msg.Headers.Set(":message-type", eventstream.StringValue("event"))
	msg.Headers.Set(":event-type", eventstream.StringValue("End"))
	return e.enc.Encode(e.w, msg)
}

// WriteError emits an error message. No further messages should follow.
func (e *EventStreamWriter) WriteError(code, message string) error {
	var msg eventstream.Message
	msg.Headers.Set(":message-type", eventstream.StringValue("error"))
	msg.Headers.Set(":error-code", eventstream.StringValue(code))
	msg.Headers.Set(":error-message", eventstream.StringValue(message))
	return e.enc.Encode(e.w, msg)
}
