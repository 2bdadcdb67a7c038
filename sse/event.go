package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Generic event types emitted by the stream itself. Domain event types are
// chosen by publishers.
const (
	EventTypeConnected = "connected"
	EventTypeMessage   = "message"
	EventTypeError     = "error"
)

// Event is one server-sent event.
type Event struct {
	// ID is sent as the "id:" field and echoed back by browsers in Last-Event-ID.
	ID string
	// Type is sent as the "event:" field. Empty means the default "message".
	Type string
	// Data is split on CRLF, LF and CR into one "data:" line each.
	Data []byte
	// Retry, when positive, tells the client how long to wait before reconnecting.
	Retry time.Duration
}

// NewEvent creates an event of the given type carrying data.
func NewEvent(eventType string, data []byte) Event {
	return Event{Type: eventType, Data: data}
}

// NewJSONEvent creates an event whose data is v encoded as JSON.
func NewJSONEvent(eventType string, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("sse: encode %s event: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data}, nil
}

// WriteTo serializes the event in text/event-stream format.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if e.ID != "" {
		buf.WriteString("id: ")
		buf.WriteString(sanitizeField(e.ID))
		buf.WriteByte('\n')
	}
	if e.Type != "" {
		buf.WriteString("event: ")
		buf.WriteString(sanitizeField(e.Type))
		buf.WriteByte('\n')
	}
	if e.Retry > 0 {
		buf.WriteString("retry: ")
		buf.WriteString(strconv.FormatInt(e.Retry.Milliseconds(), 10))
		buf.WriteByte('\n')
	}
	for _, line := range strings.Split(lineBreaks.Replace(string(e.Data)), "\n") {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// String returns the wire representation.
func (e Event) String() string {
	var sb strings.Builder
	_, _ = e.WriteTo(&sb)
	return sb.String()
}

func writeComment(w io.Writer, text string) error {
	_, err := io.WriteString(w, ": "+sanitizeField(text)+"\n\n")
	return err
}

// Clients end a line at CRLF, LF or a lone CR, so all three must be handled
// before framing or a payload could start a field of its own.
var (
	lineBreaks  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	fieldBreaks = strings.NewReplacer("\r", "", "\n", "")
)

// sanitizeField strips line breaks, which would otherwise terminate the field early.
func sanitizeField(s string) string {
	return fieldBreaks.Replace(s)
}
