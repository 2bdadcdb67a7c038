package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kbukum/ssehub/sse"
)

// Envelope is the relay wire format: one target channel and one event.
type Envelope struct {
	Channel string `json:"channel"`
	Origin  string `json:"origin,omitempty"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type,omitempty"`
	Data    string `json:"data"`
	RetryMs int64  `json:"retry_ms,omitempty"`
}

// NewEnvelope wraps ev for channel.
func NewEnvelope(channel string, ev sse.Event, origin string) Envelope {
	return Envelope{
		Channel: channel,
		Origin:  origin,
		ID:      ev.ID,
		Type:    ev.Type,
		Data:    string(ev.Data),
		RetryMs: ev.Retry.Milliseconds(),
	}
}

// Event returns the wrapped event.
func (e Envelope) Event() sse.Event {
	return sse.Event{
		ID:    e.ID,
		Type:  e.Type,
		Data:  []byte(e.Data),
		Retry: time.Duration(e.RetryMs) * time.Millisecond,
	}
}

// DecodeEnvelope parses a relay payload. An envelope without a channel is
// rejected.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Channel == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing channel")
	}
	return env, nil
}
