package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/sse"
	"github.com/kbukum/ssehub/validation"
)

// SubscribeRequest is the body of POST /connections/:id/subscriptions.
type SubscribeRequest struct {
	Channel string `json:"channel" validate:"required,channel"`
}

// EventRequest is the body of the publish and direct-send routes. Data may
// be any JSON value; a JSON string is sent as its raw text.
type EventRequest struct {
	Type string          `json:"type" validate:"omitempty,max=64,stream_field"`
	ID   string          `json:"id" validate:"omitempty,max=128,stream_field"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// Event converts the request into a stream event.
func (r EventRequest) Event() sse.Event {
	ev := sse.Event{ID: r.ID, Type: r.Type, Data: []byte(r.Data)}
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		ev.Data = []byte(s)
	}
	if ev.Type == "" {
		ev.Type = sse.EventTypeMessage
	}
	return ev
}

// bind decodes the JSON body into dst and validates it.
func bind(c *gin.Context, dst any) error {
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large.", http.StatusRequestEntityTooLarge).
				WithDetail("limit", tooLarge.Limit)
		}
		return apperrors.InvalidInput("body", "malformed JSON").WithCause(err)
	}
	return validation.Validate(dst)
}
