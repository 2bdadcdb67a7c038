package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/observability"
	"github.com/kbukum/ssehub/server"
	"github.com/kbukum/ssehub/validation"
)

// Publish sends an event to every connection subscribed to :channel through
// the configured publisher. Events without an id get one, so clients can
// resume with Last-Event-ID.
func (h *Handlers) Publish(c *gin.Context) {
	channel := c.Param("channel")
	if err := validation.ValidatePublishChannel(channel); err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req EventRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	ev := req.Event()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	ctx, span := observability.StartEventSpan(c.Request.Context(), observability.SpanPublish, channel, ev.Type)
	defer span.End()
	if uid := c.GetHeader("X-User-ID"); uid != "" {
		span.SetAttributes(attribute.String(observability.AttrUserID, uid))
	}

	if err := h.publisher.Publish(ctx, channel, ev); err != nil {
		observability.RecordError(span, err)
		server.RespondWithError(c, err)
		return
	}

	h.log.WithContext(ctx).Debug("event published", logger.Fields(
		logger.FieldChannel, channel,
		logger.FieldEventType, ev.Type,
		"event_id", ev.ID,
	))
	server.RespondAccepted(c, gin.H{
		"channel": channel,
		"type":    ev.Type,
		"id":      ev.ID,
	})
}
