package api

import (
	"sort"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
	"github.com/kbukum/ssehub/server"
	"github.com/kbukum/ssehub/sse"
)

// ListConnections returns the connections open on this instance, oldest
// first. ?user_id= narrows the list to one user.
func (h *Handlers) ListConnections(c *gin.Context) {
	var conns []*sse.Connection
	if uid := c.Query("user_id"); uid != "" {
		conns = h.registry.ByUser(uid)
	} else {
		conns = h.registry.Snapshot()
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].ConnectedAt().Before(conns[j].ConnectedAt())
	})

	out := make([]map[string]any, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn.ToMap())
	}
	server.RespondOKWithMeta(c, out, &server.Meta{Total: len(out)})
}

// GetConnection returns one connection.
func (h *Handlers) GetConnection(c *gin.Context) {
	conn, ok := h.registry.Get(c.Param("id"))
	if !ok {
		server.RespondWithError(c, apperrors.NotFound("connection", c.Param("id")))
		return
	}
	server.RespondOK(c, conn.ToMap())
}

// CloseConnection ends a stream from the server side.
func (h *Handlers) CloseConnection(c *gin.Context) {
	id := c.Param("id")
	if !h.registry.Remove(id) {
		server.RespondWithError(c, apperrors.NotFound("connection", id))
		return
	}
	h.log.WithContext(c.Request.Context()).Info("connection closed by request", logger.Fields(logger.FieldConnectionID, id))
	server.RespondNoContent(c)
}

// Subscribe adds a channel, or channel pattern, to a connection.
func (h *Handlers) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	id := c.Param("id")
	if err := h.registry.Subscribe(id, req.Channel); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.respondSubscriptions(c, id)
}

// Unsubscribe removes a channel from a connection. Removing a channel the
// connection is not subscribed to succeeds.
func (h *Handlers) Unsubscribe(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Unsubscribe(id, c.Param("channel")); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.respondSubscriptions(c, id)
}

func (h *Handlers) respondSubscriptions(c *gin.Context, id string) {
	conn, ok := h.registry.Get(id)
	if !ok {
		server.RespondWithError(c, apperrors.NotFound("connection", id))
		return
	}
	server.RespondOK(c, gin.H{
		"connection_id": id,
		"subscriptions": conn.Subscriptions(),
	})
}

// SendToConnection queues an event for a single local connection,
// regardless of its subscriptions.
func (h *Handlers) SendToConnection(c *gin.Context) {
	var req EventRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	ev := req.Event()
	if err := h.registry.SendTo(c.Request.Context(), c.Param("id"), ev); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, gin.H{
		"connection_id": c.Param("id"),
		"type":          ev.Type,
		"id":            ev.ID,
	})
}
