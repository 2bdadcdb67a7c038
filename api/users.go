package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssehub/database/query"
	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/model"
	"github.com/kbukum/ssehub/server"
)

// History returns a page of the user's connection logs.
// Supports page, page_size, sort, order and the session_id, opened_at and
// closed_at filters.
func (h *Handlers) History(c *gin.Context) {
	if h.tracker == nil {
		server.RespondWithError(c, apperrors.ServiceUnavailable("database"))
		return
	}
	params := query.Parse(c.Request.URL.Query(), model.HistoryQueryConfig())
	res, err := h.tracker.History(c.Request.Context(), c.Param("user_id"), params)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, model.ToMaps(res.Data), &server.Meta{
		Page:       res.Pagination.Page,
		PageSize:   res.Pagination.PageSize,
		Total:      res.Pagination.Total,
		TotalPages: res.Pagination.TotalPages,
	})
}

// Presence returns the user's connections open on any instance.
func (h *Handlers) Presence(c *gin.Context) {
	if h.tracker == nil {
		server.RespondWithError(c, apperrors.ServiceUnavailable("redis"))
		return
	}
	online, err := h.tracker.OnlineConnections(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, model.ToMaps(online), &server.Meta{Total: len(online)})
}
