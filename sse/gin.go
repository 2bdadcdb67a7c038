package sse

import "github.com/gin-gonic/gin"

// GinHandler adapts the handler for a gin route.
func (h *Handler) GinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
