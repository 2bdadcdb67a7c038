package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/ssehub/version"
)

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// Info returns a handler that reports service version and uptime.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   serviceName,
			"build":     version.Get(),
			"uptime":    time.Since(startTime).Round(time.Second).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
