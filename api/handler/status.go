package handler

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/models"
)

// Status returns the handler for GET /api/status.
func Status(pool *browser.Pool, active *atomic.Int64, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StatusResponse{
			Status:           "ok",
			ActiveRequests:   active.Load(),
			BrowserConnected: pool.Connected(),
			BrowserPool:      pool.Status(),
			UptimeSeconds:    int64(time.Since(startTime).Seconds()),
		})
	}
}
