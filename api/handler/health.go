package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/models"
)

// Health returns the handler for GET /healthz. Deliberately dependency-free
// so monitoring probes always work.
func Health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status: "ok",
			Uptime: time.Since(startTime).Round(time.Second).String(),
		})
	}
}
