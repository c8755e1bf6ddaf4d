package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/logging"
	"github.com/use-agent/gofetch/models"
)

// Logs returns the handler for GET /api/logs: a snapshot of the in-memory
// ring buffer, newest last. ?limit= caps the entry count.
func Logs(hub *logging.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		entries := hub.Snapshot(limit)

		out := make([]models.LogEntry, len(entries))
		for i, e := range entries {
			out[i] = toLogEntry(e)
		}
		c.JSON(http.StatusOK, models.LogsResponse{Entries: out})
	}
}

// StreamLogs returns the handler for GET /api/logs/stream: an SSE tail fed
// by the broadcast hub. Entries the client cannot keep up with are dropped
// by the hub, never buffered against the fetch path.
func StreamLogs(hub *logging.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, cancel := hub.Subscribe()
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case e, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent("log", toLogEntry(e))
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

func toLogEntry(e logging.Entry) models.LogEntry {
	return models.LogEntry{
		Time:    e.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Level:   e.Level,
		Message: e.Message,
	}
}
