package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

// GetConfig returns the handler for GET /api/config.
func GetConfig(rs *config.RuntimeStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rt := rs.Runtime()
		c.JSON(http.StatusOK, models.RuntimeConfig{
			BrowserlessURL:  rt.BrowserlessURL,
			ProxyURL:        rt.ProxyURL,
			DefaultEngine:   rt.DefaultEngine,
			BrowserStealth:  rt.BrowserStealth,
			BrowserHeadless: rt.BrowserHeadless,
		})
	}
}

// UpdateConfig returns the handler for POST /api/config. The patch is
// applied atomically and persisted; slots are marked stale so the next idle
// pickup reconnects with the new endpoint, leaving in-flight tabs alone.
func UpdateConfig(rs *config.RuntimeStore, pool *browser.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.RuntimeConfigPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		next, err := rs.Update(config.Patch{
			BrowserlessURL:  patch.BrowserlessURL,
			ProxyURL:        patch.ProxyURL,
			DefaultEngine:   patch.DefaultEngine,
			BrowserStealth:  patch.BrowserStealth,
			BrowserHeadless: patch.BrowserHeadless,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		pool.MarkStale()

		c.JSON(http.StatusOK, models.RuntimeConfig{
			BrowserlessURL:  next.BrowserlessURL,
			ProxyURL:        next.ProxyURL,
			DefaultEngine:   next.DefaultEngine,
			BrowserStealth:  next.BrowserStealth,
			BrowserHeadless: next.BrowserHeadless,
		})
	}
}
