// Package api assembles the two HTTP surfaces: the crawler API that serves
// fetches, and the admin API that serves status, configuration, profiles
// and logs.
package api

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/api/handler"
	"github.com/use-agent/gofetch/api/middleware"
	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/cache"
	"github.com/use-agent/gofetch/cleaner"
	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/logging"
)

// Deps carries everything the routers need.
type Deps struct {
	Cfg          *config.Config
	RuntimeStore *config.RuntimeStore
	Pool         *browser.Pool
	Profiles     handler.ProfileAdmin
	Hub          *logging.Hub
	Fetcher      handler.PageFetcher
	Advanced     handler.AdvancedFetcher
	Cleaner      *cleaner.Cleaner
	Cache        *cache.Cache
	Active       *atomic.Int64
	StartTime    time.Time
}

// NewCrawlerRouter builds the fetch-facing server.
//
// Middleware chain: Recovery → Logger → Auth (if enabled) → RateLimit.
// healthz stays outside auth so probes always work.
func NewCrawlerRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/healthz", handler.Health(d.StartTime))

	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Auth(d.Cfg.Auth.APIKey))
	apiGroup.Use(middleware.RateLimit(d.Cfg.RateLimit))
	apiGroup.Use(trackActive(d.Active))

	apiGroup.POST("/fetch", handler.Fetch(d.Fetcher, d.Cleaner, d.Cache))
	apiGroup.POST("/fetch/advanced", handler.Advanced(d.Advanced, d.Cleaner))
	apiGroup.GET("/status", handler.Status(d.Pool, d.Active, d.StartTime))

	return r
}

// NewAdminRouter builds the operator-facing server.
func NewAdminRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/healthz", handler.Health(d.StartTime))

	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Auth(d.Cfg.Auth.APIKey))

	apiGroup.GET("/status", handler.Status(d.Pool, d.Active, d.StartTime))

	apiGroup.GET("/config", handler.GetConfig(d.RuntimeStore))
	apiGroup.POST("/config", handler.UpdateConfig(d.RuntimeStore, d.Pool))

	apiGroup.GET("/domain-profiles", handler.ListProfiles(d.Profiles))
	apiGroup.GET("/domain-profiles/:domain", handler.GetProfile(d.Profiles))
	apiGroup.POST("/domain-profiles", handler.UpsertProfile(d.Profiles))
	apiGroup.DELETE("/domain-profiles/:domain", handler.DeleteProfile(d.Profiles))

	apiGroup.GET("/logs", handler.Logs(d.Hub))
	apiGroup.GET("/logs/stream", handler.StreamLogs(d.Hub))

	return r
}

// trackActive counts in-flight fetch requests for the status endpoint.
func trackActive(active *atomic.Int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		active.Add(1)
		defer active.Add(-1)
		c.Next()
	}
}
