package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/cache"
	"github.com/use-agent/gofetch/cleaner"
	"github.com/use-agent/gofetch/engine"
	"github.com/use-agent/gofetch/models"
)

// PageFetcher routes one fetch request to the engines. Implemented by the
// escalation scheduler.
type PageFetcher interface {
	Fetch(ctx context.Context, req *models.FetchRequest) (*engine.Result, error)
}

// Fetch returns the handler for POST /api/fetch.
//
// HTTP status is 200 for both fetch outcomes; the success flag is
// authoritative. Only malformed input earns a 400.
func Fetch(fetcher PageFetcher, cl *cleaner.Cleaner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error:   models.UserMessage(err),
			})
			return
		}

		// Only auto-mode text fetches are cacheable; explicit engines and
		// binary payloads always go out.
		cacheable := req.Engine == models.EngineAuto && req.ResponseType == models.ResponseTypeText
		cacheKey := cache.Key(req.URL, req.Engine, req.Format)
		if cacheable {
			if cached, hit := cc.Get(cacheKey); hit {
				c.JSON(http.StatusOK, models.FetchResponse{Success: true, FetchResult: cached})
				return
			}
		}

		start := time.Now()
		result, err := fetcher.Fetch(c.Request.Context(), &req)
		if err != nil {
			respondFetchError(c, err)
			return
		}

		out, err := renderResult(cl, result, req.Format)
		if err != nil {
			respondFetchError(c, err)
			return
		}

		if cacheable {
			cc.Set(cacheKey, out)
		}

		c.Header("X-Fetch-Duration-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
		c.JSON(http.StatusOK, models.FetchResponse{Success: true, FetchResult: out})
	}
}

// renderResult applies the format pipeline to an engine result.
func renderResult(cl *cleaner.Cleaner, result *engine.Result, format string) (*models.FetchResult, error) {
	content, markdown, err := cl.Render(result.Content, result.FinalURL, format, result.ResponseType)
	if err != nil {
		return nil, err
	}
	return &models.FetchResult{
		StatusCode:   result.StatusCode,
		Content:      content,
		Markdown:     markdown,
		Headers:      result.Headers,
		URL:          result.FinalURL,
		EngineUsed:   result.EngineUsed,
		ResponseType: result.ResponseType,
	}, nil
}

// respondFetchError writes the failure envelope. Bad input is the only
// error class reported with a non-200 status.
func respondFetchError(c *gin.Context, err error) {
	status := http.StatusOK
	if models.ErrorCode(err) == models.ErrCodeBadRequest {
		status = http.StatusBadRequest
	}
	c.JSON(status, models.FetchResponse{
		Success: false,
		Error:   models.UserMessage(err),
	})
}
