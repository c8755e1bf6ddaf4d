package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/cleaner"
	"github.com/use-agent/gofetch/models"
)

// AdvancedFetcher runs the advanced mode: API capture, binary downloads,
// upload fan-out.
type AdvancedFetcher interface {
	Fetch(ctx context.Context, req *models.AdvancedFetchRequest) (*models.AdvancedFetchResult, error)
}

// Advanced returns the handler for POST /api/fetch/advanced.
func Advanced(fetcher AdvancedFetcher, cl *cleaner.Cleaner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AdvancedFetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AdvancedFetchResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, models.AdvancedFetchResponse{
				Success: false,
				Error:   models.UserMessage(err),
			})
			return
		}

		result, err := fetcher.Fetch(c.Request.Context(), &req)
		if err != nil {
			status := http.StatusOK
			if models.ErrorCode(err) == models.ErrCodeBadRequest {
				status = http.StatusBadRequest
			}
			c.JSON(status, models.AdvancedFetchResponse{
				Success: false,
				Error:   models.UserMessage(err),
			})
			return
		}

		content, markdown, err := cl.Render(result.Content, result.URL, req.Format, result.ResponseType)
		if err == nil {
			result.Content = content
			result.Markdown = markdown
		}

		c.JSON(http.StatusOK, models.AdvancedFetchResponse{
			Success:             true,
			AdvancedFetchResult: result,
		})
	}
}
