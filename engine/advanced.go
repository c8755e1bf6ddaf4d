package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
	"github.com/use-agent/gofetch/uploader"
)

// jsActionSettle is slept after evaluating the caller's script so its side
// effects (XHRs, DOM mutations) land before capture and DOM read.
const jsActionSettle = 2 * time.Second

// AdvancedFetcher runs the advanced mode on the remote browser engine:
// API-response capture, post-load script evaluation, binary downloads
// through the live context, and upload fan-out.
type AdvancedFetcher struct {
	pool     *browser.Pool
	uploads  *uploader.Client
	fetchCfg config.FetchConfig
}

// NewAdvancedFetcher wires the orchestrator to the pool and the upload
// client.
func NewAdvancedFetcher(pool *browser.Pool, uploads *uploader.Client, fetchCfg config.FetchConfig) *AdvancedFetcher {
	return &AdvancedFetcher{pool: pool, uploads: uploads, fetchCfg: fetchCfg}
}

// Fetch performs the advanced fetch. Ordering within the request is strict:
// capture hooks install before goto, jsAction runs after goto, downloads run
// after jsAction, the DOM read is last. Per-resource failures are recorded
// in place and never fail the request.
func (f *AdvancedFetcher) Fetch(ctx context.Context, req *models.AdvancedFetchRequest) (*models.AdvancedFetchResult, error) {
	capture, err := browser.NewCapture(req.APIPatterns)
	if err != nil {
		return nil, models.NewBadRequest(err.Error())
	}

	apiCalls := []models.APICall{}
	resources := []models.Resource{}

	tab, err := f.pool.FetchInTab(ctx, req.URL, browser.TabOptions{
		Headers:        BuildHeaders(req.Preset, req.Headers),
		RenderDelay:    time.Duration(req.RenderDelayMs) * time.Millisecond,
		BeforeNavigate: func(page *rod.Page) error {
			// The pool may retry on a fresh tab; stale matches from the
			// first attempt must not leak into this one.
			capture.Reset()
			return capture.Attach(page)
		},
		AfterNavigate: func(ctx context.Context, page *rod.Page, conn *rod.Browser) error {
			if req.JsAction != "" {
				f.runJsAction(ctx, page, req.JsAction)
			}
			apiCalls = capture.Collect(page)
			resources = f.downloadAll(ctx, conn, req)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	result := &models.AdvancedFetchResult{
		FetchResult: models.FetchResult{
			StatusCode:   statusOr200(tab.StatusCode),
			Content:      tab.HTML,
			Headers:      tab.Headers,
			URL:          tab.FinalURL,
			EngineUsed:   LabelBrowserless,
			ResponseType: models.ResponseTypeText,
		},
		APICalls:  apiCalls,
		Resources: resources,
	}
	if result.Headers == nil {
		result.Headers = map[string]string{}
	}
	return result, nil
}

// runJsAction evaluates the caller's script in the page and lets its side
// effects settle. Script errors are logged, not fatal.
func (f *AdvancedFetcher) runJsAction(ctx context.Context, page *rod.Page, script string) {
	if _, err := page.Eval(fmt.Sprintf("() => { %s }", script)); err != nil {
		slog.Warn("jsAction evaluation failed", "error", err)
		return
	}
	select {
	case <-time.After(jsActionSettle):
	case <-ctx.Done():
	}
}

// downloadAll fetches every requested resource through a sibling tab and,
// when a sink is configured, forwards the bytes to it.
func (f *AdvancedFetcher) downloadAll(ctx context.Context, conn *rod.Browser, req *models.AdvancedFetchRequest) []models.Resource {
	resources := make([]models.Resource, 0, len(req.ImagesToDownload))
	for _, url := range req.ImagesToDownload {
		resources = append(resources, f.downloadOne(ctx, conn, url, req.UploadConfig))
	}
	return resources
}

func (f *AdvancedFetcher) downloadOne(ctx context.Context, conn *rod.Browser, url string, uploadCfg *models.UploadConfig) models.Resource {
	data, mimeType, err := browser.DownloadInContext(ctx, conn, url, f.fetchCfg.HTTPTimeout)
	if err != nil {
		slog.Warn("resource download failed", "url", url, "error", err)
		return models.Resource{
			OriginalURL: url,
			Status:      models.ResourceError,
			Error:       err.Error(),
		}
	}

	resource := models.Resource{
		OriginalURL: url,
		Status:      models.ResourceSuccess,
		MimeType:    mimeType,
		Size:        len(data),
	}

	if uploadCfg != nil {
		uploadedURL, err := f.uploads.Upload(ctx, uploadCfg, data, mimeType)
		if err != nil {
			slog.Warn("resource upload failed", "url", url, "error", err)
			resource.Status = models.ResourceError
			resource.Error = err.Error()
			return resource
		}
		resource.UploadedURL = uploadedURL
	}
	return resource
}

func statusOr200(status int) int {
	if status == 0 {
		return 200
	}
	return status
}
