package engine

import (
	"context"

	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/models"
)

// BrowserEngine fetches through the remote browser pool, one tab per
// request. The engine references the pool; the pool never references
// engines.
type BrowserEngine struct {
	pool *browser.Pool
}

// NewBrowserEngine creates the remote browser engine on top of the pool.
func NewBrowserEngine(pool *browser.Pool) *BrowserEngine {
	return &BrowserEngine{pool: pool}
}

func (e *BrowserEngine) Name() string { return models.EngineBrowser }

func (e *BrowserEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	tab, err := e.pool.FetchInTab(ctx, req.URL, browser.TabOptions{
		Headers:     BuildHeaders(req.Preset, req.Headers),
		RenderDelay: req.RenderDelay,
	})
	if err != nil {
		// The pool already classifies its failures.
		if models.ErrorCode(err) != "" {
			return nil, err
		}
		return nil, models.NewEngineError("browser", err)
	}
	return tabToResult(tab, LabelBrowserless), nil
}

// tabToResult maps a tab outcome onto the engine contract. A navigation
// without an observed response object reports 200.
func tabToResult(tab *browser.TabResult, label string) *Result {
	headers := tab.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return &Result{
		StatusCode:   statusOr200(tab.StatusCode),
		Content:      tab.HTML,
		Headers:      headers,
		FinalURL:     tab.FinalURL,
		EngineUsed:   label,
		ResponseType: models.ResponseTypeText,
	}
}
