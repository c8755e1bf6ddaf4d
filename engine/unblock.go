package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

// UnblockEngine delegates anti-bot bypass to the remote browser service's
// unblock endpoint and returns the delivered HTML.
type UnblockEngine struct {
	runtime func() config.Runtime
	client  *http.Client
}

// NewUnblockEngine creates the unblock engine.
func NewUnblockEngine(runtime func() config.Runtime) *UnblockEngine {
	return &UnblockEngine{
		runtime: runtime,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *UnblockEngine) Name() string { return models.EngineUnblock }

type unblockRequest struct {
	URL            string `json:"url"`
	BestAttempt    bool   `json:"bestAttempt"`
	Content        bool   `json:"content"`
	WaitForTimeout int    `json:"waitForTimeout"`
}

type unblockResponse struct {
	Content string `json:"content"`
}

func (e *UnblockEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	endpoint := browser.UnblockURL(e.runtime().BrowserlessURL)
	if endpoint == "" {
		return nil, models.NewEngineError("unblock", fmt.Errorf("no remote browser endpoint configured"))
	}

	body, err := json.Marshal(unblockRequest{
		URL:            req.URL,
		BestAttempt:    true,
		Content:        true,
		WaitForTimeout: 5000,
	})
	if err != nil {
		return nil, models.NewEngineError("unblock", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewEngineError("unblock", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, models.NewEngineError("unblock", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewEngineError("unblock", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= 400 {
		return nil, models.NewEngineError("unblock", fmt.Errorf("endpoint returned status %d", resp.StatusCode))
	}

	var ub unblockResponse
	if err := json.Unmarshal(raw, &ub); err != nil {
		return nil, models.NewEngineError("unblock", fmt.Errorf("parse response: %w", err))
	}

	return &Result{
		StatusCode:   200,
		Content:      ub.Content,
		Headers:      map[string]string{},
		FinalURL:     req.URL,
		EngineUsed:   LabelUnblock,
		ResponseType: models.ResponseTypeText,
	}, nil
}
