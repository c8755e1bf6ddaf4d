package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/cache"
	"github.com/use-agent/gofetch/cleaner"
	"github.com/use-agent/gofetch/engine"
	"github.com/use-agent/gofetch/models"
)

// fakeFetcher returns a scripted outcome and counts calls.
type fakeFetcher struct {
	result *engine.Result
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *models.FetchRequest) (*engine.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

func fetchRouter(f PageFetcher, cc *cache.Cache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/fetch", Fetch(f, cleaner.New(), cc))
	return r
}

func doFetch(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFetch_Success(t *testing.T) {
	f := &fakeFetcher{result: &engine.Result{
		StatusCode:   200,
		Content:      "<html><body>page</body></html>",
		FinalURL:     "https://example.com/",
		EngineUsed:   engine.LabelFastDirect,
		ResponseType: models.ResponseTypeText,
		Headers:      map[string]string{"Content-Type": "text/html"},
	}}
	r := fetchRouter(f, nil)

	w := doFetch(t, r, `{"url":"https://example.com/"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp models.FetchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if !resp.Success {
		t.Errorf("success = false: %s", resp.Error)
	}
	if resp.FetchResult == nil || resp.Content != "<html><body>page</body></html>" {
		t.Errorf("content missing: %+v", resp.FetchResult)
	}
	if resp.EngineUsed != engine.LabelFastDirect {
		t.Errorf("engineUsed = %q", resp.EngineUsed)
	}
	if w.Header().Get("X-Fetch-Duration-Ms") == "" {
		t.Error("duration header missing")
	}
}

func TestFetch_MalformedJSON(t *testing.T) {
	r := fetchRouter(&fakeFetcher{}, nil)
	w := doFetch(t, r, `{"url":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFetch_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"relative url", `{"url":"/just/a/path"}`},
		{"ftp scheme", `{"url":"ftp://example.com/file"}`},
		{"unknown engine", `{"url":"https://example.com/","engine":"warp"}`},
		{"bad format", `{"url":"https://example.com/","format":"pdf"}`},
	}

	f := &fakeFetcher{}
	r := fetchRouter(f, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doFetch(t, r, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
	if f.calls != 0 {
		t.Errorf("invalid input reached the fetcher %d times", f.calls)
	}
}

func TestFetch_EngineFailureIsHTTP200(t *testing.T) {
	f := &fakeFetcher{err: models.NewExhaustedEscalation("fortress.example")}
	r := fetchRouter(f, nil)

	w := doFetch(t, r, `{"url":"https://fortress.example/"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, fetch failures ride a 200", w.Code)
	}

	var resp models.FetchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Success {
		t.Error("success = true on a failed fetch")
	}
	if !strings.Contains(resp.Error, "fortress.example") {
		t.Errorf("error message = %q", resp.Error)
	}
}

func TestFetch_BadRequestFromFetcherIs400(t *testing.T) {
	f := &fakeFetcher{err: models.NewBadRequest("unknown engine: warp")}
	r := fetchRouter(f, nil)

	w := doFetch(t, r, `{"url":"https://example.com/"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFetch_CacheHitSkipsFetcher(t *testing.T) {
	f := &fakeFetcher{result: &engine.Result{
		StatusCode:   200,
		Content:      "cached page body",
		FinalURL:     "https://example.com/",
		EngineUsed:   engine.LabelFastDirect,
		ResponseType: models.ResponseTypeText,
	}}
	cc := cache.New(time.Minute, 10)
	r := fetchRouter(f, cc)

	body := `{"url":"https://example.com/"}`
	if w := doFetch(t, r, body); w.Code != http.StatusOK {
		t.Fatalf("first fetch status = %d", w.Code)
	}
	if w := doFetch(t, r, body); w.Code != http.StatusOK {
		t.Fatalf("second fetch status = %d", w.Code)
	}

	if f.calls != 1 {
		t.Errorf("fetcher called %d times, want 1 (second should hit the cache)", f.calls)
	}
}

func TestFetch_ExplicitEngineBypassesCache(t *testing.T) {
	f := &fakeFetcher{result: &engine.Result{
		StatusCode:   200,
		Content:      "body",
		FinalURL:     "https://example.com/",
		EngineUsed:   engine.LabelStealth,
		ResponseType: models.ResponseTypeText,
	}}
	cc := cache.New(time.Minute, 10)
	r := fetchRouter(f, cc)

	body := `{"url":"https://example.com/","engine":"stealth"}`
	doFetch(t, r, body)
	doFetch(t, r, body)

	if f.calls != 2 {
		t.Errorf("explicit engine fetches must not be served from cache, calls = %d", f.calls)
	}
}
