package engine

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		HTTPTimeout:  10 * time.Second,
		MaxRedirects: 5,
		MaxBodyBytes: 10 * 1024 * 1024,
	}
}

func TestFastEngine_Name(t *testing.T) {
	e := NewFastEngine(testFetchConfig())
	if e.Name() != models.EngineFast {
		t.Errorf("Name() = %q, want %q", e.Name(), models.EngineFast)
	}
}

func TestFastEngine_BasicFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer srv.Close()

	e := NewFastEngine(testFetchConfig())
	result, err := e.Fetch(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StatusCode != 200 {
		t.Errorf("status = %d, want 200", result.StatusCode)
	}
	if result.Content != "<html><body>hello</body></html>" {
		t.Errorf("content = %q", result.Content)
	}
	if result.EngineUsed != LabelFastDirect {
		t.Errorf("engine label = %q, want %q", result.EngineUsed, LabelFastDirect)
	}
	if result.ResponseType != models.ResponseTypeText {
		t.Errorf("response type = %q, want text", result.ResponseType)
	}
	if result.FinalURL == "" {
		t.Error("final URL missing")
	}
}

func TestFastEngine_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "blocked")
	}))
	defer srv.Close()

	e := NewFastEngine(testFetchConfig())
	result, err := e.Fetch(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("4xx must surface as a result, not an error: %v", err)
	}
	if result.StatusCode != 403 {
		t.Errorf("status = %d, want 403", result.StatusCode)
	}
	if result.Content != "blocked" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestFastEngine_SendsPresetHeaders(t *testing.T) {
	var gotUA, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
	}))
	defer srv.Close()

	e := NewFastEngine(testFetchConfig())
	_, err := e.Fetch(context.Background(), &Request{
		URL:     srv.URL,
		Headers: map[string]string{"X-Custom": "value"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUA != ChromeUA {
		t.Errorf("User-Agent = %q, want chrome preset", gotUA)
	}
	if gotCustom != "value" {
		t.Errorf("custom header = %q, want value", gotCustom)
	}
}

func TestFastEngine_GzipDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		fmt.Fprint(gz, "compressed page body")
		gz.Close()
	}))
	defer srv.Close()

	e := NewFastEngine(testFetchConfig())
	result, err := e.Fetch(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "compressed page body" {
		t.Errorf("content = %q, want decoded body", result.Content)
	}
}

func TestFastEngine_Base64ResponseType(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01, 0x02}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	e := NewFastEngine(testFetchConfig())
	result, err := e.Fetch(context.Background(), &Request{
		URL:          srv.URL,
		ResponseType: models.ResponseTypeBase64,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ResponseType != models.ResponseTypeBase64 {
		t.Errorf("response type = %q, want base64", result.ResponseType)
	}
	decoded, err := base64.StdEncoding.DecodeString(result.Content)
	if err != nil {
		t.Fatalf("content is not valid base64: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Errorf("decoded bytes differ: got %v, want %v", decoded, payload)
	}
}

func TestFastEngine_RedirectFollowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "arrived")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewFastEngine(testFetchConfig())
	result, err := e.Fetch(context.Background(), &Request{URL: srv.URL + "/start"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "arrived" {
		t.Errorf("content = %q, want arrived", result.Content)
	}
	if result.FinalURL != srv.URL+"/final" {
		t.Errorf("final URL = %q, want %q", result.FinalURL, srv.URL+"/final")
	}
}

func TestFastEngine_RedirectBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.MaxRedirects = 2

	e := NewFastEngine(cfg)
	result, err := e.Fetch(context.Background(), &Request{URL: srv.URL + "/hop/"})
	if err != nil {
		t.Fatalf("exceeding the budget must return the last response, not an error: %v", err)
	}
	if result.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d (unfollowed redirect)", result.StatusCode, http.StatusFound)
	}
}

func TestFastEngine_InvalidProxy(t *testing.T) {
	e := NewFastEngine(testFetchConfig())
	_, err := e.Fetch(context.Background(), &Request{
		URL:   "https://example.com/",
		Proxy: "socks5://unsupported:1080",
	})
	if err == nil {
		t.Fatal("expected an error for a non-http proxy scheme")
	}
	if code := models.ErrorCode(err); code != models.ErrCodeEngineError {
		t.Errorf("error code = %q, want %q", code, models.ErrCodeEngineError)
	}
}
