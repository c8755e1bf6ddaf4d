package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

func TestUnblockEngine_Fetch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"content": "<html>unblocked</html>"})
	}))
	defer srv.Close()

	rt := config.Runtime{BrowserlessURL: strings.Replace(srv.URL, "http://", "ws://", 1)}
	e := NewUnblockEngine(func() config.Runtime { return rt })

	result, err := e.Fetch(context.Background(), &Request{URL: "https://hard.example/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/chrome/unblock" {
		t.Errorf("path = %q, want /chrome/unblock", gotPath)
	}
	if gotBody["url"] != "https://hard.example/" {
		t.Errorf("forwarded url = %v", gotBody["url"])
	}
	if gotBody["bestAttempt"] != true || gotBody["content"] != true {
		t.Errorf("request flags wrong: %v", gotBody)
	}
	if result.Content != "<html>unblocked</html>" {
		t.Errorf("content = %q", result.Content)
	}
	if result.StatusCode != 200 {
		t.Errorf("status = %d, want 200", result.StatusCode)
	}
	if result.EngineUsed != LabelUnblock {
		t.Errorf("engine label = %q, want %q", result.EngineUsed, LabelUnblock)
	}
}

func TestUnblockEngine_EndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream broke")
	}))
	defer srv.Close()

	rt := config.Runtime{BrowserlessURL: strings.Replace(srv.URL, "http://", "ws://", 1)}
	e := NewUnblockEngine(func() config.Runtime { return rt })

	_, err := e.Fetch(context.Background(), &Request{URL: "https://hard.example/"})
	if err == nil {
		t.Fatal("expected an error for a 5xx endpoint response")
	}
	if code := models.ErrorCode(err); code != models.ErrCodeEngineError {
		t.Errorf("error code = %q, want %q", code, models.ErrCodeEngineError)
	}
}

func TestUnblockEngine_NoEndpointConfigured(t *testing.T) {
	e := NewUnblockEngine(func() config.Runtime { return config.Runtime{} })
	_, err := e.Fetch(context.Background(), &Request{URL: "https://hard.example/"})
	if err == nil {
		t.Fatal("expected an error without a remote browser endpoint")
	}
}
