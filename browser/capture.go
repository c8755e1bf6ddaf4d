package browser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/gofetch/models"
)

// Capture records network responses whose URL matches any of the caller's
// patterns. Listeners are installed before navigation; bodies are pulled
// after the page settles, while the page is still alive.
type Capture struct {
	patterns []*regexp.Regexp

	mu      sync.Mutex
	methods map[proto.NetworkRequestID]string
	matches []capturedResponse
}

type capturedResponse struct {
	requestID proto.NetworkRequestID
	url       string
	status    int
	timestamp int64
}

// NewCapture compiles the patterns. An invalid pattern is a caller error.
func NewCapture(patterns []string) (*Capture, error) {
	c := &Capture{methods: make(map[proto.NetworkRequestID]string)}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid api pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// Attach registers the request/response listeners on the page. Must run
// before Navigate. The listener goroutine ends with the page context.
func (c *Capture) Attach(page *rod.Page) error {
	if len(c.patterns) == 0 {
		return nil
	}
	wait := page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if e.Request == nil {
				return
			}
			c.mu.Lock()
			c.methods[e.RequestID] = e.Request.Method
			c.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Response == nil || !c.matchesAny(e.Response.URL) {
				return
			}
			c.mu.Lock()
			c.matches = append(c.matches, capturedResponse{
				requestID: e.RequestID,
				url:       e.Response.URL,
				status:    e.Response.Status,
				timestamp: time.Now().UnixMilli(),
			})
			c.mu.Unlock()
		},
	)
	go wait()
	return nil
}

// Reset clears all recorded requests and matches. Attaching to a fresh page
// without a reset would replay the previous page's matches into Collect.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = make(map[proto.NetworkRequestID]string)
	c.matches = nil
}

func (c *Capture) matchesAny(url string) bool {
	for _, re := range c.patterns {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// Collect fetches the body for every recorded match and assembles the API
// call list in capture order. Body decoding attempts JSON first, falls back
// to text, and stores nothing when the body is gone.
func (c *Capture) Collect(page *rod.Page) []models.APICall {
	c.mu.Lock()
	matches := make([]capturedResponse, len(c.matches))
	copy(matches, c.matches)
	methods := make(map[proto.NetworkRequestID]string, len(c.methods))
	for k, v := range c.methods {
		methods[k] = v
	}
	c.mu.Unlock()

	calls := make([]models.APICall, 0, len(matches))
	for _, m := range matches {
		method := methods[m.requestID]
		if method == "" {
			method = "GET"
		}
		call := models.APICall{
			URL:       m.url,
			Method:    method,
			Status:    m.status,
			Timestamp: m.timestamp,
		}
		call.ResponseBody = fetchBody(page, m.requestID)
		calls = append(calls, call)
	}
	return calls
}

func fetchBody(page *rod.Page, id proto.NetworkRequestID) any {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page)
	if err != nil {
		slog.Debug("api capture: response body unavailable", "requestID", id, "error", err)
		return nil
	}
	raw := []byte(res.Body)
	if res.Base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			return nil
		}
		raw = decoded
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		return parsed
	}
	return string(raw)
}
