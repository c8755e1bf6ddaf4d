package browser

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// TabOptions controls one tab fetch.
type TabOptions struct {
	// Headers are set as extra HTTP headers before navigation.
	Headers map[string]string

	// RenderDelay is slept after navigation settles, before the DOM read.
	RenderDelay time.Duration

	// NavigationTimeout bounds the navigate-and-settle phase.
	NavigationTimeout time.Duration

	// BeforeNavigate installs per-request hooks (e.g. response capture).
	// Runs after the page exists but before goto.
	BeforeNavigate func(page *rod.Page) error

	// AfterNavigate runs between the render delay and the DOM read. It
	// receives the live browser handle so it can open sibling tabs in the
	// same context.
	AfterNavigate func(ctx context.Context, page *rod.Page, conn *rod.Browser) error
}

// TabResult is the outcome of one tab fetch.
type TabResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	Headers    map[string]string
}

// fetchInTab opens a page, navigates, waits, and reads the DOM. The tab is
// closed on every exit path; the close uses the original page reference so
// cleanup succeeds even when the request context has expired.
func fetchInTab(ctx context.Context, conn *rod.Browser, url string, opts TabOptions) (*TabResult, error) {
	page, err := conn.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	navCtx, cancel := context.WithTimeout(ctx, opts.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if len(opts.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toNetworkHeaders(opts.Headers)}.Call(p)
	}

	// The document watcher and any caller hooks must be installed before
	// Navigate; listeners registered later miss the main response.
	doc := watchDocument(p)
	if opts.BeforeNavigate != nil {
		if err := opts.BeforeNavigate(p); err != nil {
			return nil, err
		}
	}

	if err := p.Navigate(url); err != nil {
		return nil, err
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil && navCtx.Err() != nil {
		return nil, navCtx.Err()
	}

	if opts.RenderDelay > 0 {
		select {
		case <-time.After(opts.RenderDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if opts.AfterNavigate != nil {
		if err := opts.AfterNavigate(ctx, p, conn); err != nil {
			return nil, err
		}
	}

	html, err := p.HTML()
	if err != nil {
		return nil, err
	}

	finalURL := evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}

	status, headers := doc.result()
	return &TabResult{
		HTML:       html,
		StatusCode: status,
		FinalURL:   finalURL,
		Headers:    headers,
	}, nil
}

// docWatch records the main document response observed during navigation.
type docWatch struct {
	mu      sync.Mutex
	status  int
	headers map[string]string
}

// watchDocument registers a listener for the first document response. Must
// run before Navigate.
func watchDocument(page *rod.Page) *docWatch {
	w := &docWatch{}
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		w.mu.Lock()
		w.status = e.Response.Status
		w.headers = fromNetworkHeaders(e.Response.Headers)
		w.mu.Unlock()
		return true
	})
	go wait()
	return w
}

// result returns the observed status and headers; 0 when no response object
// was seen (engines map that to 200).
func (w *docWatch) result() (int, map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status, w.headers
}

func evalString(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toNetworkHeaders converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toNetworkHeaders(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

func fromNetworkHeaders(h proto.NetworkHeaders) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v.Str()
	}
	return out
}
