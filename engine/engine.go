package engine

import (
	"context"
	"time"
)

// Engine labels reported in results and logs. Stable identifiers, never
// user-visible prose.
const (
	LabelFastProxy   = "fast:proxy"
	LabelFastDirect  = "fast:direct"
	LabelBrowserless = "browserless"
	LabelStealth     = "patchright:stealth"
	LabelUnblock     = "unblock"
)

// Engine is the contract shared by the fetch strategies.
type Engine interface {
	// Name returns the engine family ("fast", "browser", "stealth",
	// "unblock"), the value persisted in domain profiles.
	Name() string

	// Fetch retrieves the page for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything an engine needs to fetch a page.
type Request struct {
	URL string

	// Headers are merged on top of the preset bundle.
	Headers map[string]string

	// Preset names a header bundle, e.g. "chrome".
	Preset string

	// ResponseType "base64" returns raw bytes base64-encoded (fast engine).
	ResponseType string

	// RenderDelay is the extra wait after load for browser engines.
	RenderDelay time.Duration

	// WaitForJS switches the stealth engine to a load-event wait.
	WaitForJS bool

	// Proxy is the resolved proxy URL, empty for direct (fast engine).
	Proxy string
}

// Result is the output of a successful engine fetch.
type Result struct {
	StatusCode   int
	Content      string
	Headers      map[string]string
	FinalURL     string
	EngineUsed   string
	ResponseType string
}
