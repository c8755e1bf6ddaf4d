package models

// FetchResult is the engine-level outcome of a fetch. The API layer wraps it
// into a FetchResponse.
type FetchResult struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int `json:"statusCode"`

	// Content is the final HTML, or base64 bytes when ResponseType is base64.
	Content string `json:"content"`

	// Markdown is set only when the caller requested format=markdown.
	Markdown string `json:"markdown,omitempty"`

	// Headers are the response headers of the final document.
	Headers map[string]string `json:"headers"`

	// URL is the final URL after redirects.
	URL string `json:"url"`

	// EngineUsed is a stable label identifying the strategy that produced
	// the result, e.g. "fast:direct" or "patchright:stealth".
	EngineUsed string `json:"engineUsed"`

	// ResponseType is "text" or "base64".
	ResponseType string `json:"responseType"`
}

// APICall is one captured network response in advanced mode.
type APICall struct {
	URL          string `json:"url"`
	Method       string `json:"method"`
	Status       int    `json:"status"`
	ResponseBody any    `json:"responseBody"`
	Timestamp    int64  `json:"timestamp"`
}

// Resource statuses.
const (
	ResourceSuccess = "success"
	ResourceError   = "error"
)

// Resource is the outcome of one binary download (and optional upload).
type Resource struct {
	OriginalURL string `json:"originalUrl"`
	Status      string `json:"status"`
	UploadedURL string `json:"uploadedUrl,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Size        int    `json:"size,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AdvancedFetchResult extends FetchResult with captured API calls and
// downloaded resources. Both lists are always present, even when empty.
type AdvancedFetchResult struct {
	FetchResult
	APICalls  []APICall  `json:"apiCalls"`
	Resources []Resource `json:"resources"`
}

// FetchResponse is the wire shape for POST /api/fetch. HTTP status is 200
// for both outcomes; Success is authoritative.
type FetchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*FetchResult
}

// AdvancedFetchResponse is the wire shape for POST /api/fetch/advanced.
type AdvancedFetchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*AdvancedFetchResult
}

// SlotStatus reports one browser pool slot.
type SlotStatus struct {
	ID         int  `json:"id"`
	Connected  bool `json:"connected"`
	ActiveTabs int  `json:"activeTabs"`
	TabsUsed   int  `json:"tabsUsed"`
	Stale      bool `json:"stale"`
}

// PoolStatus aggregates the slot states.
type PoolStatus struct {
	Slots      []SlotStatus `json:"slots"`
	Connected  int          `json:"connected"`
	ActiveTabs int          `json:"activeTabs"`
	TabsUsed   int          `json:"tabsUsed"`
}

// StatusResponse is the response for GET /api/status.
type StatusResponse struct {
	Status           string     `json:"status"`
	ActiveRequests   int64      `json:"activeRequests"`
	BrowserConnected bool       `json:"browserConnected"`
	BrowserPool      PoolStatus `json:"browserPool"`
	UptimeSeconds    int64      `json:"uptime"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// RuntimeConfig is the mutable service configuration exposed on /api/config.
type RuntimeConfig struct {
	BrowserlessURL  string `json:"browserlessUrl"`
	ProxyURL        string `json:"proxyUrl"`
	DefaultEngine   string `json:"defaultEngine"`
	BrowserStealth  bool   `json:"browserStealth"`
	BrowserHeadless bool   `json:"browserHeadless"`
}

// RuntimeConfigPatch is the partial-update body for POST /api/config.
type RuntimeConfigPatch struct {
	BrowserlessURL  *string `json:"browserlessUrl,omitempty"`
	ProxyURL        *string `json:"proxyUrl,omitempty"`
	DefaultEngine   *string `json:"defaultEngine,omitempty" binding:"omitempty,oneof=auto fast browser stealth"`
	BrowserStealth  *bool   `json:"browserStealth,omitempty"`
	BrowserHeadless *bool   `json:"browserHeadless,omitempty"`
}

// LogEntry is one line of the in-memory log ring.
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// LogsResponse is the response for GET /api/logs.
type LogsResponse struct {
	Entries []LogEntry `json:"entries"`
}
