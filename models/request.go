package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Engine selector values accepted in FetchRequest.Engine.
const (
	EngineAuto    = "auto"
	EngineFast    = "fast"
	EngineBrowser = "browser"
	EngineStealth = "stealth"
	EngineUnblock = "unblock"
)

// Response body encodings.
const (
	ResponseTypeText   = "text"
	ResponseTypeBase64 = "base64"
)

// Output formats.
const (
	FormatHTML         = "html"
	FormatHTMLStripped = "html-stripped"
	FormatMarkdown     = "markdown"
)

// FetchRequest is the payload for POST /api/fetch.
type FetchRequest struct {
	// URL is the target page. Required, absolute http/https.
	URL string `json:"url" binding:"required"`

	// Engine picks a fetch strategy. "auto" walks the escalation ladder.
	Engine string `json:"engine,omitempty" binding:"omitempty,oneof=auto fast browser stealth"`

	// RenderJs hints that the page needs JavaScript. Recorded on persisted
	// profiles; does not reorder the ladder.
	RenderJs bool `json:"renderJs,omitempty"`

	// WaitForJs makes the stealth engine wait for the load event plus the
	// render delay instead of its default wait strategy.
	WaitForJs bool `json:"waitForJs,omitempty"`

	// RenderDelayMs is the extra wait after load, in milliseconds.
	RenderDelayMs int `json:"renderDelayMs,omitempty" binding:"omitempty,min=0,max=60000"`

	// Proxy overrides the default proxy for this request. Fast engine only;
	// pooled browser connections take their proxy at connect time.
	Proxy string `json:"proxy,omitempty" binding:"omitempty,url"`

	// Headers are merged on top of the preset bundle.
	Headers map[string]string `json:"headers,omitempty"`

	// Preset names a header bundle, e.g. "chrome".
	Preset string `json:"preset,omitempty"`

	// Format controls the returned representation.
	Format string `json:"format,omitempty" binding:"omitempty,oneof=html html-stripped markdown"`

	// ResponseType "base64" returns raw bytes base64-encoded and forces the
	// fast engine.
	ResponseType string `json:"responseType,omitempty" binding:"omitempty,oneof=text base64"`
}

// Defaults applies default values to unset fields.
func (r *FetchRequest) Defaults() {
	if r.Engine == "" {
		r.Engine = EngineAuto
	}
	if r.Format == "" {
		r.Format = FormatHTML
	}
	if r.ResponseType == "" {
		r.ResponseType = ResponseTypeText
	}
}

// Validate checks constraints the binding tags cannot express.
func (r *FetchRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return NewBadRequest(fmt.Sprintf("invalid url: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewBadRequest("url must be absolute http or https")
	}
	if u.Host == "" {
		return NewBadRequest("url is missing a host")
	}
	if r.RenderDelayMs < 0 {
		return NewBadRequest("renderDelayMs must be non-negative")
	}
	return nil
}

// UploadConfig names the sink for downloaded resources in advanced mode.
type UploadConfig struct {
	BaseURL string `json:"baseUrl" binding:"required"`
	APIKey  string `json:"apiKey"`
	Bucket  string `json:"bucket" binding:"required"`
}

// AdvancedFetchRequest is the payload for POST /api/fetch/advanced.
type AdvancedFetchRequest struct {
	FetchRequest

	// JsAction is evaluated in the page after navigation.
	JsAction string `json:"jsAction,omitempty"`

	// APIPatterns are regex patterns matched against captured response URLs.
	APIPatterns []string `json:"apiPatterns,omitempty"`

	// ImagesToDownload are fetched through tabs in the same browser context.
	ImagesToDownload []string `json:"imagesToDownload,omitempty"`

	// UploadConfig, when set, forwards each downloaded resource to the sink.
	UploadConfig *UploadConfig `json:"uploadConfig,omitempty"`
}

// Validate extends FetchRequest validation with advanced-mode checks.
func (r *AdvancedFetchRequest) Validate() error {
	if err := r.FetchRequest.Validate(); err != nil {
		return err
	}
	for _, raw := range r.ImagesToDownload {
		if strings.TrimSpace(raw) == "" {
			return NewBadRequest("imagesToDownload contains an empty url")
		}
	}
	if r.UploadConfig != nil {
		if r.UploadConfig.BaseURL == "" || r.UploadConfig.Bucket == "" {
			return NewBadRequest("uploadConfig requires baseUrl and bucket")
		}
	}
	return nil
}
