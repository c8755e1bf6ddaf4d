package browser

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/use-agent/gofetch/config"
)

// launchArgs are passed to every remote browser launch. Window size matches
// the local stealth viewport; the blink flag hides the automation banner.
var launchArgs = []string{
	"--window-size=1920,1080",
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
}

// ControlURL builds the WebSocket endpoint for one slot connection from the
// runtime configuration: the stealth route when enabled, the upstream proxy
// as a launch flag, and the launch-option blob.
func ControlURL(rt config.Runtime) string {
	if rt.BrowserlessURL == "" {
		return ""
	}
	base := strings.TrimRight(rt.BrowserlessURL, "/")
	if rt.BrowserStealth {
		base += "/chrome/stealth"
	}

	q := url.Values{}
	if rt.ProxyURL != "" {
		q.Set("--proxy-server", rt.ProxyURL)
	}
	launch, _ := json.Marshal(map[string]any{
		"headless": rt.BrowserHeadless,
		"args":     launchArgs,
	})
	q.Set("launch", string(launch))

	return base + "?" + q.Encode()
}

// UnblockURL derives the REST unblock endpoint from the WebSocket base:
// ws becomes http, wss becomes https, and /chrome/unblock is appended.
func UnblockURL(browserlessURL string) string {
	u, err := url.Parse(strings.TrimRight(browserlessURL, "/"))
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/chrome/unblock"
	u.RawQuery = ""
	return u.String()
}
