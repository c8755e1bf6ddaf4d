package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// LocalOptions configures one local stealth launch.
type LocalOptions struct {
	Headless  bool
	NoSandbox bool
	Bin       string

	UserAgent string
	Headers   map[string]string

	// WaitForJS selects the load-event wait strategy with an extra delay.
	WaitForJS   bool
	RenderDelay time.Duration

	NavigationTimeout  time.Duration
	NetworkIdleTimeout time.Duration
}

// FetchLocal launches a stealth-patched Chromium for exactly one fetch and
// tears it down on every exit path. No pooling: every request gets a fresh
// browser identity.
func FetchLocal(ctx context.Context, url string, opts LocalOptions) (*TabResult, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Leakless(true)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	// Flags mirror the remote stealth launch: hide the automation banner
	// and keep background tabs at full priority.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("window-size"), "1920,1080")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("disable-default-apps"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch stealth browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect stealth browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
		l.Kill()
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if opts.UserAgent != "" {
		_ = p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: "en-US",
		})
	}
	_ = proto.EmulationSetTimezoneOverride{TimezoneID: "America/New_York"}.Call(p)

	if len(opts.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toNetworkHeaders(opts.Headers)}.Call(p)
	}

	doc := watchDocument(p)

	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if err := waitLocal(ctx, p, opts); err != nil {
		return nil, err
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("read dom: %w", err)
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

// waitLocal applies the caller-intent wait strategy:
//
//   - WaitForJS: full load event, then the extra delay.
//   - RenderDelay set: DOM settles, then the fixed delay.
//   - Otherwise: network idle with a bounded fallback to the settled DOM.
func waitLocal(ctx context.Context, p *rod.Page, opts LocalOptions) error {
	switch {
	case opts.WaitForJS:
		if err := p.WaitLoad(); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return sleepCtx(ctx, opts.RenderDelay)

	case opts.RenderDelay > 0:
		_ = p.WaitDOMStable(300*time.Millisecond, 0.1)
		return sleepCtx(ctx, opts.RenderDelay)

	default:
		idle := opts.NetworkIdleTimeout
		if idle <= 0 {
			idle = 10 * time.Second
		}
		// Chatty pages never go idle; the Timeout page bounds the wait,
		// then the DOM-stable fallback runs.
		p.Timeout(idle).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		_ = p.WaitDOMStable(300*time.Millisecond, 0.1)
		return nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
