package engine

import (
	"context"

	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

// StealthEngine launches a stealth-patched local Chromium per request.
// Heaviest and slowest strategy, but presents a fresh browser identity
// every time.
type StealthEngine struct {
	fetchCfg config.FetchConfig
	runtime  func() config.Runtime
}

// NewStealthEngine creates the local stealth engine.
func NewStealthEngine(fetchCfg config.FetchConfig, runtime func() config.Runtime) *StealthEngine {
	return &StealthEngine{fetchCfg: fetchCfg, runtime: runtime}
}

func (e *StealthEngine) Name() string { return models.EngineStealth }

func (e *StealthEngine) Fetch(ctx context.Context, req *Request) (*Result, error) {
	rt := e.runtime()

	tab, err := browser.FetchLocal(ctx, req.URL, browser.LocalOptions{
		Headless:           rt.BrowserHeadless,
		NoSandbox:          e.fetchCfg.StealthNoSandbox,
		Bin:                e.fetchCfg.StealthBin,
		UserAgent:          ChromeUA,
		Headers:            req.Headers,
		WaitForJS:          req.WaitForJS,
		RenderDelay:        req.RenderDelay,
		NavigationTimeout:  e.fetchCfg.HTTPTimeout,
		NetworkIdleTimeout: e.fetchCfg.NetworkIdleTimeout,
	})
	if err != nil {
		return nil, models.NewEngineError("stealth", err)
	}
	return tabToResult(tab, LabelStealth), nil
}
