package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

// ProfileStore is the persistence the scheduler needs. Implemented by the
// sqlite store; faked in tests.
type ProfileStore interface {
	// Get returns the profile for a canonical domain, or nil when absent.
	Get(ctx context.Context, domain string) (*models.DomainProfile, error)

	// Upsert inserts or overwrites the winning configuration.
	Upsert(ctx context.Context, profile *models.DomainProfile) error

	// IncrementHit bumps the hit counter on a cached reuse.
	IncrementHit(ctx context.Context, domain string, statusCode int) error
}

// Step is one rung of the escalation ladder, derived from the current
// runtime configuration on every cache miss.
type Step struct {
	Engine      string
	RenderJS    bool
	RenderDelay time.Duration
	UseProxy    bool
	Label       string
}

// BuildLadder orders the strategies from cheapest to heaviest. Steps whose
// precondition (proxy, remote endpoint) is not met are omitted.
func BuildLadder(rt config.Runtime) []Step {
	var steps []Step
	if rt.ProxyURL != "" {
		steps = append(steps, Step{Engine: models.EngineFast, UseProxy: true, Label: "fast+proxy"})
	}
	steps = append(steps, Step{Engine: models.EngineFast, Label: "fast+direct"})
	if rt.BrowserlessURL != "" {
		steps = append(steps, Step{Engine: models.EngineBrowser, RenderJS: true, RenderDelay: 2 * time.Second, Label: "browser+2s"})
	}
	steps = append(steps, Step{Engine: models.EngineStealth, RenderJS: true, RenderDelay: 3 * time.Second, Label: "stealth+3s"})
	if rt.BrowserlessURL != "" {
		steps = append(steps,
			Step{Engine: models.EngineStealth, RenderJS: true, RenderDelay: 5 * time.Second, Label: "stealth+5s"},
			Step{Engine: models.EngineUnblock, RenderJS: true, Label: "unblock"},
		)
	}
	return steps
}

// Scheduler routes each fetch: forced engines and base64 run once, cached
// domains replay their profile, everything else walks the ladder and
// persists the winner.
type Scheduler struct {
	engines  map[string]Engine
	profiles ProfileStore
	runtime  func() config.Runtime
}

// NewScheduler wires the four engines to the profile store.
func NewScheduler(engines []Engine, profiles ProfileStore, runtime func() config.Runtime) *Scheduler {
	byName := make(map[string]Engine, len(engines))
	for _, e := range engines {
		byName[e.Name()] = e
	}
	return &Scheduler{engines: byName, profiles: profiles, runtime: runtime}
}

// Fetch resolves the request to engine calls per the routing rules.
func (s *Scheduler) Fetch(ctx context.Context, req *models.FetchRequest) (*Result, error) {
	rt := s.runtime()

	// base64 forces the fast engine regardless of engine choice or cache.
	if req.ResponseType == models.ResponseTypeBase64 {
		return s.runEngine(ctx, models.EngineFast, s.engineRequest(req, rt, rt.ProxyURL != "" || req.Proxy != ""))
	}

	if req.Engine != models.EngineAuto {
		return s.runEngine(ctx, req.Engine, s.engineRequest(req, rt, rt.ProxyURL != "" || req.Proxy != ""))
	}

	domain := ExtractDomain(req.URL)

	if profile := s.lookup(ctx, domain); profile != nil {
		return s.replayProfile(ctx, req, rt, domain, profile)
	}

	return s.escalate(ctx, req, rt, domain)
}

// lookup fetches the cached profile; store errors count as a miss.
func (s *Scheduler) lookup(ctx context.Context, domain string) *models.DomainProfile {
	profile, err := s.profiles.Get(ctx, domain)
	if err != nil {
		slog.Warn("profile lookup failed, escalating", "domain", domain, "error", err)
		return nil
	}
	return profile
}

// replayProfile runs exactly one engine call with the cached configuration.
// Failures surface unre-escalated so operators can evict broken profiles.
func (s *Scheduler) replayProfile(ctx context.Context, req *models.FetchRequest, rt config.Runtime, domain string, profile *models.DomainProfile) (*Result, error) {
	slog.Debug("domain profile hit", "domain", domain, "engine", profile.Engine)

	er := s.engineRequest(req, rt, profile.UseProxy)
	if profile.RenderDelayMs > 0 && er.RenderDelay == 0 {
		er.RenderDelay = time.Duration(profile.RenderDelayMs) * time.Millisecond
	}
	if profile.Preset != "" && er.Preset == "" {
		er.Preset = profile.Preset
	}

	result, err := s.runEngine(ctx, profile.Engine, er)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.IncrementHit(ctx, domain, result.StatusCode); err != nil {
		slog.Warn("profile hit count update failed", "domain", domain, "error", err)
	}
	return result, nil
}

// escalate walks the ladder and persists the winner when it is not the
// leading step. Step errors are absorbed; the ladder continues.
func (s *Scheduler) escalate(ctx context.Context, req *models.FetchRequest, rt config.Runtime, domain string) (*Result, error) {
	ladder := BuildLadder(rt)

	for i, step := range ladder {
		if err := ctx.Err(); err != nil {
			return nil, models.NewCancelled(err)
		}

		er := s.engineRequest(req, rt, step.UseProxy)
		if er.RenderDelay == 0 {
			er.RenderDelay = step.RenderDelay
		}

		result, err := s.runEngine(ctx, step.Engine, er)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, models.NewCancelled(err)
			}
			slog.Info("escalation step failed, continuing",
				"domain", domain, "step", step.Label, "error", err)
			continue
		}

		if !Sufficient(result.Content, result.StatusCode) {
			slog.Info("escalation step insufficient, continuing",
				"domain", domain, "step", step.Label,
				"status", result.StatusCode, "bytes", len(result.Content))
			continue
		}

		slog.Info("escalation step won",
			"domain", domain, "step", step.Label, "status", result.StatusCode)

		// The leading step is the scheduler's starting point anyway; only
		// non-default winners earn a profile. A cancelled escalation never
		// writes.
		if i > 0 && ctx.Err() == nil {
			s.persistWin(ctx, req, domain, step, result.StatusCode)
		}
		return result, nil
	}

	return nil, models.NewExhaustedEscalation(domain)
}

func (s *Scheduler) persistWin(ctx context.Context, req *models.FetchRequest, domain string, step Step, statusCode int) {
	profile := &models.DomainProfile{
		Domain:         domain,
		Engine:         step.Engine,
		RenderJs:       step.RenderJS || req.RenderJs,
		RenderDelayMs:  int(step.RenderDelay / time.Millisecond),
		UseProxy:       step.UseProxy,
		Preset:         req.Preset,
		LastStatusCode: statusCode,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		slog.Warn("profile upsert failed", "domain", domain, "error", err)
	}
}

// engineRequest translates the API request into the engine contract,
// resolving the proxy: the per-request override wins, else the configured
// default when the step wants one.
func (s *Scheduler) engineRequest(req *models.FetchRequest, rt config.Runtime, useProxy bool) *Request {
	er := &Request{
		URL:          req.URL,
		Headers:      req.Headers,
		Preset:       req.Preset,
		ResponseType: req.ResponseType,
		RenderDelay:  time.Duration(req.RenderDelayMs) * time.Millisecond,
		WaitForJS:    req.WaitForJs,
	}
	if useProxy {
		if req.Proxy != "" {
			er.Proxy = req.Proxy
		} else {
			er.Proxy = rt.ProxyURL
		}
	}
	return er
}

func (s *Scheduler) runEngine(ctx context.Context, name string, req *Request) (*Result, error) {
	eng, ok := s.engines[name]
	if !ok {
		return nil, models.NewBadRequest("unknown engine: " + name)
	}
	return eng.Fetch(ctx, req)
}
