package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"

	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

// Pool multiplexes logical fetches over N persistent connections to the
// remote browser, one ephemeral tab per fetch. Slots are picked round-robin;
// a slot that crossed its tab budget is recycled the next time it is found
// idle.
type Pool struct {
	cfg     config.PoolConfig
	runtime func() config.Runtime

	slots []*slot
	rrMu  sync.Mutex
	rr    int

	// alive, dial, hangUp, and fetch are the connection strategies,
	// replaceable in tests.
	alive  func(*rod.Browser) bool
	dial   func(controlURL string) (*rod.Browser, *rod.Page, error)
	hangUp func(conn *rod.Browser, keepalive *rod.Page)
	fetch  func(ctx context.Context, conn *rod.Browser, url string, opts TabOptions) (*TabResult, error)
}

// NewPool creates the pool with disconnected slots. Connect warms them.
func NewPool(cfg config.PoolConfig, runtime func() config.Runtime) *Pool {
	if cfg.Slots < 1 {
		cfg.Slots = 1
	}
	p := &Pool{
		cfg:     cfg,
		runtime: runtime,
		slots:   make([]*slot, cfg.Slots),
		alive:   pingAlive,
		dial:    dialSlot,
		hangUp:  hangUpSlot,
		fetch:   fetchInTab,
	}
	for i := range p.slots {
		p.slots[i] = &slot{id: i}
	}
	return p
}

// Connect eagerly warms all slots in parallel. Idempotent: slots that are
// already connected are left alone. The first error is returned but the
// remaining slots still attempt their dial.
func (p *Pool) Connect(ctx context.Context) error {
	controlURL := ControlURL(p.runtime())

	var wg sync.WaitGroup
	errs := make([]error, len(p.slots))
	for i, s := range p.slots {
		wg.Add(1)
		go func(i int, s *slot) {
			defer wg.Done()
			errs[i] = p.ensureConnected(ctx, s, controlURL)
		}(i, s)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Disconnect closes keepalives and detaches from all slots.
func (p *Pool) Disconnect() {
	for _, s := range p.slots {
		s.mu.Lock()
		s.teardownLocked(p.hangUp)
		s.mu.Unlock()
	}
	slog.Info("browser pool disconnected")
}

// MarkStale flags every slot for recycling at its next idle pickup. Used
// after runtime config changes so new connections pick up the new endpoint
// without interrupting in-flight tabs.
func (p *Pool) MarkStale() {
	for _, s := range p.slots {
		s.mu.Lock()
		if s.conn != nil {
			s.stale = true
		}
		s.mu.Unlock()
	}
}

// Connected reports whether at least one slot holds a live connection.
func (p *Pool) Connected() bool {
	for _, s := range p.slots {
		if ok, _, _, _ := s.snapshot(); ok {
			return true
		}
	}
	return false
}

// Status returns the per-slot counters and totals.
func (p *Pool) Status() models.PoolStatus {
	out := models.PoolStatus{Slots: make([]models.SlotStatus, len(p.slots))}
	for i, s := range p.slots {
		connected, active, used, stale := s.snapshot()
		out.Slots[i] = models.SlotStatus{
			ID:         s.id,
			Connected:  connected,
			ActiveTabs: active,
			TabsUsed:   used,
			Stale:      stale,
		}
		if connected {
			out.Connected++
		}
		out.ActiveTabs += active
		out.TabsUsed += used
	}
	return out
}

// FetchInTab runs one fetch in a fresh tab on the next slot. If the tab
// operation fails, the pool retries once on the same slot. The error code
// distinguishes the failure mode: PoolDisconnected when the connection was
// lost, EngineError when the connection is healthy and the tab itself failed
// (navigation timeout, bad page).
func (p *Pool) FetchInTab(ctx context.Context, url string, opts TabOptions) (*TabResult, error) {
	s := p.nextSlot()

	result, err := p.fetchOnSlot(ctx, s, url, opts)
	if err == nil || ctx.Err() != nil {
		return result, err
	}

	slog.Warn("tab fetch failed, retrying on a fresh tab",
		"slot", s.id, "url", url, "error", err)

	return p.fetchOnSlot(ctx, s, url, opts)
}

// nextSlot advances the round-robin cursor. Skew across slots is acceptable.
func (p *Pool) nextSlot() *slot {
	p.rrMu.Lock()
	defer p.rrMu.Unlock()
	s := p.slots[p.rr%len(p.slots)]
	p.rr++
	return s
}

func (p *Pool) fetchOnSlot(ctx context.Context, s *slot, url string, opts TabOptions) (*TabResult, error) {
	controlURL := ControlURL(p.runtime())
	if err := p.ensureConnected(ctx, s, controlURL); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, models.NewPoolDisconnected(err)
	}

	conn := s.beginTab(p.cfg.MaxTabsBeforeRecycle)
	if conn == nil {
		return nil, models.NewPoolDisconnected(errors.New("slot lost its connection before tab open"))
	}
	defer s.endTab()

	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = p.cfg.NavigationTimeout
	}

	result, err := p.fetch(ctx, conn, url, opts)
	if err != nil {
		// A failed tab on a dead connection must not poison the slot.
		if !p.alive(conn) {
			p.dropConnection(s, conn)
			return nil, models.NewPoolDisconnected(err)
		}
		return nil, models.NewEngineError("browser", err)
	}
	return result, nil
}
