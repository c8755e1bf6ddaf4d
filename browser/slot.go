package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// slot is one persistent connection to the remote browser. The pool owns all
// handles; a slot never escapes the package.
//
// State machine: Disconnected -> Connecting -> Connected -> Stale ->
// Disconnected. Counters and handles are guarded by mu; dials are
// single-flight via the connecting sentinel.
type slot struct {
	id int

	mu         sync.Mutex
	conn       *rod.Browser
	keepalive  *rod.Page
	activeTabs int
	tabsUsed   int
	stale      bool
	connecting chan struct{} // non-nil while a dial is in flight
	gen        uint64        // bumped on every successful (re)connect
}

// snapshot returns the slot counters for status reporting.
func (s *slot) snapshot() (connected bool, activeTabs, tabsUsed int, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil, s.activeTabs, s.tabsUsed, s.stale
}

// ensureConnected makes sure the slot has a live connection, dialing at most
// once across concurrent callers. A stale slot found idle is torn down and
// redialed before use.
func (p *Pool) ensureConnected(ctx context.Context, s *slot, controlURL string) error {
	for {
		s.mu.Lock()

		if ch := s.connecting; ch != nil {
			s.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if s.conn != nil && s.stale && s.activeTabs == 0 {
			slog.Info("browser slot recycling", "slot", s.id, "tabsUsed", s.tabsUsed)
			s.teardownLocked(p.hangUp)
		}

		if s.conn != nil {
			conn := s.conn
			s.mu.Unlock()
			if p.alive == nil || p.alive(conn) {
				return nil
			}
			// Connection dropped behind our back; clear it and redial.
			p.dropConnection(s, conn)
			continue
		}

		ch := make(chan struct{})
		s.connecting = ch
		s.mu.Unlock()

		conn, keepalive, err := p.dial(controlURL)

		s.mu.Lock()
		s.connecting = nil
		close(ch)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.conn = conn
		s.keepalive = keepalive
		s.tabsUsed = 0
		s.stale = false
		s.gen++
		s.mu.Unlock()

		slog.Info("browser slot connected", "slot", s.id, "gen", s.gen)
		return nil
	}
}

// dropConnection clears the handle if it still is the given connection, so
// the next caller redials. In-flight tabs on other connections are unaffected.
func (p *Pool) dropConnection(s *slot, conn *rod.Browser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return
	}
	slog.Warn("browser slot connection lost", "slot", s.id)
	s.teardownLocked(p.hangUp)
}

// dialSlot opens one remote browser connection and its keepalive tab. The
// keepalive exists solely to keep the remote instance alive when all work
// tabs are momentarily closed.
//
// The connection deliberately outlives the dialing request: it is bound to
// the process, not to the caller's context.
func dialSlot(controlURL string) (*rod.Browser, *rod.Page, error) {
	if controlURL == "" {
		return nil, nil, fmt.Errorf("no remote browser endpoint configured")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect remote browser: %w", err)
	}

	keepalive, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, nil, fmt.Errorf("open keepalive tab: %w", err)
	}

	return browser, keepalive, nil
}

// hangUpSlot closes a slot's handles. Counterpart of dialSlot.
func hangUpSlot(conn *rod.Browser, keepalive *rod.Page) {
	if keepalive != nil {
		_ = keepalive.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// beginTab books a tab on the current connection and returns its handle.
// Crossing the recycle threshold marks the slot stale; the running connection
// keeps serving until it is found idle.
func (s *slot) beginTab(maxTabs int) *rod.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.activeTabs++
	s.tabsUsed++
	if !s.stale && s.tabsUsed >= maxTabs {
		s.stale = true
		slog.Info("browser slot marked stale", "slot", s.id, "tabsUsed", s.tabsUsed)
	}
	return s.conn
}

// endTab releases the tab booking. Runs on every exit path.
func (s *slot) endTab() {
	s.mu.Lock()
	s.activeTabs--
	s.mu.Unlock()
}

// teardownLocked hangs up the slot's handles and resets its lifecycle state.
// Caller must hold mu.
func (s *slot) teardownLocked(hangUp func(*rod.Browser, *rod.Page)) {
	if s.conn != nil || s.keepalive != nil {
		hangUp(s.conn, s.keepalive)
	}
	s.conn = nil
	s.keepalive = nil
	s.stale = false
	s.tabsUsed = 0
}

// pingAlive checks the connection with a lightweight CDP call.
func pingAlive(conn *rod.Browser) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := proto.BrowserGetVersion{}.Call(conn.Context(ctx))
	return err == nil
}
