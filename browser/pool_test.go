package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod"

	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/models"
)

func testPool(slots int) *Pool {
	return NewPool(
		config.PoolConfig{Slots: slots, MaxTabsBeforeRecycle: 200},
		func() config.Runtime { return config.Runtime{BrowserlessURL: "ws://b:3000"} },
	)
}

// stubConnections replaces the pool's connection strategies with in-memory
// stand-ins and returns a counter of dials.
func stubConnections(p *Pool) *int {
	dials := new(int)
	p.alive = func(*rod.Browser) bool { return true }
	p.dial = func(string) (*rod.Browser, *rod.Page, error) {
		*dials++
		return &rod.Browser{}, nil, nil
	}
	p.hangUp = func(*rod.Browser, *rod.Page) {}
	return dials
}

func TestNewPool_ClampsSlotCount(t *testing.T) {
	p := testPool(0)
	if len(p.slots) != 1 {
		t.Errorf("slot count = %d, want 1", len(p.slots))
	}
}

func TestNextSlot_RoundRobin(t *testing.T) {
	p := testPool(3)

	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, id := range want {
		if got := p.nextSlot().id; got != id {
			t.Errorf("pick %d = slot %d, want %d", i, got, id)
		}
	}
}

func TestSlot_TabBookkeeping(t *testing.T) {
	s := &slot{id: 0, conn: &rod.Browser{}}

	if conn := s.beginTab(200); conn == nil {
		t.Fatal("beginTab returned nil on a connected slot")
	}
	s.beginTab(200)

	_, active, used, stale := s.snapshot()
	if active != 2 || used != 2 {
		t.Errorf("active=%d used=%d, want 2/2", active, used)
	}
	if stale {
		t.Error("slot stale below the threshold")
	}

	s.endTab()
	s.endTab()
	if _, active, used, _ = s.snapshot(); active != 0 || used != 2 {
		t.Errorf("after release: active=%d used=%d, want 0/2", active, used)
	}
}

func TestSlot_BeginTabWithoutConnection(t *testing.T) {
	s := &slot{id: 0}
	if conn := s.beginTab(200); conn != nil {
		t.Error("beginTab on a disconnected slot must return nil")
	}
	if _, active, _, _ := s.snapshot(); active != 0 {
		t.Error("failed booking must not count an active tab")
	}
}

func TestSlot_StaleAtThreshold(t *testing.T) {
	s := &slot{id: 0, conn: &rod.Browser{}}

	for i := 0; i < 3; i++ {
		s.beginTab(3)
		s.endTab()
	}

	if _, _, used, stale := s.snapshot(); !stale || used != 3 {
		t.Errorf("used=%d stale=%t, want 3/true at the threshold", used, stale)
	}
}

func TestSlot_RecycleAfterTabBudget(t *testing.T) {
	p := testPool(1)
	dials := stubConnections(p)

	ctx := context.Background()
	s := p.slots[0]
	if err := p.ensureConnected(ctx, s, "ws://b:3000"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	first := s.conn
	firstGen := s.gen

	for i := 0; i < 3; i++ {
		s.beginTab(3)
		s.endTab()
	}
	if _, _, _, stale := s.snapshot(); !stale {
		t.Fatal("slot not stale after exhausting the tab budget")
	}

	if err := p.ensureConnected(ctx, s, "ws://b:3000"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if s.conn == first {
		t.Error("idle pickup kept the exhausted connection")
	}
	if s.gen != firstGen+1 {
		t.Errorf("gen = %d, want %d", s.gen, firstGen+1)
	}
	if _, _, used, stale := s.snapshot(); used != 0 || stale {
		t.Errorf("after recycle: used=%d stale=%t, want 0/false", used, stale)
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want 2", *dials)
	}
}

func TestSlot_NoRecycleWhileTabsActive(t *testing.T) {
	p := testPool(1)
	dials := stubConnections(p)

	ctx := context.Background()
	s := p.slots[0]
	if err := p.ensureConnected(ctx, s, "ws://b:3000"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	first := s.conn

	s.beginTab(1) // crosses the budget with the tab still open
	defer s.endTab()

	if err := p.ensureConnected(ctx, s, "ws://b:3000"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if s.conn != first {
		t.Error("busy slot was recycled under an in-flight tab")
	}
	if *dials != 1 {
		t.Errorf("dials = %d, want 1", *dials)
	}
}

func TestPool_RedialsDeadConnection(t *testing.T) {
	p := testPool(1)
	dials := stubConnections(p)
	p.alive = func(*rod.Browser) bool { return false }

	ctx := context.Background()
	s := p.slots[0]
	if err := p.ensureConnected(ctx, s, "ws://b:3000"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	first := s.conn

	if err := p.ensureConnected(ctx, s, "ws://b:3000"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if s.conn == first {
		t.Error("dead connection was handed out again")
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want 2", *dials)
	}
}

func TestFetchInTab_Success(t *testing.T) {
	p := testPool(1)
	stubConnections(p)
	p.fetch = func(context.Context, *rod.Browser, string, TabOptions) (*TabResult, error) {
		return &TabResult{HTML: "<html>ok</html>", StatusCode: 200}, nil
	}

	result, err := p.FetchInTab(context.Background(), "https://example.com/", TabOptions{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.HTML != "<html>ok</html>" {
		t.Errorf("html = %q", result.HTML)
	}
	if _, _, used, _ := p.slots[0].snapshot(); used != 1 {
		t.Errorf("tabsUsed = %d, want 1", used)
	}
}

func TestFetchInTab_TabFailureOnHealthyConnection(t *testing.T) {
	p := testPool(1)
	stubConnections(p)
	fetches := 0
	p.fetch = func(context.Context, *rod.Browser, string, TabOptions) (*TabResult, error) {
		fetches++
		return nil, errors.New("navigation timeout")
	}

	_, err := p.FetchInTab(context.Background(), "https://example.com/", TabOptions{})
	if models.ErrorCode(err) != models.ErrCodeEngineError {
		t.Errorf("error code = %q, want %q for a failed tab on a live connection",
			models.ErrorCode(err), models.ErrCodeEngineError)
	}
	if fetches != 2 {
		t.Errorf("fetch attempts = %d, want 2", fetches)
	}
	if !p.Connected() {
		t.Error("healthy connection was dropped over a tab failure")
	}
}

func TestFetchInTab_DeadConnection(t *testing.T) {
	p := testPool(1)
	dials := stubConnections(p)
	p.alive = func(*rod.Browser) bool { return false }
	p.fetch = func(context.Context, *rod.Browser, string, TabOptions) (*TabResult, error) {
		return nil, errors.New("cdp connection closed")
	}

	_, err := p.FetchInTab(context.Background(), "https://example.com/", TabOptions{})
	if models.ErrorCode(err) != models.ErrCodePoolDisconnected {
		t.Errorf("error code = %q, want %q", models.ErrorCode(err), models.ErrCodePoolDisconnected)
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want one redial between attempts", *dials)
	}
	if p.Connected() {
		t.Error("dead connection still reported as connected")
	}
}

func TestPool_MarkStale(t *testing.T) {
	p := testPool(2)
	p.slots[0].conn = &rod.Browser{}

	p.MarkStale()

	if _, _, _, stale := p.slots[0].snapshot(); !stale {
		t.Error("connected slot should be flagged stale")
	}
	if _, _, _, stale := p.slots[1].snapshot(); stale {
		t.Error("disconnected slot has nothing to recycle")
	}
}

func TestPool_Status(t *testing.T) {
	p := testPool(2)
	p.slots[0].conn = &rod.Browser{}
	p.slots[0].activeTabs = 1
	p.slots[0].tabsUsed = 40
	p.slots[1].tabsUsed = 7

	st := p.Status()
	if len(st.Slots) != 2 {
		t.Fatalf("got %d slot entries, want 2", len(st.Slots))
	}
	if st.Connected != 1 {
		t.Errorf("connected = %d, want 1", st.Connected)
	}
	if st.ActiveTabs != 1 {
		t.Errorf("activeTabs = %d, want 1", st.ActiveTabs)
	}
	if st.TabsUsed != 47 {
		t.Errorf("tabsUsed = %d, want 47", st.TabsUsed)
	}
	if !st.Slots[0].Connected || st.Slots[1].Connected {
		t.Error("per-slot connected flags wrong")
	}
}

func TestPool_Connected(t *testing.T) {
	p := testPool(2)
	if p.Connected() {
		t.Error("fresh pool reports connected")
	}
	p.slots[1].conn = &rod.Browser{}
	if !p.Connected() {
		t.Error("pool with one live slot reports disconnected")
	}
}
