// Package logging routes slog records to the app.log file, an in-memory
// ring buffer, and any subscribed observers.
package logging

import (
	"sync"
	"time"
)

// RingSize is the number of log entries kept in memory.
const RingSize = 500

// Entry is one formatted log record.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
}

// Hub holds the ring buffer and fans entries out to subscribers. Slow
// subscribers drop entries; Append never blocks.
type Hub struct {
	mu      sync.Mutex
	ring    []Entry
	next    int
	full    bool
	subs    map[int]chan Entry
	nextSub int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		ring: make([]Entry, RingSize),
		subs: make(map[int]chan Entry),
	}
}

// Append records an entry and broadcasts it.
func (h *Hub) Append(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = e
	h.next++
	if h.next == len(h.ring) {
		h.next = 0
		h.full = true
	}

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// observer too slow, drop
		}
	}
}

// Snapshot returns up to limit entries in chronological order. limit <= 0
// returns everything retained.
func (h *Hub) Snapshot(limit int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Entry
	if h.full {
		out = make([]Entry, 0, len(h.ring))
		out = append(out, h.ring[h.next:]...)
		out = append(out, h.ring[:h.next]...)
	} else {
		out = make([]Entry, h.next)
		copy(out, h.ring[:h.next])
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Subscribe registers an observer. The returned cancel func must be called
// to release it; the channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan Entry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan Entry, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}
