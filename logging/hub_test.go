package logging

import (
	"fmt"
	"testing"
	"time"
)

func entry(msg string) Entry {
	return Entry{Time: time.Now(), Level: "INFO", Message: msg}
}

func TestHub_SnapshotOrder(t *testing.T) {
	h := NewHub()
	for i := 0; i < 5; i++ {
		h.Append(entry(fmt.Sprintf("msg-%d", i)))
	}

	got := h.Snapshot(0)
	if len(got) != 5 {
		t.Fatalf("got %d entries, want 5", len(got))
	}
	for i, e := range got {
		want := fmt.Sprintf("msg-%d", i)
		if e.Message != want {
			t.Errorf("entry[%d] = %q, want %q", i, e.Message, want)
		}
	}
}

func TestHub_SnapshotLimit(t *testing.T) {
	h := NewHub()
	for i := 0; i < 10; i++ {
		h.Append(entry(fmt.Sprintf("msg-%d", i)))
	}

	got := h.Snapshot(3)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// The newest entries survive the limit.
	if got[0].Message != "msg-7" || got[2].Message != "msg-9" {
		t.Errorf("limit kept the wrong window: %q .. %q", got[0].Message, got[2].Message)
	}
}

func TestHub_RingWrap(t *testing.T) {
	h := NewHub()
	total := RingSize + 50
	for i := 0; i < total; i++ {
		h.Append(entry(fmt.Sprintf("msg-%d", i)))
	}

	got := h.Snapshot(0)
	if len(got) != RingSize {
		t.Fatalf("got %d entries, want %d", len(got), RingSize)
	}
	if got[0].Message != fmt.Sprintf("msg-%d", total-RingSize) {
		t.Errorf("oldest retained = %q, want msg-%d", got[0].Message, total-RingSize)
	}
	if got[len(got)-1].Message != fmt.Sprintf("msg-%d", total-1) {
		t.Errorf("newest retained = %q, want msg-%d", got[len(got)-1].Message, total-1)
	}
}

func TestHub_Subscribe(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Append(entry("broadcast"))

	select {
	case e := <-ch:
		if e.Message != "broadcast" {
			t.Errorf("received %q, want broadcast", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the entry")
	}
}

func TestHub_SlowSubscriberDropsEntries(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// Never read: the channel buffer fills and further appends must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Append(entry(fmt.Sprintf("flood-%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a slow subscriber")
	}

	if buffered := len(ch); buffered > 64 {
		t.Errorf("subscriber buffered %d entries, expected at most the channel capacity", buffered)
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Appending after cancel must not panic or deliver.
	h.Append(entry("after-cancel"))
}
