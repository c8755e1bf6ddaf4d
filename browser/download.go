package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DownloadInContext fetches a binary resource through a new tab in the same
// browser context, so session cookies set by the main navigation are sent.
// The tab is closed on every exit path.
func DownloadInContext(ctx context.Context, conn *rod.Browser, url string, timeout time.Duration) (data []byte, mimeType string, err error) {
	page, err := conn.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, "", fmt.Errorf("open download tab: %w", err)
	}
	defer func() { _ = page.Close() }()

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := page.Context(navCtx)

	// The document response carries the bytes; the listener must be live
	// before Navigate to catch its request ID.
	rec := &downloadWatch{}
	wait := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		rec.set(e.RequestID, e.Response.MIMEType, e.Response.Status)
		return true
	})
	go wait()

	if err := p.Navigate(url); err != nil {
		return nil, "", fmt.Errorf("navigate to resource: %w", err)
	}
	if err := p.WaitLoad(); err != nil && navCtx.Err() != nil {
		return nil, "", navCtx.Err()
	}

	id, mime, status, ok := rec.get()
	if !ok {
		return nil, "", fmt.Errorf("no response observed for %s", url)
	}
	if status >= 400 {
		return nil, "", fmt.Errorf("resource returned status %d", status)
	}

	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p)
	if err != nil {
		return nil, "", fmt.Errorf("read resource body: %w", err)
	}
	raw := []byte(res.Body)
	if res.Base64Encoded {
		raw, err = base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			return nil, "", fmt.Errorf("decode resource body: %w", err)
		}
	}
	return raw, mime, nil
}

type downloadWatch struct {
	mu     sync.Mutex
	id     proto.NetworkRequestID
	mime   string
	status int
	seen   bool
}

func (w *downloadWatch) set(id proto.NetworkRequestID, mime string, status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen {
		return
	}
	w.id, w.mime, w.status, w.seen = id, mime, status, true
}

func (w *downloadWatch) get() (proto.NetworkRequestID, string, int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id, w.mime, w.status, w.seen
}
