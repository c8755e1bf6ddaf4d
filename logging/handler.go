package logging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timeLayout renders ISO-8601 with millisecond precision; UTC times end in Z.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Handler implements slog.Handler. Every record becomes one line
// `[<iso8601>] [<level>] <msg key=val …>` written to the file sink and the
// console, and one Entry appended to the hub.
type Handler struct {
	level   slog.Leveler
	hub     *Hub
	file    io.Writer
	console io.Writer
	mu      *sync.Mutex

	attrs  []slog.Attr
	groups []string
}

// NewHandler creates a Handler. file or console may be nil to skip that sink.
func NewHandler(level slog.Leveler, hub *Hub, file, console io.Writer) *Handler {
	return &Handler{
		level:   level,
		hub:     hub,
		file:    file,
		console: console,
		mu:      &sync.Mutex{},
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder
	sb.WriteString(r.Message)
	for _, a := range h.attrs {
		appendAttr(&sb, h.groups, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, h.groups, a)
		return true
	})
	msg := sb.String()
	level := r.Level.String()

	line := "[" + ts.UTC().Format(timeLayout) + "] [" + level + "] " + msg + "\n"

	h.mu.Lock()
	if h.file != nil {
		h.file.Write([]byte(line))
	}
	if h.console != nil {
		h.console.Write([]byte(line))
	}
	h.mu.Unlock()

	if h.hub != nil {
		h.hub.Append(Entry{Time: ts, Level: level, Message: msg})
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	nh.attrs = append(nh.attrs, attrs...)
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.groups = make([]string, 0, len(h.groups)+1)
	nh.groups = append(nh.groups, h.groups...)
	nh.groups = append(nh.groups, name)
	return &nh
}

func appendAttr(sb *strings.Builder, groups []string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	val := a.Value.Resolve().String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}
	sb.WriteString(" ")
	sb.WriteString(key)
	sb.WriteString("=")
	sb.WriteString(val)
}
