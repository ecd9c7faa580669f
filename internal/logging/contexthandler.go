package logging

import (
	"context"
	"log/slog"
)

// TourContext is the tour position stamped on log records.
type TourContext struct {
	Scene    string
	State    string
	Waypoint string
	Session  string
}

// attrs skips empty fields so records logged between tours stay short.
func (c TourContext) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 4)
	for _, kv := range [...]struct{ key, val string }{
		{"scene", c.Scene},
		{"tourState", c.State},
		{"waypoint", c.Waypoint},
		{"tourSession", c.Session},
	} {
		if kv.val != "" {
			out = append(out, slog.String(kv.key, kv.val))
		}
	}
	return out
}

// ContextProvider reports the current tour position. ok is false while no
// tour is running, and the record is left as is.
type ContextProvider func() (ctx TourContext, ok bool)

// ContextHandler stamps every record with the tour position.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if tc, ok := h.provider(); ok {
			r.AddAttrs(tc.attrs()...)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
