package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	renderIDKey ctxKey = iota
	templateKey
)

// WithRenderID returns a context with the render ID set.
func WithRenderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, renderIDKey, id)
}

// WithTemplate returns a context with the template name set.
func WithTemplate(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, templateKey, name)
}

// RenderID extracts the render ID from the context, or "" if absent.
func RenderID(ctx context.Context) string {
	v, _ := ctx.Value(renderIDKey).(string)
	return v
}

// Template extracts the template name from the context, or "" if absent.
func Template(ctx context.Context) string {
	v, _ := ctx.Value(templateKey).(string)
	return v
}

// WithIDs sets both correlation values on the context at once.
func WithIDs(ctx context.Context, renderID, template string) context.Context {
	ctx = WithRenderID(ctx, renderID)
	ctx = WithTemplate(ctx, template)
	return ctx
}

// LogWith returns a logger enriched with correlation values from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RenderID(ctx); id != "" {
		logger = logger.With(slog.String("render_id", id))
	}
	if name := Template(ctx); name != "" {
		logger = logger.With(slog.String("template", name))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation values from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.DebugContext(ctx, ...) and the render ID appears automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := RenderID(ctx); v != "" {
		r.AddAttrs(slog.String("render_id", v))
	}
	if v := Template(ctx); v != "" {
		r.AddAttrs(slog.String("template", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}

// ParseLevel maps a config level name to an slog level. Unknown names fall
// back to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
