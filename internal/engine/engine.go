// Package engine evaluates expression trees against data and writes the
// rendered text to an output sink.
//
// An Engine pairs a sealed extension registry with resolved defaults. It is
// safe for concurrent use: every render owns its own evaluation context and
// scope stack, and the registry is read-only.
package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/logging"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Config holds the defaults every render starts from. It is resolved once,
// before any render begins.
type Config struct {
	Locale          language.Tag
	Location        *time.Location
	StrictVariables bool
	Logger          *slog.Logger
	OnTransition    TransitionHook // optional, observes render lifecycle changes
}

// DefaultConfig returns the engine defaults: English, UTC, non-strict.
func DefaultConfig() Config {
	return Config{Locale: language.English, Location: time.UTC}
}

// RenderOption overrides a default for a single render.
type RenderOption func(*Config)

// WithLocale overrides the locale.
func WithLocale(tag language.Tag) RenderOption {
	return func(c *Config) { c.Locale = tag }
}

// WithLocation overrides the default time zone.
func WithLocation(loc *time.Location) RenderOption {
	return func(c *Config) {
		if loc != nil {
			c.Location = loc
		}
	}
}

// WithStrictVariables overrides the strict-variables flag.
func WithStrictVariables(strict bool) RenderOption {
	return func(c *Config) { c.StrictVariables = strict }
}

// Engine renders templates.
type Engine struct {
	reg    *registry.Registry
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine over a sealed registry. Zero config fields fall back
// to DefaultConfig.
func New(reg *registry.Registry, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Locale == language.Und {
		cfg.Locale = def.Locale
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		reg:    reg,
		cfg:    cfg,
		logger: slog.New(logging.NewCorrelationHandler(logger.Handler())),
	}
}

// Registry returns the engine's extension registry.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Config returns the engine defaults.
func (e *Engine) Config() Config { return e.cfg }

// Render evaluates every segment of tmpl in order and writes the output to w.
// Output already written stays written when a later segment fails.
func (e *Engine) Render(ctx context.Context, tmpl *tree.Template, data map[string]any, w io.Writer, opts ...RenderOption) error {
	if tmpl == nil {
		return schema.NewError(schema.ErrCodeValidation, "template is nil")
	}
	rc := e.begin(ctx, tmpl.Name, data, opts)

	for _, seg := range tmpl.Segments {
		text := seg.Text
		if seg.Print != nil {
			v, err := rc.eval(seg.Print)
			if err != nil {
				return e.fail(rc, err)
			}
			text = v.String()
		}
		if text == "" {
			continue
		}
		if _, err := io.WriteString(w, text); err != nil {
			return e.fail(rc, schema.NewError(schema.ErrCodeSinkWrite, "write to output failed").WithCause(err))
		}
	}
	return e.complete(rc)
}

// RenderString renders tmpl into a string.
func (e *Engine) RenderString(ctx context.Context, tmpl *tree.Template, data map[string]any, opts ...RenderOption) (string, error) {
	var b strings.Builder
	if err := e.Render(ctx, tmpl, data, &b, opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Evaluate evaluates a single node to a value.
func (e *Engine) Evaluate(ctx context.Context, n tree.Node, data map[string]any, opts ...RenderOption) (value.Value, error) {
	if n == nil {
		return value.Null(), schema.NewError(schema.ErrCodeValidation, "node is nil")
	}
	rc := e.begin(ctx, "", data, opts)
	v, err := rc.eval(n)
	if err != nil {
		return value.Null(), e.fail(rc, err)
	}
	return v, e.complete(rc)
}

func (e *Engine) begin(ctx context.Context, name string, data map[string]any, opts []RenderOption) *renderContext {
	cfg := e.cfg
	for _, opt := range opts {
		opt(&cfg)
	}

	renderID := uuid.NewString()
	ctx = logging.WithIDs(ctx, renderID, name)
	rc := &renderContext{
		ctx:    ctx,
		reg:    e.reg,
		cfg:    cfg,
		scope:  newScope(data),
		life:   newLifecycle(renderID, cfg.OnTransition),
		logger: e.logger,
	}
	e.logger.DebugContext(ctx, "render started",
		slog.String("locale", cfg.Locale.String()),
		slog.String("timezone", cfg.Location.String()),
		slog.Bool("strict", cfg.StrictVariables))
	return rc
}

func (e *Engine) complete(rc *renderContext) error {
	if err := rc.life.Transition(rc.ctx, RenderCompleted); err != nil {
		return err
	}
	e.logger.DebugContext(rc.ctx, "render completed")
	return nil
}

// fail moves the render to Failed and returns the original error.
func (e *Engine) fail(rc *renderContext, err error) error {
	if terr := rc.life.Transition(rc.ctx, RenderFailed); terr != nil {
		e.logger.ErrorContext(rc.ctx, "render lifecycle", slog.String("error", terr.Error()))
	}
	e.logger.WarnContext(rc.ctx, "render failed",
		slog.String("error_code", schema.CodeOf(err)),
		slog.String("error", err.Error()))
	return err
}
