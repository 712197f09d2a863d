package engine

import (
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/pkg/schema"
)

// DocumentOptions returns the per-render overrides a render document carries.
func DocumentOptions(doc *schema.RenderDocument) ([]RenderOption, error) {
	var opts []RenderOption
	if doc.Locale != "" {
		tag, err := language.Parse(doc.Locale)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid locale %q", doc.Locale).WithCause(err)
		}
		opts = append(opts, WithLocale(tag))
	}
	if doc.Timezone != "" {
		loc, err := time.LoadLocation(doc.Timezone)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown time zone %q", doc.Timezone).WithCause(err)
		}
		opts = append(opts, WithLocation(loc))
	}
	if doc.Strict != nil {
		opts = append(opts, WithStrictVariables(*doc.Strict))
	}
	return opts, nil
}

// RenderDocument decodes doc and renders it to w. The document's own
// overrides apply after opts.
func (e *Engine) RenderDocument(ctx context.Context, doc *schema.RenderDocument, w io.Writer, opts ...RenderOption) error {
	tmpl, err := tree.Decode(doc)
	if err != nil {
		return err
	}
	docOpts, err := DocumentOptions(doc)
	if err != nil {
		return err
	}
	return e.Render(ctx, tmpl, doc.Data, w, append(opts, docOpts...)...)
}

// RenderDocumentString renders doc into a string.
func (e *Engine) RenderDocumentString(ctx context.Context, doc *schema.RenderDocument, opts ...RenderOption) (string, error) {
	var b strings.Builder
	if err := e.RenderDocument(ctx, doc, &b, opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}
