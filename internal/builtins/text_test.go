package builtins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/engine"
	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/pkg/schema"
)

func TestTextFilters(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		name   string
		target any
		filter string
		args   []tree.Arg
		want   string
	}{
		{"upper", "hello", "upper", nil, "HELLO"},
		{"lower", "HeLLo", "lower", nil, "hello"},
		{"upper number", 12, "upper", nil, "12"},
		{"capitalize", " \nthis should be capitalized", "capitalize", nil, " \nThis should be capitalized"},
		{"capitalize blank", "   ", "capitalize", nil, "   "},
		{"title", " test test test TEST TEST", "title", nil, " Test Test Test TEST TEST"},
		{"title keeps rest", "mIxed wOrds", "title", nil, "MIxed WOrds"},
		{"trim", "  \t padded \n", "trim", nil, "padded"},
		{"urlencode", "The string ü@foo-bar", "urlencode", nil, "The+string+%C3%BC%40foo-bar"},
		{"abbreviate", "This is a test of the abbreviate filter", "abbreviate", []tree.Arg{arg(16)}, "This is a tes..."},
		{"abbreviate short length", "1234", "abbreviate", []tree.Arg{arg(2)}, "12"},
		{"abbreviate fits", "short", "abbreviate", []tree.Arg{arg(10)}, "short"},
		{"abbreviate exact", "exact", "abbreviate", []tree.Arg{arg(5)}, "exact"},
		{"abbreviate runes", "ñandú y más", "abbreviate", []tree.Arg{arg(8)}, "ñandú..."},
		{"replace", "I like %this% and %that%.", "replace",
			[]tree.Arg{tree.Positional(tree.Lit(mapping("%this%", "foo", "%that%", "bar")))}, "I like foo and bar."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := render(t, e, tt.target, tt.filter, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTextFilters_Errors(t *testing.T) {
	e := newTestEngine(t)

	_, err := render(t, e, "abc", "abbreviate", arg(-1))
	assert.Equal(t, schema.ErrCodeRange, schema.CodeOf(err))

	_, err = render(t, e, "abc", "abbreviate", arg("many"))
	assert.Equal(t, schema.ErrCodeType, schema.CodeOf(err))

	_, err = render(t, e, "abc", "replace", arg("a"))
	assert.Equal(t, schema.ErrCodeType, schema.CodeOf(err))

	_, err = render(t, e, "abc", "abbreviate")
	assert.Equal(t, schema.ErrCodeType, schema.CodeOf(err), "a missing length binds to null")

	_, err = render(t, e, "abc", "abbreviate", arg(1), arg(2))
	assert.Equal(t, schema.ErrCodeBinding, schema.CodeOf(err))

	_, err = render(t, e, "abc", "abbreviate", named("size", 2))
	assert.Equal(t, schema.ErrCodeBinding, schema.CodeOf(err))
}

func TestTextFilters_Locale(t *testing.T) {
	e := newTestEngine(t)
	tmpl := tree.Print(tree.Apply(tree.Lit("istanbul"), "upper"))

	out, err := e.RenderString(context.Background(), tmpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "ISTANBUL", out)

	out, err = e.RenderString(context.Background(), tmpl, nil, engine.WithLocale(language.Turkish))
	require.NoError(t, err)
	assert.Equal(t, "İSTANBUL", out)
}
