package builtins

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerText(b *registry.Builder) error {
	return installFilters(b,
		filterDef{"upper", nil, upperFilter, "converts text to upper case using the render locale"},
		filterDef{"lower", nil, lowerFilter, "converts text to lower case using the render locale"},
		filterDef{"capitalize", nil, capitalizeFilter, "upper-cases the first non-blank character"},
		filterDef{"title", nil, titleFilter, "upper-cases the first letter of every word"},
		filterDef{"trim", nil, trimFilter, "strips leading and trailing whitespace"},
		filterDef{"urlencode", nil, urlencodeFilter, "form-encodes text, spaces become +"},
		filterDef{"abbreviate", binding.Params("length"), abbreviateFilter, "truncates text to length characters ending in ..."},
		filterDef{"replace", binding.Params("replacements"), replaceFilter, "replaces every key of a mapping with its value"},
	)
}

func upperFilter(env registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	return value.Text(cases.Upper(env.Locale()).String(target.String())), nil
}

func lowerFilter(env registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	return value.Text(cases.Lower(env.Locale()).String(target.String())), nil
}

func capitalizeFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	runes := []rune(target.String())
	for i, r := range runes {
		if !unicode.IsSpace(r) {
			runes[i] = unicode.ToTitle(r)
			break
		}
	}
	return value.Text(string(runes)), nil
}

func titleFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	runes := []rune(target.String())
	wordStart := true
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			wordStart = true
		case wordStart:
			runes[i] = unicode.ToTitle(r)
			wordStart = false
		}
	}
	return value.Text(string(runes)), nil
}

func trimFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	return value.Text(strings.TrimSpace(target.String())), nil
}

func urlencodeFilter(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	return value.Text(url.QueryEscape(target.String())), nil
}

func abbreviateFilter(_ registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	length, err := args.Int("length")
	if err != nil {
		return value.Null(), err
	}
	if length < 0 {
		return value.Null(), schema.NewErrorf(schema.ErrCodeRange, "length %d must not be negative", length)
	}

	runes := []rune(target.String())
	switch {
	case len(runes) <= length:
		return value.Text(string(runes)), nil
	case length <= 3:
		return value.Text(string(runes[:length])), nil
	default:
		return value.Text(string(runes[:length-3]) + "..."), nil
	}
}

func replaceFilter(_ registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	replacements, ok := args.Get("replacements").AsMapping()
	if !ok {
		return value.Null(), schema.NewErrorf(schema.ErrCodeType,
			"replacements must be a mapping, got %s", args.Get("replacements").Kind())
	}
	out := target.String()
	replacements.Each(func(key string, v value.Value) bool {
		if key != "" {
			out = strings.ReplaceAll(out, key, v.String())
		}
		return true
	})
	return value.Text(out), nil
}
