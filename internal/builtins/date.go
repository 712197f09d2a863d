package builtins

import (
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve without a system zoneinfo database

	"github.com/itchyny/timefmt-go"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

const (
	defaultParsePattern  = "yyyy-MM-dd'T'HH:mm:ssXXX"
	zonedOutputPattern   = "yyyy-MM-dd'T'HH:mm:ssZ"
	localDateTimePattern = "yyyy-MM-dd'T'HH:mm:ss"
	localDatePattern     = "yyyy-MM-dd"
	localTimePattern     = "HH:mm:ss"
)

var dateSignature = binding.Params("format", "existingFormat", "timeZone")

func registerDates(b *registry.Builder) error {
	return installFilters(b,
		filterDef{"date", dateSignature, dateFilter,
			"formats epoch milliseconds, date text or date values; timeZone wins over the value's own zone"},
	)
}

func dateFilter(env registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}

	explicit, err := loadZone(args.Get("timeZone"))
	if err != nil {
		return value.Null(), err
	}
	t, defaultPattern, err := resolveDate(env, target, args.Get("existingFormat"), explicit)
	if err != nil {
		return value.Null(), err
	}

	pattern := defaultPattern
	if f := args.Get("format"); !f.IsNull() {
		pattern = f.String()
	}
	out, err := renderDate(t, pattern)
	if err != nil {
		return value.Null(), err
	}
	return value.Text(out), nil
}

// loadZone resolves an IANA zone name. Null means no explicit zone.
func loadZone(name value.Value) (*time.Location, error) {
	if name.IsNull() {
		return nil, nil
	}
	loc, err := time.LoadLocation(name.String())
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeFormat, "unknown time zone %q", name.String()).
			WithCause(err)
	}
	return loc, nil
}

// resolveDate turns a date input into a time in its display zone and returns
// the default output pattern for the input's kind. An explicit zone always
// wins; otherwise a value carrying its own zone keeps it and everything else
// uses the render's default zone.
func resolveDate(env registry.Env, target, existingFormat value.Value, explicit *time.Location) (time.Time, string, error) {
	loc := env.Location()
	if explicit != nil {
		loc = explicit
	}

	switch target.Kind() {
	case value.KindInt:
		ms, _ := target.AsInt()
		return time.UnixMilli(ms).In(loc), zonedOutputPattern, nil
	case value.KindText:
		s, _ := target.AsText()
		t, err := parseDate(s, existingFormat, loc)
		if err != nil {
			return time.Time{}, "", err
		}
		if explicit != nil {
			t = t.In(explicit)
		}
		return t, zonedOutputPattern, nil
	case value.KindOpaque:
		host, _ := target.Host()
		switch h := host.(type) {
		case time.Time:
			if explicit != nil {
				return h.In(explicit), zonedOutputPattern, nil
			}
			return h, zonedOutputPattern, nil
		case *time.Time:
			if h == nil {
				break
			}
			if explicit != nil {
				return h.In(explicit), zonedOutputPattern, nil
			}
			return *h, zonedOutputPattern, nil
		case value.LocalDateTime:
			return h.In(loc), localDateTimePattern, nil
		case value.LocalDate:
			return h.In(loc), localDatePattern, nil
		case value.LocalTime:
			return h.In(loc), localTimePattern, nil
		}
	}
	return time.Time{}, "", schema.NewErrorf(schema.ErrCodeType,
		"date cannot be applied to %s", target.Kind()).
		WithDetails(map[string]any{"target": target.String()})
}

// parseDate parses text with existingFormat, or RFC 3339 when it is Null.
// Text without zone information is read in loc.
func parseDate(s string, existingFormat value.Value, loc *time.Location) (time.Time, error) {
	pattern := defaultParsePattern
	if !existingFormat.IsNull() {
		pattern = existingFormat.String()
	}

	if strings.ContainsRune(pattern, '%') {
		t, err := timefmt.ParseInLocation(s, pattern, loc)
		if err != nil {
			return time.Time{}, unparsable(s, pattern, err)
		}
		return t, nil
	}

	tokens, err := tokenizeDatePattern(pattern)
	if err != nil {
		return time.Time{}, err
	}
	layout, err := parseLayout(pattern, tokens)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}, unparsable(s, pattern, err)
	}
	return t, nil
}

func renderDate(t time.Time, pattern string) (string, error) {
	if strings.ContainsRune(pattern, '%') {
		return timefmt.Format(t, pattern), nil
	}
	tokens, err := tokenizeDatePattern(pattern)
	if err != nil {
		return "", err
	}
	return formatDate(t, tokens), nil
}

func unparsable(s, pattern string, err error) error {
	return schema.NewErrorf(schema.ErrCodeFormat, "cannot parse %q with pattern %q", s, pattern).
		WithCause(err).
		WithDetails(map[string]any{"input": s, "pattern": pattern})
}
