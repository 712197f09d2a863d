package builtins

import (
	"github.com/robfig/cron/v3"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerSchedule(b *registry.Builder) error {
	return installFilters(b,
		filterDef{"cronnext", binding.Params("from", "timeZone"), cronnextFilter,
			"next activation of a five-field cron expression after from"},
	)
}

func cronnextFilter(env registry.Env, target value.Value, args binding.Args) (value.Value, error) {
	if target.IsNull() {
		return value.Text(""), nil
	}
	from := args.Get("from")
	if from.IsNull() {
		return value.Null(), schema.NewError(schema.ErrCodeType, "requires a from date")
	}

	sched, err := cron.ParseStandard(target.String())
	if err != nil {
		return value.Null(), schema.NewErrorf(schema.ErrCodeFormat, "invalid cron expression %q", target.String()).
			WithCause(err).
			WithDetails(map[string]any{"expression": target.String()})
	}

	explicit, err := loadZone(args.Get("timeZone"))
	if err != nil {
		return value.Null(), err
	}
	start, _, err := resolveDate(env, from, value.Null(), explicit)
	if err != nil {
		return value.Null(), err
	}

	next := sched.Next(start)
	if next.IsZero() {
		return value.Null(), nil
	}
	return value.Opaque(next), nil
}
