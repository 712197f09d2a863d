package builtins

import (
	"github.com/google/uuid"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func registerFunctions(b *registry.Builder) error {
	if err := b.RegisterFunction("range",
		binding.Params("start", "end", "step").With("step", value.Int(1)), rangeFunction,
		registry.WithDescription("inclusive list from start to end; single characters give a character range")); err != nil {
		return err
	}
	return b.RegisterFunction("uuid", nil, uuidFunction,
		registry.WithDescription("a random version 4 UUID"))
}

func rangeFunction(_ registry.Env, args binding.Args) (value.Value, error) {
	step, err := args.Int("step")
	if err != nil {
		return value.Null(), err
	}
	if step == 0 {
		return value.Null(), schema.NewError(schema.ErrCodeRange, "range step must not be zero")
	}

	if start, end, ok := charBounds(args.Get("start"), args.Get("end")); ok {
		var items []value.Value
		for r := start; (step > 0 && r <= end) || (step < 0 && r >= end); r += rune(step) {
			items = append(items, value.Text(string(r)))
		}
		return value.List(items...), nil
	}

	start, err := args.Int("start")
	if err != nil {
		return value.Null(), err
	}
	end, err := args.Int("end")
	if err != nil {
		return value.Null(), err
	}
	var items []value.Value
	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		items = append(items, value.Int(int64(i)))
	}
	return value.List(items...), nil
}

// charBounds reports whether both bounds are single-character text.
func charBounds(start, end value.Value) (rune, rune, bool) {
	s, ok1 := start.AsText()
	e, ok2 := end.AsText()
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	sr, er := []rune(s), []rune(e)
	if len(sr) != 1 || len(er) != 1 {
		return 0, 0, false
	}
	return sr[0], er[0], true
}

func uuidFunction(_ registry.Env, _ binding.Args) (value.Value, error) {
	return value.Text(uuid.NewString()), nil
}
