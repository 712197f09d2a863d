package expressions

import (
	"strconv"
	"strings"

	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// Interpolate resolves ${{ path }} references in input against the variables
// visible in env. Paths are dot-delimited and may index into mappings and
// sequences. An unresolved path is an error in strict mode and empty text
// otherwise.
func Interpolate(env registry.Env, input string) (string, error) {
	var result strings.Builder
	result.Grow(len(input))

	i := 0
	for i < len(input) {
		// Look for ${{ marker.
		idx := strings.Index(input[i:], "${{")
		if idx == -1 {
			result.WriteString(input[i:])
			break
		}

		// Write everything before the marker.
		result.WriteString(input[i : i+idx])
		start := i + idx + 3 // skip "${{".

		// Find the closing }}.
		end := strings.Index(input[start:], "}}")
		if end == -1 {
			return "", schema.NewError(schema.ErrCodeFormat, "unclosed ${{ reference")
		}
		end += start

		ref := strings.TrimSpace(input[start:end])

		// Reject recursive interpolation: no nested ${{ inside the reference.
		if strings.Contains(ref, "${{") {
			return "", schema.NewError(schema.ErrCodeFormat,
				"nested interpolation not allowed: ${{...}} cannot contain ${{")
		}
		if ref == "" {
			return "", schema.NewError(schema.ErrCodeFormat, "empty variable reference: ${{  }}")
		}

		val, err := resolveRef(env, ref)
		if err != nil {
			return "", err
		}
		result.WriteString(val.String())

		i = end + 2 // skip "}}".
	}

	return result.String(), nil
}

// resolveRef resolves a single reference like "order.items.0.sku".
func resolveRef(env registry.Env, ref string) (value.Value, error) {
	segments := strings.Split(ref, ".")
	for i, seg := range segments {
		if seg == "" {
			return value.Null(), schema.NewErrorf(schema.ErrCodeFormat,
				"empty segment in reference %q at position %d", ref, i).
				WithDetails(map[string]any{"reference": ref})
		}
	}

	current, ok := env.Lookup(segments[0])
	for _, seg := range segments[1:] {
		if !ok {
			break
		}
		current, ok = traverse(current, seg)
	}
	if ok {
		return current, nil
	}
	if env.Strict() {
		return value.Null(), schema.NewErrorf(schema.ErrCodeUnresolved,
			"reference %q is not defined", ref).
			WithDetails(map[string]any{"reference": ref})
	}
	return value.Null(), nil
}

// traverse navigates one segment into a mapping or sequence.
func traverse(v value.Value, seg string) (value.Value, bool) {
	if m, ok := v.AsMapping(); ok {
		return m.Get(seg)
	}
	if seq, ok := v.AsSequence(); ok {
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return value.Null(), false
		}
		return seq.Get(idx)
	}
	return value.Null(), false
}
