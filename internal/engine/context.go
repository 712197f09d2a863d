package engine

import (
	"context"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/tree"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

// scope is the variable stack of one render. Frames are pushed and popped
// strictly nested; lookups run innermost first.
type scope struct {
	frames []map[string]value.Value
}

func newScope(data map[string]any) *scope {
	root := make(map[string]value.Value, len(data))
	for k, v := range data {
		root[k] = value.Adapt(v)
	}
	return &scope{frames: []map[string]value.Value{root}}
}

func (s *scope) push() map[string]value.Value {
	frame := make(map[string]value.Value)
	s.frames = append(s.frames, frame)
	return frame
}

func (s *scope) pop() {
	// The root frame is never popped.
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *scope) depth() int { return len(s.frames) }

func (s *scope) lookup(name string) (value.Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}
	return value.Null(), false
}

// flatten merges the frames into native Go data, innermost wins.
func (s *scope) flatten() map[string]any {
	out := make(map[string]any)
	for _, frame := range s.frames {
		for k, v := range frame {
			out[k] = value.ToNative(v)
		}
	}
	return out
}

// renderContext is the per-render evaluation state. It is owned by exactly
// one goroutine for the duration of a render.
type renderContext struct {
	ctx    context.Context
	reg    *registry.Registry
	cfg    Config
	scope  *scope
	life   *lifecycle
	logger *slog.Logger
}

// resolve looks a variable path up. A miss is an UnresolvedReference in
// strict mode and a soft Null otherwise; the second result reports the miss.
func (rc *renderContext) resolve(v *tree.Variable) (value.Value, bool, error) {
	cur, ok := rc.scope.lookup(v.Path[0])
	for i := 1; ok && i < len(v.Path); i++ {
		cur, ok = member(cur, v.Path[i])
	}
	if ok {
		return cur, false, nil
	}
	if rc.cfg.StrictVariables {
		pos := v.Position()
		return value.Null(), true, schema.NewErrorf(schema.ErrCodeUnresolved,
			"variable %q is not defined", v.Name()).
			WithPosition(pos.Line, pos.Col).
			WithDetails(map[string]any{"variable": v.Name()})
	}
	rc.logger.DebugContext(rc.ctx, "variable not defined, using null", slog.String("variable", v.Name()))
	return value.Null(), true, nil
}

// member steps one path segment into a mapping, a sequence (numeric
// segment), or an opaque host struct or map.
func member(v value.Value, seg string) (value.Value, bool) {
	switch v.Kind() {
	case value.KindMapping:
		m, _ := v.AsMapping()
		return m.Get(seg)
	case value.KindSequence:
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return value.Null(), false
		}
		seq, _ := v.AsSequence()
		return seq.Get(idx)
	case value.KindOpaque:
		host, _ := v.Host()
		return hostMember(reflect.ValueOf(host), seg)
	default:
		return value.Null(), false
	}
}

func hostMember(rv reflect.Value, seg string) (value.Value, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return value.Null(), false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		field, ok := rv.Type().FieldByName(seg)
		if !ok || !field.IsExported() {
			return value.Null(), false
		}
		return value.Adapt(rv.FieldByIndex(field.Index).Interface()), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value.Null(), false
		}
		item := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !item.IsValid() {
			return value.Null(), false
		}
		return value.Adapt(item.Interface()), true
	default:
		return value.Null(), false
	}
}

// env returns the registry.Env handed to one extension call.
func (rc *renderContext) env(undefined bool) registry.Env {
	return &callEnv{rc: rc, undefined: undefined}
}

type callEnv struct {
	rc        *renderContext
	undefined bool
}

func (e *callEnv) Context() context.Context  { return e.rc.ctx }
func (e *callEnv) Locale() language.Tag      { return e.rc.cfg.Locale }
func (e *callEnv) Location() *time.Location  { return e.rc.cfg.Location }
func (e *callEnv) Strict() bool              { return e.rc.cfg.StrictVariables }
func (e *callEnv) Undefined() bool           { return e.undefined }
func (e *callEnv) Variables() map[string]any { return e.rc.scope.flatten() }

func (e *callEnv) Lookup(name string) (value.Value, bool) {
	return e.rc.scope.lookup(name)
}
