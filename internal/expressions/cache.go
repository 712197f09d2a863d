package expressions

import (
	"sync"

	"github.com/rendis/stencil/pkg/schema"
)

// programCache memoizes compiled programs by source text. Compiled programs
// are immutable, so one entry serves every goroutine.
type programCache[P any] struct {
	mu    sync.RWMutex
	progs map[string]P
}

func newProgramCache[P any]() *programCache[P] {
	return &programCache[P]{progs: make(map[string]P)}
}

// get returns the program for src, compiling it at most once.
func (c *programCache[P]) get(src string, compile func(string) (P, error)) (P, error) {
	c.mu.RLock()
	prog, ok := c.progs[src]
	c.mu.RUnlock()
	if ok {
		return prog, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prog, ok := c.progs[src]; ok {
		return prog, nil
	}
	prog, err := compile(src)
	if err != nil {
		return prog, err
	}
	c.progs[src] = prog
	return prog, nil
}

func (c *programCache[P]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.progs)
}

// compileError reports a query that does not parse or type-check.
func compileError(lang, expression string, err error) *schema.EngineError {
	return schema.NewErrorf(schema.ErrCodeValidation, "%s compile error in %q: %s", lang, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "language": lang})
}

// runtimeError reports a query that failed while evaluating.
func runtimeError(lang, expression string, err error) *schema.EngineError {
	return schema.NewErrorf(schema.ErrCodeExecution, "%s evaluation failed for %q: %s", lang, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression, "language": lang})
}
