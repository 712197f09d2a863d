package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/stencil/internal/binding"
	"github.com/rendis/stencil/internal/registry"
	"github.com/rendis/stencil/internal/value"
	"github.com/rendis/stencil/pkg/schema"
)

func printVar(name string) schema.SegmentDoc {
	return schema.SegmentDoc{Print: &schema.NodeDoc{Var: name}}
}

func printFilter(filter, name string) schema.SegmentDoc {
	return schema.SegmentDoc{Print: &schema.NodeDoc{Filter: &schema.FilterDoc{Name: filter, Target: &schema.NodeDoc{Var: name}}}}
}

func TestRenderBatch_OrderedResults(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	jobs := make([]BatchJob, 20)
	for i := range jobs {
		jobs[i] = BatchJob{Document: &schema.RenderDocument{
			Template: []schema.SegmentDoc{textSeg("#"), printVar("n")},
			Data:     map[string]any{"n": i},
		}}
	}

	results, metrics := e.RenderBatch(context.Background(), jobs, 4)
	require.Len(t, results, len(jobs))
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("#%d", i), res.Output)
	}
	assert.Equal(t, BatchMetrics{Completed: 20}, metrics)
}

func TestRenderBatch_FailuresAreIsolated(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ok := &schema.RenderDocument{Template: []schema.SegmentDoc{printFilter("upper", "x")}, Data: map[string]any{"x": "a"}}
	bad := &schema.RenderDocument{Template: []schema.SegmentDoc{printFilter("boom", "x")}}

	results, metrics := e.RenderBatch(context.Background(), []BatchJob{
		{Document: ok}, {Document: bad}, {Document: nil}, {Document: ok},
	}, 2)

	assert.Equal(t, "A", results[0].Output)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(results[1].Err))
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(results[2].Err))
	assert.NoError(t, results[3].Err)
	assert.Equal(t, BatchMetrics{Completed: 2, Failed: 2}, metrics)
}

func TestRenderBatch_JobOptions(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	doc := &schema.RenderDocument{Template: []schema.SegmentDoc{printVar("missing")}}

	results, _ := e.RenderBatch(context.Background(), []BatchJob{
		{Document: doc},
		{Document: doc, Options: []RenderOption{WithStrictVariables(true)}},
	}, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, schema.ErrCodeUnresolved, schema.CodeOf(results[1].Err))
}

func TestRenderBatch_ConcurrencyLimit(t *testing.T) {
	var current, peak int64
	var mu sync.Mutex
	b := registry.NewBuilder()
	require.NoError(t, b.RegisterFilter("slow", nil,
		func(_ registry.Env, target value.Value, _ binding.Args) (value.Value, error) {
			c := atomic.AddInt64(&current, 1)
			mu.Lock()
			if c > peak {
				peak = c
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return target, nil
		}))
	e := New(b.Build(), DefaultConfig())

	doc := &schema.RenderDocument{Template: []schema.SegmentDoc{printFilter("slow", "x")}}
	jobs := make([]BatchJob, 10)
	for i := range jobs {
		jobs[i] = BatchJob{Document: doc}
	}

	_, metrics := e.RenderBatch(context.Background(), jobs, 3)
	assert.Equal(t, int64(10), metrics.Completed)
	assert.LessOrEqual(t, peak, int64(3))
	assert.Positive(t, peak)
}

func TestRenderBatch_PanicRecovery(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.RegisterFilter("explode", nil,
		func(registry.Env, value.Value, binding.Args) (value.Value, error) {
			panic("test panic")
		}))
	e := New(b.Build(), DefaultConfig())

	results, metrics := e.RenderBatch(context.Background(), []BatchJob{
		{Document: &schema.RenderDocument{Template: []schema.SegmentDoc{printFilter("explode", "x")}}},
		{Document: &schema.RenderDocument{Template: []schema.SegmentDoc{textSeg("fine")}}},
	}, 1)

	require.Error(t, results[0].Err)
	assert.Equal(t, schema.ErrCodeExecution, schema.CodeOf(results[0].Err))
	assert.Contains(t, results[0].Err.Error(), "test panic")
	assert.Equal(t, "fine", results[1].Output)
	assert.Equal(t, BatchMetrics{Completed: 1, Failed: 1, Panics: 1}, metrics)
}

func TestRenderBatch_ContextCanceled(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &schema.RenderDocument{Template: []schema.SegmentDoc{textSeg("x")}}
	results, metrics := e.RenderBatch(ctx, []BatchJob{{Document: doc}, {Document: doc}}, 1)

	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, BatchMetrics{Failed: 2}, metrics)
}

func TestRenderBatch_Empty(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	results, metrics := e.RenderBatch(context.Background(), nil, 0)
	assert.Empty(t, results)
	assert.Equal(t, BatchMetrics{}, metrics)
}
