package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rendis/stencil/pkg/schema"
)

// BatchMetrics counts the outcome of a batch render.
type BatchMetrics struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// BatchJob is one document of a batch.
type BatchJob struct {
	Document *schema.RenderDocument
	Options  []RenderOption
}

// BatchResult holds the output of the job at the same index.
type BatchResult struct {
	Output string
	Err    error
}

// renderPool is a bounded goroutine pool. Submit blocks while the pool is at
// capacity and gives up when ctx is done.
type renderPool struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics BatchMetrics
}

func newRenderPool(size int) *renderPool {
	if size <= 0 {
		size = 1
	}
	return &renderPool{sem: make(chan struct{}, size)}
}

func (p *renderPool) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem // release slot
			p.wg.Done()
		}()
		if err := fn(ctx); err != nil {
			atomic.AddInt64(&p.metrics.Failed, 1)
			return
		}
		atomic.AddInt64(&p.metrics.Completed, 1)
	}()
	return nil
}

func (p *renderPool) wait() BatchMetrics {
	p.wg.Wait()
	return BatchMetrics{
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panics:    atomic.LoadInt64(&p.metrics.Panics),
	}
}

// RenderBatch renders every job with at most concurrency renders in flight.
// Results line up with jobs. A failed or panicking job does not stop the
// others; jobs not started before ctx is done fail with ctx's error.
func (e *Engine) RenderBatch(ctx context.Context, jobs []BatchJob, concurrency int) ([]BatchResult, BatchMetrics) {
	results := make([]BatchResult, len(jobs))
	pool := newRenderPool(concurrency)

	for i := range jobs {
		job := jobs[i]
		res := &results[i]
		err := pool.submit(ctx, func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddInt64(&pool.metrics.Panics, 1)
					err = schema.NewErrorf(schema.ErrCodeExecution, "render panicked: %v", r)
					res.Err = err
				}
			}()
			res.Output, res.Err = e.RenderDocumentString(ctx, job.Document, job.Options...)
			return res.Err
		})
		if err != nil {
			for j := i; j < len(jobs); j++ {
				results[j].Err = fmt.Errorf("batch render canceled: %w", err)
			}
			atomic.AddInt64(&pool.metrics.Failed, int64(len(jobs)-i))
			break
		}
	}

	return results, pool.wait()
}
