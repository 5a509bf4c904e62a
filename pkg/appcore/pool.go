package appcore

import (
	"context"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/tracker"
)

// MinTimeout is the smallest per-task timeout accepted by the pools.
const MinTimeout = 100 * time.Millisecond

// Task is one unit of work for ThreadPool. Fn should return promptly once
// ctx is done.
type Task struct {
	Name   string
	Params map[string]any
	Fn     func(ctx context.Context, params map[string]any) (any, error)
}

// PoolOptions bounds a pool run. Zero values mean: CPU-based worker count,
// no per-task timeout.
type PoolOptions struct {
	Workers  int
	Override bool // allow Workers > number of tasks
	Timeout  time.Duration
}

func maxWorkers() int { return runtime.NumCPU() * 2 }

func validatePool(n int, opts PoolOptions) error {
	if n == 0 {
		return &ValidationError{Field: "tasks", Reason: "must be a non-empty list"}
	}
	if opts.Workers < 0 {
		return &ValidationError{Field: "workers", Reason: "must be a positive integer"}
	}
	if opts.Workers > n && !opts.Override {
		return &ValidationError{Field: "workers", Reason: errors.Errorf("%d exceeds number of tasks %d", opts.Workers, n).Error()}
	}
	if opts.Timeout != 0 && opts.Timeout <= MinTimeout {
		return &ValidationError{Field: "timeout", Reason: "must be greater than " + MinTimeout.String()}
	}
	return nil
}

func effectiveWorkers(requested int) int {
	limit := maxWorkers()
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// runBounded runs job(i) for every index with at most workers in flight.
// Results stay at their input position.
func runBounded(ctx context.Context, n, workers int, job func(ctx context.Context, i int) result.Result) []result.Result {
	results := make([]result.Result, n)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i] = job(gCtx, i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// withTimeout runs fn under an optional deadline. When the deadline passes
// first, the result is a DeadlineExceeded failure and fn's late result is
// discarded.
func (a *AppCore) withTimeout(ctx context.Context, timeout time.Duration, params map[string]any, fn func(ctx context.Context) result.Result) result.Result {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result.Result, 1)
	go func() { done <- fn(tctx) }()
	select {
	case r := <-done:
		return r
	case <-tctx.Done():
		return a.tracker.Return(errors.WithStack(tctx.Err()), tracker.WithParams(params))
	}
}

// ThreadPool runs tasks concurrently. Data is []result.Result in input order;
// a task error or panic becomes that task's failure Result carrying its params.
func (a *AppCore) ThreadPool(ctx context.Context, tasks []Task, opts PoolOptions) (r result.Result) {
	defer tracker.Catch(a.tracker, &r)
	params := map[string]any{"tasks": len(tasks), "workers": opts.Workers, "override": opts.Override, "timeout": opts.Timeout.String()}

	if err := validatePool(len(tasks), opts); err != nil {
		return a.fail(errors.WithStack(err), params)
	}
	for i, t := range tasks {
		if t.Fn == nil {
			return a.fail(errors.WithStack(&ValidationError{
				Field:  "tasks",
				Reason: errors.Errorf("item %d has no function", i).Error(),
			}), params)
		}
	}

	workers := effectiveWorkers(opts.Workers)
	start := time.Now()
	results := runBounded(ctx, len(tasks), workers, func(ctx context.Context, i int) result.Result {
		t := tasks[i]
		return a.withTimeout(ctx, opts.Timeout, t.Params, func(ctx context.Context) result.Result {
			return tracker.Guard(a.tracker, func() (any, error) {
				v, err := t.Fn(ctx, t.Params)
				return v, errors.WithStack(err)
			}, tracker.WithParams(t.Params))
		})
	})
	a.log.Message("debug", "thread pool finished",
		zap.Int("tasks", len(tasks)), zap.Int("workers", workers), zap.Duration("elapsed", time.Since(start)))
	return result.OK(results)
}
