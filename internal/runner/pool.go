package runner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool runs tasks with bounded parallelism.
type Pool struct {
	group errgroup.Group
}

// NewPool returns a pool running at most limit tasks at once; limit <= 0
// means no bound.
func NewPool(limit int) *Pool {
	p := &Pool{}
	if limit > 0 {
		p.group.SetLimit(limit)
	}

	return p
}

// Future is the pending result of a submitted task.
type Future[R any] struct {
	done    chan struct{}
	value   R
	err     error
	elapsed time.Duration
}

// Get blocks until the task finishes and returns its result and run time.
func (f *Future[R]) Get() (R, time.Duration, error) {
	<-f.done

	return f.value, f.elapsed, f.err
}

// Submit schedules task on p. It blocks while the pool is full. A task error
// is reported through the future only and does not affect other tasks.
func Submit[R any](ctx context.Context, p *Pool, task func(ctx context.Context) (R, error)) *Future[R] {
	f := &Future[R]{done: make(chan struct{})}

	p.group.Go(func() error {
		defer close(f.done)

		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("task panicked: %v", r)
				f.elapsed = time.Since(start)
			}
		}()

		f.value, f.err = task(ctx)
		f.elapsed = time.Since(start)

		return nil
	})

	return f
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}
