// package queue serializes provider downloads.
//
// Upstream backends tolerate exactly one in-flight request at a time, so all
// downloads funnel through a single worker in submission order. A courtesy
// pause follows every completed task, success or failure, so bursts of cache
// misses do not hammer the backends.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Task is a unit of work executed by the queue worker.
type Task func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type job struct {
	ctx  context.Context
	fn   Task
	done chan result
}

// Queue runs submitted tasks one at a time in FIFO order.
type Queue struct {
	jobs   chan *job
	delay  time.Duration
	logger *log.Logger

	closeOnce sync.Once
	closed    chan struct{}
	drained   chan struct{}
}

// New creates a queue and starts its worker. taskDelay is the pause the
// worker takes after each task finishes, before the next one may start;
// zero disables the throttle.
func New(taskDelay time.Duration, logger *log.Logger) *Queue {
	q := &Queue{
		jobs:    make(chan *job, 64),
		delay:   taskDelay,
		logger:  logger,
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}

	go q.run()
	return q
}

// Submit enqueues fn and blocks until it has run (or been skipped).
// A context cancelled while the task is still queued skips execution
// entirely and returns the context error.
func (q *Queue) Submit(ctx context.Context, fn Task) (any, error) {
	j := &job{
		ctx:  ctx,
		fn:   fn,
		done: make(chan result, 1),
	}

	select {
	case q.jobs <- j:
	case <-q.closed:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-j.done:
		return res.value, res.err
	case <-ctx.Done():
		// The worker still owns the job; it will observe the cancelled
		// context and skip or abort it.
		return nil, ctx.Err()
	}
}

// Len reports the number of tasks waiting behind the one in flight.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting work and waits for queued tasks to finish.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	<-q.drained
}

func (q *Queue) run() {
	defer close(q.drained)

	for {
		select {
		case j := <-q.jobs:
			q.execute(j)
		case <-q.closed:
			// Drain whatever was already queued.
			for {
				select {
				case j := <-q.jobs:
					q.execute(j)
				default:
					return
				}
			}
		}
	}
}

// execute runs one job and then idles for the courtesy delay. The pause
// follows completion, not the start, so a long download still leaves a full
// gap before the next request hits the backend. Jobs whose context died
// while waiting in line are skipped without touching the backend and
// without spending the delay.
func (q *Queue) execute(j *job) {
	if err := j.ctx.Err(); err != nil {
		q.logger.Debug("skipping cancelled task")
		j.done <- result{err: err}
		return
	}

	value, err := j.fn(j.ctx)
	j.done <- result{value: value, err: err}

	if q.delay > 0 {
		time.Sleep(q.delay)
	}
}

// Submit runs fn on q and narrows the result to T. A skipped or failed task
// yields the zero value of T alongside the error.
func Submit[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) (T, error) {
	value, err := q.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
