// Package taskqueue is the in-process stand-in for the original's Pyro4
// distributed dispatch (spec §5): a bounded worker pool that runs window
// jobs with per-task timeouts and cooperative cancellation.
package taskqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// defaultTimeout mirrors the spec's "default 86,400 s" per-window
// timeout.
const defaultTimeout = 86400 * time.Second

// Task is one unit of dispatched work: a window run against a given
// date range.
type Task struct {
	ID        string
	StartDate string
	EndDate   string
	Admdvs    string
}

// Result carries a task's outcome back to whoever submitted it.
type Result struct {
	TaskID string
	Err    error
}

// JobFunc executes one task and returns its error, if any.
type JobFunc func(ctx context.Context, task Task) error

// Queue is a bounded-concurrency, channel-fed task dispatcher.
type Queue struct {
	workers int
	timeout time.Duration
	tasks   chan Task
	results chan Result
	run     JobFunc
	done    chan struct{}
}

// New builds a queue with the given worker count and per-task timeout
// (0 selects the default 86,400s). run is invoked once per dequeued
// task.
func New(workers int, timeout time.Duration, run JobFunc) *Queue {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Queue{
		workers: workers,
		timeout: timeout,
		tasks:   make(chan Task, workers*4),
		results: make(chan Result, workers*4),
		run:     run,
		done:    make(chan struct{}),
	}
}

// NewTask builds a task with a fresh uuid identifier.
func NewTask(startDate, endDate, admdvs string) Task {
	return Task{ID: uuid.NewString(), StartDate: startDate, EndDate: endDate, Admdvs: admdvs}
}

// Start launches the worker pool; call Stop to shut it down.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx)
	}
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			taskCtx, cancel := context.WithTimeout(ctx, q.timeout)
			err := q.run(taskCtx, task)
			cancel()
			q.results <- Result{TaskID: task.ID, Err: err}
		}
	}
}

// Submit enqueues a task; blocks if the internal buffer is full.
func (q *Queue) Submit(task Task) {
	q.tasks <- task
}

// Results exposes the result channel for callers to drain.
func (q *Queue) Results() <-chan Result {
	return q.results
}

// Stop signals every worker to exit after its current task.
func (q *Queue) Stop() {
	close(q.done)
}
