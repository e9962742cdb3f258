package jobs

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when enqueueing on a closed queue.
var ErrClosed = errors.New("job queue closed")

// ImmediateQueue runs jobs in-process on a single worker goroutine.
type ImmediateQueue struct {
	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewImmediateQueue constructs the queue with room for size pending jobs.
func NewImmediateQueue(size int) *ImmediateQueue {
	if size <= 0 {
		size = 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ImmediateQueue{jobs: make(chan Job, size), ctx: ctx, cancel: cancel}
}

// Start launches the worker. Only the first call has an effect.
func (q *ImmediateQueue) Start(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed || handler == nil {
		return
	}
	q.started = true
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			if q.ctx.Err() != nil {
				continue
			}
			handler(q.ctx, job)
		}
	}()
}

// Enqueue hands the job to the worker without waiting for it to run.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload map[string]string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Job{}, ErrClosed
	}
	job := newJob(name, payload)
	select {
	case q.jobs <- job:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close cancels the running job and waits for the worker to exit.
func (q *ImmediateQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cancel()
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

var _ Queue = (*ImmediateQueue)(nil)
