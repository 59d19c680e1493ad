package sys

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

var ErrQueueClosed = errors.New("event queue closed")

type job struct {
	fn   func()
	done chan error
}

// Queue runs jobs one at a time on a single goroutine. Everything that reads or writes
// bot state goes through it, so handlers never touch that state concurrently.
type Queue struct {
	jobs    chan job
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		jobs:    make(chan job, size),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run consumes jobs until Close is called or ctx ends.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case j := <-q.jobs:
			err := runJob(j.fn)
			if j.done != nil {
				j.done <- err
			}
		}
	}
}

func runJob(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			LogError(MsgQueuePanicRecovered, r)
			LogDebug("%s", debug.Stack())
			err = fmt.Errorf("queued job panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Call runs fn on the consumer and waits for it to finish.
func (q *Queue) Call(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case q.jobs <- j:
	case <-q.stop:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-q.stopped:
		// The consumer may have finished this job right before stopping.
		select {
		case err := <-j.done:
			return err
		default:
			return ErrQueueClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the consumer. Jobs still buffered are dropped.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.stop) })
}

// Done is closed once Run has returned.
func (q *Queue) Done() <-chan struct{} { return q.stopped }
