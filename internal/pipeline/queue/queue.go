// Package queue implements the pipeline's bounded-concurrency job
// dispatcher: a FIFO work queue gated by a counting semaphore, the direct
// idiomatic replacement for the original asyncio.Semaphore-based worker.
package queue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"svasr/pkg/logger"
)

// Item is one unit of enqueued work.
type Item struct {
	JobID string
	Run   func(ctx context.Context)
}

// Queue is a process-local, in-memory FIFO queue. Jobs are pulled in FIFO
// order but execute concurrently up to maxConcurrent; there is no
// inter-job ordering guarantee once dispatched.
type Queue struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []Item
	wake    chan struct{}

	wg       sync.WaitGroup
	draining bool
}

// New creates a queue with maxConcurrent execution permits and starts its
// dispatcher goroutine.
func New(maxConcurrent int64) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		sem:    semaphore.NewWeighted(maxConcurrent),
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	go q.dispatch()
	return q
}

// Enqueue appends an item to the FIFO tail and returns immediately. The
// caller is responsible for having already persisted the job's "queued"
// status before calling this.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		logger.Warn("queue is draining, dropping enqueue", "job_id", item.JobID)
		return
	}
	q.pending = append(q.pending, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Depth reports the number of items still in the pending list (not counting
// items currently running, nor the item the dispatcher has taken and is
// holding while it waits for a permit).
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) dispatch() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		for {
			item, ok := q.popFront()
			if !ok {
				break
			}
			if err := q.sem.Acquire(q.ctx, 1); err != nil {
				return
			}
			q.wg.Add(1)
			go func(it Item) {
				defer q.wg.Done()
				defer q.sem.Release(1)
				it.Run(q.ctx)
			}(item)
		}
	}
}

func (q *Queue) popFront() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Item{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

// Shutdown stops accepting new enqueues, cancels in-flight executions via
// context cancellation, and waits for running goroutines to observe it.
// Pending (not-yet-dispatched) items are abandoned.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.draining = true
	q.pending = nil
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}
