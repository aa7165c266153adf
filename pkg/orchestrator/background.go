package orchestrator

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// BackgroundQueue runs fire-and-forget work on a fixed worker pool with
// a bounded buffer. When the buffer is full the task is dropped and
// counted; the response path never blocks on it.
type BackgroundQueue struct {
	tasks   chan func()
	dropped atomic.Int64
	wg      sync.WaitGroup
	log     *slog.Logger

	closeOnce sync.Once
}

func NewBackgroundQueue(workers, capacity int) *BackgroundQueue {
	if workers <= 0 {
		workers = 2
	}
	if capacity <= 0 {
		capacity = 128
	}
	q := &BackgroundQueue{
		tasks: make(chan func(), capacity),
		log:   slog.Default().With("component", "background"),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *BackgroundQueue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.log.Error("background task panicked", "panic", r)
				}
			}()
			task()
		}()
	}
}

// Submit enqueues a task, dropping it when the buffer is full.
func (q *BackgroundQueue) Submit(task func()) {
	select {
	case q.tasks <- task:
	default:
		n := q.dropped.Add(1)
		q.log.Warn("background queue full, task dropped", "total_dropped", n)
	}
}

// Dropped returns how many tasks were discarded due to backpressure.
func (q *BackgroundQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting work and waits for in-flight tasks.
func (q *BackgroundQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.tasks)
		q.wg.Wait()
	})
}
