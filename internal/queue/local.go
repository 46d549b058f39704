package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrQueueClosed = errors.New("queue is not accepting tasks")

// LocalQueue runs tasks in-process on a fixed pool of goroutines. It stands in
// for SQS when no queue URL is configured.
type LocalQueue struct {
	tasks   chan Task
	workers int
	logger  *logrus.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewLocalQueue(size, workers int, logger *logrus.Logger) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	return &LocalQueue{tasks: make(chan Task, size), workers: workers, logger: logger}
}

// Publish blocks while the buffer is full, until ctx is done.
func (q *LocalQueue) Publish(ctx context.Context, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers. They stop once ctx is done or Close has drained the buffer.
func (q *LocalQueue) Start(ctx context.Context, handler Handler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-q.tasks:
					if !ok {
						return
					}
					q.run(ctx, worker, handler, task)
				}
			}
		}(i)
	}
	q.logger.WithField("workers", q.workers).Info("local task queue started")
}

func (q *LocalQueue) run(ctx context.Context, worker int, handler Handler, task Task) {
	entry := q.logger.WithFields(logrus.Fields{"worker": worker, "task_id": task.ID, "kind": task.Kind})
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("task panicked")
		}
	}()
	if err := handler.HandleTask(ctx, task); err != nil {
		entry.WithError(err).Error("task failed")
		return
	}
	entry.Debug("task done")
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
