package ingestion

import (
	"context"
	"sync"
)

// ProcessFunc handles one job. Errors are the processor's to log.
type ProcessFunc[T any] func(ctx context.Context, job T)

// WorkerPool runs a fixed number of workers over a buffered job queue.
type WorkerPool[T any] struct {
	numWorkers int
	jobs       chan T
	process    ProcessFunc[T]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any](numWorkers, bufferSize int, process ProcessFunc[T]) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		process:    process,
	}
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for range wp.numWorkers {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.process(ctx, job)
		}
	}
}

// Submit queues a job, blocking while the buffer is full. It returns false
// if ctx ends first.
func (wp *WorkerPool[T]) Submit(ctx context.Context, job T) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop closes the queue and waits for workers to drain it. No Submit may
// follow Stop.
func (wp *WorkerPool[T]) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}
