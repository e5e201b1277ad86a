package service

import (
	"context"
	"errors"
	"log"
	"sync"
)

var ErrQueueFull = errors.New("processing queue is full")

// WorkerPool runs queued document-processing tasks on a fixed number
// of goroutines. The queue is bounded so a burst of uploads degrades
// into rejected requests instead of unbounded memory growth.
type WorkerPool struct {
	tasks   chan func(ctx context.Context)
	workers int

	wg      sync.WaitGroup
	started sync.Once
	stopped sync.Once
}

func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &WorkerPool{
		tasks:   make(chan func(ctx context.Context), queueSize),
		workers: workers,
	}
}

// Start launches the workers. Workers exit when the context is
// canceled or the pool is stopped.
func (p *WorkerPool) Start(ctx context.Context) {
	p.started.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
	})
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(ctx, id, task)
		}
	}
}

func (p *WorkerPool) runTask(ctx context.Context, id int, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker %d recovered from panic: %v", id, r)
		}
	}()
	task(ctx)
}

// Submit enqueues a task without blocking. It returns ErrQueueFull
// when the queue has no room.
func (p *WorkerPool) Submit(task func(ctx context.Context)) error {
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *WorkerPool) Stop() {
	p.stopped.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
