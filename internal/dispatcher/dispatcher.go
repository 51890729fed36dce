// Package dispatcher manages worker fan-out over the task queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/shopper"
)

// Runner executes one dispatched task to completion.
type Runner interface {
	Run(ctx context.Context) error
}

// EngineFactory builds the Runner for one dequeued task.
type EngineFactory func(task shopper.Task, agent shopper.Agent) Runner

// Dispatcher fans out queued tasks to a pool of workers. The caller is not
// blocked on task completion; progress is observed through the task and
// trace stores.
type Dispatcher struct {
	queue   shopper.Queue
	factory EngineFactory
	workers int
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(queue shopper.Queue, factory EngineFactory, workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		factory: factory,
		workers: workers,
		logger:  logger,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item shopper.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		item, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		engine := d.factory(item.Task, item.Agent)
		if err := engine.Run(ctx); err != nil {
			// The engine already persisted the failure; nothing to retry here.
			d.logger.Error("task run failed",
				zap.String("task_id", item.Task.ID),
				zap.Error(err),
			)
		}
	}
}
