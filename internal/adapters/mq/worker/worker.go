// Package worker drains the simulation queue into the ledger.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/skanlab/internal/domain/model"
	"github.com/okian/skanlab/pkg/logger"
	"github.com/okian/skanlab/pkg/metrics"
)

// Simulation is what workers read off the queue.
type Simulation = model.Simulation

// Recorder stores a processed simulation.
type Recorder interface {
	Record(ctx context.Context, s Simulation) error
}

// Queue defines how workers receive simulations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Simulation
}

// Worker processes simulations until its queue is drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// Stops the queue's forwarder however the loop exits.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error recording simulation", logger.Error(err))
			}
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown signals the worker to stop and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s Simulation) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.recorder.Record(ctx, s); err != nil {
		metrics.RecordLedgerDropped("record_error")
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("record simulation %s: %w", s.ID, err)
	}
	metrics.RecordLedgerRecorded()
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below 1 means one worker per CPU.
func NewPool(workerCount int, q Queue, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, recorder, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still running when ctx is done are stopped and an error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut++
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = w.Shutdown(stopCtx)
			cancel()
		}
	}

	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, ctx.Err())
	}
	return nil
}
