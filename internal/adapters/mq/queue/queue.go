// Package queue buffers scored simulations between the HTTP handlers and
// the ledger workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/skanlab/internal/domain/model"
	"github.com/okian/skanlab/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Drop reasons reported to metrics when Enqueue refuses a simulation.
const (
	ReasonClosed    = "closed"
	ReasonFull      = "queue_full"
	ReasonCancelled = "context_cancelled"
)

// Simulation is the payload type flowing through the queue.
type Simulation = model.Simulation

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a simulation to the queue.
	// Returns false if the queue is full, closed or ctx is done.
	Enqueue(ctx context.Context, s Simulation) bool

	// Dequeue returns a channel that receives simulations until the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan Simulation

	Len() int
	Cap() int

	// Close stops accepting simulations; buffered ones can still be drained.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Simulation
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Simulation, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a simulation without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Simulation) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(ReasonClosed)
		return false
	}
	if ctx.Err() != nil {
		q.drop(ReasonCancelled)
		return false
	}

	select {
	case q.items <- s:
		metrics.UpdateQueueSize(len(q.items))
		return true
	default:
		q.drop(ReasonFull)
		return false
	}
}

func (q *InMemoryQueue) drop(reason string) {
	metrics.RecordLedgerDropped(reason)
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue returns a channel that will receive simulations as they become
// available. The channel closes once the queue is closed and drained, or
// when ctx is done. A simulation taken off the buffer but never delivered
// is counted as dropped.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Simulation {
	out := make(chan Simulation)
	go func() {
		defer close(out)
		for {
			select {
			case s, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- s:
					metrics.UpdateQueueSize(len(q.items))
				case <-ctx.Done():
					q.drop(ReasonCancelled)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered simulations.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}
