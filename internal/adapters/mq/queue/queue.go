// Package queue holds import batches waiting for the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/velorank/internal/domain/model"
	"github.com/okian/velorank/pkg/metrics"
)

const defaultQueueCapacity = 64

// Batch is the payload flowing through the queue.
type Batch = model.ImportBatch

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a batch. It fails with ErrFull instead of blocking.
	Enqueue(ctx context.Context, b Batch) error

	// Dequeue returns a channel of batches, closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Batch

	Len(ctx context.Context) int

	// Close stops accepting batches. Pending batches are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	batches  chan Batch
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan Batch, q.capacity)

	metrics.UpdateImportQueueCapacity(q.capacity)
	metrics.UpdateImportQueueSize(0)
	return q
}

// Enqueue adds a batch to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.batches <- b:
		metrics.UpdateImportQueueSize(len(q.batches))
		return nil
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives batches as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		for {
			select {
			case b, ok := <-q.batches:
				if !ok {
					return
				}
				metrics.UpdateImportQueueSize(len(q.batches))
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending batches.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.batches)
}

// Close shuts the queue. Calling it twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
