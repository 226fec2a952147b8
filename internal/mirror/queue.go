package mirror

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Read once the queue is closed and drained.
var ErrQueueClosed = errors.New("mirror: queue closed")

// Queue is a bounded FIFO shared by one producer and any number of readers.
// Writers never block in TryWrite; WaitToWrite is the explicit suspension
// point, woken by reads and by Close.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	// changed is closed and replaced whenever items are removed, added, or the
	// queue is closed.
	changed chan struct{}
}

// NewQueue returns a queue holding at most capacity items. A capacity below 1
// is raised to 1.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

func (q *Queue[T]) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// TryWrite enqueues v if there is room. It returns false when the queue is
// full or closed.
func (q *Queue[T]) TryWrite(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, v)
	q.notifyLocked()
	return true
}

// WaitToWrite blocks until the queue has room or is closed. It returns false
// when the queue is closed, and ctx's error if ctx ends first.
func (q *Queue[T]) WaitToWrite(ctx context.Context) (bool, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return false, nil
		}
		if len(q.items) < q.capacity {
			q.mu.Unlock()
			return true, nil
		}
		changed := q.changed
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-changed:
		}
	}
}

// Read removes the oldest item, blocking until one is available. Items
// written before Close are still delivered; after that Read returns
// ErrQueueClosed.
func (q *Queue[T]) Read(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.notifyLocked()
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrQueueClosed
		}
		changed := q.changed
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-changed:
		}
	}
}

// Close stops further writes and wakes every waiter. It reports whether this
// call closed the queue.
func (q *Queue[T]) Close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	q.notifyLocked()
	return true
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return q.capacity }
