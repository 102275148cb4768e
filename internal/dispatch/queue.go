package dispatch

import (
	"context"
	"sync"
)

// Queue is an unbounded multi-producer multi-consumer FIFO of tasks.
//
// Waiting consumers are woken through a one-slot wake channel. A consumer
// that takes a task while more remain passes the wake signal on, so a single
// token is enough to drain any backlog.
type Queue struct {
	mu         sync.Mutex
	items      []Task
	wake       chan struct{}
	closed     chan struct{}
	isClosed   bool
	unfinished int
	idle       chan struct{}
}

func NewQueue() *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
		idle:   idle,
	}
}

// Enqueue appends t and never blocks. It returns false if the queue is closed.
func (q *Queue) Enqueue(t Task) bool {
	q.mu.Lock()
	if q.isClosed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, t)
	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
	q.mu.Unlock()

	q.signal()
	return true
}

// Dequeue blocks until a task is available. It returns ctx.Err() when ctx
// ends, or ErrQueueClosed once the queue is closed and empty.
func (q *Queue) Dequeue(ctx context.Context) (Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items[0] = Task{}
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return t, nil
		}
		closed := q.isClosed
		q.mu.Unlock()

		if closed {
			return Task{}, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return Task{}, ctx.Err()
		case <-q.closed:
		case <-q.wake:
		}
	}
}

// Done marks one dequeued task as fully handled.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished == 0 {
		panic("dispatch: Done called more times than Enqueue")
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

// Wait blocks until every enqueued task has been marked done, or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks. Queued tasks can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isClosed {
		return
	}
	q.isClosed = true
	close(q.closed)
}

// Len returns the number of tasks waiting for a worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
