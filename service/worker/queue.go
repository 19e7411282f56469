package worker

import (
	"container/heap"
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned by a non-blocking put on a full queue
var ErrQueueFull = errors.New("queue full")

type items []*Item

func (h items) Len() int           { return len(h) }
func (h items) Less(i, j int) bool { return h[i].less(h[j]) }
func (h items) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *items) Push(x any)        { *h = append(*h, x.(*Item)) }
func (h *items) Pop() any {
	old := *h
	n := len(old)
	ret := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ret
}

// queue is a bounded priority queue. Waiters block on the changed channel,
// which is closed and replaced on every put or get.
type queue struct {
	name     string
	capacity int
	mux      sync.Mutex
	heap     items
	changed  chan struct{}
}

func newQueue(name string, capacity int) *queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &queue{name: name, capacity: capacity, changed: make(chan struct{})}
}

func (q *queue) signal() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// TryPut adds item unless the queue is full
func (q *queue) TryPut(item *Item) bool {
	q.mux.Lock()
	defer q.mux.Unlock()
	if len(q.heap) >= q.capacity {
		return false
	}
	heap.Push(&q.heap, item)
	q.signal()
	return true
}

// Put adds item, waiting for space until ctx is done
func (q *queue) Put(ctx context.Context, item *Item) error {
	for {
		q.mux.Lock()
		if len(q.heap) < q.capacity {
			heap.Push(&q.heap, item)
			q.signal()
			q.mux.Unlock()
			return nil
		}
		changed := q.changed
		q.mux.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Get removes the highest priority item, waiting until one is available or
// ctx is done
func (q *queue) Get(ctx context.Context) (*Item, error) {
	for {
		q.mux.Lock()
		if len(q.heap) > 0 {
			item := heap.Pop(&q.heap).(*Item)
			q.signal()
			q.mux.Unlock()
			return item, nil
		}
		changed := q.changed
		q.mux.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// Len returns number of queued items
func (q *queue) Len() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	return len(q.heap)
}

// Drain removes all queued items and returns their count
func (q *queue) Drain() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	ret := len(q.heap)
	q.heap = nil
	q.signal()
	return ret
}
