package sim

import (
	"container/heap"
	"sync"
)

// An EventQueue hands out scheduled events, earliest first.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// EventQueueImpl is a mutex-guarded binary heap of events keyed on their
// trigger time.
type EventQueueImpl struct {
	mu   sync.Mutex
	heap eventHeap
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueueImpl {
	return &EventQueueImpl{}
}

// Push inserts an event.
func (q *EventQueueImpl) Push(evt Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.heap, evt)
}

// Pop removes and returns the earliest event. The queue must not be empty.
func (q *EventQueueImpl) Pop() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	return heap.Pop(&q.heap).(Event)
}

// Len counts the queued events.
func (q *EventQueueImpl) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.heap)
}

// Peek returns the earliest event without removing it.
func (q *EventQueueImpl) Peek() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.heap[0]
}

type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].Time() < h[j].Time() }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	last := len(old) - 1
	evt := old[last]
	*h = old[:last]

	return evt
}
