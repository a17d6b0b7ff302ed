package models

import (
	"container/heap"
	"sync"
	"time"
)

// Event is a recorded simulation event waiting to be written out.
type Event struct {
	Time time.Time
	Seq  uint64
	Type string
	Data interface{}
}

// EventQueue is a priority queue of events ordered by time, then by the
// order they were enqueued.
type EventQueue struct {
	events []*Event
	seq    uint64
	mutex  sync.Mutex
}

// eventHeap implements heap.Interface and holds Events
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time.Equal(h[j].Time) {
		return h[i].Seq < h[j].Seq
	}
	return h[i].Time.Before(h[j].Time)
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// NewEventQueue creates a new EventQueue
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]*Event, 0)}
}

// Enqueue stamps the event with the next sequence number and adds it.
func (eq *EventQueue) Enqueue(event *Event) {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	eq.seq++
	event.Seq = eq.seq
	heap.Push((*eventHeap)(&eq.events), event)
}

// Dequeue removes and returns the earliest event from the queue
func (eq *EventQueue) Dequeue() *Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 {
		return nil
	}
	return heap.Pop((*eventHeap)(&eq.events)).(*Event)
}

// Peek returns the earliest event without removing it
func (eq *EventQueue) Peek() *Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 {
		return nil
	}
	return eq.events[0]
}

func (eq *EventQueue) IsEmpty() bool {
	return eq.Len() == 0
}

func (eq *EventQueue) Len() int {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	return len(eq.events)
}

// DequeueBatch removes up to maxBatchSize of the earliest events.
func (eq *EventQueue) DequeueBatch(maxBatchSize int) []*Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()

	batchSize := min(maxBatchSize, len(eq.events))
	batch := make([]*Event, 0, batchSize)

	for i := 0; i < batchSize; i++ {
		event := heap.Pop((*eventHeap)(&eq.events)).(*Event)
		batch = append(batch, event)
	}

	return batch
}
