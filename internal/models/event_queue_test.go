package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueueOrdersByTimeThenSequence(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	eq := NewEventQueue()

	eq.Enqueue(&Event{Time: base.Add(2 * time.Second), Type: "late"})
	eq.Enqueue(&Event{Time: base, Type: "first"})
	eq.Enqueue(&Event{Time: base, Type: "second"})

	require.Equal(t, 3, eq.Len())
	assert.Equal(t, "first", eq.Peek().Type)

	var got []string
	for !eq.IsEmpty() {
		got = append(got, eq.Dequeue().Type)
	}
	assert.Equal(t, []string{"first", "second", "late"}, got)
	assert.Nil(t, eq.Dequeue())
	assert.Nil(t, eq.Peek())
}

func TestEventQueueDequeueBatch(t *testing.T) {
	base := time.Now()
	eq := NewEventQueue()
	for i := 0; i < 5; i++ {
		eq.Enqueue(&Event{Time: base.Add(time.Duration(i) * time.Millisecond)})
	}

	batch := eq.DequeueBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, uint64(1), batch[0].Seq)
	assert.Equal(t, uint64(3), batch[2].Seq)

	assert.Len(t, eq.DequeueBatch(10), 2)
	assert.Empty(t, eq.DequeueBatch(10))
}

func TestEventQueueConcurrentEnqueue(t *testing.T) {
	eq := NewEventQueue()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				eq.Enqueue(&Event{Time: time.Now()})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, eq.Len())
	seen := make(map[uint64]bool)
	for _, e := range eq.DequeueBatch(1000) {
		assert.False(t, seen[e.Seq])
		seen[e.Seq] = true
	}
}
