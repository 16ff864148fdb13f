package events

import (
	"sync"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
)

// RingBuffer is a fixed-size circular buffer of journal events
type RingBuffer struct {
	mu       sync.RWMutex
	events   []domain.Event
	head     int // next write position
	count    int
	capacity int
}

// NewRingBuffer creates a new ring buffer with the given capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = constants.DefaultEventBufferSize
	}
	return &RingBuffer{
		events:   make([]domain.Event, capacity),
		capacity: capacity,
	}
}

// Write appends an event, overwriting the oldest when full
func (b *RingBuffer) Write(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity

	if b.count < b.capacity {
		b.count++
	}
}

// Read returns all events in chronological order
func (b *RingBuffer) Read() []domain.Event {
	return b.ReadLast(b.Count())
}

// ReadLast returns the last n events in chronological order
func (b *RingBuffer) ReadLast(n int) []domain.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	// oldest of the last n sits n slots behind head
	start := (b.head - n + b.capacity) % b.capacity

	result := make([]domain.Event, n)
	for i := 0; i < n; i++ {
		result[i] = b.events[(start+i)%b.capacity]
	}
	return result
}

// Count returns the current number of events in the buffer
func (b *RingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Capacity returns the maximum capacity of the buffer
func (b *RingBuffer) Capacity() int {
	return b.capacity
}
