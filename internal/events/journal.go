// Package events keeps an in-memory journal of watchdog events and streams
// new entries to subscribers.
package events

import (
	"log/slog"
	"time"

	"github.com/charliek/revive/internal/domain"
	"github.com/google/uuid"
)

// Config holds configuration for the journal
type Config struct {
	BufferSize         int // Number of events kept in memory
	SubscriptionBuffer int // Buffer size for subscription channels
}

// Journal stores recent events and fans them out to subscribers
type Journal struct {
	buffer        *RingBuffer
	subscriptions *SubscriptionManager
}

// NewJournal creates an event journal
func NewJournal(config Config, logger *slog.Logger) *Journal {
	return &Journal{
		buffer:        NewRingBuffer(config.BufferSize),
		subscriptions: NewSubscriptionManager(config.SubscriptionBuffer, logger),
	}
}

// Emit records an event, filling ID and timestamp when unset, and
// broadcasts it to subscribers.
func (j *Journal) Emit(event domain.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = domain.SeverityInfo
	}

	j.buffer.Write(event)
	j.subscriptions.Broadcast(event)
}

// Query returns the last limit events matching filter and the total number
// of matches before limiting. A limit of 0 returns every match.
func (j *Journal) Query(filter domain.EventFilter, limit int) ([]domain.Event, int, error) {
	filtered, err := FilterEvents(j.buffer.Read(), filter)
	if err != nil {
		return nil, 0, err
	}

	total := len(filtered)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, total, nil
}

// Subscribe creates a subscription for events matching the filter
func (j *Journal) Subscribe(filter domain.EventFilter) (string, <-chan domain.Event, error) {
	return j.subscriptions.Subscribe(filter)
}

// Unsubscribe removes a subscription
func (j *Journal) Unsubscribe(id string) {
	j.subscriptions.Unsubscribe(id)
}

// Stats returns statistics about the journal
func (j *Journal) Stats() domain.EventStats {
	return domain.EventStats{
		TotalEvents: j.buffer.Count(),
		BufferSize:  j.buffer.Capacity(),
		Subscribers: j.subscriptions.Count(),
	}
}

// Close closes all subscriptions
func (j *Journal) Close() {
	j.subscriptions.Close()
}
