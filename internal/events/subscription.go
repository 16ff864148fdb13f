package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
	"github.com/google/uuid"
)

// Subscription is a live feed of journal events
type Subscription struct {
	id     string
	ch     chan domain.Event
	filter *Filter
	closed atomic.Bool
	logger *slog.Logger
}

func newSubscription(filter domain.EventFilter, bufferSize int, logger *slog.Logger) (*Subscription, error) {
	f, err := NewFilter(filter)
	if err != nil {
		return nil, err
	}

	return &Subscription{
		id:     "sub-" + uuid.NewString()[:8],
		ch:     make(chan domain.Event, bufferSize),
		filter: f,
		logger: logger,
	}, nil
}

// ID returns the subscription ID
func (s *Subscription) ID() string {
	return s.id
}

// Channel returns the channel for receiving events
func (s *Subscription) Channel() <-chan domain.Event {
	return s.ch
}

// Send delivers event unless it is filtered out. Returns false if the
// channel is full or closed.
func (s *Subscription) Send(event domain.Event) bool {
	if s.closed.Load() {
		return false
	}
	if !s.filter.Matches(event) {
		return true
	}

	select {
	case s.ch <- event:
		return true
	default:
		s.logger.Debug("dropped event for slow subscriber",
			"subscription", s.id,
			"event_type", event.Type)
		return false
	}
}

// Close closes the subscription
func (s *Subscription) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// SubscriptionManager manages multiple subscriptions
type SubscriptionManager struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	bufferSize    int
	logger        *slog.Logger
}

// NewSubscriptionManager creates a new subscription manager
func NewSubscriptionManager(bufferSize int, logger *slog.Logger) *SubscriptionManager {
	if bufferSize <= 0 {
		bufferSize = constants.DefaultSubscriptionBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionManager{
		subscriptions: make(map[string]*Subscription),
		bufferSize:    bufferSize,
		logger:        logger,
	}
}

// Subscribe creates a new subscription
func (m *SubscriptionManager) Subscribe(filter domain.EventFilter) (string, <-chan domain.Event, error) {
	sub, err := newSubscription(filter, m.bufferSize, m.logger)
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	m.subscriptions[sub.id] = sub
	m.mu.Unlock()

	return sub.id, sub.ch, nil
}

// Unsubscribe removes a subscription
func (m *SubscriptionManager) Unsubscribe(id string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[id]
	if ok {
		delete(m.subscriptions, id)
	}
	m.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// Broadcast sends an event to all subscribers
func (m *SubscriptionManager) Broadcast(event domain.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		sub.Send(event)
	}
}

// Count returns the number of active subscriptions
func (m *SubscriptionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes all subscriptions
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.subscriptions = make(map[string]*Subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
