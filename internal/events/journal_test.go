package events

import (
	"sync"
	"testing"
	"time"

	"github.com/charliek/revive/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_Emit(t *testing.T) {
	j := NewJournal(Config{BufferSize: 10}, nil)
	defer j.Close()

	j.Emit(domain.Event{Type: domain.EventTargetRegistered, Message: "watching 42"})

	events, total, err := j.Query(domain.EventFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, total)

	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, domain.SeverityInfo, e.Severity)
}

func TestJournal_Query(t *testing.T) {
	j := NewJournal(Config{BufferSize: 100}, nil)
	defer j.Close()

	for i := 0; i < 50; i++ {
		j.Emit(makeEventWithType(domain.EventProbeFailed, "probe failed"))
	}
	for i := 0; i < 30; i++ {
		j.Emit(makeEventWithType(domain.EventRecoveryStep, "step"))
	}

	t.Run("query all", func(t *testing.T) {
		events, total, err := j.Query(domain.EventFilter{}, 0)
		require.NoError(t, err)
		assert.Len(t, events, 80)
		assert.Equal(t, 80, total)
	})

	t.Run("query with limit", func(t *testing.T) {
		events, total, err := j.Query(domain.EventFilter{}, 10)
		require.NoError(t, err)
		assert.Len(t, events, 10)
		assert.Equal(t, 80, total)
		assert.Equal(t, domain.EventRecoveryStep, events[9].Type)
	})

	t.Run("query with filter", func(t *testing.T) {
		events, total, err := j.Query(domain.EventFilter{Types: []domain.EventType{domain.EventProbeFailed}}, 0)
		require.NoError(t, err)
		assert.Len(t, events, 50)
		assert.Equal(t, 50, total)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, _, err := j.Query(domain.EventFilter{Pattern: "(", IsRegex: true}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidPattern)
	})
}

func TestJournal_Subscribe(t *testing.T) {
	j := NewJournal(Config{BufferSize: 10, SubscriptionBuffer: 10}, nil)
	defer j.Close()

	id, ch, err := j.Subscribe(domain.EventFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	j.Emit(makeEvent("after subscribe"))

	select {
	case e := <-ch:
		assert.Equal(t, "after subscribe", e.Message)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected to receive event")
	}
}

func TestJournal_SubscribeWithFilter(t *testing.T) {
	j := NewJournal(Config{BufferSize: 10, SubscriptionBuffer: 10}, nil)
	defer j.Close()

	_, ch, err := j.Subscribe(domain.EventFilter{Types: []domain.EventType{domain.EventRecoveryFailed}})
	require.NoError(t, err)

	j.Emit(makeEventWithType(domain.EventProbeFailed, "probe"))
	j.Emit(makeEventWithType(domain.EventRecoveryFailed, "quota exceeded"))

	select {
	case e := <-ch:
		assert.Equal(t, domain.EventRecoveryFailed, e.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected to receive recovery event")
	}

	select {
	case <-ch:
		t.Fatal("should not receive probe event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJournal_Unsubscribe(t *testing.T) {
	j := NewJournal(Config{BufferSize: 10, SubscriptionBuffer: 10}, nil)
	defer j.Close()

	id, ch, _ := j.Subscribe(domain.EventFilter{})
	j.Unsubscribe(id)
	j.Emit(makeEvent("after unsubscribe"))

	_, ok := <-ch
	assert.False(t, ok)
}

func TestJournal_SlowSubscriberDoesNotBlock(t *testing.T) {
	j := NewJournal(Config{BufferSize: 10, SubscriptionBuffer: 1}, nil)
	defer j.Close()

	_, _, err := j.Subscribe(domain.EventFilter{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			j.Emit(makeEvent("flood"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a slow subscriber")
	}
}

func TestJournal_Stats(t *testing.T) {
	j := NewJournal(Config{BufferSize: 100, SubscriptionBuffer: 10}, nil)
	defer j.Close()

	for i := 0; i < 10; i++ {
		j.Emit(makeEvent("line"))
	}
	j.Subscribe(domain.EventFilter{})
	j.Subscribe(domain.EventFilter{})

	stats := j.Stats()
	assert.Equal(t, 10, stats.TotalEvents)
	assert.Equal(t, 100, stats.BufferSize)
	assert.Equal(t, 2, stats.Subscribers)
}

func TestJournal_Concurrent(t *testing.T) {
	j := NewJournal(Config{BufferSize: 1000, SubscriptionBuffer: 100}, nil)
	defer j.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				j.Emit(makeEvent("concurrent"))
			}
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 20; k++ {
				id, _, _ := j.Subscribe(domain.EventFilter{})
				j.Query(domain.EventFilter{}, 10)
				j.Unsubscribe(id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, j.Stats().TotalEvents)
}
