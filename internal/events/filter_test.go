package events

import (
	"strings"
	"testing"

	"github.com/charliek/revive/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.EventFilter
		event  domain.Event
		want   bool
	}{
		{"empty filter", domain.EventFilter{}, makeEvent("anything"), true},
		{"type match", domain.EventFilter{Types: []domain.EventType{domain.EventProbeFailed}}, makeEvent("x"), true},
		{"type mismatch", domain.EventFilter{Types: []domain.EventType{domain.EventRecoveryDone}}, makeEvent("x"), false},
		{"substring match", domain.EventFilter{Pattern: "timeout"}, makeEvent("probe timeout"), true},
		{"substring mismatch", domain.EventFilter{Pattern: "quota"}, makeEvent("probe timeout"), false},
		{"regex match", domain.EventFilter{Pattern: "^probe.*out$", IsRegex: true}, makeEvent("probe timeout"), true},
		{"regex mismatch", domain.EventFilter{Pattern: "^quota", IsRegex: true}, makeEvent("probe timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Matches(tt.event))
		})
	}
}

func TestNewFilter_Invalid(t *testing.T) {
	_, err := NewFilter(domain.EventFilter{Pattern: "[", IsRegex: true})
	assert.ErrorIs(t, err, domain.ErrInvalidPattern)

	_, err = NewFilter(domain.EventFilter{Pattern: strings.Repeat("a", MaxPatternLength+1)})
	assert.ErrorIs(t, err, domain.ErrInvalidPattern)
}

func TestFilterEvents(t *testing.T) {
	events := []domain.Event{
		makeEventWithType(domain.EventProbeFailed, "probe failed"),
		makeEventWithType(domain.EventRecoveryStarted, "recovery started"),
		makeEventWithType(domain.EventRecoveryDone, "recovery succeeded"),
	}

	all, err := FilterEvents(events, domain.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	recovery, err := FilterEvents(events, domain.EventFilter{Pattern: "recovery"})
	require.NoError(t, err)
	assert.Len(t, recovery, 2)

	done, err := FilterEvents(events, domain.EventFilter{Types: []domain.EventType{domain.EventRecoveryDone}})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "recovery succeeded", done[0].Message)
}
