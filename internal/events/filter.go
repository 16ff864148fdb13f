package events

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charliek/revive/internal/domain"
)

// MaxPatternLength caps filter patterns
const MaxPatternLength = 256

// Filter applies an EventFilter to events
type Filter struct {
	filter domain.EventFilter
	regex  *regexp.Regexp
}

// NewFilter compiles filter
func NewFilter(filter domain.EventFilter) (*Filter, error) {
	f := &Filter{filter: filter}

	if len(filter.Pattern) > MaxPatternLength {
		return nil, fmt.Errorf("%w: pattern exceeds maximum length of %d characters", domain.ErrInvalidPattern, MaxPatternLength)
	}

	if filter.Pattern != "" && filter.IsRegex {
		re, err := regexp.Compile(filter.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPattern, err)
		}
		f.regex = re
	}

	return f, nil
}

// Matches returns true if the event matches the filter criteria
func (f *Filter) Matches(event domain.Event) bool {
	if !f.filter.MatchesType(event.Type) {
		return false
	}

	if f.filter.Pattern == "" {
		return true
	}
	if f.regex != nil {
		return f.regex.MatchString(event.Message)
	}
	return strings.Contains(event.Message, f.filter.Pattern)
}

// FilterEvents returns the events matching filter
func FilterEvents(events []domain.Event, filter domain.EventFilter) ([]domain.Event, error) {
	if filter.IsEmpty() {
		return events, nil
	}

	f, err := NewFilter(filter)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if f.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}
