package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/example/pool-backoffice/internal/persistence"
)

// CreateEvent stores a new event.
func (s *Storage) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Storage) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return cloneEvent(event), nil
}

// UpdateEvent replaces the event when its stored version equals
// expectedVersion. The compare and the write happen under one lock.
func (s *Storage) UpdateEvent(ctx context.Context, event persistence.Event, expectedVersion int64) (persistence.Event, error) {
	if event.End.Before(event.Start) {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return persistence.Event{}, persistence.ErrVersionConflict
	}

	event.Version = expectedVersion + 1
	event.CreatedBy = existing.CreatedBy
	event.CreatedAt = existing.CreatedAt
	s.events[event.ID] = cloneEvent(event)
	return cloneEvent(event), nil
}

// DeleteEvent removes an event by ID.
func (s *Storage) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// ListEvents returns the events matching filter ordered by start then ID.
func (s *Storage) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.Event, 0)
	for _, event := range s.events {
		if !matchesEventFilter(event, filter) {
			continue
		}
		events = append(events, cloneEvent(event))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func matchesEventFilter(event persistence.Event, filter persistence.EventFilter) bool {
	if !filter.EndsAfter.IsZero() && event.End.Before(filter.EndsAfter) {
		return false
	}
	if !filter.StartsBefore.IsZero() && !event.Start.Before(filter.StartsBefore) {
		return false
	}
	if filter.CustomerID != "" && event.CustomerID != filter.CustomerID {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, event.Status) {
		return false
	}
	return true
}

func cloneEvent(event persistence.Event) persistence.Event {
	event.PropertyID = copyStringPtr(event.PropertyID)
	event.PoolID = copyStringPtr(event.PoolID)
	event.LocationURL = copyStringPtr(event.LocationURL)
	event.Description = copyStringPtr(event.Description)
	return event
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
