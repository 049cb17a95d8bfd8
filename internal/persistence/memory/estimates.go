package memory

import (
	"context"
	"sort"

	"github.com/example/pool-backoffice/internal/persistence"
)

// CreateEstimate stores a new estimate. Estimate numbers are unique.
func (s *Storage) CreateEstimate(ctx context.Context, estimate persistence.Estimate) error {
	if estimate.ID == "" || estimate.Number == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.estimates[estimate.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.estimates {
		if existing.Number == estimate.Number {
			return persistence.ErrDuplicate
		}
	}
	s.estimates[estimate.ID] = cloneEstimate(estimate)
	return nil
}

// GetEstimate retrieves an estimate by ID.
func (s *Storage) GetEstimate(ctx context.Context, id string) (persistence.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	estimate, ok := s.estimates[id]
	if !ok {
		return persistence.Estimate{}, persistence.ErrNotFound
	}
	return cloneEstimate(estimate), nil
}

// UpdateEstimate replaces the estimate when its stored version equals
// expectedVersion.
func (s *Storage) UpdateEstimate(ctx context.Context, estimate persistence.Estimate, expectedVersion int64) (persistence.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.estimates[estimate.ID]
	if !ok {
		return persistence.Estimate{}, persistence.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return persistence.Estimate{}, persistence.ErrVersionConflict
	}

	estimate.Version = expectedVersion + 1
	estimate.Number = existing.Number
	estimate.CreatedBy = existing.CreatedBy
	estimate.CreatedAt = existing.CreatedAt
	s.estimates[estimate.ID] = cloneEstimate(estimate)
	return cloneEstimate(estimate), nil
}

// DeleteEstimate removes an estimate by ID.
func (s *Storage) DeleteEstimate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.estimates[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.estimates, id)
	return nil
}

// ListEstimates returns estimates newest first.
func (s *Storage) ListEstimates(ctx context.Context, filter persistence.EstimateFilter) ([]persistence.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	estimates := make([]persistence.Estimate, 0)
	for _, estimate := range s.estimates {
		if filter.CustomerID != "" && estimate.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && estimate.Status != filter.Status {
			continue
		}
		estimates = append(estimates, cloneEstimate(estimate))
	}

	sort.Slice(estimates, func(i, j int) bool {
		if estimates[i].CreatedAt.Equal(estimates[j].CreatedAt) {
			return estimates[i].Number > estimates[j].Number
		}
		return estimates[i].CreatedAt.After(estimates[j].CreatedAt)
	})
	return estimates, nil
}

// NextEstimateSequence increments and returns the counter for year.
func (s *Storage) NextEstimateSequence(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[year]++
	return s.sequences[year], nil
}

func cloneEstimate(estimate persistence.Estimate) persistence.Estimate {
	estimate.PoolID = copyStringPtr(estimate.PoolID)
	estimate.Notes = copyStringPtr(estimate.Notes)
	if estimate.ValidUntil != nil {
		at := *estimate.ValidUntil
		estimate.ValidUntil = &at
	}
	items := make([]persistence.LineItem, len(estimate.LineItems))
	copy(items, estimate.LineItems)
	estimate.LineItems = items
	return estimate
}
