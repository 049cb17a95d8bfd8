package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

var testAdmin = Principal{AdminID: "admin-1", Email: "owner@example.com", FullName: "Pat Owner", Role: RoleAdmin}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// eventRepoFake keeps events in memory and enforces the conditional-write
// contract.
type eventRepoFake struct {
	mu        sync.Mutex
	events    map[string]Event
	listCalls int
	updates   int
}

func newEventRepoFake() *eventRepoFake {
	return &eventRepoFake{events: make(map[string]Event)}
}

func (r *eventRepoFake) CreateEvent(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return Event{}, ErrAlreadyExists
	}
	r.events[event.ID] = event
	return event, nil
}

func (r *eventRepoFake) GetEvent(ctx context.Context, id string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (r *eventRepoFake) UpdateEvent(ctx context.Context, event Event, expectedVersion int64) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.events[event.ID]
	if !ok {
		return Event{}, ErrNotFound
	}
	if current.Version != expectedVersion {
		return Event{}, ErrConflict
	}
	event.Version = expectedVersion + 1
	event.CreatedAt = current.CreatedAt
	r.events[event.ID] = event
	r.updates++
	return event, nil
}

func (r *eventRepoFake) DeleteEvent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *eventRepoFake) ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []Event
	for _, event := range r.events {
		if !filter.EndsAfter.IsZero() && event.End.Before(filter.EndsAfter) {
			continue
		}
		if !filter.StartsBefore.IsZero() && !event.Start.Before(filter.StartsBefore) {
			continue
		}
		if filter.CustomerID != "" && event.CustomerID != filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, event.Status) {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// pausingEventRepo lets the first ListEvents read storage and then waits
// until release is closed before returning its snapshot.
type pausingEventRepo struct {
	*eventRepoFake
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func newPausingEventRepo(inner *eventRepoFake) *pausingEventRepo {
	return &pausingEventRepo{
		eventRepoFake: inner,
		listed:        make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (r *pausingEventRepo) ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]Event, error) {
	events, err := r.eventRepoFake.ListEvents(ctx, filter)
	r.once.Do(func() {
		close(r.listed)
		<-r.release
	})
	return events, err
}

// estimateRepoFake keeps estimates in memory with per-year sequences.
type estimateRepoFake struct {
	mu        sync.Mutex
	estimates map[string]Estimate
	sequences map[int]int
}

func newEstimateRepoFake() *estimateRepoFake {
	return &estimateRepoFake{estimates: make(map[string]Estimate), sequences: make(map[int]int)}
}

func (r *estimateRepoFake) CreateEstimate(ctx context.Context, estimate Estimate) (Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.estimates {
		if existing.ID == estimate.ID || existing.Number == estimate.Number {
			return Estimate{}, ErrAlreadyExists
		}
	}
	r.estimates[estimate.ID] = cloneEstimate(estimate)
	return cloneEstimate(estimate), nil
}

func (r *estimateRepoFake) GetEstimate(ctx context.Context, id string) (Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	estimate, ok := r.estimates[id]
	if !ok {
		return Estimate{}, ErrNotFound
	}
	return cloneEstimate(estimate), nil
}

func (r *estimateRepoFake) UpdateEstimate(ctx context.Context, estimate Estimate, expectedVersion int64) (Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.estimates[estimate.ID]
	if !ok {
		return Estimate{}, ErrNotFound
	}
	if current.Version != expectedVersion {
		return Estimate{}, ErrConflict
	}
	estimate.Version = expectedVersion + 1
	estimate.Number = current.Number
	r.estimates[estimate.ID] = cloneEstimate(estimate)
	return cloneEstimate(estimate), nil
}

func (r *estimateRepoFake) DeleteEstimate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.estimates[id]; !ok {
		return ErrNotFound
	}
	delete(r.estimates, id)
	return nil
}

func (r *estimateRepoFake) ListEstimates(ctx context.Context, filter EstimateRepositoryFilter) ([]Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Estimate
	for _, e := range r.estimates {
		if filter.CustomerID != "" && e.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, cloneEstimate(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (r *estimateRepoFake) NextEstimateSequence(ctx context.Context, year int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences[year]++
	return r.sequences[year], nil
}

// directoryStub is a fixed customer directory: customer c1 owns property p1
// with pool pool-1; customer c2 owns property p2.
type directoryStub struct {
	err error
}

var (
	stubCustomers = map[string]CustomerSummary{
		"c1": {ID: "c1", Name: "Rivera Family", Phone: "555-0100"},
		"c2": {ID: "c2", Name: "Chen Residence"},
	}
	stubProperties = map[string]PropertySummary{
		"p1": {ID: "p1", CustomerID: "c1", Address: "12 Palm Way"},
		"p2": {ID: "p2", CustomerID: "c2", Address: "4 Bay Rd"},
	}
	stubPools = map[string]PoolSummary{
		"pool-1": {ID: "pool-1", PropertyID: "p1", Label: "Main pool"},
	}
)

func (d directoryStub) CustomerExists(ctx context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := stubCustomers[id]
	return ok, nil
}

func (d directoryStub) CustomerIDForProperty(ctx context.Context, propertyID string) (string, bool, error) {
	if d.err != nil {
		return "", false, d.err
	}
	p, ok := stubProperties[propertyID]
	return p.CustomerID, ok, nil
}

func (d directoryStub) LookupCustomer(ctx context.Context, id string) (*CustomerSummary, error) {
	if c, ok := stubCustomers[id]; ok {
		return &c, nil
	}
	return nil, d.err
}

func (d directoryStub) LookupProperty(ctx context.Context, id string) (*PropertySummary, error) {
	if p, ok := stubProperties[id]; ok {
		return &p, nil
	}
	return nil, d.err
}

func (d directoryStub) LookupPool(ctx context.Context, id string) (*PoolSummary, error) {
	if d.err != nil {
		return nil, d.err
	}
	if p, ok := stubPools[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func strPtr(s string) *string { return &s }
