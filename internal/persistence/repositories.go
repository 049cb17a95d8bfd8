package persistence

import (
	"context"
	"time"
)

// AdminRepository stores back-office accounts.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin Admin) error
	UpdateAdmin(ctx context.Context, admin Admin) error
	GetAdmin(ctx context.Context, id string) (Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// DirectoryRepository stores the customer, property and pool records the
// scheduling core reads.
type DirectoryRepository interface {
	CreateCustomer(ctx context.Context, customer Customer) error
	GetCustomer(ctx context.Context, id string) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	CreateProperty(ctx context.Context, property Property) error
	GetProperty(ctx context.Context, id string) (Property, error)
	CreatePool(ctx context.Context, pool Pool) error
	GetPool(ctx context.Context, id string) (Pool, error)
}

// EventFilter narrows event range queries. Events are returned when they
// start before StartsBefore and end at or after EndsAfter; zero bounds are
// ignored.
type EventFilter struct {
	EndsAfter    time.Time
	StartsBefore time.Time
	CustomerID   string
	Statuses     []string
}

// EventRepository stores calendar events. UpdateEvent is a conditional write:
// it succeeds only when the stored version equals expectedVersion, and then
// stores expectedVersion+1.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event, expectedVersion int64) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
}

// EstimateFilter narrows estimate listings.
type EstimateFilter struct {
	CustomerID string
	Status     string
}

// EstimateRepository stores estimates and allocates their numbers.
// UpdateEstimate follows the same conditional-write contract as UpdateEvent.
type EstimateRepository interface {
	CreateEstimate(ctx context.Context, estimate Estimate) error
	GetEstimate(ctx context.Context, id string) (Estimate, error)
	UpdateEstimate(ctx context.Context, estimate Estimate, expectedVersion int64) (Estimate, error)
	DeleteEstimate(ctx context.Context, id string) error
	ListEstimates(ctx context.Context, filter EstimateFilter) ([]Estimate, error)
	NextEstimateSequence(ctx context.Context, year int) (int, error)
}
