package application

import (
	"time"

	"github.com/example/pool-backoffice/internal/calendar"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/workflow"
)

// Admin roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Principal is the authenticated admin invoking a service method.
type Principal struct {
	AdminID  string
	Email    string
	FullName string
	Role     string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// EventType classifies a calendar appointment.
type EventType string

const (
	EventTypeConsultation  EventType = "consultation"
	EventTypeEstimateVisit EventType = "estimate_visit"
	EventTypeFollowUp      EventType = "follow_up"
	EventTypeOther         EventType = "other"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeConsultation, EventTypeEstimateVisit, EventTypeFollowUp, EventTypeOther:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event. Only scheduled events can
// change.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCanceled  EventStatus = "canceled"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusScheduled, EventStatusCompleted, EventStatusCanceled:
		return true
	}
	return false
}

// Event is a calendar appointment.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Type        EventType
	Status      EventStatus
	CustomerID  string
	PropertyID  *string
	PoolID      *string
	LocationURL *string
	Description *string
	CreatedBy   string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Type        EventType
	Start       time.Time
	End         time.Time
	AllDay      bool
	CustomerID  string
	PropertyID  *string
	PoolID      *string
	LocationURL *string
	Description *string
}

// CustomerSummary is the display data of a customer.
type CustomerSummary struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// PropertySummary is the display data of a property.
type PropertySummary struct {
	ID         string
	CustomerID string
	Address    string
}

// PoolSummary is the display data of a pool.
type PoolSummary struct {
	ID         string
	PropertyID string
	Label      string
}

// EventDetails is the canonical read model of an event with its related
// display data resolved.
type EventDetails struct {
	Event
	Customer *CustomerSummary
	Property *PropertySummary
	Pool     *PoolSummary
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps a full update guarded by the caller's version.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Version   int64
	Input     EventInput
}

// RescheduleEventParams wraps a timing-only update.
type RescheduleEventParams struct {
	Principal Principal
	EventID   string
	Version   int64
	Start     time.Time
	End       time.Time
	AllDay    bool
}

// EventTransitionParams identifies the event and version for cancel and
// complete.
type EventTransitionParams struct {
	Principal Principal
	EventID   string
	Version   int64
}

// ListEventsParams narrows a calendar range query.
type ListEventsParams struct {
	Principal  Principal
	Range      calendar.Range
	CustomerID string
	Statuses   []EventStatus
}

// EventRepositoryFilter narrows queries issued to the event repository.
type EventRepositoryFilter struct {
	EndsAfter    time.Time
	StartsBefore time.Time
	CustomerID   string
	Statuses     []EventStatus
}

// Estimate is a quote document with its line items and derived totals.
type Estimate struct {
	ID             string
	Number         string
	Status         workflow.Status
	CustomerID     string
	PoolID         *string
	LineItems      []lineitems.Item
	SubtotalCents  int64
	TaxRate        float64
	TaxAmountCents int64
	TotalCents     int64
	ValidUntil     *time.Time
	Notes          *string
	CreatedBy      string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EstimateInput captures caller provided estimate fields. A nil TaxRate
// keeps the current rate, or the configured default on create.
type EstimateInput struct {
	CustomerID string
	PoolID     *string
	LineItems  []lineitems.Item
	TaxRate    *float64
	ValidUntil *time.Time
	Notes      *string
}

// CreateEstimateParams wraps the data required to create an estimate.
type CreateEstimateParams struct {
	Principal Principal
	Input     EstimateInput
}

// UpdateEstimateParams wraps a content update guarded by the caller's version.
type UpdateEstimateParams struct {
	Principal  Principal
	EstimateID string
	Version    int64
	Input      EstimateInput
}

// LineItemOp names a single-line edit of an estimate.
type LineItemOp string

const (
	LineItemAdd    LineItemOp = "add"
	LineItemRemove LineItemOp = "remove"
	LineItemUpdate LineItemOp = "update"
)

// EditLineItemParams wraps one line item edit guarded by the caller's
// version. Add uses ItemID when set and applies Patch to the new line.
type EditLineItemParams struct {
	Principal  Principal
	EstimateID string
	Version    int64
	Op         LineItemOp
	ItemID     string
	Patch      lineitems.Patch
}

// ChangeEstimateStatusParams wraps a workflow transition.
type ChangeEstimateStatusParams struct {
	Principal  Principal
	EstimateID string
	Version    int64
	Target     workflow.Status
}

// ListEstimatesParams narrows estimate listings.
type ListEstimatesParams struct {
	Principal  Principal
	CustomerID string
	Status     workflow.Status
}

// EstimateRepositoryFilter narrows queries issued to the estimate repository.
type EstimateRepositoryFilter struct {
	CustomerID string
	Status     workflow.Status
}

// Admin is a back-office account.
type Admin struct {
	ID        string
	Email     string
	FullName  string
	Role      string
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdminInput captures the fields needed to provision an admin.
type AdminInput struct {
	Email    string
	FullName string
	Role     string
	Password string
}

// AdminCredentials models the authentication attributes persisted for an admin.
type AdminCredentials struct {
	Admin        Admin
	PasswordHash string
}

// Session represents an authenticated session issued to an admin.
type Session struct {
	ID          string
	AdminID     string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate an admin.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Admin   Admin
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}
