package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/persistence"
)

var (
	adminCounter     uint64
	directoryCounter uint64
)

// referenceTime is 09:00 on a Monday in New York.
var referenceTime = time.Date(2024, time.May, 20, 13, 0, 0, 0, time.UTC)

// ReferenceTime returns the baseline instant used by fixtures and clocks.
func ReferenceTime() time.Time {
	return referenceTime
}

// BusinessLocation returns the default business timezone.
func BusinessLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("testfixtures: load America/New_York: %v", err))
	}
	return loc
}

// ----------------------------- Admin fixtures -----------------------------

// AdminFixture is a deterministic back-office account.
type AdminFixture struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminOption configures an AdminFixture.
type AdminOption func(*AdminFixture)

// NewAdminFixture returns an admin-role fixture with optional overrides.
func NewAdminFixture(opts ...AdminOption) AdminFixture {
	idx := atomic.AddUint64(&adminCounter, 1)
	id := fmt.Sprintf("admin-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := AdminFixture{
		ID:           id,
		Email:        id + "@example.com",
		FullName:     fmt.Sprintf("Admin %03d", idx),
		Role:         application.RoleAdmin,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAdminID overrides the generated id.
func WithAdminID(id string) AdminOption {
	return func(f *AdminFixture) {
		f.ID = id
	}
}

// WithAdminEmail overrides the generated email.
func WithAdminEmail(email string) AdminOption {
	return func(f *AdminFixture) {
		f.Email = email
	}
}

// WithAdminRole sets the role, usually application.RoleStaff.
func WithAdminRole(role string) AdminOption {
	return func(f *AdminFixture) {
		f.Role = role
	}
}

// WithAdminPasswordHash sets the stored password hash.
func WithAdminPasswordHash(hash string) AdminOption {
	return func(f *AdminFixture) {
		f.PasswordHash = hash
	}
}

// WithAdminDisabled marks the account disabled.
func WithAdminDisabled() AdminOption {
	return func(f *AdminFixture) {
		f.Disabled = true
	}
}

// Application returns the fixture as an application.Admin.
func (f AdminFixture) Application() application.Admin {
	return application.Admin{
		ID:        f.ID,
		Email:     f.Email,
		FullName:  f.FullName,
		Role:      f.Role,
		Disabled:  f.Disabled,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Principal returns the principal a session for this admin resolves to.
func (f AdminFixture) Principal() application.Principal {
	return application.Principal{AdminID: f.ID, Email: f.Email, FullName: f.FullName, Role: f.Role}
}

// Persistence returns the fixture as a persistence.Admin row.
func (f AdminFixture) Persistence() persistence.Admin {
	return persistence.Admin{
		ID:           f.ID,
		Email:        f.Email,
		FullName:     f.FullName,
		Role:         f.Role,
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// --------------------------- Directory fixtures ---------------------------

// DirectoryFixture is a customer with one property and one pool.
type DirectoryFixture struct {
	Customer persistence.Customer
	Property persistence.Property
	Pool     persistence.Pool
}

// NewDirectoryFixture returns a customer, property and pool with sequential
// ids such as customer-001.
func NewDirectoryFixture() DirectoryFixture {
	idx := atomic.AddUint64(&directoryCounter, 1)
	customerID := fmt.Sprintf("customer-%03d", idx)
	propertyID := fmt.Sprintf("property-%03d", idx)
	return DirectoryFixture{
		Customer: persistence.Customer{
			ID:        customerID,
			Name:      fmt.Sprintf("Customer %03d", idx),
			Phone:     fmt.Sprintf("555-01%02d", idx%100),
			Email:     customerID + "@example.com",
			CreatedAt: referenceTime,
			UpdatedAt: referenceTime,
		},
		Property: persistence.Property{
			ID:         propertyID,
			CustomerID: customerID,
			Address:    fmt.Sprintf("%d Palm Way", 100+idx),
			CreatedAt:  referenceTime,
			UpdatedAt:  referenceTime,
		},
		Pool: persistence.Pool{
			ID:         fmt.Sprintf("pool-%03d", idx),
			PropertyID: propertyID,
			Label:      "Main pool",
			CreatedAt:  referenceTime,
			UpdatedAt:  referenceTime,
		},
	}
}

// Seed stores the customer, property and pool in repo.
func (f DirectoryFixture) Seed(ctx context.Context, repo persistence.DirectoryRepository) error {
	if err := repo.CreateCustomer(ctx, f.Customer); err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}
	if err := repo.CreateProperty(ctx, f.Property); err != nil {
		return fmt.Errorf("seed property: %w", err)
	}
	if err := repo.CreatePool(ctx, f.Pool); err != nil {
		return fmt.Errorf("seed pool: %w", err)
	}
	return nil
}

// ----------------------------- Event inputs -----------------------------

// EventInputOption configures an event input.
type EventInputOption func(*application.EventInput)

// NewEventInput returns a one-hour consultation for customerID starting a day
// after ReferenceTime.
func NewEventInput(customerID string, opts ...EventInputOption) application.EventInput {
	start := referenceTime.Add(24 * time.Hour)
	input := application.EventInput{
		Title:      "Pool consultation",
		Type:       application.EventTypeConsultation,
		Start:      start,
		End:        start.Add(time.Hour),
		CustomerID: customerID,
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventInputOption {
	return func(in *application.EventInput) {
		in.Title = title
	}
}

// WithEventType overrides the event type.
func WithEventType(eventType application.EventType) EventInputOption {
	return func(in *application.EventInput) {
		in.Type = eventType
	}
}

// WithEventTimes sets a timed interval.
func WithEventTimes(start, end time.Time) EventInputOption {
	return func(in *application.EventInput) {
		in.Start = start
		in.End = end
		in.AllDay = false
	}
}

// WithEventAllDay marks the event all-day over the given dates.
func WithEventAllDay(first, last time.Time) EventInputOption {
	return func(in *application.EventInput) {
		in.Start = first
		in.End = last
		in.AllDay = true
	}
}

// WithEventDirectory links the event to the fixture's property and pool.
func WithEventDirectory(dir DirectoryFixture) EventInputOption {
	return func(in *application.EventInput) {
		propertyID := dir.Property.ID
		poolID := dir.Pool.ID
		in.CustomerID = dir.Customer.ID
		in.PropertyID = &propertyID
		in.PoolID = &poolID
	}
}

// ---------------------------- Estimate inputs ----------------------------

// EstimateInputOption configures an estimate input.
type EstimateInputOption func(*application.EstimateInput)

// NewEstimateInput returns an estimate for customerID with two line items
// totalling 150.00 before tax.
func NewEstimateInput(customerID string, opts ...EstimateInputOption) application.EstimateInput {
	input := application.EstimateInput{
		CustomerID: customerID,
		LineItems: []lineitems.Item{
			{Description: "Variable speed pump", Quantity: 1, UnitPriceCents: 10000},
			{Description: "Cartridge filter", Quantity: 2, UnitPriceCents: 2500},
		},
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithLineItems replaces the line items.
func WithLineItems(items ...lineitems.Item) EstimateInputOption {
	return func(in *application.EstimateInput) {
		in.LineItems = items
	}
}

// WithTaxRate sets an explicit tax rate.
func WithTaxRate(rate float64) EstimateInputOption {
	return func(in *application.EstimateInput) {
		in.TaxRate = &rate
	}
}

// WithEstimateNotes sets the notes.
func WithEstimateNotes(notes string) EstimateInputOption {
	return func(in *application.EstimateInput) {
		in.Notes = &notes
	}
}

// WithEstimatePool links the estimate to a pool.
func WithEstimatePool(poolID string) EstimateInputOption {
	return func(in *application.EstimateInput) {
		in.PoolID = &poolID
	}
}
