// Package adapters bridges the persistence repositories to the repository
// interfaces declared by the application services.
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/persistence"
	"github.com/example/pool-backoffice/internal/workflow"
)

var (
	_ application.EventRepository    = (*EventRepository)(nil)
	_ application.EstimateRepository = (*EstimateRepository)(nil)
	_ application.SessionRepository  = (*SessionRepository)(nil)
	_ application.CredentialStore    = (*AdminStore)(nil)
	_ application.AdminRepository    = (*AdminStore)(nil)
	_ application.CustomerDirectory  = (*Directory)(nil)
)

// EventRepository adapts persistence.EventRepository to application.EventRepository.
type EventRepository struct {
	repo persistence.EventRepository
}

// NewEventRepository wraps repo.
func NewEventRepository(repo persistence.EventRepository) *EventRepository {
	return &EventRepository{repo: repo}
}

func (a *EventRepository) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *EventRepository) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *EventRepository) UpdateEvent(ctx context.Context, event application.Event, expectedVersion int64) (application.Event, error) {
	stored, err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event), expectedVersion)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func (a *EventRepository) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.Event, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		EndsAfter:    filter.EndsAfter,
		StartsBefore: filter.StartsBefore,
		CustomerID:   filter.CustomerID,
		Statuses:     statuses,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

// EstimateRepository adapts persistence.EstimateRepository to application.EstimateRepository.
type EstimateRepository struct {
	repo persistence.EstimateRepository
}

// NewEstimateRepository wraps repo.
func NewEstimateRepository(repo persistence.EstimateRepository) *EstimateRepository {
	return &EstimateRepository{repo: repo}
}

func (a *EstimateRepository) CreateEstimate(ctx context.Context, estimate application.Estimate) (application.Estimate, error) {
	if err := a.repo.CreateEstimate(ctx, toPersistenceEstimate(estimate)); err != nil {
		return application.Estimate{}, err
	}
	stored, err := a.repo.GetEstimate(ctx, estimate.ID)
	if err != nil {
		return application.Estimate{}, err
	}
	return toApplicationEstimate(stored), nil
}

func (a *EstimateRepository) GetEstimate(ctx context.Context, id string) (application.Estimate, error) {
	stored, err := a.repo.GetEstimate(ctx, id)
	if err != nil {
		return application.Estimate{}, err
	}
	return toApplicationEstimate(stored), nil
}

func (a *EstimateRepository) UpdateEstimate(ctx context.Context, estimate application.Estimate, expectedVersion int64) (application.Estimate, error) {
	stored, err := a.repo.UpdateEstimate(ctx, toPersistenceEstimate(estimate), expectedVersion)
	if err != nil {
		return application.Estimate{}, err
	}
	return toApplicationEstimate(stored), nil
}

func (a *EstimateRepository) DeleteEstimate(ctx context.Context, id string) error {
	return a.repo.DeleteEstimate(ctx, id)
}

func (a *EstimateRepository) ListEstimates(ctx context.Context, filter application.EstimateRepositoryFilter) ([]application.Estimate, error) {
	models, err := a.repo.ListEstimates(ctx, persistence.EstimateFilter{
		CustomerID: filter.CustomerID,
		Status:     string(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	estimates := make([]application.Estimate, 0, len(models))
	for _, model := range models {
		estimates = append(estimates, toApplicationEstimate(model))
	}
	return estimates, nil
}

func (a *EstimateRepository) NextEstimateSequence(ctx context.Context, year int) (int, error) {
	return a.repo.NextEstimateSequence(ctx, year)
}

// SessionRepository adapts persistence.SessionRepository to application.SessionRepository.
type SessionRepository struct {
	repo persistence.SessionRepository
}

// NewSessionRepository wraps repo.
func NewSessionRepository(repo persistence.SessionRepository) *SessionRepository {
	return &SessionRepository{repo: repo}
}

func (a *SessionRepository) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

// AdminStore serves admin credentials to the auth service and stores new
// admins for the admin service.
type AdminStore struct {
	repo persistence.AdminRepository
}

// NewAdminStore wraps repo.
func NewAdminStore(repo persistence.AdminRepository) *AdminStore {
	return &AdminStore{repo: repo}
}

func (a *AdminStore) GetAdminCredentialsByEmail(ctx context.Context, email string) (application.AdminCredentials, error) {
	stored, err := a.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		return application.AdminCredentials{}, err
	}
	return application.AdminCredentials{
		Admin:        toApplicationAdmin(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *AdminStore) GetAdmin(ctx context.Context, id string) (application.Admin, error) {
	stored, err := a.repo.GetAdmin(ctx, id)
	if err != nil {
		return application.Admin{}, err
	}
	return toApplicationAdmin(stored), nil
}

func (a *AdminStore) CreateAdmin(ctx context.Context, admin application.Admin, passwordHash string) (application.Admin, error) {
	if err := a.repo.CreateAdmin(ctx, persistence.Admin{
		ID:           admin.ID,
		Email:        admin.Email,
		FullName:     admin.FullName,
		Role:         admin.Role,
		PasswordHash: passwordHash,
		Disabled:     admin.Disabled,
		CreatedAt:    admin.CreatedAt,
		UpdatedAt:    admin.UpdatedAt,
	}); err != nil {
		return application.Admin{}, err
	}
	return a.GetAdmin(ctx, admin.ID)
}

// Directory adapts persistence.DirectoryRepository to application.CustomerDirectory.
type Directory struct {
	repo persistence.DirectoryRepository
}

// NewDirectory wraps repo.
func NewDirectory(repo persistence.DirectoryRepository) *Directory {
	return &Directory{repo: repo}
}

func (a *Directory) CustomerExists(ctx context.Context, id string) (bool, error) {
	if _, err := a.repo.GetCustomer(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *Directory) CustomerIDForProperty(ctx context.Context, propertyID string) (string, bool, error) {
	property, err := a.repo.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return property.CustomerID, true, nil
}

func (a *Directory) LookupCustomer(ctx context.Context, id string) (*application.CustomerSummary, error) {
	customer, err := a.repo.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &application.CustomerSummary{ID: customer.ID, Name: customer.Name, Phone: customer.Phone, Email: customer.Email}, nil
}

func (a *Directory) LookupProperty(ctx context.Context, id string) (*application.PropertySummary, error) {
	property, err := a.repo.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &application.PropertySummary{ID: property.ID, CustomerID: property.CustomerID, Address: property.Address}, nil
}

func (a *Directory) LookupPool(ctx context.Context, id string) (*application.PoolSummary, error) {
	pool, err := a.repo.GetPool(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &application.PoolSummary{ID: pool.ID, PropertyID: pool.PropertyID, Label: pool.Label}, nil
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:          model.ID,
		Title:       model.Title,
		Start:       model.Start,
		End:         model.End,
		AllDay:      model.AllDay,
		Type:        application.EventType(model.EventType),
		Status:      application.EventStatus(model.Status),
		CustomerID:  model.CustomerID,
		PropertyID:  cloneString(model.PropertyID),
		PoolID:      cloneString(model.PoolID),
		LocationURL: cloneString(model.LocationURL),
		Description: cloneString(model.Description),
		CreatedBy:   model.CreatedBy,
		Version:     model.Version,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		Title:       event.Title,
		Start:       event.Start,
		End:         event.End,
		AllDay:      event.AllDay,
		EventType:   string(event.Type),
		Status:      string(event.Status),
		CustomerID:  event.CustomerID,
		PropertyID:  cloneString(event.PropertyID),
		PoolID:      cloneString(event.PoolID),
		LocationURL: cloneString(event.LocationURL),
		Description: cloneString(event.Description),
		CreatedBy:   event.CreatedBy,
		Version:     event.Version,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toApplicationEstimate(model persistence.Estimate) application.Estimate {
	items := make([]lineitems.Item, 0, len(model.LineItems))
	for _, item := range model.LineItems {
		items = append(items, lineitems.Item{
			ID:             item.ID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return application.Estimate{
		ID:             model.ID,
		Number:         model.Number,
		Status:         workflow.Status(model.Status),
		CustomerID:     model.CustomerID,
		PoolID:         cloneString(model.PoolID),
		LineItems:      items,
		SubtotalCents:  model.SubtotalCents,
		TaxRate:        model.TaxRate,
		TaxAmountCents: model.TaxAmountCents,
		TotalCents:     model.TotalCents,
		ValidUntil:     cloneTime(model.ValidUntil),
		Notes:          cloneString(model.Notes),
		CreatedBy:      model.CreatedBy,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceEstimate(estimate application.Estimate) persistence.Estimate {
	items := make([]persistence.LineItem, 0, len(estimate.LineItems))
	for i, item := range estimate.LineItems {
		items = append(items, persistence.LineItem{
			ID:             item.ID,
			Position:       i,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return persistence.Estimate{
		ID:             estimate.ID,
		Number:         estimate.Number,
		Status:         string(estimate.Status),
		CustomerID:     estimate.CustomerID,
		PoolID:         cloneString(estimate.PoolID),
		LineItems:      items,
		SubtotalCents:  estimate.SubtotalCents,
		TaxRate:        estimate.TaxRate,
		TaxAmountCents: estimate.TaxAmountCents,
		TotalCents:     estimate.TotalCents,
		ValidUntil:     cloneTime(estimate.ValidUntil),
		Notes:          cloneString(estimate.Notes),
		CreatedBy:      estimate.CreatedBy,
		Version:        estimate.Version,
		CreatedAt:      estimate.CreatedAt,
		UpdatedAt:      estimate.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		AdminID:     model.AdminID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		AdminID:     session.AdminID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toApplicationAdmin(model persistence.Admin) application.Admin {
	return application.Admin{
		ID:        model.ID,
		Email:     model.Email,
		FullName:  model.FullName,
		Role:      model.Role,
		Disabled:  model.Disabled,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
