// Package memory provides a map-backed implementation of every persistence
// repository. It is used by tests and by the "memory" store setting.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/pool-backoffice/internal/persistence"
)

// Storage holds all records behind a single RWMutex. Reads take a snapshot
// copy so callers never share state with the store.
type Storage struct {
	mu         sync.RWMutex
	admins     map[string]persistence.Admin
	sessions   map[string]persistence.Session
	customers  map[string]persistence.Customer
	properties map[string]persistence.Property
	pools      map[string]persistence.Pool
	events     map[string]persistence.Event
	estimates  map[string]persistence.Estimate
	sequences  map[int]int
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		admins:     make(map[string]persistence.Admin),
		sessions:   make(map[string]persistence.Session),
		customers:  make(map[string]persistence.Customer),
		properties: make(map[string]persistence.Property),
		pools:      make(map[string]persistence.Pool),
		events:     make(map[string]persistence.Event),
		estimates:  make(map[string]persistence.Estimate),
		sequences:  make(map[int]int),
	}
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// Migrate is a no-op.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- AdminRepository implementation ---

// CreateAdmin stores a new admin.
func (s *Storage) CreateAdmin(ctx context.Context, admin persistence.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.ID]; ok {
		return fmt.Errorf("memory: admin %s: %w", admin.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueEmailLocked(admin.ID, admin.Email); err != nil {
		return err
	}

	s.admins[admin.ID] = admin
	return nil
}

// UpdateAdmin replaces an existing admin.
func (s *Storage) UpdateAdmin(ctx context.Context, admin persistence.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.admins[admin.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(admin.ID, admin.Email); err != nil {
		return err
	}

	admin.CreatedAt = existing.CreatedAt
	s.admins[admin.ID] = admin
	return nil
}

// GetAdmin retrieves an admin by ID.
func (s *Storage) GetAdmin(ctx context.Context, id string) (persistence.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return persistence.Admin{}, persistence.ErrNotFound
	}
	return admin, nil
}

// GetAdminByEmail retrieves an admin by email, case-insensitively.
func (s *Storage) GetAdminByEmail(ctx context.Context, email string) (persistence.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, admin := range s.admins {
		if strings.ToLower(admin.Email) == lower {
			return admin, nil
		}
	}
	return persistence.Admin{}, persistence.ErrNotFound
}

// ListAdmins returns all admins ordered by CreatedAt ascending.
func (s *Storage) ListAdmins(ctx context.Context) ([]persistence.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admins := make([]persistence.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		admins = append(admins, admin)
	}
	sort.Slice(admins, func(i, j int) bool {
		if admins[i].CreatedAt.Equal(admins[j].CreatedAt) {
			return admins[i].ID < admins[j].ID
		}
		return admins[i].CreatedAt.Before(admins[j].CreatedAt)
	})
	return admins, nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	lower := strings.ToLower(email)
	for existingID, admin := range s.admins {
		if existingID == id {
			continue
		}
		if strings.ToLower(admin.Email) == lower {
			return fmt.Errorf("memory: email %s: %w", email, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session keyed by token.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.AdminID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[session.AdminID]; !ok {
		return persistence.Session{}, persistence.ErrForeignKeyViolation
	}
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	for _, existing := range s.sessions {
		if existing.ID == session.ID {
			return persistence.Session{}, persistence.ErrDuplicate
		}
	}

	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Storage) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces the session with the same ID, re-keying it when the
// token rotated.
func (s *Storage) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, existing := range s.sessions {
		if existing.ID != session.ID {
			continue
		}
		delete(s.sessions, token)
		session.CreatedAt = existing.CreatedAt
		s.sessions[session.Token] = cloneSession(session)
		return cloneSession(session), nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks the session as revoked.
func (s *Storage) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	at := revokedAt.UTC()
	session.RevokedAt = &at
	session.UpdatedAt = at
	s.sessions[session.Token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions drops sessions whose expiry is not after reference.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// --- DirectoryRepository implementation ---

// CreateCustomer stores a customer record.
func (s *Storage) CreateCustomer(ctx context.Context, customer persistence.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.customers[customer.ID] = customer
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *Storage) GetCustomer(ctx context.Context, id string) (persistence.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return persistence.Customer{}, persistence.ErrNotFound
	}
	return customer, nil
}

// ListCustomers returns customers ordered by name.
func (s *Storage) ListCustomers(ctx context.Context) ([]persistence.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]persistence.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		customers = append(customers, customer)
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].Name == customers[j].Name {
			return customers[i].ID < customers[j].ID
		}
		return customers[i].Name < customers[j].Name
	})
	return customers, nil
}

// CreateProperty stores a property; its customer must exist.
func (s *Storage) CreateProperty(ctx context.Context, property persistence.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.properties[property.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.customers[property.CustomerID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.properties[property.ID] = property
	return nil
}

// GetProperty retrieves a property by ID.
func (s *Storage) GetProperty(ctx context.Context, id string) (persistence.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	property, ok := s.properties[id]
	if !ok {
		return persistence.Property{}, persistence.ErrNotFound
	}
	return property, nil
}

// CreatePool stores a pool; its property must exist.
func (s *Storage) CreatePool(ctx context.Context, pool persistence.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[pool.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.properties[pool.PropertyID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.pools[pool.ID] = pool
	return nil
}

// GetPool retrieves a pool by ID.
func (s *Storage) GetPool(ctx context.Context, id string) (persistence.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[id]
	if !ok {
		return persistence.Pool{}, persistence.ErrNotFound
	}
	return pool, nil
}

func cloneSession(session persistence.Session) persistence.Session {
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		session.RevokedAt = &at
	}
	return session
}
