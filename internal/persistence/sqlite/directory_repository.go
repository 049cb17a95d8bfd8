package sqlite

import (
	"context"
	"fmt"

	"github.com/example/pool-backoffice/internal/persistence"
)

// DirectoryRepository implements persistence.DirectoryRepository using SQLite.
type DirectoryRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDirectoryRepository creates a new SQLite directory repository.
func NewDirectoryRepository(pool *ConnectionPool) *DirectoryRepository {
	return &DirectoryRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateCustomer inserts a customer.
func (r *DirectoryRepository) CreateCustomer(ctx context.Context, customer persistence.Customer) error {
	if customer.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO customers (id, name, phone, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		formatTime(customer.CreatedAt),
		formatTime(customer.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetCustomer retrieves a customer by ID.
func (r *DirectoryRepository) GetCustomer(ctx context.Context, id string) (persistence.Customer, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT id, name, phone, email, created_at, updated_at FROM customers WHERE id = ?`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		return persistence.Customer{}, r.mapper.MapError(err)
	}
	return customer, nil
}

// ListCustomers returns all customers ordered by name.
func (r *DirectoryRepository) ListCustomers(ctx context.Context) ([]persistence.Customer, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, name, phone, email, created_at, updated_at FROM customers ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var customers []persistence.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return customers, nil
}

// CreateProperty inserts a property for an existing customer.
func (r *DirectoryRepository) CreateProperty(ctx context.Context, property persistence.Property) error {
	if property.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO properties (id, customer_id, address, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		property.ID,
		property.CustomerID,
		property.Address,
		formatTime(property.CreatedAt),
		formatTime(property.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetProperty retrieves a property by ID.
func (r *DirectoryRepository) GetProperty(ctx context.Context, id string) (persistence.Property, error) {
	var (
		property             persistence.Property
		createdAt, updatedAt string
	)
	err := r.helper.QueryRow(ctx,
		`SELECT id, customer_id, address, created_at, updated_at FROM properties WHERE id = ?`, id,
	).Scan(&property.ID, &property.CustomerID, &property.Address, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Property{}, r.mapper.MapError(err)
	}
	if property.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Property{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if property.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Property{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return property, nil
}

// CreatePool inserts a pool for an existing property.
func (r *DirectoryRepository) CreatePool(ctx context.Context, pool persistence.Pool) error {
	if pool.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO pools (id, property_id, label, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		pool.ID,
		pool.PropertyID,
		pool.Label,
		formatTime(pool.CreatedAt),
		formatTime(pool.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetPool retrieves a pool by ID.
func (r *DirectoryRepository) GetPool(ctx context.Context, id string) (persistence.Pool, error) {
	var (
		pool                 persistence.Pool
		createdAt, updatedAt string
	)
	err := r.helper.QueryRow(ctx,
		`SELECT id, property_id, label, created_at, updated_at FROM pools WHERE id = ?`, id,
	).Scan(&pool.ID, &pool.PropertyID, &pool.Label, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Pool{}, r.mapper.MapError(err)
	}
	if pool.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Pool{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if pool.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Pool{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return pool, nil
}

func scanCustomer(row rowScanner) (persistence.Customer, error) {
	var (
		customer             persistence.Customer
		createdAt, updatedAt string
	)
	if err := row.Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.Email, &createdAt, &updatedAt); err != nil {
		return persistence.Customer{}, err
	}
	var err error
	if customer.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Customer{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if customer.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Customer{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return customer, nil
}
