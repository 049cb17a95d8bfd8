package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/pool-backoffice/internal/persistence"
)

const adminColumns = `id, email, full_name, role, password_hash, disabled, created_at, updated_at`

// AdminRepository implements persistence.AdminRepository using SQLite.
type AdminRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAdminRepository creates a new SQLite admin repository.
func NewAdminRepository(pool *ConnectionPool) *AdminRepository {
	return &AdminRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAdmin inserts a new admin. Emails are stored lowercased so the unique
// index is case-insensitive.
func (r *AdminRepository) CreateAdmin(ctx context.Context, admin persistence.Admin) error {
	if admin.ID == "" || admin.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO admins (`+adminColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		admin.ID,
		normalizeEmail(admin.Email),
		admin.FullName,
		admin.Role,
		admin.PasswordHash,
		boolToInt(admin.Disabled),
		formatTime(admin.CreatedAt),
		formatTime(admin.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateAdmin replaces the mutable fields of an admin.
func (r *AdminRepository) UpdateAdmin(ctx context.Context, admin persistence.Admin) error {
	if admin.ID == "" || admin.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx,
		`UPDATE admins SET email = ?, full_name = ?, role = ?, password_hash = ?, disabled = ?, updated_at = ? WHERE id = ?`,
		normalizeEmail(admin.Email),
		admin.FullName,
		admin.Role,
		admin.PasswordHash,
		boolToInt(admin.Disabled),
		formatTime(admin.UpdatedAt),
		admin.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetAdmin retrieves an admin by ID.
func (r *AdminRepository) GetAdmin(ctx context.Context, id string) (persistence.Admin, error) {
	admin, err := scanAdmin(r.helper.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id))
	if err != nil {
		return persistence.Admin{}, r.mapper.MapError(err)
	}
	return admin, nil
}

// GetAdminByEmail retrieves an admin by email, case-insensitively.
func (r *AdminRepository) GetAdminByEmail(ctx context.Context, email string) (persistence.Admin, error) {
	admin, err := scanAdmin(r.helper.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = ?`, normalizeEmail(email)))
	if err != nil {
		return persistence.Admin{}, r.mapper.MapError(err)
	}
	return admin, nil
}

// ListAdmins returns all admins ordered by creation time.
func (r *AdminRepository) ListAdmins(ctx context.Context) ([]persistence.Admin, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var admins []persistence.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return admins, nil
}

func scanAdmin(row rowScanner) (persistence.Admin, error) {
	var (
		admin                persistence.Admin
		disabled             int
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.FullName,
		&admin.Role,
		&admin.PasswordHash,
		&disabled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Admin{}, err
	}
	admin.Disabled = disabled != 0

	var err error
	if admin.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Admin{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if admin.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Admin{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return admin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
