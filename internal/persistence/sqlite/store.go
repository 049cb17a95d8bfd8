// Package sqlite implements the persistence repositories on SQLite using the
// pure-Go modernc.org/sqlite driver. The schema ships embedded in the binary.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/pool-backoffice/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store groups the SQLite repositories that share one connection pool.
type Store struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Admins    *AdminRepository
	Sessions  *SessionRepository
	Directory *DirectoryRepository
	Events    *EventRepository
	Estimates *EstimateRepository
}

// Open connects to the database described by config.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:      pool,
		logger:    logger,
		Admins:    NewAdminRepository(pool),
		Sessions:  NewSessionRepository(pool),
		Directory: NewDirectoryRepository(pool),
		Events:    NewEventRepository(pool),
		Estimates: NewEstimateRepository(pool),
	}, nil
}

// Migrate applies pending schema migrations and returns their versions.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	applied, err := migration.NewManager(s.pool.DB(), migrationFiles, "migrations", s.logger).Run(ctx)
	if err != nil {
		return applied, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending migrations.
func (s *Store) MigrationStatus(ctx context.Context) (migration.Status, error) {
	return migration.NewManager(s.pool.DB(), migrationFiles, "migrations", s.logger).Status(ctx)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
