package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies pending migrations from a file system.
type Manager struct {
	executor *SQLiteExecutor
	fsys     fs.FS
	dir      string
	logger   *slog.Logger
}

// NewManager constructs a Manager reading migrations from dir within fsys.
func NewManager(db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor: NewSQLiteExecutor(db),
		fsys:     fsys,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// Run applies every pending migration in order and returns the versions it
// applied. It stops at the first failure.
func (m *Manager) Run(ctx context.Context) ([]string, error) {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "schema version checked",
		"current_version", status.CurrentVersion,
		"pending_count", len(status.Pending),
	)

	applied := make([]string, 0, len(status.Pending))
	for i, pending := range status.Pending {
		logger := m.logger.With("version", pending.Version, "description", pending.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "total", len(status.Pending))
		if err := m.executor.Apply(ctx, pending); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return applied, err
		}
		applied = append(applied, pending.Version)
	}

	if len(applied) > 0 {
		m.logger.InfoContext(ctx, "migrations applied", "count", len(applied), "duration", time.Since(started))
	}
	return applied, nil
}

// Status compares the available files with schema_migrations. Applied files
// whose checksum changed are reported as ErrChecksumMismatch.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := Load(m.fsys, m.dir)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	recorded := make(map[string]AppliedMigration, len(applied))
	for _, row := range applied {
		recorded[row.Version] = row
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	for _, candidate := range available {
		row, ok := recorded[candidate.Version]
		if !ok {
			status.Pending = append(status.Pending, candidate)
			continue
		}
		if row.Checksum != "" && row.Checksum != candidate.Checksum {
			return Status{}, NewMigrationError(candidate.Version, candidate.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, row.Checksum, candidate.Checksum))
		}
	}
	return status, nil
}
