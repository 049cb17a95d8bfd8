// Package migration applies versioned SQL schema changes to a SQLite
// database.
//
// Migrations are read from an fs.FS (normally an embedded directory) and
// follow the naming convention {version}_{description}.sql, for example
// "001_initial_schema.sql". Each file runs in its own transaction together
// with the bookkeeping row in schema_migrations, so a failed file leaves no
// partial schema behind and is retried on the next run.
//
// Example usage:
//
//	manager := migration.NewManager(db, migrationFiles, "migrations", logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
