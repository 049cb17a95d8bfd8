package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/pool-backoffice/internal/actions"
	"github.com/example/pool-backoffice/internal/adapters"
	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/config"
	"github.com/example/pool-backoffice/internal/persistence"
	"github.com/example/pool-backoffice/internal/persistence/dynamodb"
	"github.com/example/pool-backoffice/internal/persistence/memory"
	"github.com/example/pool-backoffice/internal/persistence/sqlite"
	"github.com/example/pool-backoffice/internal/persistence/sqlite/migration"
)

// backend bundles the repositories selected by config.Store. Accounts and
// the customer directory always live in SQLite (or memory); the dynamodb
// store moves only events and estimates.
type backend struct {
	admins    persistence.AdminRepository
	sessions  persistence.SessionRepository
	directory persistence.DirectoryRepository
	events    persistence.EventRepository
	estimates persistence.EstimateRepository

	sqlite  *sqlite.Store
	migrate func(ctx context.Context) ([]string, error)
	ping    func(ctx context.Context) error
	closers []func() error
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Store == config.StoreMemory {
		storage := memory.Open()
		return &backend{
			admins:    storage,
			sessions:  storage,
			directory: storage,
			events:    storage,
			estimates: storage,
			migrate: func(ctx context.Context) ([]string, error) {
				return nil, storage.Migrate(ctx)
			},
			ping:    func(context.Context) error { return nil },
			closers: []func() error{storage.Close},
		}, nil
	}

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	b := &backend{
		admins:    store.Admins,
		sessions:  store.Sessions,
		directory: store.Directory,
		events:    store.Events,
		estimates: store.Estimates,
		sqlite:    store,
		migrate:   store.Migrate,
		ping:      store.Ping,
		closers:   []func() error{store.Close},
	}
	if cfg.Store != config.StoreDynamoDB {
		return b, nil
	}

	client, err := dynamodb.NewClient(ctx, dynamodb.Config{
		Region:          cfg.DynamoDB.Region,
		Endpoint:        cfg.DynamoDB.Endpoint,
		AccessKeyID:     cfg.DynamoDB.AccessKeyID,
		SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		EventsTable:     cfg.DynamoDB.EventsTable,
		EstimatesTable:  cfg.DynamoDB.EstimatesTable,
	})
	if err != nil {
		_ = b.close()
		return nil, err
	}
	eventsTable := tableName(cfg.DynamoDB.EventsTable, dynamodb.DefaultEventsTable)
	estimatesTable := tableName(cfg.DynamoDB.EstimatesTable, dynamodb.DefaultEstimatesTable)
	b.events = dynamodb.NewEventRepository(client, eventsTable)
	b.estimates = dynamodb.NewEstimateRepository(client, estimatesTable)
	b.migrate = func(ctx context.Context) ([]string, error) {
		applied, err := store.Migrate(ctx)
		if err != nil {
			return applied, err
		}
		created, err := dynamodb.EnsureTables(ctx, client, eventsTable, estimatesTable)
		for _, table := range created {
			applied = append(applied, "dynamodb:"+table)
		}
		return applied, err
	}
	return b, nil
}

func tableName(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (b *backend) close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// services holds everything the HTTP surface and the CLI call into.
type services struct {
	cache   *application.ViewCache
	auth    *application.AuthService
	admins  *application.AdminService
	actions *actions.Actions
}

func newServices(b *backend, cfg config.Config, logger *slog.Logger) *services {
	now := time.Now
	cache := application.NewViewCache(cfg.ViewCacheTTL, 0, now)
	directory := adapters.NewDirectory(b.directory)
	adminStore := adapters.NewAdminStore(b.admins)

	events := application.NewEventServiceWithLogger(
		adapters.NewEventRepository(b.events),
		directory,
		uuid.NewString,
		now,
		cfg.Location,
		cache,
		logger,
	)
	estimates := application.NewEstimateServiceWithLogger(
		adapters.NewEstimateRepository(b.estimates),
		directory,
		uuid.NewString,
		now,
		application.EstimateSettings{
			DefaultTaxRate: cfg.DefaultTaxRate,
			ValidDays:      cfg.EstimateValidDays,
			Location:       cfg.Location,
			LineItemID:     uuid.NewString,
		},
		cache,
		logger,
	)

	return &services{
		cache:   cache,
		auth:    application.NewAuthServiceWithLogger(adminStore, adapters.NewSessionRepository(b.sessions), nil, func() string { return randomHex(32) }, now, cfg.SessionTTL, logger),
		admins:  application.NewAdminService(adminStore, nil, uuid.NewString, now, logger),
		actions: actions.New(events, estimates, cache, logger),
	}
}
