package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/pool-backoffice/internal/adapters"
	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/persistence/memory"
)

// MemoryHarness wires the event and estimate services over in-memory storage
// seeded with one admin and one directory entry.
type MemoryHarness struct {
	Factory   *ServiceFactory
	Storage   *memory.Storage
	Cache     *application.ViewCache
	Admin     AdminFixture
	Directory DirectoryFixture
	Events    *application.EventService
	Estimates *application.EstimateService
}

// NewMemoryHarness builds a seeded harness. Options apply to its factory.
func NewMemoryHarness(tb testing.TB, opts ...ServiceFactoryOption) *MemoryHarness {
	tb.Helper()

	factory := NewServiceFactory(opts...)
	storage := memory.Open()
	ctx := context.Background()

	admin := NewAdminFixture()
	if err := storage.CreateAdmin(ctx, admin.Persistence()); err != nil {
		tb.Fatalf("seed admin: %v", err)
	}
	dir := NewDirectoryFixture()
	if err := dir.Seed(ctx, storage); err != nil {
		tb.Fatalf("seed directory: %v", err)
	}

	cache := application.NewViewCache(time.Minute, 0, factory.Clock.NowFunc())
	directory := adapters.NewDirectory(storage)

	return &MemoryHarness{
		Factory:   factory,
		Storage:   storage,
		Cache:     cache,
		Admin:     admin,
		Directory: dir,
		Events: factory.NewEventService(EventServiceDeps{
			Events:    adapters.NewEventRepository(storage),
			Directory: directory,
			Cache:     cache,
		}),
		Estimates: factory.NewEstimateService(EstimateServiceDeps{
			Estimates: adapters.NewEstimateRepository(storage),
			Directory: directory,
			Cache:     cache,
		}),
	}
}

// Principal returns the seeded admin's principal.
func (h *MemoryHarness) Principal() application.Principal {
	return h.Admin.Principal()
}
