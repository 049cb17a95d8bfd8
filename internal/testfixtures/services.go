package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/pool-backoffice/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and the business timezone.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	LineItemIDs *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		LineItemIDs: NewUUIDGenerator("line-items"),
		Location:    BusinessLocation(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.LineItemIDs == nil {
		factory.LineItemIDs = NewUUIDGenerator("line-items")
	}
	if factory.Location == nil {
		factory.Location = BusinessLocation()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the business timezone.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events      application.EventRepository
	Directory   application.CustomerDirectory
	Cache       *application.ViewCache
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService builds an event service from deps and the factory defaults.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewEventServiceWithLogger(
		deps.Events,
		deps.Directory,
		idGen,
		now,
		f.Location,
		deps.Cache,
		deps.Logger,
	)
}

// EstimateServiceDeps captures dependencies for constructing an estimate
// service. A zero Settings gets a 7% tax rate and 30 valid days.
type EstimateServiceDeps struct {
	Estimates   application.EstimateRepository
	Directory   application.CustomerDirectory
	Cache       *application.ViewCache
	Settings    application.EstimateSettings
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEstimateService builds an estimate service from deps and the factory
// defaults.
func (f *ServiceFactory) NewEstimateService(deps EstimateServiceDeps) *application.EstimateService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	settings := deps.Settings
	if settings.DefaultTaxRate == 0 && settings.ValidDays == 0 {
		settings.DefaultTaxRate = 0.07
		settings.ValidDays = 30
	}
	if settings.Location == nil {
		settings.Location = f.Location
	}
	if settings.LineItemID == nil {
		settings.LineItemID = f.LineItemIDs.NextFunc()
	}
	return application.NewEstimateServiceWithLogger(
		deps.Estimates,
		deps.Directory,
		idGen,
		now,
		settings,
		deps.Cache,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.PasswordVerify,
		token,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}

// AdminServiceDeps captures dependencies for constructing an admin service.
type AdminServiceDeps struct {
	Admins      application.AdminRepository
	Hash        func(string) (string, error)
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAdminService builds an admin service using the supplied dependencies.
func (f *ServiceFactory) NewAdminService(deps AdminServiceDeps) *application.AdminService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAdminService(deps.Admins, deps.Hash, idGen, now, deps.Logger)
}
