package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// CredentialStore exposes admin lookup operations required by the auth service.
type CredentialStore interface {
	GetAdminCredentialsByEmail(ctx context.Context, email string) (AdminCredentials, error)
	GetAdmin(ctx context.Context, id string) (Admin, error)
}

// AdminRepository provisions admin accounts.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin Admin, passwordHash string) (Admin, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates login, session refresh and principal resolution.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "authentication failed", "")
			return
		}
		logger.With(
			"admin_id", result.Admin.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds AdminCredentials
	creds, err = s.credentials.GetAdminCredentialsByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
		}
		return
	}
	if creds.Admin.Disabled {
		err = ErrAccountDisabled
		return
	}
	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	id := s.tokenGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	session := Session{
		ID:          id,
		AdminID:     creds.Admin.ID,
		Token:       token,
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			return
		}
		session, err = s.sessions.CreateSession(ctx, session)
		if err != nil {
			return
		}
	}

	result = AuthenticateResult{Admin: creds.Admin, Session: session}
	return
}

// RefreshSession rotates an existing session token, extending its validity window.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "session refresh failed", "")
			return
		}
		logger.With(
			"session_id", result.Session.ID,
			"admin_id", result.Session.AdminID,
		).InfoContext(ctx, "session refreshed")
	}()

	var session Session
	session, err = s.activeSession(ctx, token)
	if err != nil {
		return
	}

	now := s.now()
	if newToken := s.tokenGenerator(); newToken != "" {
		session.Token = newToken
	}
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)
	if fp := strings.TrimSpace(params.Fingerprint); fp != "" {
		session.Fingerprint = fp
	}

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return
	}
	result = RefreshSessionResult{Session: session}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")
	defer func() { logOutcome(ctx, logger, err, "failed to revoke session", "session revoked") }()

	if trimmed == "" {
		return ErrInvalidCredentials
	}
	if _, err = s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		if isNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

// ResolvePrincipal verifies that token names an active session and returns
// the admin behind it. Unknown, expired and revoked tokens all resolve to
// ErrUnauthorized so callers cannot learn session state.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil || s.credentials == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ResolvePrincipal", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "session validation failed", "")
			return
		}
		logger.With("admin_id", principal.AdminID).DebugContext(ctx, "session validated")
	}()

	var session Session
	session, err = s.activeSession(ctx, trimmed)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUnauthorized, err)
		return
	}

	var admin Admin
	admin, err = s.credentials.GetAdmin(ctx, session.AdminID)
	if err != nil {
		if isNotFound(err) {
			err = ErrUnauthorized
		}
		return
	}
	if admin.Disabled {
		err = fmt.Errorf("%w: %w", ErrUnauthorized, ErrAccountDisabled)
		return
	}

	principal = Principal{
		AdminID:  admin.ID,
		Email:    admin.Email,
		FullName: admin.FullName,
		Role:     admin.Role,
	}
	return
}

func (s *AuthService) activeSession(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidCredentials
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Session{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// AdminService provisions back-office accounts.
type AdminService struct {
	admins      AdminRepository
	hash        func(password string) (string, error)
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAdminService wires dependencies for admin provisioning. A nil hash uses
// argon2id with the default parameters.
func NewAdminService(admins AdminRepository, hash func(string) (string, error), idGenerator func() string, now func() time.Time, logger *slog.Logger) *AdminService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AdminService{admins: admins, hash: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// CreateAdmin validates input, hashes the password and stores the account.
func (s *AdminService) CreateAdmin(ctx context.Context, input AdminInput) (admin Admin, err error) {
	if s == nil || s.admins == nil {
		return Admin{}, fmt.Errorf("admin repository not configured")
	}
	email := normalizeEmail(input.Email)
	logger := serviceLogger(ctx, s.logger, "AdminService", "CreateAdmin", "email", email)
	defer func() { logOutcome(ctx, logger, err, "admin creation failed", "admin created") }()

	role := strings.TrimSpace(strings.ToLower(input.Role))
	if role == "" {
		role = RoleAdmin
	}

	vErr := &ValidationError{}
	if _, parseErr := mail.ParseAddress(email); email == "" || parseErr != nil {
		vErr.add("email", "must be a valid email address")
	}
	if strings.TrimSpace(input.FullName) == "" {
		vErr.add("full_name", "is required")
	}
	if role != RoleAdmin && role != RoleStaff {
		vErr.add("role", "must be admin or staff")
	}
	if len(input.Password) < 12 {
		vErr.add("password", "must be at least 12 characters")
	}
	if vErr.HasErrors() {
		return Admin{}, vErr
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	admin, err = s.admins.CreateAdmin(ctx, Admin{
		ID:        s.idGenerator(),
		Email:     email,
		FullName:  strings.TrimSpace(input.FullName),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, hash)
	if err != nil {
		return Admin{}, mapRepoError(err)
	}
	return admin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireAdmin enforces the role gate shared by every core operation.
func requireAdmin(principal Principal) error {
	if strings.TrimSpace(principal.AdminID) == "" {
		return ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
