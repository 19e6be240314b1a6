// Package services contains server-side business logic. This file implements
// UserService, which handles signup and login and issues identity tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/cryptox"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/logging"
	"github.com/carbonx-dev/carbonx/internal/server/audit"
	"github.com/carbonx-dev/carbonx/internal/server/auth"
	"github.com/carbonx-dev/carbonx/internal/server/metrics"
	"github.com/carbonx-dev/carbonx/internal/server/models"
	"github.com/carbonx-dev/carbonx/internal/server/repositories/repomanager"
)

// LoginLimiter throttles login attempts. Allow returning an error means the
// limiter itself failed; the attempt is then let through.
type LoginLimiter interface {
	Allow(ctx context.Context, keys ...string) (bool, error)
	Reset(ctx context.Context, keys ...string) error
}

// SignupInput is the signup request after JSON decoding.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string
	User  identity.User
}

// UserOption customises a UserService.
type UserOption func(*UserService)

func WithLoginLimiter(l LoginLimiter) UserOption {
	return func(s *UserService) { s.limiter = l }
}

func WithAuditSink(a audit.Sink) UserOption {
	return func(s *UserService) { s.audit = a }
}

func WithMetrics(m *metrics.Metrics) UserOption {
	return func(s *UserService) { s.metrics = m }
}

func WithLogger(l logging.Logger) UserOption {
	return func(s *UserService) { s.log = l.With("module", "user_service") }
}

// UserService provides the authentication operations behind /auth.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	tokens      *auth.TokenService

	limiter LoginLimiter
	audit   audit.Sink
	metrics *metrics.Metrics
	log     logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires the service. db may be nil when the repository
// manager is not SQL-backed.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher, tokens *auth.TokenService, opts ...UserOption) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		audit:       audit.Nop{},
		log:         logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup validates input, hashes the password and stores a new user. No
// token is issued; the caller logs in separately.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*identity.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	role, err := validateSignup(name, email, in.Password, in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			s.record(ctx, audit.Event{Kind: audit.KindSignup, Outcome: audit.OutcomeFailure, Email: email, Reason: "duplicate_email"})
			return nil, common.ErrDuplicateEmail
		}
		s.log.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrStoreUnavailable
	}

	s.record(ctx, audit.Event{Kind: audit.KindSignup, Outcome: audit.OutcomeSuccess, UserID: u.ID, Email: u.Email, Role: u.Role.String()})
	summary := u.Summary()
	return &summary, nil
}

// Login checks email and password and issues a token carrying the stored
// role. Unknown email and wrong password both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password, remoteIP string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		s.metrics.Login("invalid")
		return nil, common.NewValidationError("email", "Email is required")
	}
	if password == "" {
		s.metrics.Login("invalid")
		return nil, common.NewValidationError("password", "Password is required")
	}

	limitKeys := loginLimitKeys(email, remoteIP)
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, limitKeys...)
		if err != nil {
			s.log.Warn(ctx, "login limiter unavailable, allowing attempt", "error", err)
		}
		if !ok {
			s.metrics.Login("throttled")
			s.record(ctx, audit.Event{Kind: audit.KindLogin, Outcome: audit.OutcomeThrottled, Email: email, RemoteIP: remoteIP})
			return nil, common.ErrRateLimited
		}
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "user lookup failed", "error", err)
			return nil, common.ErrStoreUnavailable
		}
		// Burn the same hashing time as a real check.
		_, _ = s.hasher.Verify(password, s.dummy())
		return nil, s.loginFailed(ctx, email, remoteIP, "unknown_email")
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored hash unreadable", "user_id", user.ID, "error", err)
		return nil, s.loginFailed(ctx, email, remoteIP, "bad_hash")
	}
	if !ok {
		return nil, s.loginFailed(ctx, email, remoteIP, "bad_password")
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.log.Error(ctx, "token issue failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, loginLimitKeys(email, "")...); err != nil {
			s.log.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}
	s.metrics.Login("success")
	s.record(ctx, audit.Event{Kind: audit.KindLogin, Outcome: audit.OutcomeSuccess, UserID: user.ID, Email: user.Email, Role: user.Role.String(), RemoteIP: remoteIP})

	return &LoginResult{Token: token, User: user.Summary()}, nil
}

func (s *UserService) loginFailed(ctx context.Context, email, remoteIP, reason string) error {
	s.metrics.Login("failure")
	s.record(ctx, audit.Event{Kind: audit.KindLogin, Outcome: audit.OutcomeFailure, Email: email, RemoteIP: remoteIP, Reason: reason})
	return common.ErrorUnauthorized
}

func (s *UserService) record(ctx context.Context, ev audit.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	s.audit.Record(ctx, ev)
}

// dummy returns a valid hash of a random password, computed once.
func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		pw, err := common.MakeRandHexString(16)
		if err != nil {
			pw = "carbonx-dummy-password"
		}
		h, err := s.hasher.Hash(pw)
		if err != nil {
			s.log.Error(context.Background(), "dummy hash failed", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func loginLimitKeys(email, remoteIP string) []string {
	keys := []string{"email:" + strings.ToLower(email)}
	if remoteIP != "" {
		keys = append(keys, "ip:"+remoteIP)
	}
	return keys
}

func validateSignup(name, email, password, role string) (identity.Role, error) {
	if name == "" {
		return "", common.NewValidationError("name", "Name is required")
	}
	if email == "" {
		return "", common.NewValidationError("email", "Email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email || !strings.Contains(addr.Address, "@") {
		return "", common.NewValidationError("email", "Please enter a valid email")
	}
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return "", common.NewValidationError("password", "Password must be at least 6 characters")
	}
	r, err := identity.ParseRole(role)
	if err != nil {
		return "", common.NewValidationError("role", "Role must be user or admin")
	}
	return r, nil
}
