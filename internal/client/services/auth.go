// Package services contains the CLI's application services: signing up,
// logging in and out, reading the current identity and calling the
// admin-only calculator. They keep the session cache in step with what the
// server says about the token.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/carbonx-dev/carbonx/internal/client/client"
	"github.com/carbonx-dev/carbonx/internal/client/router"
	"github.com/carbonx-dev/carbonx/internal/client/session"
	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/logging"
)

// ErrRequestInFlight rejects a second login or signup submitted while the
// first one is still waiting for the server.
var ErrRequestInFlight = errors.New("request already in flight")

// SessionStore is the part of session.Cache the services need.
type SessionStore interface {
	Save(ctx context.Context, token string, user identity.User) error
	Load(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
}

// RedirectError carries the view the CLI should show after a failed call.
type RedirectError struct {
	Err    error
	Target string
}

func (e *RedirectError) Error() string { return e.Err.Error() }

func (e *RedirectError) Unwrap() error { return e.Err }

// LoginResult is a successful login and the dashboard to land on.
type LoginResult struct {
	Session *session.Session
	Landing string
}

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	Signup(ctx context.Context, req client.SignupRequest) (*identity.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*session.Session, error)
	WhoAmI(ctx context.Context) (*identity.User, error)
	Navigate(ctx context.Context, path string) (router.Decision, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client   client.Client
	sessions SessionStore
	logger   logging.Logger
	inFlight atomic.Bool
}

// NewAuthService constructs an AuthService bound to the given API client and
// session store.
func NewAuthService(c client.Client, sessions SessionStore, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &authService{client: c, sessions: sessions, logger: logger.With("module", "auth")}
}

func (a *authService) begin() error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return ErrRequestInFlight
	}
	return nil
}

func (a *authService) end() { a.inFlight.Store(false) }

// Signup registers an account. It does not log in; the caller goes to the
// login view afterwards.
func (a *authService) Signup(ctx context.Context, req client.SignupRequest) (*identity.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateSignup(req); err != nil {
		return nil, err
	}

	if err := a.begin(); err != nil {
		return nil, err
	}
	defer a.end()

	u, err := a.client.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	a.logger.Info(ctx, "signed up", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login authenticates, caches the session and reports the landing view.
func (a *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, common.NewValidationError("email", "Email is required")
	}
	if password == "" {
		return nil, common.NewValidationError("password", "Password is required")
	}

	if err := a.begin(); err != nil {
		return nil, err
	}
	defer a.end()

	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := a.sessions.Save(ctx, resp.Token, resp.User); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s, err := a.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, errors.New("session not readable after save")
	}

	a.logger.Info(ctx, "logged in", "user_id", s.User.ID, "role", s.User.Role)
	return &LoginResult{Session: s, Landing: router.DashboardFor(s.User.Role)}, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.sessions.Clear(ctx)
}

func (a *authService) Current(ctx context.Context) (*session.Session, error) {
	return a.sessions.Load(ctx)
}

// WhoAmI asks the server who the cached token belongs to.
func (a *authService) WhoAmI(ctx context.Context) (*identity.User, error) {
	s, err := requireSession(ctx, a.sessions)
	if err != nil {
		return nil, err
	}

	u, err := a.client.Me(ctx, s.Token)
	if err != nil {
		return nil, handleAPIError(ctx, a.sessions, a.logger, s, err)
	}
	return u, nil
}

// Navigate runs the route guard against the cached session.
func (a *authService) Navigate(ctx context.Context, path string) (router.Decision, error) {
	s, err := a.sessions.Load(ctx)
	if err != nil {
		return router.Decision{}, err
	}

	var role *identity.Role
	if s != nil {
		r := s.User.Role
		role = &r
	}
	return router.Decide(path, role), nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// requireSession returns the cached session or a redirect to the login view.
func requireSession(ctx context.Context, sessions SessionStore) (*session.Session, error) {
	s, err := sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &RedirectError{Err: common.ErrUnauthenticated, Target: router.PathLogin}
	}
	return s, nil
}

// handleAPIError clears the session when the server no longer accepts the
// token and points a forbidden caller at their own dashboard.
func handleAPIError(ctx context.Context, sessions SessionStore, logger logging.Logger, s *session.Session, err error) error {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		if cerr := sessions.Clear(ctx); cerr != nil {
			logger.Error(ctx, "clear rejected session", "error", cerr)
			return errors.Join(err, cerr)
		}
		logger.Info(ctx, "session rejected by server, cleared")
		return &RedirectError{Err: err, Target: router.PathLogin}
	case errors.Is(err, common.ErrForbidden):
		return &RedirectError{Err: err, Target: router.DashboardFor(s.User.Role)}
	default:
		return err
	}
}

// validateSignup mirrors the server checks so obvious mistakes fail before a
// round trip. The server stays authoritative.
func validateSignup(req client.SignupRequest) error {
	if req.Name == "" {
		return common.NewValidationError("name", "Name is required")
	}
	if req.Email == "" {
		return common.NewValidationError("email", "Email is required")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return common.NewValidationError("email", "Please enter a valid email")
	}
	if utf8.RuneCountInString(req.Password) < common.MinPasswordLength {
		return common.NewValidationError("password", fmt.Sprintf("Password must be at least %d characters", common.MinPasswordLength))
	}
	if _, err := identity.ParseRole(req.Role); err != nil {
		return common.NewValidationError("role", "Role must be user or admin")
	}
	return nil
}
