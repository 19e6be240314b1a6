package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carbonx-dev/carbonx/internal/client/client"
	"github.com/carbonx-dev/carbonx/internal/client/router"
	"github.com/carbonx-dev/carbonx/internal/client/session"
	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func newCache(t *testing.T) *session.Cache {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return session.NewCache(db, nil)
}

func makeToken(t *testing.T, u identity.User) string {
	t.Helper()
	claims := identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           u.ID,
		Role:             u.Role,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

var (
	alice = identity.User{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: identity.RoleUser}
	root  = identity.User{ID: "u-2", Name: "Root", Email: "root@example.com", Role: identity.RoleAdmin}
)

// ---- fake client ----

type fakeClient struct {
	mu sync.Mutex

	SignupRet *identity.User
	SignupErr error
	LoginRet  *client.LoginResponse
	LoginErr  error
	MeRet     *identity.User
	MeErr     error
	CalcRet   *client.CalculateResponse
	CalcErr   error
	PingErr   error

	// loginGate, when set, blocks Login until closed.
	loginGate chan struct{}
	loginSeen chan struct{}

	SignupCalls int
	LoginCalls  int
	LastToken   string
	LastCalc    client.CalculateRequest
}

func (f *fakeClient) Signup(ctx context.Context, req client.SignupRequest) (*identity.User, error) {
	f.mu.Lock()
	f.SignupCalls++
	f.mu.Unlock()
	return f.SignupRet, f.SignupErr
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*client.LoginResponse, error) {
	f.mu.Lock()
	f.LoginCalls++
	f.mu.Unlock()
	if f.loginGate != nil {
		close(f.loginSeen)
		<-f.loginGate
	}
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) Me(ctx context.Context, token string) (*identity.User, error) {
	f.LastToken = token
	return f.MeRet, f.MeErr
}

func (f *fakeClient) Calculate(ctx context.Context, token string, req client.CalculateRequest) (*client.CalculateResponse, error) {
	f.LastToken = token
	f.LastCalc = req
	return f.CalcRet, f.CalcErr
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func loggedIn(t *testing.T, cache *session.Cache, u identity.User) string {
	t.Helper()
	tok := makeToken(t, u)
	require.NoError(t, cache.Save(context.Background(), tok, u))
	return tok
}

// ---- tests ----

func TestLogin_CachesSessionAndLandsOnDashboard(t *testing.T) {
	tests := []struct {
		user    identity.User
		landing string
	}{
		{user: alice, landing: router.PathUserDashboard},
		{user: root, landing: router.PathAdminDashboard},
	}

	for _, tt := range tests {
		t.Run(string(tt.user.Role), func(t *testing.T) {
			cache := newCache(t)
			tok := makeToken(t, tt.user)
			fc := &fakeClient{LoginRet: &client.LoginResponse{Token: tok, User: tt.user}}
			svc := NewAuthService(fc, cache, nil)

			res, err := svc.Login(context.Background(), " "+tt.user.Email+" ", "secret1")
			require.NoError(t, err)
			assert.Equal(t, tt.landing, res.Landing)
			assert.Equal(t, tok, res.Session.Token)

			s, err := svc.Current(context.Background())
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.Equal(t, tt.user, s.User)
		})
	}
}

func TestLogin_FailureLeavesNoSession(t *testing.T) {
	cache := newCache(t)
	fc := &fakeClient{LoginErr: &client.APIError{StatusCode: 401, Code: "invalid_credentials", Msg: "Invalid credentials"}}
	svc := NewAuthService(fc, cache, nil)

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong!")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, "Invalid credentials", err.Error())

	s, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLogin_InconsistentServerAnswerIsRejected(t *testing.T) {
	cache := newCache(t)
	fc := &fakeClient{LoginRet: &client.LoginResponse{Token: makeToken(t, alice), User: root}}
	svc := NewAuthService(fc, cache, nil)

	_, err := svc.Login(context.Background(), "root@example.com", "secret1")
	require.ErrorIs(t, err, session.ErrInconsistent)
}

func TestLogin_RequiresFields(t *testing.T) {
	fc := &fakeClient{}
	svc := NewAuthService(fc, newCache(t), nil)

	_, err := svc.Login(context.Background(), "  ", "secret1")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Login(context.Background(), "a@b.c", "")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, fc.LoginCalls)
}

func TestLogin_SecondSubmissionWhileInFlight(t *testing.T) {
	cache := newCache(t)
	fc := &fakeClient{
		LoginRet:  &client.LoginResponse{Token: makeToken(t, alice), User: alice},
		loginGate: make(chan struct{}),
		loginSeen: make(chan struct{}),
	}
	svc := NewAuthService(fc, cache, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), alice.Email, "secret1")
		done <- err
	}()
	<-fc.loginSeen

	_, err := svc.Login(context.Background(), alice.Email, "secret1")
	require.ErrorIs(t, err, ErrRequestInFlight)
	_, err = svc.Signup(context.Background(), client.SignupRequest{Name: "A", Email: "a@b.co", Password: "secret1"})
	require.ErrorIs(t, err, ErrRequestInFlight)

	close(fc.loginGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fc.LoginCalls)

	fc.loginGate = nil
	_, err = svc.Login(context.Background(), alice.Email, "secret1")
	require.NoError(t, err, "guard is released after completion")
}

func TestSignup_ValidatesBeforeCallingServer(t *testing.T) {
	tests := []struct {
		name string
		req  client.SignupRequest
		msg  string
	}{
		{name: "no name", req: client.SignupRequest{Email: "a@b.co", Password: "secret1"}, msg: "Name is required"},
		{name: "no email", req: client.SignupRequest{Name: "A", Password: "secret1"}, msg: "Email is required"},
		{name: "bad email", req: client.SignupRequest{Name: "A", Email: "nope", Password: "secret1"}, msg: "Please enter a valid email"},
		{name: "short password", req: client.SignupRequest{Name: "A", Email: "a@b.co", Password: "12345"}, msg: "Password must be at least 6 characters"},
		{name: "bad role", req: client.SignupRequest{Name: "A", Email: "a@b.co", Password: "123456", Role: "root"}, msg: "Role must be user or admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{}
			svc := NewAuthService(fc, newCache(t), nil)

			_, err := svc.Signup(context.Background(), tt.req)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, tt.msg, err.Error())
			assert.Zero(t, fc.SignupCalls)
		})
	}
}

func TestSignup_DoesNotLogIn(t *testing.T) {
	cache := newCache(t)
	fc := &fakeClient{SignupRet: &alice}
	svc := NewAuthService(fc, cache, nil)

	u, err := svc.Signup(context.Background(), client.SignupRequest{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, alice, *u)

	s, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSignup_ServerErrorPassesThrough(t *testing.T) {
	fc := &fakeClient{SignupErr: &client.APIError{StatusCode: 400, Code: "duplicate_email", Msg: "User already exists"}}
	svc := NewAuthService(fc, newCache(t), nil)

	_, err := svc.Signup(context.Background(), client.SignupRequest{Name: "A", Email: "a@b.co", Password: "secret1"})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestLogout_ClearsSession(t *testing.T) {
	cache := newCache(t)
	loggedIn(t, cache, alice)
	svc := NewAuthService(&fakeClient{}, cache, nil)

	require.NoError(t, svc.Logout(context.Background()))

	s, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestWhoAmI(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		svc := NewAuthService(&fakeClient{}, newCache(t), nil)

		_, err := svc.WhoAmI(context.Background())
		var re *RedirectError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, router.PathLogin, re.Target)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("ok", func(t *testing.T) {
		cache := newCache(t)
		tok := loggedIn(t, cache, alice)
		fc := &fakeClient{MeRet: &identity.User{ID: alice.ID, Role: alice.Role}}
		svc := NewAuthService(fc, cache, nil)

		u, err := svc.WhoAmI(context.Background())
		require.NoError(t, err)
		assert.Equal(t, alice.ID, u.ID)
		assert.Equal(t, tok, fc.LastToken)
	})

	t.Run("server rejects token", func(t *testing.T) {
		cache := newCache(t)
		loggedIn(t, cache, alice)
		fc := &fakeClient{MeErr: &client.APIError{StatusCode: 401, Code: "unauthenticated"}}
		svc := NewAuthService(fc, cache, nil)

		_, err := svc.WhoAmI(context.Background())
		var re *RedirectError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, router.PathLogin, re.Target)

		s, err := cache.Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s, "session is cleared on 401")
	})

	t.Run("server unavailable keeps session", func(t *testing.T) {
		cache := newCache(t)
		loggedIn(t, cache, alice)
		fc := &fakeClient{MeErr: client.ErrUnavailable}
		svc := NewAuthService(fc, cache, nil)

		_, err := svc.WhoAmI(context.Background())
		require.ErrorIs(t, err, client.ErrUnavailable)

		s, err := cache.Load(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
}

func TestNavigate(t *testing.T) {
	cache := newCache(t)
	svc := NewAuthService(&fakeClient{}, cache, nil)
	ctx := context.Background()

	d, err := svc.Navigate(ctx, router.PathUserDashboard)
	require.NoError(t, err)
	assert.Equal(t, router.Decision{State: router.Unauthenticated, Target: router.PathLogin, Redirect: true}, d)

	loggedIn(t, cache, alice)
	d, err = svc.Navigate(ctx, router.PathAdminDashboard)
	require.NoError(t, err)
	assert.Equal(t, router.Decision{State: router.InsufficientRole, Target: router.PathUserDashboard, Redirect: true}, d)

	d, err = svc.Navigate(ctx, router.PathUserDashboard)
	require.NoError(t, err)
	assert.Equal(t, router.Admitted, d.State)
}

func TestPing(t *testing.T) {
	svc := NewAuthService(&fakeClient{PingErr: client.ErrUnavailable}, newCache(t), nil)
	require.ErrorIs(t, svc.Ping(context.Background()), client.ErrUnavailable)
}
